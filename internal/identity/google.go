package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mmeshcher/joyful-laundry/internal/model"
	"github.com/mmeshcher/joyful-laundry/internal/repository"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig собирает конфигурацию OAuth2 для входа через Google.
// Возвращает nil, если идентификатор клиента не задан.
func GoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleEnabled сообщает, настроен ли вход через Google.
func (p *Provider) GoogleEnabled() bool {
	return p.google != nil
}

// GoogleAuthURL возвращает адрес страницы согласия Google.
func (p *Provider) GoogleAuthURL(state string) (string, error) {
	if p.google == nil {
		return "", ErrGoogleDisabled
	}
	return p.google.AuthCodeURL(state), nil
}

// SignInWithGoogle обменивает код авторизации на профиль Google и выпускает токен.
// При первом входе пользователь создаётся с именем и фото из профиля.
func (p *Provider) SignInWithGoogle(ctx context.Context, code string) (model.User, string, error) {
	if p.google == nil {
		return model.User{}, "", ErrGoogleDisabled
	}

	token, err := p.google.Exchange(ctx, code)
	if err != nil {
		return model.User{}, "", fmt.Errorf("%w: exchange code: %v", ErrInvalidCredentials, err)
	}

	info, err := p.fetchGoogleUserInfo(ctx, token)
	if err != nil {
		return model.User{}, "", err
	}
	if info.Email == "" {
		return model.User{}, "", fmt.Errorf("%w: google profile has no email", ErrInvalidCredentials)
	}

	email := normalizeEmail(info.Email)

	existing, _, err := p.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return p.signedIn(*existing)
	case !errors.Is(err, repository.ErrUserNotFound):
		return model.User{}, "", fmt.Errorf("get user: %w", err)
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		name = defaultName
	}

	user, err := p.store.CreateUser(ctx, model.User{
		Email:    email,
		Name:     name,
		PhotoURL: info.Picture,
	}, nil)
	if err != nil {
		if !errors.Is(err, repository.ErrUserExists) {
			return model.User{}, "", fmt.Errorf("create user: %w", err)
		}
		// Пользователь создан параллельным входом.
		existing, _, err = p.store.GetUserByEmail(ctx, email)
		if err != nil {
			return model.User{}, "", fmt.Errorf("get user: %w", err)
		}
		user = *existing
	}

	return p.signedIn(user)
}

func (p *Provider) fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}
