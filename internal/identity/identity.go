// Package identity реализует провайдера идентификации: вход по email и паролю,
// вход через Google, выпуск и проверку токенов доступа и поток изменений состояния
// аутентификации.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/mmeshcher/joyful-laundry/internal/model"
	"github.com/mmeshcher/joyful-laundry/internal/repository"
)

var (
	// ErrInvalidCredentials возвращается при неверном email или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken возвращается при регистрации на уже занятый email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidInput возвращается при некорректных данных регистрации.
	ErrInvalidInput = errors.New("invalid sign-up data")
	// ErrGoogleDisabled возвращается, если вход через Google не настроен.
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
)

const (
	minPasswordLength = 6
	defaultName       = "User"
	defaultTokenTTL   = 365 * 24 * time.Hour
)

// UserStore описывает хранилище пользователей, используемое провайдером.
type UserStore interface {
	CreateUser(ctx context.Context, user model.User, passwordHash []byte) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, []byte, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Config содержит параметры провайдера.
type Config struct {
	Secret   string
	TokenTTL time.Duration
	// Google равен nil, если вход через Google отключён.
	Google *oauth2.Config
}

// Provider выпускает токены и оповещает подписчиков о входе и выходе пользователей.
type Provider struct {
	store  UserStore
	logger *zap.Logger

	secret   []byte
	tokenTTL time.Duration

	google      *oauth2.Config
	userInfoURL string

	mu        sync.Mutex
	listeners map[int]func(model.AuthState)
	nextID    int
	revoked   map[string]time.Time

	now func() time.Time
}

// NewProvider создаёт провайдера идентификации.
func NewProvider(store UserStore, cfg Config, logger *zap.Logger) *Provider {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &Provider{
		store:       store,
		logger:      logger,
		secret:      secretKey(cfg.Secret),
		tokenTTL:    ttl,
		google:      cfg.Google,
		userInfoURL: googleUserInfoURL,
		listeners:   make(map[int]func(model.AuthState)),
		revoked:     make(map[string]time.Time),
		now:         time.Now,
	}
}

// SignUp регистрирует пользователя по email и паролю и выпускает для него токен.
func (p *Provider) SignUp(ctx context.Context, email, password, name string) (model.User, string, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return model.User{}, "", fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return model.User{}, "", fmt.Errorf("%w: password too short", ErrInvalidInput)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := p.store.CreateUser(ctx, model.User{Email: email, Name: name}, hash)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return model.User{}, "", ErrEmailTaken
		}
		return model.User{}, "", fmt.Errorf("create user: %w", err)
	}

	return p.signedIn(user)
}

// SignIn проверяет email и пароль и выпускает токен.
func (p *Provider) SignIn(ctx context.Context, email, password string) (model.User, string, error) {
	user, hash, err := p.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", fmt.Errorf("get user: %w", err)
	}

	if len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return model.User{}, "", ErrInvalidCredentials
	}

	return p.signedIn(*user)
}

// SignOut отзывает токен и оповещает подписчиков о выходе пользователя.
func (p *Provider) SignOut(claims *Claims) {
	if claims == nil {
		return
	}

	p.mu.Lock()
	now := p.now()
	for id, exp := range p.revoked {
		if now.After(exp) {
			delete(p.revoked, id)
		}
	}
	exp := now.Add(p.tokenTTL)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	p.revoked[claims.ID] = exp
	p.mu.Unlock()

	p.emit(model.AuthState{UserID: claims.UserID})
}

// OnAuthStateChange подписывает fn на изменения состояния аутентификации
// и возвращает функцию отписки.
func (p *Provider) OnAuthStateChange(fn func(model.AuthState)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// Restore загружает сохранённого пользователя и оповещает о нём подписчиков.
// Используется при предъявлении действующего токена после перезапуска.
func (p *Provider) Restore(ctx context.Context, userID string) error {
	user, err := p.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("restore user: %w", err)
	}

	p.emit(model.AuthState{UserID: user.ID, User: user})
	return nil
}

func (p *Provider) signedIn(user model.User) (model.User, string, error) {
	token, err := p.issue(user.ID)
	if err != nil {
		return model.User{}, "", err
	}

	u := user
	p.emit(model.AuthState{UserID: user.ID, User: &u})

	p.logger.Info("user signed in", zap.String("userID", user.ID))
	return user, token, nil
}

func (p *Provider) emit(state model.AuthState) {
	p.mu.Lock()
	fns := make([]func(model.AuthState), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
