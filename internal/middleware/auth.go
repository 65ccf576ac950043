// Package middleware содержит HTTP middleware сервиса доставки стирки.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/joyful-laundry/internal/identity"
	"github.com/mmeshcher/joyful-laundry/internal/model"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	claimsKey contextKey = "claims"
)

// AuthCookieName задаёт имя cookie с токеном доступа.
const AuthCookieName = "auth_token"

// TokenVerifier проверяет токен доступа.
type TokenVerifier interface {
	Verify(token string) (*identity.Claims, error)
}

// UserResolver возвращает присутствующего пользователя, восстанавливая его при необходимости.
type UserResolver interface {
	Resolve(ctx context.Context, userID string) (model.User, error)
}

// AuthMiddleware выполняет проверку аутентификации пользователя по токену
// из cookie или заголовка Authorization.
type AuthMiddleware struct {
	verifier TokenVerifier
	resolver UserResolver
	ttl      time.Duration
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware.
func NewAuthMiddleware(verifier TokenVerifier, resolver UserResolver, ttl time.Duration) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		resolver: resolver,
		ttl:      ttl,
	}
}

// Middleware проверяет токен и добавляет идентификатор пользователя и claims в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		claims, err := a.verifier.Verify(token)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if _, err := a.resolver.Resolve(r.Context(), claims.UserID); err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie устанавливает cookie авторизации с токеном доступа.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie удаляет cookie авторизации.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := r.Cookie(AuthCookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// GetClaimsFromContext извлекает claims токена из контекста запроса.
func GetClaimsFromContext(ctx context.Context) (*identity.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*identity.Claims)
	return c, ok
}
