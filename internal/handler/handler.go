// Package handler содержит HTTP-обработчики API сервиса доставки стирки.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/joyful-laundry/internal/dashboard"
	"github.com/mmeshcher/joyful-laundry/internal/geocode"
	"github.com/mmeshcher/joyful-laundry/internal/identity"
	"github.com/mmeshcher/joyful-laundry/internal/middleware"
	"github.com/mmeshcher/joyful-laundry/internal/model"
	"github.com/mmeshcher/joyful-laundry/internal/timeslot"
	"github.com/mmeshcher/joyful-laundry/internal/validation"
)

// Identity определяет контракт провайдера идентификации, используемый обработчиками.
type Identity interface {
	SignUp(ctx context.Context, email, password, name string) (model.User, string, error)
	SignIn(ctx context.Context, email, password string) (model.User, string, error)
	SignOut(claims *identity.Claims)
	GoogleAuthURL(state string) (string, error)
	SignInWithGoogle(ctx context.Context, code string) (model.User, string, error)
}

// Sessions возвращает присутствующих пользователей.
type Sessions interface {
	User(userID string) (model.User, bool)
}

// Views выдаёт представление пользователя.
type Views interface {
	View(userID string) *dashboard.View
}

// Geocoder находит адрес по координатам.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geocode.Address, error)
}

// Slots генерирует даты и интервалы окна выбора.
type Slots interface {
	Dates() []timeslot.Date
	Slots(date string) ([]model.TimeSlot, error)
	Lookup(id string) (model.TimeSlot, error)
}

// HealthChecker проверяет доступность хранилища.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps содержит зависимости обработчиков.
type Deps struct {
	Identity    Identity
	Sessions    Sessions
	Views       Views
	Geocoder    Geocoder
	Slots       Slots
	Health      HealthChecker
	Validator   *validation.Validator
	CORSOrigins []string
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	identity    Identity
	sessions    Sessions
	views       Views
	geocoder    Geocoder
	slots       Slots
	health      HealthChecker
	validator   *validation.Validator
	corsOrigins []string

	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(deps Deps, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}

	return &Handler{
		identity:       deps.Identity,
		sessions:       deps.Sessions,
		views:          deps.Views,
		geocoder:       deps.Geocoder,
		slots:          deps.Slots,
		health:         deps.Health,
		validator:      v,
		corsOrigins:    deps.CORSOrigins,
		logger:         logger,
		authMiddleware: auth,
	}
}

const oauthStateCookie = "oauth_state"

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"max=128"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, token, err := h.identity.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, identity.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			h.logger.Error("register user error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.authMiddleware.SetAuthCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, token, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

// Logout отзывает токен текущего пользователя и удаляет cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := middleware.GetClaimsFromContext(r.Context()); ok {
		h.identity.SignOut(claims)
	}

	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	user, ok := h.sessions.User(userID)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GoogleLogin перенаправляет пользователя на страницу согласия Google.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	url, err := h.identity.GoogleAuthURL(state)
	if err != nil {
		if errors.Is(err, identity.ErrGoogleDisabled) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("google auth url error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback завершает вход через Google.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, token, err := h.identity.SignInWithGoogle(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		case errors.Is(err, identity.ErrGoogleDisabled):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("google sign-in error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.authMiddleware.SetAuthCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

// Health сообщает о доступности хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.health.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// decode разбирает JSON-тело запроса и проверяет его по тегам validate.
// При ошибке пишет ответ 400 и возвращает false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation failed",
			Details: validation.Details(err),
		})
		return false
	}

	return true
}

func (h *Handler) viewFor(w http.ResponseWriter, r *http.Request) (*dashboard.View, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}
	return h.views.View(userID), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
