// Package session хранит пользователей, присутствующих в процессе, по потоку
// изменений состояния аутентификации провайдера идентификации.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

// ErrNotInitialized возвращается, если держатель ещё не подписан на провайдера.
var ErrNotInitialized = errors.New("session holder is not initialized")

// Provider описывает провайдера идентификации.
type Provider interface {
	OnAuthStateChange(fn func(model.AuthState)) func()
	Restore(ctx context.Context, userID string) error
}

// Holder хранит общую для процесса сессию. Создаётся один раз и передаётся
// потребителям явно.
type Holder struct {
	provider Provider
	logger   *zap.Logger

	mu          sync.RWMutex
	users       map[string]model.User
	unsubscribe func()
}

// NewHolder создаёт держатель сессии. До вызова Init он находится в состоянии загрузки.
func NewHolder(provider Provider, logger *zap.Logger) *Holder {
	return &Holder{
		provider: provider,
		logger:   logger,
		users:    make(map[string]model.User),
	}
}

// Init подписывается на изменения состояния аутентификации. Повторный вызов ничего не делает.
func (h *Holder) Init() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unsubscribe != nil {
		return
	}
	h.unsubscribe = h.provider.OnAuthStateChange(h.apply)
}

// Close отписывается от провайдера и забывает всех пользователей.
func (h *Holder) Close() {
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.users = make(map[string]model.User)
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Loading сообщает, что держатель ещё не получает состояние от провайдера.
func (h *Holder) Loading() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.unsubscribe == nil
}

// User возвращает присутствующего пользователя.
func (h *Holder) User(userID string) (model.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	u, ok := h.users[userID]
	return u, ok
}

// Present сообщает, присутствует ли пользователь.
func (h *Holder) Present(userID string) bool {
	_, ok := h.User(userID)
	return ok
}

// Resolve возвращает пользователя, при необходимости восстанавливая его через провайдера.
func (h *Holder) Resolve(ctx context.Context, userID string) (model.User, error) {
	if h.Loading() {
		return model.User{}, ErrNotInitialized
	}

	if u, ok := h.User(userID); ok {
		return u, nil
	}

	if err := h.provider.Restore(ctx, userID); err != nil {
		return model.User{}, err
	}

	u, ok := h.User(userID)
	if !ok {
		return model.User{}, ErrNotInitialized
	}
	return u, nil
}

func (h *Holder) apply(state model.AuthState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if state.SignedIn() {
		h.users[state.User.ID] = *state.User
		return
	}

	delete(h.users, state.UserID)
	h.logger.Debug("user signed out", zap.String("userID", state.UserID))
}
