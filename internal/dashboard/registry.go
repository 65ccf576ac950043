package dashboard

import (
	"sync"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

// Registry хранит представления пользователей, присутствующих в процессе.
type Registry struct {
	deps Deps

	mu    sync.Mutex
	views map[string]*View
}

// NewRegistry создаёт пустой реестр представлений.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:  deps,
		views: make(map[string]*View),
	}
}

// View возвращает представление пользователя, создавая его при первом обращении.
func (r *Registry) View(userID string) *View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[userID]
	if !ok {
		v = NewView(userID, r.deps)
		r.views[userID] = v
	}
	return v
}

// HandleAuthState удаляет представление пользователя после его выхода.
func (r *Registry) HandleAuthState(state model.AuthState) {
	if state.SignedIn() {
		return
	}

	r.mu.Lock()
	delete(r.views, state.UserID)
	r.mu.Unlock()
}

// Len возвращает количество представлений.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
