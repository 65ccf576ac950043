// Package address хранит упорядоченный список сохранённых адресов пользователя.
package address

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

// ErrUnauthenticated возвращается при попытке добавить адрес без пользователя.
var ErrUnauthenticated = errors.New("user not authenticated")

// Store сохраняет новый адрес пользователя и возвращает присвоенный идентификатор.
type Store interface {
	InsertAddress(ctx context.Context, userID string, draft model.AddressDraft) (string, error)
}

// Validator проверяет черновик адреса перед сохранением.
type Validator interface {
	Struct(v any) error
}

// Catalog содержит адреса одного пользователя в порядке добавления.
type Catalog struct {
	mu        sync.RWMutex
	userID    string
	store     Store
	validator Validator
	items     []model.Address
}

// NewCatalog создаёт пустой каталог адресов пользователя userID.
// validator может быть nil.
func NewCatalog(userID string, store Store, validator Validator) *Catalog {
	return &Catalog{
		userID:    userID,
		store:     store,
		validator: validator,
	}
}

// List возвращает копию списка адресов.
func (c *Catalog) List() []model.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Replace заменяет список адресов загруженным из хранилища.
func (c *Catalog) Replace(items []model.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.Clone(items)
}

// Add сохраняет черновик и добавляет получившийся адрес в конец списка.
func (c *Catalog) Add(ctx context.Context, draft model.AddressDraft) (model.Address, error) {
	addr, err := c.Save(ctx, draft)
	if err != nil {
		return model.Address{}, err
	}

	c.Append(addr)
	return addr, nil
}

// Save проверяет и сохраняет черновик, не меняя список.
func (c *Catalog) Save(ctx context.Context, draft model.AddressDraft) (model.Address, error) {
	if c.userID == "" {
		return model.Address{}, ErrUnauthenticated
	}

	if c.validator != nil {
		if err := c.validator.Struct(draft); err != nil {
			return model.Address{}, fmt.Errorf("validate address: %w", err)
		}
	}

	id, err := c.store.InsertAddress(ctx, c.userID, draft)
	if err != nil {
		return model.Address{}, fmt.Errorf("insert address: %w", err)
	}

	return draft.WithID(id), nil
}

// Append добавляет адрес в конец списка, если адреса с таким идентификатором ещё нет.
// Возвращает false, если адрес уже был в списке.
func (c *Catalog) Append(addr model.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := Select(c.items, addr.ID); found {
		return false
	}
	c.items = append(c.items, addr)
	return true
}

// Find ищет адрес каталога по идентификатору.
func (c *Catalog) Find(id string) (model.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Select(c.items, id)
}

// Select возвращает адрес списка с идентификатором id.
func Select(list []model.Address, id string) (model.Address, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return model.Address{}, false
}
