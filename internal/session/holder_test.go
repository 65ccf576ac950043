package session

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

type stubProvider struct {
	listener     func(model.AuthState)
	subscribed   int
	unsubscribed int
	users        map[string]model.User
	restoreCalls int
}

func (p *stubProvider) OnAuthStateChange(fn func(model.AuthState)) func() {
	p.listener = fn
	p.subscribed++
	return func() {
		p.listener = nil
		p.unsubscribed++
	}
}

func (p *stubProvider) Restore(_ context.Context, userID string) error {
	p.restoreCalls++
	u, ok := p.users[userID]
	if !ok {
		return errors.New("not found")
	}
	if p.listener != nil {
		p.listener(model.AuthState{UserID: u.ID, User: &u})
	}
	return nil
}

func TestHolder_InitAndClose(t *testing.T) {
	p := &stubProvider{}
	h := NewHolder(p, zap.NewNop())

	if !h.Loading() {
		t.Fatalf("holder must be loading before Init")
	}

	h.Init()
	h.Init()
	if h.Loading() {
		t.Fatalf("holder must not be loading after Init")
	}
	if p.subscribed != 1 {
		t.Fatalf("subscribed = %d, want 1", p.subscribed)
	}

	p.listener(model.AuthState{UserID: "u1", User: &model.User{ID: "u1", Email: "a@b.c"}})
	if !h.Present("u1") {
		t.Fatalf("u1 must be present after sign-in")
	}

	h.Close()
	if p.unsubscribed != 1 {
		t.Fatalf("unsubscribed = %d, want 1", p.unsubscribed)
	}
	if h.Present("u1") || !h.Loading() {
		t.Fatalf("holder must forget users and be loading after Close")
	}
	h.Close()
}

func TestHolder_SignOutRemovesUser(t *testing.T) {
	p := &stubProvider{}
	h := NewHolder(p, zap.NewNop())
	h.Init()
	defer h.Close()

	p.listener(model.AuthState{UserID: "u1", User: &model.User{ID: "u1"}})
	p.listener(model.AuthState{UserID: "u1"})

	if h.Present("u1") {
		t.Fatalf("u1 must be absent after sign-out")
	}
}

func TestHolder_ResolveRestoresFromProvider(t *testing.T) {
	p := &stubProvider{users: map[string]model.User{"u1": {ID: "u1", Name: "Ann"}}}
	h := NewHolder(p, zap.NewNop())

	if _, err := h.Resolve(context.Background(), "u1"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized before Init, got %v", err)
	}

	h.Init()
	defer h.Close()

	u, err := h.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if u.Name != "Ann" {
		t.Fatalf("name = %q, want Ann", u.Name)
	}

	if _, err := h.Resolve(context.Background(), "u1"); err != nil {
		t.Fatalf("second Resolve error: %v", err)
	}
	if p.restoreCalls != 1 {
		t.Fatalf("restoreCalls = %d, want 1", p.restoreCalls)
	}

	if _, err := h.Resolve(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}
