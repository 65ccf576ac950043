package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/joyful-laundry/internal/catalog"
	"github.com/mmeshcher/joyful-laundry/internal/model"
)

type stubStore struct {
	mu sync.Mutex

	addresses []model.Address
	orders    []model.Order

	readErr   error
	insertErr error

	inserted []model.Order
	nextID   int

	// blockOrders задерживает первое чтение заказов до закрытия release.
	blockOrders bool
	entered     chan struct{}
	release     chan struct{}
}

func (s *stubStore) InsertAddress(_ context.Context, _ string, _ model.AddressDraft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return "", s.insertErr
	}
	s.nextID++
	return "addr-" + string(rune('0'+s.nextID)), nil
}

func (s *stubStore) GetAddressesByUser(_ context.Context, _ string) ([]model.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return append([]model.Address(nil), s.addresses...), nil
}

func (s *stubStore) GetOrdersByUser(_ context.Context, _ string) ([]model.Order, error) {
	s.mu.Lock()
	block := s.blockOrders
	s.blockOrders = false
	orders := append([]model.Order(nil), s.orders...)
	err := s.readErr
	s.mu.Unlock()

	if block {
		close(s.entered)
		<-s.release
	}
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *stubStore) InsertOrder(_ context.Context, o model.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return "", s.insertErr
	}
	s.nextID++
	s.inserted = append(s.inserted, o)
	return "order-000" + string(rune('0'+s.nextID)), nil
}

type stubEvents struct {
	published []model.Order
	err       error
}

func (e *stubEvents) PublishOrderCreated(_ context.Context, o model.Order) error {
	e.published = append(e.published, o)
	return e.err
}

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newTestView(store Store, events EventPublisher, pricing catalog.PricingPolicy) *View {
	return NewView("u1", Deps{
		Store:   store,
		Pricing: pricing,
		Events:  events,
		Logger:  zap.NewNop(),
		Now:     func() time.Time { return fixedNow },
	})
}

func order(id string, status model.OrderStatus, created time.Time) model.Order {
	return model.Order{ID: id, UserID: "u1", Status: status, CreatedAt: created}
}

func TestLoad_SortsOrdersAndFindsActive(t *testing.T) {
	store := &stubStore{
		addresses: []model.Address{{ID: "A1", Label: "Home"}, {ID: "A2", Label: "Work"}},
		orders: []model.Order{
			order("old", model.OrderStatusWashing, fixedNow.Add(-2*time.Hour)),
			order("done", model.OrderStatusCompleted, fixedNow),
			order("mid", model.OrderStatusPending, fixedNow.Add(-time.Hour)),
		},
	}
	v := newTestView(store, nil, nil)

	require.True(t, v.Load(context.Background()))

	orders := v.Orders()
	require.Len(t, orders, 3)
	assert.Equal(t, []string{"done", "mid", "old"}, []string{orders[0].ID, orders[1].ID, orders[2].ID})

	active, ok := v.ActiveOrder()
	require.True(t, ok)
	assert.Equal(t, "mid", active.ID)

	assert.Len(t, v.Addresses(), 2)
	a, ok := v.FindAddress("A2")
	require.True(t, ok)
	assert.Equal(t, "Work", a.Label)

	_, ok = v.Order("missing")
	assert.False(t, ok)
}

func TestLoad_ReadErrorKeepsPreviousState(t *testing.T) {
	store := &stubStore{
		addresses: []model.Address{{ID: "A1"}},
		orders:    []model.Order{order("o1", model.OrderStatusPending, fixedNow)},
	}
	v := newTestView(store, nil, nil)
	require.True(t, v.Load(context.Background()))

	store.readErr = errors.New("db down")
	require.True(t, v.Load(context.Background()))

	assert.Len(t, v.Orders(), 1)
	assert.Len(t, v.Addresses(), 1)
}

func TestLoad_StaleResultIsDiscarded(t *testing.T) {
	store := &stubStore{
		orders:      []model.Order{order("stale", model.OrderStatusPending, fixedNow)},
		blockOrders: true,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	v := newTestView(store, nil, nil)

	first := make(chan bool)
	go func() { first <- v.Load(context.Background()) }()

	<-store.entered

	store.mu.Lock()
	store.orders = []model.Order{order("fresh", model.OrderStatusPending, fixedNow)}
	store.mu.Unlock()

	require.True(t, v.Load(context.Background()))
	close(store.release)

	assert.False(t, <-first)

	orders := v.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "fresh", orders[0].ID)
}

func TestCreateOrder_FlatPolicy(t *testing.T) {
	store := &stubStore{}
	events := &stubEvents{}
	v := newTestView(store, events, catalog.FlatRatePolicy{Rate: catalog.DefaultFlatRate})
	v.StartOrder()

	req := model.OrderRequest{
		PickupAddress:    model.Address{ID: "A1"},
		DeliveryAddress:  model.Address{ID: "A2"},
		Services:         []model.ServiceID{model.ServiceDryClean, model.ServiceFold},
		PickupTimeSlot:   model.TimeSlot{ID: "2024-01-01-0"},
		DeliveryTimeSlot: model.TimeSlot{ID: "2024-01-02-3"},
		Notes:            " <b>ring twice</b> ",
	}

	o, err := v.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(30)), "total = %s", o.TotalPrice)
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.Equal(t, fixedNow, o.UpdatedAt)
	assert.Equal(t, "ring twice", o.Notes)
	assert.Equal(t, "u1", o.UserID)

	require.Len(t, store.inserted, 1)
	require.Len(t, events.published, 1)
	assert.Equal(t, o.ID, events.published[0].ID)

	active, ok := v.ActiveOrder()
	require.True(t, ok)
	assert.Equal(t, o.ID, active.ID)

	_, open := v.Wizard()
	assert.False(t, open)
}

func TestCreateOrder_ItemizedPolicy(t *testing.T) {
	v := newTestView(&stubStore{}, nil, catalog.ItemizedPolicy{})

	o, err := v.CreateOrder(context.Background(), model.OrderRequest{
		Services: []model.ServiceID{model.ServiceDryClean, model.ServiceFold},
	})
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(33)), "total = %s", o.TotalPrice)
}

func TestCreateOrder_StoreErrorLeavesStateUnchanged(t *testing.T) {
	store := &stubStore{insertErr: errors.New("write failed")}
	events := &stubEvents{}
	v := newTestView(store, events, nil)
	v.StartOrder()

	_, err := v.CreateOrder(context.Background(), model.OrderRequest{Services: []model.ServiceID{model.ServiceWash}})
	require.Error(t, err)

	assert.Empty(t, v.Orders())
	assert.Empty(t, events.published)
	_, open := v.Wizard()
	assert.True(t, open)
}

func TestCreateOrder_EventFailureDoesNotFailOrder(t *testing.T) {
	v := newTestView(&stubStore{}, &stubEvents{err: errors.New("broker down")}, nil)

	_, err := v.CreateOrder(context.Background(), model.OrderRequest{Services: []model.ServiceID{model.ServiceWash}})
	require.NoError(t, err)
	assert.Len(t, v.Orders(), 1)
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	v := NewView("", Deps{Store: &stubStore{}})

	_, err := v.CreateOrder(context.Background(), model.OrderRequest{Services: []model.ServiceID{model.ServiceWash}})
	assert.Error(t, err)
}

func TestWizardCompletesIntoView(t *testing.T) {
	store := &stubStore{addresses: []model.Address{{ID: "A1", Label: "Home"}}}
	v := newTestView(store, nil, nil)
	require.True(t, v.Load(context.Background()))

	w := v.StartOrder()

	home, ok := v.FindAddress("A1")
	require.True(t, ok)
	require.NoError(t, w.SelectPickupAddress(home))
	require.True(t, w.Next())

	_, err := w.OpenAddressForm()
	require.NoError(t, err)
	work, err := w.SubmitAddressForm(context.Background(), model.AddressDraft{
		Label: "Work", Street: "2 Side St", City: "Springfield", State: "IL", ZipCode: "62702",
	})
	require.NoError(t, err)
	assert.Len(t, v.Addresses(), 2)

	require.NoError(t, w.ToggleService(model.ServiceWash))
	require.True(t, w.Next())
	require.NoError(t, w.SelectPickupSlot(model.TimeSlot{ID: "2024-01-01-0", Date: "2024-01-01", Time: "08:00 AM", Available: true}))
	require.True(t, w.Next())
	require.NoError(t, w.SelectDeliverySlot(model.TimeSlot{ID: "2024-01-02-3", Date: "2024-01-02", Time: "02:00 PM", Available: true}))
	require.True(t, w.Next())

	o, err := w.Complete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, work.ID, o.DeliveryAddress.ID)
	assert.Equal(t, "A1", o.PickupAddress.ID)

	_, open := v.Wizard()
	assert.False(t, open)
	assert.Len(t, v.Orders(), 1)
}

func TestCancelOrder(t *testing.T) {
	v := newTestView(&stubStore{}, nil, nil)

	first := v.StartOrder()
	second := v.StartOrder()
	assert.NotSame(t, first, second)

	got, open := v.Wizard()
	require.True(t, open)
	assert.Same(t, second, got)

	v.CancelOrder()
	_, open = v.Wizard()
	assert.False(t, open)
}

func TestRegistry_DropsViewOnSignOut(t *testing.T) {
	r := NewRegistry(Deps{Store: &stubStore{}, Logger: zap.NewNop()})

	v1 := r.View("u1")
	assert.Same(t, v1, r.View("u1"))
	r.View("u2")
	assert.Equal(t, 2, r.Len())

	r.HandleAuthState(model.AuthState{UserID: "u1", User: &model.User{ID: "u1"}})
	assert.Equal(t, 2, r.Len())

	r.HandleAuthState(model.AuthState{UserID: "u1"})
	assert.Equal(t, 1, r.Len())
	assert.NotSame(t, v1, r.View("u1"))
}

// gatedStore записывает строку и останавливается внутри вставки, пока не закрыт insertRelease.
// При blockReads каждое чтение сначала снимает данные, сообщает в readDone и ждёт readRelease.
type gatedStore struct {
	stubStore

	insertWritten chan struct{}
	insertRelease chan struct{}

	blockReads  bool
	readDone    chan struct{}
	readRelease chan struct{}
}

func (s *gatedStore) InsertAddress(ctx context.Context, userID string, d model.AddressDraft) (string, error) {
	id, err := s.stubStore.InsertAddress(ctx, userID, d)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.addresses = append(s.addresses, d.WithID(id))
	s.mu.Unlock()

	s.pause()
	return id, nil
}

func (s *gatedStore) InsertOrder(ctx context.Context, o model.Order) (string, error) {
	id, err := s.stubStore.InsertOrder(ctx, o)
	if err != nil {
		return "", err
	}

	o.ID = id
	s.mu.Lock()
	s.orders = append(s.orders, o)
	s.mu.Unlock()

	s.pause()
	return id, nil
}

func (s *gatedStore) pause() {
	if s.insertWritten == nil {
		return
	}
	close(s.insertWritten)
	<-s.insertRelease
}

func (s *gatedStore) GetAddressesByUser(ctx context.Context, userID string) ([]model.Address, error) {
	addrs, err := s.stubStore.GetAddressesByUser(ctx, userID)
	s.waitRead()
	return addrs, err
}

func (s *gatedStore) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.stubStore.GetOrdersByUser(ctx, userID)
	s.waitRead()
	return orders, err
}

func (s *gatedStore) waitRead() {
	if !s.blockReads {
		return
	}
	s.readDone <- struct{}{}
	<-s.readRelease
}

func homeDraft() model.AddressDraft {
	return model.AddressDraft{Label: "Home", Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701"}
}

func TestAdd_LoadDuringInsertKeepsSingleAddress(t *testing.T) {
	store := &gatedStore{
		insertWritten: make(chan struct{}),
		insertRelease: make(chan struct{}),
	}
	v := newTestView(store, nil, nil)

	added := make(chan model.Address)
	go func() {
		addr, err := v.Add(context.Background(), homeDraft())
		assert.NoError(t, err)
		added <- addr
	}()

	<-store.insertWritten
	require.True(t, v.Load(context.Background()))
	close(store.insertRelease)
	addr := <-added

	addrs := v.Addresses()
	require.Len(t, addrs, 1)
	assert.Equal(t, addr.ID, addrs[0].ID)
}

func TestAdd_LoadReadBeforeInsertIsDiscarded(t *testing.T) {
	store := &gatedStore{
		blockReads:  true,
		readDone:    make(chan struct{}),
		readRelease: make(chan struct{}),
	}
	v := newTestView(store, nil, nil)

	loaded := make(chan bool)
	go func() { loaded <- v.Load(context.Background()) }()

	<-store.readDone
	<-store.readDone

	store.blockReads = false
	addr, err := v.Add(context.Background(), homeDraft())
	require.NoError(t, err)

	close(store.readRelease)
	assert.False(t, <-loaded)

	addrs := v.Addresses()
	require.Len(t, addrs, 1)
	assert.Equal(t, addr.ID, addrs[0].ID)
}

func TestCreateOrder_LoadDuringInsertKeepsSingleOrder(t *testing.T) {
	store := &gatedStore{
		insertWritten: make(chan struct{}),
		insertRelease: make(chan struct{}),
	}
	v := newTestView(store, nil, nil)

	created := make(chan model.Order)
	go func() {
		o, err := v.CreateOrder(context.Background(), model.OrderRequest{Services: []model.ServiceID{model.ServiceWash}})
		assert.NoError(t, err)
		created <- o
	}()

	<-store.insertWritten
	require.True(t, v.Load(context.Background()))
	close(store.insertRelease)
	o := <-created

	orders := v.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)
}

type slowEvents struct{}

func (slowEvents) PublishOrderCreated(ctx context.Context, _ model.Order) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCreateOrder_SlowBrokerIsBounded(t *testing.T) {
	v := NewView("u1", Deps{
		Store:          &stubStore{},
		Events:         slowEvents{},
		Logger:         zap.NewNop(),
		PublishTimeout: 20 * time.Millisecond,
	})

	done := make(chan error, 1)
	go func() {
		_, err := v.CreateOrder(context.Background(), model.OrderRequest{Services: []model.ServiceID{model.ServiceWash}})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("order creation waited for the broker")
	}
	assert.Len(t, v.Orders(), 1)
}
