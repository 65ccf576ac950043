// Package dashboard хранит представление пользователя: его заказы, адреса и открытый
// мастер оформления заказа.
package dashboard

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/joyful-laundry/internal/address"
	"github.com/mmeshcher/joyful-laundry/internal/catalog"
	"github.com/mmeshcher/joyful-laundry/internal/metrics"
	"github.com/mmeshcher/joyful-laundry/internal/model"
	"github.com/mmeshcher/joyful-laundry/internal/wizard"
)

// Store описывает операции хранилища, нужные представлению.
type Store interface {
	InsertAddress(ctx context.Context, userID string, draft model.AddressDraft) (string, error)
	GetAddressesByUser(ctx context.Context, userID string) ([]model.Address, error)
	InsertOrder(ctx context.Context, order model.Order) (string, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
}

// EventPublisher публикует событие о создании заказа.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order model.Order) error
}

// Deps содержит общие зависимости представлений.
type Deps struct {
	Store     Store
	Validator address.Validator
	Pricing   catalog.PricingPolicy
	// Events может быть nil.
	Events EventPublisher
	Logger *zap.Logger
	Now    func() time.Time
	// PublishTimeout ограничивает публикацию события, по умолчанию DefaultPublishTimeout.
	PublishTimeout time.Duration
}

// DefaultPublishTimeout ограничивает ожидание брокера при создании заказа.
const DefaultPublishTimeout = 2 * time.Second

// View хранит состояние одного пользователя. Результат загрузки применяется, только если
// после её начала не было другой загрузки или локальной записи.
type View struct {
	userID    string
	deps      Deps
	addresses *address.Catalog
	sanitizer *bluemonday.Policy

	mu         sync.Mutex
	generation uint64
	orders     []model.Order
	wizard     *wizard.Wizard
}

// NewView создаёт пустое представление пользователя userID.
func NewView(userID string, deps Deps) *View {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.PublishTimeout <= 0 {
		deps.PublishTimeout = DefaultPublishTimeout
	}
	if deps.Pricing == nil {
		deps.Pricing = catalog.FlatRatePolicy{Rate: catalog.DefaultFlatRate}
	}

	return &View{
		userID:    userID,
		deps:      deps,
		addresses: address.NewCatalog(userID, deps.Store, deps.Validator),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// UserID возвращает владельца представления.
func (v *View) UserID() string {
	return v.userID
}

// Load перечитывает адреса и заказы пользователя. Ошибки чтения логируются, а ранее
// загруженное состояние сохраняется. Возвращает false, если результат устарел и отброшен.
func (v *View) Load(ctx context.Context) bool {
	gen := v.bump()

	var (
		addrs     []model.Address
		orders    []model.Order
		addrsErr  error
		ordersErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		addrs, addrsErr = v.deps.Store.GetAddressesByUser(ctx, v.userID)
		return nil
	})
	g.Go(func() error {
		orders, ordersErr = v.deps.Store.GetOrdersByUser(ctx, v.userID)
		return nil
	})
	_ = g.Wait()

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		metrics.StaleLoadsDiscardedTotal.Inc()
		v.deps.Logger.Debug("stale load discarded", zap.String("userID", v.userID))
		return false
	}

	if addrsErr != nil {
		metrics.StoreErrorsTotal.WithLabelValues("get_addresses").Inc()
		v.deps.Logger.Error("load addresses error", zap.Error(addrsErr), zap.String("userID", v.userID))
	} else {
		v.addresses.Replace(addrs)
	}

	if ordersErr != nil {
		metrics.StoreErrorsTotal.WithLabelValues("get_orders").Inc()
		v.deps.Logger.Error("load orders error", zap.Error(ordersErr), zap.String("userID", v.userID))
	} else {
		sortNewestFirst(orders)
		v.orders = orders
	}

	return true
}

func (v *View) bump() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	return v.generation
}

// Orders возвращает заказы пользователя, начиная с самых новых.
func (v *View) Orders() []model.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.orders)
}

// Order возвращает заказ пользователя по идентификатору.
func (v *View) Order(id string) (model.Order, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, o := range v.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

// ActiveOrder возвращает самый новый заказ, который ещё не завершён и не отменён.
func (v *View) ActiveOrder() (model.Order, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, o := range v.orders {
		if !o.Status.Terminal() {
			return o, true
		}
	}
	return model.Order{}, false
}

// Addresses возвращает сохранённые адреса в порядке добавления.
func (v *View) Addresses() []model.Address {
	return v.addresses.List()
}

// FindAddress ищет сохранённый адрес по идентификатору.
func (v *View) FindAddress(id string) (model.Address, bool) {
	return v.addresses.Find(id)
}

// Add сохраняет новый адрес пользователя. Загрузки, начатые до появления адреса
// в локальном списке, устаревают.
func (v *View) Add(ctx context.Context, draft model.AddressDraft) (model.Address, error) {
	addr, err := v.addresses.Save(ctx, draft)
	if err != nil {
		return model.Address{}, err
	}

	v.mu.Lock()
	v.generation++
	v.addresses.Append(addr)
	v.mu.Unlock()

	metrics.AddressesCreatedTotal.Inc()
	return addr, nil
}

// CreateOrder создаёт заказ по запросу мастера: статус pending, цена по политике
// ценообразования, текущие временные метки. При успехе мастер закрывается.
func (v *View) CreateOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	if v.userID == "" {
		return model.Order{}, address.ErrUnauthenticated
	}

	now := v.deps.Now().UTC()
	order := model.Order{
		UserID:           v.userID,
		PickupAddress:    req.PickupAddress,
		DeliveryAddress:  req.DeliveryAddress,
		Services:         slices.Clone(req.Services),
		PickupTimeSlot:   req.PickupTimeSlot,
		DeliveryTimeSlot: req.DeliveryTimeSlot,
		Status:           model.OrderStatusPending,
		TotalPrice:       v.deps.Pricing.Total(req.Services),
		CreatedAt:        now,
		UpdatedAt:        now,
		Notes:            strings.TrimSpace(v.sanitizer.Sanitize(req.Notes)),
	}

	id, err := v.deps.Store.InsertOrder(ctx, order)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("insert_order").Inc()
		v.deps.Logger.Error("create order error", zap.Error(err), zap.String("userID", v.userID))
		return model.Order{}, err
	}
	order.ID = id

	v.mu.Lock()
	v.generation++
	if !slices.ContainsFunc(v.orders, func(o model.Order) bool { return o.ID == order.ID }) {
		v.orders = append([]model.Order{order}, v.orders...)
	}
	v.wizard = nil
	v.mu.Unlock()

	metrics.OrdersCreatedTotal.Inc()
	v.deps.Logger.Info("order created",
		zap.String("userID", v.userID),
		zap.String("orderID", order.ID),
		zap.String("pricing", v.deps.Pricing.Name()),
		zap.String("total", order.TotalPrice.StringFixed(2)),
	)

	if v.deps.Events != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.deps.PublishTimeout)
		defer cancel()

		if err := v.deps.Events.PublishOrderCreated(pubCtx, order); err != nil {
			v.deps.Logger.Warn("order event not published", zap.Error(err), zap.String("orderID", order.ID))
		}
	}

	return order, nil
}

// StartOrder открывает новый мастер оформления заказа, заменяя незавершённый.
func (v *View) StartOrder() *wizard.Wizard {
	w := wizard.New(v, v)

	v.mu.Lock()
	v.wizard = w
	v.mu.Unlock()

	return w
}

// Wizard возвращает открытый мастер оформления заказа.
func (v *View) Wizard() (*wizard.Wizard, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.wizard, v.wizard != nil
}

// CancelOrder закрывает мастер без создания заказа.
func (v *View) CancelOrder() {
	v.mu.Lock()
	v.wizard = nil
	v.mu.Unlock()
}

func sortNewestFirst(orders []model.Order) {
	slices.SortStableFunc(orders, func(a, b model.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
