// Package wizard реализует пошаговый мастер оформления заказа.
//
// Шаги проходятся строго по порядку: pickup → delivery → services → pickup-time →
// delivery-time → review. Переход вперёд возможен, только если заполнено поле текущего шага;
// назад можно с любого шага, кроме первого. Форма нового адреса накладывается поверх шагов
// pickup и delivery и не является отдельным шагом.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mmeshcher/joyful-laundry/internal/catalog"
	"github.com/mmeshcher/joyful-laundry/internal/model"
)

// Step обозначает шаг мастера.
type Step string

const (
	StepPickup       Step = "pickup"
	StepDelivery     Step = "delivery"
	StepServices     Step = "services"
	StepPickupTime   Step = "pickup-time"
	StepDeliveryTime Step = "delivery-time"
	StepReview       Step = "review"
)

var steps = []Step{
	StepPickup,
	StepDelivery,
	StepServices,
	StepPickupTime,
	StepDeliveryTime,
	StepReview,
}

var stepTitles = map[Step]string{
	StepPickup:       "Pickup Address",
	StepDelivery:     "Delivery Address",
	StepServices:     "Select Services",
	StepPickupTime:   "Pickup Time",
	StepDeliveryTime: "Delivery Time",
	StepReview:       "Review Order",
}

// Steps возвращает шаги мастера в порядке прохождения.
func Steps() []Step {
	return slices.Clone(steps)
}

// Title возвращает заголовок шага.
func (s Step) Title() string {
	return stepTitles[s]
}

// Target указывает, какой адрес заполняет форма нового адреса.
type Target string

const (
	TargetPickup   Target = "pickup"
	TargetDelivery Target = "delivery"
)

var (
	// ErrWrongStep возвращается, если действие недоступно на текущем шаге.
	ErrWrongStep = errors.New("action not available at current step")
	// ErrFormOpen возвращается, если действие невозможно при открытой форме адреса.
	ErrFormOpen = errors.New("address form is open")
	// ErrFormClosed возвращается при отправке или отмене закрытой формы адреса.
	ErrFormClosed = errors.New("address form is not open")
	// ErrUnknownService возвращается для услуги вне каталога.
	ErrUnknownService = errors.New("unknown service")
	// ErrNotAtReview возвращается при попытке завершить мастер не на шаге review.
	ErrNotAtReview = errors.New("order can only be completed from review")
	// ErrIncomplete возвращается, если для заказа не хватает выбранных значений.
	ErrIncomplete = errors.New("order selections are incomplete")
	// ErrCompleted возвращается при повторном завершении мастера.
	ErrCompleted = errors.New("order already completed")
)

// AddressSaver сохраняет новый адрес пользователя.
type AddressSaver interface {
	Add(ctx context.Context, draft model.AddressDraft) (model.Address, error)
}

// OrderSink принимает запрос на создание заказа. Цену и временные метки он задаёт сам.
type OrderSink interface {
	CreateOrder(ctx context.Context, req model.OrderRequest) (model.Order, error)
}

// Wizard хранит текущий шаг и накопленный выбор пользователя.
type Wizard struct {
	mu sync.Mutex

	step int

	pickupAddress   *model.Address
	deliveryAddress *model.Address
	services        []model.ServiceID
	pickupSlot      *model.TimeSlot
	deliverySlot    *model.TimeSlot
	notes           string

	formOpen   bool
	formTarget Target

	completed bool

	addresses AddressSaver
	sink      OrderSink
}

// New создаёт мастер на шаге pickup без выбранных значений.
func New(addresses AddressSaver, sink OrderSink) *Wizard {
	return &Wizard{
		addresses: addresses,
		sink:      sink,
	}
}

// Step возвращает текущий шаг.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return steps[w.step]
}

// CanProceed сообщает, заполнено ли поле текущего шага.
func (w *Wizard) CanProceed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canProceed()
}

func (w *Wizard) canProceed() bool {
	switch steps[w.step] {
	case StepPickup:
		return w.pickupAddress != nil
	case StepDelivery:
		return w.deliveryAddress != nil
	case StepServices:
		return len(w.services) > 0
	case StepPickupTime:
		return w.pickupSlot != nil
	case StepDeliveryTime:
		return w.deliverySlot != nil
	case StepReview:
		return true
	default:
		return false
	}
}

// Next переходит на следующий шаг и сообщает, произошёл ли переход.
// На последнем шаге, при незаполненном поле и при открытой форме адреса ничего не делает.
func (w *Wizard) Next() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next()
}

func (w *Wizard) next() bool {
	if w.formOpen || w.completed || !w.canProceed() || w.step == len(steps)-1 {
		return false
	}
	w.step++
	return true
}

// Back возвращается на предыдущий шаг, сохраняя весь выбор.
func (w *Wizard) Back() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.formOpen || w.completed || w.step == 0 {
		return false
	}
	w.step--
	return true
}

// SelectPickupAddress выбирает адрес забора на шаге pickup.
func (w *Wizard) SelectPickupAddress(a model.Address) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.expect(StepPickup); err != nil {
		return err
	}
	w.pickupAddress = &a
	return nil
}

// SelectDeliveryAddress выбирает адрес доставки на шаге delivery.
func (w *Wizard) SelectDeliveryAddress(a model.Address) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.expect(StepDelivery); err != nil {
		return err
	}
	w.deliveryAddress = &a
	return nil
}

// ToggleService добавляет или убирает услугу на шаге services.
func (w *Wizard) ToggleService(id model.ServiceID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.expect(StepServices); err != nil {
		return err
	}
	if !catalog.Valid(id) {
		return fmt.Errorf("%w: %s", ErrUnknownService, id)
	}
	w.services = catalog.Toggle(id, w.services)
	return nil
}

// SelectPickupSlot выбирает интервал забора на шаге pickup-time.
func (w *Wizard) SelectPickupSlot(s model.TimeSlot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.expect(StepPickupTime); err != nil {
		return err
	}
	w.pickupSlot = &s
	return nil
}

// SelectDeliverySlot выбирает интервал доставки на шаге delivery-time.
func (w *Wizard) SelectDeliverySlot(s model.TimeSlot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.expect(StepDeliveryTime); err != nil {
		return err
	}
	w.deliverySlot = &s
	return nil
}

// SetNotes задаёт комментарий к заказу на шаге review.
func (w *Wizard) SetNotes(notes string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.expect(StepReview); err != nil {
		return err
	}
	w.notes = notes
	return nil
}

// OpenAddressForm открывает форму нового адреса для адреса текущего шага.
func (w *Wizard) OpenAddressForm() (Target, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.completed {
		return "", ErrCompleted
	}
	if w.formOpen {
		return "", ErrFormOpen
	}

	switch steps[w.step] {
	case StepPickup:
		w.formTarget = TargetPickup
	case StepDelivery:
		w.formTarget = TargetDelivery
	default:
		return "", fmt.Errorf("%w: %s", ErrWrongStep, steps[w.step])
	}

	w.formOpen = true
	return w.formTarget, nil
}

// CancelAddressForm закрывает форму адреса без изменений.
func (w *Wizard) CancelAddressForm() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.formOpen {
		return ErrFormClosed
	}
	w.formOpen = false
	w.formTarget = ""
	return nil
}

// SubmitAddressForm сохраняет новый адрес, выбирает его для адреса, открывшего форму,
// закрывает форму и переходит на следующий шаг. При ошибке сохранения форма остаётся открытой.
func (w *Wizard) SubmitAddressForm(ctx context.Context, draft model.AddressDraft) (model.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.formOpen {
		return model.Address{}, ErrFormClosed
	}

	addr, err := w.addresses.Add(ctx, draft)
	if err != nil {
		return model.Address{}, err
	}

	switch w.formTarget {
	case TargetPickup:
		w.pickupAddress = &addr
	case TargetDelivery:
		w.deliveryAddress = &addr
	}

	w.formOpen = false
	w.formTarget = ""
	w.next()

	return addr, nil
}

// Complete отправляет запрос на создание заказа. Доступно только на шаге review
// и только при наличии обоих адресов, хотя бы одной услуги и обоих интервалов.
// Повторное завершение запрещено.
func (w *Wizard) Complete(ctx context.Context) (model.Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.completed {
		return model.Order{}, ErrCompleted
	}
	if steps[w.step] != StepReview {
		return model.Order{}, ErrNotAtReview
	}

	req, ok := w.request()
	if !ok {
		return model.Order{}, ErrIncomplete
	}

	order, err := w.sink.CreateOrder(ctx, req)
	if err != nil {
		return model.Order{}, err
	}

	w.completed = true
	return order, nil
}

func (w *Wizard) request() (model.OrderRequest, bool) {
	if w.pickupAddress == nil || w.deliveryAddress == nil ||
		w.pickupSlot == nil || w.deliverySlot == nil || len(w.services) == 0 {
		return model.OrderRequest{}, false
	}

	return model.OrderRequest{
		PickupAddress:    *w.pickupAddress,
		DeliveryAddress:  *w.deliveryAddress,
		Services:         slices.Clone(w.services),
		PickupTimeSlot:   *w.pickupSlot,
		DeliveryTimeSlot: *w.deliverySlot,
		Notes:            w.notes,
	}, true
}

func (w *Wizard) expect(step Step) error {
	if w.completed {
		return ErrCompleted
	}
	if w.formOpen {
		return ErrFormOpen
	}
	if steps[w.step] != step {
		return fmt.Errorf("%w: at %s, want %s", ErrWrongStep, steps[w.step], step)
	}
	return nil
}
