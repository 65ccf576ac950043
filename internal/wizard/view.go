package wizard

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/joyful-laundry/internal/catalog"
	"github.com/mmeshcher/joyful-laundry/internal/model"
)

// AddressForm описывает состояние формы нового адреса.
type AddressForm struct {
	Open   bool   `json:"open"`
	Target Target `json:"target,omitempty"`
}

// Review содержит сводку заказа, показываемую на последнем шаге.
type Review struct {
	PickupLabel   string   `json:"pickup_label"`
	PickupWhen    string   `json:"pickup_when"`
	DeliveryLabel string   `json:"delivery_label"`
	DeliveryWhen  string   `json:"delivery_when"`
	Services      []string `json:"services"`
}

// Snapshot содержит согласованный снимок состояния мастера для отображения.
type Snapshot struct {
	Step            Step              `json:"step"`
	Title           string            `json:"title"`
	StepIndex       int               `json:"step_index"`
	Progress        []bool            `json:"progress"`
	CanProceed      bool              `json:"can_proceed"`
	AddressForm     AddressForm       `json:"address_form"`
	PickupAddress   *model.Address    `json:"pickup_address,omitempty"`
	DeliveryAddress *model.Address    `json:"delivery_address,omitempty"`
	Services        []model.ServiceID `json:"services"`
	EstimatedTotal  decimal.Decimal   `json:"-"`
	PickupSlot      *model.TimeSlot   `json:"pickup_slot,omitempty"`
	DeliverySlot    *model.TimeSlot   `json:"delivery_slot,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Completed       bool              `json:"completed"`
	Review          *Review           `json:"review,omitempty"`
}

// Snapshot возвращает копию текущего состояния мастера.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	progress := make([]bool, len(steps))
	for i := range progress {
		progress[i] = w.step >= i
	}

	s := Snapshot{
		Step:           steps[w.step],
		Title:          steps[w.step].Title(),
		StepIndex:      w.step,
		Progress:       progress,
		CanProceed:     w.canProceed(),
		AddressForm:    AddressForm{Open: w.formOpen, Target: w.formTarget},
		Services:       slices.Clone(w.services),
		EstimatedTotal: catalog.EstimatedTotal(w.services),
		Notes:          w.notes,
		Completed:      w.completed,
	}
	if s.Services == nil {
		s.Services = []model.ServiceID{}
	}

	if w.pickupAddress != nil {
		a := *w.pickupAddress
		s.PickupAddress = &a
	}
	if w.deliveryAddress != nil {
		a := *w.deliveryAddress
		s.DeliveryAddress = &a
	}
	if w.pickupSlot != nil {
		slot := *w.pickupSlot
		s.PickupSlot = &slot
	}
	if w.deliverySlot != nil {
		slot := *w.deliverySlot
		s.DeliverySlot = &slot
	}

	if steps[w.step] == StepReview {
		s.Review = w.review()
	}

	return s
}

func (w *Wizard) review() *Review {
	r := &Review{Services: make([]string, 0, len(w.services))}
	if w.pickupAddress != nil {
		r.PickupLabel = w.pickupAddress.Label
	}
	if w.pickupSlot != nil {
		r.PickupWhen = w.pickupSlot.Date + " at " + w.pickupSlot.Time
	}
	if w.deliveryAddress != nil {
		r.DeliveryLabel = w.deliveryAddress.Label
	}
	if w.deliverySlot != nil {
		r.DeliveryWhen = w.deliverySlot.Date + " at " + w.deliverySlot.Time
	}
	for _, id := range w.services {
		r.Services = append(r.Services, catalog.DisplayName(id))
	}
	return r
}
