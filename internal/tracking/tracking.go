// Package tracking проецирует статус заказа на фиксированную шкалу этапов выполнения.
// Пакет только отображает статус и не меняет его.
package tracking

import (
	"strings"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

// Stage описывает этап шкалы выполнения заказа.
type Stage struct {
	Status model.OrderStatus
	Label  string
}

var stages = []Stage{
	{Status: model.OrderStatusPicked, Label: "Picked Up"},
	{Status: model.OrderStatusWashing, Label: "Washing"},
	{Status: model.OrderStatusDelivering, Label: "Delivering"},
	{Status: model.OrderStatusCompleted, Label: "Completed"},
}

// Баннеры статусов, которые не отображаются на шкале.
const (
	BannerPending   = "Order Pending Confirmation"
	BannerCancelled = "Order Cancelled"
)

// Stages возвращает этапы шкалы по порядку.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

// StatusIndex возвращает позицию статуса на шкале или -1 для pending, cancelled и неизвестных статусов.
func StatusIndex(status model.OrderStatus) int {
	for i, s := range stages {
		if s.Status == status {
			return i
		}
	}
	return -1
}

// Progress возвращает долю заполнения шкалы от 0 до 1.
func Progress(status model.OrderStatus) float64 {
	idx := StatusIndex(status)
	if idx < 0 {
		return 0
	}
	return float64(idx) / float64(len(stages)-1)
}

// StepView описывает этап шкалы для конкретного заказа.
type StepView struct {
	Status    model.OrderStatus `json:"status"`
	Label     string            `json:"label"`
	Completed bool              `json:"completed"`
	Current   bool              `json:"current"`
}

// View содержит проекцию заказа для экрана отслеживания.
type View struct {
	OrderRef      string            `json:"order_ref"`
	Status        model.OrderStatus `json:"status"`
	StatusLabel   string            `json:"status_label"`
	Banner        string            `json:"banner,omitempty"`
	CurrentIndex  int               `json:"current_index"`
	Progress      float64           `json:"progress"`
	Steps         []StepView        `json:"steps,omitempty"`
	PickupLabel   string            `json:"pickup_label"`
	DeliveryLabel string            `json:"delivery_label"`
}

// Project строит проекцию заказа. Для pending и cancelled шкала не строится, выставляется баннер.
func Project(o model.Order) View {
	idx := StatusIndex(o.Status)

	v := View{
		OrderRef:      OrderRef(o.ID),
		Status:        o.Status,
		StatusLabel:   StatusLabel(o.Status),
		CurrentIndex:  idx,
		Progress:      Progress(o.Status),
		PickupLabel:   o.PickupAddress.Label,
		DeliveryLabel: o.DeliveryAddress.Label,
	}

	switch o.Status {
	case model.OrderStatusCancelled:
		v.Banner = BannerCancelled
		return v
	case model.OrderStatusPending:
		v.Banner = BannerPending
		return v
	}

	v.Steps = make([]StepView, 0, len(stages))
	for i, s := range stages {
		v.Steps = append(v.Steps, StepView{
			Status:    s.Status,
			Label:     s.Label,
			Completed: i <= idx,
			Current:   i == idx,
		})
	}

	return v
}

// OrderRef возвращает короткую ссылку на заказ из первых восьми символов идентификатора.
func OrderRef(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "#" + id
}

// StatusLabel возвращает статус с заглавной буквы.
func StatusLabel(status model.OrderStatus) string {
	s := string(status)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
