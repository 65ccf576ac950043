package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/joyful-laundry/internal/model"
	"github.com/mmeshcher/joyful-laundry/internal/tracking"
)

type orderResponse struct {
	ID               string            `json:"id"`
	Ref              string            `json:"ref"`
	Status           string            `json:"status"`
	StatusLabel      string            `json:"status_label"`
	PickupAddress    model.Address     `json:"pickup_address"`
	DeliveryAddress  model.Address     `json:"delivery_address"`
	Services         []model.ServiceID `json:"services"`
	PickupTimeSlot   model.TimeSlot    `json:"pickup_time_slot"`
	DeliveryTimeSlot model.TimeSlot    `json:"delivery_time_slot"`
	TotalPrice       float64           `json:"total_price"`
	Notes            string            `json:"notes,omitempty"`
	CreatedAt        string            `json:"created_at"`
	UpdatedAt        string            `json:"updated_at"`
}

type activeOrderResponse struct {
	Order    orderResponse `json:"order"`
	Tracking tracking.View `json:"tracking"`
}

func newOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		Ref:              tracking.OrderRef(o.ID),
		Status:           string(o.Status),
		StatusLabel:      tracking.StatusLabel(o.Status),
		PickupAddress:    o.PickupAddress,
		DeliveryAddress:  o.DeliveryAddress,
		Services:         o.Services,
		PickupTimeSlot:   o.PickupTimeSlot,
		DeliveryTimeSlot: o.DeliveryTimeSlot,
		TotalPrice:       o.TotalPrice.InexactFloat64(),
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        o.UpdatedAt.Format(time.RFC3339),
	}
}

// GetOrders возвращает заказы текущего пользователя, начиная с самых новых.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	view, ok := h.viewFor(w, r)
	if !ok {
		return
	}

	view.Load(r.Context())

	orders := view.Orders()
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetActiveOrder возвращает самый новый незавершённый заказ и его шкалу выполнения.
func (h *Handler) GetActiveOrder(w http.ResponseWriter, r *http.Request) {
	view, ok := h.viewFor(w, r)
	if !ok {
		return
	}

	view.Load(r.Context())

	o, ok := view.ActiveOrder()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, activeOrderResponse{
		Order:    newOrderResponse(o),
		Tracking: tracking.Project(o),
	})
}

// GetOrderTracking возвращает шкалу выполнения заказа по идентификатору.
func (h *Handler) GetOrderTracking(w http.ResponseWriter, r *http.Request) {
	view, ok := h.viewFor(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	o, ok := view.Order(id)
	if !ok {
		view.Load(r.Context())
		o, ok = view.Order(id)
	}
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, tracking.Project(o))
}
