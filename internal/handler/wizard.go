package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/joyful-laundry/internal/dashboard"
	"github.com/mmeshcher/joyful-laundry/internal/metrics"
	"github.com/mmeshcher/joyful-laundry/internal/model"
	"github.com/mmeshcher/joyful-laundry/internal/wizard"
)

type wizardResponse struct {
	wizard.Snapshot
	EstimatedTotal float64 `json:"estimated_total"`
}

type addressChoiceRequest struct {
	AddressID string `json:"address_id" validate:"required"`
}

type serviceToggleRequest struct {
	ServiceID model.ServiceID `json:"service_id" validate:"required"`
}

type slotChoiceRequest struct {
	SlotID string `json:"slot_id" validate:"required"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func newWizardResponse(w *wizard.Wizard) wizardResponse {
	s := w.Snapshot()
	return wizardResponse{
		Snapshot:       s,
		EstimatedTotal: s.EstimatedTotal.InexactFloat64(),
	}
}

// StartWizard открывает новый мастер оформления заказа.
func (h *Handler) StartWizard(w http.ResponseWriter, r *http.Request) {
	view, ok := h.viewFor(w, r)
	if !ok {
		return
	}

	view.Load(r.Context())
	wz := view.StartOrder()

	metrics.WizardTransitionsTotal.WithLabelValues("start", "ok").Inc()
	writeJSON(w, http.StatusCreated, newWizardResponse(wz))
}

// GetWizard возвращает состояние открытого мастера.
func (h *Handler) GetWizard(w http.ResponseWriter, r *http.Request) {
	_, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// CancelWizard закрывает мастер без создания заказа.
func (h *Handler) CancelWizard(w http.ResponseWriter, r *http.Request) {
	view, ok := h.viewFor(w, r)
	if !ok {
		return
	}

	view.CancelOrder()
	metrics.WizardTransitionsTotal.WithLabelValues("cancel", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// WizardNext переходит на следующий шаг, если заполнено поле текущего шага.
func (h *Handler) WizardNext(w http.ResponseWriter, r *http.Request) {
	_, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	h.countTransition("next", wz.Next())
	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// WizardBack возвращается на предыдущий шаг.
func (h *Handler) WizardBack(w http.ResponseWriter, r *http.Request) {
	_, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	h.countTransition("back", wz.Back())
	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// SelectPickupAddress выбирает сохранённый адрес забора.
func (h *Handler) SelectPickupAddress(w http.ResponseWriter, r *http.Request) {
	h.selectAddress(w, r, (*wizard.Wizard).SelectPickupAddress)
}

// SelectDeliveryAddress выбирает сохранённый адрес доставки.
func (h *Handler) SelectDeliveryAddress(w http.ResponseWriter, r *http.Request) {
	h.selectAddress(w, r, (*wizard.Wizard).SelectDeliveryAddress)
}

func (h *Handler) selectAddress(w http.ResponseWriter, r *http.Request, apply func(*wizard.Wizard, model.Address) error) {
	view, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	var req addressChoiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	addr, found := view.FindAddress(req.AddressID)
	if !found {
		view.Load(r.Context())
		addr, found = view.FindAddress(req.AddressID)
	}
	if !found {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "unknown address"})
		return
	}

	if err := apply(wz, addr); err != nil {
		h.writeWizardError(w, err, view.UserID())
		return
	}

	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// ToggleService добавляет или убирает услугу.
func (h *Handler) ToggleService(w http.ResponseWriter, r *http.Request) {
	view, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	var req serviceToggleRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := wz.ToggleService(req.ServiceID); err != nil {
		h.writeWizardError(w, err, view.UserID())
		return
	}

	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// SelectPickupSlot выбирает интервал забора.
func (h *Handler) SelectPickupSlot(w http.ResponseWriter, r *http.Request) {
	h.selectSlot(w, r, (*wizard.Wizard).SelectPickupSlot)
}

// SelectDeliverySlot выбирает интервал доставки.
func (h *Handler) SelectDeliverySlot(w http.ResponseWriter, r *http.Request) {
	h.selectSlot(w, r, (*wizard.Wizard).SelectDeliverySlot)
}

func (h *Handler) selectSlot(w http.ResponseWriter, r *http.Request, apply func(*wizard.Wizard, model.TimeSlot) error) {
	view, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	var req slotChoiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	slot, err := h.slots.Lookup(req.SlotID)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	if err := apply(wz, slot); err != nil {
		h.writeWizardError(w, err, view.UserID())
		return
	}

	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// SetNotes задаёт комментарий к заказу.
func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	view, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	var req notesRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := wz.SetNotes(req.Notes); err != nil {
		h.writeWizardError(w, err, view.UserID())
		return
	}

	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// OpenAddressForm открывает форму нового адреса.
func (h *Handler) OpenAddressForm(w http.ResponseWriter, r *http.Request) {
	view, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	if _, err := wz.OpenAddressForm(); err != nil {
		h.writeWizardError(w, err, view.UserID())
		return
	}

	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// CancelAddressForm закрывает форму нового адреса без изменений.
func (h *Handler) CancelAddressForm(w http.ResponseWriter, r *http.Request) {
	view, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	if err := wz.CancelAddressForm(); err != nil {
		h.writeWizardError(w, err, view.UserID())
		return
	}

	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// SubmitAddressForm сохраняет новый адрес и выбирает его для шага, открывшего форму.
func (h *Handler) SubmitAddressForm(w http.ResponseWriter, r *http.Request) {
	view, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	var draft model.AddressDraft
	if !h.decode(w, r, &draft) {
		return
	}

	if _, err := wz.SubmitAddressForm(r.Context(), draft); err != nil {
		if errors.Is(err, wizard.ErrFormClosed) {
			h.writeWizardError(w, err, view.UserID())
			return
		}
		h.writeAddressError(w, err, view.UserID())
		return
	}

	h.countTransition("submit_address", true)
	writeJSON(w, http.StatusOK, newWizardResponse(wz))
}

// CompleteWizard создаёт заказ из выбора мастера.
func (h *Handler) CompleteWizard(w http.ResponseWriter, r *http.Request) {
	view, wz, ok := h.wizardFor(w, r)
	if !ok {
		return
	}

	o, err := wz.Complete(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, wizard.ErrNotAtReview),
			errors.Is(err, wizard.ErrIncomplete),
			errors.Is(err, wizard.ErrCompleted):
			h.writeWizardError(w, err, view.UserID())
		default:
			h.countTransition("complete", false)
			h.logger.Error("complete order error", zap.Error(err), zap.String("userID", view.UserID()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.countTransition("complete", true)
	writeJSON(w, http.StatusCreated, newOrderResponse(o))
}

func (h *Handler) wizardFor(w http.ResponseWriter, r *http.Request) (*dashboard.View, *wizard.Wizard, bool) {
	view, ok := h.viewFor(w, r)
	if !ok {
		return nil, nil, false
	}

	wz, ok := view.Wizard()
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return nil, nil, false
	}

	return view, wz, true
}

func (h *Handler) writeWizardError(w http.ResponseWriter, err error, userID string) {
	status := http.StatusConflict
	if errors.Is(err, wizard.ErrUnknownService) {
		status = http.StatusUnprocessableEntity
	}

	metrics.WizardTransitionsTotal.WithLabelValues("rejected", "error").Inc()
	h.logger.Debug("wizard action rejected", zap.Error(err), zap.String("userID", userID))
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) countTransition(action string, applied bool) {
	outcome := "ok"
	if !applied {
		outcome = "noop"
	}
	metrics.WizardTransitionsTotal.WithLabelValues(action, outcome).Inc()
}
