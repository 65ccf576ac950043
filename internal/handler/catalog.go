package handler

import (
	"net/http"

	"github.com/mmeshcher/joyful-laundry/internal/catalog"
)

type serviceResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// GetServices возвращает каталог услуг.
func (h *Handler) GetServices(w http.ResponseWriter, r *http.Request) {
	services := catalog.Services()

	resp := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		resp = append(resp, serviceResponse{
			ID:          string(s.ID),
			Name:        s.Name,
			Description: s.Description,
			Price:       s.Price.InexactFloat64(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetDates возвращает даты окна выбора интервалов.
func (h *Handler) GetDates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.slots.Dates())
}

// GetTimeSlots возвращает интервалы на дату из параметра date.
func (h *Handler) GetTimeSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	slots, err := h.slots.Slots(date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, slots)
}
