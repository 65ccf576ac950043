package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/joyful-laundry/internal/address"
	"github.com/mmeshcher/joyful-laundry/internal/metrics"
	"github.com/mmeshcher/joyful-laundry/internal/model"
	"github.com/mmeshcher/joyful-laundry/internal/validation"
)

const geocodeNotice = "Could not get address from location"

type geocodeResponse struct {
	Resolved  bool    `json:"resolved"`
	Notice    string  `json:"notice,omitempty"`
	Street    string  `json:"street"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	ZipCode   string  `json:"zip_code"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GetAddresses возвращает сохранённые адреса текущего пользователя.
func (h *Handler) GetAddresses(w http.ResponseWriter, r *http.Request) {
	view, ok := h.viewFor(w, r)
	if !ok {
		return
	}

	view.Load(r.Context())

	addrs := view.Addresses()
	if len(addrs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, addrs)
}

// AddAddress сохраняет новый адрес текущего пользователя.
func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request) {
	view, ok := h.viewFor(w, r)
	if !ok {
		return
	}

	var draft model.AddressDraft
	if !h.decode(w, r, &draft) {
		return
	}

	addr, err := view.Add(r.Context(), draft)
	if err != nil {
		h.writeAddressError(w, err, view.UserID())
		return
	}

	writeJSON(w, http.StatusCreated, addr)
}

func (h *Handler) writeAddressError(w http.ResponseWriter, err error, userID string) {
	if details := validation.Details(err); details != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: details})
		return
	}

	if errors.Is(err, address.ErrUnauthenticated) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	metrics.StoreErrorsTotal.WithLabelValues("insert_address").Inc()
	h.logger.Error("add address error", zap.Error(err), zap.String("userID", userID))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// ReverseGeocode подбирает адрес по координатам. Ошибка геокодирования не считается
// ошибкой запроса: поля остаются пустыми, а клиенту возвращается уведомление.
func (h *Handler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err := errors.Join(errLat, errLon); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	resp := geocodeResponse{Latitude: lat, Longitude: lon}

	if h.geocoder == nil {
		metrics.GeocodeFailuresTotal.Inc()
		resp.Notice = geocodeNotice
		writeJSON(w, http.StatusOK, resp)
		return
	}

	addr, err := h.geocoder.Reverse(r.Context(), lat, lon)
	if err != nil {
		metrics.GeocodeFailuresTotal.Inc()
		h.logger.Warn("reverse geocode failed", zap.Error(err))
		resp.Notice = geocodeNotice
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Resolved = true
	resp.Street = addr.Street
	resp.City = addr.City
	resp.State = addr.State
	resp.ZipCode = addr.ZipCode

	writeJSON(w, http.StatusOK, resp)
}
