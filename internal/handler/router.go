package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/joyful-laundry/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(custommiddleware.Logger(h.logger))
	if len(h.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.Route("/api", func(r chi.Router) {
			r.Get("/services", h.GetServices)
			r.Get("/timeslots/dates", h.GetDates)
			r.Get("/timeslots", h.GetTimeSlots)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)
				r.Get("/geocode/reverse", h.ReverseGeocode)
			})

			r.Route("/user", func(r chi.Router) {
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
				r.Get("/google/login", h.GoogleLogin)
				r.Get("/google/callback", h.GoogleCallback)

				r.Group(func(r chi.Router) {
					r.Use(h.authMiddleware.Middleware)

					r.Post("/logout", h.Logout)
					r.Get("/me", h.Me)

					r.Get("/addresses", h.GetAddresses)
					r.Post("/addresses", h.AddAddress)

					r.Get("/orders", h.GetOrders)
					r.Get("/orders/active", h.GetActiveOrder)
					r.Get("/orders/{id}/tracking", h.GetOrderTracking)

					r.Route("/wizard", func(r chi.Router) {
						r.Post("/", h.StartWizard)
						r.Get("/", h.GetWizard)
						r.Delete("/", h.CancelWizard)

						r.Post("/next", h.WizardNext)
						r.Post("/back", h.WizardBack)
						r.Post("/pickup-address", h.SelectPickupAddress)
						r.Post("/delivery-address", h.SelectDeliveryAddress)
						r.Post("/services/toggle", h.ToggleService)
						r.Post("/pickup-slot", h.SelectPickupSlot)
						r.Post("/delivery-slot", h.SelectDeliverySlot)
						r.Post("/notes", h.SetNotes)
						r.Post("/address-form", h.OpenAddressForm)
						r.Post("/address-form/cancel", h.CancelAddressForm)
						r.Post("/address-form/submit", h.SubmitAddressForm)
						r.Post("/complete", h.CompleteWizard)
					})
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
