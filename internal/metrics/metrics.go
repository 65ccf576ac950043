// Package metrics объявляет метрики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joyful_orders_created_total",
		Help: "Total number of orders successfully created.",
	})

	AddressesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joyful_addresses_created_total",
		Help: "Total number of saved addresses created.",
	})

	WizardTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joyful_wizard_transitions_total",
		Help: "Order wizard transitions by action and outcome.",
	},
		[]string{"action", "outcome"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joyful_store_errors_total",
		Help: "Store errors by operation.",
	},
		[]string{"operation"},
	)

	StaleLoadsDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joyful_stale_loads_discarded_total",
		Help: "Dashboard loads discarded because a newer load was started.",
	})

	GeocodeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joyful_geocode_failures_total",
		Help: "Reverse geocoding requests that did not resolve an address.",
	})
)
