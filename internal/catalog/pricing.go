package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

// Названия политик ценообразования, принимаемые конфигурацией.
const (
	PolicyFlat     = "flat"
	PolicyItemized = "itemized"
)

// DefaultFlatRate задаёт ставку за услугу, которую исторически списывали при создании заказа.
var DefaultFlatRate = decimal.NewFromInt(15)

// PricingPolicy вычисляет итоговую стоимость заказа в момент его создания.
type PricingPolicy interface {
	Name() string
	Total(services []model.ServiceID) decimal.Decimal
}

// FlatRatePolicy списывает одинаковую ставку за каждую выбранную услугу,
// независимо от цены услуги в каталоге. Итог может не совпадать с EstimatedTotal.
type FlatRatePolicy struct {
	Rate decimal.Decimal
}

// Name возвращает название политики.
func (p FlatRatePolicy) Name() string { return PolicyFlat }

// Total возвращает количество услуг, умноженное на ставку.
func (p FlatRatePolicy) Total(services []model.ServiceID) decimal.Decimal {
	return p.Rate.Mul(decimal.NewFromInt(int64(len(services))))
}

// ItemizedPolicy списывает сумму цен выбранных услуг по каталогу.
type ItemizedPolicy struct{}

// Name возвращает название политики.
func (ItemizedPolicy) Name() string { return PolicyItemized }

// Total совпадает с оценкой, показанной при выборе услуг.
func (ItemizedPolicy) Total(services []model.ServiceID) decimal.Decimal {
	return EstimatedTotal(services)
}

// NewPricingPolicy создаёт политику по названию из конфигурации.
func NewPricingPolicy(name string, flatRate decimal.Decimal) (PricingPolicy, error) {
	switch name {
	case "", PolicyFlat:
		if !flatRate.IsPositive() {
			flatRate = DefaultFlatRate
		}
		return FlatRatePolicy{Rate: flatRate}, nil
	case PolicyItemized:
		return ItemizedPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown pricing policy %q", name)
	}
}
