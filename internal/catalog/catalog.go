// Package catalog содержит фиксированный каталог услуг и правила расчёта стоимости.
package catalog

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

var services = []model.Service{
	{
		ID:          model.ServiceWash,
		Name:        "Wash & Dry",
		Description: "Complete washing and drying service",
		Price:       decimal.NewFromInt(15),
	},
	{
		ID:          model.ServiceDryClean,
		Name:        "Dry Clean",
		Description: "Professional dry cleaning",
		Price:       decimal.NewFromInt(25),
	},
	{
		ID:          model.ServiceIron,
		Name:        "Iron & Press",
		Description: "Crisp ironing and pressing",
		Price:       decimal.NewFromInt(10),
	},
	{
		ID:          model.ServiceFold,
		Name:        "Fold & Pack",
		Description: "Neat folding and packaging",
		Price:       decimal.NewFromInt(8),
	},
}

// Services возвращает копию каталога услуг в порядке отображения.
func Services() []model.Service {
	return slices.Clone(services)
}

// Lookup возвращает услугу по идентификатору.
func Lookup(id model.ServiceID) (model.Service, bool) {
	for _, s := range services {
		if s.ID == id {
			return s, true
		}
	}
	return model.Service{}, false
}

// Valid проверяет, что идентификатор принадлежит каталогу.
func Valid(id model.ServiceID) bool {
	_, ok := Lookup(id)
	return ok
}

// Toggle добавляет услугу в конец выбора, если её там нет, и удаляет, если есть.
// Исходный срез не изменяется.
func Toggle(id model.ServiceID, selected []model.ServiceID) []model.ServiceID {
	if slices.Contains(selected, id) {
		out := make([]model.ServiceID, 0, len(selected))
		for _, s := range selected {
			if s != id {
				out = append(out, s)
			}
		}
		return out
	}

	out := make([]model.ServiceID, 0, len(selected)+1)
	out = append(out, selected...)
	return append(out, id)
}

// EstimatedTotal возвращает сумму цен выбранных услуг, как её видит пользователь при выборе.
func EstimatedTotal(selected []model.ServiceID) decimal.Decimal {
	total := decimal.Zero
	for _, s := range services {
		if slices.Contains(selected, s.ID) {
			total = total.Add(s.Price)
		}
	}
	return total
}

// DisplayName возвращает название услуги для сводки заказа.
func DisplayName(id model.ServiceID) string {
	if s, ok := Lookup(id); ok {
		return s.Name
	}
	return string(id)
}
