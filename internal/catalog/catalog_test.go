package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

func TestServices_FixedOrderAndPositivePrices(t *testing.T) {
	got := Services()
	require.Len(t, got, 4)

	wantOrder := []model.ServiceID{model.ServiceWash, model.ServiceDryClean, model.ServiceIron, model.ServiceFold}
	for i, s := range got {
		assert.Equal(t, wantOrder[i], s.ID)
		assert.True(t, s.Price.IsPositive(), "price of %s must be positive", s.ID)
	}
}

func TestServices_ReturnsCopy(t *testing.T) {
	got := Services()
	got[0].Name = "changed"

	s, ok := Lookup(model.ServiceWash)
	require.True(t, ok)
	assert.Equal(t, "Wash & Dry", s.Name)
}

func TestToggle(t *testing.T) {
	tests := []struct {
		name     string
		id       model.ServiceID
		selected []model.ServiceID
		want     []model.ServiceID
	}{
		{
			name:     "add to empty",
			id:       model.ServiceWash,
			selected: nil,
			want:     []model.ServiceID{model.ServiceWash},
		},
		{
			name:     "append keeps order",
			id:       model.ServiceWash,
			selected: []model.ServiceID{model.ServiceFold},
			want:     []model.ServiceID{model.ServiceFold, model.ServiceWash},
		},
		{
			name:     "remove present",
			id:       model.ServiceIron,
			selected: []model.ServiceID{model.ServiceWash, model.ServiceIron, model.ServiceFold},
			want:     []model.ServiceID{model.ServiceWash, model.ServiceFold},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Toggle(tt.id, tt.selected))
		})
	}
}

func TestToggle_DoubleToggleIsIdentity(t *testing.T) {
	start := []model.ServiceID{model.ServiceDryClean, model.ServiceFold}

	for _, s := range Services() {
		got := Toggle(s.ID, Toggle(s.ID, start))
		assert.Equal(t, start, got, "double toggle of %s", s.ID)
	}
}

func TestToggle_DoesNotMutateInput(t *testing.T) {
	start := []model.ServiceID{model.ServiceWash, model.ServiceFold}
	_ = Toggle(model.ServiceWash, start)
	assert.Equal(t, []model.ServiceID{model.ServiceWash, model.ServiceFold}, start)
}

func TestEstimatedTotal_SumsCatalogPrices(t *testing.T) {
	total := EstimatedTotal([]model.ServiceID{model.ServiceWash, model.ServiceFold})
	assert.True(t, total.Equal(decimal.NewFromInt(23)), "got %s", total)

	assert.True(t, EstimatedTotal(nil).IsZero())
}

func TestPricingPolicies_Discrepancy(t *testing.T) {
	selected := []model.ServiceID{model.ServiceDryClean, model.ServiceFold}

	flat, err := NewPricingPolicy(PolicyFlat, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, PolicyFlat, flat.Name())
	assert.True(t, flat.Total(selected).Equal(decimal.NewFromInt(30)), "flat total %s", flat.Total(selected))

	itemized, err := NewPricingPolicy(PolicyItemized, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, itemized.Total(selected).Equal(decimal.NewFromInt(33)), "itemized total %s", itemized.Total(selected))

	assert.False(t, flat.Total(selected).Equal(EstimatedTotal(selected)))
	assert.True(t, itemized.Total(selected).Equal(EstimatedTotal(selected)))
}

func TestNewPricingPolicy_CustomRateAndUnknown(t *testing.T) {
	p, err := NewPricingPolicy("", decimal.NewFromInt(12))
	require.NoError(t, err)
	assert.True(t, p.Total([]model.ServiceID{model.ServiceWash}).Equal(decimal.NewFromInt(12)))

	_, err = NewPricingPolicy("surge", decimal.Zero)
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Dry Clean", DisplayName(model.ServiceDryClean))
	assert.Equal(t, "unknown", DisplayName(model.ServiceID("unknown")))
	assert.True(t, Valid(model.ServiceIron))
	assert.False(t, Valid(model.ServiceID("starch")))
}
