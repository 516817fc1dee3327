package policy

import (
	"testing"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDeadlineMet(t *testing.T) {
	limit := DefaultDeadlinePolicy().LimitFor(models.TypeConsultoria, models.SizeBasic)
	require.Equal(t, 15, limit)

	tests := []struct {
		name string
		days int
		want bool
	}{
		{name: "at the limit", days: 15, want: true},
		{name: "one over the limit", days: 16, want: false},
		{name: "zero days is not computable", days: 0, want: false},
		{name: "well within", days: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDeadlineMet(models.TypeConsultoria, tt.days, limit))
		})
	}
}

func TestDeadlinePolicy_LimitFor(t *testing.T) {
	p := DefaultDeadlinePolicy()

	assert.Equal(t, 15, p.LimitFor(models.TypeUpsell, models.SizeBasic))
	assert.Equal(t, 25, p.LimitFor(models.TypeConsultoria, models.SizeStarter))
	assert.Equal(t, 40, p.LimitFor(models.TypeConsultoria, models.SizePro))
	assert.Equal(t, 60, p.LimitFor(models.TypeConsultoria, models.SizeEnterprise))
	assert.Equal(t, 0, p.LimitFor(models.TypeConsultoria, models.SizeCustom))
	assert.Equal(t, 0, p.LimitFor(models.TypeConsultoria, models.Size("unknown")))

	p.TypeOverrides[models.TypeUpsell] = map[models.Size]int{models.SizeBasic: 10}
	assert.Equal(t, 10, p.LimitFor(models.TypeUpsell, models.SizeBasic))
	assert.Equal(t, 15, p.LimitFor(models.TypeConsultoria, models.SizeBasic))
	assert.Equal(t, 40, p.LimitFor(models.TypeUpsell, models.SizePro), "sizes without override use the base table")
}

func TestDeadlinePolicy_DeadlineMet(t *testing.T) {
	p := DefaultDeadlinePolicy()

	pro := &models.Engagement{Type: models.TypeConsultoria, Size: models.SizePro, PlannedDurationDays: 45, PausedDaysTotal: 5}
	assert.True(t, p.DeadlineMet(pro))

	pro.PausedDaysTotal = 4
	assert.False(t, p.DeadlineMet(pro))

	custom := &models.Engagement{Type: models.TypeConsultoria, Size: models.SizeCustom, PlannedDurationDays: 1}
	assert.False(t, p.DeadlineMet(custom), "custom size never meets the deadline")
}

func TestCalculateCommission(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		rating      int
		deadlineMet bool
		wantPercent int64
		wantAmount  string
		wantTier    string
	}{
		{name: "on time top rated", value: "10000", rating: 5, deadlineMet: true, wantPercent: 12, wantAmount: "1200.00", wantTier: "on_time_top_rated"},
		{name: "on time rating four", value: "10000", rating: 4, deadlineMet: true, wantPercent: 12, wantAmount: "1200.00", wantTier: "on_time_top_rated"},
		{name: "on time low rating", value: "10000", rating: 3, deadlineMet: true, wantPercent: 8, wantAmount: "800.00", wantTier: "on_time"},
		{name: "late top rated", value: "10000", rating: 4, deadlineMet: false, wantPercent: 8, wantAmount: "800.00", wantTier: "late_top_rated"},
		{name: "late low rating", value: "10000", rating: 2, deadlineMet: false, wantPercent: 0, wantAmount: "0.00"},
		{name: "zero value", value: "0", rating: 5, deadlineMet: true, wantPercent: 12, wantAmount: "0.00", wantTier: "on_time_top_rated"},
		{name: "rounds half up", value: "0.0625", rating: 1, deadlineMet: true, wantPercent: 8, wantAmount: "0.01", wantTier: "on_time"},
		{name: "rounds to cents", value: "1234.56", rating: 5, deadlineMet: true, wantPercent: 12, wantAmount: "148.15", wantTier: "on_time_top_rated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateCommission(decimal.RequireFromString(tt.value), tt.rating, tt.deadlineMet)
			require.NoError(t, err)
			assert.True(t, got.Percent.Equal(decimal.NewFromInt(tt.wantPercent)), "percent %s", got.Percent)
			assert.Equal(t, tt.wantAmount, got.Amount.StringFixed(2))
			assert.Equal(t, tt.wantTier, got.Tier)
		})
	}
}

func TestCalculateCommission_Validation(t *testing.T) {
	_, err := CalculateCommission(decimal.NewFromInt(100), 0, true)
	assert.ErrorIs(t, err, e.ErrValidation)

	_, err = CalculateCommission(decimal.NewFromInt(100), 6, true)
	assert.ErrorIs(t, err, e.ErrValidation)

	_, err = CalculateCommission(decimal.NewFromInt(-1), 5, true)
	assert.ErrorIs(t, err, e.ErrValidation)
}

func TestCalculator_CustomTable(t *testing.T) {
	calc, err := NewCalculator(CommissionTable{
		{Name: "flat", DeadlineMet: false, MinRating: 1, MaxRating: 5, Percent: decimal.RequireFromString("2.5")},
	})
	require.NoError(t, err)

	got, err := calc.Calculate(decimal.NewFromInt(1000), 1, false)
	require.NoError(t, err)
	assert.Equal(t, "25.00", got.Amount.StringFixed(2))

	got, err = calc.Calculate(decimal.NewFromInt(1000), 5, true)
	require.NoError(t, err)
	assert.True(t, got.Percent.IsZero())
	assert.Len(t, calc.Table(), 1)
}

func TestNewCalculator_RejectsInvalidTiers(t *testing.T) {
	tests := []struct {
		name string
		tier CommissionTier
	}{
		{name: "rating below range", tier: CommissionTier{Name: "x", MinRating: 0, MaxRating: 3, Percent: decimal.NewFromInt(5)}},
		{name: "rating above range", tier: CommissionTier{Name: "x", MinRating: 1, MaxRating: 6, Percent: decimal.NewFromInt(5)}},
		{name: "inverted range", tier: CommissionTier{Name: "x", MinRating: 4, MaxRating: 2, Percent: decimal.NewFromInt(5)}},
		{name: "negative percent", tier: CommissionTier{Name: "x", MinRating: 1, MaxRating: 5, Percent: decimal.NewFromInt(-1)}},
		{name: "percent over 100", tier: CommissionTier{Name: "x", MinRating: 1, MaxRating: 5, Percent: decimal.NewFromInt(101)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCalculator(CommissionTable{tt.tier})
			assert.ErrorIs(t, err, e.ErrValidation)
		})
	}
}
