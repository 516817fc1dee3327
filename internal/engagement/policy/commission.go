package policy

import (
	"fmt"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

var hundred = decimal.NewFromInt(100)

// CommissionTier selects Percent when the deadline outcome matches and the
// rating falls in [MinRating, MaxRating].
type CommissionTier struct {
	Name        string
	DeadlineMet bool
	MinRating   int
	MaxRating   int
	Percent     decimal.Decimal
}

func (t CommissionTier) matches(rating int, deadlineMet bool) bool {
	return t.DeadlineMet == deadlineMet && rating >= t.MinRating && rating <= t.MaxRating
}

// CommissionTable is an ordered list of tiers; the first match wins and no
// match means 0%.
type CommissionTable []CommissionTier

// DefaultCommissionTable is the tier table used unless configuration
// supplies another one.
func DefaultCommissionTable() CommissionTable {
	return CommissionTable{
		{Name: "on_time_top_rated", DeadlineMet: true, MinRating: 4, MaxRating: 5, Percent: decimal.NewFromInt(12)},
		{Name: "on_time", DeadlineMet: true, MinRating: 1, MaxRating: 3, Percent: decimal.NewFromInt(8)},
		{Name: "late_top_rated", DeadlineMet: false, MinRating: 4, MaxRating: 5, Percent: decimal.NewFromInt(8)},
	}
}

// Lookup returns the first matching tier.
func (t CommissionTable) Lookup(rating int, deadlineMet bool) (CommissionTier, bool) {
	for _, tier := range t {
		if tier.matches(rating, deadlineMet) {
			return tier, true
		}
	}
	return CommissionTier{}, false
}

// Validate checks tier bounds and percentages.
func (t CommissionTable) Validate() error {
	for _, tier := range t {
		if tier.MinRating < MinRating || tier.MaxRating > MaxRating || tier.MinRating > tier.MaxRating {
			return fmt.Errorf("%w: tier %q has invalid rating range %d-%d", e.ErrValidation, tier.Name, tier.MinRating, tier.MaxRating)
		}
		if tier.Percent.IsNegative() || tier.Percent.GreaterThan(hundred) {
			return fmt.Errorf("%w: tier %q has invalid percent %s", e.ErrValidation, tier.Name, tier.Percent)
		}
	}
	return nil
}

// Commission is the outcome of a commission calculation.
type Commission struct {
	Tier    string
	Percent decimal.Decimal
	Amount  decimal.Decimal
}

// Calculator applies a CommissionTable to engagement values.
type Calculator struct {
	table CommissionTable
}

// NewCalculator constructs a Calculator over the given table.
func NewCalculator(table CommissionTable) (*Calculator, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{table: table}, nil
}

// Table returns the tiers the calculator applies.
func (c *Calculator) Table() CommissionTable {
	return c.table
}

// Calculate returns the commission percent and the amount rounded half-up to
// two decimal places.
func (c *Calculator) Calculate(value decimal.Decimal, rating int, deadlineMet bool) (Commission, error) {
	if err := ValidateRating(rating); err != nil {
		return Commission{}, err
	}
	if value.IsNegative() {
		return Commission{}, fmt.Errorf("%w: value must not be negative", e.ErrValidation)
	}

	tier, ok := c.table.Lookup(rating, deadlineMet)
	if !ok {
		return Commission{Percent: decimal.Zero, Amount: decimal.Zero.Round(2)}, nil
	}
	amount := value.Mul(tier.Percent).Div(hundred).Round(2)
	return Commission{Tier: tier.Name, Percent: tier.Percent, Amount: amount}, nil
}

// CalculateCommission applies the default table.
func CalculateCommission(value decimal.Decimal, rating int, deadlineMet bool) (Commission, error) {
	return (&Calculator{table: DefaultCommissionTable()}).Calculate(value, rating, deadlineMet)
}

// ValidateRating rejects ratings outside 1..5.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d, got %d", e.ErrValidation, MinRating, MaxRating, rating)
	}
	return nil
}
