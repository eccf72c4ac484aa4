package drawer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/money"
)

// CountMode selects how the drawer total is established. The two modes are
// mutually exclusive within one reconciliation attempt.
type CountMode string

const (
	// Detailed sums per-denomination unit counts.
	Detailed CountMode = "detailed"
	// Manual takes a single operator-entered total.
	Manual CountMode = "manual"
)

// ErrDenominationOutOfRange indicates an index outside the catalog.
var ErrDenominationOutOfRange = errors.New("denomination index out of range")

// Count holds one reconciliation attempt's counting state.
type Count struct {
	mode         CountMode
	catalog      []Denomination
	units        []int
	manualAmount money.Money
}

// NewCount starts a detailed count over the standard catalog.
func NewCount() *Count {
	catalog := Catalog()
	return &Count{
		mode:    Detailed,
		catalog: catalog,
		units:   make([]int, len(catalog)),
	}
}

// Mode returns the active counting mode.
func (c *Count) Mode() CountMode {
	return c.mode
}

// Catalog returns the denominations this count is tracking.
func (c *Count) Catalog() []Denomination {
	return c.catalog
}

// Units returns the per-denomination counts, parallel to Catalog.
func (c *Count) Units() []int {
	return c.units
}

// SetUnits replaces the count for the denomination at index i, clamping
// negatives to zero, and switches the attempt to detailed mode.
func (c *Count) SetUnits(i, n int) error {
	if i < 0 || i >= len(c.units) {
		return fmt.Errorf("%w: %d", ErrDenominationOutOfRange, i)
	}
	if n < 0 {
		n = 0
	}
	c.units[i] = n
	c.mode = Detailed
	c.manualAmount = money.Zero()
	return nil
}

// SetManual switches to manual mode with the given total, discarding any
// per-denomination counts. Negative totals clamp to zero.
func (c *Count) SetManual(total money.Money) {
	c.mode = Manual
	c.manualAmount = money.Round(money.ClampNonNegative(total))
	for i := range c.units {
		c.units[i] = 0
	}
}

// Total returns the counted amount for the active mode.
func (c *Count) Total() money.Money {
	if c.mode == Manual {
		return c.manualAmount
	}
	total := money.Zero()
	for i, d := range c.catalog {
		if c.units[i] <= 0 {
			continue
		}
		total = total.Add(d.FaceValue.Mul(decimal.NewFromInt(int64(c.units[i]))))
	}
	return money.Round(total)
}

// QuickFill pre-fills the per-denomination counts so their weighted sum equals
// the rounded expected amount, iterating the catalog from the highest face
// value down and assigning floor(remaining/face) at each step. It is a
// convenience, not a constraint: the operator can edit any count afterwards.
// Minimality of the decomposition holds only because the catalog is a
// canonical currency system.
func (c *Count) QuickFill(expected money.Money) {
	c.mode = Detailed
	c.manualAmount = money.Zero()
	remaining := money.Round(money.ClampNonNegative(expected))
	for i, d := range c.catalog {
		units := remaining.Div(d.FaceValue).Floor()
		c.units[i] = int(units.IntPart())
		remaining = remaining.Sub(d.FaceValue.Mul(units))
	}
}

// Classification labels the sign of a reconciliation difference.
type Classification string

const (
	Exact    Classification = "exact"
	Surplus  Classification = "surplus"
	Shortage Classification = "shortage"
)

// Classify maps a counted-minus-expected difference onto its label, treating
// anything within epsilon as exact.
func Classify(difference money.Money) Classification {
	switch {
	case money.IsNearlyZero(difference):
		return Exact
	case difference.IsPositive():
		return Surplus
	default:
		return Shortage
	}
}

// ErrNotesRequired is returned when a closing reconciliation with a non-exact
// classification is committed without notes.
var ErrNotesRequired = errors.New("notes required for a non-exact closing reconciliation")

// Record is the outcome of comparing a count against the expected balance.
type Record struct {
	ExpectedAmount money.Money
	CountedAmount  money.Money
	Difference     money.Money
	Classification Classification
	Notes          string
	Closing        bool
	Timestamp      time.Time
}

// BuildRecord assembles a reconciliation record for the count. Closing
// records with a non-exact classification require notes; intermediate
// records never do; they are advisory.
func (c *Count) BuildRecord(expected money.Money, notes string, closing bool, now time.Time) (Record, error) {
	counted := c.Total()
	difference := money.Round(counted.Sub(money.Round(expected)))
	classification := Classify(difference)
	if closing && classification != Exact && strings.TrimSpace(notes) == "" {
		return Record{}, ErrNotesRequired
	}
	return Record{
		ExpectedAmount: money.Round(expected),
		CountedAmount:  counted,
		Difference:     difference,
		Classification: classification,
		Notes:          notes,
		Closing:        closing,
		Timestamp:      now,
	}, nil
}
