package drawer

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/backend-pos/internal/money"
)

// State is one step of the closing reconciliation workflow.
type State string

const (
	// StateSummary is the read-only review of the session's expected balance.
	StateSummary State = "summary"
	// StateCounting is where the operator performs the detailed or manual count.
	StateCounting State = "counting"
	// StateConfirming shows difference and classification before committing.
	StateConfirming State = "confirming"
	// StateClosed is terminal.
	StateClosed State = "closed"
)

var (
	// ErrClosed is returned for any operation on an already closed workflow.
	ErrClosed = errors.New("reconciliation already closed")
	// ErrNothingCounted blocks Counting -> Confirming while the counted total
	// is zero, guarding against accidental submission.
	ErrNothingCounted = errors.New("counted total must be greater than zero")
	// ErrInvalidTransition is returned for a step the current state does not allow.
	ErrInvalidTransition = errors.New("invalid close-out transition")
)

// SessionSummary carries the figures reviewed in the Summary step. The
// expected balance is supplied by the session ledger.
type SessionSummary struct {
	OpeningFloat    money.Money
	CashSales       money.Money
	ManualIn        money.Money
	ManualOut       money.Money
	ExpectedBalance money.Money
}

// Closeout drives the linear Summary -> Counting -> Confirming -> Closed
// workflow for one session close. Explicit backward steps Counting -> Summary
// and Confirming -> Counting are allowed; nothing re-enters a closed workflow.
type Closeout struct {
	state   State
	summary SessionSummary
	count   *Count
	record  *Record
}

// NewCloseout starts a close-out in the Summary state.
func NewCloseout(summary SessionSummary) *Closeout {
	return &Closeout{
		state:   StateSummary,
		summary: summary,
		count:   NewCount(),
	}
}

// State returns the current workflow state.
func (co *Closeout) State() State {
	return co.state
}

// Summary returns the session figures under review.
func (co *Closeout) Summary() SessionSummary {
	return co.summary
}

// Count exposes the counting state for mutation while in Counting.
func (co *Closeout) Count() *Count {
	return co.count
}

// Record returns the committed record, or nil before Close.
func (co *Closeout) Record() *Record {
	return co.record
}

// Difference returns countedTotal minus the expected balance.
func (co *Closeout) Difference() money.Money {
	return money.Round(co.count.Total().Sub(co.summary.ExpectedBalance))
}

// Classification labels the current difference.
func (co *Closeout) Classification() Classification {
	return Classify(co.Difference())
}

// Advance moves one step forward. Summary -> Counting is unconditional;
// Counting -> Confirming requires a counted total above zero.
func (co *Closeout) Advance() error {
	switch co.state {
	case StateSummary:
		co.state = StateCounting
		return nil
	case StateCounting:
		if !co.count.Total().IsPositive() {
			return ErrNothingCounted
		}
		co.state = StateConfirming
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return fmt.Errorf("%w: cannot advance from %s", ErrInvalidTransition, co.state)
	}
}

// Back moves one step backward: Counting -> Summary or Confirming -> Counting.
func (co *Closeout) Back() error {
	switch co.state {
	case StateCounting:
		co.state = StateSummary
		return nil
	case StateConfirming:
		co.state = StateCounting
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return fmt.Errorf("%w: cannot go back from %s", ErrInvalidTransition, co.state)
	}
}

// Close commits the reconciliation from the Confirming state. A non-exact
// classification requires notes. On success the workflow is Closed and the
// record is available through Record.
func (co *Closeout) Close(notes string, now time.Time) (Record, error) {
	switch co.state {
	case StateClosed:
		return Record{}, ErrClosed
	case StateConfirming:
	default:
		return Record{}, fmt.Errorf("%w: close requires confirming state, have %s", ErrInvalidTransition, co.state)
	}
	record, err := co.count.BuildRecord(co.summary.ExpectedBalance, notes, true, now)
	if err != nil {
		return Record{}, err
	}
	co.record = &record
	co.state = StateClosed
	return record, nil
}
