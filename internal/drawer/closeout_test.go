package drawer

import (
	"errors"
	"testing"
	"time"

	"github.com/noah-isme/backend-pos/internal/money"
)

func summaryFixture() SessionSummary {
	return SessionSummary{
		OpeningFloat:    money.FromInt(2000),
		CashSales:       money.FromInt(8700),
		ManualOut:       money.FromInt(250),
		ExpectedBalance: money.FromInt(10450),
	}
}

func TestCloseoutHappyPath(t *testing.T) {
	co := NewCloseout(summaryFixture())
	if co.State() != StateSummary {
		t.Fatalf("initial state = %s", co.State())
	}
	if err := co.Advance(); err != nil {
		t.Fatalf("summary -> counting: %v", err)
	}
	co.Count().QuickFill(money.FromInt(10450))
	if err := co.Advance(); err != nil {
		t.Fatalf("counting -> confirming: %v", err)
	}
	if co.Classification() != Exact {
		t.Fatalf("classification = %s, want exact", co.Classification())
	}
	record, err := co.Close("", time.Now())
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if co.State() != StateClosed {
		t.Fatalf("state = %s, want closed", co.State())
	}
	if record.Classification != Exact || !record.Difference.IsZero() {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestCloseoutZeroCountCannotProceed(t *testing.T) {
	co := NewCloseout(summaryFixture())
	_ = co.Advance()
	if err := co.Advance(); !errors.Is(err, ErrNothingCounted) {
		t.Fatalf("expected ErrNothingCounted, got %v", err)
	}
	if co.State() != StateCounting {
		t.Fatalf("failed advance must not change state, got %s", co.State())
	}
}

func TestCloseoutBackwardSteps(t *testing.T) {
	co := NewCloseout(summaryFixture())
	_ = co.Advance()
	if err := co.Back(); err != nil || co.State() != StateSummary {
		t.Fatalf("counting -> summary failed: %v (%s)", err, co.State())
	}
	_ = co.Advance()
	co.Count().SetManual(money.FromInt(10450))
	_ = co.Advance()
	if err := co.Back(); err != nil || co.State() != StateCounting {
		t.Fatalf("confirming -> counting failed: %v (%s)", err, co.State())
	}
	if err := co.Back(); err != nil || co.State() != StateSummary {
		t.Fatalf("counting -> summary failed: %v (%s)", err, co.State())
	}
	if err := co.Back(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from summary, got %v", err)
	}
}

func TestCloseoutShortageRequiresNotes(t *testing.T) {
	co := NewCloseout(summaryFixture())
	_ = co.Advance()
	co.Count().SetManual(money.FromInt(10200))
	_ = co.Advance()
	if co.Classification() != Shortage {
		t.Fatalf("classification = %s, want shortage", co.Classification())
	}
	if _, err := co.Close("", time.Now()); !errors.Is(err, ErrNotesRequired) {
		t.Fatalf("expected ErrNotesRequired, got %v", err)
	}
	if co.State() != StateConfirming {
		t.Fatalf("failed close must stay in confirming, got %s", co.State())
	}
	record, err := co.Close("cash drop pending", time.Now())
	if err != nil {
		t.Fatalf("close with notes: %v", err)
	}
	if !record.Difference.Equal(money.FromInt(-250)) {
		t.Fatalf("difference = %s, want -250", record.Difference)
	}
}

func TestCloseoutTerminal(t *testing.T) {
	co := NewCloseout(summaryFixture())
	_ = co.Advance()
	co.Count().SetManual(money.FromInt(10450))
	_ = co.Advance()
	if _, err := co.Close("", time.Now()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := co.Advance(); !errors.Is(err, ErrClosed) {
		t.Fatalf("advance after close: %v", err)
	}
	if err := co.Back(); !errors.Is(err, ErrClosed) {
		t.Fatalf("back after close: %v", err)
	}
	if _, err := co.Close("again", time.Now()); !errors.Is(err, ErrClosed) {
		t.Fatalf("second close: %v", err)
	}
}
