package drawer

import (
	"errors"
	"testing"
	"time"

	"github.com/noah-isme/backend-pos/internal/money"
)

func TestQuickFillExactDecomposition(t *testing.T) {
	c := NewCount()
	c.QuickFill(money.FromInt(10450))
	if got := c.Total(); !got.Equal(money.FromInt(10450)) {
		t.Fatalf("quick-fill total = %s, want 10450", got)
	}
	// 10450 = 10x1000 + 0x500 + 2x200 + 0x100 + 1x50
	units := c.Units()
	if units[0] != 10 {
		t.Fatalf("1000s = %d, want 10", units[0])
	}
	if units[1] != 0 {
		t.Fatalf("500s = %d, want 0", units[1])
	}
	if units[2] != 2 {
		t.Fatalf("200s = %d, want 2", units[2])
	}
	if units[4] != 1 {
		t.Fatalf("50s = %d, want 1", units[4])
	}
}

func TestQuickFillHandlesCents(t *testing.T) {
	c := NewCount()
	c.QuickFill(money.FromFloat(1287.85))
	if got := c.Total(); !got.Equal(money.FromFloat(1287.85)) {
		t.Fatalf("quick-fill total = %s, want 1287.85", got)
	}
}

func TestQuickFillZeroAndNegative(t *testing.T) {
	c := NewCount()
	c.QuickFill(money.Zero())
	if !c.Total().IsZero() {
		t.Fatalf("quick-fill of zero must count zero, got %s", c.Total())
	}
	c.QuickFill(money.FromInt(-50))
	if !c.Total().IsZero() {
		t.Fatalf("negative expected clamps to zero, got %s", c.Total())
	}
}

func TestSetUnitsClampsNegative(t *testing.T) {
	c := NewCount()
	if err := c.SetUnits(0, -3); err != nil {
		t.Fatalf("set: %v", err)
	}
	if c.Units()[0] != 0 {
		t.Fatalf("count = %d, want clamped 0", c.Units()[0])
	}
	if err := c.SetUnits(99, 1); !errors.Is(err, ErrDenominationOutOfRange) {
		t.Fatalf("expected ErrDenominationOutOfRange, got %v", err)
	}
}

func TestManualModeExcludesUnitCounts(t *testing.T) {
	c := NewCount()
	_ = c.SetUnits(0, 5)
	c.SetManual(money.FromFloat(1234.56))
	if c.Mode() != Manual {
		t.Fatalf("mode = %s, want manual", c.Mode())
	}
	if got := c.Total(); !got.Equal(money.FromFloat(1234.56)) {
		t.Fatalf("total = %s, want manual 1234.56", got)
	}
	// Switching back to per-denomination counting discards the manual total.
	_ = c.SetUnits(0, 1)
	if got := c.Total(); !got.Equal(money.FromInt(1000)) {
		t.Fatalf("total = %s, want 1000", got)
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(money.Zero()); got != Exact {
		t.Fatalf("zero = %s, want exact", got)
	}
	if got := Classify(money.FromFloat(0.0005)); got != Exact {
		t.Fatalf("within epsilon = %s, want exact", got)
	}
	if got := Classify(money.FromInt(250)); got != Surplus {
		t.Fatalf("positive = %s, want surplus", got)
	}
	if got := Classify(money.FromInt(-250)); got != Shortage {
		t.Fatalf("negative = %s, want shortage", got)
	}
}

func TestBuildRecordNotesRules(t *testing.T) {
	now := time.Date(2025, 11, 3, 21, 0, 0, 0, time.UTC)
	c := NewCount()
	c.SetManual(money.FromInt(10200))

	// Closing with a shortage and no notes is rejected.
	_, err := c.BuildRecord(money.FromInt(10450), "", true, now)
	if !errors.Is(err, ErrNotesRequired) {
		t.Fatalf("expected ErrNotesRequired, got %v", err)
	}

	// Whitespace is not a note.
	_, err = c.BuildRecord(money.FromInt(10450), "   \t", true, now)
	if !errors.Is(err, ErrNotesRequired) {
		t.Fatalf("expected ErrNotesRequired for blank notes, got %v", err)
	}

	// The same count as an intermediate record is advisory only.
	record, err := c.BuildRecord(money.FromInt(10450), "", false, now)
	if err != nil {
		t.Fatalf("intermediate: %v", err)
	}
	if record.Classification != Shortage {
		t.Fatalf("classification = %s, want shortage", record.Classification)
	}
	if !record.Difference.Equal(money.FromInt(-250)) {
		t.Fatalf("difference = %s, want -250", record.Difference)
	}

	// Closing with notes succeeds.
	record, err = c.BuildRecord(money.FromInt(10450), "cash drop pending", true, now)
	if err != nil {
		t.Fatalf("closing with notes: %v", err)
	}
	if !record.Closing || record.Notes != "cash drop pending" {
		t.Fatalf("unexpected record: %+v", record)
	}
}
