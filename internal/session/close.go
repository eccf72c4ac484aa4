package session

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/backend-pos/internal/drawer"
	"github.com/noah-isme/backend-pos/internal/money"
)

// CloseAction is one step of the close-out workflow.
type CloseAction string

const (
	// ActionBegin starts (or restarts) a close-out at the summary step.
	ActionBegin CloseAction = "begin"
	// ActionCount enters the counting step and applies count input.
	ActionCount CloseAction = "count"
	// ActionConfirm advances to the confirmation step.
	ActionConfirm CloseAction = "confirm"
	// ActionBack steps backward one state.
	ActionBack CloseAction = "back"
	// ActionCommit commits the closing reconciliation and closes the session.
	ActionCommit CloseAction = "commit"
)

// CloseInput drives one close-out step.
type CloseInput struct {
	Action      CloseAction  `json:"action" validate:"required,oneof=begin count confirm back commit"`
	Units       []UnitInput  `json:"units,omitempty"`
	ManualTotal *money.Money `json:"manualTotal,omitempty"`
	QuickFill   bool         `json:"quickFill,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

// DenominationRow pairs one catalog entry with its current unit count.
type DenominationRow struct {
	FaceValue money.Money             `json:"faceValue"`
	Kind      drawer.DenominationKind `json:"kind"`
	Units     int                     `json:"units"`
}

// CloseView is the wire shape of the close-out workflow after a step.
type CloseView struct {
	SessionID      string                `json:"sessionId"`
	State          drawer.State          `json:"state"`
	Balance        Balance               `json:"balance"`
	Mode           drawer.CountMode      `json:"mode"`
	Denominations  []DenominationRow     `json:"denominations"`
	CountedTotal   money.Money           `json:"countedTotal"`
	Difference     money.Money           `json:"difference"`
	Classification drawer.Classification `json:"classification"`
	Record         *Reconciliation       `json:"record,omitempty"`
}

// Close executes one step of the close-out workflow under the session lock.
// The workflow lives in memory per session; begin always starts a fresh one
// from the current ledger. Commit persists the closing reconciliation and
// marks the session closed in the same step; nothing is closed until the
// ledger accepted both writes.
func (s *Service) Close(ctx context.Context, id string, in CloseInput) (CloseView, error) {
	var out CloseView
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		view, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if view.Status != StatusOpen {
			return ErrSessionClosed
		}

		if in.Action == ActionBegin {
			co := drawer.NewCloseout(view.Balance.drawerSummary())
			s.setCloseout(id, co)
			out = s.closeView(id, view.Balance, co, nil)
			return nil
		}

		co, ok := s.closeout(id)
		if !ok {
			return ErrCloseoutNotStarted
		}

		switch in.Action {
		case ActionCount:
			if co.State() == drawer.StateSummary {
				if err := co.Advance(); err != nil {
					return err
				}
			}
			if co.State() != drawer.StateCounting {
				return fmt.Errorf("%w: counting not allowed in %s", drawer.ErrInvalidTransition, co.State())
			}
			countIn := CountInput{Units: in.Units, ManualTotal: in.ManualTotal, QuickFill: in.QuickFill, Notes: in.Notes}
			if err := applyCountInput(co.Count(), countIn, view.Balance.ExpectedBalance); err != nil {
				return err
			}
			out = s.closeView(id, view.Balance, co, nil)
			return nil
		case ActionConfirm:
			if err := co.Advance(); err != nil {
				return err
			}
			out = s.closeView(id, view.Balance, co, nil)
			return nil
		case ActionBack:
			if err := co.Back(); err != nil {
				return err
			}
			out = s.closeView(id, view.Balance, co, nil)
			return nil
		case ActionCommit:
			if co.State() != drawer.StateConfirming {
				return fmt.Errorf("%w: commit requires confirming state, have %s", drawer.ErrInvalidTransition, co.State())
			}
			now := time.Now().UTC()
			record, err := co.Count().BuildRecord(view.Balance.ExpectedBalance, in.Notes, true, now)
			if err != nil {
				return err
			}
			rec, err := s.Repo.InsertReconciliation(ctx, reconciliationFrom(id, record))
			if err != nil {
				return err
			}
			if err := s.Repo.CloseSession(ctx, id, now); err != nil {
				return err
			}
			// The ledger committed; the in-memory workflow follows.
			if _, err := co.Close(in.Notes, now); err != nil {
				s.Log.Warn().Err(err).Str("session_id", id).Msg("close-out state after commit")
			}
			s.dropCloseout(id)
			s.emitClosed(ctx, view.Session, rec)
			out = s.closeView(id, view.Balance, co, &rec)
			return nil
		default:
			return fmt.Errorf("%w: unknown action %q", drawer.ErrInvalidTransition, in.Action)
		}
	})
	if err != nil {
		return CloseView{}, err
	}
	return out, nil
}

func (s *Service) closeView(id string, balance Balance, co *drawer.Closeout, rec *Reconciliation) CloseView {
	count := co.Count()
	rows := make([]DenominationRow, 0, len(count.Catalog()))
	for i, d := range count.Catalog() {
		rows = append(rows, DenominationRow{FaceValue: d.FaceValue, Kind: d.Kind, Units: count.Units()[i]})
	}
	return CloseView{
		SessionID:      id,
		State:          co.State(),
		Balance:        balance,
		Mode:           count.Mode(),
		Denominations:  rows,
		CountedTotal:   count.Total(),
		Difference:     co.Difference(),
		Classification: co.Classification(),
		Record:         rec,
	}
}
