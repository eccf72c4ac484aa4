package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/drawer"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// Service owns cash sessions: the movement ledger, advisory counts and the
// close-out workflow. All session mutations run under a Redis lock keyed by
// session id so concurrent closes, counts and withdrawals serialize.
type Service struct {
	Repo    Repo
	Locker  lock.Locker
	Events  *events.Bus
	Log     zerolog.Logger
	LockTTL time.Duration

	mu        sync.Mutex
	closeouts map[string]*drawer.Closeout
}

// View is the wire shape of a session with its derived balance.
type View struct {
	Session
	Movements []Movement `json:"movements"`
	Balance   Balance    `json:"balance"`
}

// Open starts a session with the given opening float.
func (s *Service) Open(ctx context.Context, register, openedBy string, openingFloat money.Money) (View, error) {
	if register == "" {
		return View{}, fmt.Errorf("%w: register is required", ErrInvalidMovement)
	}
	if openingFloat.IsNegative() {
		return View{}, fmt.Errorf("%w: opening float must not be negative", ErrInvalidMovement)
	}
	sess, err := s.Repo.CreateSession(ctx, register, openedBy, money.Round(openingFloat))
	if err != nil {
		return View{}, err
	}
	return View{Session: sess, Movements: []Movement{}, Balance: computeBalance(sess.OpeningFloat, nil)}, nil
}

// Get returns the session with its ledger and expected balance.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	sess, err := s.Repo.GetSession(ctx, id)
	if err != nil {
		return View{}, err
	}
	movements, err := s.Repo.ListMovements(ctx, id)
	if err != nil {
		return View{}, err
	}
	if movements == nil {
		movements = []Movement{}
	}
	return View{Session: sess, Movements: movements, Balance: computeBalance(sess.OpeningFloat, movements)}, nil
}

// AddMovement appends a ledger entry to an open session.
func (s *Service) AddMovement(ctx context.Context, id string, kind MovementKind, amount money.Money, reason string) (View, error) {
	if !kind.Valid() {
		return View{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidMovement, kind)
	}
	if !amount.IsPositive() {
		return View{}, fmt.Errorf("%w: amount must be positive", ErrInvalidMovement)
	}
	var view View
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		sess, err := s.Repo.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if sess.Status != StatusOpen {
			return ErrSessionClosed
		}
		if _, err := s.Repo.AddMovement(ctx, id, kind, money.Round(amount), reason); err != nil {
			return err
		}
		view, err = s.Get(ctx, id)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

// CountInput describes one counting attempt: either per-denomination units,
// a manual total, or a quick-fill from the expected balance. Units and
// manual total are mutually exclusive.
type CountInput struct {
	Units       []UnitInput  `json:"units,omitempty"`
	ManualTotal *money.Money `json:"manualTotal,omitempty"`
	QuickFill   bool         `json:"quickFill,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

// UnitInput sets the unit count for one catalog index.
type UnitInput struct {
	Index int `json:"index"`
	Units int `json:"units"`
}

func applyCountInput(count *drawer.Count, in CountInput, expected money.Money) error {
	if in.QuickFill {
		count.QuickFill(expected)
	}
	if in.ManualTotal != nil {
		count.SetManual(*in.ManualTotal)
	}
	for _, u := range in.Units {
		if err := count.SetUnits(u.Index, u.Units); err != nil {
			return err
		}
	}
	return nil
}

// Count performs an advisory intermediate reconciliation: the count is
// compared against the current expected balance and persisted, but the
// session stays open and no notes are ever required.
func (s *Service) Count(ctx context.Context, id string, in CountInput) (Reconciliation, error) {
	var rec Reconciliation
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		view, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if view.Status != StatusOpen {
			return ErrSessionClosed
		}
		count := drawer.NewCount()
		if err := applyCountInput(count, in, view.Balance.ExpectedBalance); err != nil {
			return err
		}
		record, err := count.BuildRecord(view.Balance.ExpectedBalance, in.Notes, false, time.Now().UTC())
		if err != nil {
			return err
		}
		rec, err = s.Repo.InsertReconciliation(ctx, reconciliationFrom(id, record))
		return err
	})
	if err != nil {
		return Reconciliation{}, err
	}
	return rec, nil
}

func reconciliationFrom(sessionID string, record drawer.Record) Reconciliation {
	return Reconciliation{
		SessionID:      sessionID,
		Expected:       record.ExpectedAmount,
		Counted:        record.CountedAmount,
		Difference:     record.Difference,
		Classification: string(record.Classification),
		Notes:          record.Notes,
		Closing:        record.Closing,
		CreatedAt:      record.Timestamp,
	}
}

func (s *Service) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return s.Locker.WithLock(ctx, "session:"+id, ttl, fn)
}

func (s *Service) closeout(id string) (*drawer.Closeout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	co, ok := s.closeouts[id]
	return co, ok
}

func (s *Service) setCloseout(id string, co *drawer.Closeout) {
	s.mu.Lock()
	if s.closeouts == nil {
		s.closeouts = make(map[string]*drawer.Closeout)
	}
	s.closeouts[id] = co
	s.mu.Unlock()
}

func (s *Service) dropCloseout(id string) {
	s.mu.Lock()
	delete(s.closeouts, id)
	s.mu.Unlock()
}

// emitClosed publishes the session.closed event and updates the close
// metrics. Both are best-effort after the ledger committed.
func (s *Service) emitClosed(ctx context.Context, sess Session, rec Reconciliation) {
	if obs.SessionsClosedTotal != nil {
		obs.SessionsClosedTotal.WithLabelValues(rec.Classification).Inc()
	}
	if obs.DrawerVariance != nil {
		variance, _ := rec.Difference.Float64()
		obs.DrawerVariance.WithLabelValues(sess.Register).Set(variance)
	}
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, events.TopicSessionClosed, sess.ID, rec); err != nil {
		s.Log.Warn().Err(err).Str("session_id", sess.ID).Msg("emit session.closed")
	}
}
