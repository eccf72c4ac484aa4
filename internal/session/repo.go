package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/money"
)

// Repo is the persistence surface the session service needs.
type Repo interface {
	CreateSession(ctx context.Context, register, openedBy string, openingFloat money.Money) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	ListMovements(ctx context.Context, sessionID string) ([]Movement, error)
	AddMovement(ctx context.Context, sessionID string, kind MovementKind, amount money.Money, reason string) (Movement, error)
	InsertReconciliation(ctx context.Context, rec Reconciliation) (Reconciliation, error)
	CloseSession(ctx context.Context, id string, closedAt time.Time) error
}

// PGRepo implements Repo on Postgres. Monetary columns are numeric; values
// cross the wire as text and parse through decimal to avoid float drift.
type PGRepo struct {
	Pool *pgxpool.Pool
}

const uniqueViolation = "23505"

const createSessionSQL = `
INSERT INTO cash_sessions (register, opened_by, opening_float)
VALUES ($1, $2, $3)
RETURNING id, register, opened_by, opening_float::text, status, opened_at, closed_at`

// CreateSession opens a session for the register. A partial unique index on
// open sessions enforces one open session per register.
func (r PGRepo) CreateSession(ctx context.Context, register, openedBy string, openingFloat money.Money) (Session, error) {
	row := r.Pool.QueryRow(ctx, createSessionSQL, register, openedBy, openingFloat.String())
	s, err := scanSession(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Session{}, fmt.Errorf("%w: %s", ErrAlreadyOpen, register)
		}
		return Session{}, err
	}
	return s, nil
}

const getSessionSQL = `
SELECT id, register, opened_by, opening_float::text, status, opened_at, closed_at
FROM cash_sessions
WHERE id = $1`

// GetSession fetches one session by id.
func (r PGRepo) GetSession(ctx context.Context, id string) (Session, error) {
	s, err := scanSession(r.Pool.QueryRow(ctx, getSessionSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

const listMovementsSQL = `
SELECT id, session_id, kind, amount::text, reason, created_at
FROM cash_movements
WHERE session_id = $1
ORDER BY created_at, id`

// ListMovements returns the session's ledger in chronological order.
func (r PGRepo) ListMovements(ctx context.Context, sessionID string) ([]Movement, error) {
	rows, err := r.Pool.Query(ctx, listMovementsSQL, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var (
			m      Movement
			amount string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Kind, &amount, &m.Reason, &m.CreatedAt); err != nil {
			return nil, err
		}
		if m.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("movement %s: parse amount %q: %w", m.ID, amount, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const addMovementSQL = `
INSERT INTO cash_movements (session_id, kind, amount, reason)
VALUES ($1, $2, $3, $4)
RETURNING id, session_id, kind, amount::text, reason, created_at`

// AddMovement appends one ledger entry.
func (r PGRepo) AddMovement(ctx context.Context, sessionID string, kind MovementKind, amount money.Money, reason string) (Movement, error) {
	var (
		m   Movement
		amt string
	)
	err := r.Pool.QueryRow(ctx, addMovementSQL, sessionID, string(kind), amount.String(), reason).
		Scan(&m.ID, &m.SessionID, &m.Kind, &amt, &m.Reason, &m.CreatedAt)
	if err != nil {
		return Movement{}, err
	}
	if m.Amount, err = decimal.NewFromString(amt); err != nil {
		return Movement{}, fmt.Errorf("parse amount %q: %w", amt, err)
	}
	return m, nil
}

const insertReconciliationSQL = `
INSERT INTO reconciliations (session_id, expected, counted, difference, classification, notes, closing)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`

// InsertReconciliation persists a count record, intermediate or closing.
func (r PGRepo) InsertReconciliation(ctx context.Context, rec Reconciliation) (Reconciliation, error) {
	err := r.Pool.QueryRow(ctx, insertReconciliationSQL,
		rec.SessionID,
		rec.Expected.String(),
		rec.Counted.String(),
		rec.Difference.String(),
		rec.Classification,
		rec.Notes,
		rec.Closing,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return Reconciliation{}, err
	}
	return rec, nil
}

const closeSessionSQL = `
UPDATE cash_sessions
SET status = 'closed', closed_at = $2
WHERE id = $1 AND status = 'open'`

// CloseSession marks the session closed. Closing an already closed session
// is rejected.
func (r PGRepo) CloseSession(ctx context.Context, id string, closedAt time.Time) error {
	tag, err := r.Pool.Exec(ctx, closeSessionSQL, id, closedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionClosed
	}
	return nil
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		s            Session
		openingFloat string
	)
	if err := row.Scan(&s.ID, &s.Register, &s.OpenedBy, &openingFloat, &s.Status, &s.OpenedAt, &s.ClosedAt); err != nil {
		return Session{}, err
	}
	var err error
	if s.OpeningFloat, err = decimal.NewFromString(openingFloat); err != nil {
		return Session{}, fmt.Errorf("session %s: parse opening float %q: %w", s.ID, openingFloat, err)
	}
	return s, nil
}
