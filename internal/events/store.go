package events

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists events into the domain_events table.
type PGStore struct {
	Pool *pgxpool.Pool
}

const insertEventSQL = `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, occurred_at`

// InsertEvent stores one event and returns it with its assigned id and
// timestamp.
func (s PGStore) InsertEvent(ctx context.Context, topic, aggregateID string, payload []byte) (Event, error) {
	var ev Event
	err := s.Pool.QueryRow(ctx, insertEventSQL, topic, aggregateID, payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
