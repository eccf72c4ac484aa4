package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/events"
)

type stubStore struct {
	lastTopic     string
	lastAggregate string
	lastPayload   []byte
}

func (s *stubStore) InsertEvent(_ context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	s.lastTopic = topic
	s.lastAggregate = aggregateID
	s.lastPayload = payload
	return events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	event, err := bus.Emit(context.Background(), events.TopicSaleFinalized, "sale-1", map[string]any{"saleId": "sale-1"})
	require.NoError(t, err)
	require.Equal(t, events.TopicSaleFinalized, store.lastTopic)
	require.Equal(t, "sale-1", store.lastAggregate)
	require.JSONEq(t, `{"saleId":"sale-1"}`, string(store.lastPayload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)
}

func TestEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}

	_, err := bus.Emit(context.Background(), "  ", "sale-1", nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), events.TopicSessionClosed, "", nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}

	_, err := bus.Emit(context.Background(), events.TopicSessionClosed, "sess-1", []byte("{broken"))
	require.Error(t, err)
}

func TestEmitNilPayloadDefaultsToEmptyObject(t *testing.T) {
	store := &stubStore{}
	bus := events.Bus{Store: store}

	_, err := bus.Emit(context.Background(), events.TopicSessionClosed, "sess-1", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(store.lastPayload))
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	store := &stubStore{}
	failing := &captureNotifier{err: errors.New("sink down")}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{failing}}

	event, err := bus.Emit(context.Background(), events.TopicSaleFinalized, "sale-1", nil)
	require.Error(t, err)
	require.NotEqual(t, uuid.Nil, event.ID)
	require.Len(t, failing.events, 1)
}
