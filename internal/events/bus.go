package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is an immutable fact published on the in-process bus.
type Event struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Notifier consumes events. Notify errors are logged by the bus and never
// reach the emitter.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Bus fans events out to registered notifiers. Emit is fire-and-forget: a
// failing notifier must never fail the operation that produced the event.
type Bus struct {
	Notifiers []Notifier
	Log       zerolog.Logger
	Now       func() time.Time
}

func NewBus(log zerolog.Logger, notifiers ...Notifier) *Bus {
	return &Bus{Notifiers: notifiers, Log: log, Now: time.Now}
}

// Emit publishes the payload under the topic to every notifier in order.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.Log.Error().Err(err).Str("topic", topic).Msg("event payload not serializable, dropping")
		return
	}
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	ev := Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: now.UTC(),
		Payload:    data,
	}
	for _, n := range b.Notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			b.Log.Warn().Err(err).Str("topic", topic).Str("event_id", ev.ID).Msg("event notifier failed")
		}
	}
}
