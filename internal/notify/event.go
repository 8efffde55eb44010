// Package notify fans workflow changes out to live subscribers. Publishing
// is one-way and best-effort: it never blocks or fails the operation that
// triggered it, and a subscriber that connects late never sees older
// events.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cafe-pos/internal/model"
)

// Topic names a logical event stream.
type Topic string

const (
	// TopicOrders carries full order snapshots, items included.
	TopicOrders Topic = "order-updates"
	// TopicTables carries TableStatus payloads.
	TopicTables Topic = "table-status-updates"
	// TopicPendingOrders is sent once to each new WebSocket subscriber with
	// the current list of pending orders.
	TopicPendingOrders Topic = "pending-orders"
)

// ParseTopic reports whether s names a subscribable topic.
func ParseTopic(s string) (Topic, bool) {
	switch t := Topic(s); t {
	case TopicOrders, TopicTables:
		return t, true
	}
	return "", false
}

// RoutingKey is the AMQP routing key events of t are published under.
func (t Topic) RoutingKey() string {
	switch t {
	case TopicOrders:
		return "order.updated"
	case TopicTables:
		return "table.status"
	}
	return "misc." + string(t)
}

// TableStatus is the table-status-updates payload.
type TableStatus struct {
	TableID uint64            `json:"table_id"`
	Status  model.TableStatus `json:"status"`
}

// Event is the envelope every sink receives.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Topic      Topic           `json:"topic"`
	OccurredAt time.Time       `json:"occurred_at"`
	ActorID    uint64          `json:"actor_id"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent wraps payload in an envelope stamped with a fresh id.
func NewEvent(topic Topic, actor model.Actor, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.New(),
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		ActorID:    actor.UserID,
		Payload:    body,
	}, nil
}

// Publisher is what the workflow calls after a unit of work commits.
type Publisher interface {
	Publish(ctx context.Context, actor model.Actor, topic Topic, payload any)
}

// Sink delivers one event to one transport.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(context.Context, model.Actor, Topic, any) {}
