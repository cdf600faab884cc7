package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/trip-expense/internal/core/events"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

type Recorder interface {
	EventRelayed(eventType string, err error)
}

type nopRecorder struct{}

func (nopRecorder) EventRelayed(string, error) {}

// Envelope is the wire format consumers of the exchange read.
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// Relay forwards domain events from the in-process bus to the broker. Routing keys are
// "<prefix>.<event type>".
type Relay struct {
	publisher Publisher
	prefix    string
	metrics   Recorder
	logger    *slog.Logger
}

func NewRelay(publisher Publisher, prefix string, logger *slog.Logger) *Relay {
	return &Relay{
		publisher: publisher,
		prefix:    prefix,
		metrics:   nopRecorder{},
		logger:    logger,
	}
}

func (r *Relay) WithMetrics(rec Recorder) *Relay {
	if rec != nil {
		r.metrics = rec
	}
	return r
}

// Register subscribes the relay to every expense event type.
func (r *Relay) Register(bus *events.EventBus) {
	for _, eventType := range events.AllExpenseEventTypes {
		bus.Subscribe(eventType, r.Handle)
	}
}

func (r *Relay) RoutingKey(eventType string) string {
	if r.prefix == "" {
		return eventType
	}
	return r.prefix + "." + eventType
}

func (r *Relay) Handle(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(Envelope{
		ID:         event.EventID(),
		Type:       event.EventType(),
		OccurredAt: event.OccurredAt().UTC(),
		Payload:    event.Payload(),
	})
	if err != nil {
		r.metrics.EventRelayed(event.EventType(), err)
		return fmt.Errorf("marshal event: %w", err)
	}

	key := r.RoutingKey(event.EventType())
	err = r.publisher.Publish(ctx, key, event.EventID(), body)
	r.metrics.EventRelayed(event.EventType(), err)
	if err != nil {
		r.logger.Warn("failed to relay event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"routing_key", key,
			"error", err)
		return err
	}

	r.logger.Debug("event relayed",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"routing_key", key)
	return nil
}
