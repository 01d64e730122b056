// Package events publishes catalog change notifications.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Routing keys, also used as event types.
const (
	BookAdded    = "catalog.book.added"
	BookEdited   = "catalog.book.edited"
	BookDeleted  = "catalog.book.deleted"
	BookRestored = "catalog.book.restored"

	DefaultExchange = "library.events"
	eventVersion    = "1.0.0"
)

type Event struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	EventVersion  string                 `json:"event_version"`
	Timestamp     string                 `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

// NewEvent stamps a fresh id and time on payload. The correlation id is taken
// from ctx when present.
func NewEvent(ctx context.Context, eventType string, payload map[string]interface{}) Event {
	return Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: CorrelationID(ctx),
		Payload:       payload,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Healthy() bool
	Close() error
}

type correlationKey struct{}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Healthy() bool                        { return true }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Healthy() bool { return true }
func (r *Recorder) Close() error  { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the event types in publish order.
func (r *Recorder) Types() []string {
	var types []string
	for _, e := range r.Events() {
		types = append(types, e.EventType)
	}
	return types
}
