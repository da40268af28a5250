package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vilo/internal/stay"
)

// Event types.
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	CatalogSynced    = "catalog.synced"
)

// Event represents a lightweight domain event.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	TenantID  string          `json:"tenant_id"`
	Key       string          `json:"key,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// BookingPayload is the body of booking events.
type BookingPayload struct {
	Reference string         `json:"reference"`
	RoomID    int64          `json:"room_id"`
	RoomName  string         `json:"room_name"`
	Stay      stay.StayRange `json:"stay"`
	Nights    int            `json:"nights"`
	Guests    int            `json:"guests"`
	Status    string         `json:"status"`
	Total     float64        `json:"total"`
	Currency  string         `json:"currency"`
}

// NewEvent builds an event with a fresh ID and a JSON payload.
func NewEvent(eventType, tenantID, key string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TenantID:  tenantID,
		Key:       key,
		Payload:   data,
		CreatedAt: time.Now(),
	}, nil
}

// DecodeBooking unmarshals the payload of a booking event.
func (e Event) DecodeBooking() (BookingPayload, error) {
	var p BookingPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// EventHandler reacts to an event.
type EventHandler func(ctx context.Context, event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged to logger when set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for several event types.
func (b *EventBus) SubscribeAll(handler EventHandler, eventTypes ...string) {
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type and returns the number of failed handlers.
func (b *EventBus) Publish(ctx context.Context, event Event) int {
	if b == nil {
		return 0
	}

	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	failed := 0
	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(ctx, event); err != nil {
			failed++
			if b.logger != nil {
				b.logger.Error().Err(err).Str("event_type", event.Type).Str("event_id", event.ID).Msg("Event handler failed")
			}
		}
	}
	return failed
}
