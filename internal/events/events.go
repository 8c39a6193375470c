package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCommitted = "booking_committed"
	EventBookingCancelled = "booking_cancelled"
)

// BookingEventPayload is the booking snapshot delivered to subscribers.
type BookingEventPayload struct {
	BookingID   string    `json:"booking_id"`
	BookingHash string    `json:"booking_hash"`
	UserEmail   string    `json:"user_email"`
	GpuModel    string    `json:"gpu_model"`
	GpuID       string    `json:"gpu_id"`
	Status      string    `json:"status"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	TotalCost   float64   `json:"total_cost"`
}

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event. Errors are the handler's problem;
// publishing never fails because one subscriber does.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for booking lifecycle events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for an event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// PublishJSON encodes the payload and delivers it to all subscribers
// synchronously, in subscription order.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &Event{Type: eventType, Payload: data, CreatedAt: time.Now()}

	b.mu.RLock()
	handlers := b.subscribers[eventType]
	b.mu.RUnlock()

	for _, h := range handlers {
		_ = h(event)
	}
	return nil
}
