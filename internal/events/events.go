package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventCheckoutCreated  = "checkout_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCompleted = "booking_completed"
	EventPaymentConflict  = "payment_conflict"
)

// BookingEventPayload is the booking snapshot handed to event consumers.
type BookingEventPayload struct {
	BookingID       int64     `json:"booking_id"`
	UserID          int64     `json:"user_id"`
	CampgroundID    int64     `json:"campground_id"`
	CampsiteID      *int64    `json:"campsite_id,omitempty"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Status          string    `json:"status"`
	SessionID       string    `json:"session_id,omitempty"`
	ChangedBy       int64     `json:"changed_by,omitempty"`
}

// ConflictEventPayload describes a paid checkout session that could not
// be honored because the dates were taken by the time it settled.
type ConflictEventPayload struct {
	SessionID    string    `json:"session_id"`
	UserID       int64     `json:"user_id"`
	CampgroundID int64     `json:"campground_id"`
	CampsiteID   *int64    `json:"campsite_id,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

// CheckoutEventPayload marks a hosted checkout session handed to a user.
type CheckoutEventPayload struct {
	SessionID    string `json:"session_id"`
	UserID       int64  `json:"user_id"`
	CampgroundID int64  `json:"campground_id"`
	TotalCents   int64  `json:"total_cents"`
}

// Event is a lightweight in-process domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event. Errors are the handler's problem;
// publishing never fails because a consumer did.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for domain events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run
// synchronously; the caller decides the concurrency model.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
