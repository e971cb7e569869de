package model

import "time"

const (
	EventConnected = "connected"
	EventHeartbeat = "heartbeat"

	EventPaymentSuccess       = "payment_success"
	EventPaymentFailed        = "payment_failed"
	EventSubscriptionUpdated  = "subscription_updated"
	EventSubscriptionCanceled = "subscription_canceled"

	EventBookingRequest = "booking_request"
	bookingEventPrefix  = "booking_"
)

// NotificationEvent is the unit fanned out to admin subscribers. Seq is
// assigned by the hub on publish and travels out of band (SSE id line).
// Once published, Data is shared by every receiver and must not be mutated.
type NotificationEvent struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Seq       uint64         `json:"-"`
}

// IsReserved reports whether the type is a transport-level event that is
// never stored for replay.
func (e NotificationEvent) IsReserved() bool {
	return e.Type == EventConnected || e.Type == EventHeartbeat
}

func NewEvent(eventType string, data map[string]any, at time.Time) NotificationEvent {
	if data == nil {
		data = map[string]any{}
	}
	return NotificationEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: at.UTC(),
	}
}

func BookingEventType(action BookingAction) string {
	return bookingEventPrefix + string(action)
}

// NewBookingEvent builds booking_<action>. actor and status are carried in
// addition to the ids so admins can see who moved the booking where.
func NewBookingEvent(eventType string, b *Booking, actorID string, at time.Time) NotificationEvent {
	return NewEvent(eventType, map[string]any{
		"bookingId":      b.ID,
		"requesterId":    b.RequesterID,
		"counterpartyId": b.CounterpartyID,
		"status":         string(b.Status),
		"actorId":        actorID,
	}, at)
}

func NewPaymentEvent(success bool, amount int64, description string, at time.Time) NotificationEvent {
	eventType := EventPaymentFailed
	if success {
		eventType = EventPaymentSuccess
	}
	return NewEvent(eventType, map[string]any{
		"amount":      amount,
		"description": description,
	}, at)
}

func NewSubscriptionUpdatedEvent(message string, at time.Time) NotificationEvent {
	return NewEvent(EventSubscriptionUpdated, map[string]any{"message": message}, at)
}

func NewSubscriptionCanceledEvent(at time.Time) NotificationEvent {
	return NewEvent(EventSubscriptionCanceled, map[string]any{}, at)
}
