package model

import (
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusApproved  BookingStatus = "APPROVED"
	StatusDeclined  BookingStatus = "DECLINED"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusCompleted BookingStatus = "COMPLETED"
)

type BookingAction string

const (
	ActionApprove  BookingAction = "approve"
	ActionDecline  BookingAction = "decline"
	ActionConfirm  BookingAction = "confirm"
	ActionCancel   BookingAction = "cancel"
	ActionComplete BookingAction = "complete"
)

// transitions is the complete lifecycle. Anything not listed is illegal.
var transitions = map[BookingStatus]map[BookingAction]BookingStatus{
	StatusPending: {
		ActionApprove: StatusApproved,
		ActionDecline: StatusDeclined,
	},
	StatusApproved: {
		ActionConfirm: StatusConfirmed,
		ActionCancel:  StatusCancelled,
	},
	StatusConfirmed: {
		ActionComplete: StatusCompleted,
		ActionCancel:   StatusCancelled,
	},
}

func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusDeclined || s == StatusCancelled || s == StatusCompleted
}

// Next returns the status reached by applying action, or false when the
// action is not legal from s.
func (s BookingStatus) Next(action BookingAction) (BookingStatus, bool) {
	next, ok := transitions[s][action]
	return next, ok
}

func (a BookingAction) IsValid() bool {
	switch a {
	case ActionApprove, ActionDecline, ActionConfirm, ActionCancel, ActionComplete:
		return true
	}
	return false
}

// RequiresCounterparty reports whether only the counterparty may take the
// action from a PENDING booking.
func (a BookingAction) RequiresCounterparty() bool {
	return a == ActionApprove || a == ActionDecline
}

func AllStatuses() []BookingStatus {
	return []BookingStatus{StatusPending, StatusApproved, StatusDeclined, StatusConfirmed, StatusCancelled, StatusCompleted}
}

type Booking struct {
	ID               string        `json:"id" bson:"_id"`
	RequesterID      string        `json:"requester_id" bson:"requester_id"`
	CounterpartyID   string        `json:"counterparty_id" bson:"counterparty_id"`
	Status           BookingStatus `json:"status" bson:"status"`
	RequestedDate    string        `json:"requested_date" bson:"requested_date"`
	CreatedAt        time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" bson:"updated_at"`
	LastTransitionBy string        `json:"last_transition_by,omitempty" bson:"last_transition_by,omitempty"`
	LastTransitionAt *time.Time    `json:"last_transition_at,omitempty" bson:"last_transition_at,omitempty"`
}

// IsParticipant reports whether id is the requester or the counterparty.
func (b *Booking) IsParticipant(id string) bool {
	return id != "" && (id == b.RequesterID || id == b.CounterpartyID)
}

type CreateBookingRequest struct {
	CounterpartyID string `json:"counterparty_id" validate:"required,max=128"`
	RequestedDate  string `json:"requested_date" validate:"required,datetime=2006-01-02"`
}

type TransitionRequest struct {
	Action BookingAction `json:"action" validate:"required,booking_action"`
}

// StatusChange is the compare-and-set applied by repositories: the write only
// lands if the stored status still equals From.
type StatusChange struct {
	From  BookingStatus
	To    BookingStatus
	Actor string
	At    time.Time
}
