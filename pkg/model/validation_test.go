package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBookingStatus_Next(t *testing.T) {
	tests := []struct {
		from   BookingStatus
		action BookingAction
		want   BookingStatus
		legal  bool
	}{
		{StatusPending, ActionApprove, StatusApproved, true},
		{StatusPending, ActionDecline, StatusDeclined, true},
		{StatusPending, ActionConfirm, "", false},
		{StatusPending, ActionCancel, "", false},
		{StatusApproved, ActionConfirm, StatusConfirmed, true},
		{StatusApproved, ActionCancel, StatusCancelled, true},
		{StatusApproved, ActionApprove, "", false},
		{StatusConfirmed, ActionComplete, StatusCompleted, true},
		{StatusConfirmed, ActionCancel, StatusCancelled, true},
		{StatusConfirmed, ActionDecline, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			got, ok := tt.from.Next(tt.action)
			if ok != tt.legal {
				t.Fatalf("Next legal = %v, want %v", ok, tt.legal)
			}
			if got != tt.want {
				t.Errorf("Next = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	actions := []BookingAction{ActionApprove, ActionDecline, ActionConfirm, ActionCancel, ActionComplete}

	for _, status := range AllStatuses() {
		if !status.IsTerminal() {
			continue
		}
		for _, action := range actions {
			if next, ok := status.Next(action); ok {
				t.Errorf("%s accepted %s -> %s", status, action, next)
			}
		}
	}
}

func TestEveryNonTerminalStatusHasAnExit(t *testing.T) {
	for _, status := range AllStatuses() {
		if status.IsTerminal() {
			continue
		}
		if len(transitions[status]) == 0 {
			t.Errorf("%s has no outgoing transitions", status)
		}
	}
}

func TestBooking_IsParticipant(t *testing.T) {
	b := &Booking{RequesterID: "artist-1", CounterpartyID: "host-1"}

	if !b.IsParticipant("artist-1") || !b.IsParticipant("host-1") {
		t.Error("both parties must be participants")
	}
	if b.IsParticipant("stranger") || b.IsParticipant("") {
		t.Error("outsiders must not be participants")
	}
}

func TestNotificationEvent_WireShape(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := &Booking{ID: "b-1", RequesterID: "a", CounterpartyID: "h", Status: StatusApproved}
	evt := NewBookingEvent(BookingEventType(ActionApprove), b, "h", at)
	evt.Seq = 9

	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if wire["type"] != "booking_approve" {
		t.Errorf("unexpected type %v", wire["type"])
	}
	if wire["timestamp"] != "2026-03-01T12:00:00Z" {
		t.Errorf("unexpected timestamp %v", wire["timestamp"])
	}
	if _, leaked := wire["Seq"]; leaked {
		t.Error("seq must not be part of the payload")
	}
	data := wire["data"].(map[string]any)
	for _, key := range []string{"bookingId", "requesterId", "counterpartyId"} {
		if _, ok := data[key]; !ok {
			t.Errorf("booking event missing %s", key)
		}
	}
}

func TestNotificationEvent_Reserved(t *testing.T) {
	if !NewEvent(EventHeartbeat, nil, time.Now()).IsReserved() {
		t.Error("heartbeat is reserved")
	}
	if NewPaymentEvent(true, 100, "gig fee", time.Now()).IsReserved() {
		t.Error("payment events are not reserved")
	}
}

func TestSubscriptionCanceledHasEmptyData(t *testing.T) {
	evt := NewSubscriptionCanceledEvent(time.Now())
	if evt.Data == nil || len(evt.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %v", evt.Data)
	}
}
