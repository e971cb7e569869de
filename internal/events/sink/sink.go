// Package sink forwards notification events to an external broker so other
// services can consume the same stream the admin dashboard sees.
package sink

import (
	"context"
	"time"

	"stagebook/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "stagebook"
)

type Sink interface {
	Name() string
	Send(ctx context.Context, evt model.NotificationEvent) error
	Close() error
}

// Envelope is the broker payload. It carries the hub sequence so consumers
// can order and dedupe.
type Envelope struct {
	Seq       uint64         `json:"seq"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewEnvelope(evt model.NotificationEvent) Envelope {
	return Envelope{
		Seq:       evt.Seq,
		Type:      evt.Type,
		Data:      evt.Data,
		Timestamp: evt.Timestamp,
	}
}

// PartitionKey keeps every event of one booking on the same partition.
func PartitionKey(evt model.NotificationEvent) string {
	if id, ok := evt.Data["bookingId"].(string); ok && id != "" {
		return id
	}
	return evt.Type
}

// Nop discards everything. Used when no broker is configured.
type Nop struct{}

func (Nop) Name() string                                        { return "none" }
func (Nop) Send(context.Context, model.NotificationEvent) error { return nil }
func (Nop) Close() error                                        { return nil }
