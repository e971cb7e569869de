// Package payments turns payment processor callbacks into admin
// notification events. The same adapter serves the signed webhook and the
// Kafka payments topic.
package payments

import (
	"context"
	"strings"
	"time"

	"stagebook/pkg/cache"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/logger"
	"stagebook/pkg/metrics"
	"stagebook/pkg/model"
)

const DefaultDedupTTL = 24 * time.Hour

const (
	TypeChargeSucceeded      = "charge.succeeded"
	TypeChargeFailed         = "charge.failed"
	TypeSubscriptionUpdated  = "subscription.updated"
	TypeSubscriptionCanceled = "subscription.canceled"
)

// ProcessorEvent is the callback body sent by the payment processor.
// Amount is in the currency's minor unit.
type ProcessorEvent struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
}

type Publisher interface {
	Publish(evt model.NotificationEvent)
}

type Outcome string

const (
	OutcomePublished Outcome = metrics.PaymentPublished
	OutcomeDuplicate Outcome = metrics.PaymentDuplicate
	OutcomeIgnored   Outcome = metrics.PaymentIgnored
)

type Adapter struct {
	publisher Publisher
	seen      *cache.TTLCache[string, struct{}]
	dedupTTL  time.Duration
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewAdapter(publisher Publisher, seen *cache.TTLCache[string, struct{}], dedupTTL time.Duration, log *logger.Logger, m *metrics.Metrics) *Adapter {
	if seen == nil {
		seen = cache.NewTTLCache[string, struct{}]()
	}
	if dedupTTL <= 0 {
		dedupTTL = DefaultDedupTTL
	}
	return &Adapter{
		publisher: publisher,
		seen:      seen,
		dedupTTL:  dedupTTL,
		log:       log.Component("payments"),
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handle publishes the notification for a processor event. Unknown types
// and redeliveries of an id seen within the dedup window are acknowledged
// without publishing.
func (a *Adapter) Handle(_ context.Context, pe ProcessorEvent) (Outcome, error) {
	pe.ID = strings.TrimSpace(pe.ID)
	if pe.ID == "" {
		return "", apperrors.InvalidRequest("Payment event id is required")
	}

	evt, ok := a.toNotification(pe)
	if !ok {
		a.metrics.PaymentEvent(pe.Type, string(OutcomeIgnored))
		a.log.Info("Ignoring unhandled payment event type", "event_id", pe.ID, "type", pe.Type)
		return OutcomeIgnored, nil
	}

	if !a.seen.SetIfAbsent(pe.ID, struct{}{}, a.dedupTTL) {
		a.metrics.PaymentEvent(pe.Type, string(OutcomeDuplicate))
		a.log.Info("Ignoring duplicate payment event", "event_id", pe.ID, "type", pe.Type)
		return OutcomeDuplicate, nil
	}

	a.publisher.Publish(evt)
	a.metrics.PaymentEvent(pe.Type, string(OutcomePublished))
	a.log.Info("Payment event published", "event_id", pe.ID, "type", pe.Type, "notification", evt.Type)
	return OutcomePublished, nil
}

func (a *Adapter) toNotification(pe ProcessorEvent) (model.NotificationEvent, bool) {
	at := a.now()
	switch pe.Type {
	case TypeChargeSucceeded:
		return model.NewPaymentEvent(true, pe.Amount, pe.Description, at), true
	case TypeChargeFailed:
		return model.NewPaymentEvent(false, pe.Amount, pe.Description, at), true
	case TypeSubscriptionUpdated:
		return model.NewSubscriptionUpdatedEvent(pe.Message, at), true
	case TypeSubscriptionCanceled:
		return model.NewSubscriptionCanceledEvent(at), true
	}
	return model.NotificationEvent{}, false
}
