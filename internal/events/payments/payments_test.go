package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagebook/pkg/cache"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/kafka"
	"stagebook/pkg/logger"
	"stagebook/pkg/middleware"
	"stagebook/pkg/model"
)

const webhookSecret = "whsec_test"

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.NotificationEvent
}

func (p *recordingPublisher) Publish(evt model.NotificationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) snapshot() []model.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.NotificationEvent(nil), p.events...)
}

func newAdapter(pub Publisher, now *time.Time) *Adapter {
	seen := cache.NewTTLCache[string, struct{}](cache.WithClock(func() time.Time { return *now }))
	a := NewAdapter(pub, seen, DefaultDedupTTL, logger.Discard(), nil)
	a.now = func() time.Time { return *now }
	return a
}

func TestAdapter_MapsProcessorTypes(t *testing.T) {
	tests := []struct {
		name     string
		event    ProcessorEvent
		wantType string
		wantData map[string]any
	}{
		{
			name:     "charge succeeded",
			event:    ProcessorEvent{ID: "evt_1", Type: TypeChargeSucceeded, Amount: 2500, Currency: "usd", Description: "Deposit for gig"},
			wantType: model.EventPaymentSuccess,
			wantData: map[string]any{"amount": int64(2500), "description": "Deposit for gig"},
		},
		{
			name:     "charge failed",
			event:    ProcessorEvent{ID: "evt_2", Type: TypeChargeFailed, Amount: 900, Description: "Card declined"},
			wantType: model.EventPaymentFailed,
			wantData: map[string]any{"amount": int64(900), "description": "Card declined"},
		},
		{
			name:     "subscription updated",
			event:    ProcessorEvent{ID: "evt_3", Type: TypeSubscriptionUpdated, Message: "Plan changed to Pro"},
			wantType: model.EventSubscriptionUpdated,
			wantData: map[string]any{"message": "Plan changed to Pro"},
		},
		{
			name:     "subscription canceled",
			event:    ProcessorEvent{ID: "evt_4", Type: TypeSubscriptionCanceled},
			wantType: model.EventSubscriptionCanceled,
			wantData: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
			pub := &recordingPublisher{}
			a := newAdapter(pub, &now)

			outcome, err := a.Handle(context.Background(), tt.event)
			require.NoError(t, err)
			assert.Equal(t, OutcomePublished, outcome)

			events := pub.snapshot()
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantType, events[0].Type)
			assert.Equal(t, tt.wantData, events[0].Data)
			assert.Equal(t, now, events[0].Timestamp)
		})
	}
}

func TestAdapter_IgnoresUnknownTypes(t *testing.T) {
	now := time.Now()
	pub := &recordingPublisher{}
	a := newAdapter(pub, &now)

	outcome, err := a.Handle(context.Background(), ProcessorEvent{ID: "evt_9", Type: "invoice.created"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Empty(t, pub.snapshot())
}

func TestAdapter_DedupesWithinWindow(t *testing.T) {
	now := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
	pub := &recordingPublisher{}
	a := newAdapter(pub, &now)
	pe := ProcessorEvent{ID: "evt_dup", Type: TypeChargeSucceeded, Amount: 100}

	first, err := a.Handle(context.Background(), pe)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, first)

	now = now.Add(23 * time.Hour)
	second, err := a.Handle(context.Background(), pe)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second)

	now = now.Add(2 * time.Hour)
	third, err := a.Handle(context.Background(), pe)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, third)

	assert.Len(t, pub.snapshot(), 2)
}

func TestAdapter_RequiresID(t *testing.T) {
	now := time.Now()
	a := newAdapter(&recordingPublisher{}, &now)

	_, err := a.Handle(context.Background(), ProcessorEvent{ID: "  ", Type: TypeChargeFailed})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidRequest))
}

func TestAdapter_ConcurrentRedeliveryPublishesOnce(t *testing.T) {
	now := time.Now()
	pub := &recordingPublisher{}
	a := newAdapter(pub, &now)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = a.Handle(context.Background(), ProcessorEvent{ID: "evt_race", Type: TypeChargeSucceeded, Amount: 1})
		}()
	}
	wg.Wait()

	assert.Len(t, pub.snapshot(), 1)
}

func TestWebhookHandler(t *testing.T) {
	now := time.Now()
	pub := &recordingPublisher{}
	a := newAdapter(pub, &now)

	router := httprouter.New()
	NewWebhookHandler(a, logger.Discard()).RegisterRoutes(router)
	server := middleware.PaymentSignatureVerification(webhookSecret, logger.Discard())(router)

	tests := []struct {
		name       string
		body       string
		sign       bool
		wantStatus int
		wantCount  int
	}{
		{"valid callback", `{"id":"evt_w1","type":"charge.succeeded","amount":1000,"description":"Deposit"}`, true, http.StatusOK, 1},
		{"redelivery", `{"id":"evt_w1","type":"charge.succeeded","amount":1000,"description":"Deposit"}`, true, http.StatusOK, 1},
		{"unsigned", `{"id":"evt_w2","type":"charge.failed","amount":5}`, false, http.StatusUnauthorized, 1},
		{"unknown field", `{"id":"evt_w3","type":"charge.failed","extra":true}`, true, http.StatusBadRequest, 1},
		{"unknown type", `{"id":"evt_w4","type":"payout.paid"}`, true, http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, WebhookPath, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.sign {
				req.Header.Set(middleware.PaymentSignatureHeader, "sha256="+middleware.Sign([]byte(tt.body), webhookSecret))
			}
			rec := httptest.NewRecorder()

			server.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Len(t, pub.snapshot(), tt.wantCount)
		})
	}
}

func TestMessageHandler(t *testing.T) {
	now := time.Now()
	pub := &recordingPublisher{}
	handle := newAdapter(pub, &now).MessageHandler()

	body, err := json.Marshal(ProcessorEvent{Type: TypeSubscriptionUpdated, Message: "Renewed"})
	require.NoError(t, err)
	msg := kafka.NewMessage().WithEventID("evt_k1").WithRawValue(body).Build()

	require.NoError(t, handle(context.Background(), msg))
	require.Len(t, pub.snapshot(), 1)
	assert.Equal(t, model.EventSubscriptionUpdated, pub.snapshot()[0].Type)

	err = handle(context.Background(), kafka.Message{Value: []byte("{not json")})
	require.Error(t, err)
	assert.False(t, kafka.ShouldRetry(err, 0, 3))
}
