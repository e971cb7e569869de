package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Transition("approve", "ok")
	m.Transition("approve", "ok")
	m.Transition("approve", "invalid_transition")
	m.Gateway("catalog", GatewayHit)
	m.PaymentEvent("charge.succeeded", PaymentDuplicate)
	m.RateLimited("http")
	m.HubEvicted()
	m.HubSubscribers(3)

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("approve", "ok")); got != 2 {
		t.Fatalf("expected 2 approvals, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("approve", "invalid_transition")); got != 1 {
		t.Fatalf("expected 1 rejected approval, got %v", got)
	}
	if got := testutil.ToFloat64(m.gatewayRequests.WithLabelValues("catalog", GatewayHit)); got != 1 {
		t.Fatalf("expected 1 gateway hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.paymentEvents.WithLabelValues("charge.succeeded", PaymentDuplicate)); got != 1 {
		t.Fatalf("expected 1 duplicate payment, got %v", got)
	}
	if got := testutil.ToFloat64(m.hubEvicted); got != 1 {
		t.Fatalf("expected 1 eviction, got %v", got)
	}
	if got := testutil.ToFloat64(m.hubSubscribers); got != 3 {
		t.Fatalf("expected 3 subscribers, got %v", got)
	}
}

func TestMetrics_Kafka(t *testing.T) {
	m := New()

	m.Kafka(KafkaProduce, nil, time.Millisecond)
	m.Kafka(KafkaProduce, errors.New("broker down"), time.Millisecond)

	if got := testutil.ToFloat64(m.kafkaMessages.WithLabelValues(KafkaProduce, "ok")); got != 1 {
		t.Fatalf("expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.kafkaMessages.WithLabelValues(KafkaProduce, "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	m.ObserveHTTP(http.MethodGet, 200, time.Millisecond)
	m.Transition("cancel", "ok")
	m.Gateway("identity", GatewayMiss)
	m.HubSubscribers(1)
	m.HubPublished("heartbeat")
	m.HubEvicted()
	m.SinkDelivery("kafka", SinkDelivered)
	m.PaymentEvent("charge.failed", PaymentPublished)
	m.RateLimited("http")
	m.Kafka(KafkaConsume, nil, time.Millisecond)

	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, 201, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `stagebook_http_requests_total{method="POST",status="201"} 1`) {
		t.Fatalf("expected request counter in exposition, got:\n%s", rec.Body.String())
	}
}
