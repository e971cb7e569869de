package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stagebook"

const (
	GatewayHit         = "hit"
	GatewayMiss        = "miss"
	GatewayRateLimited = "rate_limited"
	GatewayUpstreamErr = "upstream_error"

	PaymentPublished = "published"
	PaymentDuplicate = "duplicate"
	PaymentIgnored   = "ignored"

	SinkDelivered = "delivered"
	SinkFailed    = "failed"
	SinkDropped   = "dropped"

	KafkaProduce = "produce"
	KafkaConsume = "consume"
)

// Metrics owns a private registry so tests can create as many instances as
// they like. Every method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	gatewayRequests *prometheus.CounterVec
	hubSubscribers  prometheus.Gauge
	hubPublished    *prometheus.CounterVec
	hubEvicted      prometheus.Counter
	sinkDeliveries  *prometheus.CounterVec
	paymentEvents   *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	kafkaMessages   *prometheus.CounterVec
	kafkaDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking workflow actions by outcome.",
		}, []string{"action", "result"}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Upstream gateway lookups by source and outcome.",
		}, []string{"source", "outcome"}),
		hubSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_subscribers",
			Help:      "Live notification stream subscribers.",
		}),
		hubPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_events_published_total",
			Help:      "Events broadcast by the notification hub.",
		}, []string{"type"}),
		hubEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_slow_subscribers_total",
			Help:      "Subscribers dropped because their buffer was full.",
		}),
		sinkDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_sink_deliveries_total",
			Help:      "Events handed to the external sink by outcome.",
		}, []string{"sink", "outcome"}),
		paymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Payment processor events by type and outcome.",
		}, []string{"type", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter.",
		}, []string{"scope"}),
		kafkaMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_total",
			Help:      "Kafka messages produced or consumed by outcome.",
		}, []string{"direction", "outcome"}),
		kafkaDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_duration_seconds",
			Help:      "Kafka produce and handle latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.transitions,
		m.gatewayRequests,
		m.hubSubscribers,
		m.hubPublished,
		m.hubEvicted,
		m.sinkDeliveries,
		m.paymentEvents,
		m.rateLimited,
		m.kafkaMessages,
		m.kafkaDuration,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) Transition(action, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Gateway(source, outcome string) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) HubSubscribers(n int) {
	if m == nil {
		return
	}
	m.hubSubscribers.Set(float64(n))
}

func (m *Metrics) HubPublished(eventType string) {
	if m == nil {
		return
	}
	m.hubPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) HubEvicted() {
	if m == nil {
		return
	}
	m.hubEvicted.Inc()
}

func (m *Metrics) SinkDelivery(sink, outcome string) {
	if m == nil {
		return
	}
	m.sinkDeliveries.WithLabelValues(sink, outcome).Inc()
}

func (m *Metrics) PaymentEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) RateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}

func (m *Metrics) Kafka(direction string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.kafkaMessages.WithLabelValues(direction, outcome).Inc()
	m.kafkaDuration.WithLabelValues(direction).Observe(elapsed.Seconds())
}
