package kafka_middleware

import (
	"context"
	"time"

	"stagebook/pkg/kafka"
	"stagebook/pkg/metrics"
)

// MetricsProducerMiddleware records publish outcome and latency
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.Kafka(metrics.KafkaProduce, err, time.Since(start))
		return err
	}
}

// MetricsConsumerMiddleware records handler outcome and latency
func MetricsConsumerMiddleware(m *metrics.Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.Kafka(metrics.KafkaConsume, err, time.Since(start))
		return err
	}
}
