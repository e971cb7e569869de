package sink

import (
	"context"
	"fmt"
	"strconv"

	"stagebook/pkg/kafka"
	"stagebook/pkg/model"
)

const headerSeq = "event-seq"

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaSink struct {
	producer messagePublisher
}

func NewKafkaSink(producer messagePublisher) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Send(ctx context.Context, evt model.NotificationEvent) error {
	msg := kafka.NewMessage().
		WithKey(PartitionKey(evt)).
		WithValue(NewEnvelope(evt)).
		WithEventType(evt.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(evt.Timestamp).
		WithHeader(headerSeq, strconv.FormatUint(evt.Seq, 10)).
		Build()

	if err := s.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to kafka: %w", evt.Type, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
