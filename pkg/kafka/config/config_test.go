package kafka_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " kafka-1:9092, ,kafka-2:9092 ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	assert.Equal(t, DefaultNotificationsTopic, cfg.Topics.Notifications)
	assert.Equal(t, DefaultPaymentsTopic, cfg.Topics.Payments)
	assert.Equal(t, DefaultPaymentsGroup, cfg.Topics.PaymentsGroup)
	assert.Empty(t, cfg.Topics.PaymentsDLQ)
	assert.Equal(t, DefaultProducerCompression, cfg.ProducerCompression)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvPaymentsTopic, "psp.callbacks")
	t.Setenv(EnvPaymentsDLQTopic, "psp.callbacks.dlq")
	t.Setenv(EnvConsumerCommitInterval, "250ms")
	t.Setenv(EnvProducerMaxAttempts, "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "psp.callbacks", cfg.Topics.Payments)
	assert.Equal(t, "psp.callbacks.dlq", cfg.Topics.PaymentsDLQ)
	assert.Equal(t, 250*time.Millisecond, cfg.ConsumerCommitInterval)
	assert.Equal(t, DefaultProducerMaxAttempts, cfg.ProducerMaxAttempts)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no brokers", func(c *Config) { c.Brokers = nil }},
		{"no notifications topic", func(c *Config) { c.Topics.Notifications = "" }},
		{"no payments group", func(c *Config) { c.Topics.PaymentsGroup = "" }},
		{"dlq equals source", func(c *Config) { c.Topics.PaymentsDLQ = c.Topics.Payments }},
		{"bad compression", func(c *Config) { c.ProducerCompression = "brotli" }},
		{"bad acks", func(c *Config) { c.ProducerRequireAcks = 2 }},
		{"bad offset", func(c *Config) { c.ConsumerStartOffset = -3 }},
		{"inverted byte bounds", func(c *Config) { c.ConsumerMaxBytes = 0 }},
		{"zero commit interval", func(c *Config) { c.ConsumerCommitInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
