package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"stagebook/pkg/client"
	"stagebook/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	StorageDriver     string
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	JWTSecret            string
	PaymentWebhookSecret string

	RateLimitBackend    string
	RateLimitRequests   int
	RateLimitWindow     time.Duration
	RateLimitSweepEvery int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	HubReplaySize        int
	HubSubscriberBuffer  int
	HubHeartbeatInterval time.Duration

	EventSink               string
	EventSinkQueueSize      int
	PaymentsConsumerEnabled bool
	PaymentDedupTTL         time.Duration
	AMQPURL                 string
	AMQPExchange            string

	CatalogBaseURL           string
	CatalogSourceID          string
	CatalogAPIKey            string
	CatalogRateLimitRequests int
	CatalogRateLimitWindow   time.Duration
	CatalogCacheTTL          time.Duration

	IdentityBaseURL           string
	IdentityRateLimitRequests int
	IdentityRateLimitWindow   time.Duration
	IdentityCacheTTL          time.Duration

	UpstreamTimeout time.Duration

	ConversationObserverID string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		StorageDriver:     getEnvStr(EnvStorageDriver, DefaultStorageDriver),
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret:            getEnvStr(EnvJWTSecret, ""),
		PaymentWebhookSecret: getEnvStr(EnvPaymentWebhookSecret, ""),

		RateLimitBackend:    getEnvStr(EnvRateLimitBackend, DefaultRateLimitBackend),
		RateLimitRequests:   getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:     getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		RateLimitSweepEvery: getEnvNum(EnvRateLimitSweepEvery, DefaultRateLimitSweepEvery),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		HubReplaySize:        getEnvNum(EnvHubReplaySize, DefaultHubReplaySize),
		HubSubscriberBuffer:  getEnvNum(EnvHubSubscriberBuffer, DefaultHubSubscriberBuffer),
		HubHeartbeatInterval: getEnvDuration(EnvHubHeartbeatInterval, DefaultHubHeartbeatInterval),

		EventSink:               getEnvStr(EnvEventSink, DefaultEventSink),
		EventSinkQueueSize:      getEnvNum(EnvEventSinkQueueSize, DefaultEventSinkQueueSize),
		PaymentsConsumerEnabled: getEnvBool(EnvPaymentsConsumerEnabled, false),
		PaymentDedupTTL:         getEnvDuration(EnvPaymentDedupTTL, DefaultPaymentDedupTTL),
		AMQPURL:                 getEnvStr(EnvAMQPURL, DefaultAMQPURL),
		AMQPExchange:            getEnvStr(EnvAMQPExchange, DefaultAMQPExchange),

		CatalogBaseURL:           getEnvStr(EnvCatalogBaseURL, ""),
		CatalogSourceID:          getEnvStr(EnvCatalogSourceID, DefaultCatalogSourceID),
		CatalogAPIKey:            getEnvStr(EnvCatalogAPIKey, ""),
		CatalogRateLimitRequests: getEnvNum(EnvCatalogRateLimitRequests, DefaultCatalogRateLimitRequests),
		CatalogRateLimitWindow:   getEnvDuration(EnvCatalogRateLimitWindow, DefaultCatalogRateLimitWindow),
		CatalogCacheTTL:          getEnvDuration(EnvCatalogCacheTTL, DefaultCatalogCacheTTL),

		IdentityBaseURL:           getEnvStr(EnvIdentityBaseURL, ""),
		IdentityRateLimitRequests: getEnvNum(EnvIdentityRateLimitRequests, DefaultIdentityRateLimitRequests),
		IdentityRateLimitWindow:   getEnvDuration(EnvIdentityRateLimitWindow, DefaultIdentityRateLimitWindow),
		IdentityCacheTTL:          getEnvDuration(EnvIdentityCacheTTL, DefaultIdentityCacheTTL),

		UpstreamTimeout: getEnvDuration(EnvUpstreamTimeout, DefaultUpstreamTimeout),

		ConversationObserverID: getEnvStr(EnvConversationObserverID, ""),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageDriver {
	case StorageMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StorageMemory:
	default:
		errors = append(errors, fmt.Sprintf("StorageDriver must be one of [mongo, memory], got: %s", cfg.StorageDriver))
	}

	if len(cfg.JWTSecret) < 16 {
		errors = append(errors, "JWTSecret must be at least 16 characters")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	switch cfg.RateLimitBackend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		errors = append(errors, fmt.Sprintf("RateLimitBackend must be one of [memory, redis], got: %s", cfg.RateLimitBackend))
	}
	if cfg.RateLimitBackend == RateLimitBackendRedis && cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr is required when RateLimitBackend is redis")
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RateLimitSweepEvery <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitSweepEvery must be positive, got: %d", cfg.RateLimitSweepEvery))
	}

	for name, d := range map[string]time.Duration{
		"RequestTimeout":          cfg.RequestTimeout,
		"IdempotencyTTL":          cfg.IdempotencyTTL,
		"ReadTimeout":             cfg.ReadTimeout,
		"WriteTimeout":            cfg.WriteTimeout,
		"IdleTimeout":             cfg.IdleTimeout,
		"ShutdownTimeout":         cfg.ShutdownTimeout,
		"HubHeartbeatInterval":    cfg.HubHeartbeatInterval,
		"PaymentDedupTTL":         cfg.PaymentDedupTTL,
		"CatalogRateLimitWindow":  cfg.CatalogRateLimitWindow,
		"CatalogCacheTTL":         cfg.CatalogCacheTTL,
		"IdentityRateLimitWindow": cfg.IdentityRateLimitWindow,
		"IdentityCacheTTL":        cfg.IdentityCacheTTL,
		"UpstreamTimeout":         cfg.UpstreamTimeout,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.HubReplaySize <= 0 {
		errors = append(errors, fmt.Sprintf("HubReplaySize must be positive, got: %d", cfg.HubReplaySize))
	}
	if cfg.HubSubscriberBuffer <= 0 {
		errors = append(errors, fmt.Sprintf("HubSubscriberBuffer must be positive, got: %d", cfg.HubSubscriberBuffer))
	}

	switch cfg.EventSink {
	case EventSinkNone, EventSinkKafka:
	case EventSinkAMQP:
		if cfg.AMQPURL == "" || cfg.AMQPExchange == "" {
			errors = append(errors, "AMQPURL and AMQPExchange are required when EventSink is amqp")
		}
	default:
		errors = append(errors, fmt.Sprintf("EventSink must be one of [none, kafka, amqp], got: %s", cfg.EventSink))
	}
	if cfg.EventSinkQueueSize <= 0 {
		errors = append(errors, fmt.Sprintf("EventSinkQueueSize must be positive, got: %d", cfg.EventSinkQueueSize))
	}

	if cfg.CatalogRateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("CatalogRateLimitRequests must be positive, got: %d", cfg.CatalogRateLimitRequests))
	}
	if cfg.IdentityRateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("IdentityRateLimitRequests must be positive, got: %d", cfg.IdentityRateLimitRequests))
	}
	for name, raw := range map[string]string{
		"CatalogBaseURL":  cfg.CatalogBaseURL,
		"IdentityBaseURL": cfg.IdentityBaseURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("%s must be an absolute URL, got: %s", name, raw))
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"storage_driver", cfg.StorageDriver,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"rate_limit_backend", cfg.RateLimitBackend,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"rate_limit_sweep_every", cfg.RateLimitSweepEvery,
		"redis_addr", cfg.RedisAddr,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"hub_replay_size", cfg.HubReplaySize,
		"hub_subscriber_buffer", cfg.HubSubscriberBuffer,
		"hub_heartbeat_interval", cfg.HubHeartbeatInterval,
		"event_sink", cfg.EventSink,
		"event_sink_queue_size", cfg.EventSinkQueueSize,
		"payments_consumer_enabled", cfg.PaymentsConsumerEnabled,
		"amqp_exchange", cfg.AMQPExchange,
		"catalog_base_url", cfg.CatalogBaseURL,
		"catalog_source_id", cfg.CatalogSourceID,
		"catalog_api_key_set", cfg.CatalogAPIKey != "",
		"catalog_cache_ttl", cfg.CatalogCacheTTL,
		"identity_base_url", cfg.IdentityBaseURL,
		"identity_cache_ttl", cfg.IdentityCacheTTL,
		"upstream_timeout", cfg.UpstreamTimeout,
		"conversation_observer_set", cfg.ConversationObserverID != "",
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
