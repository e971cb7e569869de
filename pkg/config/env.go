package config

const (
	EnvStorageDriver     = "STORAGE_DRIVER"
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret            = "JWT_SECRET"
	EnvPaymentWebhookSecret = "PAYMENT_WEBHOOK_SECRET"

	EnvRateLimitBackend    = "RATE_LIMIT_BACKEND"
	EnvRateLimitRequests   = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow     = "RATE_LIMIT_WINDOW"
	EnvRateLimitSweepEvery = "RATE_LIMIT_SWEEP_EVERY"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvHubReplaySize        = "HUB_REPLAY_SIZE"
	EnvHubSubscriberBuffer  = "HUB_SUBSCRIBER_BUFFER"
	EnvHubHeartbeatInterval = "HUB_HEARTBEAT_INTERVAL"

	EnvEventSink               = "EVENT_SINK"
	EnvEventSinkQueueSize      = "EVENT_SINK_QUEUE_SIZE"
	EnvPaymentsConsumerEnabled = "PAYMENTS_CONSUMER_ENABLED"
	EnvPaymentDedupTTL         = "PAYMENT_DEDUP_TTL"
	EnvAMQPURL                 = "AMQP_URL"
	EnvAMQPExchange            = "AMQP_EXCHANGE"

	EnvCatalogBaseURL           = "CATALOG_BASE_URL"
	EnvCatalogSourceID          = "CATALOG_SOURCE_ID"
	EnvCatalogAPIKey            = "CATALOG_API_KEY"
	EnvCatalogRateLimitRequests = "CATALOG_RATE_LIMIT_REQUESTS"
	EnvCatalogRateLimitWindow   = "CATALOG_RATE_LIMIT_WINDOW"
	EnvCatalogCacheTTL          = "CATALOG_CACHE_TTL"

	EnvIdentityBaseURL           = "IDENTITY_BASE_URL"
	EnvIdentityRateLimitRequests = "IDENTITY_RATE_LIMIT_REQUESTS"
	EnvIdentityRateLimitWindow   = "IDENTITY_RATE_LIMIT_WINDOW"
	EnvIdentityCacheTTL          = "IDENTITY_CACHE_TTL"

	EnvUpstreamTimeout = "UPSTREAM_TIMEOUT"

	EnvConversationObserverID = "CONVERSATION_OBSERVER_ID"
)
