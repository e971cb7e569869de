package main

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	bookinghandler "stagebook/internal/bookings/handler"
	bookingrepo "stagebook/internal/bookings/repository"
	bookingservice "stagebook/internal/bookings/service"
	bookingvalidator "stagebook/internal/bookings/validator"
	catalogclient "stagebook/internal/catalog/client"
	"stagebook/internal/catalog/gateway"
	cataloghandler "stagebook/internal/catalog/handler"
	catalogservice "stagebook/internal/catalog/service"
	conversationhandler "stagebook/internal/conversations/handler"
	conversationrepo "stagebook/internal/conversations/repository"
	conversationservice "stagebook/internal/conversations/service"
	conversationvalidator "stagebook/internal/conversations/validator"
	"stagebook/internal/events/dispatch"
	eventshandler "stagebook/internal/events/handler"
	"stagebook/internal/events/hub"
	"stagebook/internal/events/payments"
	"stagebook/internal/events/sink"
	"stagebook/internal/identity"
	"stagebook/pkg/app"
	"stagebook/pkg/cache"
	"stagebook/pkg/client"
	"stagebook/pkg/config"
	"stagebook/pkg/contracts"
	mongotx "stagebook/pkg/db/mongo"
	"stagebook/pkg/kafka"
	kafka_config "stagebook/pkg/kafka/config"
	kafka_middleware "stagebook/pkg/kafka/middleware"
	"stagebook/pkg/metrics"
	"stagebook/pkg/model"
	"stagebook/pkg/ratelimit"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Bookings service")

	ping := initStorage(cfg)
	limiter := initLimiter(cfg)
	m := metrics.New()
	serverApp := app.NewApplication(cfg, m, limiter, ping)

	eventHub := hub.New(hub.Options{
		ReplaySize:        cfg.HubReplaySize,
		SubscriberBuffer:  cfg.HubSubscriberBuffer,
		HeartbeatInterval: cfg.HubHeartbeatInterval,
	}, cfg.Log.Component("hub"), m)
	dispatcher := dispatch.New(eventHub, initSink(cfg, m), cfg.EventSinkQueueSize, cfg.Log, m)
	serverApp.AddWorker("hub-heartbeat", eventHub.Run)
	serverApp.AddWorker("event-dispatcher", dispatcher.Run)
	serverApp.OnShutdown(eventHub.Shutdown)

	bookings, conversations := initDomain(cfg, m, dispatcher, limiter, serverApp)
	catalog := initCatalog(cfg, m, limiter, serverApp)
	webhook := initPayments(cfg, m, dispatcher, serverApp)

	serverApp.SetApp(app.Routes{
		API: contracts.Handlers{
			bookinghandler.NewBookingHandler(bookings, cfg.Log),
			conversationhandler.NewConversationHandler(conversations, cfg.Log),
			cataloghandler.NewCatalogHandler(catalog, cfg.Log),
		},
		Stream:  eventshandler.NewStreamHandler(eventHub, cfg.Log),
		Webhook: webhook,
	})
	serverApp.Run()
}

func initLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.RateLimitBackend == config.RateLimitBackendRedis {
		if cfg.Client.Redis == nil {
			cfg.SetRedis()
		}
		return ratelimit.NewRedisFixedWindow(cfg.Client.Redis)
	}
	return ratelimit.NewFixedWindow(ratelimit.WithSweepEvery(cfg.RateLimitSweepEvery))
}

// initStorage connects Mongo when it is the storage driver and returns the
// readiness probe for it.
func initStorage(cfg *config.Config) app.Pinger {
	if cfg.StorageDriver != config.StorageMongo {
		return nil
	}
	cfg.SetMongo()
	return func(ctx context.Context) error {
		return cfg.Client.Mongo.Ping(ctx, readpref.Primary())
	}
}

func initSink(cfg *config.Config, m *metrics.Metrics) sink.Sink {
	switch cfg.EventSink {
	case config.EventSinkKafka:
		kafkaCfg := loadKafka(cfg)
		producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.Topics.Notifications, "", cfg.Log.Component("kafka-producer"))
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		return sink.NewKafkaSink(producer)

	case config.EventSinkAMQP:
		s, err := sink.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			cfg.Log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		return s
	}
	return sink.Nop{}
}

func initDomain(
	cfg *config.Config,
	m *metrics.Metrics,
	publisher bookingservice.Publisher,
	limiter ratelimit.Limiter,
	serverApp *app.Application,
) (bookingservice.BookingService, conversationservice.ConversationService) {
	var (
		bookingRepo      bookingrepo.BookingRepository
		conversationRepo conversationrepo.ConversationRepository
		messageRepo      conversationrepo.MessageRepository
		txManager        mongotx.TransactionManager
	)
	if cfg.StorageDriver == config.StorageMongo {
		bookingRepo = bookingrepo.NewMongoBookingRepository(cfg)
		conversationRepo = conversationrepo.NewMongoConversationRepository(cfg)
		messageRepo = conversationrepo.NewMongoMessageRepository(cfg)
		txManager = mongotx.NewTransactionManager(cfg.Client.Mongo)
	} else {
		bookingRepo = bookingrepo.NewMemoryBookingRepository()
		conversationRepo = conversationrepo.NewMemoryConversationRepository()
		messageRepo = conversationrepo.NewMemoryMessageRepository()
		txManager = mongotx.NewLocalTransactionManager()
	}

	guard := conversationservice.NewAccessGuard(bookingRepo, conversationRepo, cfg)

	bookings := bookingservice.NewBookingService(
		bookingRepo,
		guard,
		publisher,
		txManager,
		bookingvalidator.NewBookingValidator(cfg.Log),
		m,
		cfg,
	)

	conversations := conversationservice.NewConversationService(
		guard,
		conversationRepo,
		messageRepo,
		initDirectory(cfg, m, limiter, serverApp),
		conversationvalidator.NewMessageValidator(),
		cfg,
	)

	cfg.Log.Info("Booking and conversation services initialized", "storage", cfg.StorageDriver)
	return bookings, conversations
}

func initDirectory(cfg *config.Config, m *metrics.Metrics, limiter ratelimit.Limiter, serverApp *app.Application) *identity.Directory {
	if cfg.IdentityBaseURL == "" {
		cfg.Log.Info("Identity provider not configured, using static directory")
		return identity.NewDirectory(nil, nil)
	}

	profiles := cache.NewTTLCache[string, model.Profile]()
	serverApp.AddWorker("identity-cache-janitor", janitor(profiles.RunJanitor))

	gw := gateway.New[model.Profile](profiles, limiter, cfg.Log, m).
		WithPolicy(identity.SourceID, gateway.Policy{
			MaxRequests: cfg.IdentityRateLimitRequests,
			Window:      cfg.IdentityRateLimitWindow,
			TTL:         cfg.IdentityCacheTTL,
		}).
		WithFlightTimeout(flightTimeout(cfg))
	return identity.NewDirectory(client.NewHttpClient(cfg.IdentityBaseURL, cfg.UpstreamTimeout), gw)
}

func initCatalog(cfg *config.Config, m *metrics.Metrics, limiter ratelimit.Limiter, serverApp *app.Application) catalogservice.CatalogService {
	policy := gateway.Policy{
		MaxRequests: cfg.CatalogRateLimitRequests,
		Window:      cfg.CatalogRateLimitWindow,
		TTL:         cfg.CatalogCacheTTL,
	}

	searchCache := cache.NewTTLCache[string, []model.Artist]()
	artistCache := cache.NewTTLCache[string, *model.Artist]()
	serverApp.AddWorker("catalog-search-cache-janitor", janitor(searchCache.RunJanitor))
	serverApp.AddWorker("catalog-artist-cache-janitor", janitor(artistCache.RunJanitor))

	searches := gateway.New[[]model.Artist](searchCache, limiter, cfg.Log, m).WithPolicy(cfg.CatalogSourceID, policy).WithFlightTimeout(flightTimeout(cfg))
	artists := gateway.New[*model.Artist](artistCache, limiter, cfg.Log, m).WithPolicy(cfg.CatalogSourceID, policy).WithFlightTimeout(flightTimeout(cfg))

	if cfg.CatalogBaseURL == "" {
		cfg.Log.Warn("Catalog base URL not configured, catalog lookups will fail")
	}
	return catalogservice.NewCatalogService(
		catalogclient.NewCatalogClient(cfg.CatalogBaseURL, cfg.CatalogAPIKey, cfg.UpstreamTimeout),
		searches,
		artists,
		cfg,
	)
}

func initPayments(cfg *config.Config, m *metrics.Metrics, publisher payments.Publisher, serverApp *app.Application) contracts.Handler {
	seen := cache.NewTTLCache[string, struct{}]()
	serverApp.AddWorker("payment-dedup-janitor", janitor(seen.RunJanitor))
	adapter := payments.NewAdapter(publisher, seen, cfg.PaymentDedupTTL, cfg.Log, m)

	if cfg.PaymentsConsumerEnabled {
		kafkaCfg := loadKafka(cfg)
		topics := kafkaCfg.Topics
		consumer, err := kafka.NewConsumer(kafkaCfg, topics.Payments, topics.PaymentsGroup, topics.PaymentsDLQ, adapter.MessageHandler(), cfg.Log.Component("kafka-consumer"))
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
		}
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware(m))
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

		serverApp.AddWorker("payments-consumer", func(ctx context.Context) {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				cfg.Log.Error("Payments consumer stopped", "error", err)
			}
			if err := consumer.Close(); err != nil {
				cfg.Log.Error("Failed to close payments consumer", "error", err)
			}
		})
	}

	return payments.NewWebhookHandler(adapter, cfg.Log)
}

// flightTimeout leaves the HTTP client's own timeout room to fire first.
func flightTimeout(cfg *config.Config) time.Duration {
	return 2 * cfg.UpstreamTimeout
}

func loadKafka(cfg *config.Config) *kafka_config.Config {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)
	return kafkaCfg
}

func janitor(run func(ctx context.Context, interval time.Duration)) func(ctx context.Context) {
	return func(ctx context.Context) {
		run(ctx, time.Minute)
	}
}
