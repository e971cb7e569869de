package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"

	"stagebook/pkg/cache"
	"stagebook/pkg/config"
	"stagebook/pkg/contracts"
	"stagebook/pkg/metrics"
	"stagebook/pkg/middleware"
	"stagebook/pkg/model"
	"stagebook/pkg/ratelimit"
)

const (
	StreamPath  = "/api/v1/admin/events"
	WebhookPath = "/api/v1/webhooks/"

	janitorInterval = time.Minute
)

// Routes groups handlers by the middleware stack they run behind.
type Routes struct {
	// API runs behind the full stack.
	API contracts.Handler
	// Stream holds long-lived admin connections: no request timeout and no
	// idempotency capture.
	Stream contracts.Handler
	// Webhook is authenticated by payload signature instead of a bearer token.
	Webhook contracts.Handler
}

type worker struct {
	name string
	run  func(ctx context.Context)
}

type Application struct {
	cfg              *config.Config
	metrics          *metrics.Metrics
	limiter          ratelimit.Limiter
	ping             Pinger
	server           *http.Server
	idempotencyCache *cache.TTLCache[string, *middleware.CachedResponse]

	workers    []worker
	onShutdown []func()
}

func NewApplication(cfg *config.Config, m *metrics.Metrics, limiter ratelimit.Limiter, ping Pinger) *Application {
	return &Application{
		cfg:              cfg,
		metrics:          m,
		limiter:          limiter,
		ping:             ping,
		idempotencyCache: cache.NewTTLCache[string, *middleware.CachedResponse](),
	}
}

// AddWorker registers a background loop. It runs until shutdown cancels ctx.
func (a *Application) AddWorker(name string, run func(ctx context.Context)) {
	a.workers = append(a.workers, worker{name: name, run: run})
}

// OnShutdown registers fn to run before the HTTP server drains, e.g. to
// release long-lived stream connections.
func (a *Application) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

func (a *Application) SetApp(routes Routes) {
	mux := http.NewServeMux()

	health := a.healthHandler()
	mux.Handle("/health", health)
	mux.Handle("/ready", health)
	mux.Handle("/metrics", a.metrics.Handler())

	if routes.Stream != nil {
		mux.Handle(StreamPath, a.streamHandler(routes.Stream))
	}
	if routes.Webhook != nil {
		if a.cfg.PaymentWebhookSecret != "" {
			mux.Handle(WebhookPath, a.webhookHandler(routes.Webhook))
		} else {
			a.cfg.Log.Warn("Payment webhook secret not set, webhook endpoints disabled")
		}
	}
	mux.Handle("/", a.apiHandler(routes.API))

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) healthHandler() http.Handler {
	router := httprouter.New()
	NewHealthHandler(a.ping, a.cfg.Log).RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.RequestLogging(a.cfg.Log, nil)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
	return h
}

func (a *Application) apiHandler(api contracts.Handler) http.Handler {
	router := httprouter.New()
	if api != nil {
		api.RegisterRoutes(router)
	}

	store := middleware.NewIdempotencyStore(a.idempotencyCache, a.cfg.IdempotencyTTL)

	var h http.Handler = router
	h = middleware.Idempotency(store, middleware.DefaultIdempotencyHeader)(h)
	h = middleware.RequestTimeout(a.cfg.RequestTimeout, a.cfg.Log)(h)
	h = middleware.RateLimit(a.limiter, a.rateLimitPolicy(), a.cfg.Log, a.metrics)(h)
	h = middleware.Authenticate(a.cfg.JWTSecret, a.cfg.Log)(h)
	h = middleware.ContentTypeValidation(a.cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(a.cfg.Log, a.metrics)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.cfg.Log.Info("Application endpoints configured with full security middleware stack")
	return h
}

func (a *Application) streamHandler(stream contracts.Handler) http.Handler {
	router := httprouter.New()
	stream.RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.RequireRole(a.cfg.Log, model.RoleAdmin)(h)
	h = middleware.RateLimit(a.limiter, a.rateLimitPolicy(), a.cfg.Log, a.metrics)(h)
	h = middleware.Authenticate(a.cfg.JWTSecret, a.cfg.Log)(h)
	h = middleware.RequestLogging(a.cfg.Log, a.metrics)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.cfg.Log.Info("Event stream endpoint configured without request timeout")
	return h
}

func (a *Application) webhookHandler(webhook contracts.Handler) http.Handler {
	router := httprouter.New()
	webhook.RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.RequestTimeout(a.cfg.RequestTimeout, a.cfg.Log)(h)
	h = middleware.PaymentSignatureVerification(a.cfg.PaymentWebhookSecret, a.cfg.Log)(h)
	h = middleware.ContentTypeValidation(a.cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(a.cfg.Log, a.metrics)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.cfg.Log.Info("Webhook endpoints configured with signature verification")
	return h
}

func (a *Application) rateLimitPolicy() middleware.RateLimitPolicy {
	return middleware.RateLimitPolicy{
		Scope:       "http",
		MaxRequests: a.cfg.RateLimitRequests,
		Window:      a.cfg.RateLimitWindow,
	}
}

func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workersCtx, cancelWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	a.AddWorker("idempotency-janitor", func(ctx context.Context) {
		a.idempotencyCache.RunJanitor(ctx, janitorInterval)
	})
	for _, w := range a.workers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.cfg.Log.Info("Background worker started", "worker", w.name)
			w.run(workersCtx)
			a.cfg.Log.Info("Background worker stopped", "worker", w.name)
		}()
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			cancelWorkers()
			wg.Wait()
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}
	case <-ctx.Done():
		a.cfg.Log.Info("Shutdown signal received")
	}

	a.gracefulShutdown(cancelWorkers, &wg)
}

func (a *Application) gracefulShutdown(cancelWorkers context.CancelFunc, wg *sync.WaitGroup) {
	a.cfg.Log.Info("Starting graceful shutdown...")

	for _, fn := range a.onShutdown {
		fn()
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	cancelWorkers()
	wg.Wait()
	a.cfg.Log.Info("Background workers stopped")

	a.cfg.GracefulShutdown()
	a.cfg.Log.Info("Server stopped gracefully")
}
