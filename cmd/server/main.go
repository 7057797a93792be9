// Command server runs the turnstile gateway: the request gate in front of a
// configurable upstream, the status and payment-result endpoints, the admin
// surface, and the operational plumbing (metrics, health, cleanup).
//
// main wires dependencies and keeps the lifecycle small. Business logic lives
// in the internal packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"turnstile/internal/admin"
	"turnstile/internal/audit"
	"turnstile/internal/checker"
	"turnstile/internal/device"
	"turnstile/internal/gate"
	"turnstile/internal/guard"
	"turnstile/internal/handler"
	"turnstile/internal/identity"
	"turnstile/internal/metrics"
	"turnstile/internal/platform/config"
	"turnstile/internal/platform/database"
	"turnstile/internal/platform/health"
	"turnstile/internal/platform/kafka/producer"
	"turnstile/internal/platform/logger"
	platformMW "turnstile/internal/platform/middleware"
	"turnstile/internal/platform/redis"
	"turnstile/internal/recorder"
	"turnstile/internal/service/cooldown"
	"turnstile/internal/service/fraud"
	"turnstile/internal/service/fraud/tracer"
	"turnstile/internal/service/tier"
	"turnstile/internal/service/windowlimit"
	allowliststore "turnstile/internal/store/allowlist"
	cooldownstore "turnstile/internal/store/cooldown"
	counterstore "turnstile/internal/store/counter"
	ledgerstore "turnstile/internal/store/ledger"
	usagestore "turnstile/internal/store/usage"
	violationsstore "turnstile/internal/store/violations"
	"turnstile/internal/workers/cleanup"
	"turnstile/pkg/platform/middleware/requesttime"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	engineCfg, err := config.EngineFromEnv()
	if err != nil {
		log.Error("invalid engine configuration", "error", err)
		os.Exit(1)
	}

	log.Info("initializing turnstile",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	m := metrics.New()
	healthHandler := health.New(cfg.Environment)

	// Shared stores. Redis serves the hot counters when configured; the
	// memory fallbacks keep a single-node deployment working without it.
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	sweepers := map[string]cleanup.Sweeper{}

	var (
		counters  windowlimit.CounterStore
		ledgers   fraud.LedgerStore
		cooldowns cooldown.Store
		usages    usagestore.Store
	)
	if redisClient != nil {
		counters = counterstore.NewRedisStore(redisClient)
		ledgers = ledgerstore.NewRedisStore(redisClient)
		cooldowns = cooldownstore.NewRedisStore(redisClient)
		usages = usagestore.NewRedisStore(redisClient)
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
		go recordRedisPoolStats(redisClient)
		log.Info("redis stores enabled")
	} else {
		counterMem := counterstore.NewInMemoryStore()
		ledgerMem := ledgerstore.NewInMemoryStore()
		cooldownMem := cooldownstore.NewInMemoryStore()
		usageMem := usagestore.NewInMemoryStore()
		counters, ledgers, cooldowns, usages = counterMem, ledgerMem, cooldownMem, usageMem
		sweepers["counters"] = counterMem
		sweepers["ledger"] = ledgerMem
		sweepers["cooldowns"] = cooldownMem
		sweepers["usage"] = usageMem
		log.Warn("redis not configured, using in-memory stores")
	}

	// Compliance persistence. Postgres when configured, memory otherwise.
	pool, err := database.New(cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	var (
		violations violationsstore.Store
		allowlist  allowliststore.Store
	)
	if pool != nil {
		violations = violationsstore.NewPostgres(pool.DB())
		allowlist = allowliststore.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
		defer pool.Close()
	} else {
		violations = violationsstore.NewInMemoryStore()
		allowlistMem := allowliststore.NewInMemoryStore()
		allowlist = allowlistMem
		sweepers["allowlist"] = allowlistMem
		log.Warn("postgres not configured, violations and allowlist are in-memory")
	}

	// Audit trail. Events always land in the queryable store; when Kafka is
	// configured they fan out to the compliance topic as well.
	var auditStore audit.Store = audit.NewInMemoryStore()
	var kafkaProducer *producer.Producer
	if cfg.Kafka.Brokers != "" {
		producerCfg := producer.DefaultConfig()
		producerCfg.Brokers = cfg.Kafka.Brokers
		kafkaProducer, err = producer.New(producerCfg, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		auditStore = &audit.Tee{
			Primary:   auditStore,
			Secondary: []audit.Store{audit.NewKafkaSink(&kafkaAuditProducer{kafkaProducer}, cfg.Kafka.AuditTopic)},
			OnSinkFail: func(err error) {
				log.Warn("audit kafka sink failed", "error", err)
			},
		}
		healthHandler.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !kafkaProducer.Healthy(ctx) {
				return errors.New("kafka brokers unreachable")
			}
			return nil
		})
		log.Info("kafka audit sink enabled", "topic", cfg.Kafka.AuditTopic)
	}
	publisher := audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(cfg.AuditBuffer),
		audit.WithPublisherLogger(log),
	)
	defer publisher.Close()

	// Engine services.
	limiter, err := windowlimit.New(counters, engineCfg,
		windowlimit.WithLogger(log),
		windowlimit.WithMetrics(m),
	)
	exitOn(log, "window limiter", err)

	tiers, err := tier.New(nil, engineCfg,
		tier.WithLogger(log),
		tier.WithMetrics(m),
	)
	exitOn(log, "tier resolver", err)
	sweepers["tiers"] = tiers

	fraudOpts := []fraud.Option{
		fraud.WithLogger(log),
		fraud.WithMetrics(m),
	}
	if cfg.TracingEnabled {
		fraudOpts = append(fraudOpts, fraud.WithTracer(tracer.NewOTel()))
		log.Info("fraud classification tracing enabled")
	}
	classifier, err := fraud.New(ledgers, engineCfg, fraudOpts...)
	exitOn(log, "fraud classifier", err)

	cooldownSvc, err := cooldown.New(cooldowns, engineCfg,
		cooldown.WithLogger(log),
		cooldown.WithMetrics(m),
	)
	exitOn(log, "cooldown tracker", err)

	rec, err := recorder.New(usages, violations, engineCfg,
		recorder.WithLogger(log),
		recorder.WithMetrics(m),
		recorder.WithAuditPublisher(publisher),
		recorder.WithQueueSize(cfg.RecorderBuffer),
	)
	exitOn(log, "recorder", err)
	defer rec.Close()

	check, err := checker.New(allowlist, tiers, limiter,
		checker.WithLogger(log),
		checker.WithMetrics(m),
		checker.WithAuditPublisher(publisher),
	)
	exitOn(log, "checker", err)

	paymentGuard, err := guard.New(check, classifier,
		guard.WithLogger(log),
		guard.WithCooldowns(cooldownSvc),
		guard.WithRecorder(rec),
		guard.WithAuditPublisher(publisher),
	)
	exitOn(log, "payment guard", err)

	resolver := identity.NewResolver(cfg.JWTSigningKey, identity.WithLogger(log))
	devices := device.NewFingerprinter(true)

	requestGate, err := gate.New(engineCfg, resolver, check,
		gate.WithLogger(log),
		gate.WithMetrics(m),
		gate.WithPaymentGuard(paymentGuard),
		gate.WithUsageRecorder(rec),
		gate.WithDeviceFingerprinter(devices),
	)
	exitOn(log, "gate", err)

	// HTTP surface.
	handlerOpts := []handler.Option{
		handler.WithLogger(log),
		handler.WithResultRecorder(paymentGuard),
	}
	if cfg.AdminTokenHash != "" {
		adminSvc, err := admin.New(allowlist, limiter,
			admin.WithLogger(log),
			admin.WithAuditPublisher(publisher),
			admin.WithTierCache(tiers),
			admin.WithCooldowns(cooldownSvc),
			admin.WithViolations(violations),
		)
		exitOn(log, "admin service", err)
		handlerOpts = append(handlerOpts, handler.WithAdmin(adminSvc, cfg.AdminTokenHash))
	} else {
		log.Warn("admin token hash not configured, admin surface disabled")
	}
	api, err := handler.New(resolver, check, handlerOpts...)
	exitOn(log, "handler", err)

	router := chi.NewRouter()
	router.Use(platformMW.Recovery(log))
	router.Use(platformMW.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(platformMW.Logger(log))

	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	api.Register(router)
	api.RegisterAdmin(router)

	// Gated traffic. Turnstile's own endpoints above are exact routes and win
	// over the wildcard, so they are never billed against the caller's quota.
	router.Group(func(r chi.Router) {
		r.Use(requestGate.Middleware)
		r.Handle("/v1/*", upstreamHandler(cfg.UpstreamURL, log))
	})

	// Background workers.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	sweeper := cleanup.New(sweepers,
		cleanup.WithLogger(log),
		cleanup.WithMetrics(m),
		cleanup.WithInterval(cfg.CleanupInterval),
	)
	go sweeper.Start(workerCtx) //nolint:errcheck // exits on context cancel

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down gracefully")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Info("server stopped")
}

// upstreamHandler proxies gated traffic to the configured upstream. Without an
// upstream the gate still enforces, and protected paths answer 404.
func upstreamHandler(upstreamURL string, log *slog.Logger) http.Handler {
	if upstreamURL == "" {
		log.Warn("no upstream configured, protected paths answer 404")
		return http.NotFoundHandler()
	}
	target, err := url.Parse(upstreamURL)
	if err != nil {
		log.Error("invalid upstream URL", "url", upstreamURL, "error", err)
		os.Exit(1)
	}
	log.Info("proxying gated traffic", "upstream", target.Host)
	return httputil.NewSingleHostReverseProxy(target)
}

// recordRedisPoolStats samples connection pool gauges.
func recordRedisPoolStats(client *redis.Client) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		client.RecordPoolStats()
	}
}

func exitOn(log *slog.Logger, component string, err error) {
	if err != nil {
		log.Error("initialization failed", "component", component, "error", err)
		os.Exit(1)
	}
}
