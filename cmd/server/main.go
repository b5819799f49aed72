// Command server runs the name registry HTTP service. main wires the store,
// cache, audit pipeline, and router together; business logic lives in the
// internal packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"registrar/internal/account"
	"registrar/internal/funds"
	"registrar/internal/identity"
	"registrar/internal/platform/config"
	"registrar/internal/platform/httpserver"
	"registrar/internal/platform/logger"
	"registrar/internal/platform/middleware"
	"registrar/internal/platform/redis"
	"registrar/internal/platform/tracing"
	"registrar/internal/registry/cache"
	"registrar/internal/registry/handler"
	"registrar/internal/registry/metrics"
	"registrar/internal/registry/pricing"
	"registrar/internal/registry/service"
	"registrar/internal/registry/store"
	"registrar/pkg/platform/audit"
	"registrar/pkg/platform/audit/publisher"
	kafkastore "registrar/pkg/platform/audit/store/kafka"
	memorystore "registrar/pkg/platform/audit/store/memory"
)

const tokenIssuer = "registrar"

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.NewFromEnv()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	records, accounts, closeStore, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditStore, closeAudit, err := buildAuditStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(256), publisher.WithLogger(log))
	defer func() {
		auditPublisher.Close()
		closeAudit()
	}()

	pricingCfg := pricing.DefaultConfig()
	if cfg.PricingFile != "" {
		pricingCfg, err = pricing.LoadConfig(cfg.PricingFile)
		if err != nil {
			return err
		}
	}
	pricer, err := pricing.NewPricer(pricingCfg)
	if err != nil {
		return err
	}

	// The in-memory ledger stands in for the external funds backend.
	ledger := funds.NewInMemoryLedger()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(metrics.New()),
		service.WithTracer(tracer.Tracer()),
	}
	if redisClient != nil {
		opts = append(opts, service.WithQuoteCache(cache.NewRedisQuoteCache(redisClient.Client)))
	}
	svc := service.New(records, account.NewGate(accounts, records), ledger, pricer, cfg.Registry, opts...)

	verifier := identity.NewVerifier(cfg.JWTSigningKey, tokenIssuer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	handler.New(svc, log).Register(r, middleware.RequireAuth(verifier, log))
	r.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting registrar", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildStores selects the Postgres stack when a database URL is configured
// and falls back to the in-memory stack otherwise.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, account.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store; state is lost on restart")
		return store.NewInMemory(), account.NewInMemoryStore(), func() {}, nil
	}

	pg, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, nil, err
	}
	return pg, pg, func() { _ = pg.Close() }, nil
}

func buildAuditStore(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, keeping audit events in memory")
		return memorystore.NewInMemoryStore(), func() {}, nil
	}
	ks, err := kafkastore.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	return ks, ks.Close, nil
}
