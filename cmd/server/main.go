// Command server wires the KYC workflow engine: event store, stage workers,
// coordinator, read API, audit trail, and outbox publisher. Business logic
// lives in the internal packages; main only composes them.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"kycflow/internal/audit"
	"kycflow/internal/kyc/cache"
	"kycflow/internal/kyc/handler"
	"kycflow/internal/kyc/metrics"
	"kycflow/internal/kyc/query"
	"kycflow/internal/kyc/stages"
	"kycflow/internal/kyc/store"
	"kycflow/internal/kyc/workflow"
	"kycflow/internal/outbox"
	"kycflow/internal/platform/config"
	"kycflow/internal/platform/httpserver"
	"kycflow/internal/platform/logger"
	"kycflow/internal/platform/middleware"
	"kycflow/internal/platform/postgres"
	platformredis "kycflow/internal/platform/redis"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	// Event store: Postgres when configured, in-memory otherwise.
	var (
		eventStore store.EventStore
		pgStore    *store.PostgresStore
		db         *sql.DB
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pgStore = store.NewPostgres(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		eventStore = pgStore
		log.Info("using postgres event store")
	} else {
		eventStore = store.NewInMemory()
		log.Info("using in-memory event store")
	}

	// Latest-status projection when Redis is configured.
	rdb, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	var latest *cache.LatestStatus
	if rdb != nil {
		defer rdb.Close()
		latest = cache.New(rdb.Client, cfg.CacheTTL, log, m)
		eventStore = cache.NewCachingStore(eventStore, latest)
		log.Info("latest-status cache enabled")
	}

	// Audit trail: coordinator publishes, worker persists.
	auditStore := audit.NewInMemoryStore()
	auditInbox := make(chan audit.Entry, 256)
	auditWorker := audit.NewWorker(auditStore, auditInbox)
	auditPub := audit.NewPublisher(auditInbox, log)

	seed := cfg.StageSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	coordinator, err := workflow.New(
		eventStore,
		stages.All(seed),
		workflow.Config{
			FraudThreshold: cfg.FraudThreshold,
			MaxRetries:     cfg.StageRetries,
			RetryBackoff:   cfg.RetryBackoff,
		},
		log,
		m,
		workflow.WithAudit(auditPub),
	)
	if err != nil {
		log.Error("coordinator setup failed", "error", err)
		os.Exit(1)
	}

	queryOpts := []query.Option{}
	if latest != nil {
		queryOpts = append(queryOpts, query.WithCache(latest))
	}
	queries := query.New(eventStore, cfg.PageSize, log, queryOpts...)

	health := func(ctx context.Context) error {
		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				return err
			}
		}
		if _, err := eventStore.ScanAll(ctx, 1); err != nil {
			return err
		}
		return nil
	}

	h := handler.New(queries, coordinator, auditStore, health, log)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Handle("/metrics", promhttp.Handler())
	h.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return auditWorker.Run(groupCtx)
	})

	// Outbox publisher needs both Postgres (rows) and Kafka (sink).
	if pgStore != nil && len(cfg.KafkaBrokers) > 0 {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
		if err != nil {
			log.Error("kafka client setup failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		pub := outbox.New(db, client, cfg.KafkaTopic, cfg.OutboxInterval, cfg.OutboxBatch, log, m)
		if err := pub.EnsureTopic(ctx, 3, 1); err != nil {
			log.Error("kafka topic setup failed", "error", err)
			os.Exit(1)
		}
		group.Go(func() error {
			return pub.Run(groupCtx)
		})
		log.Info("outbox publisher enabled", "topic", cfg.KafkaTopic)
	}

	group.Go(func() error {
		log.Info("starting kyc server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
