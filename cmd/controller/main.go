// Package main is the entry point for the marketcap controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"marketcap/internal/config"
	"marketcap/internal/controller"
	"marketcap/internal/controller/handlers"
	"marketcap/internal/ingest"
	"marketcap/internal/kv"
	"marketcap/internal/lock"
	"marketcap/internal/logger"
	"marketcap/internal/observability"
	"marketcap/internal/orchestrator"
	"marketcap/internal/source"
	"marketcap/internal/store/postgres"
	"marketcap/internal/verify"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	// Load Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	// Setup Database
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(db.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Redis backs the run lock and the cursor/switch KV. A missing address
	// falls back to in-process stores for single-node deployments.
	var (
		lockStore lock.Store
		kvStore   kv.Store
		kvPing    handlers.Pinger
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		lockStore = lock.NewRedisStore(rdb)
		kvStore = kv.NewRedisStore(rdb)
		kvPing = redisPinger{rdb}
	} else {
		slogger.Warn("REDIS_ADDR not set, using in-memory lock and KV stores")
		lockStore = lock.NewMemoryStore()
		kvStore = kv.NewMemoryStore()
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "marketcap-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Source adapters, in registration order. The provider feed is paid
	// and only wired when credentials are configured.
	adapters := []source.Adapter{
		source.NewProcurementAdapter(cfg.SEAPURL, 2, slogger),
		source.NewEUFundsAdapter(cfg.EUFundsURL, slogger),
	}
	if cfg.ProviderURL != "" && cfg.ProviderAPIKey != "" {
		adapters = append(adapters, source.NewProviderAdapter(cfg.ProviderURL, cfg.ProviderAPIKey, 5, slogger))
	}
	registry := source.NewRegistry(adapters...)

	verifier := verify.NewClient(cfg.VerifyURL, slogger)
	stage := ingest.NewStage(db, db, db, verifier, slogger)
	runState := kv.NewRunState(kvStore)
	orch := orchestrator.New(
		registry,
		stage,
		db,
		db,
		lock.New(lockStore),
		runState,
		orchestrator.NewAlerter(cfg.AlertWebhookURL, slogger),
		cfg.LockTTL,
		slogger,
	)

	// Use an Observable Gauge (Async) that queries the DB only when scraped.
	meter := otel.Meter("marketcap-controller")
	_, err = meter.Int64ObservableGauge("marketcap.companies.skeleton",
		metric.WithDescription("Companies still awaiting enrichment"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := db.CountSkeletonCompanies(ctx)
			if err != nil {
				log.Printf("Failed to count skeleton companies: %v", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register skeleton gauge: %v", err)
	}

	// Start Server
	h := handlers.New(db, orch, kvPing, registry, runState, cfg.DefaultMaxItems, cfg.DefaultMaxRuntime)
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, controller.Options{
		Handlers:       h,
		InternalToken:  cfg.InternalToken,
		MetricsHandler: metricsHandler,
		ReadRPS:        20,
		ReadBurst:      40,
	})

	go func() {
		log.Printf("Marketcap Controller starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down controller...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
