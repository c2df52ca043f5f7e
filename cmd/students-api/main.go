// main is the entry point of the students dashboard API.
//
// STARTUP SEQUENCE:
//  1. Load configuration (YAML file optional, env always applies)
//  2. Initialise the zap logger and install it globally
//  3. Connect to the configured store (sqlite or mongo); failure is fatal
//  4. Build the Codeforces client, with a Redis cache when REDIS_ADDR is set
//  5. Start the scheduled rating sync
//  6. Register routes, wrap them in middleware and serve
//  7. On SIGINT/SIGTERM: drain requests, stop the sync, close the store
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
//
// or
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-api
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aanand-mishra/students-dashboard/internal/codeforces"
	"github.com/aanand-mishra/students-dashboard/internal/config"
	"github.com/aanand-mishra/students-dashboard/internal/http/handlers/student"
	"github.com/aanand-mishra/students-dashboard/internal/http/middleware"
	"github.com/aanand-mishra/students-dashboard/internal/ratingsync"
	"github.com/aanand-mishra/students-dashboard/internal/storage"
	"github.com/aanand-mishra/students-dashboard/internal/storage/mongo"
	"github.com/aanand-mishra/students-dashboard/internal/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// ── 1. Config ─────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Logger ─────────────────────────────────────────────────────────
	log, err := setupLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log)

	log.Info("starting students-api",
		zap.String("env", cfg.Env),
		zap.String("storage_driver", cfg.StorageDriver))

	// ── 3. Storage ────────────────────────────────────────────────────────
	// Without a store every route would answer 500, so refuse to start.
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatal("failed to initialise storage", zap.Error(err))
	}
	log.Info("storage initialised", zap.String("driver", cfg.StorageDriver))

	// ── 4. Rating lookup ──────────────────────────────────────────────────
	lookup, closeCache := newLookup(cfg, log)
	defer closeCache()

	// ── 5. Rating sync ────────────────────────────────────────────────────
	job := ratingsync.New(store, lookup, cfg.Sync, log)
	if err := job.Start(); err != nil {
		log.Fatal("failed to start rating sync", zap.Error(err))
	}

	// ── 6. HTTP server ────────────────────────────────────────────────────
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newHandler(cfg, store, lookup, job, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server started", zap.String("address", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server encountered an error", zap.Error(err))
		}
	}()

	// ── 7. Graceful shutdown ──────────────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", zap.Error(err))
	}
	job.Stop(ctx)
	if err := store.Close(); err != nil {
		log.Error("failed to close storage", zap.Error(err))
	}

	log.Info("server stopped gracefully")
}

// setupLogger returns a logger for env.
//
// dev (and anything unrecognised): console output at DEBUG.
// staging: JSON at DEBUG. prod: JSON at INFO.
func setupLogger(env string) (*zap.Logger, error) {
	switch env {
	case "prod":
		return zap.NewProduction()
	case "staging":
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	default:
		return zap.NewDevelopment()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		m, err := mongo.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.DriverSQLite:
		s, err := sqlite.New(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// newLookup builds the Codeforces client. The returned func closes the
// Redis connection, if one was opened.
func newLookup(cfg *config.Config, log *zap.Logger) (*codeforces.Client, func()) {
	if cfg.Redis.Addr == "" {
		log.Info("rating lookup cache disabled")
		return codeforces.NewClient(cfg.Codeforces.BaseURL, cfg.Codeforces.Timeout), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	log.Info("rating lookup cache enabled",
		zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.CacheTTL))

	client := codeforces.NewClient(cfg.Codeforces.BaseURL, cfg.Codeforces.Timeout,
		codeforces.WithCache(codeforces.NewRedisCache(rdb, cfg.Redis.CacheTTL)))
	return client, func() { _ = rdb.Close() }
}

// newHandler registers every route and wraps the router in middleware,
// outermost first: CORS, request id, real ip, logging, panic recovery,
// metrics.
func newHandler(cfg *config.Config, store storage.Storage, lookup codeforces.Lookup, syncer student.Syncer, log *zap.Logger) http.Handler {
	router := http.NewServeMux()

	student.RegisterRoutes(router, store, lookup, syncer)
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("GET /metrics", middleware.MetricsHandler())

	origins := []string{"*"}
	if cfg.FrontendURL != "" {
		origins = []string{cfg.FrontendURL}
	}

	var h http.Handler = router
	h = middleware.Metrics(h)
	h = chimw.Recoverer(h)
	h = middleware.Logger(log)(h)
	h = chimw.RealIP(h)
	h = chimw.RequestID(h)
	h = cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	})(h)
	return h
}
