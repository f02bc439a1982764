package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"sjsage522/jobworker/config"
	"sjsage522/jobworker/internal/api"
	"sjsage522/jobworker/internal/crawler"
	"sjsage522/jobworker/internal/jobs"
	"sjsage522/jobworker/internal/scheduler"
	"sjsage522/jobworker/internal/store"
	"sjsage522/jobworker/logger"
	"sjsage522/jobworker/services/bulk"
	"sjsage522/jobworker/services/cache"
	"sjsage522/jobworker/services/publisher"
	"sjsage522/jobworker/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.ValidateServer(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("port", cfg.Port).
		Str("detail_fetch", cfg.ScrapeDetailFetch).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	jobService := jobs.NewService(services.Store, services.Publisher, cfg.DefaultPageSize, cfg.MaxPageSize)

	guard := cache.NewBlockGuard(services.Cache, worker.BlockKey, cfg.ScrapeBlockTime)
	w := worker.NewWorker(
		crawler.NewChromeSession,
		bulk.NewClient(cfg.BulkChunkSize, cfg.BulkPause),
		guard,
		cfg.ScrapeDetailFetch,
	)
	runner := worker.NewRunner(ctx, w)

	sched := scheduler.New(runner, services.Publisher, cfg.ScrapeSchedule, worker.RunOptions{
		Limit:    cfg.ScrapeLimit,
		Headless: cfg.ScrapeHeadless,
		APIBase:  cfg.ScrapeAPIBase,
		BaseURL:  cfg.ScrapeBaseURL,
	})
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(jobService, runner, cfg.CORSOrigins).Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		serverDone <- srv.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()
	runner.Wait()
}

// Services holds all the initialized services
type Services struct {
	Pool      *pgxpool.Pool
	Store     *store.Store
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// initializeServices initializes all required services. The database is
// required; Memcache and Redis degrade to no rate-limit block and no events.
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	services.Pool = pool
	services.Store = store.New(pool)
	if err := services.Store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Connected to PostgreSQL, schema ready")

	memcache := cache.NewMemcacheService(cfg.MemcacheAddr)
	if err := memcache.Ping(); err != nil {
		logger.Warn("Memcache at %s unavailable, rate-limit blocks disabled: %v", cfg.MemcacheAddr, err)
	} else {
		services.Cache = memcache
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	redisPublisher := publisher.NewRedisPublisher(
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(ctx); err != nil {
		logger.Warn("Redis at %s unavailable, job events disabled: %v", cfg.RedisAddr, err)
		redisPublisher.Close()
		services.Publisher = publisher.Nop{}
	} else {
		services.Publisher = redisPublisher
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	return services, nil
}
