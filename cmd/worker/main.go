package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/common/id"
	"personacard.app/agent/common/llm"
	"personacard.app/agent/common/logger"
	"personacard.app/agent/common/otel"
	"personacard.app/agent/core/config"
	"personacard.app/agent/core/db"
	"personacard.app/agent/internal/credits"
	"personacard.app/agent/internal/http/handler"
	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/metrics"
	"personacard.app/agent/internal/neynar"
	"personacard.app/agent/internal/persona"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/sampling"
	"personacard.app/agent/internal/service"
	"personacard.app/agent/internal/store"
	"personacard.app/agent/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)

	slog.InfoContext(ctx, "persona agent worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Use a different node ID than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	clk := clock.Real()
	tracker := credits.NewTracker(clk, cfg.Neynar.DailyCreditLimit)
	tracker.OnChange(func(s credits.Status) { m.SetCredits(s.Used, s.Limit) })

	llmClient, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Queries())
	services := service.NewServices(service.Deps{
		Stores:   stores,
		TxRunner: service.NewTxRunner(database),
		Fetcher:  neynar.New(cfg.Neynar, tracker),
		Generator: persona.NewGenerator(llmClient, persona.Config{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			MaxRetries:  cfg.LLM.MaxRetries,
		}),
		Sampler:  sampling.New(nil, clk),
		Locker:   lock.NewRedisLocker(redisClient, cfg.Ingestion.LockTTL),
		Credits:  tracker,
		Metrics:  m,
		Clock:    clk,
		Cooldown: cfg.Ingestion.Cooldown,
		MaxCasts: cfg.Neynar.MaxCasts,
	})

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1, // one user at a time keeps credit spend predictable
		Block:        5 * time.Second,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	processor := worker.NewProcessor(services.Ingestion(), services.Persona(), services.Pipeline())

	w := worker.New(consumer, processor, m, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	reclaimer := worker.NewReclaimer(
		worker.NewRedisClaimer(redisClient, cfg.Pipeline.RedisStream, cfg.Pipeline.RedisGroup, cfg.Pipeline.RedisConsumer+"-reclaimer"),
		consumer,
		w.ProcessMessage,
		worker.ReclaimerConfig{
			MinIdle:       5 * time.Minute,
			Interval:      time.Minute,
			BatchSize:     10,
			MaxDeliveries: int64(cfg.Pipeline.MaxAttempts) + 2,
		},
	)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	if cfg.Ingestion.BatchInterval > 0 {
		batch := worker.NewBatchRunner(stores.Users(), processor, worker.BatchConfig{
			Concurrency: cfg.Ingestion.BatchConcurrency,
			Pause:       cfg.Ingestion.UserPause,
		})
		go runBatches(ctx, batch, cfg.Ingestion.BatchInterval)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = newMetricsServer(cfg, m, map[string]handler.CheckFunc{
			"postgres": database.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
		go func() {
			slog.InfoContext(ctx, "metrics server starting", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.ErrorContext(ctx, "metrics server error", "error", err)
			}
		}()
	}

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop reclaimer first (quick), then the worker which may be mid-run.
	reclaimer.Stop()
	w.Stop()
	cancel()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(shutdownCtx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(shutdownCtx, "worker error during shutdown", "error", err)
		}
	}

	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "worker shutdown complete")
}

// runBatches runs the all-users pipeline on a fixed interval until ctx ends.
func runBatches(ctx context.Context, batch *worker.BatchRunner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := batch.RunAll(ctx, queue.TaskTypePipeline); err != nil {
				slog.WarnContext(ctx, "scheduled batch ended early", "error", err)
			}
		}
	}
}

func newMetricsServer(cfg config.Config, m *metrics.Metrics, checks map[string]handler.CheckFunc) *http.Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.GET("/metrics", m.Handler())
	health := handler.NewHealthHandler(checks)
	router.GET("/health", health.Live)
	router.GET("/ready", health.Ready)
	return &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

const banner = `
 ___  ___ ___  ___  ___  _  _   _     __      _____  ___ _  _____ ___
| _ \| __| _ \/ __|/ _ \| \| | /_\    \ \    / / _ \| _ \ |/ / __| _ \
|  _/| _||   /\__ \ (_) | .' |/ _ \    \ \/\/ / (_) |   / ' <| _||   /
|_|  |___|_|_\|___/\___/|_|\_/_/ \_\    \_/\_/ \___/|_|_\_|\_\___|_|_\
`
