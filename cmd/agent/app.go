package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/common/id"
	"personacard.app/agent/common/llm"
	"personacard.app/agent/common/logger"
	"personacard.app/agent/core/config"
	"personacard.app/agent/core/db"
	"personacard.app/agent/internal/credits"
	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/neynar"
	"personacard.app/agent/internal/persona"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/sampling"
	"personacard.app/agent/internal/service"
	"personacard.app/agent/internal/store"
	"personacard.app/agent/internal/worker"
)

// app holds what a CLI invocation needs. Redis is optional here: without it
// runs are serialized in-process and enqueue is unavailable.
type app struct {
	cfg      config.Config
	stores   *store.Stores
	services *service.Services
	tracker  *credits.Tracker

	close func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger.Setup(cfg)

	// Distinct node from the server (1) and worker (2).
	if err := id.Init(3); err != nil {
		return nil, fmt.Errorf("initializing id generator: %w", err)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	closers := []func(){database.Close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		locker   lock.Locker = lock.NewLocalLocker()
		producer queue.Producer
	)
	if opts, err := redis.ParseURL(cfg.Pipeline.RedisURL); err == nil {
		client := redis.NewClient(opts)
		if pingErr := client.Ping(ctx).Err(); pingErr == nil {
			locker = lock.NewRedisLocker(client, cfg.Ingestion.LockTTL)
			producer = queue.NewRedisProducer(client, cfg.Pipeline.RedisStream, slog.Default())
			closers = append(closers, func() { _ = client.Close() })
		} else {
			slog.WarnContext(ctx, "redis unavailable, using in-process locks", "error", pingErr)
			_ = client.Close()
		}
	}

	llmClient, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	clk := clock.Real()
	tracker := credits.NewTracker(clk, cfg.Neynar.DailyCreditLimit)
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
		Locker:   locker,
		Credits:  tracker,
		Producer: producer,
		Clock:    clk,
		Cooldown: cfg.Ingestion.Cooldown,
		MaxCasts: cfg.Neynar.MaxCasts,
	})

	return &app{
		cfg:      cfg,
		stores:   stores,
		services: services,
		tracker:  tracker,
		close:    closeAll,
	}, nil
}

func (a *app) batchRunner(kind queue.TaskType, force bool) *worker.BatchRunner {
	pause := a.cfg.Ingestion.UserPause
	if kind == queue.TaskTypePersona {
		pause = a.cfg.Ingestion.PersonaPause
	}
	processor := worker.NewProcessor(a.services.Ingestion(), a.services.Persona(), a.services.Pipeline())
	return worker.NewBatchRunner(a.stores.Users(), processor, worker.BatchConfig{
		Concurrency: a.cfg.Ingestion.BatchConcurrency,
		Pause:       pause,
		Force:       force,
	})
}
