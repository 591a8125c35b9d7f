package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"personacard.app/agent/common/logger"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/service"
	"personacard.app/agent/internal/store"
)

type BatchConfig struct {
	// Concurrency bounds the users processed at once.
	Concurrency int
	// Pause is the delay between starting two users.
	Pause time.Duration
	Force bool
}

type BatchSummary struct {
	Users     int `json:"users"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// NotStarted counts users left out after the credit budget ran out.
	NotStarted    int  `json:"not_started"`
	QuotaExceeded bool `json:"quota_exceeded"`
}

// BatchRunner runs one task kind for every registered user with a fid.
type BatchRunner struct {
	users     store.UserReader
	processor TaskProcessor
	cfg       BatchConfig
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewBatchRunner(users store.UserReader, processor TaskProcessor, cfg BatchConfig) *BatchRunner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &BatchRunner{
		users:     users,
		processor: processor,
		cfg:       cfg,
		sleep:     sleepCtx,
	}
}

// RunAll stops launching users once any run reports the credit budget
// exhausted; runs already started finish. Per-user failures are counted, not
// returned.
func (b *BatchRunner) RunAll(ctx context.Context, kind queue.TaskType) (*BatchSummary, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "agent.worker.batch",
		TaskType:  logger.Ptr(string(kind)),
	})

	users, err := b.users.ListWithFID(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	summary := &BatchSummary{Users: len(users)}
	slog.InfoContext(ctx, "batch started",
		"users", len(users),
		"concurrency", b.cfg.Concurrency,
		"pause", b.cfg.Pause.String())

	var (
		mu        sync.Mutex
		exhausted atomic.Bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)

	for i, u := range users {
		if exhausted.Load() {
			mu.Lock()
			summary.NotStarted += len(users) - i
			mu.Unlock()
			break
		}
		if i > 0 && b.cfg.Pause > 0 {
			if err := b.sleep(gctx, b.cfg.Pause); err != nil {
				break
			}
		}
		if u.FID == nil {
			continue
		}

		fid := *u.FID
		g.Go(func() error {
			// g.Go may have waited for a slot while another run used up
			// the budget.
			if exhausted.Load() {
				mu.Lock()
				summary.NotStarted++
				mu.Unlock()
				return nil
			}
			err := b.processor.Process(gctx, queue.Message{TaskType: kind, FID: fid, Force: b.cfg.Force, Attempt: 1})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Succeeded++
			case service.IsQuotaExceeded(err):
				summary.Failed++
				exhausted.Store(true)
				slog.WarnContext(gctx, "credit budget exhausted, stopping batch", "fid", fid)
			default:
				summary.Failed++
				slog.WarnContext(gctx, "batch run failed", "fid", fid, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	summary.QuotaExceeded = exhausted.Load()

	slog.InfoContext(ctx, "batch finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"not_started", summary.NotStarted,
		"quota_exceeded", summary.QuotaExceeded)
	return summary, ctx.Err()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
