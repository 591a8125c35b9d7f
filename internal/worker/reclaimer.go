package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"personacard.app/agent/common/logger"
	"personacard.app/agent/internal/queue"
)

type ReclaimerConfig struct {
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
	// MaxDeliveries dead-letters a message that has been handed out this many
	// times without an ack. Such a message most likely kills the worker.
	MaxDeliveries int64
}

// PendingClaimer lists and takes over stream entries other consumers left
// unacknowledged.
type PendingClaimer interface {
	Stale(ctx context.Context, minIdle time.Duration, count int64) ([]redis.XPendingExt, error)
	Claim(ctx context.Context, id string, minIdle time.Duration) (*redis.XMessage, error)
}

// Reclaimer re-runs tasks stuck in the pending list after a worker crashed
// between reading and acking them.
type Reclaimer struct {
	claimer   PendingClaimer
	consumer  Consumer
	processor queue.MessageProcessor
	cfg       ReclaimerConfig

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(claimer PendingClaimer, consumer Consumer, processor queue.MessageProcessor, cfg ReclaimerConfig) *Reclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	return &Reclaimer{
		claimer:   claimer,
		consumer:  consumer,
		processor: processor,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until Stop is called or ctx ends.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "agent.worker.reclaimer"})
	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"max_deliveries", r.cfg.MaxDeliveries)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if n, err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			} else if n > 0 {
				slog.InfoContext(ctx, "reclaim cycle finished", "reclaimed", n)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// ReclaimOnce handles one page of stale entries and returns how many it took
// over. Failures on single entries are logged and skipped.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) (int, error) {
	stale, err := r.claimer.Stale(ctx, r.cfg.MinIdle, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing pending entries: %w", err)
	}

	reclaimed := 0
	for _, p := range stale {
		ok, err := r.reclaim(ctx, p)
		if err != nil {
			slog.ErrorContext(ctx, "failed to reclaim message",
				"error", err,
				"message_id", p.ID,
				"original_consumer", p.Consumer)
			continue
		}
		if ok {
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (r *Reclaimer) reclaim(ctx context.Context, p redis.XPendingExt) (bool, error) {
	msgID := p.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: &msgID})

	raw, err := r.claimer.Claim(ctx, p.ID, r.cfg.MinIdle)
	if err != nil {
		return false, err
	}
	if raw == nil {
		// Another reclaimer got there first.
		return false, nil
	}

	msg, err := queue.ParseMessage(*raw)
	if err != nil {
		slog.ErrorContext(ctx, "dropping unparseable reclaimed message", "error", err)
		return true, r.consumer.Ack(ctx, queue.Message{ID: raw.ID, Raw: *raw})
	}

	task := string(msg.TaskType)
	ctx = logger.WithLogFields(ctx, logger.LogFields{FID: logger.Ptr(msg.FID), TaskType: &task})

	if p.RetryCount >= r.cfg.MaxDeliveries {
		slog.ErrorContext(ctx, "message keeps stalling, sending to DLQ",
			"deliveries", p.RetryCount,
			"original_consumer", p.Consumer)
		return true, r.consumer.SendDLQ(ctx, msg, fmt.Sprintf("stalled after %d deliveries", p.RetryCount))
	}

	slog.InfoContext(ctx, "reprocessing stale message",
		"original_consumer", p.Consumer,
		"idle", p.Idle.String(),
		"deliveries", p.RetryCount)

	// The processor settles the message itself, so a failure here has
	// already been requeued or dropped.
	start := time.Now()
	if err := r.processor(ctx, msg); err != nil {
		slog.WarnContext(ctx, "reclaimed message failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	}
	return true, nil
}

// RedisClaimer implements PendingClaimer on a consumer group.
type RedisClaimer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

func NewRedisClaimer(client *redis.Client, stream, group, consumer string) *RedisClaimer {
	return &RedisClaimer{client: client, stream: stream, group: group, consumer: consumer}
}

func (c *RedisClaimer) Stale(ctx context.Context, minIdle time.Duration, count int64) ([]redis.XPendingExt, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending: %w", err)
	}
	return pending, nil
}

func (c *RedisClaimer) Claim(ctx context.Context, id string, minIdle time.Duration) (*redis.XMessage, error) {
	msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xclaim: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}
