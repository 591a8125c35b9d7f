package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"personacard.app/agent/common/logger"
	"personacard.app/agent/internal/metrics"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/service"
)

const (
	outcomeDone    = "done"
	outcomeDropped = "dropped"
	outcomeRetried = "retried"
	outcomeDLQ     = "dlq"
)

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer  Consumer
	processor TaskProcessor
	metrics   *metrics.Metrics
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, processor TaskProcessor, m *metrics.Metrics, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		metrics:   m,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "agent.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		_ = w.ProcessMessage(ctx, msg)
	}
	return nil
}

// ProcessMessage runs one message and settles it: ack on success or on a
// failure retrying cannot fix, requeue on a transient failure, DLQ once the
// attempts are used up. Exported so it can be reused by the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	msgID := msg.ID
	task := string(msg.TaskType)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msgID,
		TaskType:  &task,
		FID:       logger.Ptr(msg.FID),
	})

	slog.InfoContext(ctx, "processing message", "attempt", msg.Attempt, "force", msg.Force)

	err := w.processMessageSafe(ctx, msg)
	if err == nil {
		w.ack(ctx, msg)
		w.record(msg, outcomeDone)
		return nil
	}

	if !retryable(err) {
		attrs := []any{"error", err}
		if re, ok := service.AsRunError(err); ok {
			attrs = append(attrs, "phase", re.Phase, "reason", re.Reason, "failed_state", re.State)
		}
		if service.IsQuotaExceeded(err) {
			slog.WarnContext(ctx, "daily credits exhausted, dropping task until reset", attrs...)
		} else {
			slog.WarnContext(ctx, "task failed permanently, dropping", attrs...)
		}
		w.ack(ctx, msg)
		w.record(msg, outcomeDropped)
		return err
	}

	slog.ErrorContext(ctx, "message processing failed", "error", err)
	w.handleFailedMessage(ctx, msg, err)
	return err
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.processor.Process(ctx, msg)
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ", "attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		w.record(msg, outcomeDLQ)
		return
	}

	slog.WarnContext(ctx, "requeuing failed message", "attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
	w.record(msg, outcomeRetried)
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The reclaimer will pick it up again; runs are safe to repeat.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}
}

func (w *Worker) record(msg queue.Message, outcome string) {
	if w.metrics != nil {
		w.metrics.RecordQueueMessage(string(msg.TaskType), outcome)
	}
}

// retryable is true for failures another attempt may fix. Quota, bad input,
// rejected model output and a concurrent run for the same user are not.
func retryable(err error) bool {
	re, ok := service.AsRunError(err)
	if !ok {
		return true
	}
	switch re.Reason {
	case service.ReasonQuotaExceeded,
		service.ReasonMissingPrecondition,
		service.ReasonMalformedResponse,
		service.ReasonBusy:
		return false
	default:
		return true
	}
}
