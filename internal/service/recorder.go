package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/common/id"
	"personacard.app/agent/common/logger"
	"personacard.app/agent/internal/metrics"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/store"
)

// run tracks one ingestion or persona run: its state, the pipeline_runs row
// and the per-state timings. Every state change is logged.
type run struct {
	phase   model.Phase
	fid     int64
	state   State
	entered time.Time
	row     *model.PipelineRun

	runs    store.PipelineRunStore
	metrics *metrics.Metrics
	clock   clock.Clock
	span    *logger.SpanContext
}

// startRun opens a span and a pipeline_runs row. A failure to record the row
// is logged and the run carries on unrecorded.
func startRun(ctx context.Context, runs store.PipelineRunStore, m *metrics.Metrics, clk clock.Clock, phase model.Phase, fid int64) (context.Context, *run) {
	sc := logger.StartSpan(ctx, string(phase)+".run",
		trace.WithAttributes(attribute.Int64("fid", fid)))
	ctx = sc.Context()

	now := clk.Now()
	r := &run{
		phase:   phase,
		fid:     fid,
		state:   StateIdle,
		entered: now,
		runs:    runs,
		metrics: m,
		clock:   clk,
		span:    sc,
		row: &model.PipelineRun{
			ID:        id.New(),
			FID:       fid,
			Phase:     phase,
			Status:    model.RunStatusRunning,
			State:     string(StateIdle),
			StartedAt: now,
		},
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		FID:   logger.Ptr(fid),
		RunID: logger.Ptr(r.row.ID),
		Phase: logger.Ptr(string(phase)),
	})

	if runs != nil {
		if _, err := runs.Create(ctx, r.row); err != nil {
			slog.WarnContext(ctx, "failed to record pipeline run", "error", err)
			r.runs = nil
		}
	}
	slog.InfoContext(ctx, "run started")
	return ctx, r
}

func (r *run) ID() int64 {
	return r.row.ID
}

// enter moves the run to next and returns ctx tagged with the new state.
func (r *run) enter(ctx context.Context, next State) context.Context {
	now := r.clock.Now()
	if r.metrics != nil && r.state != StateIdle {
		r.metrics.ObserveState(string(r.phase), string(r.state), now.Sub(r.entered))
	}
	slog.DebugContext(ctx, "state transition", "from", r.state, "to", next)
	r.state = next
	r.entered = now
	r.row.State = string(next)
	return logger.WithLogFields(ctx, logger.LogFields{State: logger.Ptr(string(next))})
}

// fail ends the run in the error state and returns the classified error.
// A *RunError from a nested run is passed through with its own phase.
func (r *run) fail(ctx context.Context, err error) error {
	var nested *RunError
	if errors.As(err, &nested) {
		r.finish(ctx, model.RunStatusFailed, nested.Reason, err)
		return nested
	}

	failedIn := r.state
	re := &RunError{Phase: r.phase, State: failedIn, Reason: classify(failedIn, err), Err: err}
	r.finish(ctx, model.RunStatusFailed, re.Reason, err)
	return re
}

func (r *run) succeed(ctx context.Context) {
	r.finish(ctx, model.RunStatusSucceeded, "", nil)
}

func (r *run) skip(ctx context.Context, reason string) {
	r.finish(ctx, model.RunStatusSkipped, Reason(reason), nil)
}

func (r *run) finish(ctx context.Context, status model.RunStatus, reason Reason, err error) {
	defer r.span.End()

	failedIn := r.state
	if status == model.RunStatusFailed {
		ctx = r.enter(ctx, StateError)
		r.row.State = string(failedIn)
		r.span.RecordError(err)
	} else {
		ctx = r.enter(ctx, StateDone)
	}

	now := r.clock.Now()
	r.row.Status = status
	r.row.FinishedAt = &now
	if reason != "" {
		r.row.Reason = logger.Ptr(string(reason))
	}
	if err != nil {
		r.row.Error = logger.Ptr(logger.Truncate(err.Error(), 1000))
	}

	if r.metrics != nil {
		r.metrics.RecordRun(string(r.phase), string(status), string(reason))
	}
	if r.runs != nil {
		if ferr := r.runs.Finish(ctx, r.row); ferr != nil {
			slog.WarnContext(ctx, "failed to finish pipeline run", "error", ferr)
		}
	}

	attrs := []any{
		"status", status,
		"duration_ms", now.Sub(r.row.StartedAt).Milliseconds(),
	}
	switch status {
	case model.RunStatusFailed:
		slog.ErrorContext(ctx, "run failed", append(attrs, "failed_state", failedIn, "reason", reason, "error", err)...)
	case model.RunStatusSkipped:
		slog.InfoContext(ctx, "run skipped", append(attrs, "reason", reason)...)
	default:
		slog.InfoContext(ctx, "run finished", attrs...)
	}
}
