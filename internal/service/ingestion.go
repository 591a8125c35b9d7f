package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/common/id"
	"personacard.app/agent/internal/freshness"
	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/metrics"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/neynar"
	"personacard.app/agent/internal/stats"
	"personacard.app/agent/internal/store"
)

// SkippedCooldown is the message of an ingestion skipped by the freshness gate.
const SkippedCooldown = "SKIPPED_COOLDOWN"

// CastFetcher is the slice of the Farcaster API client ingestion depends on.
type CastFetcher interface {
	FetchProfile(ctx context.Context, fid int64) (*neynar.Profile, error)
	FetchCasts(ctx context.Context, fid int64, maxCasts int) ([]neynar.Cast, error)
}

type IngestOptions struct {
	// Force bypasses the freshness gate.
	Force bool
}

type IngestionResult struct {
	RunID          int64              `json:"run_id"`
	CastsFetched   int                `json:"casts_fetched"`
	CastsIngested  int                `json:"casts_ingested"`
	CastsSkipped   int                `json:"casts_skipped"`
	ContextUpdated bool               `json:"context_updated"`
	Skipped        bool               `json:"skipped"`
	Message        string             `json:"message,omitempty"`
	Context        *model.UserContext `json:"-"`
}

type IngestionService interface {
	Run(ctx context.Context, fid int64, opts IngestOptions) (*IngestionResult, error)
}

type IngestionDeps struct {
	Fetcher  CastFetcher
	Casts    store.CastStore
	Contexts store.ContextStore
	Users    store.UserReader
	Runs     store.PipelineRunStore
	Gate     *freshness.Gate
	Locker   lock.Locker
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	MaxCasts int
}

type ingestionService struct {
	IngestionDeps
}

func NewIngestionService(deps IngestionDeps) IngestionService {
	return newIngestionService(deps)
}

func newIngestionService(deps IngestionDeps) *ingestionService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &ingestionService{IngestionDeps: deps}
}

func (s *ingestionService) Run(ctx context.Context, fid int64, opts IngestOptions) (*IngestionResult, error) {
	release, err := s.Locker.Acquire(ctx, fid)
	if err != nil {
		return nil, &RunError{Phase: model.PhaseIngestion, State: StateIdle, Reason: classify(StateIdle, err), Err: err}
	}
	defer release()

	return s.run(ctx, fid, opts)
}

// run is Run without the per-user lock; callers must hold it.
func (s *ingestionService) run(ctx context.Context, fid int64, opts IngestOptions) (*IngestionResult, error) {
	ctx, r := startRun(ctx, s.Runs, s.Metrics, s.Clock, model.PhaseIngestion, fid)
	result := &IngestionResult{RunID: r.ID()}

	ctx = r.enter(ctx, StateGating)
	existing, err := s.Contexts.GetByFID(ctx, fid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, r.fail(ctx, fmt.Errorf("loading context: %w", err))
	}
	if err == nil && !opts.Force && s.Gate.IsFresh(existing) {
		slog.InfoContext(ctx, "context is fresh, skipping ingestion",
			"age", s.Gate.Age(existing).Round(time.Second).String(),
			"cooldown", s.Gate.Cooldown().String())
		result.Skipped = true
		result.Message = SkippedCooldown
		result.Context = existing
		r.skip(ctx, "cooldown")
		return result, nil
	}

	if s.Users != nil {
		if _, err := s.Users.GetByFID(ctx, fid); errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "fid not present in users table, ingesting anyway")
		} else if err != nil {
			slog.WarnContext(ctx, "failed to look up user", "error", err)
		}
	}

	ctx = r.enter(ctx, StateFetching)
	profile, err := s.Fetcher.FetchProfile(ctx, fid)
	if err != nil {
		if errors.Is(err, neynar.ErrProfileNotFound) {
			err = fmt.Errorf("%w: %w", ErrNoProfile, err)
		}
		return nil, r.fail(ctx, err)
	}

	fetched, err := s.Fetcher.FetchCasts(ctx, fid, s.MaxCasts)
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("fetching casts: %w", err))
	}
	result.CastsFetched = len(fetched)
	slog.InfoContext(ctx, "casts fetched", "count", len(fetched))

	ctx = r.enter(ctx, StatePersisting)
	for _, raw := range fetched {
		if err := s.persist(ctx, fid, raw); err != nil {
			slog.WarnContext(ctx, "skipping cast", "hash", raw.Hash, "error", err)
			result.CastsSkipped++
			continue
		}
		result.CastsIngested++
	}
	r.row.CastsIngested = result.CastsIngested
	if s.Metrics != nil {
		s.Metrics.AddCastsIngested(result.CastsIngested)
	}

	ctx = r.enter(ctx, StateAggregating)
	casts, err := s.Casts.ListByFID(ctx, fid)
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("loading casts: %w", err))
	}
	computed, err := stats.Compute(fid, casts, profile.FollowerCount, profile.FollowingCount, s.Clock.Now())
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	computed.ID = id.New()
	stored, err := s.Contexts.Upsert(ctx, computed)
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("storing context: %w", err))
	}
	result.ContextUpdated = true
	result.Context = stored

	slog.InfoContext(ctx, "context updated",
		"total_casts", stored.TotalCastsAnalyzed,
		"casts_last_30d", stored.CastsLast30d,
		"activity_pattern", stored.ActivityPattern,
		"engagement_trend", stored.EngagementTrend,
		"casts_ingested", result.CastsIngested,
		"casts_skipped", result.CastsSkipped)
	r.succeed(ctx)
	return result, nil
}

func (s *ingestionService) persist(ctx context.Context, fid int64, raw neynar.Cast) error {
	cast, err := neynar.ToModel(fid, raw)
	if err != nil {
		return err
	}
	cast.ID = id.New()
	if _, err := s.Casts.Upsert(ctx, cast); err != nil {
		return fmt.Errorf("storing cast: %w", err)
	}
	return nil
}
