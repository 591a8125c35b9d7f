package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/common/id"
	"personacard.app/agent/internal/freshness"
	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/metrics"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/persona"
	"personacard.app/agent/internal/store"
)

const evalStagePersona = "persona"

// SkippedCurrent is the message of a persona run skipped because the latest
// persona already reflects the stored casts and snapshot.
const SkippedCurrent = "SKIPPED_PERSONA_CURRENT"

// PersonaGenerator is the summarization client.
type PersonaGenerator interface {
	Generate(ctx context.Context, in persona.Input) (*persona.Result, error)
	Headline(ctx context.Context, labels, topics []string, summary string) string
}

type CastSampler interface {
	Sample(casts []model.Cast) []model.SampledCast
}

type PersonaResult struct {
	RunID     int64  `json:"run_id"`
	PersonaID int64  `json:"persona_id"`
	Sampled   int    `json:"sampled"`
	Skipped   bool   `json:"skipped"`
	Message   string `json:"message,omitempty"`
}

type PersonaService interface {
	Generate(ctx context.Context, fid int64) (*PersonaResult, error)
	// GenerateIfStale generates only when NeedsRegeneration reports true.
	GenerateIfStale(ctx context.Context, fid int64) (*PersonaResult, error)
	NeedsRegeneration(ctx context.Context, fid int64) (bool, error)
	Latest(ctx context.Context, fid int64) (*model.Persona, error)
}

type PersonaDeps struct {
	Casts     store.CastStore
	Contexts  store.ContextStore
	Personas  store.PersonaStore
	Runs      store.PipelineRunStore
	Evals     store.LLMEvalStore
	Gate      *freshness.Gate
	Sampler   CastSampler
	Generator PersonaGenerator
	Locker    lock.Locker
	Metrics   *metrics.Metrics
	Clock     clock.Clock
}

type personaService struct {
	PersonaDeps
}

func NewPersonaService(deps PersonaDeps) PersonaService {
	return newPersonaService(deps)
}

func newPersonaService(deps PersonaDeps) *personaService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &personaService{PersonaDeps: deps}
}

func (s *personaService) Generate(ctx context.Context, fid int64) (*PersonaResult, error) {
	release, err := s.Locker.Acquire(ctx, fid)
	if err != nil {
		return nil, &RunError{Phase: model.PhasePersona, State: StateIdle, Reason: classify(StateIdle, err), Err: err}
	}
	defer release()

	return s.generate(ctx, fid)
}

func (s *personaService) GenerateIfStale(ctx context.Context, fid int64) (*PersonaResult, error) {
	release, err := s.Locker.Acquire(ctx, fid)
	if err != nil {
		return nil, &RunError{Phase: model.PhasePersona, State: StateIdle, Reason: classify(StateIdle, err), Err: err}
	}
	defer release()

	return s.generateIfStale(ctx, fid)
}

// generate is Generate without the per-user lock; callers must hold it.
func (s *personaService) generate(ctx context.Context, fid int64) (*PersonaResult, error) {
	ctx, r := startRun(ctx, s.Runs, s.Metrics, s.Clock, model.PhasePersona, fid)
	return s.generateInRun(ctx, r, fid)
}

// generateIfStale is GenerateIfStale without the per-user lock. A current
// persona ends the run as skipped.
func (s *personaService) generateIfStale(ctx context.Context, fid int64) (*PersonaResult, error) {
	ctx, r := startRun(ctx, s.Runs, s.Metrics, s.Clock, model.PhasePersona, fid)

	ctx = r.enter(ctx, StateGating)
	stale, err := s.Gate.NeedsRegeneration(ctx, fid)
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("checking persona freshness: %w", err))
	}
	if !stale {
		slog.InfoContext(ctx, "persona is current, skipping generation")
		r.skip(ctx, "persona_current")
		return &PersonaResult{RunID: r.ID(), Skipped: true, Message: SkippedCurrent}, nil
	}
	return s.generateInRun(ctx, r, fid)
}

func (s *personaService) generateInRun(ctx context.Context, r *run, fid int64) (*PersonaResult, error) {
	result := &PersonaResult{RunID: r.ID()}

	ctx = r.enter(ctx, StateSampling)
	uc, err := s.Contexts.GetByFID(ctx, fid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, r.fail(ctx, ErrNoContext)
	}
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("loading context: %w", err))
	}

	casts, err := s.Casts.ListByFID(ctx, fid)
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("loading casts: %w", err))
	}
	if len(casts) == 0 {
		return nil, r.fail(ctx, ErrNoCasts)
	}

	sampled := s.Sampler.Sample(casts)
	result.Sampled = len(sampled)
	slog.InfoContext(ctx, "casts sampled", "total", len(casts), "sampled", len(sampled))

	ctx = r.enter(ctx, StateSummarizing)
	res, err := s.Generator.Generate(ctx, persona.Input{
		FID:     fid,
		Metrics: persona.MetricsFromContext(uc),
		Casts:   sampled,
	})
	if res != nil {
		s.recordEval(ctx, fid, res)
	}
	if err != nil {
		if res != nil && res.RawJSON != "" {
			slog.WarnContext(ctx, "persona output rejected", "raw", truncateRunes(res.RawJSON, 500))
		}
		return nil, r.fail(ctx, err)
	}

	ctx = r.enter(ctx, StateStoring)
	p := res.Output.ToModel(fid)
	p.ID = id.New()
	p.ContextID = &uc.ID
	p.GeneratedAt = s.Clock.Now()
	p.ModelUsed = res.Model
	p.PromptVersion = res.PromptVersion
	p.RawJSON = jsonOrString(res.RawJSON)

	stored, err := s.Personas.Create(ctx, p)
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("storing persona: %w", err))
	}
	result.PersonaID = stored.ID

	slog.InfoContext(ctx, "persona stored",
		"persona_id", stored.ID,
		"context_id", uc.ID,
		"labels", stored.PersonaLabels,
		"confidence", stored.ConfidenceScore)
	r.succeed(ctx)
	return result, nil
}

// recordEval keeps every summarization call, rejected ones included. Failures
// are logged only.
func (s *personaService) recordEval(ctx context.Context, fid int64, res *persona.Result) {
	if s.Metrics != nil {
		s.Metrics.AddLLMTokens(res.Model, res.PromptTokens, res.CompletionTokens)
	}
	if s.Evals == nil {
		return
	}

	latency := int(res.Latency.Milliseconds())
	eval := &model.LLMEval{
		ID:               id.New(),
		FID:              fid,
		Stage:            evalStagePersona,
		InputText:        res.Prompt,
		OutputJSON:       jsonOrString(res.RawJSON),
		Model:            res.Model,
		Temperature:      &res.Temperature,
		PromptVersion:    res.PromptVersion,
		LatencyMs:        &latency,
		PromptTokens:     &res.PromptTokens,
		CompletionTokens: &res.CompletionTokens,
	}
	if _, err := s.Evals.Create(ctx, eval); err != nil {
		slog.WarnContext(ctx, "failed to record llm eval", "error", err)
	}
}

func (s *personaService) NeedsRegeneration(ctx context.Context, fid int64) (bool, error) {
	return s.Gate.NeedsRegeneration(ctx, fid)
}

func (s *personaService) Latest(ctx context.Context, fid int64) (*model.Persona, error) {
	return s.Personas.GetLatestByFID(ctx, fid)
}

// jsonOrString returns raw when it is valid JSON and raw encoded as a JSON
// string otherwise, so malformed model output still fits a jsonb column.
func jsonOrString(raw string) json.RawMessage {
	if raw == "" {
		return nil
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}
