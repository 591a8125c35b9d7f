package service

import (
	"context"
	"log/slog"

	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/model"
)

// PipelineResult holds whatever each phase produced, including on failure.
type PipelineResult struct {
	Ingestion *IngestionResult `json:"ingestion,omitempty"`
	Persona   *PersonaResult   `json:"persona,omitempty"`
}

type PipelineService interface {
	Run(ctx context.Context, fid int64, opts IngestOptions) (*PipelineResult, error)
}

type pipelineService struct {
	locker    lock.Locker
	ingestion *ingestionService
	persona   *personaService
}

// NewPipelineService chains ingestion and persona generation under one hold
// of the per-user lock. Without Force the persona phase only runs when the
// latest persona is stale.
func NewPipelineService(locker lock.Locker, ingestion IngestionDeps, persona PersonaDeps) PipelineService {
	return &pipelineService{
		locker:    locker,
		ingestion: newIngestionService(ingestion),
		persona:   newPersonaService(persona),
	}
}

func (s *pipelineService) Run(ctx context.Context, fid int64, opts IngestOptions) (*PipelineResult, error) {
	result := &PipelineResult{}

	release, err := s.locker.Acquire(ctx, fid)
	if err != nil {
		return result, &RunError{Phase: model.PhaseIngestion, State: StateIdle, Reason: classify(StateIdle, err), Err: err}
	}
	defer release()

	ing, err := s.ingestion.run(ctx, fid, opts)
	result.Ingestion = ing
	if err != nil {
		return result, err
	}

	var per *PersonaResult
	if opts.Force {
		per, err = s.persona.generate(ctx, fid)
	} else {
		per, err = s.persona.generateIfStale(ctx, fid)
	}
	result.Persona = per
	if err != nil {
		return result, err
	}

	slog.InfoContext(ctx, "pipeline completed",
		"fid", fid,
		"persona_id", per.PersonaID,
		"persona_skipped", per.Skipped)
	return result, nil
}
