package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"personacard.app/agent/core/db/sqlc"
	"personacard.app/agent/internal/model"
)

type pipelineRunStore struct {
	queries *sqlc.Queries
}

func newPipelineRunStore(queries *sqlc.Queries) PipelineRunStore {
	return &pipelineRunStore{queries: queries}
}

func (s *pipelineRunStore) Create(ctx context.Context, run *model.PipelineRun) (*model.PipelineRun, error) {
	row, err := s.queries.CreatePipelineRun(ctx, sqlc.CreatePipelineRunParams{
		ID:        run.ID,
		Fid:       run.FID,
		Phase:     string(run.Phase),
		Status:    string(run.Status),
		State:     run.State,
		StartedAt: timestamptz(run.StartedAt),
	})
	if err != nil {
		return nil, err
	}
	return toPipelineRunModel(row), nil
}

func (s *pipelineRunStore) Finish(ctx context.Context, run *model.PipelineRun) error {
	finishedAt := timestamptz(run.StartedAt)
	if run.FinishedAt != nil {
		finishedAt = timestamptz(*run.FinishedAt)
	}
	return s.queries.FinishPipelineRun(ctx, sqlc.FinishPipelineRunParams{
		ID:            run.ID,
		Status:        string(run.Status),
		State:         run.State,
		Reason:        run.Reason,
		Error:         run.Error,
		CastsIngested: int32(run.CastsIngested),
		FinishedAt:    finishedAt,
	})
}

func (s *pipelineRunStore) ListByFID(ctx context.Context, fid int64, limit int32) ([]model.PipelineRun, error) {
	rows, err := s.queries.ListPipelineRunsByFID(ctx, sqlc.ListPipelineRunsByFIDParams{
		Fid:   fid,
		Limit: limit,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []model.PipelineRun{}, nil
		}
		return nil, err
	}
	runs := make([]model.PipelineRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, *toPipelineRunModel(row))
	}
	return runs, nil
}

func toPipelineRunModel(row sqlc.AiAgentPipelineRun) *model.PipelineRun {
	return &model.PipelineRun{
		ID:            row.ID,
		FID:           row.Fid,
		Phase:         model.Phase(row.Phase),
		Status:        model.RunStatus(row.Status),
		State:         row.State,
		Reason:        row.Reason,
		Error:         row.Error,
		CastsIngested: int(row.CastsIngested),
		StartedAt:     row.StartedAt.Time,
		FinishedAt:    optionalTime(row.FinishedAt),
	}
}
