package store

import (
	"context"

	"personacard.app/agent/core/db/sqlc"
	"personacard.app/agent/internal/model"
)

type llmEvalStore struct {
	queries *sqlc.Queries
}

func newLLMEvalStore(queries *sqlc.Queries) LLMEvalStore {
	return &llmEvalStore{queries: queries}
}

func (s *llmEvalStore) Create(ctx context.Context, eval *model.LLMEval) (*model.LLMEval, error) {
	row, err := s.queries.InsertLLMEval(ctx, sqlc.InsertLLMEvalParams{
		ID:               eval.ID,
		Fid:              eval.FID,
		Stage:            eval.Stage,
		InputText:        eval.InputText,
		OutputJson:       eval.OutputJSON,
		Model:            eval.Model,
		Temperature:      eval.Temperature,
		PromptVersion:    eval.PromptVersion,
		LatencyMs:        int32Ptr(eval.LatencyMs),
		PromptTokens:     int32Ptr(eval.PromptTokens),
		CompletionTokens: int32Ptr(eval.CompletionTokens),
	})
	if err != nil {
		return nil, err
	}
	return toLLMEvalModel(row), nil
}

func (s *llmEvalStore) ListByFID(ctx context.Context, fid int64, limit int32) ([]model.LLMEval, error) {
	rows, err := s.queries.ListLLMEvalsByFID(ctx, sqlc.ListLLMEvalsByFIDParams{
		Fid:   fid,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	evals := make([]model.LLMEval, len(rows))
	for i, row := range rows {
		evals[i] = *toLLMEvalModel(row)
	}
	return evals, nil
}

func toLLMEvalModel(row sqlc.AiAgentLlmEval) *model.LLMEval {
	return &model.LLMEval{
		ID:               row.ID,
		FID:              row.Fid,
		Stage:            row.Stage,
		InputText:        row.InputText,
		OutputJSON:       row.OutputJson,
		Model:            row.Model,
		Temperature:      row.Temperature,
		PromptVersion:    row.PromptVersion,
		LatencyMs:        intPtr(row.LatencyMs),
		PromptTokens:     intPtr(row.PromptTokens),
		CompletionTokens: intPtr(row.CompletionTokens),
		CreatedAt:        row.CreatedAt.Time,
	}
}
