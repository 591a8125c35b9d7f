package handler_test

import (
	"context"

	"personacard.app/agent/internal/credits"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/service"
)

type mockIngestionService struct {
	runFn func(ctx context.Context, fid int64, opts service.IngestOptions) (*service.IngestionResult, error)
}

func (m *mockIngestionService) Run(ctx context.Context, fid int64, opts service.IngestOptions) (*service.IngestionResult, error) {
	if m.runFn != nil {
		return m.runFn(ctx, fid, opts)
	}
	return &service.IngestionResult{}, nil
}

type mockPersonaService struct {
	generateFn func(ctx context.Context, fid int64) (*service.PersonaResult, error)
	calls      int
	staleCalls int
}

func (m *mockPersonaService) Generate(ctx context.Context, fid int64) (*service.PersonaResult, error) {
	m.calls++
	if m.generateFn != nil {
		return m.generateFn(ctx, fid)
	}
	return &service.PersonaResult{}, nil
}

func (m *mockPersonaService) GenerateIfStale(_ context.Context, _ int64) (*service.PersonaResult, error) {
	m.staleCalls++
	return &service.PersonaResult{Skipped: true, Message: service.SkippedCurrent}, nil
}

func (m *mockPersonaService) NeedsRegeneration(_ context.Context, _ int64) (bool, error) {
	return false, nil
}

func (m *mockPersonaService) Latest(_ context.Context, _ int64) (*model.Persona, error) {
	return nil, nil
}

type mockPipelineService struct {
	runFn func(ctx context.Context, fid int64, opts service.IngestOptions) (*service.PipelineResult, error)
}

func (m *mockPipelineService) Run(ctx context.Context, fid int64, opts service.IngestOptions) (*service.PipelineResult, error) {
	if m.runFn != nil {
		return m.runFn(ctx, fid, opts)
	}
	return &service.PipelineResult{}, nil
}

type mockCardService struct {
	buildFn func(ctx context.Context, fid int64) (*service.CardView, error)
}

func (m *mockCardService) Build(ctx context.Context, fid int64) (*service.CardView, error) {
	if m.buildFn != nil {
		return m.buildFn(ctx, fid)
	}
	return nil, service.ErrNoCard
}

type mockCreditsService struct {
	status credits.Status
}

func (m *mockCreditsService) Status() credits.Status {
	return m.status
}

type mockDataService struct {
	resetFn func(ctx context.Context, fid int64) (*service.ResetResult, error)
}

func (m *mockDataService) Reset(ctx context.Context, fid int64) (*service.ResetResult, error) {
	if m.resetFn != nil {
		return m.resetFn(ctx, fid)
	}
	return &service.ResetResult{}, nil
}

type mockTaskService struct {
	enqueueFn func(ctx context.Context, taskType queue.TaskType, fid int64, force bool) (string, error)
}

func (m *mockTaskService) Enqueue(ctx context.Context, taskType queue.TaskType, fid int64, force bool) (string, error) {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, taskType, fid, force)
	}
	return "1-0", nil
}
