package store

import (
	"context"

	"personacard.app/agent/internal/model"
)

// CastStore is the post store: append-or-update by hash, read by author.
type CastStore interface {
	// Upsert inserts the cast or, when the hash already exists, refreshes its
	// text, counters and raw payload.
	Upsert(ctx context.Context, cast *model.Cast) (*model.Cast, error)
	ListByFID(ctx context.Context, fid int64) ([]model.Cast, error)
	GetLatestByFID(ctx context.Context, fid int64) (*model.Cast, error)
	CountByFID(ctx context.Context, fid int64) (int64, error)
	DeleteByFID(ctx context.Context, fid int64) (int64, error)
}

// ContextStore holds at most one activity snapshot per user.
type ContextStore interface {
	Upsert(ctx context.Context, uc *model.UserContext) (*model.UserContext, error)
	GetByFID(ctx context.Context, fid int64) (*model.UserContext, error)
	DeleteByFID(ctx context.Context, fid int64) error
}

type PersonaStore interface {
	Create(ctx context.Context, p *model.Persona) (*model.Persona, error)
	GetLatestByFID(ctx context.Context, fid int64) (*model.Persona, error)
	DeleteByFID(ctx context.Context, fid int64) error
}

// UserReader reads the application-owned users table.
type UserReader interface {
	GetByFID(ctx context.Context, fid int64) (*model.PublicUser, error)
	ListWithFID(ctx context.Context) ([]model.PublicUser, error)
}

type PipelineRunStore interface {
	Create(ctx context.Context, run *model.PipelineRun) (*model.PipelineRun, error)
	Finish(ctx context.Context, run *model.PipelineRun) error
	ListByFID(ctx context.Context, fid int64, limit int32) ([]model.PipelineRun, error)
}

type LLMEvalStore interface {
	Create(ctx context.Context, eval *model.LLMEval) (*model.LLMEval, error)
	ListByFID(ctx context.Context, fid int64, limit int32) ([]model.LLMEval, error)
}
