package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"personacard.app/agent/core/db/sqlc"
	"personacard.app/agent/internal/model"
)

type personaStore struct {
	queries *sqlc.Queries
}

func newPersonaStore(queries *sqlc.Queries) PersonaStore {
	return &personaStore{queries: queries}
}

func (s *personaStore) Create(ctx context.Context, p *model.Persona) (*model.Persona, error) {
	featured, err := marshalJSONB(p.FeaturedCasts)
	if err != nil {
		return nil, err
	}

	row, err := s.queries.CreatePersona(ctx, sqlc.CreatePersonaParams{
		ID:              p.ID,
		Fid:             p.FID,
		ContextID:       p.ContextID,
		GeneratedAt:     timestamptz(p.GeneratedAt),
		Tone:            p.Tone,
		PrimaryTopics:   nonNil(p.PrimaryTopics),
		SecondaryTopics: nonNil(p.SecondaryTopics),
		PersonaLabels:   nonNil(p.PersonaLabels),
		Summary:         p.Summary,
		Tagline:         p.Tagline,
		FeaturedCasts:   featured,
		ConfidenceScore: p.ConfidenceScore,
		ModelUsed:       p.ModelUsed,
		PromptVersion:   p.PromptVersion,
		RawJson:         p.RawJSON,
	})
	if err != nil {
		return nil, err
	}
	return toPersonaModel(row)
}

func (s *personaStore) GetLatestByFID(ctx context.Context, fid int64) (*model.Persona, error) {
	row, err := s.queries.GetLatestPersonaByFID(ctx, fid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toPersonaModel(row)
}

func (s *personaStore) DeleteByFID(ctx context.Context, fid int64) error {
	return s.queries.DeletePersonasByFID(ctx, fid)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func toPersonaModel(row sqlc.AiAgentPersona) (*model.Persona, error) {
	featured, err := unmarshalJSONB[model.FeaturedCast](row.FeaturedCasts)
	if err != nil {
		return nil, err
	}
	return &model.Persona{
		ID:              row.ID,
		FID:             row.Fid,
		ContextID:       row.ContextID,
		GeneratedAt:     row.GeneratedAt.Time,
		Tone:            row.Tone,
		PrimaryTopics:   nonNil(row.PrimaryTopics),
		SecondaryTopics: nonNil(row.SecondaryTopics),
		PersonaLabels:   nonNil(row.PersonaLabels),
		Summary:         row.Summary,
		Tagline:         row.Tagline,
		FeaturedCasts:   featured,
		ConfidenceScore: row.ConfidenceScore,
		ModelUsed:       row.ModelUsed,
		PromptVersion:   row.PromptVersion,
		RawJSON:         row.RawJson,
	}, nil
}
