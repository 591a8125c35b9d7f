package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"personacard.app/agent/core/db/sqlc"
	"personacard.app/agent/internal/model"
)

type castStore struct {
	queries *sqlc.Queries
}

func newCastStore(queries *sqlc.Queries) CastStore {
	return &castStore{queries: queries}
}

func (s *castStore) Upsert(ctx context.Context, cast *model.Cast) (*model.Cast, error) {
	mentions, err := marshalJSONB(cast.Mentions)
	if err != nil {
		return nil, err
	}
	embeds, err := marshalJSONB(cast.Embeds)
	if err != nil {
		return nil, err
	}

	row, err := s.queries.UpsertCast(ctx, sqlc.UpsertCastParams{
		ID:              cast.ID,
		Fid:             cast.FID,
		Hash:            cast.Hash,
		Timestamp:       timestamptz(cast.Timestamp),
		Text:            cast.Text,
		Channel:         cast.Channel,
		ParentHash:      cast.ParentHash,
		ParentAuthorFid: cast.ParentAuthorFID,
		Mentions:        mentions,
		Embeds:          embeds,
		RepliesCount:    int32(cast.RepliesCount),
		RecastsCount:    int32(cast.RecastsCount),
		LikesCount:      int32(cast.LikesCount),
		Raw:             cast.Raw,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert cast %s: %w", cast.Hash, err)
	}
	return toCastModel(row)
}

// ListByFID returns the user's casts newest first.
func (s *castStore) ListByFID(ctx context.Context, fid int64) ([]model.Cast, error) {
	rows, err := s.queries.ListCastsByFID(ctx, fid)
	if err != nil {
		return nil, err
	}
	casts := make([]model.Cast, 0, len(rows))
	for _, row := range rows {
		c, err := toCastModel(row)
		if err != nil {
			return nil, err
		}
		casts = append(casts, *c)
	}
	return casts, nil
}

func (s *castStore) GetLatestByFID(ctx context.Context, fid int64) (*model.Cast, error) {
	row, err := s.queries.GetLatestCastByFID(ctx, fid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toCastModel(row)
}

func (s *castStore) CountByFID(ctx context.Context, fid int64) (int64, error) {
	return s.queries.CountCastsByFID(ctx, fid)
}

func (s *castStore) DeleteByFID(ctx context.Context, fid int64) (int64, error) {
	return s.queries.DeleteCastsByFID(ctx, fid)
}

func toCastModel(row sqlc.AiAgentCast) (*model.Cast, error) {
	mentions, err := unmarshalJSONB[int64](row.Mentions)
	if err != nil {
		return nil, err
	}
	embeds, err := unmarshalJSONB[model.Embed](row.Embeds)
	if err != nil {
		return nil, err
	}
	return &model.Cast{
		ID:              row.ID,
		FID:             row.Fid,
		Hash:            row.Hash,
		Timestamp:       row.Timestamp.Time,
		Text:            row.Text,
		Channel:         row.Channel,
		ParentHash:      row.ParentHash,
		ParentAuthorFID: row.ParentAuthorFid,
		Mentions:        mentions,
		Embeds:          embeds,
		RepliesCount:    int(row.RepliesCount),
		RecastsCount:    int(row.RecastsCount),
		LikesCount:      int(row.LikesCount),
		Raw:             row.Raw,
	}, nil
}
