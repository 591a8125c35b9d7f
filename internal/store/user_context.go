package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"personacard.app/agent/core/db/sqlc"
	"personacard.app/agent/internal/model"
)

type contextStore struct {
	queries *sqlc.Queries
}

func newContextStore(queries *sqlc.Queries) ContextStore {
	return &contextStore{queries: queries}
}

// Upsert replaces the user's snapshot. On conflict the existing row keeps its
// ID and CreatedAt.
func (s *contextStore) Upsert(ctx context.Context, uc *model.UserContext) (*model.UserContext, error) {
	channels, err := marshalJSONB(uc.TopChannels)
	if err != nil {
		return nil, err
	}

	row, err := s.queries.UpsertUserContext(ctx, sqlc.UpsertUserContextParams{
		ID:                   uc.ID,
		Fid:                  uc.FID,
		TotalCastsAnalyzed:   int32(uc.TotalCastsAnalyzed),
		CastsLast7d:          int32(uc.CastsLast7d),
		CastsLast30d:         int32(uc.CastsLast30d),
		FirstCastAt:          timestamptz(uc.FirstCastAt),
		LastCastAt:           timestamptz(uc.LastCastAt),
		AvgLikesPerCast:      uc.AvgLikesPerCast,
		AvgRecastsPerCast:    uc.AvgRecastsPerCast,
		TotalEngagement:      uc.TotalEngagement,
		EngagementTrend:      string(uc.EngagementTrend),
		TopCastHash:          uc.TopCastHash,
		TopCastLikes:         int32(uc.TopCastLikes),
		TopChannels:          channels,
		CastsPerWeek:         uc.CastsPerWeek,
		ActivityPattern:      string(uc.ActivityPattern),
		FollowerCount:        int32(uc.FollowerCount),
		FollowingCount:       int32(uc.FollowingCount),
		FollowRatio:          uc.FollowRatio,
		ActiveSince:          uc.ActiveSince,
		LastAnalyzedCastHash: uc.LastAnalyzedCastHash,
		WindowStart:          timestamptz(uc.WindowStart),
		WindowEnd:            timestamptz(uc.WindowEnd),
		UpdatedAt:            timestamptz(uc.UpdatedAt),
	})
	if err != nil {
		return nil, err
	}
	return toUserContextModel(row)
}

func (s *contextStore) GetByFID(ctx context.Context, fid int64) (*model.UserContext, error) {
	row, err := s.queries.GetUserContextByFID(ctx, fid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toUserContextModel(row)
}

func (s *contextStore) DeleteByFID(ctx context.Context, fid int64) error {
	return s.queries.DeleteUserContextByFID(ctx, fid)
}

func toUserContextModel(row sqlc.AiAgentUserContext) (*model.UserContext, error) {
	channels, err := unmarshalJSONB[model.ChannelCount](row.TopChannels)
	if err != nil {
		return nil, err
	}
	return &model.UserContext{
		ID:                   row.ID,
		FID:                  row.Fid,
		TotalCastsAnalyzed:   int(row.TotalCastsAnalyzed),
		CastsLast7d:          int(row.CastsLast7d),
		CastsLast30d:         int(row.CastsLast30d),
		FirstCastAt:          row.FirstCastAt.Time,
		LastCastAt:           row.LastCastAt.Time,
		AvgLikesPerCast:      row.AvgLikesPerCast,
		AvgRecastsPerCast:    row.AvgRecastsPerCast,
		TotalEngagement:      row.TotalEngagement,
		EngagementTrend:      model.EngagementTrend(row.EngagementTrend),
		TopCastHash:          row.TopCastHash,
		TopCastLikes:         int(row.TopCastLikes),
		TopChannels:          channels,
		CastsPerWeek:         row.CastsPerWeek,
		ActivityPattern:      model.ActivityPattern(row.ActivityPattern),
		FollowerCount:        int(row.FollowerCount),
		FollowingCount:       int(row.FollowingCount),
		FollowRatio:          row.FollowRatio,
		ActiveSince:          row.ActiveSince,
		LastAnalyzedCastHash: row.LastAnalyzedCastHash,
		WindowStart:          row.WindowStart.Time,
		WindowEnd:            row.WindowEnd.Time,
		CreatedAt:            row.CreatedAt.Time,
		UpdatedAt:            row.UpdatedAt.Time,
	}, nil
}
