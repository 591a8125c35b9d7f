package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"personacard.app/agent/core/db/sqlc"
	"personacard.app/agent/internal/model"
)

type userReader struct {
	queries *sqlc.Queries
}

func newUserReader(queries *sqlc.Queries) UserReader {
	return &userReader{queries: queries}
}

func (s *userReader) GetByFID(ctx context.Context, fid int64) (*model.PublicUser, error) {
	row, err := s.queries.GetUserByFID(ctx, &fid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toPublicUserModel(row), nil
}

// ListWithFID returns every user that has linked a Farcaster account.
func (s *userReader) ListWithFID(ctx context.Context) ([]model.PublicUser, error) {
	rows, err := s.queries.ListUsersWithFID(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]model.PublicUser, len(rows))
	for i, row := range rows {
		users[i] = *toPublicUserModel(row)
	}
	return users, nil
}

func toPublicUserModel(row sqlc.User) *model.PublicUser {
	return &model.PublicUser{
		ID:              row.ID,
		FID:             row.Fid,
		Role:            row.Role,
		Username:        row.Username,
		DisplayName:     row.DisplayName,
		WalletAddress:   row.WalletAddress,
		FarcasterPfpURL: row.FarcasterPfpUrl,
		TotalPoints:     int(row.TotalPoints),
		CreatedAt:       row.CreatedAt.Time,
	}
}
