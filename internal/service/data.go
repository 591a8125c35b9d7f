package service

import (
	"context"
	"fmt"
	"log/slog"
)

type ResetResult struct {
	CastsDeleted int64 `json:"casts_deleted"`
}

// DataService removes what this service stored for a user. Users themselves
// are never touched.
type DataService interface {
	Reset(ctx context.Context, fid int64) (*ResetResult, error)
}

type dataService struct {
	txRunner TxRunner
}

func NewDataService(txRunner TxRunner) DataService {
	return &dataService{txRunner: txRunner}
}

func (s *dataService) Reset(ctx context.Context, fid int64) (*ResetResult, error) {
	result := &ResetResult{}
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Personas().DeleteByFID(ctx, fid); err != nil {
			return fmt.Errorf("deleting personas: %w", err)
		}
		if err := stores.Contexts().DeleteByFID(ctx, fid); err != nil {
			return fmt.Errorf("deleting context: %w", err)
		}
		n, err := stores.Casts().DeleteByFID(ctx, fid)
		if err != nil {
			return fmt.Errorf("deleting casts: %w", err)
		}
		result.CastsDeleted = n
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to reset user data", "fid", fid, "error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "user data reset", "fid", fid, "casts_deleted", result.CastsDeleted)
	return result, nil
}
