package storage

import (
	"context"
	"errors"
	"sort"

	"antclust/internal/model"
)

var (
	ErrNotInitialized = errors.New("store is not initialized")
	// ErrBackendUnavailable reports a store kind compiled out of this binary.
	ErrBackendUnavailable = errors.New("store backend unavailable")
)

// Store persists clustering run records.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first. A non-positive limit returns all.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	DeleteRun(ctx context.Context, id string) (bool, error)
}

func sortNewestFirst(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC == runs[j].CreatedAtUTC {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
	})
}

func applyLimit(runs []model.RunRecord, limit int) []model.RunRecord {
	if limit > 0 && len(runs) > limit {
		return runs[:limit]
	}
	return runs
}
