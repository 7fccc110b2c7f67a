package storage

import (
	"context"
	"slices"
	"sync"

	"antclust/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if run.SchemaVersion == 0 && run.CodecVersion == 0 {
		run.VersionedRecord = CurrentVersion()
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RunRecord{}, false, ErrNotInitialized
	}
	run, ok := s.runs[id]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	return cloneRun(run), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, cloneRun(run))
	}
	sortNewestFirst(runs)
	return applyLimit(runs, limit), nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return false, ErrNotInitialized
	}
	_, ok := s.runs[id]
	delete(s.runs, id)
	return ok, nil
}

func cloneRun(run model.RunRecord) model.RunRecord {
	out := run
	out.Labels = slices.Clone(run.Labels)
	out.Nests = slices.Clone(run.Nests)
	out.Config.Features = make([]model.FeatureConfig, len(run.Config.Features))
	for i, f := range run.Config.Features {
		f.Columns = slices.Clone(f.Columns)
		out.Config.Features[i] = f
	}
	if run.Config.Features == nil {
		out.Config.Features = nil
	}
	if run.Evaluation != nil {
		eval := *run.Evaluation
		out.Evaluation = &eval
	}
	return out
}
