package metadata

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

// MemoryStore keeps metadata in process. It backs the CLI and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]ModelMetadata
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]ModelMetadata), now: time.Now}
}

func (s *MemoryStore) GetModelMetadata(ctx context.Context, id string) (*ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound.WithDetail("model " + id)
	}
	return md.clone(), nil
}

func (s *MemoryStore) StoreModelMetadata(ctx context.Context, id string, md *ModelMetadata) error {
	if md == nil {
		return apperrors.ErrInvalidParam.WithDetail("metadata is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *md.clone()
	cp.ModelID = id
	cp.UpdatedAt = s.now()
	s.items[id] = cp
	return nil
}

func (s *MemoryStore) StoreEnvironmentalMetadata(ctx context.Context, id string, env *EnvironmentMetadata) error {
	if env == nil {
		return apperrors.ErrInvalidParam.WithDetail("environment is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.items[id]
	if !ok {
		md = ModelMetadata{ModelID: id}
	}
	envCopy := *env
	md.EnvironmentSummary = &envCopy
	md.UpdatedAt = s.now()
	s.items[id] = md
	return nil
}

func (m *ModelMetadata) clone() *ModelMetadata {
	cp := *m
	if m.SceneSummary != nil {
		s := *m.SceneSummary
		cp.SceneSummary = &s
	}
	if m.EnvironmentSummary != nil {
		e := *m.EnvironmentSummary
		cp.EnvironmentSummary = &e
	}
	return &cp
}
