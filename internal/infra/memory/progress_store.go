package memory

import (
	"context"
	"sync"
	"time"

	"enem-simulado-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore, used by
// tests and local runs without Redis or Postgres. Versions implement the same
// optimistic-concurrency contract as the persistent stores.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[string]*record
}

type record struct {
	progress domain.UserProgress
	version  int64
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[string]*record)}
}

func (s *ProgressStore) Create(_ context.Context, progress domain.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[progress.UserID]; ok {
		return domain.ErrUserExists
	}
	s.records[progress.UserID] = &record{progress: progress.Clone(), version: 1}
	return nil
}

func (s *ProgressStore) LoadForUpdate(_ context.Context, userID string) (domain.UserProgress, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return domain.UserProgress{}, 0, domain.ErrUserNotFound
	}
	return rec.progress.Clone(), rec.version, nil
}

func (s *ProgressStore) Commit(_ context.Context, progress domain.UserProgress, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[progress.UserID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if rec.version != version {
		return domain.ErrConflict
	}
	rec.progress = progress.Clone()
	rec.version++
	return nil
}

func (s *ProgressStore) RegenEligible(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var userIDs []string
	for userID, rec := range s.records {
		p := rec.progress
		if p.Lives < domain.MaxLives && p.NextLifeAt != nil && !p.NextLifeAt.After(now) {
			userIDs = append(userIDs, userID)
		}
	}
	return userIDs, nil
}
