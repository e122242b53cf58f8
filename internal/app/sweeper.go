package app

import (
	"context"
	"errors"
	"log"
	"time"

	"enem-simulado-service/internal/domain"
)

// LivesSweeper periodically restores lives for users whose regeneration is
// due. It shares the pure regeneration function with the lazy read path, so
// the two can never disagree; the sweep just makes sure lives come back even
// for users who stay offline.
type LivesSweeper struct {
	store    ProgressStore
	interval time.Duration
	now      func() time.Time
}

func NewLivesSweeper(store ProgressStore, interval time.Duration) *LivesSweeper {
	return NewLivesSweeperWithClock(store, interval, time.Now)
}

// NewLivesSweeperWithClock allows deterministic timestamps in tests.
func NewLivesSweeperWithClock(store ProgressStore, interval time.Duration, now func() time.Time) *LivesSweeper {
	return &LivesSweeper{store: store, interval: interval, now: now}
}

// Run sweeps on a fixed cadence until the context is canceled.
func (s *LivesSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updated, err := s.SweepOnce(ctx)
			if err != nil {
				log.Printf("lives sweep failed: %v", err)
				continue
			}
			if updated > 0 {
				log.Printf("lives sweep renewed lives for %d users", updated)
			}
		}
	}
}

// SweepOnce regenerates every eligible user and returns how many were
// updated. Users are processed independently: a failure or lost race on one
// never aborts the rest.
func (s *LivesSweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.now()
	userIDs, err := s.store.RegenEligible(ctx, now)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, userID := range userIDs {
		if err := s.regenerateUser(ctx, userID, now); err != nil {
			log.Printf("lives sweep: user %s: %v", userID, err)
			continue
		}
		updated++
	}
	return updated, nil
}

func (s *LivesSweeper) regenerateUser(ctx context.Context, userID string, now time.Time) error {
	// One retry on a lost race; the conflicting writer already ran the same
	// regeneration lazily, so a second loss means there is nothing left to do.
	for tries := 0; tries < 2; tries++ {
		progress, version, err := s.store.LoadForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		lives, nextLifeAt := domain.Regenerate(progress.Lives, progress.NextLifeAt, now)
		if lives == progress.Lives && sameTime(nextLifeAt, progress.NextLifeAt) {
			return nil
		}
		progress.Lives = lives
		progress.NextLifeAt = nextLifeAt

		err = s.store.Commit(ctx, progress, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return nil
}
