package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"enem-simulado-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressStore persists each user's progress as a jsonb document with a
// version column; commits use `UPDATE ... WHERE version=$n` as the
// optimistic-concurrency check.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) Create(ctx context.Context, progress domain.UserProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO user_progress (id, version, data) VALUES ($1, 1, $2) ON CONFLICT (id) DO NOTHING`,
		progress.UserID, data)
	if err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserExists
	}
	return nil
}

func (s *ProgressStore) LoadForUpdate(ctx context.Context, userID string) (domain.UserProgress, int64, error) {
	var (
		raw     []byte
		version int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM user_progress WHERE id=$1`, userID).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProgress{}, 0, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserProgress{}, 0, fmt.Errorf("load progress: %w", err)
	}
	var progress domain.UserProgress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return domain.UserProgress{}, 0, fmt.Errorf("unmarshal progress: %w", err)
	}
	if progress.Attempts == nil {
		progress.Attempts = make(map[domain.Discipline][]domain.Attempt)
	}
	return progress, version, nil
}

func (s *ProgressStore) Commit(ctx context.Context, progress domain.UserProgress, version int64) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_progress SET data=$2, version=version+1, updated_at=now() WHERE id=$1 AND version=$3`,
		progress.UserID, data, version)
	if err != nil {
		return fmt.Errorf("commit progress: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish a lost race from a vanished user.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_progress WHERE id=$1)`, progress.UserID).Scan(&exists); err != nil {
		return fmt.Errorf("commit progress: %w", err)
	}
	if !exists {
		return domain.ErrUserNotFound
	}
	return domain.ErrConflict
}

func (s *ProgressStore) RegenEligible(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM user_progress
		 WHERE (data->>'lives')::int < $1
		   AND data->>'nextLifeAt' IS NOT NULL
		   AND (data->>'nextLifeAt')::timestamptz <= $2`,
		domain.MaxLives, now)
	if err != nil {
		return nil, fmt.Errorf("list regen-eligible users: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}
