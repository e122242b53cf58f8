package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"enem-simulado-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ProgressStore keeps each user's progress as a single JSON document:
//
//	SET user:{userID}:progress {"version":N,"progress":{...}}
//
// Commits run under WATCH so a concurrent writer fails the transaction, which
// surfaces as domain.ErrConflict. A sorted set indexes users by their
// next-regeneration time for the background sweep:
//
//	ZADD lives:regen {nextLifeAt unix} {userID}
type ProgressStore struct {
	client *redis.Client
}

type envelope struct {
	Version  int64               `json:"version"`
	Progress domain.UserProgress `json:"progress"`
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Create(ctx context.Context, progress domain.UserProgress) error {
	data, err := json.Marshal(envelope{Version: 1, Progress: progress})
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(progress.UserID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	if !ok {
		return domain.ErrUserExists
	}
	return s.indexRegen(ctx, s.client, progress)
}

func (s *ProgressStore) LoadForUpdate(ctx context.Context, userID string) (domain.UserProgress, int64, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return domain.UserProgress{}, 0, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserProgress{}, 0, fmt.Errorf("load progress: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.UserProgress{}, 0, fmt.Errorf("unmarshal progress: %w", err)
	}
	if env.Progress.Attempts == nil {
		env.Progress.Attempts = make(map[domain.Discipline][]domain.Attempt)
	}
	return env.Progress, env.Version, nil
}

func (s *ProgressStore) Commit(ctx context.Context, progress domain.UserProgress, version int64) error {
	key := s.key(progress.UserID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("reload progress: %w", err)
		}
		var current envelope
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("unmarshal progress: %w", err)
		}
		if current.Version != version {
			return domain.ErrConflict
		}

		data, err := json.Marshal(envelope{Version: version + 1, Progress: progress})
		if err != nil {
			return fmt.Errorf("marshal progress: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return s.indexRegen(ctx, pipe, progress)
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrConflict
	}
	return err
}

func (s *ProgressStore) RegenEligible(ctx context.Context, now time.Time) ([]string, error) {
	userIDs, err := s.client.ZRangeByScore(ctx, regenKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list regen-eligible users: %w", err)
	}
	return userIDs, nil
}

// indexRegen keeps the sweep index in step with the document: users with a
// pending regeneration are scored by its due time, everyone else is removed.
func (s *ProgressStore) indexRegen(ctx context.Context, c redis.Cmdable, progress domain.UserProgress) error {
	if progress.Lives < domain.MaxLives && progress.NextLifeAt != nil {
		return c.ZAdd(ctx, regenKey, redis.Z{
			Score:  float64(progress.NextLifeAt.Unix()),
			Member: progress.UserID,
		}).Err()
	}
	return c.ZRem(ctx, regenKey, progress.UserID).Err()
}

func (s *ProgressStore) key(userID string) string {
	return "user:" + userID + ":progress"
}

const regenKey = "lives:regen"
