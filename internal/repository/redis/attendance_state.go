package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/redis/go-redis/v9"
)

// States outlive a day by a margin so late shifts keep their cache.
const stateTTL = 36 * time.Hour

const maxStateWriteRetries = 3

type attendanceStateRepositoryImpl struct {
	client *redis.Client
}

func NewAttendanceStateRepository(client *redis.Client) attendance.StateStore {
	return &attendanceStateRepositoryImpl{client: client}
}

func (r *attendanceStateRepositoryImpl) Get(ctx context.Context, userID string) (attendance.TodayState, bool, error) {
	payload, err := r.client.Get(ctx, Key("attendance", "today", userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return attendance.TodayState{}, false, nil
		}
		return attendance.TodayState{}, false, fmt.Errorf("failed to get attendance state: %w", err)
	}

	var state attendance.TodayState
	if err := json.Unmarshal(payload, &state); err != nil {
		return attendance.TodayState{}, false, fmt.Errorf("failed to decode attendance state: %w", err)
	}
	return state, true, nil
}

func (r *attendanceStateRepositoryImpl) Set(ctx context.Context, userID string, state attendance.TodayState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode attendance state: %w", err)
	}
	if err := r.client.Set(ctx, Key("attendance", "today", userID), payload, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save attendance state: %w", err)
	}
	return nil
}

// SetIfNewer watches the key so a concurrent write between the read and the
// write aborts the transaction; it is retried a few times.
func (r *attendanceStateRepositoryImpl) SetIfNewer(ctx context.Context, userID string, state attendance.TodayState) (attendance.TodayState, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return attendance.TodayState{}, fmt.Errorf("failed to encode attendance state: %w", err)
	}
	key := Key("attendance", "today", userID)

	for i := 0; i < maxStateWriteRetries; i++ {
		held := state
		err = r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				var existing attendance.TodayState
				if json.Unmarshal(current, &existing) == nil && existing.UpdatedAt.After(state.UpdatedAt) {
					held = existing
					return nil
				}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, stateTTL)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return attendance.TodayState{}, fmt.Errorf("failed to save attendance state: %w", err)
		}
		return held, nil
	}
	return attendance.TodayState{}, fmt.Errorf("failed to save attendance state: %w", err)
}

func (r *attendanceStateRepositoryImpl) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, Key("attendance", "today", userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete attendance state: %w", err)
	}
	return nil
}

// PruneBefore scans the state keys; expired ones are already gone by TTL.
func (r *attendanceStateRepositoryImpl) PruneBefore(ctx context.Context, date string) (int, error) {
	pruned := 0
	iter := r.client.Scan(ctx, 0, Key("attendance", "today", "*"), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return pruned, fmt.Errorf("failed to read attendance state: %w", err)
		}

		var state attendance.TodayState
		if err := json.Unmarshal(payload, &state); err != nil || state.Date < date {
			if err := r.client.Del(ctx, key).Err(); err != nil {
				return pruned, fmt.Errorf("failed to prune attendance state: %w", err)
			}
			pruned++
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, fmt.Errorf("failed to scan attendance states: %w", err)
	}
	return pruned, nil
}
