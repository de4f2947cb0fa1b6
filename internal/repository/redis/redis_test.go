package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to TEST_REDIS_ADDR or skips the test.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client, err := NewClient(context.Background(), addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisPunchLock(t *testing.T) {
	ctx := context.Background()
	lock := NewPunchLock(testClient(t))
	key := uuid.NewString()

	release, err := lock.TryAcquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = lock.TryAcquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, attendance.ErrPunchInProgress)

	release()

	again, err := lock.TryAcquire(ctx, key, time.Minute)
	require.NoError(t, err)
	again()
}

func TestRedisAttendanceState(t *testing.T) {
	ctx := context.Background()
	store := NewAttendanceStateRepository(testClient(t))
	userID := uuid.NewString()
	checkIn := "9:05 AM"

	state := attendance.TodayState{
		Date: "2000-01-01",
		Record: &attendance.AttendanceRecord{
			ID:      "1",
			Date:    "2000-01-01",
			CheckIn: &checkIn,
			Status:  attendance.StatusPresent,
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Set(ctx, userID, state))

	got, ok, err := store.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state.Record, got.Record)

	pruned, err := store.PruneBefore(ctx, "2000-01-02")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pruned, 1)

	_, ok, err = store.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAttendanceState_SetIfNewer(t *testing.T) {
	ctx := context.Background()
	store := NewAttendanceStateRepository(testClient(t))
	userID := uuid.NewString()
	t0 := time.Now().UTC().Truncate(time.Second)

	newer := attendance.TodayState{Date: "2000-01-01", Record: &attendance.AttendanceRecord{ID: "newer"}, UpdatedAt: t0.Add(time.Minute)}
	_, err := store.SetIfNewer(ctx, userID, newer)
	require.NoError(t, err)

	held, err := store.SetIfNewer(ctx, userID, attendance.TodayState{Date: "2000-01-01", Record: &attendance.AttendanceRecord{ID: "older"}, UpdatedAt: t0})
	require.NoError(t, err)
	assert.Equal(t, "newer", held.Record.ID)

	got, ok, err := store.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "newer", got.Record.ID)
	require.NoError(t, store.Delete(ctx, userID))
}

func TestRedisSession(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(testClient(t))
	userID := uuid.NewString()

	require.NoError(t, repo.Save(ctx, userID, auth.Session{
		Profile:     auth.Profile{UserID: userID},
		AccessToken: "upstream-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	session, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "upstream-token", session.AccessToken)

	require.NoError(t, repo.Delete(ctx, userID))
	_, err = repo.Get(ctx, userID)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}
