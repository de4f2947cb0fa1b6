package postgresql

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/database"
	"github.com/cmlabs-hris/hris-mobile-bff/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	require.NoError(t, migrations.Up(ctx, db))
	t.Cleanup(db.Close)
	return db
}

func TestPunchAuditRepository_CreateListDelete(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewPunchAuditRepository(db)
	userID := uuid.NewString()

	reason := "no face detected"
	old := time.Now().Add(-72 * time.Hour).UTC().Truncate(time.Microsecond)
	recent := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Create(ctx, attendance.PunchAudit{
		UserID:    userID,
		Platform:  "web",
		Strategy:  "pixel_heuristic",
		Action:    attendance.ActionCheckIn,
		Outcome:   attendance.OutcomeLivenessRejected,
		Reason:    &reason,
		CreatedAt: old,
	}))
	require.NoError(t, repo.Create(ctx, attendance.PunchAudit{
		UserID:     userID,
		Platform:   "android",
		Strategy:   "trusted_capture",
		Action:     attendance.ActionCheckIn,
		Outcome:    attendance.OutcomeSuccess,
		DurationMs: 420,
		CreatedAt:  recent,
	}))

	audits, err := repo.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, attendance.OutcomeSuccess, audits[0].Outcome)
	assert.Equal(t, int64(420), audits[0].DurationMs)
	assert.Equal(t, attendance.OutcomeLivenessRejected, audits[1].Outcome)
	require.NotNil(t, audits[1].Reason)
	assert.Equal(t, reason, *audits[1].Reason)

	deleted, err := repo.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))

	audits, err = repo.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, attendance.OutcomeSuccess, audits[0].Outcome)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewPunchAuditRepository(db)
	userID := uuid.NewString()

	err := WithTransaction(ctx, db, func(ctx context.Context) error {
		if err := repo.Create(ctx, attendance.PunchAudit{
			UserID:   userID,
			Platform: "web",
			Strategy: "pixel_heuristic",
			Action:   attendance.ActionCheckIn,
			Outcome:  attendance.OutcomeSuccess,
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	audits, err := repo.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	assert.Empty(t, audits)
}
