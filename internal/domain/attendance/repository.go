package attendance

import (
	"context"
	"time"
)

// StateStore holds the canonical attendance of the current day per user.
// It is owned by the composition root and replaced whole on every commit.
type StateStore interface {
	// Get returns the cached state for a user and whether one exists.
	Get(ctx context.Context, userID string) (TodayState, bool, error)
	// Set replaces the cached state for a user.
	Set(ctx context.Context, userID string, state TodayState) error
	// SetIfNewer stores state unless the cached state was observed later,
	// judged by UpdatedAt. It returns the state held after the call.
	SetIfNewer(ctx context.Context, userID string, state TodayState) (TodayState, error)
	// Delete drops the cached state for a user.
	Delete(ctx context.Context, userID string) error
	// PruneBefore drops every state whose date is before date (YYYY-MM-DD).
	PruneBefore(ctx context.Context, date string) (int, error)
}

// PunchLock is the advisory in-flight guard that stops duplicate taps from
// starting two punches for the same user.
type PunchLock interface {
	// TryAcquire takes the lock for key. It returns ErrPunchInProgress when
	// the lock is already held. The returned release func is idempotent.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// AuditRepository persists punch attempts.
type AuditRepository interface {
	Create(ctx context.Context, audit PunchAudit) error
	ListByUser(ctx context.Context, userID string, limit int) ([]PunchAudit, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Gateway is the remote HRMS attendance API. userID selects whose session
// token authenticates the call.
type Gateway interface {
	Punch(ctx context.Context, userID string, body UpstreamPunch) (PunchAck, error)
	AttendanceByDate(ctx context.Context, userID, adminID, date string) ([]RawAttendanceEntry, error)
	History(ctx context.Context, userID, organizationID, fromDate, toDate string) (RawHistoryPage, error)
	MonthlySummary(ctx context.Context, userID, adminID string, month, year int) (RawMonthlySummary, error)
}

// EventPublisher fans punch events out to other systems.
type EventPublisher interface {
	PublishPunch(ctx context.Context, event PunchEvent) error
}
