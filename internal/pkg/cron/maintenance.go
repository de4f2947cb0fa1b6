package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
)

// TokenPurger drops revocations of tokens that expired anyway.
type TokenPurger interface {
	PurgeRevoked(now time.Time) int
}

// MaintenanceJobs keeps the BFF's own stores bounded.
type MaintenanceJobs struct {
	audits    attendance.AuditRepository
	state     attendance.StateStore
	tokens    TokenPurger
	retention time.Duration
	location  *time.Location
	now       func() time.Time
}

func NewMaintenanceJobs(
	audits attendance.AuditRepository,
	state attendance.StateStore,
	tokens TokenPurger,
	retention time.Duration,
	location *time.Location,
) *MaintenanceJobs {
	if location == nil {
		location = time.UTC
	}
	return &MaintenanceJobs{
		audits:    audits,
		state:     state,
		tokens:    tokens,
		retention: retention,
		location:  location,
		now:       time.Now,
	}
}

func (j *MaintenanceJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob(Job{Name: "prune-punch-audits", Interval: interval, Fn: j.PrunePunchAudits})
	scheduler.AddJob(Job{Name: "sweep-attendance-state", Interval: interval, Fn: j.SweepAttendanceState})
	scheduler.AddJob(Job{Name: "purge-revoked-tokens", Interval: interval, Fn: j.PurgeRevokedTokens})
}

// PrunePunchAudits deletes audits older than the retention window.
func (j *MaintenanceJobs) PrunePunchAudits(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.audits.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune punch audits: %w", err)
	}
	if deleted > 0 {
		slog.Info("Cron: Pruned punch audits", "deleted", deleted, "cutoff", cutoff)
	}
	return nil
}

// SweepAttendanceState drops cached states of previous days.
func (j *MaintenanceJobs) SweepAttendanceState(ctx context.Context) error {
	today := j.now().In(j.location).Format("2006-01-02")
	dropped, err := j.state.PruneBefore(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to sweep attendance state: %w", err)
	}
	if dropped > 0 {
		slog.Info("Cron: Swept stale attendance state", "dropped", dropped, "today", today)
	}
	return nil
}

func (j *MaintenanceJobs) PurgeRevokedTokens(ctx context.Context) error {
	if purged := j.tokens.PurgeRevoked(j.now()); purged > 0 {
		slog.Info("Cron: Purged expired token revocations", "purged", purged)
	}
	return nil
}
