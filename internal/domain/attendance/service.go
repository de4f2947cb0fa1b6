package attendance

import (
	"context"
)

// Reconciler normalises backend attendance payloads into canonical records.
type Reconciler interface {
	// Reconcile turns a raw entry into a canonical record. It never fails.
	Reconcile(raw RawAttendanceEntry) AttendanceRecord
	// ReconcileForDate is Reconcile with date used when the entry has none.
	ReconcileForDate(raw RawAttendanceEntry, date string) AttendanceRecord
	// ReconcileReport is ReconcileForDate that also returns every field it
	// had to default.
	ReconcileReport(raw RawAttendanceEntry, date string) (AttendanceRecord, []error)
}

// PunchService runs the check-in/check-out flow.
type PunchService interface {
	// Punch captures a selfie, gates it through liveness, submits it to the
	// backend and commits the refreshed attendance. On failure nothing is
	// committed.
	Punch(ctx context.Context, req PunchRequest) (PunchResponse, error)
}

// AttendanceService defines read operations for the authenticated employee.
type AttendanceService interface {
	// Today fetches, reconciles and caches today's attendance.
	Today(ctx context.Context) (TodayResponse, error)

	// ByDate returns the reconciled attendance of an arbitrary date.
	ByDate(ctx context.Context, date string) (*AttendanceRecord, error)

	// History returns reconciled attendance between two dates.
	History(ctx context.Context, filter HistoryFilter) (HistoryResponse, error)

	// Monthly returns the present/absent summary of a month.
	Monthly(ctx context.Context, req MonthlyRequest) (MonthlyResponse, error)

	// RecentPunches lists the latest punch attempts of the employee.
	RecentPunches(ctx context.Context, limit int) ([]PunchAudit, error)

	// Subscribe streams attendance updates of a user.
	Subscribe(ctx context.Context, userID string) (<-chan StreamEvent, func())
}
