package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
)

const dateLayout = "2006-01-02"

// dayFetcher loads and reconciles a single day of attendance.
type dayFetcher struct {
	gateway    attendance.Gateway
	reconciler attendance.Reconciler
	timeout    time.Duration
}

// fetch returns the reconciled record of date for the caller, or nil when the
// backend has no row for that day.
func (f dayFetcher) fetch(ctx context.Context, identity auth.Identity, date string) (*attendance.AttendanceRecord, error) {
	if identity.AdminID == "" {
		return nil, auth.ErrIncompleteProfile
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	rows, err := f.gateway.AttendanceByDate(ctx, identity.UserID, identity.AdminID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attendance for %s: %w", date, err)
	}

	raw, ok := pickRow(rows, identity.UserID)
	if !ok {
		return nil, nil
	}

	record, anomalies := f.reconciler.ReconcileReport(raw, date)
	logAnomalies(ctx, identity.UserID, anomalies)
	return &record, nil
}

// pickRow prefers the row that belongs to userID and falls back to the first.
func pickRow(rows []attendance.RawAttendanceEntry, userID string) (attendance.RawAttendanceEntry, bool) {
	if len(rows) == 0 {
		return attendance.RawAttendanceEntry{}, false
	}
	for _, row := range rows {
		if row.UserID.String() == userID {
			return row, true
		}
	}
	return rows[0], true
}

func logAnomalies(ctx context.Context, userID string, anomalies []error) {
	for _, a := range anomalies {
		slog.WarnContext(ctx, "Attendance payload field defaulted", "user_id", userID, "anomaly", a)
	}
}
