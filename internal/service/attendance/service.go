package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/validator"
)

const (
	defaultPunchListLimit = 20
	maxPunchListLimit     = 100
)

type AttendanceServiceImpl struct {
	gateway    attendance.Gateway
	reconciler attendance.Reconciler
	state      attendance.StateStore
	audits     attendance.AuditRepository
	hub        *sse.Hub
	days       dayFetcher
	timeout    time.Duration
	location   *time.Location
	now        func() time.Time
}

func NewAttendanceService(
	gateway attendance.Gateway,
	reconciler attendance.Reconciler,
	state attendance.StateStore,
	audits attendance.AuditRepository,
	hub *sse.Hub,
	timeout time.Duration,
	location *time.Location,
) attendance.AttendanceService {
	if location == nil {
		location = time.UTC
	}
	return &AttendanceServiceImpl{
		gateway:    gateway,
		reconciler: reconciler,
		state:      state,
		audits:     audits,
		hub:        hub,
		days:       dayFetcher{gateway: gateway, reconciler: reconciler, timeout: timeout},
		timeout:    timeout,
		location:   location,
		now:        time.Now,
	}
}

// Today implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Today(ctx context.Context) (attendance.TodayResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return attendance.TodayResponse{}, err
	}

	observedAt := s.now()
	today := observedAt.In(s.location).Format(dateLayout)
	record, err := s.days.fetch(ctx, identity, today)
	if err != nil {
		return attendance.TodayResponse{}, err
	}

	// A punch that committed while this fetch was in flight wins.
	held, err := s.state.SetIfNewer(ctx, identity.UserID, attendance.TodayState{Date: today, Record: record, UpdatedAt: observedAt})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to store attendance state", "user_id", identity.UserID, "error", err)
	} else if held.Date == today && held.UpdatedAt.After(observedAt) {
		record = held.Record
	}

	return todayResponse(today, record), nil
}

// ByDate implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ByDate(ctx context.Context, date string) (*attendance.AttendanceRecord, error) {
	if _, ok := validator.IsValidDate(date); !ok {
		return nil, validator.ValidationErrors{{Field: "date", Message: attendance.ErrInvalidDate.Error()}}
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.days.fetch(ctx, identity, date)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, attendance.ErrNoAttendanceYet
	}
	return record, nil
}

// History implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) History(ctx context.Context, filter attendance.HistoryFilter) (attendance.HistoryResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.HistoryResponse{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return attendance.HistoryResponse{}, err
	}
	if identity.OrganizationID == "" {
		return attendance.HistoryResponse{}, auth.ErrIncompleteProfile
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	page, err := s.gateway.History(ctx, identity.UserID, identity.OrganizationID, filter.FromDate, filter.ToDate)
	if err != nil {
		return attendance.HistoryResponse{}, fmt.Errorf("failed to fetch attendance history: %w", err)
	}

	records := make([]attendance.AttendanceRecord, 0, len(page.Results))
	for _, raw := range page.Results {
		record, anomalies := s.reconciler.ReconcileReport(raw, "")
		logAnomalies(ctx, identity.UserID, anomalies)
		records = append(records, record)
	}

	count := page.Count
	if count < len(records) {
		count = len(records)
	}

	return attendance.HistoryResponse{
		Records:  records,
		Count:    count,
		Next:     page.Next,
		Previous: page.Previous,
	}, nil
}

// Monthly implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Monthly(ctx context.Context, req attendance.MonthlyRequest) (attendance.MonthlyResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.MonthlyResponse{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return attendance.MonthlyResponse{}, err
	}
	if identity.AdminID == "" {
		return attendance.MonthlyResponse{}, auth.ErrIncompleteProfile
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	summary, err := s.gateway.MonthlySummary(ctx, identity.UserID, identity.AdminID, req.Month, req.Year)
	if err != nil {
		return attendance.MonthlyResponse{}, fmt.Errorf("failed to fetch monthly summary: %w", err)
	}

	return attendance.MonthlyResponse{
		Year:    req.Year,
		Month:   req.Month,
		Present: normalizeBucket(summary.Present),
		Absent:  normalizeBucket(summary.Absent),
		Summary: summary.Summary,
	}, nil
}

// RecentPunches implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecentPunches(ctx context.Context, limit int) ([]attendance.PunchAudit, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPunchListLimit
	}
	if limit > maxPunchListLimit {
		limit = maxPunchListLimit
	}

	audits, err := s.audits.ListByUser(ctx, identity.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list punch audits: %w", err)
	}
	if audits == nil {
		audits = []attendance.PunchAudit{}
	}
	return audits, nil
}

// Subscribe implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Subscribe(ctx context.Context, userID string) (<-chan attendance.StreamEvent, func()) {
	slog.DebugContext(ctx, "Attendance stream opened", "user_id", userID)
	return s.hub.Subscribe(userID)
}

func (s *AttendanceServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// normalizeBucket keeps dates serialised as [] rather than null and trusts
// the date list over a disagreeing count.
func normalizeBucket(b attendance.DateBucket) attendance.DateBucket {
	if b.Dates == nil {
		b.Dates = []string{}
	}
	if len(b.Dates) > b.Count {
		b.Count = len(b.Dates)
	}
	return b
}
