package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/service/file"
	livenesssvc "github.com/cmlabs-hris/hris-mobile-bff/internal/service/liveness"
)

// PunchOptions tunes the punch flow.
type PunchOptions struct {
	MarkedBy     string
	LockTTL      time.Duration
	PunchTimeout time.Duration
	FetchTimeout time.Duration
	Location     *time.Location
}

type PunchServiceImpl struct {
	lock        attendance.PunchLock
	selector    liveness.Selector
	fileService file.FileService
	gateway     attendance.Gateway
	state       attendance.StateStore
	audits      attendance.AuditRepository
	hub         *sse.Hub
	events      attendance.EventPublisher
	days        dayFetcher
	opts        PunchOptions
	now         func() time.Time
}

func NewPunchService(
	lock attendance.PunchLock,
	selector liveness.Selector,
	fileService file.FileService,
	gateway attendance.Gateway,
	reconciler attendance.Reconciler,
	state attendance.StateStore,
	audits attendance.AuditRepository,
	hub *sse.Hub,
	events attendance.EventPublisher,
	opts PunchOptions,
) attendance.PunchService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &PunchServiceImpl{
		lock:        lock,
		selector:    selector,
		fileService: fileService,
		gateway:     gateway,
		state:       state,
		audits:      audits,
		hub:         hub,
		events:      events,
		days:        dayFetcher{gateway: gateway, reconciler: reconciler, timeout: opts.FetchTimeout},
		opts:        opts,
		now:         time.Now,
	}
}

// punchAttempt carries what is known about one punch for its audit row.
type punchAttempt struct {
	audit   attendance.PunchAudit
	started time.Time
}

func (a *punchAttempt) fail(outcome attendance.PunchOutcome, err error) error {
	a.audit.Outcome = outcome
	reason := err.Error()
	var rejected *liveness.RejectedError
	if errors.As(err, &rejected) {
		reason = rejected.Reason
	}
	a.audit.Reason = &reason
	return err
}

// Punch implements attendance.PunchService.
func (s *PunchServiceImpl) Punch(ctx context.Context, req attendance.PunchRequest) (attendance.PunchResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.PunchResponse{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return attendance.PunchResponse{}, err
	}
	if identity.AdminID == "" {
		return attendance.PunchResponse{}, auth.ErrIncompleteProfile
	}

	release, err := s.lock.TryAcquire(ctx, identity.UserID, s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, attendance.ErrPunchInProgress) {
			return attendance.PunchResponse{}, err
		}
		return attendance.PunchResponse{}, fmt.Errorf("failed to acquire punch lock: %w", err)
	}
	defer release()

	attempt := &punchAttempt{
		started: s.now(),
		audit: attendance.PunchAudit{
			UserID:   identity.UserID,
			Platform: string(req.Platform),
		},
	}
	defer s.writeAudit(ctx, attempt)

	resp, err := s.punch(ctx, identity, req, attempt)
	if err != nil && ctx.Err() != nil {
		attempt.audit.Outcome = attendance.OutcomeCancelled
	}
	return resp, err
}

func (s *PunchServiceImpl) punch(ctx context.Context, identity auth.Identity, req attendance.PunchRequest, attempt *punchAttempt) (attendance.PunchResponse, error) {
	// Capture
	raw, err := req.Capturer.Capture(ctx)
	if err == nil && len(raw) == 0 {
		err = attendance.ErrSelfieRequired
	}
	if err != nil {
		return attendance.PunchResponse{}, attempt.fail(attendance.OutcomeCaptureFailed, &attendance.CaptureError{Err: err})
	}
	fingerprint := file.Fingerprint(raw)
	attempt.audit.ImageFingerprint = &fingerprint

	// Liveness gate
	strategy, err := s.selector.For(req.Platform)
	if err != nil {
		return attendance.PunchResponse{}, attempt.fail(attendance.OutcomeCaptureFailed, err)
	}
	attempt.audit.Strategy = strategy.Name()

	img, err := livenesssvc.Decode(raw)
	if err != nil {
		return attendance.PunchResponse{}, attempt.fail(attendance.OutcomeCaptureFailed, &attendance.CaptureError{Err: err})
	}
	if verdict := strategy.Analyze(img); !verdict.Accepted {
		slog.InfoContext(ctx, "Punch rejected by liveness check",
			"user_id", identity.UserID,
			"strategy", strategy.Name(),
			"reason", verdict.RejectionReason,
		)
		return attendance.PunchResponse{}, attempt.fail(attendance.OutcomeLivenessRejected, &liveness.RejectedError{
			Strategy: strategy.Name(),
			Reason:   verdict.RejectionReason,
		})
	}

	today := s.now().In(s.opts.Location).Format(dateLayout)
	action := s.priorAction(ctx, identity, today)
	attempt.audit.Action = action

	// Transport encoding
	selfie, err := s.fileService.EncodeSelfie(ctx, raw)
	if err != nil {
		return attendance.PunchResponse{}, attempt.fail(attendance.OutcomeCaptureFailed, &attendance.CaptureError{Err: err})
	}

	// Upstream punch
	punchCtx, cancel := context.WithTimeout(ctx, s.opts.PunchTimeout)
	ack, err := s.gateway.Punch(punchCtx, identity.UserID, attendance.UpstreamPunch{
		MarkedBy:     s.opts.MarkedBy,
		Base64Images: []string{selfie.DataURI},
	})
	cancel()
	if err != nil {
		return attendance.PunchResponse{}, attempt.fail(attendance.OutcomeUpstreamFailed, fmt.Errorf("failed to submit punch: %w", err))
	}

	// Re-fetch and reconcile. The punch has landed upstream even when this fails.
	observedAt := s.now()
	record, err := s.days.fetch(ctx, identity, today)
	if err != nil {
		return attendance.PunchResponse{}, attempt.fail(attendance.OutcomeRefreshFailed, err)
	}

	// Commit
	committedAt := s.now()
	if _, err := s.state.SetIfNewer(ctx, identity.UserID, attendance.TodayState{Date: today, Record: record, UpdatedAt: observedAt}); err != nil {
		slog.ErrorContext(ctx, "Failed to store attendance state", "user_id", identity.UserID, "error", err)
	}

	next := attendance.DeriveNextAction(record)
	s.hub.Publish(identity.UserID, attendance.StreamEvent{
		Event: attendance.EventAttendanceUpdated,
		Data:  todayResponse(today, record),
		At:    committedAt,
	})

	event := attendance.PunchEvent{
		UserID:     identity.UserID,
		AdminID:    identity.AdminID,
		Action:     action,
		Platform:   string(req.Platform),
		Strategy:   strategy.Name(),
		Attendance: record,
		OccurredAt: committedAt,
	}
	if err := s.events.PublishPunch(context.WithoutCancel(ctx), event); err != nil {
		slog.WarnContext(ctx, "Failed to publish punch event", "user_id", identity.UserID, "error", err)
	}

	attempt.audit.Outcome = attendance.OutcomeSuccess

	message := ack.Detail
	if message == "" {
		message = punchMessage(action)
	}

	slog.InfoContext(ctx, "Punch recorded",
		"user_id", identity.UserID,
		"action", action,
		"strategy", strategy.Name(),
		"next_action", next,
	)

	return attendance.PunchResponse{
		Success:    true,
		Action:     action,
		Message:    message,
		Attendance: record,
		NextAction: next,
		Strategy:   strategy.Name(),
	}, nil
}

// priorAction derives the punch being performed from the cached state of
// today, falling back to a best-effort fetch.
func (s *PunchServiceImpl) priorAction(ctx context.Context, identity auth.Identity, today string) attendance.NextAction {
	state, ok, err := s.state.Get(ctx, identity.UserID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read attendance state", "user_id", identity.UserID, "error", err)
	}
	if ok && state.Date == today {
		return attendance.DeriveNextAction(state.Record)
	}

	record, err := s.days.fetch(ctx, identity, today)
	if err != nil {
		slog.WarnContext(ctx, "Could not prefetch attendance, assuming check-in", "user_id", identity.UserID, "error", err)
		return attendance.ActionCheckIn
	}
	return attendance.DeriveNextAction(record)
}

func (s *PunchServiceImpl) writeAudit(ctx context.Context, attempt *punchAttempt) {
	audit := attempt.audit
	audit.CreatedAt = attempt.started
	audit.DurationMs = s.now().Sub(attempt.started).Milliseconds()
	if audit.Outcome == "" {
		return
	}

	if err := s.audits.Create(context.WithoutCancel(ctx), audit); err != nil {
		slog.ErrorContext(ctx, "Failed to write punch audit",
			"user_id", audit.UserID,
			"outcome", audit.Outcome,
			"error", err,
		)
	}
}

func punchMessage(action attendance.NextAction) string {
	if action == attendance.ActionCheckOut {
		return "Checked out successfully"
	}
	return "Checked in successfully"
}

func todayResponse(date string, record *attendance.AttendanceRecord) attendance.TodayResponse {
	next := attendance.DeriveNextAction(record)
	return attendance.TodayResponse{
		Date:        date,
		Attendance:  record,
		NextAction:  next,
		CanCheckIn:  next == attendance.ActionCheckIn,
		CanCheckOut: next == attendance.ActionCheckOut,
	}
}
