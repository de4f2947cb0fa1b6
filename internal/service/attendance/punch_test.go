package attendance

import (
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/hrmsapi"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/repository/memory"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/service/file"
	livenesssvc "github.com/cmlabs-hris/hris-mobile-bff/internal/service/liveness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

const today = "2025-01-15"

type punchFixture struct {
	svc     *PunchServiceImpl
	gateway *fakeGateway
	state   attendance.StateStore
	audits  attendance.AuditRepository
	lock    attendance.PunchLock
	hub     *sse.Hub
	events  *recordingPublisher
}

func newPunchFixture(gw *fakeGateway, punchTimeout time.Duration) *punchFixture {
	f := &punchFixture{
		gateway: gw,
		state:   memory.NewAttendanceStateRepository(),
		audits:  memory.NewPunchAuditRepository(),
		lock:    memory.NewPunchLock(),
		hub:     sse.NewHub(),
		events:  &recordingPublisher{},
	}
	selector := livenesssvc.NewPlatformSelector(
		livenesssvc.NewPixelHeuristicStrategy(),
		livenesssvc.NewTrustedCaptureStrategy(),
		false,
	)
	f.svc = NewPunchService(
		f.lock,
		selector,
		file.NewFileService(),
		gw,
		NewReconciler(time.UTC),
		f.state,
		f.audits,
		f.hub,
		f.events,
		PunchOptions{
			MarkedBy:     "mobile",
			LockTTL:      time.Minute,
			PunchTimeout: punchTimeout,
			FetchTimeout: time.Second,
			Location:     time.UTC,
		},
	).(*PunchServiceImpl)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *punchFixture) lastAudit(t *testing.T) attendance.PunchAudit {
	t.Helper()
	audits, err := f.audits.ListByUser(context.Background(), testProfile.UserID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, audits)
	return audits[0]
}

func checkedInRow() attendance.RawAttendanceEntry {
	return attendance.RawAttendanceEntry{
		ID:               "11",
		UserID:           attendance.FlexibleID(testProfile.UserID),
		AttendanceStatus: ptr("present"),
		LastLoginStatus:  ptr("checkin"),
		CheckIn:          ptr("2025-01-15T09:20:00Z"),
		AttendanceDate:   ptr(today),
	}
}

func nativeRequest(t *testing.T) attendance.PunchRequest {
	return attendance.PunchRequest{
		Platform: liveness.PlatformAndroid,
		Capturer: capturer(solidPNG(t, 300, color.RGBA{120, 120, 120, 255}), nil),
	}
}

func TestPunch_SuccessCommitsAndPublishes(t *testing.T) {
	gw := &fakeGateway{after: []attendance.RawAttendanceEntry{
		{UserID: "someone-else", LastLoginStatus: ptr("checkout")},
		checkedInRow(),
	}}
	f := newPunchFixture(gw, time.Second)

	stream, stop := f.hub.Subscribe(testProfile.UserID)
	defer stop()

	resp, err := f.svc.Punch(authedContext(t, testProfile), nativeRequest(t))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, attendance.ActionCheckIn, resp.Action)
	assert.Equal(t, attendance.ActionCheckOut, resp.NextAction)
	assert.Equal(t, "Attendance marked", resp.Message)
	assert.Equal(t, "trusted_capture", resp.Strategy)
	require.NotNil(t, resp.Attendance)
	assert.Equal(t, "11", resp.Attendance.ID)
	assert.Equal(t, "9:20 AM", *resp.Attendance.CheckIn)

	require.Len(t, gw.punches, 1)
	assert.Equal(t, "mobile", gw.punches[0].MarkedBy)
	require.Len(t, gw.punches[0].Base64Images, 1)
	assert.True(t, strings.HasPrefix(gw.punches[0].Base64Images[0], "data:image/jpeg;base64,"))

	state, ok, err := f.state.Get(context.Background(), testProfile.UserID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, today, state.Date)
	assert.Equal(t, resp.Attendance, state.Record)

	select {
	case ev := <-stream:
		assert.Equal(t, attendance.EventAttendanceUpdated, ev.Event)
		payload, ok := ev.Data.(attendance.TodayResponse)
		require.True(t, ok)
		assert.True(t, payload.CanCheckOut)
	default:
		t.Fatal("expected a stream event")
	}

	require.Len(t, f.events.events, 1)
	assert.Equal(t, attendance.ActionCheckIn, f.events.events[0].Action)
	assert.Equal(t, testProfile.AdminID, f.events.events[0].AdminID)

	audit := f.lastAudit(t)
	assert.Equal(t, attendance.OutcomeSuccess, audit.Outcome)
	assert.Equal(t, "trusted_capture", audit.Strategy)
	assert.Equal(t, "android", audit.Platform)
	require.NotNil(t, audit.ImageFingerprint)
	assert.Len(t, *audit.ImageFingerprint, 64)
	assert.Nil(t, audit.Reason)
}

func TestPunch_AcceptsDataURISelfie(t *testing.T) {
	gw := &fakeGateway{after: []attendance.RawAttendanceEntry{checkedInRow()}}
	f := newPunchFixture(gw, time.Second)

	photo := solidPNG(t, 300, color.RGBA{120, 120, 120, 255})
	uri := []byte("data:image/png;base64," + base64.StdEncoding.EncodeToString(photo))

	resp, err := f.svc.Punch(authedContext(t, testProfile), attendance.PunchRequest{
		Platform: liveness.PlatformIOS,
		Capturer: capturer(uri, nil),
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	require.Len(t, gw.punches, 1)
	assert.True(t, strings.HasPrefix(gw.punches[0].Base64Images[0], "data:image/jpeg;base64,"))
	assert.Equal(t, attendance.OutcomeSuccess, f.lastAudit(t).Outcome)
}

func TestPunch_ActionComesFromCachedState(t *testing.T) {
	gw := &fakeGateway{after: []attendance.RawAttendanceEntry{func() attendance.RawAttendanceEntry {
		row := checkedInRow()
		row.LastLoginStatus = ptr("checkout")
		row.CheckOut = ptr("2025-01-15T10:00:00Z")
		return row
	}()}}
	f := newPunchFixture(gw, time.Second)

	checkIn := attendance.LoginStatusCheckIn
	require.NoError(t, f.state.Set(context.Background(), testProfile.UserID, attendance.TodayState{
		Date:   today,
		Record: &attendance.AttendanceRecord{ID: "11", LastLoginStatus: &checkIn},
	}))

	resp, err := f.svc.Punch(authedContext(t, testProfile), nativeRequest(t))
	require.NoError(t, err)

	assert.Equal(t, attendance.ActionCheckOut, resp.Action)
	assert.Equal(t, attendance.ActionCheckIn, resp.NextAction)
	assert.Equal(t, "10:00 AM", *resp.Attendance.CheckOut)
	assert.Equal(t, 1, gw.byDateCalls, "only the post-punch refresh should hit the backend")
}

func TestPunch_LivenessRejectionIsTerminal(t *testing.T) {
	gw := &fakeGateway{}
	f := newPunchFixture(gw, time.Second)

	_, err := f.svc.Punch(authedContext(t, testProfile), attendance.PunchRequest{
		Platform: liveness.PlatformWeb,
		Capturer: capturer(solidPNG(t, 300, color.RGBA{0, 0, 0, 255}), nil),
	})

	var rejected *liveness.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, liveness.ReasonTooDark, rejected.Reason)
	assert.Equal(t, "pixel_heuristic", rejected.Strategy)

	assert.Empty(t, gw.punches)
	_, ok, _ := f.state.Get(context.Background(), testProfile.UserID)
	assert.False(t, ok)

	audit := f.lastAudit(t)
	assert.Equal(t, attendance.OutcomeLivenessRejected, audit.Outcome)
	require.NotNil(t, audit.Reason)
	assert.Equal(t, liveness.ReasonTooDark, *audit.Reason)
}

func TestPunch_CaptureFailures(t *testing.T) {
	cases := []struct {
		name string
		cap  attendance.ImageCapturer
	}{
		{"capturer error", capturer(nil, errors.New("camera unavailable"))},
		{"empty capture", capturer([]byte{}, nil)},
		{"undecodable bytes", capturer([]byte("definitely not an image"), nil)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{}
			f := newPunchFixture(gw, time.Second)

			_, err := f.svc.Punch(authedContext(t, testProfile), attendance.PunchRequest{
				Platform: liveness.PlatformIOS,
				Capturer: tc.cap,
			})

			var captureErr *attendance.CaptureError
			require.ErrorAs(t, err, &captureErr)
			assert.Empty(t, gw.punches)
			assert.Equal(t, attendance.OutcomeCaptureFailed, f.lastAudit(t).Outcome)
		})
	}
}

func TestPunch_UpstreamFailureLeavesStateUntouched(t *testing.T) {
	gw := &fakeGateway{punchErr: &hrmsapi.Error{Op: "punch", StatusCode: 503, Message: "unavailable", Transient: true}}
	f := newPunchFixture(gw, time.Second)

	prior := attendance.TodayState{Date: today, Record: &attendance.AttendanceRecord{ID: "prior"}}
	require.NoError(t, f.state.Set(context.Background(), testProfile.UserID, prior))

	_, err := f.svc.Punch(authedContext(t, testProfile), nativeRequest(t))
	require.Error(t, err)
	assert.True(t, hrmsapi.IsTransient(err))

	got, ok, err := f.state.Get(context.Background(), testProfile.UserID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, prior, got)

	assert.Empty(t, f.events.events)
	assert.Equal(t, attendance.OutcomeUpstreamFailed, f.lastAudit(t).Outcome)
}

func TestPunch_UpstreamTimeout(t *testing.T) {
	gw := &fakeGateway{blockPunch: true}
	f := newPunchFixture(gw, 20*time.Millisecond)

	_, err := f.svc.Punch(authedContext(t, testProfile), nativeRequest(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok, _ := f.state.Get(context.Background(), testProfile.UserID)
	assert.False(t, ok)
	assert.Equal(t, attendance.OutcomeUpstreamFailed, f.lastAudit(t).Outcome)
}

func TestPunch_ClientCancellation(t *testing.T) {
	gw := &fakeGateway{blockPunch: true}
	f := newPunchFixture(gw, 5*time.Second)

	ctx, cancel := context.WithCancel(authedContext(t, testProfile))
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := f.svc.Punch(ctx, nativeRequest(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, attendance.OutcomeCancelled, f.lastAudit(t).Outcome)
}

func TestPunch_RefreshFailureIsReported(t *testing.T) {
	gw := &fakeGateway{byDateErr: &hrmsapi.Error{Op: "attendance_by_date", StatusCode: 500, Message: "boom", Transient: true}}
	f := newPunchFixture(gw, time.Second)

	_, err := f.svc.Punch(authedContext(t, testProfile), nativeRequest(t))
	require.Error(t, err)

	var apiErr *hrmsapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "attendance_by_date", apiErr.Op)
	assert.Len(t, gw.punches, 1, "the punch itself landed")

	_, ok, _ := f.state.Get(context.Background(), testProfile.UserID)
	assert.False(t, ok)
	assert.Equal(t, attendance.OutcomeRefreshFailed, f.lastAudit(t).Outcome)
}

func TestPunch_InFlightGuard(t *testing.T) {
	gw := &fakeGateway{}
	f := newPunchFixture(gw, time.Second)

	release, err := f.lock.TryAcquire(context.Background(), testProfile.UserID, time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Punch(authedContext(t, testProfile), nativeRequest(t))
	assert.ErrorIs(t, err, attendance.ErrPunchInProgress)
	assert.Empty(t, gw.punches)

	release()
	gw.after = []attendance.RawAttendanceEntry{checkedInRow()}
	_, err = f.svc.Punch(authedContext(t, testProfile), nativeRequest(t))
	assert.NoError(t, err)
}

func TestPunch_RequestAndIdentityChecks(t *testing.T) {
	f := newPunchFixture(&fakeGateway{}, time.Second)

	_, err := f.svc.Punch(authedContext(t, testProfile), attendance.PunchRequest{Platform: liveness.PlatformWeb})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = f.svc.Punch(authedContext(t, testProfile), attendance.PunchRequest{Platform: "desktop", Capturer: capturer(nil, nil)})
	assert.ErrorAs(t, err, &verrs)

	_, err = f.svc.Punch(context.Background(), nativeRequest(t))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	noAdmin := testProfile
	noAdmin.AdminID = ""
	_, err = f.svc.Punch(authedContext(t, noAdmin), nativeRequest(t))
	assert.ErrorIs(t, err, auth.ErrIncompleteProfile)
}
