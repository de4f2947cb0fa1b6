package attendance

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/require"
)

var testProfile = auth.Profile{
	UserID:         "7",
	Email:          "asha@example.com",
	Username:       "asha",
	Role:           "employee",
	OrganizationID: "org-1",
	AdminID:        "3",
}

// authedContext returns a context carrying a verified access token for p.
func authedContext(t *testing.T, p auth.Profile) context.Context {
	t.Helper()
	svc := jwt.NewJWTService("test-secret", "1h")
	raw, _, err := svc.GenerateAccessToken(p)
	require.NoError(t, err)
	token, err := svc.JWTAuth().Decode(raw)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func solidPNG(t *testing.T, size int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func capturer(data []byte, err error) attendance.ImageCapturer {
	return attendance.ImageCapturerFunc(func(ctx context.Context) ([]byte, error) {
		return data, err
	})
}

type fakeGateway struct {
	mu sync.Mutex

	// before is served by AttendanceByDate until a punch lands, after afterwards.
	before []attendance.RawAttendanceEntry
	after  []attendance.RawAttendanceEntry

	punchErr   error
	byDateErr  error
	blockPunch bool

	history    attendance.RawHistoryPage
	historyErr error
	monthly    attendance.RawMonthlySummary

	punches     []attendance.UpstreamPunch
	punched     bool
	byDateCalls int
	lastHistory [2]string
}

func (g *fakeGateway) Punch(ctx context.Context, userID string, body attendance.UpstreamPunch) (attendance.PunchAck, error) {
	if g.blockPunch {
		<-ctx.Done()
		return attendance.PunchAck{}, ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.punches = append(g.punches, body)
	if g.punchErr != nil {
		return attendance.PunchAck{}, g.punchErr
	}
	g.punched = true
	return attendance.PunchAck{Detail: "Attendance marked"}, nil
}

func (g *fakeGateway) AttendanceByDate(ctx context.Context, userID, adminID, date string) ([]attendance.RawAttendanceEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byDateCalls++
	if g.byDateErr != nil {
		return nil, g.byDateErr
	}
	if g.punched {
		return g.after, nil
	}
	return g.before, nil
}

func (g *fakeGateway) History(ctx context.Context, userID, organizationID, fromDate, toDate string) (attendance.RawHistoryPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastHistory = [2]string{fromDate, toDate}
	return g.history, g.historyErr
}

func (g *fakeGateway) MonthlySummary(ctx context.Context, userID, adminID string, month, year int) (attendance.RawMonthlySummary, error) {
	return g.monthly, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []attendance.PunchEvent
}

func (p *recordingPublisher) PublishPunch(ctx context.Context, event attendance.PunchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
