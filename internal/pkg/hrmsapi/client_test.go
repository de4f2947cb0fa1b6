package hrmsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, auth.SessionStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sessions := memory.NewSessionRepository()
	require.NoError(t, sessions.Save(context.Background(), "7", auth.Session{
		AccessToken: "upstream-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
	return NewClient(server.URL+"/", server.Client(), SessionTokens{Store: sessions}), sessions
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginAndSessionInfo(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			var body loginBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body.Password != "secret" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": "abc", "refresh_token": "def", "user_id": 7, "role": "employee"})
		case "/api/session-info":
			assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{
				"user_id": 7, "email": "asha@example.com", "organization_id": "org-1", "admin_id": 3,
			}})
		default:
			http.NotFound(w, r)
		}
	})

	tokens, err := client.Login(context.Background(), "asha", "secret")
	require.NoError(t, err)
	assert.Equal(t, "abc", tokens.AccessToken)
	assert.Equal(t, "7", tokens.UserID)

	profile, err := client.SessionInfo(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "7", profile.UserID)
	assert.Equal(t, "3", profile.AdminID)
	assert.Equal(t, "org-1", profile.OrganizationID)

	_, err = client.Login(context.Background(), "asha", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "No active account found")
}

func TestPunch_SendsBearerAndBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/attendance-check/7", r.URL.Path)
		assert.Equal(t, "Bearer upstream-token", r.Header.Get("Authorization"))

		var body attendance.UpstreamPunch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mobile", body.MarkedBy)
		assert.Equal(t, []string{"data:image/jpeg;base64,AAAA"}, body.Base64Images)

		writeJSON(w, http.StatusCreated, map[string]string{"detail": "Check-in recorded"})
	})

	ack, err := client.Punch(context.Background(), "7", attendance.UpstreamPunch{
		MarkedBy:     "mobile",
		Base64Images: []string{"data:image/jpeg;base64,AAAA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Check-in recorded", ack.Detail)
}

func TestAttendanceQueries(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/employee-attendance/3/7":
			assert.Equal(t, "2025-01-15", r.URL.Query().Get("date"))
			writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": []map[string]interface{}{
				{"id": 1, "user_id": 7, "check_in": "2025-01-15T09:00:00Z", "production_hours": "1h 8m"},
			}})
		case "/api/employee-history/org-1/7":
			assert.Equal(t, "2025-01-01", r.URL.Query().Get("from_date"))
			assert.Equal(t, "2025-01-31", r.URL.Query().Get("to_date"))
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{
				"count": 1, "results": []map[string]interface{}{{"id": "9"}},
			}})
		case "/api/employee-monthly-attendance/3/7/1/2025":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"data":    map[string]interface{}{"present": map[string]interface{}{"count": 2, "dates": []string{"2025-01-02", "2025-01-03"}}},
				"summary": map[string]interface{}{"total_days": 31, "present_days": 2},
			})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	rows, err := client.AttendanceByDate(ctx, "7", "3", "2025-01-15")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0].UserID.String())
	assert.Equal(t, "1h 8m", rows[0].ProductionHours.String())

	page, err := client.History(ctx, "7", "org-1", "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, "9", page.Results[0].ID.String())

	summary, err := client.MonthlySummary(ctx, "7", "3", 1, 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Present.Count)
	assert.Equal(t, 31, summary.Summary.TotalDays)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name          string
		status        int
		body          interface{}
		wantTransient bool
		wantMessage   string
		wantUnauth    bool
	}{
		{"server error", http.StatusBadGateway, map[string]string{"error": "gateway down"}, true, "gateway down", false},
		{"rate limited", http.StatusTooManyRequests, nil, true, "Too Many Requests", false},
		{"bad request", http.StatusBadRequest, map[string]string{"message": "image missing", "detail": "ignored"}, false, "image missing", false},
		{"unauthorized", http.StatusUnauthorized, map[string]string{"detail": "Token expired"}, false, "Token expired", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})

			_, err := client.Punch(context.Background(), "7", attendance.UpstreamPunch{})
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.wantTransient, apiErr.Transient)
			assert.Equal(t, tc.wantMessage, apiErr.Message)
			assert.Equal(t, tc.wantUnauth, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestTimeoutIsTransient(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.Punch(ctx, "7", attendance.UpstreamPunch{})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Transient)
	assert.True(t, apiErr.Timeout())
}

func TestMissingSessionIsNotTransient(t *testing.T) {
	client, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the backend without a session")
	})
	require.NoError(t, sessions.Delete(context.Background(), "7"))

	_, err := client.Punch(context.Background(), "7", attendance.UpstreamPunch{})
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	assert.False(t, IsTransient(err))
}

func TestMalformedPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data": "not-a-list"}`))
	})

	_, err := client.AttendanceByDate(context.Background(), "7", "3", "2025-01-15")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestAttendanceByDate_MalformedFieldsDoNotFailTheDay(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"non-numeric multi-entry minutes", `{"id": 1, "user_id": 7, "multiple_entries": [{"id": 1, "total_working_minutes": "N/A"}, {"id": 2, "total_working_minutes": 30}]}`},
		{"non-numeric late minutes", `{"id": 1, "user_id": 7, "late_minutes": "N/A"}`},
		{"string boolean", `{"id": 1, "user_id": 7, "is_late": "true", "is_early_exit": "nope"}`},
		{"numeric production hours", `{"id": 1, "user_id": 7, "production_hours": 8}`},
		{"multi-entry not a list", `{"id": 1, "user_id": 7, "multiple_entries": "N/A"}`},
		{"unusable multi-entry row", `{"id": 1, "user_id": 7, "multiple_entries": [{"check_in_time": {"at": "09:00"}}, {"id": 2}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"status": "success", "data": [` + tc.row + `]}`))
			})

			rows, err := client.AttendanceByDate(context.Background(), "7", "3", "2025-01-15")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "7", rows[0].UserID.String())
		})
	}
}

func TestAttendanceByDate_LenientFieldValues(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{
			"id": 1,
			"user_id": 7,
			"is_late": "true",
			"late_minutes": "N/A",
			"early_exit_minutes": "15",
			"production_hours": 8,
			"multiple_entries": [{"id": 1, "total_working_minutes": "N/A"}, "garbage", {"id": 3, "total_working_minutes": 45}]
		}]}`))
	})

	rows, err := client.AttendanceByDate(context.Background(), "7", "3", "2025-01-15")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.True(t, bool(row.IsLate))
	assert.False(t, row.LateMinutes.Valid)
	assert.Equal(t, attendance.FlexibleFloat{Value: 15, Valid: true}, row.EarlyExitMinutes)
	assert.Equal(t, "8", row.ProductionHours.String())
	require.Len(t, row.MultipleEntries, 2)
	assert.False(t, row.MultipleEntries[0].TotalWorkingMinutes.Valid)
	assert.Equal(t, "3", row.MultipleEntries[1].ID.String())
}
