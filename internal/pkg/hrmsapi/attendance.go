package hrmsapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
)

type attendanceListResponse struct {
	Status  string                          `json:"status"`
	Message string                          `json:"message"`
	Data    []attendance.RawAttendanceEntry `json:"data"`
}

type historyResponse struct {
	Data attendance.RawHistoryPage `json:"data"`
}

type monthlyResponse struct {
	Data struct {
		Present attendance.DateBucket `json:"present"`
		Absent  attendance.DateBucket `json:"absent"`
	} `json:"data"`
	Summary attendance.MonthlyTotals `json:"summary"`
}

// Punch records a check-in or check-out. The backend decides which one from
// the employee's current state.
func (c *Client) Punch(ctx context.Context, userID string, body attendance.UpstreamPunch) (attendance.PunchAck, error) {
	var ack attendance.PunchAck
	err := c.do(ctx, request{
		op:     "attendance-check",
		method: http.MethodPost,
		path:   pathf("/api/attendance-check/%s", userID),
		body:   body,
		source: c.userSource(ctx, userID),
	}, &ack)
	return ack, err
}

// AttendanceByDate lists the attendance rows of a user for one date.
func (c *Client) AttendanceByDate(ctx context.Context, userID, adminID, date string) ([]attendance.RawAttendanceEntry, error) {
	var resp attendanceListResponse
	err := c.do(ctx, request{
		op:     "employee-attendance",
		method: http.MethodGet,
		path:   pathf("/api/employee-attendance/%s/%s", adminID, userID),
		query:  url.Values{"date": {date}},
		source: c.userSource(ctx, userID),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// History lists a user's attendance between two dates.
func (c *Client) History(ctx context.Context, userID, organizationID, fromDate, toDate string) (attendance.RawHistoryPage, error) {
	var resp historyResponse
	err := c.do(ctx, request{
		op:     "employee-history",
		method: http.MethodGet,
		path:   pathf("/api/employee-history/%s/%s", organizationID, userID),
		query:  url.Values{"from_date": {fromDate}, "to_date": {toDate}},
		source: c.userSource(ctx, userID),
	}, &resp)
	if err != nil {
		return attendance.RawHistoryPage{}, err
	}
	return resp.Data, nil
}

// MonthlySummary returns the present/absent breakdown of a month.
func (c *Client) MonthlySummary(ctx context.Context, userID, adminID string, month, year int) (attendance.RawMonthlySummary, error) {
	var resp monthlyResponse
	err := c.do(ctx, request{
		op:     "employee-monthly-attendance",
		method: http.MethodGet,
		path:   pathf("/api/employee-monthly-attendance/%s/%s/%s/%s", adminID, userID, strconv.Itoa(month), strconv.Itoa(year)),
		source: c.userSource(ctx, userID),
	}, &resp)
	if err != nil {
		return attendance.RawMonthlySummary{}, err
	}
	return attendance.RawMonthlySummary{
		Present: resp.Data.Present,
		Absent:  resp.Data.Absent,
		Summary: resp.Summary,
	}, nil
}
