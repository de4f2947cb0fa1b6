package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/validator"
)

// ========================================
// PUNCH DTOs
// ========================================

// ImageCapturer supplies the selfie bytes for a punch. It may decline by
// returning an error, e.g. when the upload is missing or unreadable.
type ImageCapturer interface {
	Capture(ctx context.Context) ([]byte, error)
}

// ImageCapturerFunc adapts a function to ImageCapturer.
type ImageCapturerFunc func(ctx context.Context) ([]byte, error)

func (f ImageCapturerFunc) Capture(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

type PunchRequest struct {
	Platform liveness.Platform `json:"platform"`
	Capturer ImageCapturer     `json:"-"`
}

func (r *PunchRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Platform != "" && !r.Platform.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "platform",
			Message: "platform must be one of web, android, ios",
		})
	}

	if r.Capturer == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "photo",
			Message: ErrSelfieRequired.Error(),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PunchResponse struct {
	Success    bool              `json:"success"`
	Action     NextAction        `json:"action"`
	Message    string            `json:"message,omitempty"`
	Attendance *AttendanceRecord `json:"attendance"`
	NextAction NextAction        `json:"next_action"`
	Strategy   string            `json:"strategy"`
}

// ========================================
// QUERY DTOs
// ========================================

type TodayResponse struct {
	Date        string            `json:"date"`
	Attendance  *AttendanceRecord `json:"attendance"`
	NextAction  NextAction        `json:"next_action"`
	CanCheckIn  bool              `json:"can_check_in"`
	CanCheckOut bool              `json:"can_check_out"`
}

type HistoryFilter struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

func (f *HistoryFilter) Validate() error {
	var errs validator.ValidationErrors

	from, fromOK := validator.IsValidDate(f.FromDate)
	if !fromOK {
		errs = append(errs, validator.ValidationError{
			Field:   "from_date",
			Message: ErrInvalidDate.Error(),
		})
	}
	to, toOK := validator.IsValidDate(f.ToDate)
	if !toOK {
		errs = append(errs, validator.ValidationError{
			Field:   "to_date",
			Message: ErrInvalidDate.Error(),
		})
	}
	if fromOK && toOK && from.After(to) {
		errs = append(errs, validator.ValidationError{
			Field:   "from_date",
			Message: ErrInvalidDateRange.Error(),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type HistoryResponse struct {
	Records  []AttendanceRecord `json:"records"`
	Count    int                `json:"count"`
	Next     *string            `json:"next,omitempty"`
	Previous *string            `json:"previous,omitempty"`
}

type MonthlyRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (r *MonthlyRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: ErrInvalidMonth.Error(),
		})
	}
	if r.Year < 2000 || r.Year > 9999 {
		errs = append(errs, validator.ValidationError{
			Field:   "year",
			Message: "year must be a four digit year from 2000",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MonthlyResponse struct {
	Year    int           `json:"year"`
	Month   int           `json:"month"`
	Present DateBucket    `json:"present"`
	Absent  DateBucket    `json:"absent"`
	Summary MonthlyTotals `json:"summary"`
}

// StreamEvent is pushed to a user's open attendance streams.
type StreamEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

// Stream event names.
const (
	EventAttendanceUpdated = "attendance.updated"
)

// PunchEvent is published to the message broker after a successful punch.
type PunchEvent struct {
	UserID     string            `json:"user_id"`
	AdminID    string            `json:"admin_id"`
	Action     NextAction        `json:"action"`
	Platform   string            `json:"platform"`
	Strategy   string            `json:"strategy"`
	Attendance *AttendanceRecord `json:"attendance"`
	OccurredAt time.Time         `json:"occurred_at"`
}
