package attendance

import (
	"time"
)

// Status is the canonical attendance label of a day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusHalfDay Status = "half-day"
	StatusLate    Status = "late"
)

// IsKnown reports whether s is one of the canonical labels.
func (s Status) IsKnown() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusHalfDay, StatusLate:
		return true
	}
	return false
}

// LoginStatus is the most recent action the backend recorded for the employee.
type LoginStatus string

const (
	LoginStatusCheckIn  LoginStatus = "checkin"
	LoginStatusCheckOut LoginStatus = "checkout"
)

// NextAction is the punch the employee is expected to perform next.
type NextAction string

const (
	ActionCheckIn  NextAction = "checkin"
	ActionCheckOut NextAction = "checkout"
)

// AttendanceRecord is the canonical view of one employee's day. A new value is
// produced on every reconciliation; it is never updated in place.
type AttendanceRecord struct {
	ID               string               `json:"id"`
	Date             string               `json:"date"`
	CheckIn          *string              `json:"check_in"`
	CheckOut         *string              `json:"check_out"`
	Status           Status               `json:"status"`
	TotalHours       float64              `json:"total_hours"`
	LastLoginStatus  *LoginStatus         `json:"last_login_status,omitempty"`
	ShiftName        *string              `json:"shift_name,omitempty"`
	EmployeeName     *string              `json:"employee_name,omitempty"`
	IsLate           bool                 `json:"is_late"`
	LateMinutes      int                  `json:"late_minutes"`
	IsEarlyExit      bool                 `json:"is_early_exit"`
	EarlyExitMinutes int                  `json:"early_exit_minutes"`
	Remarks          *string              `json:"remarks,omitempty"`
	MultipleEntries  []MultipleCheckEntry `json:"multiple_entries,omitempty"`
}

// MultipleCheckEntry is one check-in/check-out pair within a day.
type MultipleCheckEntry struct {
	ID                  string  `json:"id"`
	CheckInTime         *string `json:"check_in_time"`
	CheckOutTime        *string `json:"check_out_time"`
	TotalWorkingMinutes int     `json:"total_working_minutes"`
	Remarks             *string `json:"remarks,omitempty"`
	CheckInImage        *string `json:"check_in_image,omitempty"`
	CheckOutImage       *string `json:"check_out_image,omitempty"`
}

// TodayState is the cached canonical attendance of the current day for a user.
// Record is nil when the backend has nothing for the day yet.
type TodayState struct {
	Date      string            `json:"date"`
	Record    *AttendanceRecord `json:"record"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PunchOutcome classifies the result of a punch attempt in the audit trail.
type PunchOutcome string

const (
	OutcomeSuccess          PunchOutcome = "success"
	OutcomeCaptureFailed    PunchOutcome = "capture_failed"
	OutcomeLivenessRejected PunchOutcome = "liveness_rejected"
	OutcomeUpstreamFailed   PunchOutcome = "upstream_failed"
	OutcomeRefreshFailed    PunchOutcome = "refresh_failed"
	OutcomeCancelled        PunchOutcome = "cancelled"
)

// PunchAudit records a single punch attempt. The selfie itself is never
// stored, only its fingerprint.
type PunchAudit struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	Platform         string       `json:"platform"`
	Strategy         string       `json:"strategy"`
	Action           NextAction   `json:"action"`
	Outcome          PunchOutcome `json:"outcome"`
	Reason           *string      `json:"reason,omitempty"`
	ImageFingerprint *string      `json:"image_fingerprint,omitempty"`
	DurationMs       int64        `json:"duration_ms"`
	CreatedAt        time.Time    `json:"created_at"`
}
