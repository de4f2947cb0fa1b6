package attendance

import (
	"errors"
	"fmt"
)

// Attendance domain errors
var (
	// Punch errors
	ErrPunchInProgress = errors.New("a punch is already in progress")
	ErrSelfieRequired  = errors.New("selfie capture is required for attendance")
	ErrNoAttendanceYet = errors.New("no attendance recorded for this date")

	// Query errors
	ErrInvalidDate      = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidDateRange = errors.New("from_date must not be after to_date")
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")

	// Reconciliation anomalies. These are reported, never returned.
	ErrUnparseableTime        = errors.New("unparseable timestamp")
	ErrUnparseableDuration    = errors.New("unparseable duration")
	ErrUnparseableDate        = errors.New("unparseable attendance date")
	ErrUnknownStatus          = errors.New("unknown attendance status")
	ErrUnknownLoginStatus     = errors.New("unknown last login status")
	ErrMissingWorkingDuration = errors.New("multi-entry row has neither total_working_minutes nor total_working_hours")
)

// AnomalyError describes a field that reconciliation had to default.
type AnomalyError struct {
	Field string
	Value string
	Err   error
}

func (e *AnomalyError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v (%q)", e.Field, e.Err, e.Value)
}

func (e *AnomalyError) Unwrap() error {
	return e.Err
}

// CaptureError wraps a failure to obtain the selfie for a punch.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return "failed to capture selfie: " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
