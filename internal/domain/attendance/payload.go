package attendance

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexibleID accepts identifiers sent either as JSON numbers or strings.
type FlexibleID string

// UnmarshalJSON never fails: values that are neither strings nor numbers
// decode to the empty ID.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	*id = ""
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*id = FlexibleID(s)
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = FlexibleID(n.String())
	}
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

// FlexibleFloat accepts numbers sent either as JSON numbers or numeric strings.
// Anything else, including NaN and infinities, decodes as not Valid.
type FlexibleFloat struct {
	Value float64
	Valid bool
}

func (f *FlexibleFloat) UnmarshalJSON(data []byte) error {
	*f = FlexibleFloat{}
	raw := strings.TrimSpace(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	if raw == "" || raw == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*f = FlexibleFloat{Value: v, Valid: true}
	return nil
}

// FlexibleBool accepts JSON booleans, "true"/"false" style strings and 0/1.
// Unrecognised values decode as false.
type FlexibleBool bool

func (b *FlexibleBool) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	v, err := strconv.ParseBool(strings.ToLower(raw))
	*b = FlexibleBool(err == nil && v)
	return nil
}

// FlexibleText accepts strings and renders numbers as their literal text.
// Objects, arrays and null decode to the empty string.
type FlexibleText string

func (t *FlexibleText) UnmarshalJSON(data []byte) error {
	*t = ""
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*t = FlexibleText(s)
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = FlexibleText(n.String())
	}
	return nil
}

func (t FlexibleText) String() string {
	return string(t)
}

// RawAttendanceEntry is one day of attendance as the HRMS backend reports it.
type RawAttendanceEntry struct {
	ID               FlexibleID      `json:"id"`
	UserID           FlexibleID      `json:"user_id"`
	EmployeeName     *string         `json:"employee_name"`
	AttendanceStatus *string         `json:"attendance_status"`
	LastLoginStatus  *string         `json:"last_login_status"`
	CheckIn          *string         `json:"check_in"`
	CheckOut         *string         `json:"check_out"`
	ProductionHours  FlexibleText    `json:"production_hours"`
	AttendanceDate   *string         `json:"attendance_date"`
	ShiftName        *string         `json:"shift_name"`
	IsLate           FlexibleBool    `json:"is_late"`
	LateMinutes      FlexibleFloat   `json:"late_minutes"`
	IsEarlyExit      FlexibleBool    `json:"is_early_exit"`
	EarlyExitMinutes FlexibleFloat   `json:"early_exit_minutes"`
	MultipleEntries  RawMultiEntries `json:"multiple_entries"`
	Remarks          *string         `json:"remarks"`
}

// RawMultiEntries decodes element by element. Rows that do not decode are
// dropped and a value that is not an array decodes as no rows.
type RawMultiEntries []RawMultiEntry

func (m *RawMultiEntries) UnmarshalJSON(data []byte) error {
	*m = nil
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	entries := make(RawMultiEntries, 0, len(items))
	for _, item := range items {
		var entry RawMultiEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	*m = entries
	return nil
}

// MaxEntryMinutes caps a single multi-entry duration at one day.
const MaxEntryMinutes = 24 * 60

// RawMultiEntry covers every key variant observed for multi-entry rows across
// backend endpoints. Resolve is the only place that knows about the variants.
type RawMultiEntry struct {
	ID FlexibleID `json:"id"`

	CheckInTime  *string `json:"check_in_time"`
	CheckIn      *string `json:"check_in"`
	CheckOutTime *string `json:"check_out_time"`
	CheckOut     *string `json:"check_out"`

	TotalWorkingMinutes FlexibleFloat `json:"total_working_minutes"`
	TotalWorkingHours   FlexibleFloat `json:"total_working_hours"`

	Remarks *string `json:"remarks"`
	Remark  *string `json:"remark"`

	CheckInImage       *string `json:"check_in_image"`
	CheckInImageCamel  *string `json:"checkInImage"`
	CheckOutImage      *string `json:"check_out_image"`
	CheckOutImageCamel *string `json:"checkOutImage"`
}

// ResolvedMultiEntry is a RawMultiEntry with its key variants collapsed.
// Times are still in backend format.
type ResolvedMultiEntry struct {
	ID            string
	CheckIn       *string
	CheckOut      *string
	Minutes       int
	HasDuration   bool
	Remarks       *string
	CheckInImage  *string
	CheckOutImage *string
}

// Resolve picks the primary key of each variant and falls back to the
// secondary one. Durations are normalised to whole minutes.
func (e RawMultiEntry) Resolve() ResolvedMultiEntry {
	r := ResolvedMultiEntry{
		ID:            e.ID.String(),
		CheckIn:       firstNonEmpty(e.CheckInTime, e.CheckIn),
		CheckOut:      firstNonEmpty(e.CheckOutTime, e.CheckOut),
		Remarks:       firstNonEmpty(e.Remarks, e.Remark),
		CheckInImage:  firstNonEmpty(e.CheckInImage, e.CheckInImageCamel),
		CheckOutImage: firstNonEmpty(e.CheckOutImage, e.CheckOutImageCamel),
	}
	if r.ID == "" {
		r.ID = "0"
	}

	switch {
	case e.TotalWorkingMinutes.Valid && e.TotalWorkingMinutes.Value > 0:
		r.Minutes = clampMinutes(e.TotalWorkingMinutes.Value)
		r.HasDuration = true
	case e.TotalWorkingHours.Valid && e.TotalWorkingHours.Value > 0:
		r.Minutes = clampMinutes(e.TotalWorkingHours.Value * 60)
		r.HasDuration = true
	case e.TotalWorkingMinutes.Valid || e.TotalWorkingHours.Valid:
		r.HasDuration = true
	}
	return r
}

func clampMinutes(v float64) int {
	if v >= MaxEntryMinutes {
		return MaxEntryMinutes
	}
	return int(math.Round(v))
}

func firstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return v
		}
	}
	return nil
}

// RawHistoryPage is a paginated attendance history response.
type RawHistoryPage struct {
	Results  []RawAttendanceEntry `json:"results"`
	Count    int                  `json:"count"`
	Next     *string              `json:"next"`
	Previous *string              `json:"previous"`
}

// DateBucket is a count of days with their dates.
type DateBucket struct {
	Count int      `json:"count"`
	Dates []string `json:"dates"`
}

// MonthlyTotals summarises a month of attendance.
type MonthlyTotals struct {
	TotalDays   int `json:"total_days"`
	PresentDays int `json:"present_days"`
	AbsentDays  int `json:"absent_days"`
}

// RawMonthlySummary is the backend's monthly present/absent summary.
type RawMonthlySummary struct {
	Present DateBucket    `json:"present"`
	Absent  DateBucket    `json:"absent"`
	Summary MonthlyTotals `json:"summary"`
}

// UpstreamPunch is the body sent to the backend punch endpoint.
type UpstreamPunch struct {
	MarkedBy     string   `json:"marked_by"`
	Base64Images []string `json:"base64_images"`
}

// PunchAck is the backend acknowledgement of a punch.
type PunchAck struct {
	Detail string `json:"detail"`
}
