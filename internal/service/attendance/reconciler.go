package attendance

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
)

// DisplayTimeLayout is the only time format that leaves the reconciler.
const DisplayTimeLayout = "3:04 PM"

type timeLayout struct {
	layout string
	zoned  bool
}

// Layouts seen across backend endpoints, tried in order.
var timeLayouts = []timeLayout{
	{time.RFC3339Nano, true},
	{time.RFC3339, true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05.999999999", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
	{"15:04:05.999999", false},
	{"15:04:05", false},
	{"15:04", false},
	{"3:04 PM", false},
	{"03:04 PM", false},
}

var (
	hoursPattern   = regexp.MustCompile(`(\d+)h`)
	minutesPattern = regexp.MustCompile(`(\d+)m`)
)

type ReconcilerImpl struct {
	location *time.Location
}

// NewReconciler returns a reconciler that renders times in loc.
func NewReconciler(loc *time.Location) attendance.Reconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReconcilerImpl{location: loc}
}

// Reconcile implements attendance.Reconciler.
func (r *ReconcilerImpl) Reconcile(raw attendance.RawAttendanceEntry) attendance.AttendanceRecord {
	record, _ := r.ReconcileReport(raw, "")
	return record
}

// ReconcileForDate implements attendance.Reconciler.
func (r *ReconcilerImpl) ReconcileForDate(raw attendance.RawAttendanceEntry, date string) attendance.AttendanceRecord {
	record, _ := r.ReconcileReport(raw, date)
	return record
}

// ReconcileReport implements attendance.Reconciler.
func (r *ReconcilerImpl) ReconcileReport(raw attendance.RawAttendanceEntry, date string) (attendance.AttendanceRecord, []error) {
	var anomalies []error
	note := func(field, value string, err error) {
		anomalies = append(anomalies, &attendance.AnomalyError{Field: field, Value: value, Err: err})
	}

	checkIn, err := r.FormatTime(raw.CheckIn)
	if err != nil {
		note("check_in", deref(raw.CheckIn), err)
	}
	checkOut, err := r.FormatTime(raw.CheckOut)
	if err != nil {
		note("check_out", deref(raw.CheckOut), err)
	}

	totalHours, ok := ParseDuration(raw.ProductionHours.String())
	if !ok {
		note("production_hours", raw.ProductionHours.String(), attendance.ErrUnparseableDuration)
	}

	recordDate, ok := resolveDate(raw.AttendanceDate, date)
	if !ok {
		note("attendance_date", deref(raw.AttendanceDate), attendance.ErrUnparseableDate)
	}

	status, known := NormalizeStatus(deref(raw.AttendanceStatus), bool(raw.IsLate))
	if !known {
		note("attendance_status", deref(raw.AttendanceStatus), attendance.ErrUnknownStatus)
	}

	lastLogin, known := NormalizeLoginStatus(deref(raw.LastLoginStatus))
	if !known {
		note("last_login_status", deref(raw.LastLoginStatus), attendance.ErrUnknownLoginStatus)
	}

	record := attendance.AttendanceRecord{
		ID:               raw.ID.String(),
		Date:             recordDate,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Status:           status,
		TotalHours:       totalHours,
		LastLoginStatus:  lastLogin,
		ShiftName:        trimmed(raw.ShiftName),
		EmployeeName:     trimmed(raw.EmployeeName),
		IsLate:           bool(raw.IsLate),
		LateMinutes:      wholeMinutes(raw.LateMinutes),
		IsEarlyExit:      bool(raw.IsEarlyExit),
		EarlyExitMinutes: wholeMinutes(raw.EarlyExitMinutes),
		Remarks:          trimmed(raw.Remarks),
	}

	for i, rawEntry := range raw.MultipleEntries {
		entry, entryAnomalies := r.normalizeEntry(rawEntry, i)
		record.MultipleEntries = append(record.MultipleEntries, entry)
		anomalies = append(anomalies, entryAnomalies...)
	}

	return record, anomalies
}

func (r *ReconcilerImpl) normalizeEntry(raw attendance.RawMultiEntry, index int) (attendance.MultipleCheckEntry, []error) {
	var anomalies []error
	prefix := "multiple_entries[" + strconv.Itoa(index) + "]."
	resolved := raw.Resolve()

	checkIn, err := r.FormatTime(resolved.CheckIn)
	if err != nil {
		anomalies = append(anomalies, &attendance.AnomalyError{Field: prefix + "check_in_time", Value: deref(resolved.CheckIn), Err: err})
	}
	checkOut, err := r.FormatTime(resolved.CheckOut)
	if err != nil {
		anomalies = append(anomalies, &attendance.AnomalyError{Field: prefix + "check_out_time", Value: deref(resolved.CheckOut), Err: err})
	}
	if !resolved.HasDuration {
		anomalies = append(anomalies, &attendance.AnomalyError{Field: prefix + "total_working_minutes", Err: attendance.ErrMissingWorkingDuration})
	}

	return attendance.MultipleCheckEntry{
		ID:                  resolved.ID,
		CheckInTime:         checkIn,
		CheckOutTime:        checkOut,
		TotalWorkingMinutes: resolved.Minutes,
		Remarks:             resolved.Remarks,
		CheckInImage:        resolved.CheckInImage,
		CheckOutImage:       resolved.CheckOutImage,
	}, anomalies
}

// FormatTime renders a backend timestamp as "h:mm AM/PM". Empty input yields
// nil; unparseable input is passed through unchanged with
// ErrUnparseableTime.
func (r *ReconcilerImpl) FormatTime(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*value)
	if s == "" {
		return nil, nil
	}

	for _, l := range timeLayouts {
		var t time.Time
		var err error
		if l.zoned {
			t, err = time.Parse(l.layout, s)
			t = t.In(r.location)
		} else {
			t, err = time.ParseInLocation(l.layout, s, r.location)
		}
		if err == nil {
			formatted := t.Format(DisplayTimeLayout)
			return &formatted, nil
		}
	}

	passthrough := *value
	return &passthrough, attendance.ErrUnparseableTime
}

// ParseDuration reads free-text durations such as "1h 8m" into hours. Either
// part may be absent. ok is false for non-empty input with neither part.
func ParseDuration(s string) (hours float64, ok bool) {
	h := hoursPattern.FindStringSubmatch(s)
	m := minutesPattern.FindStringSubmatch(s)
	if h == nil && m == nil {
		return 0, strings.TrimSpace(s) == ""
	}

	if h != nil {
		n, _ := strconv.Atoi(h[1])
		hours += float64(n)
	}
	if m != nil {
		n, _ := strconv.Atoi(m[1])
		hours += float64(n) / 60
	}
	return hours, true
}

// NormalizeStatus lower-cases the backend label and upgrades present to late
// when the lateness flag is set. known is false for labels outside the
// canonical set; those pass through lower-cased.
func NormalizeStatus(raw string, isLate bool) (status attendance.Status, known bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "":
		return attendance.StatusAbsent, true
	case "half day", "half_day", "halfday":
		s = string(attendance.StatusHalfDay)
	}

	status = attendance.Status(s)
	if status == attendance.StatusPresent && isLate {
		return attendance.StatusLate, true
	}
	return status, status.IsKnown()
}

// NormalizeLoginStatus maps spellings like "Check-In" or "check_out" to the
// canonical values. Empty input yields nil.
func NormalizeLoginStatus(raw string) (status *attendance.LoginStatus, known bool) {
	s := strings.ToLower(raw)
	s = strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
	if s == "" {
		return nil, true
	}

	ls := attendance.LoginStatus(s)
	return &ls, ls == attendance.LoginStatusCheckIn || ls == attendance.LoginStatusCheckOut
}

// resolveDate returns the YYYY-MM-DD prefix of raw, or fallback when raw is
// empty or not a date. ok is false only for a present but unusable value.
func resolveDate(raw *string, fallback string) (string, bool) {
	s := strings.TrimSpace(deref(raw))
	if s == "" {
		return fallback, true
	}
	if len(s) >= 10 {
		if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return s[:10], true
		}
	}
	return fallback, false
}

func wholeMinutes(f attendance.FlexibleFloat) int {
	if !f.Valid || f.Value < 0 {
		return 0
	}
	if f.Value >= attendance.MaxEntryMinutes {
		return attendance.MaxEntryMinutes
	}
	return int(math.Round(f.Value))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
