package attendance

// DeriveNextAction decides whether the employee should check in or check out
// next. The backend's last login status wins; the recorded check-in time is
// only consulted when that status is missing.
func DeriveNextAction(record *AttendanceRecord) NextAction {
	if record == nil {
		return ActionCheckIn
	}
	if record.LastLoginStatus != nil {
		if *record.LastLoginStatus == LoginStatusCheckOut {
			return ActionCheckIn
		}
		return ActionCheckOut
	}
	if record.CheckIn == nil || *record.CheckIn == "" {
		return ActionCheckIn
	}
	return ActionCheckOut
}
