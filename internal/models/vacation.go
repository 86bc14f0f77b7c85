package models

// VacationInterval is a closed or open range of calendar days (YYYY-MM-DD).
// At most one interval may be open (EndDate nil) at a time.
type VacationInterval struct {
	ID        string  `json:"id"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate,omitempty"`
}

// OpenInterval returns the index of the currently open interval, or -1.
func OpenInterval(intervals []VacationInterval) int {
	for i, v := range intervals {
		if v.EndDate == nil {
			return i
		}
	}
	return -1
}

// OnVacation reports whether date falls inside any interval.
func OnVacation(intervals []VacationInterval, date string) bool {
	for _, v := range intervals {
		if date < v.StartDate {
			continue
		}
		if v.EndDate == nil || date <= *v.EndDate {
			return true
		}
	}
	return false
}

// StartVacation opens a new interval beginning today. It is a no-op when one is already open.
func StartVacation(intervals []VacationInterval, id, today string) ([]VacationInterval, bool) {
	if OpenInterval(intervals) >= 0 {
		return intervals, false
	}
	out := append(append([]VacationInterval(nil), intervals...), VacationInterval{
		ID:        id,
		StartDate: today,
	})
	return out, true
}

// EndVacation closes the open interval at today. An interval opened today is removed
// entirely so no zero-length interval is left behind.
func EndVacation(intervals []VacationInterval, today string) ([]VacationInterval, bool) {
	idx := OpenInterval(intervals)
	if idx < 0 {
		return intervals, false
	}
	out := append([]VacationInterval(nil), intervals...)
	if out[idx].StartDate >= today {
		return append(out[:idx], out[idx+1:]...), true
	}
	end := today
	out[idx].EndDate = &end
	return out, true
}
