package loans

import "time"

// CalculateFine computes the fine owed for a loan due at due and observed
// returned (or scanned) at actual. Zero when actual is not after due.
// Lateness is counted in whole calendar days between the two dates, floored
// at one: any lateness past the due instant owes at least one full day.
func CalculateFine(due, actual time.Time, ratePerDay int64) int64 {
	if !actual.After(due) {
		return 0
	}
	days := calendarDaysBetween(due, actual)
	if days < 1 {
		days = 1
	}
	return days * ratePerDay
}

func calendarDaysBetween(a, b time.Time) int64 {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int64(bd.Sub(ad) / (24 * time.Hour))
}
