package loans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestCalculateFine_OnTimeIsFree(t *testing.T) {
	due := date(2026, 3, 10, 23, 59)

	assert.Zero(t, CalculateFine(due, date(2026, 3, 8, 12, 0), 5000))
	assert.Zero(t, CalculateFine(due, due, 5000), "returning exactly at the due instant owes nothing")
}

func TestCalculateFine_AnyLatenessOwesAtLeastOneDay(t *testing.T) {
	due := date(2026, 3, 10, 23, 59)

	// 数分の遅延でも1日分
	got := CalculateFine(due, due.Add(2*time.Minute), 5000)
	assert.Equal(t, int64(5000), got)
}

func TestCalculateFine_CountsCalendarDaysNotElapsedHours(t *testing.T) {
	due := date(2026, 3, 10, 23, 0)

	// 25時間後 = 2暦日またぎ
	got := CalculateFine(due, due.Add(25*time.Hour), 5000)
	assert.Equal(t, int64(2*5000), got)

	// 同日深夜→翌日早朝は1日
	got = CalculateFine(date(2026, 3, 10, 1, 0), date(2026, 3, 11, 1, 0), 5000)
	assert.Equal(t, int64(5000), got)
}

func TestCalculateFine_ThreeDaysLate(t *testing.T) {
	due := date(2026, 3, 10, 12, 0)
	actual := date(2026, 3, 13, 12, 0)

	assert.Equal(t, int64(3*5000), CalculateFine(due, actual, 5000))
}

func TestCalculateFine_MonotonicInLateness(t *testing.T) {
	due := date(2026, 3, 10, 0, 0)
	rate := int64(5000)

	prev := int64(0)
	for h := 0; h <= 24*10; h += 6 {
		fine := CalculateFine(due, due.Add(time.Duration(h)*time.Hour), rate)
		assert.GreaterOrEqual(t, fine, prev, "fine must never decrease as lateness grows (h=%d)", h)
		prev = fine
	}
}
