package loans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoticeSubjects_AreStablePerLoan(t *testing.T) {
	// 件名は dedup キーの一部。書式が変わると枠内の重複抑止が壊れる。
	assert.Equal(t, "[Library] Fine notice for loan #42", fineNoticeSubject(42))
	assert.Equal(t, "[Library] Overdue notice for loan #42", overdueNoticeSubject(42))
	assert.Equal(t, "[Library] Due date reminder for loan #42", reminderSubject(42))
}

func TestNoticeBodies_FormatAmountsWithSeparators(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	body := overdueNoticeBody("Nguyen Van A", 7, due, 15000)
	assert.Contains(t, body, "Nguyen Van A")
	assert.Contains(t, body, "2026-03-10")
	assert.Contains(t, body, "15,000 VND")

	body = fineNoticeBody("Nguyen Van A", 7, due, 1234567)
	assert.Contains(t, body, "1,234,567 VND")
}
