package loans

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 通知メールの件名・本文。件名は dedup キーの一部なので書式を変えないこと。

var amountPrinter = message.NewPrinter(language.English)

func fineNoticeSubject(loanID int64) string {
	return fmt.Sprintf("[Library] Fine notice for loan #%d", loanID)
}

func fineNoticeBody(memberName string, loanID int64, returnedAt time.Time, fine int64) string {
	return fmt.Sprintf(
		"Xin chào %s,\n\n"+
			"Phiếu mượn #%d đã được trả vào %s.\n"+
			"Phí phạt phát sinh: %s VND.\n\n"+
			"Vui lòng thanh toán phí phạt tại thư viện. Cảm ơn bạn!",
		memberName,
		loanID,
		returnedAt.Format("2006-01-02"),
		amountPrinter.Sprintf("%d", fine),
	)
}

func overdueNoticeSubject(loanID int64) string {
	return fmt.Sprintf("[Library] Overdue notice for loan #%d", loanID)
}

func overdueNoticeBody(memberName string, loanID int64, dueDate time.Time, fine int64) string {
	return fmt.Sprintf(
		"Dear %s,\nYour loan #%d is overdue since %s. Fine: %s VND.",
		memberName,
		loanID,
		dueDate.Format("2006-01-02"),
		amountPrinter.Sprintf("%d", fine),
	)
}

func reminderSubject(loanID int64) string {
	return fmt.Sprintf("[Library] Due date reminder for loan #%d", loanID)
}

func reminderBody(memberName string, loanID int64, dueDate time.Time) string {
	return fmt.Sprintf(
		"Dear %s,\nYour loan #%d is due on %s. Please return the book on time to avoid a fine.",
		memberName,
		loanID,
		dueDate.Format("2006-01-02"),
	)
}
