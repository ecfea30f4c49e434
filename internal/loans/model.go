package loans

import (
	"database/sql"
	"strings"
	"time"

	"LIBRA-backend/internal/platform/apperr"
)

// Status は貸出のライフサイクル状態
type Status string

const (
	StatusBorrowed Status = "BORROWED"
	StatusOverdue  Status = "OVERDUE"
	StatusReturned Status = "RETURNED"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusBorrowed:
		return StatusBorrowed, nil
	case StatusOverdue:
		return StatusOverdue, nil
	case StatusReturned:
		return StatusReturned, nil
	default:
		return "", apperr.InvalidArgument("invalid loan status: " + s)
	}
}

// Loan は loans テーブルの1行を表す。
// return_date が非NULL ⇔ status が RETURNED。履歴は追記専用で行削除はしない。
type Loan struct {
	LoanID     int64
	BookID     int64
	MemberID   int64
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate sql.NullTime
	Status     Status
	FineAmount int64 // minor units per day-late, VND
	CreatedAt  time.Time
}

// 一覧取得用の検索条件
type ListFilter struct {
	Keyword string
	Status  *Status
	Page    int
	Size    int
}
