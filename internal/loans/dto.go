package loans

import "time"

// 貸出リクエスト。複数冊を1トランザクションで借りる。
type BorrowRequest struct {
	MemberID int64   `json:"member_id" binding:"required"`
	BookIDs  []int64 `json:"book_ids" binding:"required"`
	// "2006-01-02" 形式（省略時は現在時刻 / 現在+既定貸出日数）
	BorrowDate *string `json:"borrow_date,omitempty"`
	DueDate    *string `json:"due_date,omitempty"`
}

type BorrowResponse struct {
	LoanIDs []int64 `json:"loan_ids"`
}

type ReturnRequest struct {
	ReturnDate *string `json:"return_date,omitempty"`
}

type LoanView struct {
	LoanID     int64      `json:"loan_id"`
	MemberID   int64      `json:"member_id"`
	MemberName string     `json:"member_name"`
	BookID     int64      `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     Status     `json:"status"`
	FineAmount int64      `json:"fine_amount"`
}

type PagedLoans struct {
	Items []LoanView `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
}

// SweepReport は期限超過スキャン1回分の結果
type SweepReport struct {
	MarkedOverdue   int `json:"marked_overdue"`
	NoticesQueued   int `json:"notices_queued"`
	RemindersQueued int `json:"reminders_queued"`
}

type StatsResponse struct {
	BorrowedToday int64 `json:"borrowed_today"`
	OverdueCount  int64 `json:"overdue_count"`
	FineTotal     int64 `json:"fine_total"`
}
