package loans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"LIBRA-backend/internal/platform/apperr"
	"LIBRA-backend/internal/platform/db"
)

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// memberHasOverdue: 未返却かつ期限超過の貸出が1件でもあれば true。
// 貸出作成と同一トランザクションで呼ぶこと（チェック後の競合を防ぐ）。
func (s *Store) memberHasOverdue(ctx context.Context, tx *sql.Tx, memberID int64, now time.Time) (bool, error) {
	const q = `
SELECT EXISTS(
	SELECT 1 FROM loans
	WHERE member_id = ? AND return_date IS NULL AND due_date < ?
)`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, memberID, now).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

type lockedBook struct {
	BookID int64
	Title  string
	Stock  int
}

// lockBookRows locks the targeted inventory rows in ascending id order so that
// concurrent batch borrows cannot deadlock on each other.
func (s *Store) lockBookRows(ctx context.Context, tx *sql.Tx, bookIDs []int64) ([]lockedBook, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(bookIDs)), ",")
	q := fmt.Sprintf(`
SELECT book_id, title, stock FROM books
WHERE book_id IN (%s)
ORDER BY book_id ASC
FOR UPDATE`, placeholders)

	args := make([]any, 0, len(bookIDs))
	for _, id := range bookIDs {
		args = append(args, id)
	}

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lockedBook
	for rows.Next() {
		var b lockedBook
		if err := rows.Scan(&b.BookID, &b.Title, &b.Stock); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) adjustStock(ctx context.Context, tx *sql.Tx, bookID int64, delta int) error {
	const q = `UPDATE books SET stock = stock + ? WHERE book_id = ?`
	res, err := tx.ExecContext(ctx, q, delta, bookID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff != 1 {
		return apperr.Internal("failed to update books.stock")
	}
	return nil
}

// ---- Transactional Methods ----

// ExecBorrow creates one BORROWED loan per book id and decrements stock,
// all in a single transaction. bookIDs must be sorted ascending by the caller.
func (s *Store) ExecBorrow(ctx context.Context, memberID int64, bookIDs []int64, borrowAt, dueAt, now time.Time) ([]int64, error) {
	var created []int64
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// 1. Eligibility guard
		hasDebt, err := s.memberHasOverdue(ctx, tx, memberID, now)
		if err != nil {
			return err
		}
		if hasDebt {
			return apperr.Conflict("member has overdue loans and cannot borrow more books")
		}

		// 2. Lock inventory rows (ascending id)
		books, err := s.lockBookRows(ctx, tx, bookIDs)
		if err != nil {
			return err
		}
		if len(books) != len(bookIDs) {
			return apperr.Conflict("one or more selected books were not found")
		}

		// 3. Stock check before any mutation (all-or-nothing)
		for _, b := range books {
			if b.Stock <= 0 {
				return apperr.Conflict("book out of stock: " + b.Title)
			}
		}

		// 4. Insert loans & decrement stock
		const insQ = `
INSERT INTO loans (book_id, member_id, borrow_date, due_date, status, fine_amount, created_at)
VALUES (?, ?, ?, ?, ?, 0, NOW(6))`
		for _, b := range books {
			res, err := tx.ExecContext(ctx, insQ, b.BookID, memberID, borrowAt, dueAt, StatusBorrowed)
			if err != nil {
				return err
			}
			id, _ := res.LastInsertId()
			created = append(created, id)

			if err := s.adjustStock(ctx, tx, b.BookID, -1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ReturnOutcome は返却トランザクションの結果
type ReturnOutcome struct {
	LoanID          int64
	BookID          int64
	MemberID        int64
	Fine            int64
	ReturnedAt      time.Time
	AlreadyReturned bool
}

// ExecReturn locks the loan row, marks it RETURNED with its fine and restores
// stock. Returning an already-RETURNED loan is a no-op, not an error.
func (s *Store) ExecReturn(ctx context.Context, loanID int64, returnedAt time.Time, ratePerDay int64) (*ReturnOutcome, error) {
	out := &ReturnOutcome{LoanID: loanID, ReturnedAt: returnedAt}
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const lockQ = `
SELECT loan_id, book_id, member_id, due_date, status
FROM loans WHERE loan_id = ? FOR UPDATE`
		var (
			dueDate time.Time
			status  Status
		)
		err := tx.QueryRowContext(ctx, lockQ, loanID).Scan(
			&out.LoanID, &out.BookID, &out.MemberID, &dueDate, &status,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(fmt.Sprintf("loan not found: %d", loanID))
		}
		if err != nil {
			return err
		}

		if status == StatusReturned {
			out.AlreadyReturned = true
			return nil
		}

		out.Fine = CalculateFine(dueDate, returnedAt, ratePerDay)

		const updQ = `
UPDATE loans SET return_date = ?, status = ?, fine_amount = ?
WHERE loan_id = ?`
		if _, err := tx.ExecContext(ctx, updQ, returnedAt, StatusReturned, out.Fine, loanID); err != nil {
			return err
		}

		return s.adjustStock(ctx, tx, out.BookID, +1)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Overdue scan queries ----

// OverdueLoan is an open loan past its due date, joined with borrower contact.
type OverdueLoan struct {
	LoanID      int64
	MemberID    int64
	MemberName  string
	MemberEmail string
	DueDate     time.Time
}

func (s *Store) ListOverdueCandidates(ctx context.Context, now time.Time) ([]OverdueLoan, error) {
	const q = `
SELECT l.loan_id, l.member_id, m.full_name, m.email, l.due_date
FROM loans l
JOIN members m ON m.member_id = l.member_id
WHERE l.return_date IS NULL AND l.due_date < ?
ORDER BY l.loan_id ASC`
	return s.scanOverdueRows(ctx, q, now)
}

// ListDueSoon returns open loans falling due within [now, until).
func (s *Store) ListDueSoon(ctx context.Context, now, until time.Time) ([]OverdueLoan, error) {
	const q = `
SELECT l.loan_id, l.member_id, m.full_name, m.email, l.due_date
FROM loans l
JOIN members m ON m.member_id = l.member_id
WHERE l.return_date IS NULL AND l.due_date >= ? AND l.due_date < ?
ORDER BY l.loan_id ASC`
	return s.scanOverdueRows(ctx, q, now, until)
}

func (s *Store) scanOverdueRows(ctx context.Context, q string, args ...any) ([]OverdueLoan, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverdueLoan
	for rows.Next() {
		var o OverdueLoan
		if err := rows.Scan(&o.LoanID, &o.MemberID, &o.MemberName, &o.MemberEmail, &o.DueDate); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// MarkOverdue sets OVERDUE plus the fine computed as of the scan instant.
// The return_date guard keeps a concurrently completed return authoritative.
// Re-running on a later scan only ever raises the stored fine.
func (s *Store) MarkOverdue(ctx context.Context, loanID int64, fine int64) (bool, error) {
	const q = `
UPDATE loans SET status = ?, fine_amount = ?
WHERE loan_id = ? AND return_date IS NULL`
	res, err := s.db.ExecContext(ctx, q, StatusOverdue, fine, loanID)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

// ---- Queries ----

type loanRow struct {
	Loan
	MemberName string
	BookTitle  string
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]loanRow, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if f.Status != nil {
		where.WriteString(` AND l.status = ?`)
		args = append(args, *f.Status)
	}
	if f.Keyword != "" {
		where.WriteString(` AND (b.title LIKE ? OR m.full_name LIKE ? OR m.email LIKE ?)`)
		kw := "%" + strings.TrimSpace(f.Keyword) + "%"
		args = append(args, kw, kw, kw)
	}

	q := `
SELECT l.loan_id, l.book_id, l.member_id, l.borrow_date, l.due_date, l.return_date,
	l.status, l.fine_amount, l.created_at, m.full_name, b.title
FROM loans l
JOIN books b ON b.book_id = l.book_id
JOIN members m ON m.member_id = l.member_id` + where.String() + `
ORDER BY l.due_date ASC
LIMIT ? OFFSET ?`
	argsPage := append(append([]any{}, args...), f.Size, f.Page*f.Size)

	rows, err := s.db.QueryContext(ctx, q, argsPage...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []loanRow
	for rows.Next() {
		var r loanRow
		if err := rows.Scan(
			&r.LoanID, &r.BookID, &r.MemberID, &r.BorrowDate, &r.DueDate, &r.ReturnDate,
			&r.Status, &r.FineAmount, &r.CreatedAt, &r.MemberName, &r.BookTitle,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	cntQ := `
SELECT COUNT(*)
FROM loans l
JOIN books b ON b.book_id = l.book_id
JOIN members m ON m.member_id = l.member_id` + where.String()
	var total int64
	if err := s.db.QueryRowContext(ctx, cntQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

// ---- Dashboard stats ----

func (s *Store) CountBorrowedToday(ctx context.Context, now time.Time) (int64, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	const q = `
SELECT COUNT(*) FROM loans
WHERE borrow_date >= ? AND borrow_date < ? AND status = ?`
	var n int64
	err := s.db.QueryRowContext(ctx, q, start, start.AddDate(0, 0, 1), StatusBorrowed).Scan(&n)
	return n, err
}

func (s *Store) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	const q = `
SELECT COUNT(*) FROM loans
WHERE return_date IS NULL AND due_date < ?`
	var n int64
	err := s.db.QueryRowContext(ctx, q, now).Scan(&n)
	return n, err
}

func (s *Store) SumFines(ctx context.Context) (int64, error) {
	const q = `SELECT COALESCE(SUM(fine_amount), 0) FROM loans`
	var n int64
	err := s.db.QueryRowContext(ctx, q).Scan(&n)
	return n, err
}
