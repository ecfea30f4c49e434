package loans

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"go.uber.org/zap"

	"LIBRA-backend/internal/catalog"
	"LIBRA-backend/internal/platform/apperr"
	"LIBRA-backend/internal/platform/config"
	"LIBRA-backend/internal/platform/metrics"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// MemberDirectory is the read-only reference-data lookup the engine needs.
type MemberDirectory interface {
	GetMember(ctx context.Context, memberID int64) (*catalog.Member, error)
}

// NotificationQueue is the outbox enqueue entry point. Queuing is always
// best-effort from this package: a false/error result never fails a return.
type NotificationQueue interface {
	Queue(ctx context.Context, memberID int64, email, subject, body string) (bool, error)
}

// ===== Service本体 =====

type Service struct {
	store   *Store
	members MemberDirectory
	queue   NotificationQueue
	clock   Clock
	log     *zap.Logger

	finePerDay      int64
	defaultLoanDays int
	reminderWindow  time.Duration
}

func NewService(conn *sql.DB, members MemberDirectory, queue NotificationQueue, log *zap.Logger, cfg config.LoanConfig, reminderWindow time.Duration) *Service {
	return &Service{
		store:           NewStore(conn),
		members:         members,
		queue:           queue,
		clock:           realClock{},
		log:             log,
		finePerDay:      cfg.FinePerDay,
		defaultLoanDays: cfg.DefaultLoanDays,
		reminderWindow:  reminderWindow,
	}
}

// Borrow creates one loan per requested book inside a single transaction.
// Any failure leaves no partial loans and no partial stock decrements.
func (s *Service) Borrow(ctx context.Context, req BorrowRequest) (*BorrowResponse, error) {
	if req.MemberID <= 0 {
		return nil, apperr.InvalidArgument("member_id is required")
	}
	if len(req.BookIDs) == 0 {
		return nil, apperr.InvalidArgument("at least one book must be selected")
	}
	seen := make(map[int64]struct{}, len(req.BookIDs))
	for _, id := range req.BookIDs {
		if id <= 0 {
			return nil, apperr.InvalidArgument("invalid book id")
		}
		if _, dup := seen[id]; dup {
			return nil, apperr.InvalidArgument("duplicate books detected in request")
		}
		seen[id] = struct{}{}
	}

	now := s.clock.Now()

	borrowAt := now
	if req.BorrowDate != nil && *req.BorrowDate != "" {
		d, err := time.Parse("2006-01-02", *req.BorrowDate)
		if err != nil {
			return nil, apperr.InvalidArgument("invalid borrow_date format, expected YYYY-MM-DD")
		}
		borrowAt = d
	}

	dueAt := borrowAt.AddDate(0, 0, s.defaultLoanDays)
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return nil, apperr.InvalidArgument("invalid due_date format, expected YYYY-MM-DD")
		}
		// 指定日はその日の終わりまで有効
		dueAt = d.Add(24*time.Hour - time.Nanosecond)
	}

	if !dueAt.After(borrowAt) {
		return nil, apperr.InvalidArgument("due date must be after borrow date")
	}

	if _, err := s.members.GetMember(ctx, req.MemberID); err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, apperr.InvalidArgument("member not found")
		}
		return nil, err
	}

	// ロック順序を固定するため昇順で渡す
	ids := append([]int64(nil), req.BookIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	created, err := s.store.ExecBorrow(ctx, req.MemberID, ids, borrowAt, dueAt, now)
	if err != nil {
		return nil, err
	}

	metrics.LoansBorrowed.Add(float64(len(created)))
	s.log.Info("loans created",
		zap.Int64("member_id", req.MemberID),
		zap.Int("count", len(created)),
	)
	return &BorrowResponse{LoanIDs: created}, nil
}

// Return marks the loan RETURNED and restores stock. Idempotent. A fine
// notice is queued after commit when a fine was charged; queue failures are
// logged, never propagated.
func (s *Service) Return(ctx context.Context, loanID int64, req ReturnRequest) error {
	if loanID <= 0 {
		return apperr.InvalidArgument("loan_id must be > 0")
	}

	now := s.clock.Now()
	returnedAt := now
	if req.ReturnDate != nil && *req.ReturnDate != "" {
		d, err := time.Parse("2006-01-02", *req.ReturnDate)
		if err != nil {
			return apperr.InvalidArgument("invalid return_date format, expected YYYY-MM-DD")
		}
		returnedAt = time.Date(d.Year(), d.Month(), d.Day(),
			now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
	}

	out, err := s.store.ExecReturn(ctx, loanID, returnedAt, s.finePerDay)
	if err != nil {
		return err
	}
	if out.AlreadyReturned {
		return nil
	}

	metrics.LoansReturned.Inc()

	if out.Fine > 0 {
		s.queueFineNotice(ctx, out)
	}
	return nil
}

func (s *Service) queueFineNotice(ctx context.Context, out *ReturnOutcome) {
	member, err := s.members.GetMember(ctx, out.MemberID)
	if err != nil {
		s.log.Warn("fine notice skipped: member lookup failed",
			zap.Int64("loan_id", out.LoanID),
			zap.Int64("member_id", out.MemberID),
			zap.Error(err),
		)
		return
	}

	subject := fineNoticeSubject(out.LoanID)
	body := fineNoticeBody(member.FullName, out.LoanID, out.ReturnedAt, out.Fine)
	if _, err := s.queue.Queue(ctx, out.MemberID, member.Email, subject, body); err != nil {
		s.log.Warn("fine notice enqueue failed",
			zap.Int64("loan_id", out.LoanID),
			zap.Error(err),
		)
	}
}

// MarkOverdueSweep transitions late open loans to OVERDUE with a fine as of
// now, queues overdue notices, and queues due-soon reminders. Safe to run
// concurrently from multiple instances: row guards and outbox dedup arbitrate.
func (s *Service) MarkOverdueSweep(ctx context.Context) (*SweepReport, error) {
	now := s.clock.Now()
	report := &SweepReport{}

	overdue, err := s.store.ListOverdueCandidates(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, o := range overdue {
		fine := CalculateFine(o.DueDate, now, s.finePerDay)
		marked, err := s.store.MarkOverdue(ctx, o.LoanID, fine)
		if err != nil {
			s.log.Error("mark overdue failed", zap.Int64("loan_id", o.LoanID), zap.Error(err))
			continue
		}
		if !marked {
			// 並行して返却済み
			continue
		}
		report.MarkedOverdue++
		metrics.LoansMarkedOverdue.Inc()

		queued, err := s.queue.Queue(ctx, o.MemberID, o.MemberEmail,
			overdueNoticeSubject(o.LoanID),
			overdueNoticeBody(o.MemberName, o.LoanID, o.DueDate, fine),
		)
		if err != nil {
			s.log.Warn("overdue notice enqueue failed", zap.Int64("loan_id", o.LoanID), zap.Error(err))
			continue
		}
		if queued {
			report.NoticesQueued++
		}
	}

	dueSoon, err := s.store.ListDueSoon(ctx, now, now.Add(s.reminderWindow))
	if err != nil {
		return nil, err
	}
	for _, o := range dueSoon {
		queued, err := s.queue.Queue(ctx, o.MemberID, o.MemberEmail,
			reminderSubject(o.LoanID),
			reminderBody(o.MemberName, o.LoanID, o.DueDate),
		)
		if err != nil {
			s.log.Warn("reminder enqueue failed", zap.Int64("loan_id", o.LoanID), zap.Error(err))
			continue
		}
		if queued {
			report.RemindersQueued++
		}
	}

	s.log.Info("overdue sweep finished",
		zap.Int("marked_overdue", report.MarkedOverdue),
		zap.Int("notices_queued", report.NoticesQueued),
		zap.Int("reminders_queued", report.RemindersQueued),
	)
	return report, nil
}

func (s *Service) List(ctx context.Context, q, status string, page, size int) (*PagedLoans, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}

	f := ListFilter{Keyword: q, Page: page, Size: size}
	if status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		f.Status = &st
	}

	rows, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}

	items := make([]LoanView, 0, len(rows))
	for _, r := range rows {
		v := LoanView{
			LoanID:     r.LoanID,
			MemberID:   r.MemberID,
			MemberName: r.MemberName,
			BookID:     r.BookID,
			BookTitle:  r.BookTitle,
			BorrowDate: r.BorrowDate,
			DueDate:    r.DueDate,
			Status:     r.Status,
			FineAmount: r.FineAmount,
		}
		if r.ReturnDate.Valid {
			t := r.ReturnDate.Time
			v.ReturnDate = &t
		}
		items = append(items, v)
	}

	return &PagedLoans{Items: items, Total: total, Page: page, Size: size}, nil
}

func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	now := s.clock.Now()

	borrowed, err := s.store.CountBorrowedToday(ctx, now)
	if err != nil {
		return nil, err
	}
	overdue, err := s.store.CountOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	fines, err := s.store.SumFines(ctx)
	if err != nil {
		return nil, err
	}

	return &StatsResponse{
		BorrowedToday: borrowed,
		OverdueCount:  overdue,
		FineTotal:     fines,
	}, nil
}
