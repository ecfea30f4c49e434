package notifications

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"LIBRA-backend/internal/platform/config"
	"LIBRA-backend/internal/platform/metrics"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// outboxStore is what the dispatcher needs from the pending queue.
type outboxStore interface {
	Enqueue(ctx context.Context, memberID int64, email, subject, body string, now time.Time, dedupWindow time.Duration) (bool, error)
	ClaimBatch(ctx context.Context, workerID string, now time.Time, leaseTimeout time.Duration, maxAttempts, maxItems int) ([]Notification, error)
	MarkSuccess(ctx context.Context, n Notification, now time.Time) error
	MarkFailure(ctx context.Context, n Notification, sendErr string, now time.Time, maxAttempts int) (bool, error)
	ListPending(ctx context.Context) ([]Notification, error)
	ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error)
	CountPending(ctx context.Context) (int64, error)
}

// ===== Service本体 =====

type Service struct {
	store  outboxStore
	mailer Mailer
	clock  Clock
	id     IDGen
	log    *zap.Logger
	cfg    config.OutboxConfig
}

func NewService(conn *sql.DB, mailer Mailer, log *zap.Logger, cfg config.OutboxConfig) *Service {
	return &Service{
		store:  NewStore(conn),
		mailer: mailer,
		clock:  realClock{},
		id:     ulidGen{},
		log:    log,
		cfg:    cfg,
	}
}

// Queue enqueues a notification for later dispatch. Duplicate suppression is
// steady-state behavior, not an error: a suppressed or invalid enqueue just
// returns false.
func (s *Service) Queue(ctx context.Context, memberID int64, email, subject, body string) (bool, error) {
	if memberID <= 0 || strings.TrimSpace(email) == "" || strings.TrimSpace(subject) == "" || body == "" {
		return false, nil
	}

	created, err := s.store.Enqueue(ctx, memberID, email, subject, body, s.clock.Now(), s.cfg.DedupWindow())
	if err != nil {
		return false, err
	}
	if created {
		metrics.NotificationsEnqueued.WithLabelValues("queued").Inc()
	} else {
		metrics.NotificationsEnqueued.WithLabelValues("deduplicated").Inc()
	}
	return created, nil
}

// DispatchReport は配信1バッチ分の結果
type DispatchReport struct {
	Claimed  int `json:"claimed"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Archived int `json:"archived"`
}

// DispatchPending claims a batch under a fresh worker id and hands each entry
// to the mailer. Transport errors are caught per entry so one bad address
// never blocks the rest of the batch.
func (s *Service) DispatchPending(ctx context.Context) (*DispatchReport, error) {
	workerID, err := s.id.New()
	if err != nil {
		return nil, err
	}

	batch, err := s.store.ClaimBatch(ctx, workerID, s.clock.Now(),
		s.cfg.LeaseTimeout(), s.cfg.MaxAttempts, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	report := &DispatchReport{Claimed: len(batch)}
	for _, n := range batch {
		if err := s.mailer.Send(n.Email, n.Subject, n.Body); err != nil {
			report.Failed++
			metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
			s.log.Warn("notification send failed",
				zap.Int64("notification_id", n.ID),
				zap.Int("attempt", n.RetryCount),
				zap.Error(err),
			)

			archived, markErr := s.store.MarkFailure(ctx, n, err.Error(), s.clock.Now(), s.cfg.MaxAttempts)
			if markErr != nil {
				s.log.Error("mark failure failed", zap.Int64("notification_id", n.ID), zap.Error(markErr))
				continue
			}
			if archived {
				report.Archived++
				metrics.NotificationsArchived.WithLabelValues("exhausted").Inc()
			}
			continue
		}

		if err := s.store.MarkSuccess(ctx, n, s.clock.Now()); err != nil {
			// 送信済みだが未アーカイブ。リース期限切れ後に再送される（at-least-once）。
			s.log.Error("mark success failed", zap.Int64("notification_id", n.ID), zap.Error(err))
			continue
		}
		report.Sent++
		metrics.NotificationsDispatched.WithLabelValues("sent").Inc()
		metrics.NotificationsArchived.WithLabelValues("success").Inc()
	}

	if report.Claimed > 0 {
		s.log.Info("outbox dispatch finished",
			zap.String("worker_id", workerID),
			zap.Int("claimed", report.Claimed),
			zap.Int("sent", report.Sent),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}

func (s *Service) ListPending(ctx context.Context) ([]PendingView, error) {
	items, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PendingView, 0, len(items))
	for i := range items {
		out = append(out, buildPendingView(&items[i]))
	}
	return out, nil
}

func (s *Service) ListHistory(ctx context.Context, limit int) ([]HistoryView, error) {
	if limit <= 0 {
		limit = 50
	}
	items, err := s.store.ListHistory(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryView, 0, len(items))
	for i := range items {
		out = append(out, buildHistoryView(&items[i]))
	}
	return out, nil
}

func (s *Service) CountPending(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}
