package notifications

import (
	"context"
	"database/sql"
	"time"

	"LIBRA-backend/internal/platform/db"
)

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const selectCols = `
id, member_id, email, subject, body, created_at,
process_id, locked_at, retry_count, last_error, last_attempt_at`

// Enqueue inserts a pending notification unless an entry with the same
// member+subject exists in the pending set OR the archive within the trailing
// dedup window. Returns whether a new row was created.
func (s *Store) Enqueue(ctx context.Context, memberID int64, email, subject, body string, now time.Time, dedupWindow time.Duration) (bool, error) {
	recent := now.Add(-dedupWindow)
	created := false

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const pendingQ = `
SELECT EXISTS(
	SELECT 1 FROM notifications
	WHERE member_id = ? AND subject = ? AND created_at > ?
)`
		var exists bool
		if err := tx.QueryRowContext(ctx, pendingQ, memberID, subject, recent).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			const historyQ = `
SELECT EXISTS(
	SELECT 1 FROM notification_history
	WHERE member_id = ? AND subject = ? AND created_at > ?
)`
			if err := tx.QueryRowContext(ctx, historyQ, memberID, subject, recent).Scan(&exists); err != nil {
				return err
			}
		}
		if exists {
			return nil
		}

		const insQ = `
INSERT INTO notifications (member_id, email, subject, body, created_at, retry_count)
VALUES (?, ?, ?, ?, ?, 0)`
		if _, err := tx.ExecContext(ctx, insQ, memberID, email, subject, body, now); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// ClaimBatch leases up to maxItems entries to workerID using the two-phase
// claim: first re-lease entries whose lease expired before now-leaseTimeout,
// then lease fresh unleased entries. Both phases skip entries at the attempt
// cap and count the claim as an attempt. Returns the worker's leased entries
// oldest first.
func (s *Store) ClaimBatch(ctx context.Context, workerID string, now time.Time, leaseTimeout time.Duration, maxAttempts, maxItems int) ([]Notification, error) {
	expired := now.Add(-leaseTimeout)
	var out []Notification

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const reclaimQ = `
UPDATE notifications
SET process_id = ?, locked_at = ?, retry_count = retry_count + 1
WHERE locked_at IS NOT NULL AND locked_at < ? AND retry_count < ?`
		if _, err := tx.ExecContext(ctx, reclaimQ, workerID, now, expired, maxAttempts); err != nil {
			return err
		}

		const leaseQ = `
UPDATE notifications
SET process_id = ?, locked_at = ?, retry_count = retry_count + 1
WHERE locked_at IS NULL AND retry_count < ?
LIMIT ?`
		if _, err := tx.ExecContext(ctx, leaseQ, workerID, now, maxAttempts, maxItems); err != nil {
			return err
		}

		const fetchQ = `
SELECT ` + selectCols + `
FROM notifications
WHERE process_id = ?
ORDER BY created_at ASC
LIMIT ?`
		rows, err := tx.QueryContext(ctx, fetchQ, workerID, maxItems)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n Notification
			if err := scanNotification(rows, &n); err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSuccess archives the entry with success=true and removes it from the
// pending set, atomically.
func (s *Store) MarkSuccess(ctx context.Context, n Notification, now time.Time) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertHistory(ctx, tx, n, true, nil, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, n.ID)
		return err
	})
}

// MarkFailure records the delivery error and clears the lease so a later claim
// can retry. Once the attempt cap is reached the entry is archived with
// success=false instead of staying pending forever.
func (s *Store) MarkFailure(ctx context.Context, n Notification, sendErr string, now time.Time, maxAttempts int) (archived bool, err error) {
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const updQ = `
UPDATE notifications
SET last_error = ?, last_attempt_at = ?, process_id = NULL, locked_at = NULL
WHERE id = ?`
		if _, err := tx.ExecContext(ctx, updQ, sendErr, now, n.ID); err != nil {
			return err
		}

		if n.RetryCount < maxAttempts {
			return nil
		}

		if err := insertHistory(ctx, tx, n, false, &sendErr, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, n.ID); err != nil {
			return err
		}
		archived = true
		return nil
	})
	return archived, err
}

func insertHistory(ctx context.Context, tx *sql.Tx, n Notification, success bool, errMsg *string, now time.Time) error {
	const q = `
INSERT INTO notification_history
(member_id, email, subject, body, success, error_message, created_at, archived_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var msg any
	if errMsg != nil {
		msg = *errMsg
	}
	_, err := tx.ExecContext(ctx, q, n.MemberID, n.Email, n.Subject, n.Body, success, msg, n.CreatedAt, now)
	return err
}

// ---- Queries ----

func (s *Store) ListPending(ctx context.Context) ([]Notification, error) {
	const q = `
SELECT ` + selectCols + `
FROM notifications
ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	const q = `
SELECT id, member_id, email, subject, body, success, error_message, created_at, archived_at
FROM notification_history
ORDER BY created_at DESC
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(
			&h.ID, &h.MemberID, &h.Email, &h.Subject, &h.Body,
			&h.Success, &h.ErrorMessage, &h.CreatedAt, &h.ArchivedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&n)
	return n, err
}

func scanNotification(rows *sql.Rows, n *Notification) error {
	return rows.Scan(
		&n.ID, &n.MemberID, &n.Email, &n.Subject, &n.Body, &n.CreatedAt,
		&n.ProcessID, &n.LockedAt, &n.RetryCount, &n.LastError, &n.LastAttemptAt,
	)
}
