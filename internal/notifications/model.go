package notifications

import (
	"database/sql"
	"time"
)

// Notification は notifications テーブル（未配信キュー）の1行を表す。
// ProcessID/LockedAt がリース。retry_count はクレームごとに加算される。
type Notification struct {
	ID            int64
	MemberID      int64
	Email         string
	Subject       string
	Body          string
	CreatedAt     time.Time
	ProcessID     sql.NullString
	LockedAt      sql.NullTime
	RetryCount    int
	LastError     sql.NullString
	LastAttemptAt sql.NullTime
}

// HistoryEntry は notification_history（追記専用アーカイブ）の1行を表す
type HistoryEntry struct {
	ID           int64
	MemberID     int64
	Email        string
	Subject      string
	Body         string
	Success      bool
	ErrorMessage sql.NullString
	CreatedAt    time.Time
	ArchivedAt   time.Time
}
