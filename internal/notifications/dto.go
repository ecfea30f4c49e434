package notifications

import "time"

type QueueRequest struct {
	MemberID int64  `json:"member_id" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Body     string `json:"body" binding:"required"`
}

type QueueResponse struct {
	Enqueued bool `json:"enqueued"`
}

type PendingView struct {
	ID            int64      `json:"id"`
	MemberID      int64      `json:"member_id"`
	Email         string     `json:"email"`
	Subject       string     `json:"subject"`
	CreatedAt     time.Time  `json:"created_at"`
	RetryCount    int        `json:"retry_count"`
	LastError     *string    `json:"last_error,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

type HistoryView struct {
	ID           int64     `json:"id"`
	MemberID     int64     `json:"member_id"`
	Email        string    `json:"email"`
	Subject      string    `json:"subject"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ArchivedAt   time.Time `json:"archived_at"`
}

func buildPendingView(n *Notification) PendingView {
	v := PendingView{
		ID:         n.ID,
		MemberID:   n.MemberID,
		Email:      n.Email,
		Subject:    n.Subject,
		CreatedAt:  n.CreatedAt,
		RetryCount: n.RetryCount,
	}
	if n.LastError.Valid {
		s := n.LastError.String
		v.LastError = &s
	}
	if n.LastAttemptAt.Valid {
		t := n.LastAttemptAt.Time
		v.LastAttemptAt = &t
	}
	return v
}

func buildHistoryView(h *HistoryEntry) HistoryView {
	v := HistoryView{
		ID:         h.ID,
		MemberID:   h.MemberID,
		Email:      h.Email,
		Subject:    h.Subject,
		Success:    h.Success,
		CreatedAt:  h.CreatedAt,
		ArchivedAt: h.ArchivedAt,
	}
	if h.ErrorMessage.Valid {
		s := h.ErrorMessage.String
		v.ErrorMessage = &s
	}
	return v
}
