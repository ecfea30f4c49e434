package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoansBorrowed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_loans_borrowed_total",
			Help: "Total number of loans created",
		},
	)

	LoansReturned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_loans_returned_total",
			Help: "Total number of loans returned",
		},
	)

	LoansMarkedOverdue = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_loans_marked_overdue_total",
			Help: "Total number of loans transitioned to OVERDUE by the scan",
		},
	)

	NotificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_notifications_enqueued_total",
			Help: "Outbox enqueue outcomes",
		},
		[]string{"outcome"}, // queued, deduplicated
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_notifications_dispatched_total",
			Help: "Outbox dispatch outcomes",
		},
		[]string{"outcome"}, // sent, failed
	)

	NotificationsArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_notifications_archived_total",
			Help: "Outbox entries moved to history",
		},
		[]string{"outcome"}, // success, exhausted
	)
)
