package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"LIBRA-backend/internal/loans"
	"LIBRA-backend/internal/notifications"
	"LIBRA-backend/internal/platform/config"
)

// Runner drives the two periodic jobs on tickers: the overdue sweep and the
// outbox dispatch. Both entry points are also exposed over HTTP so an
// external cron can drive them instead; row locks and outbox leases make
// concurrent runs from several instances safe. A zero interval disables the
// corresponding ticker.
type Runner struct {
	loans         *loans.Service
	notifications *notifications.Service
	cfg           config.JobConfig
	log           *zap.Logger

	wg sync.WaitGroup
}

func NewRunner(loanSvc *loans.Service, notifSvc *notifications.Service, cfg config.JobConfig, log *zap.Logger) *Runner {
	return &Runner{
		loans:         loanSvc,
		notifications: notifSvc,
		cfg:           cfg,
		log:           log,
	}
}

// Start launches the enabled tickers. Blocks only until goroutines are up.
func (r *Runner) Start(ctx context.Context) {
	if r.cfg.OverdueScanInterval() > 0 {
		r.wg.Add(1)
		go r.loop(ctx, "overdue-scan", r.cfg.OverdueScanInterval(), func(ctx context.Context) error {
			_, err := r.loans.MarkOverdueSweep(ctx)
			return err
		})
	}
	if r.cfg.DispatchInterval() > 0 {
		r.wg.Add(1)
		go r.loop(ctx, "outbox-dispatch", r.cfg.DispatchInterval(), func(ctx context.Context) error {
			_, err := r.notifications.DispatchPending(ctx)
			return err
		})
	}
}

// Wait blocks until all job loops have exited after context cancellation.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) {
	defer r.wg.Done()

	r.log.Info("job loop started", zap.String("job", name), zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("job loop stopped", zap.String("job", name))
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				r.log.Error("job run failed", zap.String("job", name), zap.Error(err))
			}
		}
	}
}
