package jobs

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"agreementsd/internal/agreements"
	"agreementsd/internal/notify"
)

// Production schedule: invitations are swept daily at 01:00, statuses are
// reconciled every six hours.
const (
	sweepSchedule     = "0 1 * * *"
	reconcileSchedule = "0 */6 * * *"
	jobTimeout        = 5 * time.Minute
)

var (
	sharesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agreements_shares_swept_total",
		Help: "Expired share invitations deleted by the sweep job.",
	})
	statusUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agreements_status_updates_total",
		Help: "Status updates emitted by the reconciliation job.",
	})
	jobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agreements_job_failures_total",
		Help: "Scheduled job runs that failed.",
	}, []string{"job"})
)

// Runner owns the scheduled maintenance jobs. The same entry points back the
// /jobs HTTP triggers so an external scheduler can drive them instead.
type Runner struct {
	svc      *agreements.Service
	notifier *notify.Notifier
	cron     *cron.Cron
	log      zerolog.Logger
}

// New wires a Runner.
func New(svc *agreements.Service, notifier *notify.Notifier, log zerolog.Logger) *Runner {
	return &Runner{
		svc:      svc,
		notifier: notifier,
		cron:     cron.New(),
		log:      log,
	}
}

// Start registers and starts the cron schedule. Job errors are logged and
// counted, never raised to the scheduler.
func (r *Runner) Start() error {
	if _, err := r.cron.AddFunc(sweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := r.SweepShares(ctx); err != nil {
			r.log.Error().Err(err).Msg("share sweep failed")
		}
	}); err != nil {
		return err
	}

	if _, err := r.cron.AddFunc(reconcileSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := r.ReconcileStatuses(ctx); err != nil {
			r.log.Error().Err(err).Msg("status reconciliation failed")
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	r.log.Info().Msg("cron jobs initialized")
	return nil
}

// Stop halts the schedule and waits for running jobs.
func (r *Runner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// SweepShares deletes invitations older than the share TTL.
func (r *Runner) SweepShares(ctx context.Context) (int, error) {
	deleted, err := r.svc.ExpireStaleShares(ctx)
	if err != nil {
		jobFailures.WithLabelValues("sweep_shares").Inc()
		return 0, err
	}
	sharesSwept.Add(float64(deleted))
	r.log.Info().Int("deleted", deleted).Msg("swept expired shares")
	return deleted, nil
}

// ReconcileStatuses runs the status engine and dispatches one notification
// per emitted update. Dispatch happens only after the batch write succeeded,
// so a failed run can be retried without double-sending.
func (r *Runner) ReconcileStatuses(ctx context.Context) ([]agreements.StatusUpdate, error) {
	updates, err := r.svc.ReconcileStatuses(ctx)
	if err != nil {
		jobFailures.WithLabelValues("reconcile_statuses").Inc()
		return nil, err
	}

	for _, update := range updates {
		r.notifier.StatusUpdate(ctx, update)
	}
	statusUpdates.Add(float64(len(updates)))
	r.log.Info().Int("updates", len(updates)).Msg("reconciled signature statuses")
	return updates, nil
}
