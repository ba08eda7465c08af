package utils

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"scholar/logger"
	"scholar/services"
)

const (
	sweepTimeout        = 10 * time.Minute
	revokedPurgeSpec    = "17 * * * *"
	revokedPurgeTimeout = time.Minute
)

// StartSchedulers registers the background jobs and starts the cron runner.
// An empty sweepSpec disables the reconcile sweep.
func StartSchedulers(sweepSpec string, reconciler *services.Reconciler, tokens *services.Tokens, log *logger.Logger) (*cron.Cron, error) {
	log = log.With("component", "Scheduler")
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if sweepSpec != "" {
		if _, err := c.AddFunc(sweepSpec, func() { runSweep(reconciler, log) }); err != nil {
			return nil, err
		}
		log.Info("Reconcile sweep scheduled", "schedule", sweepSpec)
	}

	if _, err := c.AddFunc(revokedPurgeSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), revokedPurgeTimeout)
		defer cancel()
		purged, err := tokens.PurgeRevoked(ctx)
		if err != nil {
			log.Error("Purging revoked tokens failed", "error", err)
			return
		}
		if purged > 0 {
			log.Info("Purged revoked tokens", "count", purged)
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}

func runSweep(reconciler *services.Reconciler, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	reconciled, failed, err := reconciler.Sweep(ctx)
	if err != nil {
		log.Error("Reconcile sweep aborted", "reconciled", reconciled, "failed", failed, "error", err)
		return
	}
	log.Info("Reconcile sweep finished", "reconciled", reconciled, "failed", failed, "took", time.Since(start).String())
}
