package worker

import (
	"context"
	"sync"
	"time"

	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultExpireAfter   = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// ActionExpirer marks stale pending actions as expired and returns how many were changed
type ActionExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// ActionExpiryWorker periodically expires pending suggested actions nobody reviewed
//
// Architecture assumptions:
// - The sweep is a conditional update, so running it on several instances is harmless
type ActionExpiryWorker struct {
	expirer     ActionExpirer
	expireAfter time.Duration
	interval    time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once
}

// NewActionExpiryWorker creates a worker. Non-positive durations fall back to defaults.
func NewActionExpiryWorker(expirer ActionExpirer, expireAfter, interval time.Duration) *ActionExpiryWorker {
	if expireAfter <= 0 {
		expireAfter = DefaultExpireAfter
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &ActionExpiryWorker{
		expirer:     expirer,
		expireAfter: expireAfter,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background sweep loop without blocking
func (w *ActionExpiryWorker) Start(ctx context.Context) error {
	logging.Default().Info("Action expiry worker starting",
		"expire_after", w.expireAfter.String(),
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *ActionExpiryWorker) Stop() {
	w.stopOnce.Do(func() {
		logging.Default().Info("Action expiry worker stopping")
		close(w.stopCh)
	})
	<-w.doneCh
	logging.Default().Info("Action expiry worker stopped")
}

func (w *ActionExpiryWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.Sweep(ctx); err != nil {
		logging.Default().Error("Initial action expiry sweep failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				logging.Default().Error("Action expiry sweep failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Action expiry worker context cancelled")
			return
		}
	}
}

// Sweep runs a single expiry cycle
func (w *ActionExpiryWorker) Sweep(ctx context.Context) error {
	startTime := time.Now()

	n, err := w.expirer.ExpireStale(ctx, w.expireAfter)
	if err != nil {
		return goerr.Wrap(err, "failed to expire stale actions", goerr.V("expire_after", w.expireAfter.String()))
	}

	logging.Default().Info("Action expiry sweep completed",
		"expired", n,
		"duration", time.Since(startTime).String())

	return nil
}
