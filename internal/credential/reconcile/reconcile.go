// Package reconcile drives pending ledger anchors to completion in the
// background.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"pixelgenesis/internal/credential/service"
)

// Reconciler is the part of the lifecycle service the worker drives.
type Reconciler interface {
	ReconcilePending(ctx context.Context, limit int) (service.ReconcileReport, error)
}

// Worker calls ReconcilePending on a fixed interval.
type Worker struct {
	target    Reconciler
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(target Reconciler, interval time.Duration, batchSize int, opts ...Option) *Worker {
	w := &Worker{
		target:    target,
		interval:  interval,
		batchSize: batchSize,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run reconciles until ctx is cancelled. A failed pass is logged and retried
// on the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single pass and returns its report.
func (w *Worker) RunOnce(ctx context.Context) service.ReconcileReport {
	report, err := w.target.ReconcilePending(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "anchor reconciliation failed", "error", err)
		}
		return report
	}
	if report.Attempted > 0 {
		w.logger.InfoContext(ctx, "anchor reconciliation pass",
			"attempted", report.Attempted,
			"anchored", report.Anchored,
			"failed", report.Failed,
		)
	}
	return report
}
