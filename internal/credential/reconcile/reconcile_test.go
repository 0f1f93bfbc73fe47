package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelgenesis/internal/credential/service"
)

type stubReconciler struct {
	mu     sync.Mutex
	calls  int
	limits []int
	report service.ReconcileReport
	err    error
	called chan struct{}
}

func (s *stubReconciler) ReconcilePending(_ context.Context, limit int) (service.ReconcileReport, error) {
	s.mu.Lock()
	s.calls++
	s.limits = append(s.limits, limit)
	s.mu.Unlock()
	if s.called != nil {
		select {
		case s.called <- struct{}{}:
		default:
		}
	}
	return s.report, s.err
}

func TestRunOnce(t *testing.T) {
	stub := &stubReconciler{report: service.ReconcileReport{Attempted: 3, Anchored: 2, Failed: 1}}
	w := NewWorker(stub, time.Minute, 25)

	report := w.RunOnce(context.Background())
	assert.Equal(t, stub.report, report)
	assert.Equal(t, []int{25}, stub.limits)
}

func TestRunOnce_ErrorIsSwallowed(t *testing.T) {
	stub := &stubReconciler{err: errors.New("store down")}
	w := NewWorker(stub, time.Minute, 10)

	report := w.RunOnce(context.Background())
	assert.Zero(t, report)
	assert.Equal(t, 1, stub.calls)
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	stub := &stubReconciler{called: make(chan struct{}, 1), err: errors.New("transient")}
	w := NewWorker(stub, 5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for range 2 {
		select {
		case <-stub.called:
		case <-time.After(2 * time.Second):
			t.Fatal("reconciler was not called")
		}
	}
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
