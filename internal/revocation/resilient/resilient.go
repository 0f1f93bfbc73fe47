// Package resilient wraps a revocation.Oracle with bounded retries, a circuit
// breaker and per-key call coalescing.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"pixelgenesis/internal/revocation"
	"pixelgenesis/pkg/platform/circuit"
	"pixelgenesis/pkg/platform/retry"
)

// ErrCircuitOpen is returned without calling the oracle while the breaker is open.
var ErrCircuitOpen = errors.New("circuit open")

// Oracle is safe for concurrent use.
type Oracle struct {
	next    revocation.Oracle
	policy  retry.Policy
	breaker *circuit.Breaker
	group   singleflight.Group
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithPolicy sets the retry budget.
func WithPolicy(p retry.Policy) Option {
	return func(o *Oracle) {
		o.policy = p
	}
}

// WithBreaker replaces the default breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(o *Oracle) {
		if b != nil {
			o.breaker = b
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *Oracle) {
		o.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Oracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New decorates next.
func New(next revocation.Oracle, opts ...Option) *Oracle {
	o := &Oracle{
		next:    next,
		policy:  retry.DefaultPolicy,
		breaker: circuit.New("revocation-oracle"),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register anchors key. Concurrent registrations of the same key share one call.
func (o *Oracle) Register(ctx context.Context, key revocation.Key) (string, error) {
	v, err, _ := o.group.Do("register:"+key.Hex(), func() (any, error) {
		var ref string
		err := o.call(ctx, "register", func(ctx context.Context) error {
			var err error
			ref, err = o.next.Register(ctx, key)
			return err
		})
		return ref, err
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Revoke checks the revoked flag first and returns revocation.ErrAlreadyRevoked
// when it is already set, so a retried revocation never submits twice.
func (o *Oracle) Revoke(ctx context.Context, key revocation.Key) (string, error) {
	v, err, _ := o.group.Do("revoke:"+key.Hex(), func() (any, error) {
		revoked, err := o.IsRevoked(ctx, key)
		if err != nil {
			return "", err
		}
		if revoked {
			return "", revocation.ErrAlreadyRevoked
		}
		var ref string
		err = o.call(ctx, "revoke", func(ctx context.Context) error {
			var err error
			ref, err = o.next.Revoke(ctx, key)
			return err
		})
		return ref, err
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (o *Oracle) IsRevoked(ctx context.Context, key revocation.Key) (bool, error) {
	v, err, _ := o.group.Do("is_revoked:"+key.Hex(), func() (any, error) {
		var revoked bool
		err := o.call(ctx, "is_revoked", func(ctx context.Context) error {
			var err error
			revoked, err = o.next.IsRevoked(ctx, key)
			return err
		})
		return revoked, err
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// BreakerState exposes the breaker for health reporting.
func (o *Oracle) BreakerState() circuit.State {
	return o.breaker.State()
}

func (o *Oracle) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if !o.breaker.Allow() {
		o.metrics.observe(op, outcomeRejected, 0)
		return revocation.Unavailable(op, ErrCircuitOpen)
	}

	start := time.Now()
	err := retry.Do(ctx, o.policy, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || errors.Is(err, revocation.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return retry.Permanent(err)
	})
	elapsed := time.Since(start)

	if err == nil {
		if _, change := o.breaker.RecordSuccess(); change.Closed {
			o.logger.InfoContext(ctx, "revocation oracle circuit closed")
			o.metrics.setOpen(false)
		}
		o.metrics.observe(op, outcomeSuccess, elapsed)
		return nil
	}

	if _, change := o.breaker.RecordFailure(); change.Opened {
		o.logger.WarnContext(ctx, "revocation oracle circuit opened", "op", op, "error", err)
		o.metrics.setOpen(true)
	}
	o.metrics.observe(op, outcomeFailure, elapsed)

	if errors.Is(err, revocation.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return revocation.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
