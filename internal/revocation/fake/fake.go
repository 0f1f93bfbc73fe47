// Package fake is a deterministic in-process revocation oracle. It backs local
// development and the lifecycle tests.
package fake

import (
	"context"
	"fmt"
	"sync"

	"pixelgenesis/internal/revocation"
)

// Op names an oracle method for failure injection.
type Op string

const (
	OpRegister  Op = "register"
	OpRevoke    Op = "revoke"
	OpIsRevoked Op = "is_revoked"
)

// Oracle keeps registered and revoked keys in memory. Transaction references
// are sequential: 0x000..01, 0x000..02, ...
type Oracle struct {
	mu         sync.Mutex
	registered map[revocation.Key]bool
	revoked    map[revocation.Key]bool
	seq        uint64
	failures   map[Op]int
	calls      map[Op]int
}

func New() *Oracle {
	return &Oracle{
		registered: make(map[revocation.Key]bool),
		revoked:    make(map[revocation.Key]bool),
		failures:   make(map[Op]int),
		calls:      make(map[Op]int),
	}
}

// FailNext makes the next n calls of op return revocation.ErrUnavailable.
// A negative n fails every call until Heal.
func (o *Oracle) FailNext(op Op, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[op] = n
}

// Heal clears all injected failures.
func (o *Oracle) Heal() {
	o.mu.Lock()
	defer o.mu.Unlock()
	clear(o.failures)
}

// Calls reports how many times op was invoked, failed calls included.
func (o *Oracle) Calls(op Op) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[op]
}

// IsRegistered reports whether key was registered.
func (o *Oracle) IsRegistered(key revocation.Key) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.registered[key]
}

// MarkRevoked sets the revoked flag directly, as if another party had revoked.
func (o *Oracle) MarkRevoked(key revocation.Key) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.revoked[key] = true
}

func (o *Oracle) Register(_ context.Context, key revocation.Key) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enter(OpRegister); err != nil {
		return "", err
	}
	o.registered[key] = true
	return o.nextTxRef(), nil
}

func (o *Oracle) Revoke(_ context.Context, key revocation.Key) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enter(OpRevoke); err != nil {
		return "", err
	}
	o.revoked[key] = true
	return o.nextTxRef(), nil
}

func (o *Oracle) IsRevoked(_ context.Context, key revocation.Key) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enter(OpIsRevoked); err != nil {
		return false, err
	}
	return o.revoked[key], nil
}

func (o *Oracle) enter(op Op) error {
	o.calls[op]++
	n := o.failures[op]
	if n == 0 {
		return nil
	}
	if n > 0 {
		o.failures[op] = n - 1
	}
	return revocation.Unavailable(string(op), fmt.Errorf("injected failure"))
}

func (o *Oracle) nextTxRef() string {
	o.seq++
	return fmt.Sprintf("0x%064x", o.seq)
}
