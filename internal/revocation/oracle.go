// Package revocation defines the on-chain revocation oracle the credential
// lifecycle anchors to. Keys are the bytes32 derived from a credential
// fingerprint; revoked flags are append-only.
package revocation

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"pixelgenesis/pkg/platform/sentinel"
)

// Key is the bytes32 ledger key of a credential.
type Key [32]byte

// Hex renders the key with a 0x prefix.
func (k Key) Hex() string {
	return "0x" + hex.EncodeToString(k[:])
}

var (
	// ErrUnavailable wraps every transport, timeout and open-breaker failure.
	ErrUnavailable = fmt.Errorf("revocation oracle %w", sentinel.ErrUnavailable)
	// ErrAlreadyRevoked is returned by Revoke when the key is already revoked on-chain.
	ErrAlreadyRevoked = errors.New("credential already revoked on-chain")
)

// Oracle is implemented by the ledger client, the in-process fake and the
// decorators in this package tree.
type Oracle interface {
	// Register anchors key and returns the transaction reference.
	Register(ctx context.Context, key Key) (txRef string, err error)
	// Revoke marks key revoked and returns the transaction reference.
	Revoke(ctx context.Context, key Key) (txRef string, err error)
	// IsRevoked reports the on-chain revoked flag for key.
	IsRevoked(ctx context.Context, key Key) (bool, error)
}

// Unavailable wraps err as ErrUnavailable, keeping the cause in the message.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
