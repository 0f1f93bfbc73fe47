// Package contentstore holds full signed credential documents by content
// address. Locators are CIDv1 strings; blobs are immutable.
package contentstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"pixelgenesis/pkg/platform/sentinel"
)

var (
	// ErrNotFound is returned by Get for an unknown locator.
	ErrNotFound = fmt.Errorf("content %w", sentinel.ErrNotFound)
	// ErrUnavailable wraps transport failures and exhausted retries.
	ErrUnavailable = fmt.Errorf("content store %w", sentinel.ErrUnavailable)
	// ErrInvalidLocator is returned for strings that do not parse as a CID.
	ErrInvalidLocator = errors.New("invalid content locator")
	// ErrIntegrity is returned when fetched bytes do not hash to the locator.
	ErrIntegrity = errors.New("content does not match locator")
)

// Store is implemented by the in-memory store and the Kubo client.
type Store interface {
	Put(ctx context.Context, data []byte) (locator string, err error)
	Get(ctx context.Context, locator string) ([]byte, error)
}

// Locator returns the CIDv1 (raw codec, sha2-256) of data.
func Locator(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// Parse decodes locator as a CID.
func Parse(locator string) (cid.Cid, error) {
	c, err := cid.Decode(locator)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	return c, nil
}

// Verify checks that data matches locator. Only raw-codec CIDs can be checked
// against the bytes directly; other codecs are accepted as-is.
func Verify(locator string, data []byte) error {
	c, err := Parse(locator)
	if err != nil {
		return err
	}
	if c.Type() != cid.Raw {
		return nil
	}
	ok, err := verifyRaw(c, data)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIntegrity
	}
	return nil
}

func verifyRaw(c cid.Cid, data []byte) (bool, error) {
	prefix := c.Prefix()
	got, err := prefix.Sum(data)
	if err != nil {
		return false, fmt.Errorf("hash content: %w", err)
	}
	return got.Equals(c), nil
}
