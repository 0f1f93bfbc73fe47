// Package store persists credential records. The record is authoritative for
// lifecycle status; ids and fingerprints are unique.
package store

import (
	"context"

	"pixelgenesis/internal/credential/fingerprint"
	"pixelgenesis/internal/credential/models"
	id "pixelgenesis/pkg/domain"
)

// Store is implemented by InMemoryStore and PostgresStore. Misses return
// sentinel.ErrNotFound, duplicate ids or fingerprints sentinel.ErrConflict and
// backward status moves sentinel.ErrInvalidState.
type Store interface {
	Save(ctx context.Context, c *models.Credential) error
	FindByID(ctx context.Context, id id.CredentialID) (*models.Credential, error)
	FindByFingerprint(ctx context.Context, fp fingerprint.Fingerprint) (*models.Credential, error)
	// FindByHolderDID returns the holder's credentials, newest first.
	FindByHolderDID(ctx context.Context, holder id.DID) ([]*models.Credential, error)
	// UpdateStatus applies u atomically and returns the updated record.
	UpdateStatus(ctx context.Context, id id.CredentialID, u models.StatusUpdate) (*models.Credential, error)
	// ListPendingAnchors returns up to limit records whose ledger operation is
	// still owed, oldest update first.
	ListPendingAnchors(ctx context.Context, limit int) ([]*models.Credential, error)
}
