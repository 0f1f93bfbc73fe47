// Package store persists DID records.
package store

import (
	"context"

	"pixelgenesis/internal/did/models"
	id "pixelgenesis/pkg/domain"
)

// Store is implemented by the memory and PostgreSQL stores. Subjects and DIDs
// are unique; lookups that miss return sentinel.ErrNotFound.
type Store interface {
	// SaveIfAbsent stores rec unless its subject already owns a DID, in which
	// case the existing record is returned with created=false.
	SaveIfAbsent(ctx context.Context, rec models.Record) (stored models.Record, created bool, err error)
	FindByDID(ctx context.Context, did id.DID) (models.Record, error)
	FindBySubject(ctx context.Context, subject string) (models.Record, error)
}
