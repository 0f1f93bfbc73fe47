package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Repositories, the DID store, the
// content store and the revocation oracle return these (optionally wrapped) so the
// lifecycle services can translate them into domain errors or degraded states:
//   - ErrNotFound: record, document, or blob does not exist
//   - ErrConflict: a uniqueness constraint (id, fingerprint, subject) was hit
//   - ErrInvalidState: a requested transition is not allowed (revoked -> active)
//   - ErrUnavailable: an external collaborator is temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
