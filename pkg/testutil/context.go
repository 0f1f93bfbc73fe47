package testutil

import (
	"net/http"

	"pixelgenesis/pkg/requestcontext"
)

// WithCaller adds the subject and role the auth middleware would set for an
// authenticated request.
func WithCaller(req *http.Request, subject, role string) *http.Request {
	ctx := requestcontext.WithSubject(req.Context(), subject)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}
