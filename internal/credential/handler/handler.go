package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pixelgenesis/internal/credential/models"
	"pixelgenesis/internal/credential/service"
	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
	"pixelgenesis/pkg/platform/httputil"
	"pixelgenesis/pkg/requestcontext"
)

// Service defines the credential lifecycle operations exposed over HTTP.
type Service interface {
	Issue(ctx context.Context, cmd service.IssueCommand) (*models.Credential, error)
	Verify(ctx context.Context, cmd service.VerifyCommand) (*models.VerificationResult, error)
	Revoke(ctx context.Context, cmd service.RevokeCommand) (*models.Credential, error)
	Get(ctx context.Context, credID id.CredentialID) (*models.Credential, error)
	Document(ctx context.Context, credID id.CredentialID) (models.Document, error)
	ListForSubject(ctx context.Context, subject string) ([]*models.Credential, error)
}

// Handler wires credential endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public verification endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/credentials/verify", h.HandleVerify)
}

// RegisterAuthenticated mounts read endpoints for any authenticated caller.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/v1/credentials/me", h.HandleListMine)
	r.Get("/v1/credentials/{id}", h.HandleGet)
	r.Get("/v1/credentials/{id}/document", h.HandleDocument)
}

// RegisterIssuer mounts endpoints restricted to issuers. The caller wraps r
// with the role check.
func (h *Handler) RegisterIssuer(r chi.Router) {
	r.Post("/v1/credentials/issue", h.HandleIssue)
	r.Post("/v1/credentials/revoke", h.HandleRevoke)
}

// HandleIssue handles POST /v1/credentials/issue.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	subject := requestcontext.Subject(ctx)
	if subject == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cred, err := h.service.Issue(ctx, service.IssueCommand{
		IssuerSubject: subject,
		HolderDID:     req.HolderDID,
		Types:         req.Type,
		Claims:        req.claims,
		ExpiresAt:     req.expiresAt,
		Schema:        req.CredentialSchema,
	})
	if err != nil {
		h.logFailure(ctx, "credential issuance failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(cred))
}

// HandleVerify handles POST /v1/credentials/verify. A verdict is always 200,
// valid or not.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, service.VerifyCommand{
		Document:    req.document,
		Fingerprint: req.VCHash,
	})
	if err != nil {
		h.logFailure(ctx, "credential verification failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleRevoke handles POST /v1/credentials/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	cred, err := h.service.Revoke(ctx, service.RevokeCommand{
		CredentialID: req.VCID,
		Fingerprint:  req.Hash,
	})
	if err != nil {
		h.logFailure(ctx, "credential revocation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(cred))
}

// HandleListMine handles GET /v1/credentials/me: credentials held by the
// caller's DID, newest first.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := requestcontext.Subject(ctx)
	if subject == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	creds, err := h.service.ListForSubject(ctx, subject)
	if err != nil {
		h.logFailure(ctx, "credential listing failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponses(creds))
}

// HandleGet handles GET /v1/credentials/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cred, err := h.service.Get(ctx, credID)
	if err != nil {
		h.logFailure(ctx, "credential lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(cred))
}

// HandleDocument handles GET /v1/credentials/{id}/document: the signed
// document as the holder presents it.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.Document(ctx, credID)
	if err != nil {
		h.logFailure(ctx, "credential document lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeNotFound) {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
