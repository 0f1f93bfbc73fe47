package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pixelgenesis/internal/did/models"
	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
	"pixelgenesis/pkg/platform/httputil"
	"pixelgenesis/pkg/requestcontext"
)

// Service defines the DID operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, subject string) (models.Document, error)
	Resolve(ctx context.Context, did id.DID) (models.Document, error)
	FindBySubject(ctx context.Context, subject string) (models.Document, error)
}

// Handler wires DID endpoints to the registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public resolution endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/dids/{did}", h.HandleResolve)
}

// RegisterAuthenticated mounts endpoints that need a caller subject.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/v1/dids", h.HandleCreate)
	r.Get("/v1/dids/me", h.HandleMe)
}

// HandleCreate handles POST /v1/dids: the caller's DID, created on first use.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	subject := requestcontext.Subject(ctx)
	if subject == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	doc, err := h.service.Create(ctx, subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "did creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

// HandleMe handles GET /v1/dids/me. Unlike create it never mints a DID.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := requestcontext.Subject(ctx)
	if subject == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	doc, err := h.service.FindBySubject(ctx, subject)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "did lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// HandleResolve handles GET /v1/dids/{did}.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, err := id.ParseDID(chi.URLParam(r, "did"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.Resolve(ctx, did)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "did resolution failed",
				"request_id", requestcontext.RequestID(ctx),
				"did", did.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}
