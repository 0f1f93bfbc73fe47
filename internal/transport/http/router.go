// Package httptransport assembles the HTTP surface: middleware, health and
// metrics endpoints, and the domain handlers behind authentication.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	credhandler "pixelgenesis/internal/credential/handler"
	didhandler "pixelgenesis/internal/did/handler"
	"pixelgenesis/internal/platform/metrics"
	"pixelgenesis/pkg/platform/httputil"
	"pixelgenesis/pkg/platform/middleware/auth"
	"pixelgenesis/pkg/platform/middleware/request"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the router mounts.
type Deps struct {
	Logger      *slog.Logger
	Validator   auth.TokenValidator
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Checks      map[string]HealthCheck
	DIDs        *didhandler.Handler
	Credentials *credhandler.Handler
}

// NewRouter wires every endpoint. Verification and DID resolution are public;
// everything else needs a bearer token, and issue and revoke need the issuer role.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", healthHandler(d.Checks, d.Logger))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	d.DIDs.Register(r)
	d.Credentials.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Validator, d.Logger))
		d.DIDs.RegisterAuthenticated(r)
		d.Credentials.RegisterAuthenticated(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleIssuer))
			d.Credentials.RegisterIssuer(r)
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
