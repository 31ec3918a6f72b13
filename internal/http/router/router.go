// Package router registra las rutas HTTP sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/laneeditor/internal/http/controllers/auth"
	csctrl "github.com/dropDatabas3/laneeditor/internal/http/controllers/changeset"
	"github.com/dropDatabas3/laneeditor/internal/http/controllers/health"
	historyctrl "github.com/dropDatabas3/laneeditor/internal/http/controllers/history"
	roadsctrl "github.com/dropDatabas3/laneeditor/internal/http/controllers/roads"
	httperrors "github.com/dropDatabas3/laneeditor/internal/http/errors"
	mw "github.com/dropDatabas3/laneeditor/internal/http/middlewares"
	"github.com/dropDatabas3/laneeditor/internal/metrics"
	"github.com/dropDatabas3/laneeditor/internal/rate"
)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	Health    *health.HealthController
	Auth      *authctrl.OAuthController
	Changeset *csctrl.ChangesetController
	History   *historyctrl.HistoryController
	Roads     *roadsctrl.RoadsController

	Session       mw.SessionConfig
	Metrics       *metrics.Metrics
	SubmitLimiter rate.Limiter // nil = sin límite
}

// New arma el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithSecurityHeaders(),
		mw.WithMetrics(d.Metrics),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed"))
	})

	// ─── Infra (sin sesión) ───
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	// ─── Navegador (con sesión) ───
	r.Group(func(r chi.Router) {
		r.Use(mw.WithSession(d.Session))

		r.Get("/", d.Auth.Index)
		r.Get("/login", d.Auth.Login)
		r.Get("/authorize-start", d.Auth.AuthorizeStart)
		r.Get("/oauth/authorize", d.Auth.AuthorizeStart)
		r.Get("/callback", d.Auth.Callback)
		r.Get("/oauth/callback", d.Auth.Callback)
		r.Get("/logout", d.Auth.Logout)

		r.Route("/api", func(r chi.Router) {
			r.Use(mw.RequireAuth())

			r.With(mw.WithRateLimit(d.SubmitLimiter, mw.UserRateKey)).
				Post("/changeset/create", d.Changeset.Create)
			r.Post("/validate/lanes", d.Changeset.ValidateLanes)
			r.Get("/history", d.History.List)
			r.Get("/history/{id}", d.History.Get)
			r.Post("/roads/bbox", d.Roads.BBox)
			r.Get("/way/{id}", d.Roads.Way)
		})
	})

	return r
}
