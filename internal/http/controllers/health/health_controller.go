// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/laneeditor/internal/http/dto"
	httperrors "github.com/dropDatabas3/laneeditor/internal/http/errors"
	"github.com/dropDatabas3/laneeditor/internal/http/helpers"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
)

// Pinger es cualquier dependencia que se pueda chequear (store, cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController maneja /healthz y /readyz.
type HealthController struct {
	checks map[string]Pinger
}

func NewHealthController(checks map[string]Pinger) *HealthController {
	return &HealthController{checks: checks}
}

// Healthz maneja GET /healthz
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// Readyz maneja GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	for name, p := range c.checks {
		if err := p.Ping(ctx); err != nil {
			logger.From(ctx).Warn("readiness check failed",
				logger.Layer("controller"),
				logger.Op("HealthController.Readyz"),
				logger.Component(name),
				logger.Err(err),
			)
			httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail(name+" unavailable"))
			return
		}
	}
	helpers.WriteJSON(w, http.StatusOK, dto.StatusResponse{Status: "ready"})
}
