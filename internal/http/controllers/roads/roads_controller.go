// Package roads contiene los controllers de geometrías y ways.
package roads

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/laneeditor/internal/http/dto"
	httperrors "github.com/dropDatabas3/laneeditor/internal/http/errors"
	"github.com/dropDatabas3/laneeditor/internal/http/helpers"
	svc "github.com/dropDatabas3/laneeditor/internal/http/services/roads"
	"github.com/dropDatabas3/laneeditor/internal/overpass"
	"github.com/dropDatabas3/laneeditor/internal/session"
)

type RoadsController struct {
	service svc.Service
}

func NewRoadsController(service svc.Service) *RoadsController {
	return &RoadsController{service: service}
}

// BBox maneja POST /api/roads/bbox
func (c *RoadsController) BBox(w http.ResponseWriter, r *http.Request) {
	var req dto.BBoxRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	b, err := overpass.ParseBBox(req.BBox)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidBBox.WithDetail(err.Error()))
		return
	}

	fc, err := c.service.InBBox(r.Context(), b)
	if err != nil {
		httperrors.WriteErrorCtx(w, r, httperrors.ErrRemote.WithDetail("overpass request failed").WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.BBoxResponse{Success: true, Roads: fc, Total: len(fc.Features)})
}

// Way maneja GET /api/way/{id}
func (c *RoadsController) Way(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := helpers.PathInt64(r, "id")
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	way, err := c.service.Way(ctx, session.FromContext(ctx).AccessToken, id)
	if errors.Is(err, svc.ErrNotFound) {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("way not found"))
		return
	}
	if err != nil {
		httperrors.WriteErrorCtx(w, r, httperrors.ErrRemote.WithCause(err))
		return
	}

	nodes := way.Nodes
	if nodes == nil {
		nodes = []int64{}
	}
	tags := way.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	helpers.WriteJSON(w, http.StatusOK, dto.WayResponse{
		Success: true,
		Way:     dto.WayItem{ID: way.ID, Version: way.Version, Nodes: nodes, Tags: tags},
	})
}
