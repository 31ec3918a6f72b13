// Package history contiene el controller del historial local.
package history

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/http/dto"
	httperrors "github.com/dropDatabas3/laneeditor/internal/http/errors"
	"github.com/dropDatabas3/laneeditor/internal/http/helpers"
	svc "github.com/dropDatabas3/laneeditor/internal/http/services/history"
	"github.com/dropDatabas3/laneeditor/internal/session"
)

type HistoryController struct {
	service svc.Service
}

func NewHistoryController(service svc.Service) *HistoryController {
	return &HistoryController{service: service}
}

func toItem(cs repository.Changeset, count int) dto.ChangesetItem {
	return dto.ChangesetItem{
		ID:             cs.ID,
		OSMChangesetID: cs.OSMChangesetID,
		Comment:        cs.Comment,
		Status:         string(cs.Status),
		ChangesCount:   count,
		CreatedAt:      cs.CreatedAt,
		SentAt:         cs.SentAt,
	}
}

// List maneja GET /api/history?limit=N
func (c *HistoryController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("limit must be an integer"))
			return
		}
		limit = n
	}

	rows, err := c.service.List(ctx, session.FromContext(ctx).UserID, limit)
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}
	resp := dto.HistoryResponse{Changesets: make([]dto.ChangesetItem, 0, len(rows))}
	for _, row := range rows {
		resp.Changesets = append(resp.Changesets, toItem(row.Changeset, row.ChangesCount))
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// Get maneja GET /api/history/{id}
func (c *HistoryController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := helpers.PathInt64(r, "id")
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	d, err := c.service.Get(ctx, session.FromContext(ctx).UserID, id)
	if errors.Is(err, repository.ErrNotFound) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
		return
	}
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}

	resp := dto.HistoryDetailResponse{
		Changeset: toItem(d.Changeset, len(d.Changes)),
		Changes:   make([]dto.RoadChangeItem, 0, len(d.Changes)),
	}
	for _, ch := range d.Changes {
		resp.Changes = append(resp.Changes, dto.RoadChangeItem{
			ID:         ch.ID,
			WayID:      ch.OSMWayID,
			OldTags:    ch.OldTags,
			NewTags:    ch.NewTags,
			ChangeType: ch.ChangeType,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}
