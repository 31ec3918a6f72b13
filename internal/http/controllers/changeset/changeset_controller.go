// Package changeset contiene los controllers de envío y validación de carriles.
package changeset

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/laneeditor/internal/http/dto"
	httperrors "github.com/dropDatabas3/laneeditor/internal/http/errors"
	"github.com/dropDatabas3/laneeditor/internal/http/helpers"
	svc "github.com/dropDatabas3/laneeditor/internal/http/services/changeset"
	"github.com/dropDatabas3/laneeditor/internal/lanes"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
	"github.com/dropDatabas3/laneeditor/internal/session"
)

// ChangesetController maneja POST /api/changeset/create y POST /api/validate/lanes.
type ChangesetController struct {
	service svc.Service
}

func NewChangesetController(service svc.Service) *ChangesetController {
	return &ChangesetController{service: service}
}

func toResponse(res *svc.SubmitResult) dto.CreateChangesetResponse {
	out := dto.CreateChangesetResponse{
		Success:          true,
		ChangesetID:      res.ChangesetID,
		UpdatedWays:      make([]dto.UpdatedWay, 0, len(res.Updated)),
		TotalUpdated:     res.TotalUpdated,
		Outcomes:         make([]dto.ItemOutcome, 0, len(res.Outcomes)),
		LocalChangesetID: res.LocalChangesetID,
	}
	for _, u := range res.Updated {
		out.UpdatedWays = append(out.UpdatedWays, dto.UpdatedWay{
			WayID:      u.WayID,
			OldVersion: u.OldVersion,
			NewVersion: u.NewVersion,
			OldTags:    u.OldTags,
			NewTags:    u.NewTags,
		})
	}
	for _, o := range res.Outcomes {
		out.Outcomes = append(out.Outcomes, dto.ItemOutcome{WayID: o.WayID, Status: o.Status, Reason: o.Reason})
	}
	return out
}

// Create maneja POST /api/changeset/create
func (c *ChangesetController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.CreateChangesetRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	sess := session.FromContext(ctx)
	principal := svc.Principal{}
	if sess != nil {
		principal = svc.Principal{
			UserID:         sess.UserID,
			OSMUserID:      sess.UserOSMID,
			AccessToken:    sess.AccessToken,
			TokenExpiresAt: sess.TokenExpiresAt,
		}
	}

	items := make([]svc.ChangeItem, 0, len(req.Changes))
	for _, ch := range req.Changes {
		items = append(items, svc.ChangeItem{WayID: ch.WayID, NewTags: ch.NewTags})
	}

	res, err := c.service.Submit(ctx, principal, req.Comment, items)
	switch {
	case err == nil:
		helpers.WriteJSON(w, http.StatusOK, toResponse(res))
	case errors.Is(err, svc.ErrLedgerWrite) && res != nil:
		// llegó al mapa pero no quedó en el ledger: se devuelve el resultado igual
		logger.From(ctx).Error("changeset not recorded locally",
			logger.Layer("controller"),
			logger.Op("ChangesetController.Create"),
			logger.ChangesetID(res.ChangesetID),
			logger.Err(err),
		)
		body := toResponse(res)
		body.Success = false
		body.Error = httperrors.ErrLedgerWrite.Message
		body.Code = httperrors.ErrLedgerWrite.Code
		helpers.WriteJSON(w, httperrors.ErrLedgerWrite.HTTPStatus, body)
	case errors.Is(err, svc.ErrNoChanges):
		httperrors.WriteError(w, httperrors.ErrNoChanges)
	case errors.Is(err, svc.ErrInvalidItem):
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail(err.Error()))
	case errors.Is(err, svc.ErrUnauthenticated):
		httperrors.WriteError(w, httperrors.ErrUnauthenticated)
	case errors.Is(err, svc.ErrOpenTransaction):
		httperrors.WriteErrorCtx(w, r, httperrors.ErrRemote.WithDetail("changeset could not be opened").WithCause(err))
	default:
		httperrors.WriteErrorCtx(w, r, err)
	}
}

// ValidateLanes maneja POST /api/validate/lanes
func (c *ChangesetController) ValidateLanes(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateLanesRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, lanes.Validate(req.Tags))
}
