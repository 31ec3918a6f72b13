package changeset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/metrics"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
	"github.com/dropDatabas3/laneeditor/internal/osm"
)

type submitService struct {
	deps Deps
}

// NewService crea el orquestador.
func NewService(deps Deps) Service {
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &submitService{deps: deps}
}

func (s *submitService) submission(result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.Submission(result)
	}
}

func (s *submitService) item(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.Item(outcome)
	}
}

func (s *submitService) Submit(ctx context.Context, p Principal, comment string, items []ChangeItem) (*SubmitResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("changeset.submit"),
		logger.Op("Submit"),
		logger.OSMUserID(p.OSMUserID),
	)

	// RECEIVED: validaciones sin tocar el API
	if len(items) == 0 {
		s.submission(metrics.SubmissionRejected)
		return nil, ErrNoChanges
	}
	for _, it := range items {
		if it.WayID <= 0 {
			s.submission(metrics.SubmissionRejected)
			return nil, fmt.Errorf("%w: way_id must be positive, got %d", ErrInvalidItem, it.WayID)
		}
	}
	if p.AccessToken == "" || (p.TokenExpiresAt != nil && !s.deps.Now().Before(*p.TokenExpiresAt)) {
		s.submission(metrics.SubmissionRejected)
		return nil, ErrUnauthenticated
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = DefaultComment
	}

	runCtx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()
	client := s.deps.Clients(p.AccessToken)

	// TRANSACTION_OPEN
	csID, err := client.OpenChangeset(runCtx, comment)
	if err != nil {
		log.Warn("open changeset failed", logger.Err(err))
		s.submission(metrics.SubmissionOpenFailed)
		return nil, fmt.Errorf("%w: %w", ErrOpenTransaction, err)
	}
	log = log.With(logger.ChangesetID(csID))
	log.Info("changeset opened", logger.Count(len(items)))

	res := &SubmitResult{
		ChangesetID: csID,
		Updated:     []UpdatedWay{},
		Outcomes:    make([]ItemOutcome, 0, len(items)),
	}
	changes := make([]repository.RoadChange, 0, len(items))

	// PER-ITEM: FETCHED -> MERGED -> UPDATED | SKIPPED
	for _, it := range items {
		outcome, change, updated := s.applyItem(runCtx, log, client, csID, it)
		res.Outcomes = append(res.Outcomes, outcome)
		changes = append(changes, change)
		if updated != nil {
			res.Updated = append(res.Updated, *updated)
		}
		s.item(outcome.Status)
	}
	res.TotalUpdated = len(res.Updated)

	// TRANSACTION_CLOSING y RECORDED corren aunque el presupuesto se haya agotado
	finCtx, finCancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer finCancel()

	if err := client.CloseChangeset(finCtx, csID); err != nil {
		log.Warn("close changeset failed", logger.Err(err))
	}

	rec, err := s.deps.Ledger.RecordChangeset(finCtx, repository.RecordChangesetInput{
		UserID:         p.UserID,
		Comment:        comment,
		OSMChangesetID: csID,
		Changes:        changes,
	})
	if err != nil {
		log.Error("ledger write failed", logger.Err(err), logger.Int("total_updated", res.TotalUpdated))
		s.submission(metrics.SubmissionLedgerFailed)
		return res, fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	res.LocalChangesetID = rec.ID

	log.Info("changeset recorded",
		logger.LocalChangesetID(rec.ID),
		logger.Int("total_updated", res.TotalUpdated),
		logger.Count(len(items)),
	)
	s.submission(metrics.SubmissionSent)
	return res, nil
}

// applyItem procesa un item. Cualquier fallo es un skip; nunca aborta el lote.
func (s *submitService) applyItem(ctx context.Context, log *zap.Logger, client EntityClient, csID int64, it ChangeItem) (ItemOutcome, repository.RoadChange, *UpdatedWay) {
	outcome := ItemOutcome{WayID: it.WayID, Status: OutcomeSkipped}
	change := repository.RoadChange{
		OSMWayID:   it.WayID,
		OldTags:    map[string]string{},
		NewTags:    osm.CopyTags(it.NewTags),
		ChangeType: repository.ChangeTypeModify,
	}

	if ctx.Err() != nil {
		outcome.Reason = ReasonTimeout
		return outcome, change, nil
	}

	way, err := client.FetchWay(ctx, it.WayID)
	if err != nil {
		outcome.Reason = skipReason(ctx, err, ReasonFetchFailed)
		log.Warn("way skipped", logger.WayID(it.WayID), logger.String("reason", outcome.Reason), logger.Err(err))
		return outcome, change, nil
	}

	merged := osm.MergeTags(way.Tags, it.NewTags)
	change.OldTags = osm.CopyTags(way.Tags)
	change.NewTags = merged

	next := way.Clone()
	next.Tags = merged
	newVersion, err := client.UpdateWay(ctx, csID, next)
	if err != nil {
		outcome.Reason = skipReason(ctx, err, ReasonUpdateFailed)
		log.Warn("way skipped", logger.WayID(it.WayID), logger.String("reason", outcome.Reason), logger.Err(err))
		return outcome, change, nil
	}

	outcome.Status = OutcomeApplied
	log.Debug("way updated", logger.WayID(it.WayID), logger.Version(newVersion))
	return outcome, change, &UpdatedWay{
		WayID:      it.WayID,
		OldVersion: way.Version,
		NewVersion: newVersion,
		OldTags:    osm.CopyTags(way.Tags),
		NewTags:    osm.CopyTags(merged),
	}
}

func skipReason(ctx context.Context, err error, fallback string) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return ReasonTimeout
	case osm.IsNotFound(err):
		return ReasonNotFound
	}
	return fallback
}
