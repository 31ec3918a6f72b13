// Package history expone el ledger local de cada usuario.
package history

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
)

// Deps contiene las dependencias del service history.
type Deps struct {
	Ledger repository.Ledger
}

// Detail es un changeset con sus items.
type Detail struct {
	Changeset repository.Changeset
	Changes   []repository.RoadChange
}

type Service interface {
	// List devuelve hasta limit changesets del usuario, más nuevos primero (tope 50).
	List(ctx context.Context, userID int64, limit int) ([]repository.ChangesetSummary, error)
	// Get devuelve un changeset propio con sus road changes; ErrNotFound si es de otro usuario.
	Get(ctx context.Context, userID, changesetID int64) (*Detail, error)
}

type historyService struct {
	deps Deps
}

func NewService(deps Deps) Service {
	return &historyService{deps: deps}
}

func (s *historyService) List(ctx context.Context, userID int64, limit int) ([]repository.ChangesetSummary, error) {
	out, err := s.deps.Ledger.ListChangesets(ctx, userID, repository.ClampLimit(limit))
	if err != nil {
		logger.From(ctx).Error("list changesets failed",
			logger.Layer("service"),
			logger.Component("history"),
			logger.Op("List"),
			logger.Err(err),
		)
		return nil, fmt.Errorf("history: list: %w", err)
	}
	if out == nil {
		out = []repository.ChangesetSummary{}
	}
	return out, nil
}

func (s *historyService) Get(ctx context.Context, userID, changesetID int64) (*Detail, error) {
	cs, err := s.deps.Ledger.GetChangeset(ctx, userID, changesetID)
	if err != nil {
		return nil, err
	}
	changes, err := s.deps.Ledger.ListRoadChanges(ctx, cs.ID)
	if err != nil {
		return nil, fmt.Errorf("history: road changes: %w", err)
	}
	if changes == nil {
		changes = []repository.RoadChange{}
	}
	return &Detail{Changeset: *cs, Changes: changes}, nil
}
