package repository

import (
	"context"
	"fmt"
	"time"
)

// ChangesetStatus es el ciclo de vida de un changeset local.
type ChangesetStatus string

const (
	StatusPending ChangesetStatus = "pending"
	StatusSent    ChangesetStatus = "sent"
	// StatusFailed lo admite el esquema; el envío actual nunca deja filas fallidas.
	StatusFailed  ChangesetStatus = "failed"
)

// ChangeTypeModify es el tipo por defecto de un RoadChange.
const ChangeTypeModify = "modify"

// DefaultHistoryLimit es el máximo de changesets devueltos por ListChangesets.
const DefaultHistoryLimit = 50

// Valid reporta si s es un estado conocido.
func (s ChangesetStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// CanTransition reporta si el estado puede pasar de from a to.
// Sólo se avanza: pending -> sent | failed.
func CanTransition(from, to ChangesetStatus) bool {
	return from == StatusPending && (to == StatusSent || to == StatusFailed)
}

// CheckTransition devuelve ErrInvalidTransition si el cambio no está permitido.
func CheckTransition(from, to ChangesetStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Changeset es una submission registrada localmente.
type Changeset struct {
	ID             int64
	UserID         int64
	OSMChangesetID *int64
	Comment        string
	Status         ChangesetStatus
	CreatedAt      time.Time
	SentAt         *time.Time
}

// RoadChange es un item pedido dentro de un Changeset, con sus tags antes y después.
type RoadChange struct {
	ID          int64
	ChangesetID int64
	OSMWayID    int64
	OldTags     map[string]string
	NewTags     map[string]string
	ChangeType  string
}

// ChangesetSummary es una fila del historial.
type ChangesetSummary struct {
	Changeset
	ChangesCount int
}

// RecordChangesetInput describe una submission ya enviada al API remoto.
type RecordChangesetInput struct {
	UserID         int64
	Comment        string
	OSMChangesetID int64
	Changes        []RoadChange
}

// Ledger registra el resultado de cada submission.
type Ledger interface {
	// RecordChangeset inserta el changeset como pending, todos sus RoadChange y
	// lo pasa a sent con osm_changeset_id y sent_at, en una única transacción.
	// Si algo falla no queda ninguna fila.
	RecordChangeset(ctx context.Context, in RecordChangesetInput) (*Changeset, error)

	// ListChangesets devuelve los changesets del usuario, más nuevos primero.
	// limit <= 0 o mayor a DefaultHistoryLimit se ajusta a DefaultHistoryLimit.
	ListChangesets(ctx context.Context, userID int64, limit int) ([]ChangesetSummary, error)

	// GetChangeset busca un changeset del usuario.
	// Retorna ErrNotFound si no existe o pertenece a otro usuario.
	GetChangeset(ctx context.Context, userID, changesetID int64) (*Changeset, error)

	// ListRoadChanges devuelve los items de un changeset en orden de inserción.
	ListRoadChanges(ctx context.Context, changesetID int64) ([]RoadChange, error)
}

// ClampLimit normaliza el límite del historial.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > DefaultHistoryLimit {
		return DefaultHistoryLimit
	}
	return limit
}
