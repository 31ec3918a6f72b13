// Package changeset orquesta un envío de cambios de carriles: abre un
// changeset remoto, aplica cada way por separado, lo cierra y registra todo
// en el ledger local.
package changeset

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/osm"
)

const (
	// DefaultComment se usa cuando el request no trae comentario.
	DefaultComment = "Update traffic lanes"
	// DefaultTimeout es el presupuesto total de un envío.
	DefaultTimeout = 2 * time.Minute
	// finalizeTimeout acota el cierre remoto y la escritura del ledger.
	finalizeTimeout = 10 * time.Second
)

// Errores del Submit.
var (
	ErrNoChanges       = errors.New("no changes provided")
	ErrInvalidItem     = errors.New("invalid change item")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrOpenTransaction = errors.New("changeset could not be opened")
	ErrLedgerWrite     = errors.New("changeset sent but not recorded locally")
)

// Outcome de cada item.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
)

// Razones de skip.
const (
	ReasonNotFound     = "not_found"
	ReasonFetchFailed  = "fetch_failed"
	ReasonUpdateFailed = "update_failed"
	ReasonTimeout      = "timeout"
)

// EntityClient es el subconjunto del cliente OSM que usa el orquestador.
type EntityClient interface {
	FetchWay(ctx context.Context, id int64) (*osm.Way, error)
	OpenChangeset(ctx context.Context, comment string) (int64, error)
	UpdateWay(ctx context.Context, changesetID int64, way *osm.Way) (int64, error)
	CloseChangeset(ctx context.Context, changesetID int64) error
}

// ClientFactory construye un cliente con el token del usuario del request.
type ClientFactory func(accessToken string) EntityClient

// Recorder recibe métricas de envíos (implementado por internal/metrics).
type Recorder interface {
	Submission(result string)
	Item(outcome string)
}

// Principal es el usuario autenticado que envía.
type Principal struct {
	UserID         int64 // id local (users.id)
	OSMUserID      int64
	AccessToken    string
	TokenExpiresAt *time.Time
}

// ChangeItem es un way a modificar con los tags a agregar o pisar.
type ChangeItem struct {
	WayID   int64
	NewTags map[string]string
}

// UpdatedWay es un item aplicado en el API remoto.
type UpdatedWay struct {
	WayID      int64
	OldVersion int64
	NewVersion int64
	OldTags    map[string]string
	NewTags    map[string]string
}

// ItemOutcome dice qué pasó con cada item pedido, en el orden del request.
type ItemOutcome struct {
	WayID  int64
	Status string
	Reason string
}

// SubmitResult es el resultado (posiblemente parcial) de un envío.
type SubmitResult struct {
	ChangesetID      int64
	Updated          []UpdatedWay
	TotalUpdated     int
	Outcomes         []ItemOutcome
	LocalChangesetID int64
}

// Deps contiene las dependencias del orquestador.
type Deps struct {
	Clients ClientFactory
	Ledger  repository.Ledger
	Metrics Recorder      // opcional
	Timeout time.Duration // 0 = DefaultTimeout
	Now     func() time.Time
}

// Service envía lotes de cambios.
type Service interface {
	Submit(ctx context.Context, p Principal, comment string, items []ChangeItem) (*SubmitResult, error)
}
