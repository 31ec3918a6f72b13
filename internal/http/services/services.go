// Package services es el composition root de los services HTTP.
//
// Cada dominio vive en su sub-paquete (services/{dominio}) con un Deps,
// una interfaz Service y un NewService(deps). Acá sólo se agrupan.
package services

import (
	"time"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/http/services/auth"
	"github.com/dropDatabas3/laneeditor/internal/http/services/changeset"
	"github.com/dropDatabas3/laneeditor/internal/http/services/history"
	"github.com/dropDatabas3/laneeditor/internal/http/services/roads"
)

// Deps contiene las dependencias base para crear los services.
type Deps struct {
	// ─── Infraestructura ───
	OAuth   auth.OAuthProvider
	Profile auth.ProfileFetcher
	Users   repository.TokenStore
	Ledger  repository.Ledger
	Clients changeset.ClientFactory
	Roads   roads.Loader
	Fetcher func(accessToken string) roads.WayFetcher
	Metrics changeset.Recorder

	// ─── Configuración ───
	SubmitTimeout time.Duration
}

// Services agrupa todos los services por dominio.
type Services struct {
	Auth      auth.Service
	Changeset changeset.Service
	History   history.Service
	Roads     roads.Service
}

// New crea el agregador.
func New(d Deps) Services {
	return Services{
		Auth: auth.NewService(auth.Deps{
			OAuth:   d.OAuth,
			Profile: d.Profile,
			Users:   d.Users,
		}),
		Changeset: changeset.NewService(changeset.Deps{
			Clients: d.Clients,
			Ledger:  d.Ledger,
			Metrics: d.Metrics,
			Timeout: d.SubmitTimeout,
		}),
		History: history.NewService(history.Deps{Ledger: d.Ledger}),
		Roads:   roads.NewService(roads.Deps{Loader: d.Roads, Fetcher: d.Fetcher}),
	}
}
