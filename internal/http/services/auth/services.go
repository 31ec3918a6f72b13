// Package auth contiene el flujo OAuth contra OpenStreetMap: inicio de la
// autorización, callback y logout sobre la sesión del navegador.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/laneeditor/internal/config"
	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	oauthosm "github.com/dropDatabas3/laneeditor/internal/oauth/osm"
	"github.com/dropDatabas3/laneeditor/internal/osm"
	"github.com/dropDatabas3/laneeditor/internal/session"
)

// Errores del flujo OAuth. Ninguno termina en 5xx: el controller redirige a /login.
var (
	ErrConfiguration = config.ErrConfiguration
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrMissingCode   = errors.New("authorization code missing")
	ErrTokenExchange = errors.New("token exchange failed")
	ErrProfileFetch  = errors.New("user profile fetch failed")
	ErrPersistUser   = errors.New("user could not be saved")
)

// OAuthProvider es el lado consumidor del provider (implementado por oauth/osm).
type OAuthProvider interface {
	Configured() bool
	AuthURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*oauthosm.TokenResponse, error)
}

// ProfileFetcher trae /user/details con el token recién emitido.
type ProfileFetcher func(ctx context.Context, accessToken string) (*osm.UserDetails, error)

// Deps contiene las dependencias del service auth.
type Deps struct {
	OAuth   OAuthProvider
	Profile ProfileFetcher
	Users   repository.TokenStore
	Now     func() time.Time // nil = time.Now
}

// Service es el OAuth Session Manager.
type Service interface {
	// BeginAuthorization genera el nonce, lo guarda en la sesión y devuelve la URL del provider.
	BeginAuthorization(ctx context.Context, sess *session.Session) (string, error)
	// CompleteAuthorization valida el callback, canjea el code y liga el usuario a la sesión.
	CompleteAuthorization(ctx context.Context, sess *session.Session, code, state string) (*repository.User, error)
	// Logout limpia la sesión. Idempotente.
	Logout(ctx context.Context, sess *session.Session)
}
