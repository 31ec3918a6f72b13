package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
	"github.com/dropDatabas3/laneeditor/internal/session"
)

const stateBytes = 32

type oauthService struct {
	deps Deps
}

// NewService crea el service auth.
func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &oauthService{deps: deps}
}

func newState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *oauthService) BeginAuthorization(ctx context.Context, sess *session.Session) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.oauth"),
		logger.Op("BeginAuthorization"),
	)

	if s.deps.OAuth == nil || !s.deps.OAuth.Configured() {
		log.Error("oauth client not configured")
		return "", fmt.Errorf("%w: OSM client id/secret not set", ErrConfiguration)
	}

	state, err := newState()
	if err != nil {
		return "", fmt.Errorf("auth: generate state: %w", err)
	}
	authURL, err := s.deps.OAuth.AuthURL(state)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	sess.SetState(state)
	log.Debug("authorization started")
	return authURL, nil
}

func (s *oauthService) CompleteAuthorization(ctx context.Context, sess *session.Session, code, state string) (*repository.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.oauth"),
		logger.Op("CompleteAuthorization"),
	)

	// Paso 1: el nonce se consume siempre, pase lo que pase
	stored := sess.TakeState()
	if state == "" || stored == "" || subtle.ConstantTimeCompare([]byte(state), []byte(stored)) != 1 {
		log.Warn("state mismatch")
		return nil, ErrStateMismatch
	}

	// Paso 2: code
	if code == "" {
		return nil, ErrMissingCode
	}

	// Paso 3: canje server-to-server
	tok, err := s.deps.OAuth.ExchangeCode(ctx, code)
	if err != nil {
		log.Warn("token exchange failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenExchange)
	}

	// Paso 4: perfil con el token nuevo
	details, err := s.deps.Profile(ctx, tok.AccessToken)
	if err != nil {
		log.Warn("profile fetch failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	log = log.With(logger.OSMUserID(details.ID))

	// Paso 5: upsert del usuario con tokens
	expiresAt := tok.ExpiresAt(s.deps.Now())
	user, err := s.deps.Users.SaveUser(ctx, repository.SaveUserInput{
		OSMID:          details.ID,
		DisplayName:    details.DisplayName,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: expiresAt,
	})
	if err != nil {
		log.Error("save user failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistUser, err)
	}

	// Paso 6: ligar identidad a la sesión (rota el sid)
	sess.Bind(user.ID, user.OSMID, user.DisplayName, tok.AccessToken, expiresAt)
	log.Info("user authenticated")
	return user, nil
}

func (s *oauthService) Logout(ctx context.Context, sess *session.Session) {
	if sess == nil {
		return
	}
	if sess.Authenticated() {
		logger.From(ctx).Info("user logged out",
			logger.Layer("service"),
			logger.Component("auth.oauth"),
			logger.OSMUserID(sess.UserOSMID),
		)
	}
	sess.Destroy()
}
