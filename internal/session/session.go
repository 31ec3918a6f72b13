// Package session guarda el estado OAuth del navegador server-side.
//
// El cookie sólo lleva el id de sesión firmado (JWT HS256); el contenido
// (nonce OAuth, identidad, access token) vive en un cache.Client (go-cache o
// redis), cifrado con secretbox.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/laneeditor/internal/cache"
	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
)

// DefaultTTL es la vida de una sesión sin actividad.
const DefaultTTL = 24 * time.Hour

// ErrNotFound indica una sesión inexistente o expirada.
var ErrNotFound = errors.New("session: not found")

// Session es el estado por navegador.
type Session struct {
	ID string `json:"-"`

	// OAuthState es el nonce pendiente entre authorize-start y callback.
	OAuthState string `json:"oauth_state,omitempty"`

	UserID         int64      `json:"user_id,omitempty"`
	UserOSMID      int64      `json:"user_osm_id,omitempty"`
	DisplayName    string     `json:"display_name,omitempty"`
	AccessToken    string     `json:"access_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`

	dirty bool

	// previousID es el id anterior a una rotación; su entrada debe borrarse.
	previousID string
	destroyed  bool
}

// New crea una sesión vacía con id aleatorio.
func New() *Session {
	return &Session{ID: uuid.NewString(), dirty: true}
}

// Authenticated reporta si hay una identidad con token ligada.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserOSMID != 0 && s.AccessToken != ""
}

// TakeState devuelve el nonce guardado y lo borra (uso único).
func (s *Session) TakeState() string {
	st := s.OAuthState
	if st != "" {
		s.OAuthState = ""
		s.dirty = true
	}
	return st
}

// SetState guarda el nonce de autorización.
func (s *Session) SetState(state string) {
	s.OAuthState = state
	s.dirty = true
}

// Bind liga la identidad autenticada y rota el id: el sid previo al login
// nunca queda autenticado.
func (s *Session) Bind(userID, osmID int64, displayName, accessToken string, expiresAt *time.Time) {
	s.Rotate()
	s.UserID = userID
	s.UserOSMID = osmID
	s.DisplayName = displayName
	s.AccessToken = accessToken
	s.TokenExpiresAt = expiresAt
	s.dirty = true
}

// Rotate asigna un id nuevo. El primer id reemplazado queda en PreviousID.
func (s *Session) Rotate() {
	if s.previousID == "" {
		s.previousID = s.ID
	}
	s.ID = uuid.NewString()
	s.dirty = true
}

// PreviousID retorna el id reemplazado por Rotate, o "".
func (s *Session) PreviousID() string { return s.previousID }

// Clear borra todo el estado conservando el id. Idempotente.
func (s *Session) Clear() {
	*s = Session{ID: s.ID, previousID: s.previousID, destroyed: s.destroyed, dirty: true}
}

// Destroy limpia la sesión y la marca para borrarla del store y del navegador.
func (s *Session) Destroy() {
	s.Clear()
	s.destroyed = true
}

// Destroyed reporta si se llamó Destroy.
func (s *Session) Destroyed() bool { return s.destroyed }

// Dirty reporta si la sesión cambió desde que se cargó.
func (s *Session) Dirty() bool { return s.dirty }

// Store persiste sesiones en un cache.Client.
type Store struct {
	cache cache.Client
	box   *secretbox.Box
	ttl   time.Duration
}

// NewStore crea el store. box puede ser nil (payload en claro, sólo tests).
func NewStore(c cache.Client, box *secretbox.Box, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, box: box, ttl: ttl}
}

// TTL retorna la vida configurada de las sesiones.
func (st *Store) TTL() time.Duration { return st.ttl }

// Get carga una sesión. Retorna ErrNotFound si no existe.
func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := st.cache.Get(ctx, key(id))
	if cache.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	if st.box != nil {
		if raw, err = st.box.Decrypt(raw); err != nil {
			return nil, fmt.Errorf("session: decrypt: %w", err)
		}
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	s.ID = id
	return &s, nil
}

// Save persiste la sesión renovando su TTL.
func (st *Store) Save(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	raw := string(b)
	if st.box != nil {
		if raw, err = st.box.Encrypt(raw); err != nil {
			return fmt.Errorf("session: encrypt: %w", err)
		}
	}
	if err := st.cache.Set(ctx, key(s.ID), raw, st.ttl); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	s.dirty = false
	return nil
}

// Delete borra la sesión.
func (st *Store) Delete(ctx context.Context, id string) error {
	return st.cache.Delete(ctx, key(id))
}

func key(id string) string { return "session:" + id }

type ctxKey struct{}

// ToContext guarda la sesión en el contexto del request.
func ToContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext retorna la sesión del request, o nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
