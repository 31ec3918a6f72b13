package repository

import (
	"context"
	"time"
)

// User es una identidad remota con sus credenciales OAuth actuales.
// Hay una fila por OSMID; se hace upsert en cada login.
type User struct {
	ID             int64
	OSMID          int64
	DisplayName    string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SaveUserInput contiene los datos obtenidos al completar una autorización.
type SaveUserInput struct {
	OSMID          int64
	DisplayName    string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time
}

// TokenStore persiste las credenciales por usuario.
// Los tokens se guardan cifrados; el adapter los descifra antes de devolverlos.
type TokenStore interface {
	// SaveUser crea o actualiza el usuario identificado por OSMID.
	SaveUser(ctx context.Context, in SaveUserInput) (*User, error)

	// GetUserByOSMID busca un usuario por identidad remota.
	// Retorna ErrNotFound si no existe.
	GetUserByOSMID(ctx context.Context, osmID int64) (*User, error)
}
