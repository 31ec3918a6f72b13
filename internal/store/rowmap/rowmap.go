// Package rowmap es la única capa que convierte filas en structs del dominio.
// La usan los adapters pg y sqlite; pgx.Row y *sql.Row cumplen Scanner.
package rowmap

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
)

// Scanner es la parte común de pgx.Row, pgx.Rows, *sql.Row y *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

var (
	userColumns      = []string{"id", "osm_id", "display_name", "access_token", "refresh_token", "token_expires_at", "created_at", "updated_at"}
	changesetColumns = []string{"id", "user_id", "osm_changeset_id", "comment", "status", "created_at", "sent_at"}
	changeColumns    = []string{"id", "changeset_id", "osm_way_id", "old_tags", "new_tags", "change_type"}
)

// UserColumns lista las columnas que espera ScanUser, con prefijo opcional (ej "u.").
func UserColumns(prefix string) string { return join(prefix, userColumns) }

// ChangesetColumns lista las columnas que espera ScanChangeset.
func ChangesetColumns(prefix string) string { return join(prefix, changesetColumns) }

// RoadChangeColumns lista las columnas que espera ScanRoadChange.
func RoadChangeColumns(prefix string) string { return join(prefix, changeColumns) }

func join(prefix string, cols []string) string {
	if prefix == "" {
		return strings.Join(cols, ", ")
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}

// ScanUser lee una fila de users y descifra los tokens.
func ScanUser(s Scanner, box *secretbox.Box) (*repository.User, error) {
	var (
		u          repository.User
		accessEnc  string
		refreshEnc string
	)
	if err := s.Scan(&u.ID, &u.OSMID, &u.DisplayName, &accessEnc, &refreshEnc, &u.TokenExpiresAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if u.AccessToken, err = box.Decrypt(accessEnc); err != nil {
		return nil, fmt.Errorf("rowmap: decrypt access token: %w", err)
	}
	if u.RefreshToken, err = box.Decrypt(refreshEnc); err != nil {
		return nil, fmt.Errorf("rowmap: decrypt refresh token: %w", err)
	}
	return &u, nil
}

// SealedTokens son los tokens de un SaveUserInput ya cifrados para escribir.
type SealedTokens struct {
	Access  string
	Refresh string
}

// SealTokens cifra access y refresh token.
func SealTokens(box *secretbox.Box, in repository.SaveUserInput) (SealedTokens, error) {
	access, err := box.Encrypt(in.AccessToken)
	if err != nil {
		return SealedTokens{}, fmt.Errorf("rowmap: encrypt access token: %w", err)
	}
	refresh, err := box.Encrypt(in.RefreshToken)
	if err != nil {
		return SealedTokens{}, fmt.Errorf("rowmap: encrypt refresh token: %w", err)
	}
	return SealedTokens{Access: access, Refresh: refresh}, nil
}

// ScanChangeset lee una fila de changesets.
func ScanChangeset(s Scanner) (*repository.Changeset, error) {
	var (
		c      repository.Changeset
		status string
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.OSMChangesetID, &c.Comment, &status, &c.CreatedAt, &c.SentAt); err != nil {
		return nil, err
	}
	c.Status = repository.ChangesetStatus(status)
	return &c, nil
}

// ScanChangesetSummary lee las columnas de ScanChangeset seguidas del conteo de cambios.
func ScanChangesetSummary(s Scanner) (repository.ChangesetSummary, error) {
	var (
		sum    repository.ChangesetSummary
		status string
	)
	c := &sum.Changeset
	if err := s.Scan(&c.ID, &c.UserID, &c.OSMChangesetID, &c.Comment, &status, &c.CreatedAt, &c.SentAt, &sum.ChangesCount); err != nil {
		return repository.ChangesetSummary{}, err
	}
	c.Status = repository.ChangesetStatus(status)
	return sum, nil
}

// ScanRoadChange lee una fila de road_changes decodificando los tags JSON.
func ScanRoadChange(s Scanner) (repository.RoadChange, error) {
	var (
		rc      repository.RoadChange
		oldTags []byte
		newTags []byte
	)
	if err := s.Scan(&rc.ID, &rc.ChangesetID, &rc.OSMWayID, &oldTags, &newTags, &rc.ChangeType); err != nil {
		return repository.RoadChange{}, err
	}
	var err error
	if rc.OldTags, err = DecodeTags(oldTags); err != nil {
		return repository.RoadChange{}, err
	}
	if rc.NewTags, err = DecodeTags(newTags); err != nil {
		return repository.RoadChange{}, err
	}
	return rc, nil
}

// EncodeTags serializa un mapa de tags como objeto JSON. nil se escribe como {}.
func EncodeTags(tags map[string]string) (string, error) {
	if tags == nil {
		return "{}", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("rowmap: encode tags: %w", err)
	}
	return string(b), nil
}

// DecodeTags es la inversa de EncodeTags. Nunca devuelve un mapa nil.
func DecodeTags(b []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("rowmap: decode tags: %w", err)
	}
	return out, nil
}

// ChangeType aplica el default "modify".
func ChangeType(t string) string {
	if strings.TrimSpace(t) == "" {
		return repository.ChangeTypeModify
	}
	return t
}

// Now devuelve el timestamp que escriben los adapters: UTC truncado a microsegundos.
func Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
