package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
	"github.com/dropDatabas3/laneeditor/migrations"
)

// Config selecciona el driver y la conexión.
type Config struct {
	Driver   string // postgres | sqlite
	DSN      string
	MaxConns int
	Box      *secretbox.Box
}

// Store agrupa los repositorios de una conexión abierta.
type Store struct {
	conn   AdapterConnection
	driver string
}

// Open abre la conexión con el adapter configurado. No aplica migraciones.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	conn, err := OpenAdapter(ctx, AdapterConfig{
		Name:         driver,
		DSN:          cfg.DSN,
		MaxOpenConns: cfg.MaxConns,
		Box:          cfg.Box,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	return &Store{conn: conn, driver: driver}, nil
}

// Driver retorna el nombre del adapter en uso.
func (s *Store) Driver() string { return s.driver }

// Users retorna el TokenStore.
func (s *Store) Users() repository.TokenStore { return s.conn.Users() }

// Ledger retorna el Ledger.
func (s *Store) Ledger() repository.Ledger { return s.conn.Ledger() }

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.conn.Ping(ctx) }

// Close cierra la conexión.
func (s *Store) Close() error { return s.conn.Close() }

// Migrate aplica las migraciones embebidas del driver.
func (s *Store) Migrate(ctx context.Context) (*MigrationResult, error) {
	m := NewMigrator(migrations.FS, migrations.Dir(s.driver))
	return m.Run(ctx, s.conn.MigrationDB(), s.driver)
}
