// Package store provee el registry de adaptadores de base de datos y el
// migrator. Los adapters (pg, sqlite) se registran en su init().
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
)

// Adapter representa un adaptador de base de datos capaz de crear repositorios.
type Adapter interface {
	// Name retorna el nombre del adapter ("postgres", "sqlite").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
type AdapterConnection interface {
	// Name retorna el nombre del adapter.
	Name() string

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error

	Users() repository.TokenStore
	Ledger() repository.Ledger

	// MigrationDB retorna un *sql.DB sobre la misma base para el Migrator.
	MigrationDB() *sql.DB
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres" | "sqlite"
	Name string

	// DSN connection string (path del archivo para sqlite)
	DSN string

	// Pool settings
	MaxOpenConns int

	// Box cifra los tokens OAuth en reposo (requerido).
	Box *secretbox.Box
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres de todos los adapters registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter especificado en la config.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered (available: %v)", cfg.Name, ListAdapters())
	}
	if cfg.Box == nil {
		return nil, fmt.Errorf("adapter: %q requires a secretbox", cfg.Name)
	}
	return a.Connect(ctx, cfg)
}
