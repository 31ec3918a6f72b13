package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Las migraciones SQL se embeben en el binario (paquete migrations).
// Formato de archivo: {version}_{name}.sql (ej: 0001_init.sql)

// Migrator aplica migraciones SQL a una base de datos.
type Migrator struct {
	migrationsFS  fs.FS
	migrationsDir string
}

// NewMigrator crea un nuevo Migrator.
func NewMigrator(migrationsFS fs.FS, migrationsDir string) *Migrator {
	return &Migrator{
		migrationsFS:  migrationsFS,
		migrationsDir: migrationsDir,
	}
}

// Migration representa una migración individual.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult resultado de aplicar migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Failed   *int
	Duration time.Duration
}

// migrationFilePattern patrón para nombres de archivo de migración.
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// ParseMigrations lee y parsea las migraciones del FS embebido.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	var migrations []Migration

	err := fs.WalkDir(m.migrationsFS, m.migrationsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := migrationFilePattern.FindStringSubmatch(path.Base(p))
		if matches == nil {
			return nil // Ignorar archivos que no coinciden
		}

		version, _ := strconv.Atoi(matches[1])
		content, err := fs.ReadFile(m.migrationsFS, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    matches[2],
			SQL:     string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}
	return migrations, nil
}

// Run aplica las migraciones pendientes. Cada migración corre en su propia
// transacción junto con su registro en schema_migrations.
func (m *Migrator) Run(ctx context.Context, db *sql.DB, driver string) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{}
	done := func(err error) (*MigrationResult, error) {
		result.Duration = time.Since(start)
		return result, err
	}

	if err := m.ensureMigrationsTable(ctx, db, driver); err != nil {
		return done(fmt.Errorf("creating migrations table: %w", err))
	}

	applied, err := m.appliedVersions(ctx, db)
	if err != nil {
		return done(fmt.Errorf("getting applied migrations: %w", err))
	}

	migrations, err := m.ParseMigrations()
	if err != nil {
		return done(fmt.Errorf("parsing migrations: %w", err))
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			result.Skipped = append(result.Skipped, mig.Version)
			continue
		}
		if err := m.applyMigration(ctx, db, driver, mig); err != nil {
			v := mig.Version
			result.Failed = &v
			return done(fmt.Errorf("applying migration %d_%s: %w", mig.Version, mig.Name, err))
		}
		result.Applied = append(result.Applied, mig.Version)
	}
	return done(nil)
}

// HasPending verifica si hay migraciones pendientes.
func (m *Migrator) HasPending(ctx context.Context, db *sql.DB, driver string) (bool, error) {
	if err := m.ensureMigrationsTable(ctx, db, driver); err != nil {
		return false, err
	}
	applied, err := m.appliedVersions(ctx, db)
	if err != nil {
		return false, err
	}
	migrations, err := m.ParseMigrations()
	if err != nil {
		return false, err
	}
	for _, mig := range migrations {
		if !applied[mig.Version] {
			return true, nil
		}
	}
	return false, nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context, db *sql.DB, driver string) error {
	var createSQL string
	switch driver {
	case "postgres":
		createSQL = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INT PRIMARY KEY,
				name TEXT NOT NULL,
				applied_at TIMESTAMPTZ DEFAULT NOW()
			)`
	default:
		createSQL = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INTEGER PRIMARY KEY,
				name TEXT NOT NULL,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`
	}
	_, err := db.ExecContext(ctx, createSQL)
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) applyMigration(ctx context.Context, db *sql.DB, driver string, mig Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return err
	}

	insert := "INSERT INTO schema_migrations (version, name) VALUES (?, ?)"
	if driver == "postgres" {
		insert = "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)"
	}
	if _, err := tx.ExecContext(ctx, insert, mig.Version, mig.Name); err != nil {
		return err
	}
	return tx.Commit()
}
