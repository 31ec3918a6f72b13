// Package sqlite implementa el adapter SQLite (modernc.org/sqlite, sin CGO).
// Es el driver por defecto y el que usan los tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
	"github.com/dropDatabas3/laneeditor/internal/store"
	"github.com/dropDatabas3/laneeditor/internal/store/rowmap"
)

func init() {
	store.RegisterAdapter(&sqliteAdapter{})
}

type sqliteAdapter struct{}

func (a *sqliteAdapter) Name() string { return "sqlite" }

func (a *sqliteAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	db, err := sql.Open("sqlite", dsnWithPragmas(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// Una sola conexión: sqlite serializa escrituras y :memory: es por conexión.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &sqliteConnection{db: db, box: cfg.Box}, nil
}

// dsnWithPragmas agrega foreign_keys y busy_timeout al path.
func dsnWithPragmas(dsn string) string {
	if dsn == "" {
		dsn = "osm_editor.db"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

type sqliteConnection struct {
	db  *sql.DB
	box *secretbox.Box
}

func (c *sqliteConnection) Name() string                   { return "sqlite" }
func (c *sqliteConnection) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }
func (c *sqliteConnection) Close() error                   { return c.db.Close() }
func (c *sqliteConnection) MigrationDB() *sql.DB           { return c.db }

func (c *sqliteConnection) Users() repository.TokenStore { return &userRepo{db: c.db, box: c.box} }
func (c *sqliteConnection) Ledger() repository.Ledger    { return &ledgerRepo{db: c.db} }

// ─── TokenStore ───

type userRepo struct {
	db  *sql.DB
	box *secretbox.Box
}

func (r *userRepo) SaveUser(ctx context.Context, in repository.SaveUserInput) (*repository.User, error) {
	if in.OSMID <= 0 {
		return nil, fmt.Errorf("sqlite: save user: %w: osm id", repository.ErrInvalidInput)
	}
	sealed, err := rowmap.SealTokens(r.box, in)
	if err != nil {
		return nil, err
	}
	now := rowmap.Now()
	q := `
		INSERT INTO users (osm_id, display_name, access_token, refresh_token, token_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (osm_id) DO UPDATE SET
			display_name     = excluded.display_name,
			access_token     = excluded.access_token,
			refresh_token    = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			updated_at       = excluded.updated_at
		RETURNING ` + rowmap.UserColumns("")
	row := r.db.QueryRowContext(ctx, q, in.OSMID, in.DisplayName, sealed.Access, sealed.Refresh, in.TokenExpiresAt, now, now)
	u, err := rowmap.ScanUser(row, r.box)
	if err != nil {
		return nil, fmt.Errorf("sqlite: save user: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetUserByOSMID(ctx context.Context, osmID int64) (*repository.User, error) {
	q := `SELECT ` + rowmap.UserColumns("") + ` FROM users WHERE osm_id = ?`
	u, err := rowmap.ScanUser(r.db.QueryRowContext(ctx, q, osmID), r.box)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get user: %w", err)
	}
	return u, nil
}

// ─── Ledger ───

type ledgerRepo struct {
	db *sql.DB
}

func (r *ledgerRepo) RecordChangeset(ctx context.Context, in repository.RecordChangesetInput) (*repository.Changeset, error) {
	if err := repository.CheckTransition(repository.StatusPending, repository.StatusSent); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := rowmap.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO changesets (user_id, comment, status, created_at) VALUES (?, ?, ?, ?)`,
		in.UserID, in.Comment, string(repository.StatusPending), now)
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert changeset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert changeset id: %w", err)
	}

	for _, ch := range in.Changes {
		oldTags, err := rowmap.EncodeTags(ch.OldTags)
		if err != nil {
			return nil, err
		}
		newTags, err := rowmap.EncodeTags(ch.NewTags)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO road_changes (changeset_id, osm_way_id, old_tags, new_tags, change_type) VALUES (?, ?, ?, ?, ?)`,
			id, ch.OSMWayID, oldTags, newTags, rowmap.ChangeType(ch.ChangeType)); err != nil {
			return nil, fmt.Errorf("sqlite: insert road change %d: %w", ch.OSMWayID, err)
		}
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE changesets SET status = ?, osm_changeset_id = ?, sent_at = ? WHERE id = ? AND status = ?`,
		string(repository.StatusSent), in.OSMChangesetID, now, id, string(repository.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("sqlite: mark sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, fmt.Errorf("sqlite: mark sent: %w", repository.ErrInvalidTransition)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+rowmap.ChangesetColumns("")+` FROM changesets WHERE id = ?`, id)
	cs, err := rowmap.ScanChangeset(row)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reload changeset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return cs, nil
}

func (r *ledgerRepo) ListChangesets(ctx context.Context, userID int64, limit int) ([]repository.ChangesetSummary, error) {
	q := `
		SELECT ` + rowmap.ChangesetColumns("c.") + `, COUNT(rc.id)
		FROM changesets c
		LEFT JOIN road_changes rc ON rc.changeset_id = c.id
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, repository.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("sqlite: list changesets: %w", err)
	}
	defer rows.Close()

	out := make([]repository.ChangesetSummary, 0)
	for rows.Next() {
		sum, err := rowmap.ScanChangesetSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan changeset: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (r *ledgerRepo) GetChangeset(ctx context.Context, userID, changesetID int64) (*repository.Changeset, error) {
	q := `SELECT ` + rowmap.ChangesetColumns("") + ` FROM changesets WHERE id = ? AND user_id = ?`
	cs, err := rowmap.ScanChangeset(r.db.QueryRowContext(ctx, q, changesetID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get changeset: %w", err)
	}
	return cs, nil
}

func (r *ledgerRepo) ListRoadChanges(ctx context.Context, changesetID int64) ([]repository.RoadChange, error) {
	q := `SELECT ` + rowmap.RoadChangeColumns("") + ` FROM road_changes WHERE changeset_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, changesetID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list road changes: %w", err)
	}
	defer rows.Close()

	out := make([]repository.RoadChange, 0)
	for rows.Next() {
		rc, err := rowmap.ScanRoadChange(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan road change: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
