// Package pg implementa el adapter PostgreSQL. Usa pgxpool directamente;
// las migraciones corren sobre el mismo pool vía pgx/stdlib.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
	"github.com/dropDatabas3/laneeditor/internal/store"
	"github.com/dropDatabas3/laneeditor/internal/store/rowmap"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	// Startup no bloqueante: si el ping falla se loguea y /readyz lo reporta.
	if err := pool.Ping(ctx); err != nil {
		logger.L().Warn("pg_pool_startup_ping_failed", logger.Err(err))
	} else {
		logger.L().Info("pg_pool_ready", logger.Int("max_conns", int(poolCfg.MaxConns)))
	}

	return &pgConnection{pool: pool, box: cfg.Box, sqlDB: stdlib.OpenDBFromPool(pool)}, nil
}

type pgConnection struct {
	pool  *pgxpool.Pool
	box   *secretbox.Box
	sqlDB *sql.DB
}

func (c *pgConnection) Name() string                   { return "postgres" }
func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }
func (c *pgConnection) MigrationDB() *sql.DB           { return c.sqlDB }

func (c *pgConnection) Close() error {
	err := c.sqlDB.Close()
	c.pool.Close()
	return err
}

func (c *pgConnection) Users() repository.TokenStore { return &userRepo{pool: c.pool, box: c.box} }
func (c *pgConnection) Ledger() repository.Ledger    { return &ledgerRepo{pool: c.pool} }

// mapError traduce violaciones de constraint a errores de dominio.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		case "23503", "23514":
			return fmt.Errorf("%w: %s", repository.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return err
}

// ─── TokenStore ───

type userRepo struct {
	pool *pgxpool.Pool
	box  *secretbox.Box
}

func (r *userRepo) SaveUser(ctx context.Context, in repository.SaveUserInput) (*repository.User, error) {
	if in.OSMID <= 0 {
		return nil, fmt.Errorf("pg: save user: %w: osm id", repository.ErrInvalidInput)
	}
	sealed, err := rowmap.SealTokens(r.box, in)
	if err != nil {
		return nil, err
	}
	now := rowmap.Now()
	q := `
		INSERT INTO users (osm_id, display_name, access_token, refresh_token, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (osm_id) DO UPDATE SET
			display_name     = EXCLUDED.display_name,
			access_token     = EXCLUDED.access_token,
			refresh_token    = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at       = EXCLUDED.updated_at
		RETURNING ` + rowmap.UserColumns("")
	row := r.pool.QueryRow(ctx, q, in.OSMID, in.DisplayName, sealed.Access, sealed.Refresh, in.TokenExpiresAt, now)
	u, err := rowmap.ScanUser(row, r.box)
	if err != nil {
		return nil, fmt.Errorf("pg: save user: %w", mapError(err))
	}
	return u, nil
}

func (r *userRepo) GetUserByOSMID(ctx context.Context, osmID int64) (*repository.User, error) {
	q := `SELECT ` + rowmap.UserColumns("") + ` FROM users WHERE osm_id = $1`
	u, err := rowmap.ScanUser(r.pool.QueryRow(ctx, q, osmID), r.box)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get user: %w", err)
	}
	return u, nil
}

// ─── Ledger ───

type ledgerRepo struct {
	pool *pgxpool.Pool
}

func (r *ledgerRepo) RecordChangeset(ctx context.Context, in repository.RecordChangesetInput) (*repository.Changeset, error) {
	if err := repository.CheckTransition(repository.StatusPending, repository.StatusSent); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := rowmap.Now()
	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO changesets (user_id, comment, status, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.UserID, in.Comment, string(repository.StatusPending), now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("pg: insert changeset: %w", mapError(err))
	}

	if len(in.Changes) > 0 {
		batch := &pgx.Batch{}
		for _, ch := range in.Changes {
			oldTags, err := rowmap.EncodeTags(ch.OldTags)
			if err != nil {
				return nil, err
			}
			newTags, err := rowmap.EncodeTags(ch.NewTags)
			if err != nil {
				return nil, err
			}
			batch.Queue(
				`INSERT INTO road_changes (changeset_id, osm_way_id, old_tags, new_tags, change_type) VALUES ($1, $2, $3, $4, $5)`,
				id, ch.OSMWayID, oldTags, newTags, rowmap.ChangeType(ch.ChangeType))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("pg: insert road changes: %w", mapError(err))
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE changesets SET status = $1, osm_changeset_id = $2, sent_at = $3 WHERE id = $4 AND status = $5`,
		string(repository.StatusSent), in.OSMChangesetID, now, id, string(repository.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("pg: mark sent: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, fmt.Errorf("pg: mark sent: %w", repository.ErrInvalidTransition)
	}

	cs, err := rowmap.ScanChangeset(tx.QueryRow(ctx, `SELECT `+rowmap.ChangesetColumns("")+` FROM changesets WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("pg: reload changeset: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("pg: commit: %w", err)
	}
	return cs, nil
}

func (r *ledgerRepo) ListChangesets(ctx context.Context, userID int64, limit int) ([]repository.ChangesetSummary, error) {
	q := `
		SELECT ` + rowmap.ChangesetColumns("c.") + `, COUNT(rc.id)
		FROM changesets c
		LEFT JOIN road_changes rc ON rc.changeset_id = c.id
		WHERE c.user_id = $1
		GROUP BY c.id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, repository.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("pg: list changesets: %w", err)
	}
	defer rows.Close()

	out := make([]repository.ChangesetSummary, 0)
	for rows.Next() {
		sum, err := rowmap.ScanChangesetSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("pg: scan changeset: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (r *ledgerRepo) GetChangeset(ctx context.Context, userID, changesetID int64) (*repository.Changeset, error) {
	q := `SELECT ` + rowmap.ChangesetColumns("") + ` FROM changesets WHERE id = $1 AND user_id = $2`
	cs, err := rowmap.ScanChangeset(r.pool.QueryRow(ctx, q, changesetID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get changeset: %w", err)
	}
	return cs, nil
}

func (r *ledgerRepo) ListRoadChanges(ctx context.Context, changesetID int64) ([]repository.RoadChange, error) {
	q := `SELECT ` + rowmap.RoadChangeColumns("") + ` FROM road_changes WHERE changeset_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, q, changesetID)
	if err != nil {
		return nil, fmt.Errorf("pg: list road changes: %w", err)
	}
	defer rows.Close()

	out := make([]repository.RoadChange, 0)
	for rows.Next() {
		rc, err := rowmap.ScanRoadChange(rows)
		if err != nil {
			return nil, fmt.Errorf("pg: scan road change: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
