package idalloc

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotMigrated is returned when the note_ids sequence does not exist.
var ErrNotMigrated = errors.New("id sequence missing: migrations not applied")

// Postgres allocates ids from the note_ids sequence.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres applies pending migrations, connects, and moves the sequence
// forward to floor if it lags behind.
func NewPostgres(ctx context.Context, databaseURL string, floor int64) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	if err := Migrate(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.raiseFloor(ctx, floor); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Migrate runs the embedded migrations against databaseURL.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (p *Postgres) Next(ctx context.Context) (int64, error) {
	var id int64
	if err := p.pool.QueryRow(ctx, `SELECT nextval('note_ids')`).Scan(&id); err != nil {
		return 0, classify(err)
	}
	return id, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) raiseFloor(ctx context.Context, floor int64) error {
	_, err := p.pool.Exec(ctx, `
		SELECT setval('note_ids', $1::bigint, false)
		FROM note_ids
		WHERE $1::bigint > CASE WHEN is_called THEN last_value + 1 ELSE last_value END`,
		floor)
	if err != nil {
		return fmt.Errorf("raise id floor: %w", classify(err))
	}
	return nil
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return fmt.Errorf("%w: %s", ErrNotMigrated, pgErr.Message)
	}
	return fmt.Errorf("allocate id: %w", err)
}

// migrateURL rewrites a postgres:// URL to the scheme registered by the
// golang-migrate pgx/v5 driver.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}
