package warehouse

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/transform-cli/internal/resilience"
)

// Pool is the subset of *pgxpool.Pool the warehouse uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres is a Warehouse backed by a pgx connection pool.
type Postgres struct {
	pool  Pool
	retry resilience.RetryConfig
}

// NewPostgres connects a pool to dsn and pings it.
func NewPostgres(ctx context.Context, dsn string, maxAttempts int) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return NewPostgresWithPool(pool, maxAttempts), nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool, maxAttempts int) *Postgres {
	return &Postgres{pool: pool, retry: resilience.WithMaxAttempts(maxAttempts)}
}

func (p *Postgres) Driver() string { return DriverPostgres }

func (p *Postgres) EnsureSchema(ctx context.Context, schema string) error {
	return eris.Wrapf(p.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+QuoteIdent(schema)), "postgres: ensure schema %s", schema)
}

func (p *Postgres) RelationKind(ctx context.Context, schema, name string) (RelationKind, error) {
	const query = `SELECT table_type FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`
	kind, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (RelationKind, error) {
		var tableType string
		err := p.pool.QueryRow(ctx, query, schema, name).Scan(&tableType)
		if errors.Is(err, pgx.ErrNoRows) {
			return RelationNone, nil
		}
		if err != nil {
			return RelationNone, err
		}
		if tableType == "VIEW" {
			return RelationView, nil
		}
		return RelationTable, nil
	})
	if err != nil {
		return RelationNone, eris.Wrapf(err, "postgres: lookup relation %s.%s", schema, name)
	}
	return kind, nil
}

func (p *Postgres) Exec(ctx context.Context, stmt string) error {
	return resilience.Do(ctx, p.retry, func(ctx context.Context) error {
		_, err := p.pool.Exec(ctx, stmt)
		return err
	})
}

func (p *Postgres) QueryCount(ctx context.Context, query string) (int64, error) {
	return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (int64, error) {
		var n int64
		err := p.pool.QueryRow(ctx, query).Scan(&n)
		return n, err
	})
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
