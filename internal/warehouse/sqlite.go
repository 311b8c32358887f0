package warehouse

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/transform-cli/internal/resilience"
)

// SQLite is a Warehouse backed by a modernc.org/sqlite database file.
type SQLite struct {
	db    *sql.DB
	retry resilience.RetryConfig
}

// NewSQLite opens the database at dsn in WAL mode.
func NewSQLite(dsn string, maxAttempts int) (*SQLite, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: empty dsn")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps pragmas and :memory: databases consistent; the
	// executor's threads queue on it.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db, retry: resilience.WithMaxAttempts(maxAttempts)}, nil
}

func (s *SQLite) Driver() string { return DriverSQLite }

// EnsureSchema accepts only the main schema; attached databases are not
// managed here.
func (s *SQLite) EnsureSchema(_ context.Context, schema string) error {
	if schema != "main" {
		return eris.Errorf("sqlite: schema %q is not supported, use main", schema)
	}
	return nil
}

func (s *SQLite) RelationKind(ctx context.Context, schema, name string) (RelationKind, error) {
	query := "SELECT type FROM " + QuoteIdent(schema) + ".sqlite_master WHERE name = ? AND type IN ('table', 'view')"
	kind, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (string, error) {
		var kind string
		err := s.db.QueryRowContext(ctx, query, name).Scan(&kind)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return kind, err
	})
	if err != nil {
		return RelationNone, eris.Wrapf(err, "sqlite: lookup relation %s", name)
	}
	return RelationKind(kind), nil
}

func (s *SQLite) Exec(ctx context.Context, stmt string) error {
	return resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, stmt)
		return err
	})
}

func (s *SQLite) QueryCount(ctx context.Context, query string) (int64, error) {
	return resilience.DoVal(ctx, s.retry, func(ctx context.Context) (int64, error) {
		var n int64
		err := s.db.QueryRowContext(ctx, query).Scan(&n)
		return n, err
	})
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
