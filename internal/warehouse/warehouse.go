// Package warehouse executes compiled SQL against the database models are
// materialized into.
package warehouse

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/transform-cli/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// RelationKind is the kind of an existing relation.
type RelationKind string

const (
	RelationNone  RelationKind = ""
	RelationView  RelationKind = "view"
	RelationTable RelationKind = "table"
)

// Warehouse runs statements for the build pipeline. Implementations must be
// safe for concurrent use.
type Warehouse interface {
	Driver() string
	EnsureSchema(ctx context.Context, schema string) error
	RelationKind(ctx context.Context, schema, name string) (RelationKind, error)
	Exec(ctx context.Context, stmt string) error
	QueryCount(ctx context.Context, query string) (int64, error)
	Close() error
}

// Open connects to the warehouse described by cfg.
func Open(ctx context.Context, cfg config.WarehouseConfig) (Warehouse, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return NewSQLite(cfg.DSN, cfg.MaxAttempts)
	case DriverPostgres:
		return NewPostgres(ctx, cfg.DSN, cfg.MaxAttempts)
	default:
		return nil, eris.Errorf("warehouse: unsupported driver %q", cfg.Driver)
	}
}

// DropRelation drops schema.name whatever its kind. A missing relation is
// not an error. On Postgres dependent views are dropped with it.
func DropRelation(ctx context.Context, w Warehouse, schema, name string) error {
	kind, err := w.RelationKind(ctx, schema, name)
	if err != nil {
		return err
	}
	var stmt string
	switch kind {
	case RelationView:
		stmt = "DROP VIEW IF EXISTS " + QuoteRelation(schema, name)
	case RelationTable:
		stmt = "DROP TABLE IF EXISTS " + QuoteRelation(schema, name)
	default:
		return nil
	}
	if w.Driver() == DriverPostgres {
		stmt += " CASCADE"
	}
	return w.Exec(ctx, stmt)
}

// QuoteRelation renders "schema"."name".
func QuoteRelation(schema, name string) string {
	return QuoteIdent(schema) + "." + QuoteIdent(name)
}

// QuoteIdent double-quotes an identifier, escaping embedded quotes.
func QuoteIdent(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}

// QuoteLiteral single-quotes a string literal, escaping embedded quotes.
func QuoteLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(append(out, '\''))
}
