package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PSQL builds statements with PostgreSQL placeholders.
var PSQL = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Sqlizer aliases squirrel's interface so repositories only import this package
// for plumbing.
type Sqlizer = sq.Sqlizer

// QueryBuilt renders b and runs it as a query.
func QueryBuilt(ctx context.Context, q Querier, b Sqlizer) (pgx.Rows, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return q.Query(ctx, sql, args...)
}

// ExecBuilt renders b and executes it, returning the affected row count.
func ExecBuilt(ctx context.Context, q Querier, b Sqlizer) (int64, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, MapError(err)
	}
	return tag.RowsAffected(), nil
}

// SearchLike returns an ILIKE pattern for a free-text search term.
func SearchLike(term string) string {
	return "%" + term + "%"
}
