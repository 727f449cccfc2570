package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quinisports/quinisports/internal/shared"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

// MapError converts driver errors into domain sentinels. Unique violations
// become a ConflictError naming the column taken from the constraint name
// (<table>_<column>_key).
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return &shared.ConflictError{Field: columnFromConstraint(pgErr.TableName, pgErr.ConstraintName)}
	case foreignKeyViolation:
		return shared.InvalidFields(map[string]string{columnFromConstraint(pgErr.TableName, pgErr.ConstraintName): "references a missing record"})
	case checkViolation:
		return shared.Invalid(pgErr.Message)
	}
	return err
}

func columnFromConstraint(table, constraint string) string {
	name := strings.TrimPrefix(constraint, table+"_")
	for _, suffix := range []string{"_key", "_fkey", "_idx", "_unique"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}
