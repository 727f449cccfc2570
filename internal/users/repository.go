package users

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quinisports/quinisports/internal/platform/db"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Repository defines persistence operations for managed accounts.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]User, error)
	Get(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user User, passwordHash string) (*User, error)
	Update(ctx context.Context, id string, columns map[string]any) (*User, error)
	Delete(ctx context.Context, id string) error
}

// PGRepository implements Repository with PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var selectColumns = []string{
	"id::text", "name", "email", "COALESCE(image, '')", "role", "status", "business_id", "created_at", "updated_at",
}

const returning = "RETURNING id::text, name, email, COALESCE(image, ''), role, status, business_id, created_at, updated_at"

func scanUser(row pgx.Row) (*User, error) {
	var (
		u      User
		role   string
		status string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &role, &status, &u.BusinessID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = policy.Role(role)
	u.Status = shared.SessionStatus(status)
	return &u, nil
}

func roleStrings(roles []policy.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func buildList(filter ListFilter) sq.SelectBuilder {
	q := db.PSQL.Select(selectColumns...).From("users").OrderBy("name ASC", "id ASC")
	if len(filter.Roles) > 0 {
		q = q.Where(sq.Eq{"role": roleStrings(filter.Roles)})
	}
	if filter.BusinessID != nil {
		q = q.Where(sq.Eq{"business_id": *filter.BusinessID})
	}
	if filter.Search != "" {
		like := db.SearchLike(filter.Search)
		q = q.Where(sq.Or{sq.ILike{"name": like}, sq.ILike{"email": like}})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	return q
}

func buildUpdate(id string, columns map[string]any) sq.UpdateBuilder {
	return db.PSQL.Update("users").
		SetMap(columns).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix(returning)
}

// List returns accounts matching filter ordered by name.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]User, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, buildList(filter))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", db.MapError(err))
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Get fetches one account.
func (r *PGRepository) Get(ctx context.Context, id string) (*User, error) {
	sql, args, err := db.PSQL.Select(selectColumns...).From("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.MapError(err)
	}
	return u, nil
}

// Create inserts user with the given password hash.
func (r *PGRepository) Create(ctx context.Context, user User, passwordHash string) (*User, error) {
	sql, args, err := db.PSQL.Insert("users").
		Columns("id", "name", "email", "password_hash", "image", "role", "status", "business_id").
		Values(user.ID, user.Name, user.Email, passwordHash, sq.Expr("NULLIF(?, '')", user.Image), string(user.Role), string(user.Status), user.BusinessID).
		Suffix(returning).
		ToSql()
	if err != nil {
		return nil, err
	}
	created, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", db.MapError(err))
	}
	return created, nil
}

// Update writes columns and returns the stored record.
func (r *PGRepository) Update(ctx context.Context, id string, columns map[string]any) (*User, error) {
	if len(columns) == 0 {
		return nil, shared.ErrNoChanges
	}
	sql, args, err := buildUpdate(id, columns).ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("update user: %w", db.MapError(err))
	}
	return u, nil
}

// Delete removes an account.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	n, err := db.ExecBuilt(ctx, r.pool, db.PSQL.Delete("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
