package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quinisports/quinisports/internal/platform/db"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user User) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id::text, name, email, COALESCE(password_hash, ''), COALESCE(image, ''), role, status, business_id, created_at`

// FindByEmail fetches a user by email, ignoring case.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	var (
		u      User
		role   string
		status string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &role, &status, &u.BusinessID, &u.CreatedAt); err != nil {
		return nil, db.MapError(err)
	}
	u.Role = policy.Role(role)
	u.Status = shared.SessionStatus(status)
	return &u, nil
}

// CreateUser inserts a user and returns the stored record.
func (r *PGRepository) CreateUser(ctx context.Context, user User) (*User, error) {
	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO users (id, name, email, password_hash, image, role, status, business_id)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
RETURNING created_at`,
		user.ID, user.Name, user.Email, passwordHash, user.Image, string(user.Role), string(user.Status), user.BusinessID)
	if err := row.Scan(&user.CreatedAt); err != nil {
		return nil, fmt.Errorf("create user: %w", db.MapError(err))
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
