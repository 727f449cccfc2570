package products

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quinisports/quinisports/internal/platform/db"
	"github.com/quinisports/quinisports/internal/shared"
)

// Repository defines persistence operations for products.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, values map[string]any) (*Product, error)
	Update(ctx context.Context, id int64, values map[string]any) (*Product, error)
	Delete(ctx context.Context, id int64) error
	Types(ctx context.Context) ([]ProductType, error)
	CreateType(ctx context.Context, name string) (*ProductType, error)
}

// ListFilter narrows list results.
type ListFilter struct {
	BusinessID *int64
	Search     string
	Limit      uint64
	Offset     uint64
}

// PGRepository implements Repository with PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var productColumns = []string{
	"p.id", "p.business_id", "p.product_type_id", "p.name", "p.description",
	"COALESCE(p.image, '')", "p.price", "p.created_at", "p.updated_at", "COALESCE(t.name, '')",
}

func selectProducts() sq.SelectBuilder {
	return db.PSQL.Select(productColumns...).
		From("products p").
		LeftJoin("product_types t ON t.id = p.product_type_id")
}

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p        Product
		typeName string
	)
	if err := row.Scan(&p.ID, &p.BusinessID, &p.ProductTypeID, &p.Name, &p.Description,
		&p.Image, &p.Price, &p.CreatedAt, &p.UpdatedAt, &typeName); err != nil {
		return nil, err
	}
	if p.ProductTypeID != nil {
		p.ProductType = &ProductType{ID: *p.ProductTypeID, Name: typeName}
	}
	return &p, nil
}

func buildList(filter ListFilter) sq.SelectBuilder {
	q := selectProducts().OrderBy("p.name ASC", "p.id ASC")
	if filter.BusinessID != nil {
		q = q.Where(sq.Eq{"p.business_id": *filter.BusinessID})
	}
	if filter.Search != "" {
		like := db.SearchLike(filter.Search)
		q = q.Where(sq.Or{sq.ILike{"p.name": like}, sq.ILike{"t.name": like}})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	return q
}

// List returns products ordered by name with their type.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, buildList(filter))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", db.MapError(err))
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Get fetches one product with its type.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Product, error) {
	sql, args, err := selectProducts().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.MapError(err)
	}
	return p, nil
}

// Create inserts a product and reloads it with its type.
func (r *PGRepository) Create(ctx context.Context, values map[string]any) (*Product, error) {
	sql, args, err := db.PSQL.Insert("products").SetMap(values).Suffix("RETURNING id").ToSql()
	if err != nil {
		return nil, err
	}
	var id int64
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("create product: %w", db.MapError(err))
	}
	return r.Get(ctx, id)
}

func buildUpdate(id int64, values map[string]any) sq.UpdateBuilder {
	return db.PSQL.Update("products").
		SetMap(values).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})
}

// Update writes values and returns the stored record.
func (r *PGRepository) Update(ctx context.Context, id int64, values map[string]any) (*Product, error) {
	if len(values) == 0 {
		return nil, shared.ErrNoChanges
	}
	n, err := db.ExecBuilt(ctx, r.pool, buildUpdate(id, values))
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if n == 0 {
		return nil, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a product. Prize links cascade.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	n, err := db.ExecBuilt(ctx, r.pool, db.PSQL.Delete("products").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Types lists product types by name.
func (r *PGRepository) Types(ctx context.Context) ([]ProductType, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, db.PSQL.Select("id", "name").From("product_types").OrderBy("name ASC"))
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var out []ProductType
	for rows.Next() {
		var t ProductType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateType inserts a product type. Names are unique.
func (r *PGRepository) CreateType(ctx context.Context, name string) (*ProductType, error) {
	sql, args, err := db.PSQL.Insert("product_types").Columns("name").Values(strings.TrimSpace(name)).Suffix("RETURNING id, name").ToSql()
	if err != nil {
		return nil, err
	}
	var t ProductType
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.Name); err != nil {
		return nil, fmt.Errorf("create product type: %w", db.MapError(err))
	}
	return &t, nil
}

var _ Repository = (*PGRepository)(nil)
