package prizes

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quinisports/quinisports/internal/platform/db"
	"github.com/quinisports/quinisports/internal/shared"
)

// Repository defines persistence operations for prizes.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Prize, error)
	Get(ctx context.Context, id int64) (*Prize, error)
	Create(ctx context.Context, values map[string]any, links []Link) (*Prize, error)
	Update(ctx context.Context, id int64, values map[string]any, links []Link, replaceLinks bool) (*Prize, error)
	Delete(ctx context.Context, id int64) error
	ProductOwners(ctx context.Context, productIDs []int64) (map[int64]int64, error)
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

var prizeColumns = []string{"id", "business_id", "name", "description", "COALESCE(image, '')", "points", "created_at", "updated_at"}

func buildList(filter ListFilter) sq.SelectBuilder {
	q := db.PSQL.Select(prizeColumns...).From("prizes").OrderBy("points ASC", "name ASC", "id ASC")
	if filter.BusinessID != nil {
		q = q.Where(sq.Eq{"business_id": *filter.BusinessID})
	}
	if filter.Search != "" {
		q = q.Where(sq.ILike{"name": db.SearchLike(filter.Search)})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	return q
}

func buildItems(prizeIDs []int64) sq.SelectBuilder {
	return db.PSQL.Select("pp.prize_id", "pp.product_id", "p.name", "pp.quantity").
		From("prize_products pp").
		Join("products p ON p.id = pp.product_id").
		Where(sq.Eq{"pp.prize_id": prizeIDs}).
		OrderBy("pp.prize_id", "p.name ASC")
}

func scanPrize(row pgx.Row) (*Prize, error) {
	var p Prize
	if err := row.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Description, &p.Image, &p.Points, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Products = []Item{}
	return &p, nil
}

// List returns prizes ordered by points with their products.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Prize, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, buildList(filter))
	if err != nil {
		return nil, fmt.Errorf("list prizes: %w", db.MapError(err))
	}
	var (
		out []Prize
		ids []int64
	)
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *p)
		ids = append(ids, p.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.items(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if list, ok := items[out[i].ID]; ok {
			out[i].Products = list
		}
	}
	return out, nil
}

func (r *PGRepository) items(ctx context.Context, q db.Querier, ids []int64) (map[int64][]Item, error) {
	rows, err := db.QueryBuilt(ctx, q, buildItems(ids))
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	out := map[int64][]Item{}
	for rows.Next() {
		var (
			prizeID int64
			it      Item
		)
		if err := rows.Scan(&prizeID, &it.ProductID, &it.Name, &it.Quantity); err != nil {
			return nil, err
		}
		out[prizeID] = append(out[prizeID], it)
	}
	return out, rows.Err()
}

// Get fetches one prize with its products.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Prize, error) {
	return r.get(ctx, r.pool, id)
}

func (r *PGRepository) get(ctx context.Context, q db.Querier, id int64) (*Prize, error) {
	sql, args, err := db.PSQL.Select(prizeColumns...).From("prizes").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanPrize(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.MapError(err)
	}
	items, err := r.items(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	if list, ok := items[id]; ok {
		p.Products = list
	}
	return p, nil
}

// Create inserts a prize and its links in one transaction.
func (r *PGRepository) Create(ctx context.Context, values map[string]any, links []Link) (*Prize, error) {
	var created *Prize
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		sql, args, err := db.PSQL.Insert("prizes").SetMap(values).Suffix("RETURNING id").ToSql()
		if err != nil {
			return err
		}
		var id int64
		if err := tx.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
			return fmt.Errorf("create prize: %w", db.MapError(err))
		}
		if err := insertLinks(ctx, tx, id, links); err != nil {
			return err
		}
		created, err = r.get(ctx, tx, id)
		return err
	})
	return created, err
}

// Update writes values and, when replaceLinks is set, swaps every link.
func (r *PGRepository) Update(ctx context.Context, id int64, values map[string]any, links []Link, replaceLinks bool) (*Prize, error) {
	if len(values) == 0 && !replaceLinks {
		return nil, shared.ErrNoChanges
	}
	var updated *Prize
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		n, err := db.ExecBuilt(ctx, tx, buildUpdate(id, values))
		if err != nil {
			return fmt.Errorf("update prize: %w", err)
		}
		if n == 0 {
			return shared.ErrNotFound
		}
		if replaceLinks {
			if _, err := db.ExecBuilt(ctx, tx, db.PSQL.Delete("prize_products").Where(sq.Eq{"prize_id": id})); err != nil {
				return err
			}
			if err := insertLinks(ctx, tx, id, links); err != nil {
				return err
			}
		}
		updated, err = r.get(ctx, tx, id)
		return err
	})
	return updated, err
}

func buildUpdate(id int64, values map[string]any) sq.UpdateBuilder {
	return db.PSQL.Update("prizes").
		SetMap(values).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})
}

func insertLinks(ctx context.Context, tx pgx.Tx, prizeID int64, links []Link) error {
	if len(links) == 0 {
		return nil
	}
	ins := db.PSQL.Insert("prize_products").Columns("prize_id", "product_id", "quantity")
	for _, l := range links {
		ins = ins.Values(prizeID, l.ProductID, l.Quantity)
	}
	if _, err := db.ExecBuilt(ctx, tx, ins); err != nil {
		return fmt.Errorf("link prize products: %w", err)
	}
	return nil
}

// Delete removes a prize and its links.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	n, err := db.ExecBuilt(ctx, r.pool, db.PSQL.Delete("prizes").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete prize: %w", err)
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ProductOwners returns the business of each existing product in ids.
func (r *PGRepository) ProductOwners(ctx context.Context, ids []int64) (map[int64]int64, error) {
	out := map[int64]int64{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := db.QueryBuilt(ctx, r.pool, db.PSQL.Select("id", "business_id").From("products").Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, bid int64
		if err := rows.Scan(&id, &bid); err != nil {
			return nil, err
		}
		out[id] = bid
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
