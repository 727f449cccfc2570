package businesses

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quinisports/quinisports/internal/platform/db"
	"github.com/quinisports/quinisports/internal/shared"
)

// Repository defines persistence operations for businesses.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Business, error)
	Get(ctx context.Context, id int64) (*Business, error)
	Create(ctx context.Context, values map[string]any) (*Business, error)
	Update(ctx context.Context, id int64, values map[string]any) (*Business, error)
	Delete(ctx context.Context, id int64) error
	Schedule(ctx context.Context, id int64) ([]Day, error)
	ReplaceSchedule(ctx context.Context, id int64, days []Day) error
	Menu(ctx context.Context, id int64) ([]MenuItem, error)
	PrizeRows(ctx context.Context, id int64) ([]PrizeRow, error)
	Directory(ctx context.Context) ([]DirectoryEntry, error)
}

// ListFilter narrows list results.
type ListFilter struct {
	ID     *int64
	Search string
	Limit  uint64
	Offset uint64
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
	"id", "name", "type", "description",
	"COALESCE(photo_url, '')", "COALESCE(logo_url, '')", "COALESCE(cover_image_url, '')", "COALESCE(email, '')",
	"country", "COALESCE(province, '')", "COALESCE(canton, '')", "COALESCE(district, '')", "COALESCE(address, '')",
	"COALESCE(waze_link, '')", "COALESCE(google_map_link, '')", "COALESCE(facebook_link, '')",
	"COALESCE(instagram_link, '')", "COALESCE(x_link, '')", "created_at", "updated_at",
}

func returning() string {
	out := "RETURNING "
	for i, c := range selectColumns {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

func scanBusiness(row pgx.Row) (*Business, error) {
	var b Business
	err := row.Scan(&b.ID, &b.Name, &b.Type, &b.Description,
		&b.PhotoURL, &b.LogoURL, &b.CoverImageURL, &b.Email,
		&b.Country, &b.Province, &b.Canton, &b.District, &b.Address,
		&b.WazeLink, &b.GoogleMapLink, &b.FacebookLink, &b.InstagramLink, &b.XLink,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func buildList(filter ListFilter) sq.SelectBuilder {
	q := db.PSQL.Select(selectColumns...).From("businesses").OrderBy("name ASC", "id ASC")
	if filter.ID != nil {
		q = q.Where(sq.Eq{"id": *filter.ID})
	}
	if filter.Search != "" {
		like := db.SearchLike(filter.Search)
		q = q.Where(sq.Or{sq.ILike{"name": like}, sq.ILike{"type": like}, sq.ILike{"province": like}})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	return q
}

// List returns businesses ordered by name.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Business, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, buildList(filter))
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", db.MapError(err))
	}
	defer rows.Close()
	var out []Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Get fetches one business.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Business, error) {
	sql, args, err := db.PSQL.Select(selectColumns...).From("businesses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	b, err := scanBusiness(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.MapError(err)
	}
	return b, nil
}

// Create inserts a business from column values.
func (r *PGRepository) Create(ctx context.Context, values map[string]any) (*Business, error) {
	sql, args, err := db.PSQL.Insert("businesses").SetMap(values).Suffix(returning()).ToSql()
	if err != nil {
		return nil, err
	}
	b, err := scanBusiness(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("create business: %w", db.MapError(err))
	}
	return b, nil
}

func buildUpdate(id int64, values map[string]any) sq.UpdateBuilder {
	return db.PSQL.Update("businesses").
		SetMap(values).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix(returning())
}

// Update writes values and returns the stored record.
func (r *PGRepository) Update(ctx context.Context, id int64, values map[string]any) (*Business, error) {
	if len(values) == 0 {
		return nil, shared.ErrNoChanges
	}
	sql, args, err := buildUpdate(id, values).ToSql()
	if err != nil {
		return nil, err
	}
	b, err := scanBusiness(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("update business: %w", db.MapError(err))
	}
	return b, nil
}

// Delete removes a business. Products, prizes, schedules and subscriptions
// cascade; staff accounts lose their business.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	n, err := db.ExecBuilt(ctx, r.pool, db.PSQL.Delete("businesses").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete business: %w", err)
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Schedule returns the stored weekdays of a business ordered by weekday.
func (r *PGRepository) Schedule(ctx context.Context, id int64) ([]Day, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, db.PSQL.
		Select("weekday", "opening", "closing").
		From("business_schedules").
		Where(sq.Eq{"business_id": id}).
		OrderBy("weekday"))
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var out []Day
	for rows.Next() {
		var (
			d                int
			opening, closing *int16
		)
		if err := rows.Scan(&d, &opening, &closing); err != nil {
			return nil, err
		}
		out = append(out, Day{Weekday: d, Opening: widen(opening), Closing: widen(closing)})
	}
	return out, rows.Err()
}

func widen(v *int16) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

// ReplaceSchedule swaps the whole weekly schedule in one transaction.
func (r *PGRepository) ReplaceSchedule(ctx context.Context, id int64, days []Day) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := db.ExecBuilt(ctx, tx, db.PSQL.Delete("business_schedules").Where(sq.Eq{"business_id": id})); err != nil {
			return err
		}
		if len(days) == 0 {
			return nil
		}
		ins := db.PSQL.Insert("business_schedules").Columns("business_id", "weekday", "opening", "closing")
		for _, d := range days {
			ins = ins.Values(id, d.Weekday, d.Opening, d.Closing)
		}
		if _, err := db.ExecBuilt(ctx, tx, ins); err != nil {
			return fmt.Errorf("replace schedule: %w", err)
		}
		return nil
	})
}

// Menu returns the products of a business with their type name, ordered by
// type then product name.
func (r *PGRepository) Menu(ctx context.Context, id int64) ([]MenuItem, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, db.PSQL.
		Select("p.id", "p.name", "COALESCE(p.image, '')", "p.price", "COALESCE(t.name, '')").
		From("products p").
		LeftJoin("product_types t ON t.id = p.product_type_id").
		Where(sq.Eq{"p.business_id": id}).
		OrderBy("t.name ASC NULLS LAST", "p.name ASC"))
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var out []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Image, &m.Price, &m.TypeName); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PrizeRows returns one row per prize/product link of a business, plus one
// row for each prize without links.
func (r *PGRepository) PrizeRows(ctx context.Context, id int64) ([]PrizeRow, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, db.PSQL.
		Select("z.id", "z.name", "z.points", "COALESCE(p.name, '')").
		From("prizes z").
		LeftJoin("prize_products pp ON pp.prize_id = z.id").
		LeftJoin("products p ON p.id = pp.product_id").
		Where(sq.Eq{"z.business_id": id}).
		OrderBy("z.points ASC", "z.name ASC", "z.id ASC", "p.name ASC"))
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var out []PrizeRow
	for rows.Next() {
		var p PrizeRow
		if err := rows.Scan(&p.PrizeID, &p.Name, &p.Points, &p.ProductName); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Directory lists every business as a public card.
func (r *PGRepository) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, db.PSQL.
		Select("id", "name", "type", "COALESCE(cover_image_url, '')", "COALESCE(province, '')", "COALESCE(canton, '')", "COALESCE(district, '')").
		From("businesses").
		OrderBy("name ASC"))
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var out []DirectoryEntry
	for rows.Next() {
		var e DirectoryEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.CoverImageURL, &e.Province, &e.Canton, &e.District); err != nil {
			return nil, err
		}
		e.Slug = Slug(e.Name, e.ID)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
