package sports

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quinisports/quinisports/internal/platform/db"
	"github.com/quinisports/quinisports/internal/shared"
)

// Repository defines persistence operations for sports and tournaments.
type Repository interface {
	Sports(ctx context.Context, search string) ([]Sport, error)
	Sport(ctx context.Context, id int64) (*Sport, error)
	CreateSport(ctx context.Context, values map[string]any) (*Sport, error)
	UpdateSport(ctx context.Context, id int64, values map[string]any) (*Sport, error)
	DeleteSport(ctx context.Context, id int64) error

	Tournaments(ctx context.Context, filter TournamentFilter) ([]Tournament, error)
	Tournament(ctx context.Context, id int64) (*Tournament, error)
	CreateTournament(ctx context.Context, values map[string]any) (*Tournament, error)
	UpdateTournament(ctx context.Context, id int64, values map[string]any) (*Tournament, error)
	DeleteTournament(ctx context.Context, id int64) error
}

// TournamentFilter narrows tournament lists.
type TournamentFilter struct {
	SportID *int64
	Search  string
	Limit   uint64
	Offset  uint64
}

// PGRepository implements Repository with PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var (
	sportSelect      = []string{"id", "name", "COALESCE(image, '')", "created_at"}
	tournamentSelect = []string{
		"t.id", "t.sport_id", "s.name", "t.name", "COALESCE(t.image, '')", "COALESCE(t.country, '')",
		"t.starts_on", "t.ends_on", "t.created_at",
	}
)

func scanSport(row pgx.Row) (*Sport, error) {
	var s Sport
	if err := row.Scan(&s.ID, &s.Name, &s.Image, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanTournament(row pgx.Row) (*Tournament, error) {
	var (
		t              Tournament
		starts, ending *time.Time
	)
	if err := row.Scan(&t.ID, &t.SportID, &t.SportName, &t.Name, &t.Image, &t.Country, &starts, &ending, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.StartsOn = formatDate(starts)
	t.EndsOn = formatDate(ending)
	return &t, nil
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

// Sports lists sports by name.
func (r *PGRepository) Sports(ctx context.Context, search string) ([]Sport, error) {
	q := db.PSQL.Select(sportSelect...).From("sports").OrderBy("name ASC")
	if search != "" {
		q = q.Where(sq.ILike{"name": db.SearchLike(search)})
	}
	rows, err := db.QueryBuilt(ctx, r.pool, q)
	if err != nil {
		return nil, fmt.Errorf("list sports: %w", db.MapError(err))
	}
	defer rows.Close()
	var out []Sport
	for rows.Next() {
		s, err := scanSport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Sport fetches one sport.
func (r *PGRepository) Sport(ctx context.Context, id int64) (*Sport, error) {
	sql, args, err := db.PSQL.Select(sportSelect...).From("sports").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSport(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.MapError(err)
	}
	return s, nil
}

// CreateSport inserts a sport. Names are unique.
func (r *PGRepository) CreateSport(ctx context.Context, values map[string]any) (*Sport, error) {
	sql, args, err := db.PSQL.Insert("sports").SetMap(values).Suffix("RETURNING id, name, COALESCE(image, ''), created_at").ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSport(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("create sport: %w", db.MapError(err))
	}
	return s, nil
}

// UpdateSport writes values and returns the stored sport.
func (r *PGRepository) UpdateSport(ctx context.Context, id int64, values map[string]any) (*Sport, error) {
	if len(values) == 0 {
		return nil, shared.ErrNoChanges
	}
	sql, args, err := db.PSQL.Update("sports").SetMap(values).Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name, COALESCE(image, ''), created_at").ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSport(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("update sport: %w", db.MapError(err))
	}
	return s, nil
}

// DeleteSport removes a sport and its tournaments.
func (r *PGRepository) DeleteSport(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.pool, "sports", id)
}

func selectTournaments() sq.SelectBuilder {
	return db.PSQL.Select(tournamentSelect...).From("tournaments t").Join("sports s ON s.id = t.sport_id")
}

func buildTournamentList(filter TournamentFilter) sq.SelectBuilder {
	q := selectTournaments().OrderBy("t.starts_on DESC NULLS LAST", "t.name ASC")
	if filter.SportID != nil {
		q = q.Where(sq.Eq{"t.sport_id": *filter.SportID})
	}
	if filter.Search != "" {
		like := db.SearchLike(filter.Search)
		q = q.Where(sq.Or{sq.ILike{"t.name": like}, sq.ILike{"t.country": like}})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	return q
}

// Tournaments lists tournaments, most recent first.
func (r *PGRepository) Tournaments(ctx context.Context, filter TournamentFilter) ([]Tournament, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, buildTournamentList(filter))
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", db.MapError(err))
	}
	defer rows.Close()
	var out []Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Tournament fetches one tournament with its sport name.
func (r *PGRepository) Tournament(ctx context.Context, id int64) (*Tournament, error) {
	sql, args, err := selectTournaments().Where(sq.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	t, err := scanTournament(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.MapError(err)
	}
	return t, nil
}

// CreateTournament inserts a tournament.
func (r *PGRepository) CreateTournament(ctx context.Context, values map[string]any) (*Tournament, error) {
	sql, args, err := db.PSQL.Insert("tournaments").SetMap(values).Suffix("RETURNING id").ToSql()
	if err != nil {
		return nil, err
	}
	var id int64
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("create tournament: %w", db.MapError(err))
	}
	return r.Tournament(ctx, id)
}

// UpdateTournament writes values and returns the stored tournament.
func (r *PGRepository) UpdateTournament(ctx context.Context, id int64, values map[string]any) (*Tournament, error) {
	if len(values) == 0 {
		return nil, shared.ErrNoChanges
	}
	n, err := db.ExecBuilt(ctx, r.pool, db.PSQL.Update("tournaments").SetMap(values).Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("update tournament: %w", err)
	}
	if n == 0 {
		return nil, shared.ErrNotFound
	}
	return r.Tournament(ctx, id)
}

// DeleteTournament removes a tournament.
func (r *PGRepository) DeleteTournament(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.pool, "tournaments", id)
}

func deleteByID(ctx context.Context, q db.Querier, table string, id int64) error {
	n, err := db.ExecBuilt(ctx, q, db.PSQL.Delete(table).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
