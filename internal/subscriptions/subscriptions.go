// Package subscriptions records the plan each affiliated business pays for.
package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/platform/db"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Plans.
const (
	PlanBasic    = "basic"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

const dateLayout = "2006-01-02"

// Subscription is a plan period of a business. At most one subscription
// per business is active.
type Subscription struct {
	ID         int64           `json:"id"`
	BusinessID int64           `json:"idBusiness"`
	Plan       string          `json:"plan"`
	Price      decimal.Decimal `json:"price"`
	StartsOn   string          `json:"startsOn"`
	EndsOn     string          `json:"endsOn"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Input is the payload of POST /api/subscription.
type Input struct {
	BusinessID int64           `json:"idBusiness" validate:"required,gt=0"`
	Plan       string          `json:"plan" validate:"required,oneof=basic standard premium"`
	Price      decimal.Decimal `json:"price"`
	StartsOn   string          `json:"startsOn" validate:"required,datetime=2006-01-02"`
	EndsOn     string          `json:"endsOn,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ListFilter narrows list results.
type ListFilter struct {
	BusinessID *int64
	ActiveOnly bool
	Limit      uint64
	Offset     uint64
}

// Repository defines persistence operations for subscriptions.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Subscription, error)
	Create(ctx context.Context, in Input) (*Subscription, error)
}

// PGRepository implements Repository with PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const subscriptionColumns = "id, business_id, plan, price, starts_on, ends_on, active, created_at"

func buildList(filter ListFilter) sq.SelectBuilder {
	q := db.PSQL.Select(subscriptionColumns).From("subscriptions").OrderBy("starts_on DESC", "id DESC")
	if filter.BusinessID != nil {
		q = q.Where(sq.Eq{"business_id": *filter.BusinessID})
	}
	if filter.ActiveOnly {
		q = q.Where(sq.Eq{"active": true})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	return q
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		s      Subscription
		starts time.Time
		ends   *time.Time
	)
	if err := row.Scan(&s.ID, &s.BusinessID, &s.Plan, &s.Price, &starts, &ends, &s.Active, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.StartsOn = starts.Format(dateLayout)
	if ends != nil {
		s.EndsOn = ends.Format(dateLayout)
	}
	return &s, nil
}

// List returns subscriptions, most recent first.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Subscription, error) {
	rows, err := db.QueryBuilt(ctx, r.pool, buildList(filter))
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", db.MapError(err))
	}
	defer rows.Close()
	var out []Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Create deactivates the current subscription of the business and inserts
// the new one in a single transaction.
func (r *PGRepository) Create(ctx context.Context, in Input) (*Subscription, error) {
	var created *Subscription
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := db.ExecBuilt(ctx, tx, db.PSQL.Update("subscriptions").
			Set("active", false).
			Where(sq.Eq{"business_id": in.BusinessID, "active": true})); err != nil {
			return err
		}
		ins := db.PSQL.Insert("subscriptions").
			Columns("business_id", "plan", "price", "starts_on", "ends_on", "active").
			Values(in.BusinessID, in.Plan, in.Price, in.StartsOn, nullable(in.EndsOn), true).
			Suffix("RETURNING " + subscriptionColumns)
		sql, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		created, err = scanSubscription(tx.QueryRow(ctx, sql, args...))
		if err != nil {
			return fmt.Errorf("create subscription: %w", db.MapError(err))
		}
		return nil
	})
	return created, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Service implements subscription management.
type Service struct {
	repo   Repository
	public interface{ InvalidatePublic(context.Context) }
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service. public may be nil.
func NewService(repo Repository, public interface{ InvalidatePublic(context.Context) }, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, public: public, audit: audit, logger: logger}
}

// List returns subscriptions visible to the caller.
func (s *Service) List(ctx context.Context, f shared.ListFilter, activeOnly bool) ([]Subscription, error) {
	bid, err := guard.ScopeFilter(ctx, f.BusinessID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{BusinessID: bid, ActiveOnly: activeOnly, Limit: uint64(f.Limit), Offset: f.Offset()})
}

// Create starts a new plan period for a business.
func (s *Service) Create(ctx context.Context, in Input) (*Subscription, error) {
	if err := guard.AuthorizeScope(ctx, &in.BusinessID); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, shared.InvalidFields(map[string]string{"price": "must be zero or greater"})
	}
	if in.EndsOn != "" {
		starts, _ := time.Parse(dateLayout, in.StartsOn)
		ends, _ := time.Parse(dateLayout, in.EndsOn)
		if ends.Before(starts) {
			return nil, shared.InvalidFields(map[string]string{"endsOn": "must not be before startsOn"})
		}
	}
	sub, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	shared.RecordFor(ctx, s.audit, s.logger, shared.AuditLog{
		Action:   "subscription.create",
		Entity:   "subscription",
		EntityID: strconv.FormatInt(sub.ID, 10),
		Meta:     map[string]any{"business": sub.BusinessID, "plan": sub.Plan},
	})
	if s.public != nil {
		s.public.InvalidatePublic(ctx)
	}
	return sub, nil
}

// Handler exposes the subscription API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   *guard.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, g *guard.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: g}
}

// MountRoutes registers /api/subscription.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.API(policy.ResourceSubscription, policy.VerbRead)).Get("/", h.list)
	r.With(h.guard.API(policy.ResourceSubscription, policy.VerbCreate)).Post("/", h.create)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := shared.ParseListFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	list, err := h.service.List(r.Context(), filter, r.URL.Query().Get("active") == "true")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []Subscription{}
	}
	httpx.OK(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeAndValidate(w, r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sub, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, sub)
}
