package products

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quinisports/quinisports/internal/diff"
	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/images"
	"github.com/quinisports/quinisports/internal/shared"
)

// PublicCache is invalidated after writes that change a public business page.
type PublicCache interface {
	InvalidatePublic(ctx context.Context)
}

// Deps are the optional collaborators of Service.
type Deps struct {
	Images *images.Janitor
	Public PublicCache
	Audit  shared.AuditRecorder
	Logger *slog.Logger
}

// Service implements product and product type management.
type Service struct {
	repo   Repository
	images *images.Janitor
	public PublicCache
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{repo: repo, images: deps.Images, public: deps.Public, audit: deps.Audit, logger: deps.Logger}
}

// List returns products ordered by name. Staff only see their business.
func (s *Service) List(ctx context.Context, f shared.ListFilter) ([]Product, error) {
	bid, err := guard.ScopeFilter(ctx, f.BusinessID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{BusinessID: bid, Search: f.Search, Limit: uint64(f.Limit), Offset: f.Offset()})
}

// Get returns one product after the scope check.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard.AuthorizeScope(ctx, &p.BusinessID); err != nil {
		return nil, err
	}
	return p, nil
}

// Create adds a product to a business.
func (s *Service) Create(ctx context.Context, in Input) (*Product, error) {
	if err := guard.AuthorizeScope(ctx, &in.BusinessID); err != nil {
		return nil, err
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}
	values := map[string]any{
		"business_id": in.BusinessID,
		"name":        strings.TrimSpace(in.Name),
		"description": strings.TrimSpace(in.Description),
		"price":       in.Price,
	}
	if in.ProductTypeID != nil {
		values["product_type_id"] = *in.ProductTypeID
	}
	if img := strings.TrimSpace(in.Image); img != "" {
		values["image"] = img
	}
	p, err := s.repo.Create(ctx, values)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "product.create", p.ID, nil)
	s.invalidate(ctx)
	return p, nil
}

// Update applies the fields of patch that differ from the stored product.
// A replaced image is deleted from the blob store first.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Product, []shared.Warning, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	changes, err := Changes(patch, original)
	if err != nil {
		return nil, nil, err
	}
	if len(changes) == 0 {
		return nil, nil, shared.ErrNoChanges
	}
	values := make(map[string]any, len(changes))
	for _, field := range diff.Keys(changes) {
		col, ok := columns[field]
		if !ok {
			return nil, nil, shared.InvalidFields(map[string]string{field: "unknown field"})
		}
		switch field {
		case "idProductType":
			values[col] = *patch.ProductTypeID
		case "name":
			values[col] = strings.TrimSpace(*patch.Name)
		case "description":
			values[col] = strings.TrimSpace(*patch.Description)
		case "image":
			values[col] = strings.TrimSpace(*patch.Image)
		case "price":
			if err := checkPrice(*patch.Price); err != nil {
				return nil, nil, err
			}
			values[col] = *patch.Price
		}
	}

	var warnings []shared.Warning
	if _, ok := changes["image"]; ok {
		warnings = s.images.Replace(ctx, original.Image, *patch.Image, warnings)
	}
	updated, err := s.repo.Update(ctx, id, values)
	if err != nil {
		return nil, warnings, err
	}
	s.record(ctx, "product.update", id, map[string]any{"fields": diff.Keys(changes)})
	s.invalidate(ctx)
	return updated, warnings, nil
}

// Changes returns the submitted fields of patch that differ from original.
// Prices are compared by value so 12.5 and 12.50 are equal.
func Changes(patch Patch, original *Product) (map[string]any, error) {
	changes, err := diff.Struct(patch, original)
	if err != nil {
		return nil, err
	}
	delete(changes, "price")
	if patch.Price != nil && !patch.Price.Equal(original.Price) {
		changes["price"] = patch.Price.String()
	}
	return changes, nil
}

// Delete removes a product and its image.
func (s *Service) Delete(ctx context.Context, id int64) ([]shared.Warning, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	warnings := s.images.Replace(ctx, p.Image, "", nil)
	s.record(ctx, "product.delete", id, nil)
	s.invalidate(ctx)
	return warnings, nil
}

// Types lists product types.
func (s *Service) Types(ctx context.Context) ([]ProductType, error) {
	return s.repo.Types(ctx)
}

// CreateType registers a product type.
func (s *Service) CreateType(ctx context.Context, in TypeInput) (*ProductType, error) {
	t, err := s.repo.CreateType(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	shared.RecordFor(ctx, s.audit, s.logger, shared.AuditLog{
		Action: "product_type.create", Entity: "product_type", EntityID: strconv.FormatInt(t.ID, 10),
	})
	return t, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.public != nil {
		s.public.InvalidatePublic(ctx)
	}
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	shared.RecordFor(ctx, s.audit, s.logger, shared.AuditLog{
		Action: action, Entity: "product", EntityID: strconv.FormatInt(id, 10), Meta: meta,
	})
}

func checkPrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return shared.InvalidFields(map[string]string{"price": "must be zero or greater"})
	}
	return nil
}
