package prizes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

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

// Service implements prize management.
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

// List returns prizes ordered by points.
func (s *Service) List(ctx context.Context, f shared.ListFilter) ([]Prize, error) {
	bid, err := guard.ScopeFilter(ctx, f.BusinessID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{BusinessID: bid, Search: f.Search, Limit: uint64(f.Limit), Offset: f.Offset()})
}

// Get returns one prize after the scope check.
func (s *Service) Get(ctx context.Context, id int64) (*Prize, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard.AuthorizeScope(ctx, &p.BusinessID); err != nil {
		return nil, err
	}
	return p, nil
}

// Create adds a prize. Linked products must belong to the same business.
func (s *Service) Create(ctx context.Context, in Input) (*Prize, error) {
	if err := guard.AuthorizeScope(ctx, &in.BusinessID); err != nil {
		return nil, err
	}
	links := normalizeLinks(in.Products)
	if err := s.checkLinks(ctx, in.BusinessID, links); err != nil {
		return nil, err
	}
	values := map[string]any{
		"business_id": in.BusinessID,
		"name":        strings.TrimSpace(in.Name),
		"description": strings.TrimSpace(in.Description),
		"points":      in.Points,
	}
	if img := strings.TrimSpace(in.Image); img != "" {
		values["image"] = img
	}
	p, err := s.repo.Create(ctx, values, links)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "prize.create", p.ID, nil)
	s.invalidate(ctx)
	return p, nil
}

// Update applies the fields of patch that differ from the stored prize.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Prize, []shared.Warning, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	changes, err := diff.Struct(patch, original)
	if err != nil {
		return nil, nil, err
	}
	delete(changes, "products")
	var links []Link
	if patch.Products != nil {
		links = normalizeLinks(*patch.Products)
		if !sameLinks(links, linksOf(original)) {
			changes["products"] = links
		}
	}
	if len(changes) == 0 {
		return nil, nil, shared.ErrNoChanges
	}

	values := map[string]any{}
	for field := range changes {
		switch field {
		case "name":
			values[columns[field]] = strings.TrimSpace(*patch.Name)
		case "description":
			values[columns[field]] = strings.TrimSpace(*patch.Description)
		case "image":
			values[columns[field]] = strings.TrimSpace(*patch.Image)
		case "points":
			values[columns[field]] = *patch.Points
		case "products":
			if err := s.checkLinks(ctx, original.BusinessID, links); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, shared.InvalidFields(map[string]string{field: "unknown field"})
		}
	}

	var warnings []shared.Warning
	if _, ok := changes["image"]; ok {
		warnings = s.images.Replace(ctx, original.Image, *patch.Image, warnings)
	}
	_, replace := changes["products"]
	updated, err := s.repo.Update(ctx, id, values, links, replace)
	if err != nil {
		return nil, warnings, err
	}
	s.record(ctx, "prize.update", id, map[string]any{"fields": diff.Keys(changes)})
	s.invalidate(ctx)
	return updated, warnings, nil
}

// Delete removes a prize and its image.
func (s *Service) Delete(ctx context.Context, id int64) ([]shared.Warning, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	warnings := s.images.Replace(ctx, p.Image, "", nil)
	s.record(ctx, "prize.delete", id, nil)
	s.invalidate(ctx)
	return warnings, nil
}

func (s *Service) checkLinks(ctx context.Context, businessID int64, links []Link) error {
	if len(links) == 0 {
		return nil
	}
	ids := make([]int64, len(links))
	for i, l := range links {
		ids[i] = l.ProductID
	}
	owners, err := s.repo.ProductOwners(ctx, ids)
	if err != nil {
		return err
	}
	fields := map[string]string{}
	for i, l := range links {
		owner, ok := owners[l.ProductID]
		switch {
		case !ok:
			fields[fmt.Sprintf("products[%d]", i)] = "product not found"
		case owner != businessID:
			fields[fmt.Sprintf("products[%d]", i)] = "product belongs to another business"
		}
	}
	if len(fields) > 0 {
		return shared.InvalidFields(fields)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.public != nil {
		s.public.InvalidatePublic(ctx)
	}
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	shared.RecordFor(ctx, s.audit, s.logger, shared.AuditLog{
		Action: action, Entity: "prize", EntityID: strconv.FormatInt(id, 10), Meta: meta,
	})
}
