package businesses

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/quinisports/quinisports/internal/diff"
	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/images"
	"github.com/quinisports/quinisports/internal/platform/cache"
	"github.com/quinisports/quinisports/internal/shared"
)

// Service implements business management and the public directory.
type Service struct {
	repo   Repository
	images *images.Janitor
	public *cache.Versioned
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// Deps are the optional collaborators of Service.
type Deps struct {
	Images *images.Janitor
	Public *cache.Versioned
	Audit  shared.AuditRecorder
	Logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		images: deps.Images,
		public: deps.Public,
		audit:  deps.Audit,
		logger: deps.Logger,
	}
}

// List returns businesses visible to the caller. Staff only see their own.
func (s *Service) List(ctx context.Context, f shared.ListFilter) ([]Business, error) {
	id, err := guard.ScopeFilter(ctx, f.BusinessID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{ID: id, Search: f.Search, Limit: uint64(f.Limit), Offset: f.Offset()})
}

// Get returns one business after the scope check.
func (s *Service) Get(ctx context.Context, id int64) (*Business, error) {
	if err := guard.AuthorizeScope(ctx, &id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create registers a business.
func (s *Service) Create(ctx context.Context, in Input) (*Business, error) {
	values, err := columnValues(PatchFromInput(in), nil)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.Create(ctx, values)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "business.create", b.ID, nil)
	s.bump(ctx)
	return b, nil
}

// Replace applies a full representation with PUT semantics. Unchanged
// fields are not written.
func (s *Service) Replace(ctx context.Context, id int64, in Input) (*Business, []shared.Warning, error) {
	return s.Update(ctx, id, PatchFromInput(in))
}

// Update applies the fields of p that differ from the stored business.
// Replaced images are deleted from the blob store before the new URLs are
// written; a failed deletion is reported as a warning and retried in the
// background.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (*Business, []shared.Warning, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	changes, err := diff.Struct(p, original)
	if err != nil {
		return nil, nil, err
	}
	if len(changes) == 0 {
		return nil, nil, shared.ErrNoChanges
	}
	values, err := columnValues(p, changes)
	if err != nil {
		return nil, nil, err
	}

	var warnings []shared.Warning
	for _, field := range imageFields {
		if _, ok := changes[field]; ok {
			warnings = s.images.Replace(ctx, imageURL(original, field), "", warnings)
		}
	}

	updated, err := s.repo.Update(ctx, id, values)
	if err != nil {
		return nil, warnings, err
	}
	s.record(ctx, "business.update", id, map[string]any{"fields": diff.Keys(changes)})
	s.bump(ctx)
	return updated, warnings, nil
}

// Delete removes a business and its images.
func (s *Service) Delete(ctx context.Context, id int64) ([]shared.Warning, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	var warnings []shared.Warning
	for _, field := range imageFields {
		warnings = s.images.Replace(ctx, imageURL(b, field), "", warnings)
	}
	s.record(ctx, "business.delete", id, nil)
	s.bump(ctx)
	return warnings, nil
}

// Schedule returns the seven weekdays of a business. Days never stored are
// reported closed.
func (s *Service) Schedule(ctx context.Context, id int64) ([]Day, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	stored, err := s.repo.Schedule(ctx, id)
	if err != nil {
		return nil, err
	}
	return fullWeek(stored), nil
}

// ReplaceSchedule stores the weekly schedule of a business.
func (s *Service) ReplaceSchedule(ctx context.Context, id int64, in ScheduleInput) ([]Day, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	days, err := normalizeSchedule(in.Days)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceSchedule(ctx, id, days); err != nil {
		return nil, err
	}
	s.record(ctx, "business.schedule", id, nil)
	s.bump(ctx)
	return fullWeek(days), nil
}

// FullInfo assembles the public page of a business.
func (s *Service) FullInfo(ctx context.Context, id int64) (*FullInfo, error) {
	key, err := s.public.BuildKey(ctx, "business", strconv.FormatInt(id, 10))
	if err != nil {
		s.logger.Warn("public cache key", slog.Any("error", err))
		return s.loadFullInfo(ctx, id)
	}
	var info FullInfo
	err = s.public.FetchJSON(ctx, key, &info, func(ctx context.Context) (any, error) {
		return s.loadFullInfo(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *Service) loadFullInfo(ctx context.Context, id int64) (*FullInfo, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule, err := s.repo.Schedule(ctx, id)
	if err != nil {
		return nil, err
	}
	menu, err := s.repo.Menu(ctx, id)
	if err != nil {
		return nil, err
	}
	prizes, err := s.repo.PrizeRows(ctx, id)
	if err != nil {
		return nil, err
	}
	return &FullInfo{
		Business: *b,
		Slug:     b.Slug(),
		Schedule: fullWeek(schedule),
		Menu:     GroupMenu(menu),
		Prizes:   GroupPrizes(prizes),
	}, nil
}

// Directory lists every business for the public site.
func (s *Service) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	key, err := s.public.BuildKey(ctx, "directory")
	if err != nil {
		s.logger.Warn("public cache key", slog.Any("error", err))
		return s.repo.Directory(ctx)
	}
	var out []DirectoryEntry
	err = s.public.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.Directory(ctx)
	})
	return out, err
}

// InvalidatePublic drops cached public pages. Catalog packages call it
// after writes that change what a business page shows.
func (s *Service) InvalidatePublic(ctx context.Context) {
	s.bump(ctx)
}

func (s *Service) bump(ctx context.Context) {
	if err := s.public.Bump(ctx); err != nil {
		s.logger.Warn("invalidate public cache", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := ""
	if sess := shared.SessionFromContext(ctx); sess != nil {
		actor = sess.SubjectID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "business",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

// columnValues converts the submitted fields of p into column values. When
// only is non-nil, fields outside it are skipped.
func columnValues(p Patch, only map[string]any) (map[string]any, error) {
	form, err := diff.ToMap(p)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(form))
	for field, raw := range form {
		if only != nil {
			if _, ok := only[field]; !ok {
				continue
			}
		}
		col, ok := columns[field]
		if !ok {
			return nil, shared.InvalidFields(map[string]string{field: "unknown field"})
		}
		v, _ := raw.(string)
		v = strings.TrimSpace(v)
		switch {
		case field == "email" && v == "":
			values[col] = nil
		case field == "email":
			values[col] = strings.ToLower(v)
		case field == "country":
			values[col] = strings.ToUpper(v)
		default:
			values[col] = v
		}
	}
	return values, nil
}

func imageURL(b *Business, field string) string {
	switch field {
	case "coverImageUrl":
		return b.CoverImageURL
	case "logoUrl":
		return b.LogoURL
	case "photoUrl":
		return b.PhotoURL
	}
	return ""
}

func normalizeSchedule(in []Day) ([]Day, error) {
	seen := map[int]bool{}
	fields := map[string]string{}
	out := make([]Day, 0, len(in))
	for i, d := range in {
		key := fmt.Sprintf("days[%d]", i)
		if seen[d.Weekday] {
			fields[key] = "duplicate weekday"
			continue
		}
		seen[d.Weekday] = true
		if (d.Opening == nil) != (d.Closing == nil) {
			fields[key] = "opening and closing go together"
			continue
		}
		out = append(out, d)
	}
	if len(fields) > 0 {
		return nil, shared.InvalidFields(fields)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out, nil
}

func fullWeek(stored []Day) []Day {
	week := make([]Day, 7)
	for i := range week {
		week[i] = Day{Weekday: i}
	}
	for _, d := range stored {
		if d.Weekday >= 0 && d.Weekday < 7 {
			week[d.Weekday] = d
		}
	}
	return week
}
