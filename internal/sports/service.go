package sports

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/quinisports/quinisports/internal/diff"
	"github.com/quinisports/quinisports/internal/images"
	"github.com/quinisports/quinisports/internal/shared"
)

// Service implements sport and tournament management.
type Service struct {
	repo   Repository
	images *images.Janitor
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, janitor *images.Janitor, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, images: janitor, audit: audit, logger: logger}
}

// Sports lists sports by name.
func (s *Service) Sports(ctx context.Context, f shared.ListFilter) ([]Sport, error) {
	return s.repo.Sports(ctx, f.Search)
}

// CreateSport registers a sport.
func (s *Service) CreateSport(ctx context.Context, in SportInput) (*Sport, error) {
	values := map[string]any{"name": strings.TrimSpace(in.Name)}
	if img := strings.TrimSpace(in.Image); img != "" {
		values["image"] = img
	}
	sp, err := s.repo.CreateSport(ctx, values)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "sport.create", "sport", sp.ID, nil)
	return sp, nil
}

// UpdateSport applies the changed fields of p.
func (s *Service) UpdateSport(ctx context.Context, id int64, p SportPatch) (*Sport, []shared.Warning, error) {
	original, err := s.repo.Sport(ctx, id)
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
	values, err := stringColumns(changes, sportColumns)
	if err != nil {
		return nil, nil, err
	}
	var warnings []shared.Warning
	if _, ok := changes["image"]; ok {
		warnings = s.images.Replace(ctx, original.Image, *p.Image, warnings)
	}
	updated, err := s.repo.UpdateSport(ctx, id, values)
	if err != nil {
		return nil, warnings, err
	}
	s.record(ctx, "sport.update", "sport", id, map[string]any{"fields": diff.Keys(changes)})
	return updated, warnings, nil
}

// DeleteSport removes a sport. Its tournaments cascade.
func (s *Service) DeleteSport(ctx context.Context, id int64) ([]shared.Warning, error) {
	sp, err := s.repo.Sport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteSport(ctx, id); err != nil {
		return nil, err
	}
	s.record(ctx, "sport.delete", "sport", id, nil)
	return s.images.Replace(ctx, sp.Image, "", nil), nil
}

// Tournaments lists tournaments, optionally of one sport.
func (s *Service) Tournaments(ctx context.Context, sportID *int64, f shared.ListFilter) ([]Tournament, error) {
	return s.repo.Tournaments(ctx, TournamentFilter{SportID: sportID, Search: f.Search, Limit: uint64(f.Limit), Offset: f.Offset()})
}

// CreateTournament registers a tournament.
func (s *Service) CreateTournament(ctx context.Context, in TournamentInput) (*Tournament, error) {
	if err := checkDates(in.StartsOn, in.EndsOn); err != nil {
		return nil, err
	}
	values := map[string]any{
		"sport_id": in.SportID,
		"name":     strings.TrimSpace(in.Name),
	}
	for col, v := range map[string]string{"image": in.Image, "country": in.Country, "starts_on": in.StartsOn, "ends_on": in.EndsOn} {
		if v = strings.TrimSpace(v); v != "" {
			values[col] = v
		}
	}
	t, err := s.repo.CreateTournament(ctx, values)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "tournament.create", "tournament", t.ID, nil)
	return t, nil
}

// UpdateTournament applies the changed fields of p. Empty dates clear the
// stored value.
func (s *Service) UpdateTournament(ctx context.Context, id int64, p TournamentPatch) (*Tournament, []shared.Warning, error) {
	original, err := s.repo.Tournament(ctx, id)
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
	starts, ends := original.StartsOn, original.EndsOn
	if p.StartsOn != nil {
		starts = *p.StartsOn
	}
	if p.EndsOn != nil {
		ends = *p.EndsOn
	}
	if err := checkDates(starts, ends); err != nil {
		return nil, nil, err
	}

	values := map[string]any{}
	for field := range changes {
		col, ok := tournamentColumns[field]
		if !ok {
			return nil, nil, shared.InvalidFields(map[string]string{field: "unknown field"})
		}
		switch field {
		case "idSport":
			values[col] = *p.SportID
		case "startsOn", "endsOn", "country":
			v := strings.TrimSpace(changes[field].(string))
			if v == "" {
				values[col] = nil
			} else {
				values[col] = v
			}
		default:
			values[col] = strings.TrimSpace(changes[field].(string))
		}
	}
	var warnings []shared.Warning
	if _, ok := changes["image"]; ok {
		warnings = s.images.Replace(ctx, original.Image, *p.Image, warnings)
	}
	updated, err := s.repo.UpdateTournament(ctx, id, values)
	if err != nil {
		return nil, warnings, err
	}
	s.record(ctx, "tournament.update", "tournament", id, map[string]any{"fields": diff.Keys(changes)})
	return updated, warnings, nil
}

// DeleteTournament removes a tournament.
func (s *Service) DeleteTournament(ctx context.Context, id int64) ([]shared.Warning, error) {
	t, err := s.repo.Tournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteTournament(ctx, id); err != nil {
		return nil, err
	}
	s.record(ctx, "tournament.delete", "tournament", id, nil)
	return s.images.Replace(ctx, t.Image, "", nil), nil
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	shared.RecordFor(ctx, s.audit, s.logger, shared.AuditLog{
		Action: action, Entity: entity, EntityID: strconv.FormatInt(id, 10), Meta: meta,
	})
}

func stringColumns(changes map[string]any, columns map[string]string) (map[string]any, error) {
	values := make(map[string]any, len(changes))
	for field, raw := range changes {
		col, ok := columns[field]
		if !ok {
			return nil, shared.InvalidFields(map[string]string{field: "unknown field"})
		}
		v, _ := raw.(string)
		values[col] = strings.TrimSpace(v)
	}
	return values, nil
}

func checkDates(starts, ends string) error {
	if starts == "" || ends == "" {
		return nil
	}
	s, err := time.Parse(DateLayout, starts)
	if err != nil {
		return shared.InvalidFields(map[string]string{"startsOn": "must be a YYYY-MM-DD date"})
	}
	e, err := time.Parse(DateLayout, ends)
	if err != nil {
		return shared.InvalidFields(map[string]string{"endsOn": "must be a YYYY-MM-DD date"})
	}
	if e.Before(s) {
		return shared.InvalidFields(map[string]string{"endsOn": "must not be before startsOn"})
	}
	return nil
}
