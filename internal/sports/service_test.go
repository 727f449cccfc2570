package sports

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quinisports/quinisports/internal/images"
	"github.com/quinisports/quinisports/internal/platform/blob"
	"github.com/quinisports/quinisports/internal/shared"
)

type memRepo struct {
	sports      map[int64]Sport
	tournaments map[int64]Tournament
	nextID      int64
	updates     []map[string]any
}

func newMemRepo() *memRepo {
	return &memRepo{
		sports: map[int64]Sport{
			1: {ID: 1, Name: "Fútbol", Image: "https://blob.test/futbol.png"},
			2: {ID: 2, Name: "Baloncesto"},
		},
		tournaments: map[int64]Tournament{
			1: {ID: 1, SportID: 1, SportName: "Fútbol", Name: "Liga Promérica", Country: "Costa Rica", StartsOn: "2026-07-20", EndsOn: "2026-12-20"},
		},
		nextID: 3,
	}
}

func (m *memRepo) Sports(ctx context.Context, search string) ([]Sport, error) {
	var out []Sport
	for _, s := range m.sports {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRepo) Sport(ctx context.Context, id int64) (*Sport, error) {
	s, ok := m.sports[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (m *memRepo) CreateSport(ctx context.Context, values map[string]any) (*Sport, error) {
	for _, s := range m.sports {
		if s.Name == values["name"] {
			return nil, &shared.ConflictError{Field: "name"}
		}
	}
	s := Sport{ID: m.nextID, Name: values["name"].(string)}
	m.nextID++
	m.sports[s.ID] = s
	return &s, nil
}

func (m *memRepo) UpdateSport(ctx context.Context, id int64, values map[string]any) (*Sport, error) {
	s := m.sports[id]
	m.updates = append(m.updates, values)
	if v, ok := values["name"]; ok {
		s.Name = v.(string)
	}
	if v, ok := values["image"]; ok {
		s.Image = v.(string)
	}
	m.sports[id] = s
	return &s, nil
}

func (m *memRepo) DeleteSport(ctx context.Context, id int64) error {
	delete(m.sports, id)
	for tid, t := range m.tournaments {
		if t.SportID == id {
			delete(m.tournaments, tid)
		}
	}
	return nil
}

func (m *memRepo) Tournaments(ctx context.Context, f TournamentFilter) ([]Tournament, error) {
	var out []Tournament
	for _, t := range m.tournaments {
		if f.SportID != nil && t.SportID != *f.SportID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memRepo) Tournament(ctx context.Context, id int64) (*Tournament, error) {
	t, ok := m.tournaments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &t, nil
}

func (m *memRepo) CreateTournament(ctx context.Context, values map[string]any) (*Tournament, error) {
	t := Tournament{ID: m.nextID, SportID: values["sport_id"].(int64), Name: values["name"].(string)}
	if v, ok := values["starts_on"]; ok {
		t.StartsOn = v.(string)
	}
	m.nextID++
	m.tournaments[t.ID] = t
	return &t, nil
}

func (m *memRepo) UpdateTournament(ctx context.Context, id int64, values map[string]any) (*Tournament, error) {
	t := m.tournaments[id]
	m.updates = append(m.updates, values)
	for col, v := range values {
		s, _ := v.(string)
		switch col {
		case "name":
			t.Name = s
		case "ends_on":
			t.EndsOn = s
		case "country":
			t.Country = s
		}
	}
	m.tournaments[id] = t
	return &t, nil
}

func (m *memRepo) DeleteTournament(ctx context.Context, id int64) error {
	if _, ok := m.tournaments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.tournaments, id)
	return nil
}

type fakeBlobs struct{ deleted []string }

func (f *fakeBlobs) Put(ctx context.Context, name, contentType string, body []byte) (*blob.Object, error) {
	return &blob.Object{URL: "https://blob.test/" + name}, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func strPtr(s string) *string { return &s }

func TestSportNamesUnique(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil)
	_, err := svc.CreateSport(context.Background(), SportInput{Name: "Fútbol"})
	assert.ErrorIs(t, err, shared.ErrConflict)

	sp, err := svc.CreateSport(context.Background(), SportInput{Name: " Tenis "})
	require.NoError(t, err)
	assert.Equal(t, "Tenis", sp.Name)
}

func TestUpdateSportImage(t *testing.T) {
	repo := newMemRepo()
	blobs := &fakeBlobs{}
	svc := NewService(repo, images.NewJanitor(blobs, nil, nil), nil, nil)

	_, _, err := svc.UpdateSport(context.Background(), 1, SportPatch{Name: strPtr("Fútbol")})
	assert.ErrorIs(t, err, shared.ErrNoChanges)

	sp, warnings, err := svc.UpdateSport(context.Background(), 1, SportPatch{Image: strPtr("https://blob.test/balon.png")})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "https://blob.test/balon.png", sp.Image)
	assert.Equal(t, []string{"https://blob.test/futbol.png"}, blobs.deleted)
}

func TestDeleteSportCascades(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil, nil)
	_, err := svc.DeleteSport(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, repo.tournaments)

	_, err = svc.DeleteSport(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTournamentDates(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil)
	_, err := svc.CreateTournament(context.Background(), TournamentInput{SportID: 1, Name: "Copa", StartsOn: "2026-05-01", EndsOn: "2026-04-01"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "endsOn")

	_, _, err = svc.UpdateTournament(context.Background(), 1, TournamentPatch{EndsOn: strPtr("2026-01-01")})
	assert.ErrorIs(t, err, shared.ErrValidation)

	tour, err := svc.CreateTournament(context.Background(), TournamentInput{SportID: 2, Name: "NBA", StartsOn: "2026-10-20"})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", tour.StartsOn)
}

func TestUpdateTournamentClearsDate(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil, nil)

	tour, _, err := svc.UpdateTournament(context.Background(), 1, TournamentPatch{Name: strPtr("Liga Promérica"), EndsOn: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, tour.EndsOn)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, map[string]any{"ends_on": nil}, repo.updates[0])
}

func TestBuildTournamentList(t *testing.T) {
	sport := int64(3)
	sql, args, err := buildTournamentList(TournamentFilter{SportID: &sport, Limit: 10}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT t.id, t.sport_id, s.name, t.name, COALESCE(t.image, ''), COALESCE(t.country, ''), t.starts_on, t.ends_on, t.created_at FROM tournaments t JOIN sports s ON s.id = t.sport_id WHERE t.sport_id = $1 ORDER BY t.starts_on DESC NULLS LAST, t.name ASC LIMIT 10", sql)
	assert.Equal(t, []any{int64(3)}, args)
}
