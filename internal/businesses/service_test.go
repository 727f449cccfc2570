package businesses

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quinisports/quinisports/internal/images"
	"github.com/quinisports/quinisports/internal/platform/blob"
	"github.com/quinisports/quinisports/internal/platform/cache"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

type memRepo struct {
	businesses map[int64]Business
	schedules  map[int64][]Day
	menu       map[int64][]MenuItem
	prizes     map[int64][]PrizeRow
	nextID     int64
	updates    []map[string]any
	loads      int
}

func newMemRepo() *memRepo {
	return &memRepo{
		businesses: map[int64]Business{
			1: {ID: 1, Name: "Bar Central", Type: "bar", Description: "Cervezas", CoverImageURL: "https://blob.test/old.png", Country: "CR", Address: "Avenida central 100"},
			2: {ID: 2, Name: "Soda Tica", Type: "soda", Country: "CR"},
		},
		schedules: map[int64][]Day{},
		menu:      map[int64][]MenuItem{},
		prizes:    map[int64][]PrizeRow{},
		nextID:    3,
	}
}

func (m *memRepo) List(ctx context.Context, f ListFilter) ([]Business, error) {
	var out []Business
	for _, b := range m.businesses {
		if f.ID != nil && b.ID != *f.ID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (*Business, error) {
	m.loads++
	b, ok := m.businesses[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

func (m *memRepo) Create(ctx context.Context, values map[string]any) (*Business, error) {
	b := Business{ID: m.nextID}
	m.nextID++
	apply(&b, values)
	m.businesses[b.ID] = b
	return &b, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, values map[string]any) (*Business, error) {
	b, ok := m.businesses[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	m.updates = append(m.updates, values)
	apply(&b, values)
	m.businesses[id] = b
	return &b, nil
}

func apply(b *Business, values map[string]any) {
	for col, v := range values {
		s, _ := v.(string)
		switch col {
		case "name":
			b.Name = s
		case "type":
			b.Type = s
		case "cover_image_url":
			b.CoverImageURL = s
		case "country":
			b.Country = s
		case "address":
			b.Address = s
		case "description":
			b.Description = s
		}
	}
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.businesses[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.businesses, id)
	return nil
}

func (m *memRepo) Schedule(ctx context.Context, id int64) ([]Day, error) {
	return m.schedules[id], nil
}

func (m *memRepo) ReplaceSchedule(ctx context.Context, id int64, days []Day) error {
	m.schedules[id] = days
	return nil
}

func (m *memRepo) Menu(ctx context.Context, id int64) ([]MenuItem, error) {
	return m.menu[id], nil
}

func (m *memRepo) PrizeRows(ctx context.Context, id int64) ([]PrizeRow, error) {
	return m.prizes[id], nil
}

func (m *memRepo) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	var out []DirectoryEntry
	for _, b := range m.businesses {
		out = append(out, DirectoryEntry{ID: b.ID, Name: b.Name, Slug: b.Slug(), Type: b.Type})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeBlobs struct {
	deleted []string
	err     error
}

func (f *fakeBlobs) Put(ctx context.Context, name, contentType string, body []byte) (*blob.Object, error) {
	return &blob.Object{URL: "https://blob.test/" + name}, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, url string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeQueue struct {
	urls []string
}

func (q *fakeQueue) EnqueueBlobCleanup(ctx context.Context, url string) error {
	q.urls = append(q.urls, url)
	return nil
}

func adminCtx() context.Context {
	return shared.ContextWithSession(context.Background(), &shared.Session{
		ID:       "s1",
		Identity: shared.Identity{SubjectID: "admin", Role: policy.RoleAdmin, Status: shared.StatusActive},
	})
}

func staffCtx(bid int64) context.Context {
	return shared.ContextWithSession(context.Background(), &shared.Session{
		ID:       "s2",
		Identity: shared.Identity{SubjectID: "cashier", Role: policy.RoleCashier, Status: shared.StatusActive, BusinessID: &bid},
	})
}

func strPtr(s string) *string { return &s }

func TestUpdateReplacesCoverImage(t *testing.T) {
	repo := newMemRepo()
	blobs := &fakeBlobs{}
	svc := NewService(repo, Deps{Images: images.NewJanitor(blobs, &fakeQueue{}, nil)})

	b, warnings, err := svc.Update(adminCtx(), 1, Patch{Name: strPtr("Bar Central"), CoverImageURL: strPtr("https://blob.test/new.png")})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "https://blob.test/new.png", b.CoverImageURL)
	assert.Equal(t, []string{"https://blob.test/old.png"}, blobs.deleted)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, map[string]any{"cover_image_url": "https://blob.test/new.png"}, repo.updates[0])
}

func TestCleanupFailureIsWarning(t *testing.T) {
	repo := newMemRepo()
	queue := &fakeQueue{}
	svc := NewService(repo, Deps{Images: images.NewJanitor(&fakeBlobs{err: errors.New("blob down")}, queue, nil)})

	b, warnings, err := svc.Update(adminCtx(), 1, Patch{CoverImageURL: strPtr("https://blob.test/new.png")})
	require.NoError(t, err)
	assert.Equal(t, "https://blob.test/new.png", b.CoverImageURL)
	require.Len(t, warnings, 1)
	assert.Equal(t, shared.WarningImageCleanup, warnings[0].Code)
	assert.Equal(t, []string{"https://blob.test/old.png"}, queue.urls)
}

func TestUpdateWithoutChanges(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, Deps{})
	_, _, err := svc.Update(adminCtx(), 1, Patch{Name: strPtr("Bar Central"), Type: strPtr("bar")})
	assert.ErrorIs(t, err, shared.ErrNoChanges)
	assert.Empty(t, repo.updates)
}

func TestReplaceOnlyWritesDifferences(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, Deps{Images: images.NewJanitor(&fakeBlobs{}, nil, nil)})
	in := Input{
		Name: "Bar Central", Type: "sports_bar", Description: "Cervezas",
		CoverImageURL: "https://blob.test/old.png", Address: "Avenida central 100",
	}
	b, _, err := svc.Replace(adminCtx(), 1, in)
	require.NoError(t, err)
	assert.Equal(t, "sports_bar", b.Type)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, "sports_bar", repo.updates[0]["type"])
	assert.NotContains(t, repo.updates[0], "name")
	assert.NotContains(t, repo.updates[0], "cover_image_url")
}

func TestStaffScopedToOwnBusiness(t *testing.T) {
	svc := NewService(newMemRepo(), Deps{})

	_, err := svc.Get(staffCtx(2), 1)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	b, err := svc.Get(staffCtx(2), 2)
	require.NoError(t, err)
	assert.Equal(t, "Soda Tica", b.Name)

	list, err := svc.List(staffCtx(2), shared.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
}

func TestCreateDefaultsCountryAndNullsEmail(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, Deps{})
	b, err := svc.Create(adminCtx(), Input{Name: "Nuevo", Type: "bar", Description: "x", CoverImageURL: "https://blob.test/c.png", Address: "Calle 1 avenida 2"})
	require.NoError(t, err)
	assert.Equal(t, "CR", b.Country)

	values, err := columnValues(PatchFromInput(Input{Name: "x"}), nil)
	require.NoError(t, err)
	assert.Nil(t, values["email"])
	assert.Contains(t, values, "email")
}

func TestScheduleValidation(t *testing.T) {
	svc := NewService(newMemRepo(), Deps{})
	open, closeAt := 600, 1380
	days, err := svc.ReplaceSchedule(adminCtx(), 1, ScheduleInput{Days: []Day{
		{Weekday: 5, Opening: &open, Closing: &closeAt},
		{Weekday: 1, Opening: &open, Closing: &closeAt},
	}})
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.True(t, days[0].Closed())
	assert.False(t, days[1].Closed())
	assert.Equal(t, "Lunes", days[1].Label())

	_, err = svc.ReplaceSchedule(adminCtx(), 1, ScheduleInput{Days: []Day{
		{Weekday: 1, Opening: &open},
		{Weekday: 2, Opening: &open, Closing: &closeAt},
		{Weekday: 2, Opening: &open, Closing: &closeAt},
	}})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "days[0]")
	assert.Contains(t, verr.Fields, "days[2]")
}

func TestFullInfoCachedUntilWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo()
	repo.menu[1] = []MenuItem{{ID: 1, Name: "Imperial", TypeName: "Cervezas", Price: decimal.RequireFromString("1500")}}
	repo.prizes[1] = []PrizeRow{{PrizeID: 9, Name: "Cubeta", Points: 500}}
	svc := NewService(repo, Deps{Public: cache.NewVersioned(client, "public", time.Minute), Images: images.NewJanitor(&fakeBlobs{}, nil, nil)})

	info, err := svc.FullInfo(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "bar-central-1", info.Slug)
	require.Len(t, info.Menu, 1)
	assert.True(t, info.Menu[0].Items[0].Price.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "500 Pts | Cubeta", info.Prizes[0].Key)
	assert.Len(t, info.Schedule, 7)

	loads := repo.loads
	_, err = svc.FullInfo(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, loads, repo.loads)

	_, _, err = svc.Update(adminCtx(), 1, Patch{Name: strPtr("Bar Central Dos")})
	require.NoError(t, err)
	info, err = svc.FullInfo(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "bar-central-dos-1", info.Slug)
}

func TestDeleteRemovesImages(t *testing.T) {
	repo := newMemRepo()
	blobs := &fakeBlobs{}
	svc := NewService(repo, Deps{Images: images.NewJanitor(blobs, nil, nil)})
	warnings, err := svc.Delete(adminCtx(), 1)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"https://blob.test/old.png"}, blobs.deleted)
	_, err = svc.Get(adminCtx(), 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
