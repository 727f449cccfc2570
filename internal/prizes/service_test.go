package prizes

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

type memRepo struct {
	prizes   map[int64]Prize
	products map[int64]Item
	owners   map[int64]int64
	nextID   int64
	updates  []map[string]any
	replaced [][]Link
}

func newMemRepo() *memRepo {
	return &memRepo{
		prizes: map[int64]Prize{
			1: {ID: 1, BusinessID: 1, Name: "Cerveza gratis", Points: 100, Products: []Item{{ProductID: 10, Name: "Imperial", Quantity: 1}}},
			2: {ID: 2, BusinessID: 2, Name: "Postre", Points: 50, Products: []Item{}},
		},
		products: map[int64]Item{10: {ProductID: 10, Name: "Imperial"}, 11: {ProductID: 11, Name: "Pilsen"}, 20: {ProductID: 20, Name: "Flan"}},
		owners:   map[int64]int64{10: 1, 11: 1, 20: 2},
		nextID:   3,
	}
}

func (m *memRepo) items(links []Link) []Item {
	out := []Item{}
	for _, l := range links {
		it := m.products[l.ProductID]
		it.Quantity = l.Quantity
		out = append(out, it)
	}
	return out
}

func (m *memRepo) List(ctx context.Context, f ListFilter) ([]Prize, error) {
	var out []Prize
	for _, p := range m.prizes {
		if f.BusinessID != nil && p.BusinessID != *f.BusinessID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Points < out[j].Points })
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (*Prize, error) {
	p, ok := m.prizes[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (m *memRepo) Create(ctx context.Context, values map[string]any, links []Link) (*Prize, error) {
	p := Prize{
		ID:         m.nextID,
		BusinessID: values["business_id"].(int64),
		Name:       values["name"].(string),
		Points:     values["points"].(int),
		Products:   m.items(links),
	}
	m.nextID++
	m.prizes[p.ID] = p
	return &p, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, values map[string]any, links []Link, replace bool) (*Prize, error) {
	p, ok := m.prizes[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	m.updates = append(m.updates, values)
	if v, ok := values["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := values["points"]; ok {
		p.Points = v.(int)
	}
	if replace {
		m.replaced = append(m.replaced, links)
		p.Products = m.items(links)
	}
	m.prizes[id] = p
	return &p, nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.prizes[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.prizes, id)
	return nil
}

func (m *memRepo) ProductOwners(ctx context.Context, ids []int64) (map[int64]int64, error) {
	out := map[int64]int64{}
	for _, id := range ids {
		if bid, ok := m.owners[id]; ok {
			out[id] = bid
		}
	}
	return out, nil
}

func adminCtx() context.Context {
	return shared.ContextWithSession(context.Background(), &shared.Session{
		ID:       "s1",
		Identity: shared.Identity{SubjectID: "admin", Role: policy.RoleSuperAdmin, Status: shared.StatusActive},
	})
}

func staffCtx(bid int64) context.Context {
	return shared.ContextWithSession(context.Background(), &shared.Session{
		ID:       "s2",
		Identity: shared.Identity{SubjectID: "bartender", Role: policy.RoleBartender, Status: shared.StatusActive, BusinessID: &bid},
	})
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCreateMergesLinks(t *testing.T) {
	svc := NewService(newMemRepo(), Deps{})
	p, err := svc.Create(adminCtx(), Input{
		BusinessID: 1, Name: "Ronda", Points: 300,
		Products: []Link{{ProductID: 11, Quantity: 2}, {ProductID: 10}, {ProductID: 11}},
	})
	require.NoError(t, err)
	require.Len(t, p.Products, 2)
	assert.Equal(t, Item{ProductID: 10, Name: "Imperial", Quantity: 1}, p.Products[0])
	assert.Equal(t, Item{ProductID: 11, Name: "Pilsen", Quantity: 3}, p.Products[1])
}

func TestCreateRejectsForeignProducts(t *testing.T) {
	svc := NewService(newMemRepo(), Deps{})
	_, err := svc.Create(adminCtx(), Input{BusinessID: 1, Name: "Combo", Points: 10, Products: []Link{{ProductID: 20}, {ProductID: 99}}})
	require.Error(t, err)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "product belongs to another business", verr.Fields["products[0]"])
	assert.Equal(t, "product not found", verr.Fields["products[1]"])
}

func TestUpdateLinksOnlyWhenChanged(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, Deps{})

	same := []Link{{ProductID: 10, Quantity: 1}}
	_, _, err := svc.Update(adminCtx(), 1, Patch{Name: strPtr("Cerveza gratis"), Products: &same})
	assert.ErrorIs(t, err, shared.ErrNoChanges)

	_, _, err = svc.Update(adminCtx(), 1, Patch{Points: intPtr(120)})
	require.NoError(t, err)
	assert.Empty(t, repo.replaced)
	assert.Equal(t, map[string]any{"points": 120}, repo.updates[0])

	more := []Link{{ProductID: 10}, {ProductID: 11}}
	p, _, err := svc.Update(adminCtx(), 1, Patch{Products: &more})
	require.NoError(t, err)
	require.Len(t, repo.replaced, 1)
	assert.Len(t, p.Products, 2)
	assert.Empty(t, repo.updates[1])
}

func TestStaffCannotReachOtherBusiness(t *testing.T) {
	svc := NewService(newMemRepo(), Deps{})
	_, err := svc.Get(staffCtx(2), 1)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	list, err := svc.List(staffCtx(2), shared.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Postre", list[0].Name)
}

func TestDeletePrize(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, Deps{})
	_, err := svc.Delete(adminCtx(), 2)
	require.NoError(t, err)
	assert.NotContains(t, repo.prizes, int64(2))
	_, err = svc.Delete(adminCtx(), 2)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBuildItems(t *testing.T) {
	sql, args, err := buildItems([]int64{1, 2}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT pp.prize_id, pp.product_id, p.name, pp.quantity FROM prize_products pp JOIN products p ON p.id = pp.product_id WHERE pp.prize_id IN ($1,$2) ORDER BY pp.prize_id, p.name ASC", sql)
	assert.Equal(t, []any{int64(1), int64(2)}, args)
}
