package adminclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/quinisports/quinisports/internal/businesses"
	"github.com/quinisports/quinisports/internal/diff"
	"github.com/quinisports/quinisports/internal/prizes"
	"github.com/quinisports/quinisports/internal/products"
	"github.com/quinisports/quinisports/internal/shared"
	"github.com/quinisports/quinisports/internal/sports"
	"github.com/quinisports/quinisports/internal/subscriptions"
	"github.com/quinisports/quinisports/internal/users"
)

func fetchInto[T any, K comparable](ctx context.Context, c *Client, path string, query url.Values, col *Collection[T, K]) ([]T, error) {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var items []T
	if _, err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		col.SetError(err)
		return nil, err
	}
	col.SetData(items)
	return items, nil
}

func createInto[T any, K comparable](ctx context.Context, c *Client, path string, body any, col *Collection[T, K]) (*T, error) {
	var item T
	if _, err := c.do(ctx, http.MethodPost, path, body, &item); err != nil {
		col.SetError(err)
		return nil, err
	}
	col.Upsert(item)
	return &item, nil
}

// patchInto sends changes and applies the returned record to col. An
// empty change set returns shared.ErrNoChanges without a request.
func patchInto[T any, K comparable](ctx context.Context, c *Client, path string, changes map[string]any, col *Collection[T, K]) (*T, []shared.Warning, error) {
	if len(changes) == 0 {
		return nil, nil, shared.ErrNoChanges
	}
	var item T
	warnings, err := c.do(ctx, http.MethodPatch, path, changes, &item)
	if err != nil {
		col.SetError(err)
		return nil, nil, err
	}
	col.Upsert(item)
	return &item, warnings, nil
}

func deleteFrom[T any, K comparable](ctx context.Context, c *Client, path string, key K, col *Collection[T, K]) ([]shared.Warning, error) {
	warnings, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		col.SetError(err)
		return nil, err
	}
	col.Remove(key)
	return warnings, nil
}

func listQuery(f shared.ListFilter) url.Values {
	q := url.Values{}
	if f.Page > 1 {
		q.Set("page", fmt.Sprint(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", fmt.Sprint(f.Limit))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.BusinessID != nil {
		q.Set("businessId", fmt.Sprint(*f.BusinessID))
	}
	return q
}

func (c *Client) userStore(kind users.Kind) *Collection[users.User, string] {
	if kind == users.KindAdmin {
		return c.stores.Admins
	}
	return c.stores.Employees
}

// ListUsers fetches employees or administrators.
func (c *Client) ListUsers(ctx context.Context, kind users.Kind, f shared.ListFilter) ([]users.User, error) {
	return fetchInto(ctx, c, "/api/"+string(kind), listQuery(f), c.userStore(kind))
}

// CreateUser registers an employee or administrator.
func (c *Client) CreateUser(ctx context.Context, kind users.Kind, in users.CreateInput) (*users.User, error) {
	return createInto(ctx, c, "/api/"+string(kind), in, c.userStore(kind))
}

// UpdateUser sends the fields of form that differ from original.
func (c *Client) UpdateUser(ctx context.Context, kind users.Kind, original users.User, form users.Patch) (*users.User, error) {
	changes, err := diff.Struct(form, original)
	if err != nil {
		return nil, err
	}
	u, _, err := patchInto(ctx, c, "/api/"+string(kind)+"/"+url.PathEscape(original.ID), changes, c.userStore(kind))
	return u, err
}

// DeleteUser removes an employee or administrator.
func (c *Client) DeleteUser(ctx context.Context, kind users.Kind, id string) error {
	_, err := deleteFrom(ctx, c, "/api/"+string(kind)+"/"+url.PathEscape(id), id, c.userStore(kind))
	return err
}

// ListBusinesses fetches businesses.
func (c *Client) ListBusinesses(ctx context.Context, f shared.ListFilter) ([]businesses.Business, error) {
	return fetchInto(ctx, c, "/api/business", listQuery(f), c.stores.Businesses)
}

// CreateBusiness registers a business.
func (c *Client) CreateBusiness(ctx context.Context, in businesses.Input) (*businesses.Business, error) {
	return createInto(ctx, c, "/api/business", in, c.stores.Businesses)
}

// UpdateBusiness sends the fields of form that differ from original.
func (c *Client) UpdateBusiness(ctx context.Context, original businesses.Business, form businesses.Patch) (*businesses.Business, []shared.Warning, error) {
	changes, err := diff.Struct(form, original)
	if err != nil {
		return nil, nil, err
	}
	return patchInto(ctx, c, fmt.Sprintf("/api/business/%d", original.ID), changes, c.stores.Businesses)
}

// DeleteBusiness removes a business.
func (c *Client) DeleteBusiness(ctx context.Context, id int64) ([]shared.Warning, error) {
	return deleteFrom(ctx, c, fmt.Sprintf("/api/business/%d", id), id, c.stores.Businesses)
}

// ListProducts fetches products.
func (c *Client) ListProducts(ctx context.Context, f shared.ListFilter) ([]products.Product, error) {
	return fetchInto(ctx, c, "/api/product", listQuery(f), c.stores.Products)
}

// CreateProduct registers a product.
func (c *Client) CreateProduct(ctx context.Context, in products.Input) (*products.Product, error) {
	return createInto(ctx, c, "/api/product", in, c.stores.Products)
}

// UpdateProduct sends the fields of form that differ from original.
func (c *Client) UpdateProduct(ctx context.Context, original products.Product, form products.Patch) (*products.Product, []shared.Warning, error) {
	changes, err := products.Changes(form, &original)
	if err != nil {
		return nil, nil, err
	}
	return patchInto(ctx, c, fmt.Sprintf("/api/product/%d", original.ID), changes, c.stores.Products)
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id int64) ([]shared.Warning, error) {
	return deleteFrom(ctx, c, fmt.Sprintf("/api/product/%d", id), id, c.stores.Products)
}

// ListProductTypes fetches product types.
func (c *Client) ListProductTypes(ctx context.Context) ([]products.ProductType, error) {
	return fetchInto(ctx, c, "/api/product-type", nil, c.stores.ProductTypes)
}

// CreateProductType registers a product type.
func (c *Client) CreateProductType(ctx context.Context, name string) (*products.ProductType, error) {
	return createInto(ctx, c, "/api/product-type", products.TypeInput{Name: name}, c.stores.ProductTypes)
}

// ListPrizes fetches prizes.
func (c *Client) ListPrizes(ctx context.Context, f shared.ListFilter) ([]prizes.Prize, error) {
	return fetchInto(ctx, c, "/api/prize", listQuery(f), c.stores.Prizes)
}

// CreatePrize registers a prize.
func (c *Client) CreatePrize(ctx context.Context, in prizes.Input) (*prizes.Prize, error) {
	return createInto(ctx, c, "/api/prize", in, c.stores.Prizes)
}

// UpdatePrize sends the scalar fields of form that differ from original.
// Product links are sent whenever form carries them.
func (c *Client) UpdatePrize(ctx context.Context, original prizes.Prize, form prizes.Patch) (*prizes.Prize, []shared.Warning, error) {
	links := form.Products
	form.Products = nil
	changes, err := diff.Struct(form, original)
	if err != nil {
		return nil, nil, err
	}
	if links != nil {
		changes["products"] = *links
	}
	return patchInto(ctx, c, fmt.Sprintf("/api/prize/%d", original.ID), changes, c.stores.Prizes)
}

// DeletePrize removes a prize.
func (c *Client) DeletePrize(ctx context.Context, id int64) ([]shared.Warning, error) {
	return deleteFrom(ctx, c, fmt.Sprintf("/api/prize/%d", id), id, c.stores.Prizes)
}

// ListSports fetches sports.
func (c *Client) ListSports(ctx context.Context) ([]sports.Sport, error) {
	return fetchInto(ctx, c, "/api/sport", nil, c.stores.Sports)
}

// CreateSport registers a sport.
func (c *Client) CreateSport(ctx context.Context, in sports.SportInput) (*sports.Sport, error) {
	return createInto(ctx, c, "/api/sport", in, c.stores.Sports)
}

// UpdateSport sends the fields of form that differ from original.
func (c *Client) UpdateSport(ctx context.Context, original sports.Sport, form sports.SportPatch) (*sports.Sport, []shared.Warning, error) {
	changes, err := diff.Struct(form, original)
	if err != nil {
		return nil, nil, err
	}
	return patchInto(ctx, c, fmt.Sprintf("/api/sport/%d", original.ID), changes, c.stores.Sports)
}

// DeleteSport removes a sport.
func (c *Client) DeleteSport(ctx context.Context, id int64) ([]shared.Warning, error) {
	return deleteFrom(ctx, c, fmt.Sprintf("/api/sport/%d", id), id, c.stores.Sports)
}

// ListTournaments fetches tournaments.
func (c *Client) ListTournaments(ctx context.Context, f shared.ListFilter) ([]sports.Tournament, error) {
	return fetchInto(ctx, c, "/api/tournament", listQuery(f), c.stores.Tournaments)
}

// CreateTournament registers a tournament.
func (c *Client) CreateTournament(ctx context.Context, in sports.TournamentInput) (*sports.Tournament, error) {
	return createInto(ctx, c, "/api/tournament", in, c.stores.Tournaments)
}

// UpdateTournament sends the fields of form that differ from original.
func (c *Client) UpdateTournament(ctx context.Context, original sports.Tournament, form sports.TournamentPatch) (*sports.Tournament, []shared.Warning, error) {
	changes, err := diff.Struct(form, original)
	if err != nil {
		return nil, nil, err
	}
	return patchInto(ctx, c, fmt.Sprintf("/api/tournament/%d", original.ID), changes, c.stores.Tournaments)
}

// DeleteTournament removes a tournament.
func (c *Client) DeleteTournament(ctx context.Context, id int64) ([]shared.Warning, error) {
	return deleteFrom(ctx, c, fmt.Sprintf("/api/tournament/%d", id), id, c.stores.Tournaments)
}

// ListSubscriptions fetches subscriptions.
func (c *Client) ListSubscriptions(ctx context.Context, f shared.ListFilter) ([]subscriptions.Subscription, error) {
	return fetchInto(ctx, c, "/api/subscription", listQuery(f), c.stores.Subscriptions)
}

// CreateSubscription starts a plan period for a business.
// The previous plans of the business are marked inactive in the store, as
// the server does.
func (c *Client) CreateSubscription(ctx context.Context, in subscriptions.Input) (*subscriptions.Subscription, error) {
	sub, err := createInto(ctx, c, "/api/subscription", in, c.stores.Subscriptions)
	if err != nil {
		return nil, err
	}
	for _, s := range c.stores.Subscriptions.Data() {
		if s.BusinessID == sub.BusinessID && s.ID != sub.ID && s.Active {
			s.Active = false
			c.stores.Subscriptions.Upsert(s)
		}
	}
	return sub, nil
}
