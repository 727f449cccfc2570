package products

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

func newRouter(repo *memRepo, sess *shared.Session) http.Handler {
	h := NewHandler(nil, NewService(repo, Deps{}), guard.New(guard.Config{}, nil, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sess != nil {
				req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/product", h.MountRoutes)
	r.Route("/api/product-type", h.MountTypeRoutes)
	return r
}

func serve(router http.Handler, method, path, body string) (*httptest.ResponseRecorder, httpx.Envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Quini-Access", "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var env httpx.Envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func adminSession() *shared.Session {
	return &shared.Session{ID: "s1", Identity: shared.Identity{SubjectID: "admin", Role: policy.RoleAdmin, Status: shared.StatusActive}}
}

func waiterSession(bid int64) *shared.Session {
	return &shared.Session{ID: "s2", Identity: shared.Identity{SubjectID: "waiter", Role: policy.RoleWaiter, Status: shared.StatusActive, BusinessID: &bid}}
}

func TestListIncludesType(t *testing.T) {
	rec, env := serve(newRouter(newMemRepo(), adminSession()), http.MethodGet, "/api/product?businessId=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := env.Data.([]any)
	require.Len(t, list, 1)
	item := list[0].(map[string]any)
	assert.Equal(t, "Imperial", item["name"])
	assert.Equal(t, "Bebidas", item["productType"].(map[string]any)["name"])
}

func TestStaffReadOnly(t *testing.T) {
	router := newRouter(newMemRepo(), waiterSession(1))

	rec, _ := serve(router, http.MethodGet, "/api/product", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := serve(router, http.MethodPost, "/api/product", `{"idBusiness":1,"name":"Agua","price":"500"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, httpx.CodeForbidden, env.Error.Code)

	rec, _ = serve(router, http.MethodPatch, "/api/product/1", `{"name":"Pilsen"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateProduct(t *testing.T) {
	repo := newMemRepo()
	rec, env := serve(newRouter(repo, adminSession()), http.MethodPost, "/api/product", `{"idBusiness":2,"name":"Agua","price":"500.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Agua", env.Data.(map[string]any)["name"])
	assert.Len(t, repo.products, 3)

	rec, env = serve(newRouter(repo, adminSession()), http.MethodPost, "/api/product", `{"name":"A"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Fields, "idBusiness")
	assert.Contains(t, env.Error.Fields, "name")
}

func TestPatchWithoutChanges(t *testing.T) {
	rec, env := serve(newRouter(newMemRepo(), adminSession()), http.MethodPatch, "/api/product/1", `{"price":"1500"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, shared.ErrNoChanges.Error(), env.Error.Message)
}

func TestProductTypes(t *testing.T) {
	router := newRouter(newMemRepo(), adminSession())
	rec, env := serve(router, http.MethodPost, "/api/product-type", `{"name":"Bebidas"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httpx.CodeConflict, env.Error.Code)

	rec, env = serve(router, http.MethodGet, "/api/product-type", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data.([]any), 1)
}
