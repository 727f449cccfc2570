package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/images"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
	"github.com/quinisports/quinisports/internal/view"
	_ "github.com/quinisports/quinisports/testing"
)

type routerFixture struct {
	handler  http.Handler
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	redis    *miniredis.Miniredis
	client   *redis.Client
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "qs_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	g := guard.New(guard.Config{GateHeader: "Quini-Access", GateOpenValue: "true"}, nil, nil)

	handler := NewRouter(RouterParams{
		Config:         &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second},
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Guard:          g,
		ImageHandler:   images.NewHandler(nil, nil, g),
	})
	return &routerFixture{handler: handler, sessions: sessions, csrf: csrf, redis: mr, client: client}
}

func (f *routerFixture) login(t *testing.T, role policy.Role, businessID *int64) (*http.Cookie, *shared.Session) {
	t.Helper()
	rec := httptest.NewRecorder()
	sess, err := f.sessions.Issue(context.Background(), rec, shared.Identity{
		SubjectID:   "user-" + string(role),
		DisplayName: "Tester",
		Role:        role,
		Email:       string(role) + "@quini.test",
		Status:      shared.StatusActive,
		BusinessID:  businessID,
	})
	require.NoError(t, err)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], sess
}

func (f *routerFixture) do(method, path string, open bool, cookie *http.Cookie, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if open {
		req.Header.Set("Quini-Access", "true")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthzIgnoresGate(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(http.MethodGet, "/healthz", false, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestClosedGateSendsEveryoneToMaintenance(t *testing.T) {
	f := newRouterFixture(t)
	cookie, _ := f.login(t, policy.RoleSuperAdmin, nil)

	page := f.do(http.MethodGet, "/qs-admin", false, cookie, nil)
	assert.Equal(t, http.StatusSeeOther, page.Code)
	assert.Equal(t, guard.DefaultMaintenancePath, page.Header().Get("Location"))

	api := f.do(http.MethodPost, "/api/images/upload?filename=a", false, cookie, nil)
	assert.Equal(t, http.StatusServiceUnavailable, api.Code)
	assert.Contains(t, api.Body.String(), `"code":"MAINTENANCE_CLOSED"`)

	maintenance := f.do(http.MethodGet, guard.DefaultMaintenancePath, false, nil, nil)
	assert.Equal(t, http.StatusOK, maintenance.Code)
	assert.Contains(t, maintenance.Body.String(), "mantenimiento")
}

func TestClosedGateLeavesSessionCookieAlone(t *testing.T) {
	f := newRouterFixture(t)
	// Issued with a one minute lifetime, well inside the router's renewal window.
	short := shared.NewSessionManager(f.client, "qs_session", "session-secret", time.Minute, false)
	rec := httptest.NewRecorder()
	_, err := short.Issue(context.Background(), rec, shared.Identity{
		SubjectID: "user-root",
		Role:      policy.RoleSuperAdmin,
		Email:     "root@quini.test",
		Status:    shared.StatusActive,
	})
	require.NoError(t, err)
	cookie := rec.Result().Cookies()[0]

	closed := f.do(http.MethodGet, "/qs-admin", false, cookie, nil)
	assert.Equal(t, http.StatusSeeOther, closed.Code)
	assert.Equal(t, guard.DefaultMaintenancePath, closed.Header().Get("Location"))
	assert.Empty(t, closed.Result().Cookies())

	open := f.do(http.MethodGet, "/qs-admin", true, cookie, nil)
	require.Equal(t, http.StatusOK, open.Code)
	var renewed bool
	for _, c := range open.Result().Cookies() {
		if c.Name == "qs_session" {
			renewed = true
		}
	}
	assert.True(t, renewed)

	f.redis.Close()
	down := f.do(http.MethodGet, "/qs-admin", false, cookie, nil)
	assert.Equal(t, http.StatusSeeOther, down.Code)
	assert.Equal(t, guard.DefaultMaintenancePath, down.Header().Get("Location"))
	assert.Empty(t, down.Result().Cookies())
}

func TestAnonymousAdminArea(t *testing.T) {
	f := newRouterFixture(t)

	page := f.do(http.MethodGet, "/qs-admin/productos", true, nil, nil)
	assert.Equal(t, http.StatusSeeOther, page.Code)
	assert.True(t, strings.HasPrefix(page.Header().Get("Location"), guard.DefaultLoginPath+"?next="))

	api := f.do(http.MethodPost, "/api/images/upload?filename=a", true, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, api.Code)
	assert.Contains(t, api.Body.String(), `"isError":true`)
	assert.Contains(t, api.Body.String(), `"code":"UNAUTHENTICATED"`)
}

func TestClientSessionLeavesAdminArea(t *testing.T) {
	f := newRouterFixture(t)
	cookie, _ := f.login(t, policy.RoleClient, nil)

	rec := f.do(http.MethodGet, "/qs-admin", true, cookie, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, guard.DefaultPublicPath, rec.Header().Get("Location"))
}

func TestAdminSections(t *testing.T) {
	f := newRouterFixture(t)
	admin, _ := f.login(t, policy.RoleAdmin, nil)

	rec := f.do(http.MethodGet, "/qs-admin/comercios", true, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-endpoint="/api/business"`)
	assert.Contains(t, body, "Administradores")

	missing := f.do(http.MethodGet, "/qs-admin/nope", true, admin, nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	bid := int64(4)
	waiter, _ := f.login(t, policy.RoleWaiter, &bid)
	dashboard := f.do(http.MethodGet, "/qs-admin", true, waiter, nil)
	require.Equal(t, http.StatusOK, dashboard.Code)
	assert.Contains(t, dashboard.Body.String(), "Productos")
	assert.NotContains(t, dashboard.Body.String(), "Administradores")

	denied := f.do(http.MethodGet, "/qs-admin/comercios", true, waiter, nil)
	assert.Equal(t, http.StatusForbidden, denied.Code)
}

func TestCSRFRequiredForSessionMutations(t *testing.T) {
	f := newRouterFixture(t)
	cookie, sess := f.login(t, policy.RoleAdmin, nil)

	rec := f.do(http.MethodDelete, "/api/images/upload?fileurl=https://blob.test/a.png", true, cookie, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid csrf token")

	closed := f.do(http.MethodDelete, "/api/images/upload?fileurl=https://blob.test/a.png", false, cookie, nil)
	assert.Equal(t, http.StatusServiceUnavailable, closed.Code)

	token, err := f.csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	accepted := f.do(http.MethodPost, "/api/images/upload", true, cookie, map[string]string{shared.CSRFHeader: token})
	assert.Equal(t, http.StatusBadRequest, accepted.Code)
	assert.Contains(t, accepted.Body.String(), `"filename"`)
}

func TestRevocationStoreFailureIsAnonymous(t *testing.T) {
	f := newRouterFixture(t)
	cookie, _ := f.login(t, policy.RoleAdmin, nil)
	f.redis.Close()

	rec := f.do(http.MethodGet, "/qs-admin", true, cookie, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), guard.DefaultLoginPath))
}

func TestStaticAssetsCached(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(http.MethodGet, "/static/css/app.css", false, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}
