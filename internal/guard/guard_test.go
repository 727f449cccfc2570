package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quinisports/quinisports/internal/observability"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

func newGuard() *Guard {
	return New(Config{GateHeader: "Quini-Access", GateOpenValue: "true"}, nil, observability.NewMetrics())
}

func session(role policy.Role, business *int64) *shared.Session {
	return &shared.Session{
		ID: "sess",
		Identity: shared.Identity{
			SubjectID:  "user",
			Role:       role,
			Status:     shared.StatusActive,
			BusinessID: business,
		},
	}
}

func bid(v int64) *int64 { return &v }

func request(method, target string, open bool, sess *shared.Session) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if open {
		req.Header.Set("Quini-Access", "true")
	}
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	return req
}

type spyHandler struct{ calls int }

func (s *spyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls++
	w.WriteHeader(http.StatusNoContent)
}

func envelopeCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.IsError)
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func TestClosedGateWinsOverEverySession(t *testing.T) {
	g := newGuard()
	sessions := []*shared.Session{
		nil,
		session(policy.RoleClient, nil),
		session(policy.RoleAdmin, nil),
		session(policy.RoleSuperAdmin, nil),
		session(policy.RoleWaiter, bid(1)),
	}
	for _, sess := range sessions {
		spy := &spyHandler{}
		rec := httptest.NewRecorder()
		g.Page(policy.ResourceBusiness, policy.VerbRead)(spy).ServeHTTP(rec, request(http.MethodGet, "/qs-admin/comercios", false, sess))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, DefaultMaintenancePath, rec.Header().Get("Location"))
		assert.Zero(t, spy.calls)

		spy = &spyHandler{}
		rec = httptest.NewRecorder()
		g.API(policy.ResourceBusiness, policy.VerbRead)(spy).ServeHTTP(rec, request(http.MethodGet, "/api/business", false, sess))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, httpx.CodeMaintenanceClosed, envelopeCode(t, rec))
		assert.Zero(t, spy.calls)
	}
}

func TestGateValueMustMatch(t *testing.T) {
	g := newGuard()
	req := httptest.NewRequest(http.MethodGet, "/qs-admin", nil)
	req.Header.Set("Quini-Access", "false")
	assert.False(t, g.GateOpen(req))
	req.Header.Set("Quini-Access", " TRUE ")
	assert.True(t, g.GateOpen(req))

	disabled := New(Config{GateDisabled: true}, nil, nil)
	assert.True(t, disabled.GateOpen(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestAnonymousPageRedirectsToLogin(t *testing.T) {
	g := newGuard()
	spy := &spyHandler{}
	rec := httptest.NewRecorder()
	g.Page(policy.ResourceEmployee, policy.VerbRead)(spy).ServeHTTP(rec, request(http.MethodGet, "/qs-admin/empleados", true, nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/qs-admin/auth/login?next=%2Fqs-admin%2Fempleados", rec.Header().Get("Location"))
	assert.Zero(t, spy.calls)
}

func TestAnonymousAPIGets401Envelope(t *testing.T) {
	g := newGuard()
	spy := &spyHandler{}
	rec := httptest.NewRecorder()
	g.API(policy.ResourceEmployee, policy.VerbCreate)(spy).ServeHTTP(rec, request(http.MethodPost, "/api/employee", true, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httpx.CodeUnauthenticated, envelopeCode(t, rec))
	assert.Zero(t, spy.calls)
}

func TestClientRoleAlwaysLeavesAdminArea(t *testing.T) {
	g := newGuard()
	client := session(policy.RoleClient, bid(3))
	for _, res := range []policy.Resource{"", policy.ResourceEmployee, policy.ResourceBusiness, policy.ResourceOrder, "unknown"} {
		for _, verb := range []policy.Verb{policy.VerbRead, policy.VerbDelete} {
			spy := &spyHandler{}
			rec := httptest.NewRecorder()
			g.Page(res, verb)(spy).ServeHTTP(rec, request(http.MethodGet, "/qs-admin", true, client))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
			assert.Zero(t, spy.calls)

			rec = httptest.NewRecorder()
			g.API(res, verb)(spy).ServeHTTP(rec, request(http.MethodGet, "/api/x", true, client))
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Zero(t, spy.calls)
		}
	}
}

func TestPolicyDenialIsForbidden(t *testing.T) {
	g := newGuard()
	spy := &spyHandler{}
	rec := httptest.NewRecorder()
	g.API(policy.ResourceBusiness, policy.VerbCreate)(spy).ServeHTTP(rec, request(http.MethodPost, "/api/business", true, session(policy.RoleCashier, bid(1))))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, httpx.CodeForbidden, envelopeCode(t, rec))
	assert.Zero(t, spy.calls)
}

func TestUnknownRoleFailsClosed(t *testing.T) {
	g := newGuard()
	spy := &spyHandler{}
	rec := httptest.NewRecorder()
	g.API("", "")(spy).ServeHTTP(rec, request(http.MethodGet, "/api/session", true, session("root", nil)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, spy.calls)
}

func TestSuspendedSessionForbidden(t *testing.T) {
	g := newGuard()
	sess := session(policy.RoleAdmin, nil)
	sess.Status = shared.StatusSuspended
	assert.Equal(t, Forbidden, g.Decide(request(http.MethodGet, "/", true, nil), sess, policy.ResourceBusiness, policy.VerbRead))
}

func TestStaffWithoutBusinessForbidden(t *testing.T) {
	g := newGuard()
	assert.Equal(t, Forbidden, g.Decide(request(http.MethodGet, "/", true, nil), session(policy.RoleWaiter, nil), policy.ResourceEmployee, policy.VerbRead))
}

func TestAllowedRunsHandler(t *testing.T) {
	g := newGuard()
	cases := []struct {
		sess *shared.Session
		res  policy.Resource
		verb policy.Verb
	}{
		{session(policy.RoleAdmin, nil), policy.ResourceBusiness, policy.VerbCreate},
		{session(policy.RoleSuperAdmin, nil), policy.ResourceAdmin, policy.VerbDelete},
		{session(policy.RoleWaiter, bid(2)), policy.ResourceEmployee, policy.VerbRead},
		{session(policy.RoleBartender, bid(2)), policy.ResourceProduct, policy.VerbRead},
		{session(policy.RoleCashier, bid(2)), "", ""},
	}
	for _, tc := range cases {
		spy := &spyHandler{}
		rec := httptest.NewRecorder()
		g.API(tc.res, tc.verb)(spy).ServeHTTP(rec, request(http.MethodGet, "/api/x", true, tc.sess))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 1, spy.calls)
	}
}

func TestGateOnlyMiddleware(t *testing.T) {
	g := newGuard()
	spy := &spyHandler{}
	rec := httptest.NewRecorder()
	g.Gate(ModePage)(spy).ServeHTTP(rec, request(http.MethodGet, "/qs-admin/auth/login", false, nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, spy.calls)

	rec = httptest.NewRecorder()
	g.Gate(ModePage)(spy).ServeHTTP(rec, request(http.MethodGet, "/qs-admin/auth/login", true, nil))
	assert.Equal(t, 1, spy.calls)
}

func TestStaffScopedToOwnBusiness(t *testing.T) {
	staff := session(policy.RoleWaiter, bid(5))
	ctx := shared.ContextWithSession(context.Background(), staff)

	assert.NoError(t, AuthorizeScope(ctx, bid(5)))
	for _, other := range []int64{1, 4, 6, 1000} {
		assert.ErrorIs(t, AuthorizeScope(ctx, bid(other)), shared.ErrForbidden)
	}
	assert.ErrorIs(t, AuthorizeScope(ctx, nil), shared.ErrForbidden)

	admin := shared.ContextWithSession(context.Background(), session(policy.RoleAdmin, nil))
	assert.NoError(t, AuthorizeScope(admin, bid(99)))
	assert.NoError(t, AuthorizeScope(admin, nil))

	assert.ErrorIs(t, AuthorizeScope(context.Background(), bid(5)), shared.ErrUnauthenticated)
	client := shared.ContextWithSession(context.Background(), session(policy.RoleClient, bid(5)))
	assert.ErrorIs(t, AuthorizeScope(client, bid(5)), shared.ErrForbidden)
}

func TestScopeFilter(t *testing.T) {
	staff := shared.ContextWithSession(context.Background(), session(policy.RoleCashier, bid(5)))
	got, err := ScopeFilter(staff, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), *got)

	_, err = ScopeFilter(staff, bid(6))
	assert.ErrorIs(t, err, shared.ErrForbidden)

	admin := shared.ContextWithSession(context.Background(), session(policy.RoleSuperAdmin, nil))
	got, err = ScopeFilter(admin, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = ScopeFilter(admin, bid(8))
	require.NoError(t, err)
	assert.Equal(t, int64(8), *got)
}
