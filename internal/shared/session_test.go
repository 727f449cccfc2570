package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quinisports/quinisports/internal/policy"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "qs_test", "session-secret", time.Hour, false), mr
}

func waiterIdentity() Identity {
	bid := int64(7)
	return Identity{
		SubjectID:   "user-1",
		DisplayName: "Ana",
		Role:        policy.RoleWaiter,
		Email:       "ana@example.com",
		Status:      StatusActive,
		BusinessID:  &bid,
	}
}

func issue(t *testing.T, sm *SessionManager, id Identity) (*Session, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	sess, err := sm.Issue(context.Background(), rec, id)
	require.NoError(t, err)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return sess, cookies[0]
}

func requestWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/qs-admin", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestIssueAndLoadRoundTrip(t *testing.T) {
	sm, _ := newTestManager(t)
	issued, cookie := issue(t, sm, waiterIdentity())

	assert.Equal(t, "qs_test", cookie.Name)
	assert.True(t, cookie.HttpOnly)

	loaded, err := sm.Load(context.Background(), requestWith(cookie))
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, issued.ID, loaded.ID)
	assert.Equal(t, "user-1", loaded.SubjectID)
	assert.Equal(t, policy.RoleWaiter, loaded.Role)
	require.NotNil(t, loaded.BusinessID)
	assert.Equal(t, int64(7), *loaded.BusinessID)
	assert.Equal(t, issued.IssuedAt.UnixMilli(), loaded.IssuedAt.UnixMilli())
}

func TestLoadWithoutCookieIsAnonymous(t *testing.T) {
	sm, _ := newTestManager(t)
	sess, err := sm.Load(context.Background(), requestWith(nil))
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestTamperedTokenIsAnonymous(t *testing.T) {
	sm, _ := newTestManager(t)
	_, cookie := issue(t, sm, waiterIdentity())

	other := NewSessionManager(sm.client, "qs_test", "another-secret", time.Hour, false)
	forged, err := other.Encode(&Session{
		ID:        "forged",
		Identity:  Identity{SubjectID: "user-1", Role: policy.RoleSuperAdmin},
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	sess, err := sm.Load(context.Background(), requestWith(&http.Cookie{Name: cookie.Name, Value: forged}))
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = sm.Load(context.Background(), requestWith(&http.Cookie{Name: cookie.Name, Value: cookie.Value + "x"}))
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestUnsignedTokenRejected(t *testing.T) {
	sm, _ := newTestManager(t)
	claims := jwt.MapClaims{"sub": "user-1", "jti": "x", "role": "super_admin", "iss": tokenIssuer, "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = sm.Decode(token)
	assert.Error(t, err)
}

func TestExpiredTokenIsAnonymous(t *testing.T) {
	sm, _ := newTestManager(t)
	_, cookie := issue(t, sm, waiterIdentity())

	sm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	sess, err := sm.Load(context.Background(), requestWith(cookie))
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestDestroyRevokesToken(t *testing.T) {
	sm, _ := newTestManager(t)
	issued, cookie := issue(t, sm, waiterIdentity())

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Destroy(context.Background(), rec, issued))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	sess, err := sm.Load(context.Background(), requestWith(cookie))
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestRevokeSubjectForcesReLogin(t *testing.T) {
	sm, _ := newTestManager(t)
	base := time.Now()
	sm.now = func() time.Time { return base }
	_, oldCookie := issue(t, sm, waiterIdentity())

	sm.now = func() time.Time { return base.Add(time.Second) }
	require.NoError(t, sm.RevokeSubject(context.Background(), "user-1"))

	sess, err := sm.Load(context.Background(), requestWith(oldCookie))
	require.NoError(t, err)
	assert.Nil(t, sess, "token issued before the role change must be rejected")

	sm.now = func() time.Time { return base.Add(2 * time.Second) }
	id := waiterIdentity()
	id.Role = policy.RoleCashier
	_, newCookie := issue(t, sm, id)
	sess, err = sm.Load(context.Background(), requestWith(newCookie))
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, policy.RoleCashier, sess.Role)
}

func TestRevokeSubjectInSameMillisecond(t *testing.T) {
	sm, _ := newTestManager(t)
	base := time.Now().Truncate(time.Millisecond)
	sm.now = func() time.Time { return base.Add(300 * time.Microsecond) }
	_, cookie := issue(t, sm, waiterIdentity())

	sm.now = func() time.Time { return base.Add(700 * time.Microsecond) }
	require.NoError(t, sm.RevokeSubject(context.Background(), "user-1"))

	sess, err := sm.Load(context.Background(), requestWith(cookie))
	require.NoError(t, err)
	assert.Nil(t, sess)

	sm.now = func() time.Time { return base.Add(time.Millisecond) }
	_, fresh := issue(t, sm, waiterIdentity())
	sess, err = sm.Load(context.Background(), requestWith(fresh))
	require.NoError(t, err)
	assert.NotNil(t, sess)
}

func TestRevokeSubjectLeavesOtherUsers(t *testing.T) {
	sm, _ := newTestManager(t)
	other := waiterIdentity()
	other.SubjectID = "user-2"
	_, cookie := issue(t, sm, other)

	require.NoError(t, sm.RevokeSubject(context.Background(), "user-1"))
	sess, err := sm.Load(context.Background(), requestWith(cookie))
	require.NoError(t, err)
	assert.NotNil(t, sess)
}

func TestLoadFailsWhenStoreUnavailable(t *testing.T) {
	sm, mr := newTestManager(t)
	_, cookie := issue(t, sm, waiterIdentity())
	mr.Close()

	sess, err := sm.Load(context.Background(), requestWith(cookie))
	assert.Error(t, err)
	assert.Nil(t, sess)
}

func TestShouldRenew(t *testing.T) {
	sm, _ := newTestManager(t)
	sess, _ := issue(t, sm, waiterIdentity())
	assert.False(t, sm.ShouldRenew(sess))

	sm.now = func() time.Time { return time.Now().Add(40 * time.Minute) }
	assert.True(t, sm.ShouldRenew(sess))

	renewed, err := sm.Renew(context.Background(), httptest.NewRecorder(), sess)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, renewed.ID)
	assert.Equal(t, sess.IssuedAt, renewed.IssuedAt)
	assert.Equal(t, sess.Identity, renewed.Identity)
	assert.True(t, renewed.ExpiresAt.After(sess.ExpiresAt))
	assert.False(t, sm.ShouldRenew(renewed))
}
