package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quinisports/quinisports/internal/policy"
)

const tokenIssuer = "quinisports"

var errInvalidToken = errors.New("invalid session token")

// SessionStatus is the account status carried by a session.
type SessionStatus string

// Account statuses.
const (
	StatusActive    SessionStatus = "active"
	StatusSuspended SessionStatus = "suspended"
)

// Identity is the set of claims a session carries for its lifetime.
type Identity struct {
	SubjectID   string
	DisplayName string
	Role        policy.Role
	Email       string
	AvatarURL   string
	Status      SessionStatus
	BusinessID  *int64
}

// Session is an authenticated identity plus token metadata. Sessions are
// immutable; renewal returns a copy with a later expiry.
type Session struct {
	ID string
	Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Suspended reports whether the account was suspended when the token was issued.
func (s *Session) Suspended() bool {
	return s != nil && s.Status == StatusSuspended
}

type sessionClaims struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Email      string `json:"email"`
	Picture    string `json:"picture,omitempty"`
	Status     string `json:"status,omitempty"`
	BusinessID *int64 `json:"bid,omitempty"`
	IssuedMs   int64  `json:"iat_ms"`
	jwt.RegisteredClaims
}

// SessionManager issues signed session tokens carried in a cookie and keeps
// the revocation state in Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
	now        func() time.Time
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
		now:        time.Now,
	}
}

// Issue creates a session for the identity and writes the cookie.
func (sm *SessionManager) Issue(ctx context.Context, w http.ResponseWriter, id Identity) (*Session, error) {
	now := sm.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Identity:  id,
		IssuedAt:  now.Truncate(time.Millisecond),
		ExpiresAt: now.Add(sm.ttl).Truncate(time.Second),
	}
	if err := sm.writeCookie(w, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (sm *SessionManager) writeCookie(w http.ResponseWriter, sess *Session) error {
	token, err := sm.Encode(sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  sess.ExpiresAt,
	})
	return nil
}

// Load resolves the session of the request. A nil session with a nil error
// means the request is anonymous; missing, tampered, expired and revoked
// tokens all end up there. An error is returned only when the revocation
// store cannot be consulted.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	sess, err := sm.Decode(cookie.Value)
	if err != nil {
		return nil, nil
	}
	revoked, err := sm.isRevoked(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("session revocation lookup: %w", err)
	}
	if revoked {
		return nil, nil
	}
	return sess, nil
}

// ShouldRenew reports whether less than half of the session lifetime remains.
func (sm *SessionManager) ShouldRenew(sess *Session) bool {
	if sess == nil {
		return false
	}
	return sess.ExpiresAt.Sub(sm.now()) < sm.ttl/2
}

// Renew extends the expiry of sess. The token id and issue time are kept,
// so the CSRF token stays valid and earlier revocations still apply.
func (sm *SessionManager) Renew(ctx context.Context, w http.ResponseWriter, sess *Session) (*Session, error) {
	if sess == nil {
		return nil, errInvalidToken
	}
	renewed := *sess
	renewed.ExpiresAt = sm.now().Add(sm.ttl).Truncate(time.Second)
	if err := sm.writeCookie(w, &renewed); err != nil {
		return nil, err
	}
	return &renewed, nil
}

// Destroy revokes the token of sess and clears the cookie.
func (sm *SessionManager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
	if sess == nil {
		return nil
	}
	remaining := sess.ExpiresAt.Sub(sm.now())
	if remaining <= 0 {
		return nil
	}
	if remaining < time.Second {
		remaining = time.Second
	}
	return sm.client.Set(ctx, sm.tokenKey(sess.ID), 1, remaining).Err()
}

// RevokeSubject invalidates every token issued to subjectID so far. The
// next request with such a token is anonymous and the user has to sign in
// again, which picks up the current role and status.
func (sm *SessionManager) RevokeSubject(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return nil
	}
	// Tokens are stamped in milliseconds; one issued in the same millisecond
	// as the revocation is rejected as well.
	return sm.client.Set(ctx, sm.subjectKey(subjectID), sm.now().UnixMilli()+1, sm.ttl).Err()
}

// Encode signs the session claims.
func (sm *SessionManager) Encode(sess *Session) (string, error) {
	claims := sessionClaims{
		Name:       sess.DisplayName,
		Role:       string(sess.Role),
		Email:      sess.Email,
		Picture:    sess.AvatarURL,
		Status:     string(sess.Status),
		BusinessID: sess.BusinessID,
		IssuedMs:   sess.IssuedAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.SubjectID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
}

// Decode verifies the signature, issuer and expiry of token.
func (sm *SessionManager) Decode(token string) (*Session, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return sm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, errInvalidToken
	}
	sess := &Session{
		ID: claims.ID,
		Identity: Identity{
			SubjectID:   claims.Subject,
			DisplayName: claims.Name,
			Role:        policy.Role(claims.Role),
			Email:       claims.Email,
			AvatarURL:   claims.Picture,
			Status:      SessionStatus(claims.Status),
			BusinessID:  claims.BusinessID,
		},
		IssuedAt: time.UnixMilli(claims.IssuedMs),
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) isRevoked(ctx context.Context, sess *Session) (bool, error) {
	pipe := sm.client.Pipeline()
	tokenCmd := pipe.Exists(ctx, sm.tokenKey(sess.ID))
	subjectCmd := pipe.Get(ctx, sm.subjectKey(sess.SubjectID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	if tokenCmd.Val() > 0 {
		return true, nil
	}
	notBefore, err := subjectCmd.Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return sess.IssuedAt.UnixMilli() < notBefore, nil
}

func (sm *SessionManager) tokenKey(id string) string {
	return "session:revoked:" + id
}

func (sm *SessionManager) subjectKey(subjectID string) string {
	return "session:subject:" + subjectID + ":not_before"
}
