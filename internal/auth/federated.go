package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/singleflight"
)

// Default trust settings for Google ID tokens.
const (
	DefaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	defaultKeysTTL       = time.Hour
)

// DefaultGoogleIssuers are the issuers Google signs ID tokens with.
var DefaultGoogleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

var errUnknownKey = errors.New("unknown signing key")

// TokenVerifier verifies a federated ID token.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*ExternalIdentity, error)
}

// JWKSVerifier verifies RS256 ID tokens against a remote JSON Web Key Set.
type JWKSVerifier struct {
	jwksURL  string
	audience string
	issuers  []string
	client   *http.Client
	now      func() time.Time

	group     singleflight.Group
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

// VerifierConfig configures a JWKSVerifier.
type VerifierConfig struct {
	JWKSURL    string
	Audience   string
	Issuers    []string
	HTTPClient *http.Client
}

// NewJWKSVerifier builds a verifier. Key fetches are retried.
func NewJWKSVerifier(cfg VerifierConfig) *JWKSVerifier {
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = DefaultGoogleJWKSURL
	}
	if len(cfg.Issuers) == 0 {
		cfg.Issuers = DefaultGoogleIssuers
	}
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	if cfg.HTTPClient != nil {
		retryClient.HTTPClient = cfg.HTTPClient
	}
	retryClient.HTTPClient.Timeout = 5 * time.Second

	return &JWKSVerifier{
		jwksURL:  cfg.JWKSURL,
		audience: cfg.Audience,
		issuers:  cfg.Issuers,
		client:   retryClient.StandardClient(),
		now:      time.Now,
		keys:     map[string]*rsa.PublicKey{},
	}
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// Verify checks signature, issuer, audience and expiry of rawToken.
func (v *JWKSVerifier) Verify(ctx context.Context, rawToken string) (*ExternalIdentity, error) {
	if v.audience == "" {
		return nil, errors.New("federated sign-in not configured")
	}
	var claims idTokenClaims
	_, err := jwt.ParseWithClaims(rawToken, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	if !v.trustedIssuer(claims.Issuer) {
		return nil, fmt.Errorf("verify id token: untrusted issuer %q", claims.Issuer)
	}
	return &ExternalIdentity{
		Subject:       claims.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: truthy(claims.EmailVerified),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

func (v *JWKSVerifier) trustedIssuer(iss string) bool {
	for _, trusted := range v.issuers {
		if iss == trusted {
			return true
		}
	}
	return false
}

func (v *JWKSVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := v.now().Before(v.expiresAt)
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}
	if _, err, _ := v.group.Do("jwks", func() (any, error) {
		return nil, v.refresh(ctx)
	}); err != nil {
		if ok {
			return key, nil
		}
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, errUnknownKey
}

type jwkSet struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		Alg string `json:"alg"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *JWKSVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("jwks: create request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: unexpected status %d", resp.StatusCode)
	}
	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("jwks: decode: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("jwks: no usable keys")
	}
	v.mu.Lock()
	v.keys = keys
	v.expiresAt = v.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	v.mu.Unlock()
	return nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	exp := new(big.Int).SetBytes(eb)
	if !exp.IsInt64() || exp.Int64() < 3 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exp.Int64())}, nil
}

func maxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		if raw, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return defaultKeysTTL
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(x, "true")
	}
	return false
}

var _ TokenVerifier = (*JWKSVerifier)(nil)
