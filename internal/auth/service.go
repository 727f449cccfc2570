package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/quinisports/quinisports/internal/observability"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// ErrSuspended is returned when a suspended account tries to sign in.
var ErrSuspended = fmt.Errorf("account suspended: %w", shared.ErrForbidden)

// Service wraps authentication business rules.
type Service struct {
	repo          Repository
	verifier      TokenVerifier
	autoProvision bool
	metrics       *observability.Metrics
}

// Option customises the Service.
type Option func(*Service)

// WithVerifier enables federated credentials.
func WithVerifier(v TokenVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithAutoProvision creates a client account for unknown federated users.
func WithAutoProvision(enabled bool) Option {
	return func(s *Service) { s.autoProvision = enabled }
}

// WithMetrics counts authentication attempts.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a new Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate resolves cred to a user. Password mismatches and unknown
// emails both yield ErrInvalidCredentials; federated identities without a
// local account yield ErrUnknownUser unless auto-provisioning is enabled.
func (s *Service) Authenticate(ctx context.Context, cred Credential) (*User, error) {
	var (
		user *User
		err  error
	)
	switch c := cred.(type) {
	case PasswordCredential:
		user, err = s.authenticatePassword(ctx, c)
	case FederatedCredential:
		user, err = s.authenticateFederated(ctx, c)
	default:
		err = shared.ErrInvalidCredentials
	}
	if err == nil && user.Status == shared.StatusSuspended {
		user, err = nil, ErrSuspended
	}
	method := "unknown"
	if cred != nil {
		method = cred.Method()
	}
	s.metrics.AuthAttempt(method, err == nil)
	return user, err
}

func (s *Service) authenticatePassword(ctx context.Context, c PasswordCredential) (*User, error) {
	email := strings.TrimSpace(c.Email)
	if email == "" || c.Password == "" {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) authenticateFederated(ctx context.Context, c FederatedCredential) (*User, error) {
	if s.verifier == nil || c.IDToken == "" {
		return nil, shared.ErrInvalidCredentials
	}
	ext, err := s.verifier.Verify(ctx, c.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	email := strings.ToLower(strings.TrimSpace(ext.Email))
	if email == "" || !ext.EmailVerified {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.autoProvision {
		return nil, shared.ErrUnknownUser
	}
	name := ext.Name
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	return s.repo.CreateUser(ctx, User{
		ID:     uuid.NewString(),
		Name:   name,
		Email:  email,
		Image:  ext.Picture,
		Role:   policy.RoleClient,
		Status: shared.StatusActive,
	})
}

// HashPassword hashes a plain password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
