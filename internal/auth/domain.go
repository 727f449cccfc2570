package auth

import (
	"time"

	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Authentication methods.
const (
	MethodPassword  = "password"
	MethodFederated = "federated"
)

// User is the account a credential resolves to.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Image        string
	Role         policy.Role
	Status       shared.SessionStatus
	BusinessID   *int64
	CreatedAt    time.Time
}

// Identity returns the claims a session for u carries.
func (u *User) Identity() shared.Identity {
	status := u.Status
	if status == "" {
		status = shared.StatusActive
	}
	return shared.Identity{
		SubjectID:   u.ID,
		DisplayName: u.Name,
		Role:        u.Role,
		Email:       u.Email,
		AvatarURL:   u.Image,
		Status:      status,
		BusinessID:  u.BusinessID,
	}
}

// Credential is one of PasswordCredential or FederatedCredential.
type Credential interface {
	Method() string
}

// PasswordCredential is a local email/password pair.
type PasswordCredential struct {
	Email    string
	Password string
}

// Method implements Credential.
func (PasswordCredential) Method() string { return MethodPassword }

// FederatedCredential is an ID token issued by the external identity provider.
type FederatedCredential struct {
	IDToken string
}

// Method implements Credential.
func (FederatedCredential) Method() string { return MethodFederated }

// ExternalIdentity is what a verified federated token asserts.
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// SessionView is the JSON shape of the current session.
type SessionView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	Email      string   `json:"email"`
	Image      string   `json:"image,omitempty"`
	Status     string   `json:"status,omitempty"`
	IDBusiness *int64   `json:"idBusiness,omitempty"`
	ExpiresAt  string   `json:"expiresAt"`
	Grants     []string `json:"grants"`
	CSRFToken  string   `json:"csrfToken,omitempty"`
}

// NewSessionView renders sess for API clients.
func NewSessionView(sess *shared.Session, csrfToken string) SessionView {
	grants := policy.Grants(sess.Role)
	names := make([]string, 0, len(grants))
	for _, g := range grants {
		names = append(names, g.String())
	}
	return SessionView{
		ID:         sess.SubjectID,
		Name:       sess.DisplayName,
		Role:       string(sess.Role),
		Email:      sess.Email,
		Image:      sess.AvatarURL,
		Status:     string(sess.Status),
		IDBusiness: sess.BusinessID,
		ExpiresAt:  sess.ExpiresAt.UTC().Format(time.RFC3339),
		Grants:     names,
		CSRFToken:  csrfToken,
	}
}
