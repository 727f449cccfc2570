package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quinisports/quinisports/internal/auth"
	"github.com/quinisports/quinisports/internal/diff"
	"github.com/quinisports/quinisports/internal/events"
	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// SessionRevoker invalidates the tokens already issued to a subject.
type SessionRevoker interface {
	RevokeSubject(ctx context.Context, subjectID string) error
}

// Service handles account management.
type Service struct {
	repo      Repository
	sessions  SessionRevoker
	audit     shared.AuditRecorder
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds a Service. audit and publisher may be nil.
func NewService(repo Repository, sessions SessionRevoker, audit shared.AuditRecorder, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sessions: sessions, audit: audit, publisher: publisher, logger: logger, now: time.Now}
}

// List returns the accounts of kind visible to the caller.
func (s *Service) List(ctx context.Context, kind Kind, f shared.ListFilter) ([]User, error) {
	filter := ListFilter{Roles: kind.Roles(), Search: f.Search, Limit: uint64(f.Limit), Offset: f.Offset()}
	if kind == KindEmployee {
		bid, err := guard.ScopeFilter(ctx, f.BusinessID)
		if err != nil {
			return nil, err
		}
		filter.BusinessID = bid
	} else {
		filter.BusinessID = f.BusinessID
	}
	return s.repo.List(ctx, filter)
}

// Get returns one account of kind. Accounts of another population are
// reported as missing.
func (s *Service) Get(ctx context.Context, kind Kind, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, shared.ErrNotFound
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !kind.Accepts(u.Role) {
		return nil, shared.ErrNotFound
	}
	if kind == KindEmployee {
		if err := guard.AuthorizeScope(ctx, u.BusinessID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Create registers a new account of kind.
func (s *Service) Create(ctx context.Context, kind Kind, in CreateInput) (*User, error) {
	role, err := s.checkRole(ctx, kind, in.Role)
	if err != nil {
		return nil, err
	}
	if kind == KindEmployee {
		if in.BusinessID == nil {
			return nil, shared.InvalidFields(map[string]string{"idBusiness": "is required"})
		}
		if err := guard.AuthorizeScope(ctx, in.BusinessID); err != nil {
			return nil, err
		}
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(in.Name),
		Email:  strings.ToLower(strings.TrimSpace(in.Email)),
		Image:  in.Image,
		Role:   role,
		Status: shared.StatusActive,
	}
	if kind == KindEmployee {
		user.BusinessID = in.BusinessID
	}
	created, err := s.repo.Create(ctx, user, hash)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "user.create", created, map[string]any{"role": string(created.Role)})
	s.publish(ctx, events.TypeUserCreated, created)
	return created, nil
}

// Update applies the fields of p that differ from the stored account. A
// patch without effective changes returns shared.ErrNoChanges.
func (s *Service) Update(ctx context.Context, kind Kind, id string, p Patch) (*User, error) {
	original, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := requireSuperAdminFor(ctx, original); err != nil {
		return nil, err
	}
	if p.Role != nil {
		if role, ok := policy.ParseRole(*p.Role); ok {
			normalized := string(role)
			p.Role = &normalized
		}
	}
	changes, err := diff.Struct(p, original)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, shared.ErrNoChanges
	}

	columns := make(map[string]any, len(changes))
	for _, key := range diff.Keys(changes) {
		switch key {
		case "name":
			columns["name"] = strings.TrimSpace(*p.Name)
		case "email":
			columns["email"] = strings.ToLower(strings.TrimSpace(*p.Email))
		case "image":
			columns["image"] = *p.Image
		case "password":
			hash, err := auth.HashPassword(*p.Password)
			if err != nil {
				return nil, fmt.Errorf("hash password: %w", err)
			}
			columns["password_hash"] = hash
		case "role":
			role, err := s.checkRole(ctx, kind, *p.Role)
			if err != nil {
				return nil, err
			}
			columns["role"] = string(role)
		case "status":
			columns["status"] = *p.Status
		case "idBusiness":
			if kind != KindEmployee {
				return nil, shared.InvalidFields(map[string]string{"idBusiness": "is not allowed"})
			}
			if err := guard.AuthorizeScope(ctx, p.BusinessID); err != nil {
				return nil, err
			}
			columns["business_id"] = *p.BusinessID
		}
	}

	_, roleChanged := columns["role"]
	_, statusChanged := columns["status"]
	_, businessChanged := columns["business_id"]
	if (roleChanged || statusChanged) && isSelf(ctx, id) {
		return nil, fmt.Errorf("changing own role or status: %w", shared.ErrForbidden)
	}

	updated, err := s.repo.Update(ctx, id, columns)
	if err != nil {
		return nil, err
	}

	s.record(ctx, "user.update", updated, map[string]any{"fields": diff.Keys(changes)})
	if roleChanged || statusChanged || businessChanged {
		s.revoke(ctx, id)
		typ := events.TypeRoleChanged
		if statusChanged && !roleChanged {
			typ = events.TypeStatusChanged
		}
		s.publish(ctx, typ, updated)
	}
	return updated, nil
}

// Delete removes an account and ends its sessions.
func (s *Service) Delete(ctx context.Context, kind Kind, id string) error {
	u, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if isSelf(ctx, id) {
		return fmt.Errorf("deleting own account: %w", shared.ErrForbidden)
	}
	if err := requireSuperAdminFor(ctx, u); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.revoke(ctx, id)
	s.record(ctx, "user.delete", u, nil)
	s.publish(ctx, events.TypeUserDeleted, u)
	return nil
}

func (s *Service) checkRole(ctx context.Context, kind Kind, raw string) (policy.Role, error) {
	role, ok := policy.ParseRole(raw)
	if !ok || !kind.Accepts(role) {
		msg := kind.roleMessage()
		return "", &shared.ValidationError{Message: msg, Fields: map[string]string{"role": msg}}
	}
	if role == policy.RoleSuperAdmin {
		if sess := shared.SessionFromContext(ctx); sess == nil || sess.Role != policy.RoleSuperAdmin {
			return "", fmt.Errorf("granting super_admin: %w", shared.ErrForbidden)
		}
	}
	return role, nil
}

// requireSuperAdminFor rejects changes to a super_admin account unless the
// caller is a super_admin too.
func requireSuperAdminFor(ctx context.Context, target *User) error {
	if target.Role != policy.RoleSuperAdmin {
		return nil
	}
	if sess := shared.SessionFromContext(ctx); sess == nil || sess.Role != policy.RoleSuperAdmin {
		return fmt.Errorf("changing a super_admin account: %w", shared.ErrForbidden)
	}
	return nil
}

func isSelf(ctx context.Context, id string) bool {
	sess := shared.SessionFromContext(ctx)
	return sess != nil && sess.SubjectID == id
}

func actorID(ctx context.Context) string {
	if sess := shared.SessionFromContext(ctx); sess != nil {
		return sess.SubjectID
	}
	return ""
}

// revoke failures are logged; the committed change stands.
func (s *Service) revoke(ctx context.Context, id string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeSubject(ctx, id); err != nil {
		s.logger.Error("revoke sessions", slog.String("subject", id), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, action string, u *User, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID(ctx),
		Action:   action,
		Entity:   "user",
		EntityID: u.ID,
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, typ string, u *User) {
	err := s.publisher.PublishAccessChange(ctx, events.AccessChange{
		Type:       typ,
		SubjectID:  u.ID,
		ActorID:    actorID(ctx),
		Role:       string(u.Role),
		Status:     string(u.Status),
		BusinessID: u.BusinessID,
		At:         s.now(),
	})
	if err != nil {
		s.logger.Warn("publish access change", slog.String("type", typ), slog.Any("error", err))
	}
}
