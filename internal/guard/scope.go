package guard

import (
	"context"
	"fmt"

	"github.com/quinisports/quinisports/internal/shared"
)

// AuthorizeScope checks that the session of ctx may act on a record owned by
// ownerBusinessID. Admin-tier sessions are unscoped. Staff sessions only
// reach records of their own business; records without an owner are
// admin-only.
func AuthorizeScope(ctx context.Context, ownerBusinessID *int64) error {
	return CheckScope(shared.SessionFromContext(ctx), ownerBusinessID)
}

// CheckScope is AuthorizeScope for an explicit session.
func CheckScope(sess *shared.Session, ownerBusinessID *int64) error {
	if sess == nil {
		return shared.ErrUnauthenticated
	}
	if sess.Role.IsAdminTier() {
		return nil
	}
	if !sess.Role.IsStaff() || sess.BusinessID == nil || ownerBusinessID == nil {
		return shared.ErrForbidden
	}
	if *sess.BusinessID != *ownerBusinessID {
		return fmt.Errorf("business %d outside session scope: %w", *ownerBusinessID, shared.ErrForbidden)
	}
	return nil
}

// ScopeFilter resolves the business filter of a list request. Admin-tier
// sessions keep the requested filter; staff sessions are pinned to their own
// business and asking for another one is forbidden.
func ScopeFilter(ctx context.Context, requested *int64) (*int64, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return nil, shared.ErrUnauthenticated
	}
	if sess.Role.IsAdminTier() {
		return requested, nil
	}
	if !sess.Role.IsStaff() || sess.BusinessID == nil {
		return nil, shared.ErrForbidden
	}
	if requested != nil && *requested != *sess.BusinessID {
		return nil, fmt.Errorf("business %d outside session scope: %w", *requested, shared.ErrForbidden)
	}
	own := *sess.BusinessID
	return &own, nil
}
