package users

import (
	"time"

	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Kind selects which population of accounts an operation targets.
type Kind string

// Account populations managed from the admin area.
const (
	KindEmployee Kind = "employee"
	KindAdmin    Kind = "admin"
)

// Messages returned when a role outside the population is submitted.
const (
	MessageEmployeeRole = "UserRole must be cashier, waiter or bartender"
	MessageAdminRole    = "UserRole must be admin or super_admin"
)

// Roles lists the roles an account of kind k may carry.
func (k Kind) Roles() []policy.Role {
	if k == KindAdmin {
		return policy.AdminRoles()
	}
	return policy.StaffRoles()
}

// Resource is the policy resource guarding kind k.
func (k Kind) Resource() policy.Resource {
	if k == KindAdmin {
		return policy.ResourceAdmin
	}
	return policy.ResourceEmployee
}

// Accepts reports whether role belongs to the population.
func (k Kind) Accepts(role policy.Role) bool {
	if k == KindAdmin {
		return role.IsAdminTier()
	}
	return role.IsStaff()
}

func (k Kind) roleMessage() string {
	if k == KindAdmin {
		return MessageAdminRole
	}
	return MessageEmployeeRole
}

// User is an employee or administrator account.
type User struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Email      string               `json:"email"`
	Image      string               `json:"image,omitempty"`
	Role       policy.Role          `json:"role"`
	Status     shared.SessionStatus `json:"status"`
	BusinessID *int64               `json:"idBusiness,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// CreateInput is the payload of POST /api/employee and POST /api/admin.
type CreateInput struct {
	Name       string `json:"name" validate:"required,min=2,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Image      string `json:"image,omitempty" validate:"omitempty,url"`
	Role       string `json:"role" validate:"required"`
	BusinessID *int64 `json:"idBusiness,omitempty" validate:"omitempty,gt=0"`
}

// Patch is a partial update. Nil fields were not submitted.
type Patch struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Password   *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Image      *string `json:"image,omitempty" validate:"omitempty,url"`
	Role       *string `json:"role,omitempty"`
	Status     *string `json:"status,omitempty" validate:"omitempty,oneof=active suspended"`
	BusinessID *int64  `json:"idBusiness,omitempty" validate:"omitempty,gt=0"`
}

// ListFilter narrows list results.
type ListFilter struct {
	Roles      []policy.Role
	BusinessID *int64
	Search     string
	Limit      uint64
	Offset     uint64
}
