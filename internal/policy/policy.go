// Package policy maps roles to the capabilities they hold in the admin area.
//
// Every authorization decision in the application goes through IsAuthorized.
// The functions here are pure; they never touch the session store or the
// database.
package policy

import "strings"

// Role identifies the kind of account behind a session.
type Role string

// Known roles. Anything else fails closed.
const (
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleCashier    Role = "cashier_rest"
	RoleWaiter     Role = "waiter_rest"
	RoleBartender  Role = "bartender_rest"
)

// Resource names an entity collection protected by the guard.
type Resource string

// Protected resources.
const (
	ResourceEmployee     Resource = "employee"
	ResourceAdmin        Resource = "admin"
	ResourceBusiness     Resource = "business"
	ResourceProduct      Resource = "product"
	ResourceProductType  Resource = "product_type"
	ResourcePrize        Resource = "prize"
	ResourceSport        Resource = "sport"
	ResourceTournament   Resource = "tournament"
	ResourceSubscription Resource = "subscription"
	ResourceOrder        Resource = "order"
	ResourceImage        Resource = "image"
)

// Verb is the operation performed on a resource.
type Verb string

// Verbs.
const (
	VerbRead   Verb = "read"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Capability is a single resource/verb pair.
type Capability struct {
	Resource Resource
	Verb     Verb
}

func (c Capability) String() string {
	return string(c.Resource) + ":" + string(c.Verb)
}

var (
	allResources = []Resource{
		ResourceEmployee,
		ResourceAdmin,
		ResourceBusiness,
		ResourceProduct,
		ResourceProductType,
		ResourcePrize,
		ResourceSport,
		ResourceTournament,
		ResourceSubscription,
		ResourceOrder,
		ResourceImage,
	}
	allVerbs = []Verb{VerbRead, VerbCreate, VerbUpdate, VerbDelete}

	staffGrants = map[Capability]struct{}{
		{ResourceEmployee, VerbRead}: {},
		{ResourceProduct, VerbRead}:  {},
		{ResourceOrder, VerbRead}:    {},
		{ResourceOrder, VerbCreate}:  {},
		{ResourceOrder, VerbUpdate}:  {},
	}
)

// ParseRole normalises raw input into a known Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	return role, role.Valid()
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r == RoleClient || r.IsAdminTier() || r.IsStaff()
}

// IsAdminTier reports whether r is unscoped across the admin area.
func (r Role) IsAdminTier() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsStaff reports whether r is a restaurant staff role bound to one business.
func (r Role) IsStaff() bool {
	return r == RoleCashier || r == RoleWaiter || r == RoleBartender
}

// StaffRoles lists the roles an employee record may carry.
func StaffRoles() []Role {
	return []Role{RoleCashier, RoleWaiter, RoleBartender}
}

// AdminRoles lists the admin-tier roles.
func AdminRoles() []Role {
	return []Role{RoleAdmin, RoleSuperAdmin}
}

func knownResource(res Resource) bool {
	for _, r := range allResources {
		if r == res {
			return true
		}
	}
	return false
}

func knownVerb(verb Verb) bool {
	for _, v := range allVerbs {
		if v == verb {
			return true
		}
	}
	return false
}

// IsAuthorized reports whether role may perform verb on res. Unknown roles,
// resources and verbs are always denied.
func IsAuthorized(role Role, res Resource, verb Verb) bool {
	if !knownResource(res) || !knownVerb(verb) {
		return false
	}
	switch {
	case role.IsAdminTier():
		return true
	case role.IsStaff():
		_, ok := staffGrants[Capability{Resource: res, Verb: verb}]
		return ok
	default:
		return false
	}
}

// Grants derives the capability set of role in a stable order.
func Grants(role Role) []Capability {
	var out []Capability
	for _, res := range allResources {
		for _, verb := range allVerbs {
			if IsAuthorized(role, res, verb) {
				out = append(out, Capability{Resource: res, Verb: verb})
			}
		}
	}
	return out
}

// Scoped reports whether role may only act inside its own business.
func Scoped(role Role) bool {
	return role.IsStaff()
}

// CanEnterAdminArea reports whether role may see any admin page at all.
func CanEnterAdminArea(role Role) bool {
	return role != RoleClient && len(Grants(role)) > 0
}
