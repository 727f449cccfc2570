package view

import "github.com/quinisports/quinisports/internal/policy"

// Section is an entry of the admin sidebar.
type Section struct {
	Slug     string
	Label    string
	Resource policy.Resource
	API      string
}

var sections = []Section{
	{Slug: "comercios", Label: "Comercios", Resource: policy.ResourceBusiness, API: "/api/business"},
	{Slug: "productos", Label: "Productos", Resource: policy.ResourceProduct, API: "/api/product"},
	{Slug: "tipos-producto", Label: "Tipos de producto", Resource: policy.ResourceProductType, API: "/api/product-type"},
	{Slug: "premios", Label: "Premios", Resource: policy.ResourcePrize, API: "/api/prize"},
	{Slug: "deportes", Label: "Deportes", Resource: policy.ResourceSport, API: "/api/sport"},
	{Slug: "ligas", Label: "Ligas", Resource: policy.ResourceTournament, API: "/api/tournament"},
	{Slug: "empleados", Label: "Empleados", Resource: policy.ResourceEmployee, API: "/api/employee"},
	{Slug: "administradores", Label: "Administradores", Resource: policy.ResourceAdmin, API: "/api/admin"},
	{Slug: "suscripciones", Label: "Suscripciones", Resource: policy.ResourceSubscription, API: "/api/subscription"},
}

// SectionsFor lists the sections role may read, in sidebar order.
func SectionsFor(role policy.Role) []Section {
	var out []Section
	for _, s := range sections {
		if policy.IsAuthorized(role, s.Resource, policy.VerbRead) {
			out = append(out, s)
		}
	}
	return out
}

// LookupSection finds a section by slug.
func LookupSection(slug string) (Section, bool) {
	for _, s := range sections {
		if s.Slug == slug {
			return s, true
		}
	}
	return Section{}, false
}
