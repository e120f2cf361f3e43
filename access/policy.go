package access

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jrsteele09/medix-console/users"
)

// Page names used by the console
const (
	PageDashboard     = "Dashboard"
	PageDrugs         = "Drugs"
	PagePrescriptions = "Prescriptions"
	PageSales         = "Sales"
	PageUsers         = "Users"
	PageReports       = "Reports"
)

// Page couples a navigation entry with its route restriction. The two role lists are
// independent: a page may be reachable by roles that do not see it in the navigation.
type Page struct {
	Name       string
	Path       string
	NavRoles   []users.Role
	RouteRoles []users.Role // nil admits any authenticated user
}

// Visible reports whether the page shows up in role's navigation
func (p Page) Visible(role users.Role) bool {
	return role.In(p.NavRoles)
}

func (p Page) Decide(s Snapshot) Decision {
	return Evaluate(s, p.RouteRoles)
}

// Policy is the ordered set of console pages
type Policy struct {
	pages []Page
}

func NewPolicy(pages ...Page) *Policy {
	return &Policy{pages: pages}
}

// DefaultPolicy is the built-in page table
func DefaultPolicy() *Policy {
	all := slices.Clone(users.AllRoles)
	return NewPolicy(
		Page{Name: PageDashboard, Path: "/dashboard", NavRoles: all},
		Page{Name: PageDrugs, Path: "/drugs", NavRoles: []users.Role{users.RoleAdmin, users.RolePharmacist, users.RoleDoctor}},
		Page{Name: PagePrescriptions, Path: "/prescriptions", NavRoles: all},
		Page{
			Name:       PageSales,
			Path:       "/sales",
			NavRoles:   []users.Role{users.RoleAdmin, users.RolePharmacist, users.RoleReceptionist},
			RouteRoles: []users.Role{users.RoleAdmin, users.RolePharmacist, users.RoleReceptionist},
		},
		Page{Name: PageUsers, Path: "/users", NavRoles: []users.Role{users.RoleAdmin}, RouteRoles: []users.Role{users.RoleAdmin}},
		Page{
			Name:       PageReports,
			Path:       "/reports",
			NavRoles:   []users.Role{users.RoleAdmin, users.RolePharmacist},
			RouteRoles: []users.Role{users.RoleAdmin, users.RolePharmacist},
		},
	)
}

func (p *Policy) Pages() []Page {
	return slices.Clone(p.pages)
}

// Page looks up a page by name
func (p *Policy) Page(name string) (Page, bool) {
	for _, page := range p.pages {
		if page.Name == name {
			return page, true
		}
	}
	return Page{}, false
}

// Navigation returns the pages visible to role, in policy order
func (p *Policy) Navigation(role users.Role) []Page {
	var nav []Page
	for _, page := range p.pages {
		if page.Visible(role) {
			nav = append(nav, page)
		}
	}
	return nav
}

// allRolesToken in a role list stands for every role
const allRolesToken = "all"

type pageConfig struct {
	Name       string   `yaml:"name"`
	Path       string   `yaml:"path,omitempty"`
	NavRoles   []string `yaml:"nav_roles"`
	RouteRoles []string `yaml:"route_roles,omitempty"`
}

type policyConfig struct {
	Pages []pageConfig `yaml:"pages"`
}

// LoadPolicy reads page overrides from a YAML file on top of DefaultPolicy.
// Pages are matched by name; unknown names are appended. An empty path returns DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var config policyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	for _, pc := range config.Pages {
		page, err := pc.page()
		if err != nil {
			return nil, fmt.Errorf("policy page %q: %w", pc.Name, err)
		}
		policy.set(page)
	}
	return policy, nil
}

func (p *Policy) set(page Page) {
	for i := range p.pages {
		if p.pages[i].Name == page.Name {
			if page.Path == "" {
				page.Path = p.pages[i].Path
			}
			p.pages[i] = page
			return
		}
	}
	p.pages = append(p.pages, page)
}

func (pc pageConfig) page() (Page, error) {
	if pc.Name == "" {
		return Page{}, fmt.Errorf("missing name")
	}
	nav, err := parseRoles(pc.NavRoles)
	if err != nil {
		return Page{}, err
	}
	if nav == nil {
		nav = []users.Role{}
	}
	route, err := parseRoles(pc.RouteRoles)
	if err != nil {
		return Page{}, err
	}
	path := pc.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		return Page{}, fmt.Errorf("path %q must start with /", path)
	}
	if path == "" && !isDefaultPage(pc.Name) {
		path = "/" + strings.ToLower(pc.Name)
	}
	return Page{Name: pc.Name, Path: path, NavRoles: nav, RouteRoles: route}, nil
}

// parseRoles keeps nil for an omitted list and expands the "all" token
func parseRoles(raw []string) ([]users.Role, error) {
	if raw == nil {
		return nil, nil
	}
	roles := make([]users.Role, 0, len(raw))
	for _, r := range raw {
		if strings.EqualFold(strings.TrimSpace(r), allRolesToken) {
			return slices.Clone(users.AllRoles), nil
		}
		role, err := users.ParseRole(r)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func isDefaultPage(name string) bool {
	_, ok := DefaultPolicy().Page(name)
	return ok
}
