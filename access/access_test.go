package access_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/medix-console/access"
	"github.com/jrsteele09/medix-console/users"
)

func TestEvaluate_LoadingNeverRedirects(t *testing.T) {
	lists := [][]users.Role{nil, {}, {users.RoleAdmin}, users.AllRoles}
	for _, allowed := range lists {
		for _, authenticated := range []bool{false, true} {
			for _, role := range append([]users.Role{""}, users.AllRoles...) {
				d := access.Evaluate(access.Snapshot{Loading: true, Authenticated: authenticated, Role: role}, allowed)
				require.Equal(t, access.DecisionWait, d)
				require.Empty(t, d.Redirect())
			}
		}
	}
}

func TestEvaluate_Unauthenticated(t *testing.T) {
	d := access.Evaluate(access.Snapshot{}, nil)
	require.Equal(t, access.DecisionLogin, d)
	require.Equal(t, "/login", d.Redirect())
}

func TestEvaluate_AllowListSemantics(t *testing.T) {
	admin := access.Snapshot{Authenticated: true, Role: users.RoleAdmin}
	require.Equal(t, access.DecisionAllow, access.Evaluate(admin, nil))
	require.Equal(t, access.DecisionLanding, access.Evaluate(admin, []users.Role{}))
	require.Equal(t, "/dashboard", access.DecisionLanding.Redirect())
}

func TestDefaultPolicy_RolesByPages(t *testing.T) {
	policy := access.DefaultPolicy()
	for _, page := range policy.Pages() {
		for _, role := range users.AllRoles {
			s := access.Snapshot{Authenticated: true, Role: role}
			want := access.DecisionLanding
			if page.RouteRoles == nil || role.In(page.RouteRoles) {
				want = access.DecisionAllow
			}
			require.Equal(t, want, page.Decide(s), "%s as %s", page.Name, role)
		}
	}
}

func TestDefaultPolicy_Table(t *testing.T) {
	policy := access.DefaultPolicy()
	allowed := func(page string, role users.Role) bool {
		p, ok := policy.Page(page)
		require.True(t, ok, page)
		return p.Decide(access.Snapshot{Authenticated: true, Role: role}) == access.DecisionAllow
	}

	require.True(t, allowed(access.PageUsers, users.RoleAdmin))
	require.False(t, allowed(access.PageUsers, users.RolePharmacist))
	require.True(t, allowed(access.PageSales, users.RoleReceptionist))
	require.False(t, allowed(access.PageSales, users.RoleDoctor))
	require.True(t, allowed(access.PageReports, users.RolePharmacist))
	require.False(t, allowed(access.PageReports, users.RolePatient))

	// drugs is hidden from receptionist navigation but still reachable
	require.True(t, allowed(access.PageDrugs, users.RoleReceptionist))
	drugs, _ := policy.Page(access.PageDrugs)
	require.False(t, drugs.Visible(users.RoleReceptionist))
}

func TestPolicy_Navigation(t *testing.T) {
	policy := access.DefaultPolicy()
	names := func(role users.Role) []string {
		var out []string
		for _, p := range policy.Navigation(role) {
			out = append(out, p.Name)
		}
		return out
	}

	require.Equal(t, []string{"Dashboard", "Drugs", "Prescriptions", "Sales", "Users", "Reports"}, names(users.RoleAdmin))
	require.Equal(t, []string{"Dashboard", "Drugs", "Prescriptions"}, names(users.RoleDoctor))
	require.Equal(t, []string{"Dashboard", "Prescriptions", "Sales"}, names(users.RoleReceptionist))
	require.Equal(t, []string{"Dashboard", "Prescriptions"}, names(users.RolePatient))
}

func TestLoadPolicy(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		policy, err := access.LoadPolicy("")
		require.NoError(t, err)
		require.Len(t, policy.Pages(), 6)
	})

	t.Run("overrides and additions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
pages:
  - name: Drugs
    nav_roles: [all]
    route_roles: [ADMIN, pharmacist]
  - name: Audit
    nav_roles: [ADMIN]
    route_roles: []
`), 0o600))

		policy, err := access.LoadPolicy(path)
		require.NoError(t, err)

		drugs, ok := policy.Page(access.PageDrugs)
		require.True(t, ok)
		require.Equal(t, "/drugs", drugs.Path)
		require.True(t, drugs.Visible(users.RolePatient))
		require.Equal(t, []users.Role{users.RoleAdmin, users.RolePharmacist}, drugs.RouteRoles)

		audit, ok := policy.Page("Audit")
		require.True(t, ok)
		require.Equal(t, "/audit", audit.Path)
		require.Equal(t, access.DecisionLanding, audit.Decide(access.Snapshot{Authenticated: true, Role: users.RoleAdmin}))
	})

	t.Run("unknown role", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pages:\n  - name: Sales\n    nav_roles: [NURSE]\n"), 0o600))
		_, err := access.LoadPolicy(path)
		require.ErrorContains(t, err, "unknown role")
	})

	t.Run("relative path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pages:\n  - name: Audit\n    path: audit\n    nav_roles: [all]\n"), 0o600))
		_, err := access.LoadPolicy(path)
		require.ErrorContains(t, err, "must start with /")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := access.LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
