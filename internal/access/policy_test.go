package access_test

import (
	"testing"

	"github.com/modulus-erp/modulus-erp/internal/access"
	_ "github.com/modulus-erp/modulus-erp/testing"
)

func TestRoleForEmail(t *testing.T) {
	cases := []struct {
		email string
		want  access.Role
	}{
		{"admin@modulus.com", access.RoleSuperAdmin},
		{"ADMIN@MODULUS.COM", access.RoleSuperAdmin},
		{"  admin@modulus.com  ", access.RoleSuperAdmin},
		{"demo@modulus.com", access.RoleDemo},
		{"someone@example.com", access.RoleRegular},
		{"", access.RoleRegular},
	}
	for _, tc := range cases {
		if got := access.RoleForEmail(tc.email); got != tc.want {
			t.Errorf("RoleForEmail(%q) = %s, want %s", tc.email, got, tc.want)
		}
	}
}

func TestCapabilitiesByRole(t *testing.T) {
	super := access.CapabilitiesFor(access.RoleSuperAdmin)
	if !super.CanAccessAdminRoutes || !super.CanAccessManagement || !super.CanModifyData || !super.CanDeleteData || !super.CanModifySettings {
		t.Fatalf("super admin must hold every capability: %+v", super)
	}

	demo := access.CapabilitiesFor(access.RoleDemo)
	if demo.CanModifyData || demo.CanDeleteData || demo.CanModifySettings {
		t.Fatalf("demo accounts are read only: %+v", demo)
	}
	if demo.CanAccessAdminRoutes {
		t.Fatalf("demo accounts must not reach admin routes")
	}

	regular := access.CapabilitiesFor(access.RoleRegular)
	if regular.CanAccessAdminRoutes || regular.CanAccessManagement {
		t.Fatalf("regular accounts must not reach gated routes: %+v", regular)
	}
	if !regular.CanModifyData || !regular.CanDeleteData || !regular.CanModifySettings {
		t.Fatalf("regular accounts keep their own data writable: %+v", regular)
	}
}

func TestIsProtectedRoute(t *testing.T) {
	protected := []string{
		"/admin",
		"/admin/diagnostics",
		"/admin/helpdesk/tickets",
		"/administer",
		"/admin-tools",
		"/management",
		"/management/reports",
		"/user-logs",
		"/user-logs-archive",
	}
	for _, path := range protected {
		if !access.IsProtectedRoute(path) {
			t.Errorf("expected %s to be protected", path)
		}
	}

	open := []string{"/", "/welcome", "/dashboard", "/Admin", "/adm"}
	for _, path := range open {
		if access.IsProtectedRoute(path) {
			t.Errorf("expected %s to be open", path)
		}
	}
}

func TestCanAccessRoute(t *testing.T) {
	if !access.CanAccessRoute("/admin/diagnostics", "admin@modulus.com") {
		t.Fatalf("super admin must reach admin routes")
	}
	if access.CanAccessRoute("/admin", "demo@modulus.com") {
		t.Fatalf("demo must not reach admin routes")
	}
	if access.CanAccessRoute("/management", "someone@example.com") {
		t.Fatalf("regular users must not reach management")
	}
	if access.CanAccessRoute("/user-logs", "") {
		t.Fatalf("anonymous must not reach user logs")
	}
	if !access.CanAccessRoute("/dashboard", "someone@example.com") {
		t.Fatalf("unprotected routes are open to everyone")
	}
	if access.CanAccessRoute("/administer", "someone@example.com") {
		t.Fatalf("admin-prefixed paths stay gated for regular users")
	}
	if !access.CanAccessRoute("/management", "admin@modulus.com") {
		t.Fatalf("super admin must reach management")
	}
}
