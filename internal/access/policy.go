// Package access derives roles and capabilities from an authenticated
// identity and decides route reachability. Everything here is a pure function
// of the identity's email address; no stored role is consulted.
package access

import "strings"

// Role is the closed set of roles the platform recognises.
type Role int

const (
	// RoleRegular is any authenticated tenant user, and the fallback for a
	// missing identity.
	RoleRegular Role = iota
	// RoleDemo is the shared demo account with read-only data access.
	RoleDemo
	// RoleAdmin can reach the admin and management surfaces.
	RoleAdmin
	// RoleSuperAdmin holds every capability unconditionally.
	RoleSuperAdmin
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "super_admin"
	case RoleAdmin:
		return "admin"
	case RoleDemo:
		return "demo"
	case RoleRegular:
		return "regular"
	}
	return "regular"
}

// Allow-lists for role derivation. The super-admin and admin lists carry the
// same address today, which makes the plain admin branch unreachable through
// derivation; kept as-is until the product grows a second admin address.
var (
	SuperAdminEmails = []string{"admin@modulus.com"}
	AdminEmails      = []string{"admin@modulus.com"}
	DemoEmails       = []string{"demo@modulus.com"}
)

// RoleForEmail maps an email address to a role. Empty input means no
// identity and yields RoleRegular.
func RoleForEmail(email string) Role {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return RoleRegular
	}
	if containsEmail(SuperAdminEmails, email) {
		return RoleSuperAdmin
	}
	if containsEmail(AdminEmails, email) {
		return RoleAdmin
	}
	if containsEmail(DemoEmails, email) {
		return RoleDemo
	}
	return RoleRegular
}

// IsAdmin reports whether the role reaches admin surfaces.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin:
		return true
	case RoleDemo, RoleRegular:
		return false
	}
	return false
}

// CanAccessAdminRoutes gates the /admin surface.
func CanAccessAdminRoutes(r Role) bool {
	return r.IsAdmin()
}

// CanAccessManagement gates the management and user-log surfaces.
func CanAccessManagement(r Role) bool {
	return r.IsAdmin()
}

// CanModifyData reports whether the role may mutate tenant data. Super admin
// is exempt from the demo restriction.
func CanModifyData(r Role) bool {
	switch r {
	case RoleSuperAdmin:
		return true
	case RoleDemo:
		return false
	case RoleAdmin, RoleRegular:
		return true
	}
	return true
}

// CanDeleteData reports whether the role may delete tenant data.
func CanDeleteData(r Role) bool {
	switch r {
	case RoleSuperAdmin:
		return true
	case RoleDemo:
		return false
	case RoleAdmin, RoleRegular:
		return true
	}
	return true
}

// CanModifySettings reports whether the role may change tenant settings.
func CanModifySettings(r Role) bool {
	switch r {
	case RoleSuperAdmin:
		return true
	case RoleDemo:
		return false
	case RoleAdmin, RoleRegular:
		return true
	}
	return true
}

// Capabilities bundles the five capability booleans for one role.
type Capabilities struct {
	CanAccessAdminRoutes bool `json:"can_access_admin_routes"`
	CanAccessManagement  bool `json:"can_access_management"`
	CanModifyData        bool `json:"can_modify_data"`
	CanDeleteData        bool `json:"can_delete_data"`
	CanModifySettings    bool `json:"can_modify_settings"`
}

// CapabilitiesFor projects a role onto its capability set.
func CapabilitiesFor(r Role) Capabilities {
	return Capabilities{
		CanAccessAdminRoutes: CanAccessAdminRoutes(r),
		CanAccessManagement:  CanAccessManagement(r),
		CanModifyData:        CanModifyData(r),
		CanDeleteData:        CanDeleteData(r),
		CanModifySettings:    CanModifySettings(r),
	}
}

func containsEmail(list []string, email string) bool {
	for _, entry := range list {
		if strings.ToLower(strings.TrimSpace(entry)) == email {
			return true
		}
	}
	return false
}
