package access

import "strings"

// Protected route prefixes. Matching is case-sensitive and the admin set is
// evaluated first: a path matching both sets is treated as admin-protected
// only.
var (
	ProtectedAdminRoutes = []string{
		"/admin",
		"/admin/diagnostics",
		"/admin/helpdesk",
		"/admin/live-support",
	}
	ProtectedManagementRoutes = []string{
		"/management",
		"/user-logs",
	}
)

// IsProtectedRoute reports whether the path falls under a protected prefix.
func IsProtectedRoute(path string) bool {
	return matchesPrefix(ProtectedAdminRoutes, path) || matchesPrefix(ProtectedManagementRoutes, path)
}

// CanAccessRoute decides whether the identity behind email may navigate to
// path. Unprotected paths are always allowed.
func CanAccessRoute(path, email string) bool {
	role := RoleForEmail(email)
	if matchesPrefix(ProtectedAdminRoutes, path) {
		return CanAccessAdminRoutes(role)
	}
	if matchesPrefix(ProtectedManagementRoutes, path) {
		return CanAccessManagement(role)
	}
	return true
}

// matchesPrefix is a raw prefix comparison: "/admin" covers "/admin",
// "/admin/users" and also "/administer". Erring on the side of protecting
// too much beats leaking an unanticipated admin path.
func matchesPrefix(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
