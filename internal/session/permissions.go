package session

// Capabilities checked throughout the console. Visibility and route guarding
// go through these rather than comparing role strings at every call site.
const (
	PermManagePosts        = "posts.manage"
	PermManagePages        = "pages.manage"
	PermManageTags         = "tags.manage"
	PermManageEmployees    = "employees.manage"
	PermManageTestimonials = "testimonials.manage"
	PermManagePartners     = "partners.manage"
	PermManageMenus        = "menus.manage"
	PermManageUsers        = "users.manage"
	PermManageSettings     = "settings.manage"
	PermManageAdmins       = "admins.manage"
)

// Content capabilities every staff role holds.
var basePermissions = []string{
	PermManagePosts,
	PermManagePages,
	PermManageTags,
	PermManageEmployees,
	PermManageTestimonials,
	PermManagePartners,
}

// PermissionsForRole expands a role into its capability set. Admins add
// menus, users and settings; superadmins additionally manage admin accounts.
// Unknown roles get the base content set.
func PermissionsForRole(role string) []string {
	perms := make([]string, len(basePermissions))
	copy(perms, basePermissions)

	switch role {
	case "superadmin":
		perms = append(perms, PermManageMenus, PermManageUsers, PermManageSettings, PermManageAdmins)
	case "admin":
		perms = append(perms, PermManageMenus, PermManageUsers, PermManageSettings)
	}

	return perms
}
