package domain

import "slices"

// Role is the coarse access level of a user or membership.
type Role string

const (
	RoleEditor  Role = "editor"
	RoleAnalyst Role = "analyst"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
)

const (
	PermDashboardRead      = "dashboard:read"
	PermAlertsRead         = "alerts:read"
	PermAlertsWrite        = "alerts:write"
	PermCalendarRead       = "calendar:read"
	PermCalendarWrite      = "calendar:write"
	PermAssetsRead         = "assets:read"
	PermPositionsRead      = "positions:read"
	PermTradingRead        = "trading:read"
	PermReportsExport      = "reports:export"
	PermTradingWrite       = "trading:write"
	PermUsersRead          = "users:read"
	PermUsersWrite         = "users:write"
	PermAuditRead          = "audit:read"
	PermSettingsWrite      = "settings:write"
	PermBillingRead        = "billing:read"
	PermBillingWrite       = "billing:write"
	PermOrganizationManage = "organization:manage"
	PermOrganizationDelete = "organization:delete"
)

// Each tier is written out as the previous tier plus its additions so the
// table stays flat at lookup time.
var (
	editorPermissions = []string{
		PermDashboardRead,
		PermAlertsRead,
		PermAlertsWrite,
		PermCalendarRead,
		PermCalendarWrite,
	}
	analystPermissions = slices.Concat(editorPermissions, []string{
		PermAssetsRead,
		PermPositionsRead,
		PermTradingRead,
		PermReportsExport,
	})
	adminPermissions = slices.Concat(analystPermissions, []string{
		PermTradingWrite,
		PermUsersRead,
		PermUsersWrite,
		PermAuditRead,
		PermSettingsWrite,
	})
	ownerPermissions = slices.Concat(adminPermissions, []string{
		PermBillingRead,
		PermBillingWrite,
		PermOrganizationManage,
		PermOrganizationDelete,
	})

	rolePermissions = map[Role][]string{
		RoleEditor:  editorPermissions,
		RoleAnalyst: analystPermissions,
		RoleAdmin:   adminPermissions,
		RoleOwner:   ownerPermissions,
	}
)

// Roles returns every known role, least privileged first.
func Roles() []Role {
	return []Role{RoleEditor, RoleAnalyst, RoleAdmin, RoleOwner}
}

// ParseRole accepts only the four known role names.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := rolePermissions[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

func (r Role) String() string { return string(r) }

// Permissions returns a copy of the role's permission set. Unknown roles
// resolve to an empty set, never to a privileged one.
func (r Role) Permissions() []string {
	perms, ok := rolePermissions[r]
	if !ok {
		return []string{}
	}
	return slices.Clone(perms)
}

// Has reports whether the role grants perm.
func (r Role) Has(perm string) bool {
	return slices.Contains(rolePermissions[r], perm)
}
