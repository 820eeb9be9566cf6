package models

// Role is the canonical access role of a user account. Raw role strings from
// the spreadsheet are mapped onto this set during reconciliation; anything
// unrecognized lands on RoleDepartment.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleDepartment Role = "DEPARTMENT"
	RoleFinance    Role = "FINANCE"
	RoleAccounting Role = "ACCOUNTING"
	RoleDireksi    Role = "DIREKSI"
)

// AllRoles lists every valid role, used for input validation at the edge.
var AllRoles = []Role{RoleSuperAdmin, RoleDepartment, RoleFinance, RoleAccounting, RoleDireksi}

func (r Role) Valid() bool {
	for _, v := range AllRoles {
		if r == v {
			return true
		}
	}
	return false
}
