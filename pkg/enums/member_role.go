package enums

// MemberRole is the store membership role carried in marketplace access
// tokens. Ledger admin endpoints require MemberRoleAdmin; vendor earnings only
// need a vendor store context.
type MemberRole string

const (
	MemberRoleOwner   MemberRole = "owner"
	MemberRoleAdmin   MemberRole = "admin"
	MemberRoleManager MemberRole = "manager"
	MemberRoleViewer  MemberRole = "viewer"
	MemberRoleAgent   MemberRole = "agent"
	MemberRoleStaff   MemberRole = "staff"
	MemberRoleOps     MemberRole = "ops"
)

var memberRoles = map[MemberRole]struct{}{
	MemberRoleOwner:   {},
	MemberRoleAdmin:   {},
	MemberRoleManager: {},
	MemberRoleViewer:  {},
	MemberRoleAgent:   {},
	MemberRoleStaff:   {},
	MemberRoleOps:     {},
}

func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a role the marketplace issues. Tokens
// with any other role are rejected at parse time.
func (m MemberRole) IsValid() bool {
	_, ok := memberRoles[m]
	return ok
}
