package domain

// Role is the caller's role for authorization decisions. RoleNone is the
// absence of a role and always denies.
type Role string

// Known roles.
const (
	RoleNone     Role = ""
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// String returns the role as a string, with "null" for the absent role.
func (r Role) String() string {
	if r == RoleNone {
		return "null"
	}
	return string(r)
}

// RolePolicy holds the allow and deny pattern lists for one role.
// Patterns are literal action strings, the global "*" wildcard, or the
// "ns:*" prefix wildcard.
type RolePolicy struct {
	Allowlist []string `json:"allowlist" yaml:"allowlist"`
	Denylist  []string `json:"denylist" yaml:"denylist"`
}

// AuthPolicy maps roles to their pattern lists.
type AuthPolicy struct {
	Version int                 `json:"version" yaml:"version"`
	Roles   map[Role]RolePolicy `json:"roles" yaml:"roles"`
}
