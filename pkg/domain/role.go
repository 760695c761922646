package domain

import dErrors "sigil/pkg/domain-errors"

// Role is the access level attached to an authentication record. Profiles do
// not carry a role; role-scoped profile queries join through the identity
// store.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var validRoles = map[Role]bool{
	RoleUser:  true,
	RoleAdmin: true,
}

// ParseRole constructs a Role from external input.
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks whether the role is a supported enum value.
func (r Role) IsValid() bool {
	return validRoles[r]
}
