package enums

import "fmt"

// MemberRole is a user's role within an organization.
type MemberRole string

const (
	MemberRoleAdmin   MemberRole = "admin"
	MemberRoleManager MemberRole = "manager"
	MemberRoleMember  MemberRole = "member"
)

func (r MemberRole) String() string {
	return string(r)
}

func (r MemberRole) IsValid() bool {
	switch r {
	case MemberRoleAdmin, MemberRoleManager, MemberRoleMember:
		return true
	}
	return false
}

func ParseMemberRole(value string) (MemberRole, error) {
	role := MemberRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid member role %q", value)
	}
	return role, nil
}
