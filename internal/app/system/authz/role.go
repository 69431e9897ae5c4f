// internal/app/system/authz/role.go
package authz

import (
	"fmt"

	"github.com/dalemusser/groupshare/internal/domain/models"
)

// Role is what a user is within one group. It folds the stored membership
// role and group ownership into a single closed set, derived once per
// request.
type Role int

const (
	RoleNone Role = iota // zero value; never granted anything
	RoleMember
	RoleAdmin
	RoleOwner
)

// Derive computes the Role from a stored membership role and whether the
// user owns the group. An owner is always treated as Owner, even if the
// stored membership role were somehow "member".
func Derive(membershipRole string, isOwner bool) (Role, error) {
	if isOwner {
		return RoleOwner, nil
	}
	switch membershipRole {
	case models.MembershipRoleAdmin:
		return RoleAdmin, nil
	case models.MembershipRoleMember:
		return RoleMember, nil
	default:
		return RoleNone, fmt.Errorf("unknown membership role %q", membershipRole)
	}
}

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleMember:
		return "member"
	default:
		return "none"
	}
}

// MarshalText encodes r as its String form.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// MembershipRole is the stored role behind r. Owners hold an admin membership.
func (r Role) MembershipRole() string {
	switch r {
	case RoleOwner, RoleAdmin:
		return models.MembershipRoleAdmin
	case RoleMember:
		return models.MembershipRoleMember
	default:
		return ""
	}
}

// IsOwner reports whether r is the group's owner.
func (r Role) IsOwner() bool { return r == RoleOwner }

// Permission is an action gated by role within the active group.
type Permission int

const (
	PermViewGroup Permission = iota
	PermUploadPhoto
	PermDeletePhoto
	PermInvite
	PermManageMembers
	PermDeleteGroup
)

func (p Permission) String() string {
	switch p {
	case PermViewGroup:
		return "view_group"
	case PermUploadPhoto:
		return "upload_photo"
	case PermDeletePhoto:
		return "delete_photo"
	case PermInvite:
		return "invite"
	case PermManageMembers:
		return "manage_members"
	case PermDeleteGroup:
		return "delete_group"
	default:
		return "unknown"
	}
}

// Can reports whether r grants p.
func (r Role) Can(p Permission) bool {
	switch r {
	case RoleOwner:
		return true
	case RoleAdmin:
		return p != PermDeleteGroup
	case RoleMember:
		return p == PermViewGroup
	default:
		return false
	}
}

func (r Role) CanUpload() bool        { return r.Can(PermUploadPhoto) }
func (r Role) CanDeletePhoto() bool   { return r.Can(PermDeletePhoto) }
func (r Role) CanInvite() bool        { return r.Can(PermInvite) }
func (r Role) CanManageMembers() bool { return r.Can(PermManageMembers) }
func (r Role) CanDeleteGroup() bool   { return r.Can(PermDeleteGroup) }
