package authz_test

import (
	"testing"

	"github.com/dalemusser/groupshare/internal/app/system/authz"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		owner   bool
		want    authz.Role
		wantErr bool
	}{
		{"owner with admin membership", "admin", true, authz.RoleOwner, false},
		{"owner wins over member role", "member", true, authz.RoleOwner, false},
		{"admin", "admin", false, authz.RoleAdmin, false},
		{"member", "member", false, authz.RoleMember, false},
		{"unknown role", "leader", false, authz.RoleNone, true},
		{"empty role", "", false, authz.RoleNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authz.Derive(tt.role, tt.owner)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Derive(%q, %v) error = %v, wantErr %v", tt.role, tt.owner, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Derive(%q, %v) = %v, want %v", tt.role, tt.owner, got, tt.want)
			}
		})
	}
}

func TestRole_Can(t *testing.T) {
	perms := []authz.Permission{
		authz.PermViewGroup,
		authz.PermUploadPhoto,
		authz.PermDeletePhoto,
		authz.PermInvite,
		authz.PermManageMembers,
		authz.PermDeleteGroup,
	}

	// allowed[role] lists the permissions each role holds.
	allowed := map[authz.Role]map[authz.Permission]bool{
		authz.RoleOwner: {
			authz.PermViewGroup: true, authz.PermUploadPhoto: true, authz.PermDeletePhoto: true,
			authz.PermInvite: true, authz.PermManageMembers: true, authz.PermDeleteGroup: true,
		},
		authz.RoleAdmin: {
			authz.PermViewGroup: true, authz.PermUploadPhoto: true, authz.PermDeletePhoto: true,
			authz.PermInvite: true, authz.PermManageMembers: true,
		},
		authz.RoleMember: {
			authz.PermViewGroup: true,
		},
		authz.RoleNone: {},
	}

	for role, want := range allowed {
		for _, p := range perms {
			if got := role.Can(p); got != want[p] {
				t.Errorf("%v.Can(%v) = %v, want %v", role, p, got, want[p])
			}
		}
	}
}

func TestRole_Helpers(t *testing.T) {
	if !authz.RoleAdmin.CanUpload() || !authz.RoleAdmin.CanDeletePhoto() || !authz.RoleAdmin.CanInvite() {
		t.Error("admin should upload, delete photos and invite")
	}
	if authz.RoleAdmin.CanDeleteGroup() {
		t.Error("admin must not delete the group")
	}
	if !authz.RoleOwner.CanDeleteGroup() {
		t.Error("owner should delete the group")
	}
	if authz.RoleMember.CanManageMembers() {
		t.Error("member must not manage members")
	}
}

func TestRole_MembershipRole(t *testing.T) {
	tests := []struct {
		role authz.Role
		want string
	}{
		{authz.RoleOwner, "admin"},
		{authz.RoleAdmin, "admin"},
		{authz.RoleMember, "member"},
		{authz.RoleNone, ""},
	}
	for _, tt := range tests {
		if got := tt.role.MembershipRole(); got != tt.want {
			t.Errorf("%v.MembershipRole() = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestRole_String(t *testing.T) {
	if authz.RoleOwner.String() != "owner" || authz.RoleAdmin.String() != "admin" || authz.RoleMember.String() != "member" {
		t.Error("unexpected role strings")
	}
}
