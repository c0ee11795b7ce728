package models

import "strings"

// Role is the coarse authorization role stored on a profile
type Role string

const (
	RoleMember         Role = "member"
	RoleDepartmentHead Role = "department_head"
	RoleAdmin          Role = "admin"
)

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// HasPermission checks if the role has the given permission
func (r Role) HasPermission(permission Permission) bool {
	for _, p := range RolePermissions[r] {
		if p == permission {
			return true
		}
	}
	return false
}

// Outranks reports whether r carries more privilege than other
func (r Role) Outranks(other Role) bool {
	return roleRank[r] > roleRank[other]
}

var roleRank = map[Role]int{
	RoleMember:         0,
	RoleDepartmentHead: 1,
	RoleAdmin:          2,
}

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// AuthProvider records how a profile's identity signs in
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderSSO    AuthProvider = "sso"
	AuthProviderAzure  AuthProvider = "azure"
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderGitHub AuthProvider = "github"
)

// IsValid checks if the provider is supported
func (p AuthProvider) IsValid() bool {
	switch p {
	case AuthProviderLocal, AuthProviderSSO, AuthProviderAzure, AuthProviderGoogle, AuthProviderGitHub:
		return true
	}
	return false
}

// Permission represents a single privileged capability
type Permission string

const (
	PermissionManageSelf      Permission = "profile:self"
	PermissionReadFiles       Permission = "file:read"
	PermissionWriteFiles      Permission = "file:write"
	PermissionDeleteAnyFile   Permission = "file:delete"
	PermissionUpload          Permission = "upload:create"
	PermissionReadUsers       Permission = "user:read"
	PermissionManageUsers     Permission = "user:manage"
	PermissionReadWhitelist   Permission = "whitelist:read"
	PermissionManageWhitelist Permission = "whitelist:manage"
	PermissionWriteReports    Permission = "report:write"
	PermissionWriteGallery    Permission = "gallery:write"
	PermissionReadContacts    Permission = "contact:read"
)

var memberPermissions = []Permission{
	PermissionManageSelf, PermissionReadFiles, PermissionWriteFiles, PermissionUpload,
}

var managerPermissions = []Permission{
	PermissionReadUsers, PermissionManageUsers,
	PermissionReadWhitelist, PermissionManageWhitelist,
	PermissionWriteReports, PermissionWriteGallery,
	PermissionDeleteAnyFile,
}

// RolePermissions defines what permissions each role has
var RolePermissions = map[Role][]Permission{
	RoleMember:         memberPermissions,
	RoleDepartmentHead: concatPermissions(memberPermissions, managerPermissions),
	RoleAdmin:          concatPermissions(memberPermissions, managerPermissions, []Permission{PermissionReadContacts}),
}

func concatPermissions(groups ...[]Permission) []Permission {
	var out []Permission
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Scope is how far a caller's management permissions reach
type Scope string

const (
	ScopeNone       Scope = "none"
	ScopeDepartment Scope = "department"
	ScopeAll        Scope = "all"
)

var scopeRank = map[Scope]int{
	ScopeNone:       0,
	ScopeDepartment: 1,
	ScopeAll:        2,
}

// Wider returns whichever of s and other reaches further
func (s Scope) Wider(other Scope) Scope {
	if scopeRank[other] > scopeRank[s] {
		return other
	}
	return s
}

// RoleScopes is the default scope granted by each role
var RoleScopes = map[Role]Scope{
	RoleMember:         ScopeNone,
	RoleDepartmentHead: ScopeDepartment,
	RoleAdmin:          ScopeAll,
}
