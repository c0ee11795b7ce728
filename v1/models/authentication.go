package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims carried by an auth-provider access token
type SessionClaims struct {
	Email        string                 `json:"email,omitempty"`
	Role         string                 `json:"role,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// AppRole returns the application role stored in app_metadata, if any.
// The top-level "role" claim is the provider's own session role and is ignored.
func (c *SessionClaims) AppRole() (Role, bool) {
	if c.AppMetadata == nil {
		return "", false
	}
	raw, ok := c.AppMetadata["role"].(string)
	if !ok {
		return "", false
	}
	return ParseRole(raw)
}

// AuthenticatedUser is the verified caller together with its effective access
type AuthenticatedUser struct {
	IdentityID string
	Email      string
	Role       Role
	Department string
	Position   string
	Scope      Scope
	HasProfile bool
}

// NewAuthenticatedUser resolves the effective role and scope of a caller.
// The profile is authoritative; without one, the token's app role is used.
// The stronger of the role and the position classification wins.
func NewAuthenticatedUser(claims *SessionClaims, profile *Profile, classifier *PositionClassifier) *AuthenticatedUser {
	user := &AuthenticatedUser{
		IdentityID: claims.Subject,
		Email:      claims.Email,
		Role:       RoleMember,
	}

	if profile != nil {
		user.HasProfile = true
		user.Role = profile.Role
		user.Department = profile.Department
		user.Position = profile.Position
		if user.Email == "" {
			user.Email = profile.Email
		}
	} else if role, ok := claims.AppRole(); ok {
		user.Role = role
	}

	if !user.Role.IsValid() {
		user.Role = RoleMember
	}
	user.Scope = RoleScopes[user.Role]

	if classifier != nil {
		access := classifier.Access(user.Role, user.Position)
		user.Role, user.Scope = access.Role, access.Scope
	}

	return user
}

// HasPermission checks if the caller's effective role grants permission
func (u *AuthenticatedUser) HasPermission(permission Permission) bool {
	return u.Role.HasPermission(permission)
}

// IsSuperScoped reports whether the caller may act on every department
func (u *AuthenticatedUser) IsSuperScoped() bool {
	return u.Scope == ScopeAll
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Scope   Scope
	Reason  string
}

// Authorize decides whether the caller may use permission on a resource that
// belongs to department. Department-scoped callers only reach their own
// department; an empty target department is never theirs.
func (u *AuthenticatedUser) Authorize(permission Permission, department string) Decision {
	if !u.HasPermission(permission) {
		return Decision{Scope: u.Scope, Reason: "missing permission " + string(permission)}
	}

	switch u.Scope {
	case ScopeAll:
		return Decision{Allowed: true, Scope: ScopeAll}
	case ScopeDepartment:
		if u.Department != "" && strings.EqualFold(strings.TrimSpace(department), u.Department) {
			return Decision{Allowed: true, Scope: ScopeDepartment}
		}
		return Decision{Scope: ScopeDepartment, Reason: "resource is outside the caller's department"}
	default:
		return Decision{Scope: ScopeNone, Reason: "caller has no management scope"}
	}
}

// CanAssignRole reports whether the caller may grant role to someone else.
// Only super-scoped callers may grant admin.
func (u *AuthenticatedUser) CanAssignRole(role Role) bool {
	if role == RoleAdmin {
		return u.IsSuperScoped()
	}
	return u.Scope != ScopeNone
}

// CanGrant reports whether the caller may hand out access. Anything that
// reaches every department needs a super-scoped caller.
func (u *AuthenticatedUser) CanGrant(access Classification) bool {
	if access.IsSuperScoped() {
		return u.IsSuperScoped()
	}
	return u.CanAssignRole(access.Role)
}
