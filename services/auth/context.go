package auth

import (
	"github.com/tech-arch1tect/authority/services/jwt"
	"github.com/tech-arch1tect/authority/services/permissions"
)

// Auth is the identity of the caller of one request, decoded from its access
// token. Roles and permissions are the ones baked into the token at issuance.
type Auth struct {
	UserID      uint
	Roles       []string
	Permissions []permissions.Permission

	roles       map[string]struct{}
	permissions map[string]struct{}
}

func NewAuth(userID uint, roles []string, perms []permissions.Permission) *Auth {
	a := &Auth{
		UserID:      userID,
		Roles:       roles,
		Permissions: perms,
		roles:       make(map[string]struct{}, len(roles)),
		permissions: make(map[string]struct{}, len(perms)),
	}

	for _, r := range roles {
		a.roles[r] = struct{}{}
	}
	for _, p := range perms {
		a.permissions[p.Permission] = struct{}{}
	}

	return a
}

func AuthFromClaims(claims *jwt.AccessClaims) *Auth {
	return NewAuth(claims.Subject, claims.Roles, claims.Permissions)
}

// HasPermission matches by permission name; the role it came from is
// irrelevant.
func (a *Auth) HasPermission(permission string) bool {
	_, ok := a.permissions[permission]
	return ok
}

func (a *Auth) HasAllPermissions(perms []string) bool {
	for _, p := range perms {
		if !a.HasPermission(p) {
			return false
		}
	}
	return true
}

func (a *Auth) HasAnyPermission(perms []string) bool {
	for _, p := range perms {
		if a.HasPermission(p) {
			return true
		}
	}
	return false
}

func (a *Auth) HasRole(role string) bool {
	_, ok := a.roles[role]
	return ok
}

func (a *Auth) HasAllRoles(roles []string) bool {
	for _, r := range roles {
		if !a.HasRole(r) {
			return false
		}
	}
	return true
}

func (a *Auth) HasAnyRoles(roles []string) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}
