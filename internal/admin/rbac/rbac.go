package rbac

import (
	"slices"
	"strings"
)

// Role represents a staff access tier.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleMarketing Role = "marketing"
	RoleSales     Role = "sales"
	RoleViewer    Role = "viewer"
)

// Capability is a discrete permission checked by routes and templates.
type Capability string

const (
	CapBannersView   Capability = "banners.view"
	CapBannersManage Capability = "banners.manage"
	CapBannersHero   Capability = "banners.hero"
)

var capabilityRoles = map[Capability]Roles{
	CapBannersView:   {RoleAdmin, RoleMarketing, RoleSales, RoleViewer},
	CapBannersManage: {RoleAdmin, RoleMarketing},
	CapBannersHero:   {RoleAdmin, RoleMarketing},
}

// Roles is a role set with intersection checks.
type Roles []Role

// Has returns true if the provided role exists in the set.
func (rs Roles) Has(role Role) bool {
	return slices.Contains(rs, role)
}

// Intersects returns true if any candidate role is also in the set.
func (rs Roles) Intersects(candidate Roles) bool {
	for _, role := range candidate {
		if rs.Has(role) {
			return true
		}
	}
	return false
}

// NormaliseRoles lowercases, trims and dedups raw role strings.
func NormaliseRoles(raw []string) Roles {
	if len(raw) == 0 {
		return nil
	}
	roles := make(Roles, 0, len(raw))
	for _, val := range raw {
		role := Role(strings.ToLower(strings.TrimSpace(val)))
		if role == "" || roles.Has(role) {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

// HasAnyRole reports whether userRoles intersect required. Admins always pass.
func HasAnyRole(userRoles []string, required Roles) bool {
	roles := NormaliseRoles(userRoles)
	if roles.Has(RoleAdmin) {
		return true
	}
	return required.Intersects(roles)
}

// HasCapability reports whether the roles grant capability. Admin users hold
// every defined capability; undefined capabilities are denied to everyone.
func HasCapability(userRoles []string, capability Capability) bool {
	if capability == "" {
		return true
	}
	allowed, ok := capabilityRoles[capability]
	if !ok {
		return false
	}
	roles := NormaliseRoles(userRoles)
	if roles.Has(RoleAdmin) {
		return true
	}
	return allowed.Intersects(roles)
}

// CapabilitiesForRoles enumerates the capabilities granted to userRoles.
func CapabilitiesForRoles(userRoles []string) map[Capability]bool {
	caps := make(map[Capability]bool, len(capabilityRoles))
	for capability := range capabilityRoles {
		if HasCapability(userRoles, capability) {
			caps[capability] = true
		}
	}
	return caps
}
