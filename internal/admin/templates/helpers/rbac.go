package helpers

import (
	"context"

	"finitefield.org/estate-admin/internal/admin/httpserver/middleware"
	"finitefield.org/estate-admin/internal/admin/rbac"
)

// HasCapability reports whether the authenticated user possesses the capability.
func HasCapability(ctx context.Context, capability rbac.Capability) bool {
	return middleware.Can(ctx, capability)
}

// UserLabel returns the signed-in user's email, or the uid when no email is known.
func UserLabel(ctx context.Context) string {
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return ""
	}
	if user.Email != "" {
		return user.Email
	}
	return user.UID
}
