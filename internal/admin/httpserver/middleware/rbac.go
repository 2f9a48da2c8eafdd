package middleware

import (
	"context"
	"net/http"

	"finitefield.org/estate-admin/internal/admin/rbac"
)

// RequireCapability aborts the request with 403 when the authenticated user
// lacks capability.
func RequireCapability(capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Can(r.Context(), capability) {
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Can reports whether the request user holds capability.
func Can(ctx context.Context, capability rbac.Capability) bool {
	user, ok := UserFromContext(ctx)
	if !ok {
		return false
	}
	return rbac.HasCapability(user.Roles, capability)
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Reswap", "none")
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
