package helpers

import (
	"context"
	"strings"

	"finitefield.org/estate-admin/internal/admin/httpserver/middleware"
)

// BasePath returns the configured admin base path.
func BasePath(ctx context.Context) string {
	return normalizeRoute(middleware.BasePathFromContext(ctx))
}

// Path joins suffix onto the admin base path.
func Path(ctx context.Context, suffix string) string {
	return JoinPath(BasePath(ctx), suffix)
}

// JoinPath joins suffix onto base, collapsing duplicate slashes.
func JoinPath(base, suffix string) string {
	base = normalizeRoute(base)
	if !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}
	if base == "/" {
		return suffix
	}
	return base + suffix
}

// EnvironmentBadge returns the short label shown in the topbar.
func EnvironmentBadge(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return "PRD"
	case "staging", "stage", "stg":
		return "STG"
	case "", "development", "dev", "local":
		return "DEV"
	default:
		env = strings.ToUpper(env)
		if len(env) > 3 {
			env = env[:3]
		}
		return env
	}
}

func normalizeRoute(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
