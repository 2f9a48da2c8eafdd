package ui

import (
	"net/http"

	"finitefield.org/estate-admin/internal/admin/banners"
	custommw "finitefield.org/estate-admin/internal/admin/httpserver/middleware"
	"finitefield.org/estate-admin/internal/admin/uploads"
)

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	Controller     *banners.Controller
	Registry       *banners.Registry
	MaxUploadBytes int64
}

// Handlers exposes HTTP handlers for admin UI pages and fragments.
type Handlers struct {
	controller *banners.Controller
	registry   *banners.Registry
	maxUpload  int64
}

// NewHandlers wires the UI handler set. Missing dependencies fall back to the
// seeded static backend and a private editor registry.
func NewHandlers(deps Dependencies) *Handlers {
	controller := deps.Controller
	if controller == nil {
		controller = banners.NewController(banners.NewStaticService(), nil, nil)
	}
	registry := deps.Registry
	if registry == nil {
		registry = banners.NewRegistry()
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = uploads.DefaultMaxBytes
	}
	return &Handlers{
		controller: controller,
		registry:   registry,
		maxUpload:  maxUpload,
	}
}

// Home sends the console root to the banner editor.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, joinBasePath(custommw.BasePathFromContext(r.Context()), "/banners"), http.StatusFound)
}
