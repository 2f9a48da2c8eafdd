package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/estate-admin/internal/admin/banners"
	custommw "finitefield.org/estate-admin/internal/admin/httpserver/middleware"
	"finitefield.org/estate-admin/internal/admin/httpserver/ui"
	"finitefield.org/estate-admin/internal/admin/observability"
	"finitefield.org/estate-admin/internal/admin/rbac"
	"finitefield.org/estate-admin/internal/admin/uploads"
	"finitefield.org/estate-admin/public"
)

// uploadOverhead leaves room for the multipart envelope and form fields
// around a maximum-size image.
const uploadOverhead = 1 << 20

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address       string
	BasePath      string
	LoginPath     string
	Environment   string
	Logger        *zap.Logger
	Authenticator custommw.Authenticator
	SessionStore  custommw.SessionStore

	Controller     *banners.Controller
	Registry       *banners.Registry
	MaxUploadBytes int64
	// UploadsHandler serves locally stored images under /uploads when object
	// storage is not configured. It sees paths relative to /uploads.
	UploadsHandler http.Handler

	CSRFCookieName   string
	CSRFCookiePath   string
	CSRFCookieSecure bool
	CSRFHeaderName   string
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}

// NewHandler builds the router without binding a listener.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.SessionStore == nil {
		return nil, fmt.Errorf("httpserver: session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.RequestLogger)
	router.Use(observability.Recovery)
	router.Use(chimw.Timeout(60 * time.Second))

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("embed static: %w", err)
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.UploadsHandler != nil {
		router.Handle("/uploads/*", http.StripPrefix("/uploads", cfg.UploadsHandler))
	}

	basePath := normalizeBasePath(cfg.BasePath)
	loginPath := resolveLoginPath(basePath, cfg.LoginPath)

	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = custommw.DefaultAuthenticator()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = banners.NewRegistry(banners.WithRegistryLogger(logger))
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = uploads.DefaultMaxBytes
	}

	mountAdminRoutes(router, basePath, routeOptions{
		Authenticator: authenticator,
		LoginPath:     loginPath,
		Environment:   cfg.Environment,
		Sessions:      cfg.SessionStore,
		MaxBodyBytes:  maxUpload + uploadOverhead,
		SecureCookies: cfg.CSRFCookieSecure,
		CSRF: custommw.CSRFConfig{
			CookieName: cfg.CSRFCookieName,
			CookiePath: firstNonEmpty(cfg.CSRFCookiePath, basePath),
			HeaderName: cfg.CSRFHeaderName,
			Secure:     cfg.CSRFCookieSecure,
		},
		Registry: registry,
		UI: ui.NewHandlers(ui.Dependencies{
			Controller:     cfg.Controller,
			Registry:       registry,
			MaxUploadBytes: maxUpload,
		}),
	})
	return router, nil
}

type routeOptions struct {
	Authenticator custommw.Authenticator
	LoginPath     string
	Environment   string
	Sessions      custommw.SessionStore
	MaxBodyBytes  int64
	SecureCookies bool
	CSRF          custommw.CSRFConfig
	Registry      *banners.Registry
	UI            *ui.Handlers
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	authHandlers := newAuthHandlers(opts.Authenticator, opts.Registry, base, opts.LoginPath, opts.SecureCookies)
	h := opts.UI

	admin := chi.NewRouter()
	admin.Use(custommw.HTMX())
	admin.Use(custommw.NoStore())
	admin.Use(custommw.BodyLimit(opts.MaxBodyBytes))
	admin.Use(custommw.Session(opts.Sessions))
	admin.Use(custommw.RequestInfoMiddleware(base, opts.Environment))
	admin.Use(custommw.CSRF(opts.CSRF))

	admin.Get("/login", authHandlers.LoginForm)
	admin.Post("/login", authHandlers.LoginSubmit)
	admin.Post("/logout", authHandlers.Logout)

	admin.Group(func(r chi.Router) {
		r.Use(custommw.Auth(opts.Authenticator, opts.LoginPath))
		r.Use(custommw.RequireCapability(rbac.CapBannersView))

		r.Get("/", h.Home)
		r.Get("/banners", h.BannersPage)
		r.Post("/banners/city", h.BannersSelectCity)
		r.Post("/banners/reload", h.BannersReload)
		r.Post("/banners/menu", h.BannersToggleMenu)

		r.Group(func(r chi.Router) {
			r.Use(custommw.RequireCapability(rbac.CapBannersManage))

			r.Post("/banners/save", h.BannersSave)
			r.Post("/banners/picker/toggle", h.BannersPickerToggle)
			r.Post("/banners/picker/select-all", h.BannersPickerSelectAll)
			r.Post("/banners/picker/filter", h.BannersPickerFilter)
			r.Post("/banners/picker/page", h.BannersPickerPage)
			r.Post("/banners/picker/confirm", h.BannersPickerConfirm)
			r.Post("/banners/picker/cancel", h.BannersPickerCancel)
			r.Post("/banners/{section}/picker", h.BannersOpenPicker)
			r.Post("/banners/{section}/remove", h.BannersRemove)
			r.Post("/banners/{section}/remove-selected", h.BannersRemoveSelected)
			r.Post("/banners/{section}/selection/toggle", h.BannersSelectionToggle)
			r.Post("/banners/{section}/selection/all", h.BannersSelectionAll)
			r.Post("/banners/{section}/selection/clear", h.BannersSelectionClear)
		})

		r.Group(func(r chi.Router) {
			r.Use(custommw.RequireCapability(rbac.CapBannersHero))

			r.Post("/banners/hero", h.BannersHeroSave)
			r.Post("/banners/hero/delete", h.BannersHeroDelete)
			r.Post("/banners/hero/form", h.BannersHeroForm)
			r.Post("/banners/hero/form/close", h.BannersHeroFormClose)
			r.Post("/banners/hero/image", h.BannersHeroImage)
			r.Get("/banners/hero/preview/{token}", h.BannersHeroPreview)
		})
	})

	router.Mount(base, admin)
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	return normalizeBase(p)
}

func resolveLoginPath(base string, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return joinPath(base, "/login")
}

func joinPath(base, suffix string) string {
	if base == "/" || base == "" {
		return suffix
	}
	return strings.TrimRight(base, "/") + suffix
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
