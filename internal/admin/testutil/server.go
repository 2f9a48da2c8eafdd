package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"finitefield.org/estate-admin/internal/admin/banners"
	"finitefield.org/estate-admin/internal/admin/httpserver"
	"finitefield.org/estate-admin/internal/admin/httpserver/middleware"
	"finitefield.org/estate-admin/internal/admin/session"
	"finitefield.org/estate-admin/internal/admin/uploads"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator used by the admin server.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BasePath = path
	}
}

// WithService drives the editor against a custom banner backend.
func WithService(service banners.Service) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Controller = banners.NewController(service, uploads.NewMemoryUploader("/uploads", 0), nil)
	}
}

// WithController wires a fully configured controller.
func WithController(controller *banners.Controller) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Controller = controller
	}
}

// WithMaxUploadBytes lowers the hero image limit.
func WithMaxUploadBytes(limit int64) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.MaxUploadBytes = limit
	}
}

// NewServer constructs an httptest server running the admin HTTP stack with
// the seeded static backend and an in-memory uploader.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	hashKey, blockKey := session.GenerateKeys()
	store, err := session.NewManager(session.Config{HashKey: hashKey, BlockKey: blockKey})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	uploader := uploads.NewMemoryUploader("/uploads", 0)
	cfg := httpserver.Config{
		Address:        ":0",
		BasePath:       "/admin",
		CSRFCookieName: "csrf_token",
		CSRFHeaderName: "X-CSRF-Token",
		Logger:         zaptest.NewLogger(t),
		Authenticator:  middleware.DefaultAuthenticator(),
		SessionStore:   store,
		Controller:     banners.NewController(banners.NewStaticService(), uploader, nil),
		UploadsHandler: uploader,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client that keeps cookies between requests and does
// not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
