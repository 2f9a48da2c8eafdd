package config

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultAddress         = ":8080"
	defaultBasePath        = "/admin"
	defaultEnvironment     = "development"
	defaultBackend         = BackendStatic
	defaultUploadMaxBytes  = 5 << 20
	defaultEditorIdleTTL   = 2 * time.Hour
	defaultSweepInterval   = 10 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
	defaultBackendTimeout  = 10 * time.Second
	defaultLogLevel        = "info"
)

// Backend selects the banners.Service implementation.
type Backend string

const (
	BackendHTTP      Backend = "http"
	BackendFirestore Backend = "firestore"
	BackendStatic    Backend = "static"
)

// Config captures the admin console runtime configuration.
type Config struct {
	Server   ServerConfig
	Session  SessionConfig
	Firebase FirebaseConfig
	Banners  BannersConfig
	Uploads  UploadsConfig
	Log      LogConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string
	BasePath        string
	Environment     string
	ShutdownTimeout time.Duration
}

// SessionConfig holds the securecookie keys. Empty keys mean random keys per process.
type SessionConfig struct {
	HashKey  []byte
	BlockKey []byte
	Secure   bool
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// BannersConfig configures the banner editor backend.
type BannersConfig struct {
	Backend        Backend
	APIBaseURL     string
	BackendTimeout time.Duration
	EditorIdleTTL  time.Duration
	SweepInterval  time.Duration
}

// UploadsConfig configures hero image storage.
type UploadsConfig struct {
	Bucket   string
	MaxBytes int64
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, the .env file and the environment.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	var invalid []string
	environment := strings.ToLower(stringWithDefault(lookup, "ADMIN_ENVIRONMENT", defaultEnvironment))

	hashKey, err := keyWithDefault(lookup, "ADMIN_SESSION_HASH_KEY")
	if err != nil {
		invalid = append(invalid, "Session.HashKey")
	}
	blockKey, err := keyWithDefault(lookup, "ADMIN_SESSION_BLOCK_KEY")
	if err != nil {
		invalid = append(invalid, "Session.BlockKey")
	}

	cfg := Config{
		Server: ServerConfig{
			Address:         stringWithDefault(lookup, "ADMIN_HTTP_ADDR", defaultAddress),
			BasePath:        stringWithDefault(lookup, "ADMIN_BASE_PATH", defaultBasePath),
			Environment:     environment,
			ShutdownTimeout: durationWithDefault(lookup, "ADMIN_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Session: SessionConfig{
			HashKey:  hashKey,
			BlockKey: blockKey,
			Secure:   boolWithDefault(lookup, "ADMIN_SESSION_SECURE", environment == "production"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Banners: BannersConfig{
			Backend:        Backend(strings.ToLower(stringWithDefault(lookup, "ADMIN_BANNERS_BACKEND", string(defaultBackend)))),
			APIBaseURL:     stringWithDefault(lookup, "ADMIN_API_BASE_URL", ""),
			BackendTimeout: durationWithDefault(lookup, "ADMIN_API_TIMEOUT", defaultBackendTimeout),
			EditorIdleTTL:  durationWithDefault(lookup, "ADMIN_EDITOR_IDLE_TTL", defaultEditorIdleTTL),
			SweepInterval:  durationWithDefault(lookup, "ADMIN_EDITOR_SWEEP_INTERVAL", defaultSweepInterval),
		},
		Uploads: UploadsConfig{
			Bucket:   stringWithDefault(lookup, "ADMIN_STORAGE_BUCKET", ""),
			MaxBytes: int64(intWithDefault(lookup, "ADMIN_UPLOAD_MAX_BYTES", defaultUploadMaxBytes)),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		},
	}

	if err := validateConfig(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	fields := append([]string(nil), invalid...)

	if strings.TrimSpace(cfg.Server.Address) == "" {
		fields = append(fields, "Server.Address")
	}
	if !strings.HasPrefix(cfg.Server.BasePath, "/") {
		fields = append(fields, "Server.BasePath")
	}
	switch cfg.Banners.Backend {
	case BackendStatic:
	case BackendHTTP:
		if cfg.Banners.APIBaseURL == "" {
			fields = append(fields, "Banners.APIBaseURL")
		}
	case BackendFirestore:
		if cfg.Firebase.ProjectID == "" {
			fields = append(fields, "Firebase.ProjectID")
		}
	default:
		fields = append(fields, "Banners.Backend")
	}
	if cfg.Banners.EditorIdleTTL <= 0 {
		fields = append(fields, "Banners.EditorIdleTTL")
	}
	if cfg.Uploads.MaxBytes <= 0 {
		fields = append(fields, "Uploads.MaxBytes")
	}
	if len(cfg.Session.HashKey) > 0 && len(cfg.Session.HashKey) < 32 {
		fields = append(fields, "Session.HashKey")
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		fields = append(fields, "Session.BlockKey")
	}

	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

// keyWithDefault decodes a base64 key; an unset key yields nil.
func keyWithDefault(lookup func(string) (string, bool), key string) ([]byte, error) {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("config: %s must be base64: %w", key, err)
	}
	return decoded, nil
}
