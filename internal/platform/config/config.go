package config

import (
	"bufio"
	"context"
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
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultEnvironment     = "local"
	defaultSessionTTL      = 30 * time.Minute
	defaultCleanupInterval = time.Minute
	defaultTemplatesDir    = "templates"
	defaultPublicDir       = "public"
	defaultLocalesDir      = "locales"
	defaultContentDir      = "content"
	defaultLocale          = "id"
	defaultRatePerSecond   = 10
	defaultRateBurst       = 20
	defaultNavMaxDepth     = 32
	minSigningKeyLength    = 16
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Dev         bool
	Server      ServerConfig
	Session     SessionConfig
	Catalog     CatalogConfig
	Assets      AssetsConfig
	I18n        I18nConfig
	RateLimit   RateLimitConfig
	Nav         NavConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SessionConfig controls the signed cookie and the in-memory session store.
type SessionConfig struct {
	SigningKey      string
	TTL             time.Duration
	CleanupInterval time.Duration
	SecureCookie    bool
}

// CatalogConfig points at the catalog definitions.
type CatalogConfig struct {
	File     string // blank uses the embedded default
	SeedCart bool
}

// AssetsConfig lists the on-disk directories served or parsed at runtime.
type AssetsConfig struct {
	TemplatesDir string
	PublicDir    string
	ContentDir   string
}

// I18nConfig configures locale resolution.
type I18nConfig struct {
	LocalesDir    string
	DefaultLocale string
	Supported     []string
}

// RateLimitConfig throttles mutating requests per session.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// NavConfig bounds the navigation stack.
type NavConfig struct {
	MaxDepth int
}

// IsProduction reports whether the service runs in prod.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "prod") || strings.EqualFold(c.Environment, "production")
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

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, .env overrides, environment
// variables and the explicit map, in increasing precedence.
func Load(_ context.Context, opts ...Option) (Config, error) {
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

	env := strings.ToLower(stringWithDefault(lookup, "SHOP_ENV", defaultEnvironment))
	cfg := Config{
		Environment: env,
		Dev:         boolWithDefault(lookup, "SHOP_DEV", env == "local" || env == "dev"),
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "SHOP_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:  durationWithDefault(lookup, "SHOP_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SHOP_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SHOP_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Session: SessionConfig{
			SigningKey:      stringWithDefault(lookup, "SHOP_SESSION_SIGNING_KEY", ""),
			TTL:             durationWithDefault(lookup, "SHOP_SESSION_TTL", defaultSessionTTL),
			CleanupInterval: durationWithDefault(lookup, "SHOP_SESSION_CLEANUP_INTERVAL", defaultCleanupInterval),
		},
		Catalog: CatalogConfig{
			File:     stringWithDefault(lookup, "SHOP_CATALOG_FILE", ""),
			SeedCart: boolWithDefault(lookup, "SHOP_CART_SEED", true),
		},
		Assets: AssetsConfig{
			TemplatesDir: stringWithDefault(lookup, "SHOP_TEMPLATES_DIR", defaultTemplatesDir),
			PublicDir:    stringWithDefault(lookup, "SHOP_PUBLIC_DIR", defaultPublicDir),
			ContentDir:   stringWithDefault(lookup, "SHOP_CONTENT_DIR", defaultContentDir),
		},
		I18n: I18nConfig{
			LocalesDir:    stringWithDefault(lookup, "SHOP_LOCALES_DIR", defaultLocalesDir),
			DefaultLocale: strings.ToLower(stringWithDefault(lookup, "SHOP_DEFAULT_LOCALE", defaultLocale)),
			Supported:     csvWithDefault(lookup, "SHOP_SUPPORTED_LOCALES", []string{"id", "en"}),
		},
		RateLimit: RateLimitConfig{
			PerSecond: floatWithDefault(lookup, "SHOP_RATELIMIT_PER_SEC", defaultRatePerSecond),
			Burst:     intWithDefault(lookup, "SHOP_RATELIMIT_BURST", defaultRateBurst),
		},
		Nav: NavConfig{
			MaxDepth: intWithDefault(lookup, "SHOP_NAV_MAX_DEPTH", defaultNavMaxDepth),
		},
	}
	cfg.Session.SecureCookie = cfg.IsProduction()

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.IsProduction() && len(cfg.Session.SigningKey) < minSigningKeyLength {
		missing = append(missing, "Session.SigningKey")
	}
	if cfg.Session.TTL <= 0 {
		missing = append(missing, "Session.TTL")
	}
	if cfg.Session.CleanupInterval <= 0 {
		missing = append(missing, "Session.CleanupInterval")
	}
	if cfg.RateLimit.PerSecond <= 0 {
		missing = append(missing, "RateLimit.PerSecond")
	}
	if cfg.RateLimit.Burst <= 0 {
		missing = append(missing, "RateLimit.Burst")
	}
	if cfg.Nav.MaxDepth < 2 {
		missing = append(missing, "Nav.MaxDepth")
	}
	if !contains(cfg.I18n.Supported, cfg.I18n.DefaultLocale) {
		missing = append(missing, "I18n.DefaultLocale")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
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
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return append([]string(nil), fallback...)
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
