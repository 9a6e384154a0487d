// Package config provides configuration management for syllabus using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration system supports a .syllabus.yml file, environment
// variable overrides with the SYLLABUS_ prefix, and validation. It manages
// the server, the content tree, the static build, the identity provider,
// browser sessions and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/syllabus/internal/validation"
)

// Provider names accepted in auth.provider.
const (
	ProviderLocal           = "local"
	ProviderIdentityToolkit = "identitytoolkit"
)

type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Content     ContentConfig     `yaml:"content" mapstructure:"content"`
	Build       BuildConfig       `yaml:"build" mapstructure:"build"`
	Auth        AuthConfig        `yaml:"auth" mapstructure:"auth"`
	Session     SessionConfig     `yaml:"session" mapstructure:"session"`
	Development DevelopmentConfig `yaml:"development" mapstructure:"development"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Host           string   `yaml:"host" mapstructure:"host"`
	Open           bool     `yaml:"open" mapstructure:"open"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Environment    string   `yaml:"environment" mapstructure:"environment"`
}

// ContentConfig describes where courses live. Root holds one directory per
// course; AssetDir names the image directory inside each course.
type ContentConfig struct {
	Root     string `yaml:"root" mapstructure:"root"`
	AssetDir string `yaml:"asset_dir" mapstructure:"asset_dir"`
}

type BuildConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Sitemap   bool   `yaml:"sitemap" mapstructure:"sitemap"`
	Robots    bool   `yaml:"robots" mapstructure:"robots"`
	Minify    bool   `yaml:"minify" mapstructure:"minify"`
	Clean     bool   `yaml:"clean" mapstructure:"clean"`
	Workers   int    `yaml:"workers" mapstructure:"workers"`
}

type AuthConfig struct {
	Provider  string          `yaml:"provider" mapstructure:"provider"`
	APIKey    string          `yaml:"api_key" mapstructure:"api_key"`
	Endpoint  string          `yaml:"endpoint" mapstructure:"endpoint"`
	ActionURL string          `yaml:"action_url" mapstructure:"action_url"`
	Timeout   time.Duration   `yaml:"timeout" mapstructure:"timeout"`
	Local     LocalAuthConfig `yaml:"local" mapstructure:"local"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig bounds account form submissions per client address with
// a token bucket holding Burst tokens and refilling RequestsPerMinute.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// LocalAuthConfig configures the built-in account store.
type LocalAuthConfig struct {
	Driver      string        `yaml:"driver" mapstructure:"driver"`
	DSN         string        `yaml:"dsn" mapstructure:"dsn"`
	TokenSecret string        `yaml:"token_secret" mapstructure:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	CodeTTL     time.Duration `yaml:"code_ttl" mapstructure:"code_ttl"`
}

type SessionConfig struct {
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`
	Secret     string `yaml:"secret" mapstructure:"secret"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
	Secure     bool   `yaml:"secure" mapstructure:"secure"`

	// IdleTimeout is how long an unwatched session stays in memory after
	// its last request.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`

	// RecheckInterval is how long a session restored from its cookie is
	// trusted before the provider is asked again.
	RecheckInterval time.Duration `yaml:"recheck_interval" mapstructure:"recheck_interval"`
}

type DevelopmentConfig struct {
	HotReload bool `yaml:"hot_reload" mapstructure:"hot_reload"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Dir    string `yaml:"dir" mapstructure:"dir"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "" || c.Server.Environment == "development"
}

// Redacted returns a copy of c with its secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	mask := func(s *string) {
		if *s != "" {
			*s = "[REDACTED]"
		}
	}
	mask(&out.Session.Secret)
	mask(&out.Auth.APIKey)
	mask(&out.Auth.Local.TokenSecret)
	return &out
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.open", false)
	v.SetDefault("server.environment", "development")

	v.SetDefault("content.root", "courses")
	v.SetDefault("content.asset_dir", "img")

	v.SetDefault("build.output_dir", "out")
	v.SetDefault("build.base_url", "http://localhost:8080")
	v.SetDefault("build.sitemap", true)
	v.SetDefault("build.robots", true)
	v.SetDefault("build.minify", false)
	v.SetDefault("build.clean", true)
	v.SetDefault("build.workers", 4)

	v.SetDefault("auth.provider", ProviderLocal)
	v.SetDefault("auth.endpoint", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("auth.action_url", "http://localhost:8080/auth")
	v.SetDefault("auth.timeout", 10*time.Second)
	v.SetDefault("auth.local.driver", "sqlite")
	v.SetDefault("auth.local.dsn", "syllabus.db")
	v.SetDefault("auth.local.token_ttl", time.Hour)
	v.SetDefault("auth.local.code_ttl", 24*time.Hour)
	v.SetDefault("auth.rate_limit.enabled", true)
	v.SetDefault("auth.rate_limit.requests_per_minute", 20)
	v.SetDefault("auth.rate_limit.burst", 10)

	v.SetDefault("session.cookie_name", "syllabus_session")
	v.SetDefault("session.max_age", 7*24*60*60)
	v.SetDefault("session.secure", false)
	v.SetDefault("session.idle_timeout", 30*time.Minute)
	v.SetDefault("session.recheck_interval", 5*time.Minute)

	v.SetDefault("development.hot_reload", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Comma separated env values arrive as a single string.
	if len(config.Server.AllowedOrigins) == 1 && strings.Contains(config.Server.AllowedOrigins[0], ",") {
		config.Server.AllowedOrigins = strings.Split(config.Server.AllowedOrigins[0], ",")
	}

	if config.Session.Secret == "" && config.IsDevelopment() {
		config.Session.Secret = "syllabus-development-session-secret"
	}
	if config.Auth.Local.TokenSecret == "" && config.IsDevelopment() {
		config.Auth.Local.TokenSecret = "syllabus-development-token-secret"
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateContentConfig(&config.Content); err != nil {
		return fmt.Errorf("content config: %w", err)
	}
	if err := validateBuildConfig(&config.Build); err != nil {
		return fmt.Errorf("build config: %w", err)
	}
	if err := validateAuthConfig(&config.Auth); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}
	if err := validateSessionConfig(&config.Session); err != nil {
		return fmt.Errorf("session config: %w", err)
	}
	return nil
}

func validateSessionConfig(config *SessionConfig) error {
	if config.Secret == "" {
		return fmt.Errorf("secret is required outside development")
	}
	if len(config.Secret) < 16 {
		return fmt.Errorf("secret must be at least 16 characters")
	}
	if config.IdleTimeout < time.Minute {
		return fmt.Errorf("idle_timeout must be at least 1m, got %s", config.IdleTimeout)
	}
	if config.RecheckInterval <= 0 {
		return fmt.Errorf("recheck_interval must be positive, got %s", config.RecheckInterval)
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// 0 lets the OS pick a port, used in tests
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	switch config.Environment {
	case "", "development", "production":
	default:
		return fmt.Errorf("unknown environment %q", config.Environment)
	}

	return nil
}

func validateContentConfig(config *ContentConfig) error {
	if err := validatePath(config.Root); err != nil {
		return fmt.Errorf("invalid root '%s': %w", config.Root, err)
	}
	if config.AssetDir == "" || strings.ContainsAny(config.AssetDir, `/\`) || strings.HasPrefix(config.AssetDir, ".") {
		return fmt.Errorf("asset_dir must be a plain directory name, got %q", config.AssetDir)
	}
	return nil
}

// validateBuildConfig validates build configuration values
func validateBuildConfig(config *BuildConfig) error {
	if err := validatePath(config.OutputDir); err != nil {
		return fmt.Errorf("invalid output_dir '%s': %w", config.OutputDir, err)
	}
	if filepath.Clean(config.OutputDir) == "." {
		return fmt.Errorf("output_dir must not be the working directory")
	}
	if config.BaseURL != "" {
		if err := validation.ValidateBaseURL(config.BaseURL); err != nil {
			return err
		}
	}
	if config.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", config.Workers)
	}
	return nil
}

func validateAuthConfig(config *AuthConfig) error {
	switch config.Provider {
	case ProviderLocal:
		switch config.Local.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("unknown local driver %q", config.Local.Driver)
		}
		if config.Local.DSN == "" {
			return fmt.Errorf("local dsn is required")
		}
		if config.Local.TokenSecret == "" {
			return fmt.Errorf("local token_secret is required outside development")
		}
	case ProviderIdentityToolkit:
		if config.APIKey == "" {
			return fmt.Errorf("api_key is required for the %s provider", ProviderIdentityToolkit)
		}
	default:
		return fmt.Errorf("unknown provider %q", config.Provider)
	}
	if rl := config.RateLimit; rl.Enabled && (rl.RequestsPerMinute < 1 || rl.Burst < 1) {
		return fmt.Errorf("rate_limit needs requests_per_minute and burst of at least 1")
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
