// Package config provides the configuration schema for identityd, loaded via
// spf13/viper from environment variables and, optionally, a config file.
package config

// Config is the top-level configuration for the identity/access service.
type Config struct {
	// HTTPPort is the port the HTTP adapter listens on. Defaults to 8000.
	HTTPPort int `mapstructure:"http_port" validate:"required,min=1,max=65535"`

	// LogLevel sets the minimum log/slog level.
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=DEBUG INFO WARNING ERROR"`

	// JWT configures token issuance and validation.
	JWT JWTConfig `mapstructure:"jwt"`

	// PoliciesPath is the filesystem path to the policy document consumed by
	// the Policy Loader.
	PoliciesPath string `mapstructure:"policies_path" validate:"required"`

	// DBPath is the filesystem path for the Record Store's SQLite file.
	// ":memory:" selects an ephemeral in-process database.
	DBPath string `mapstructure:"db_path" validate:"required"`

	// Audit configures audit record persistence.
	Audit AuditConfig `mapstructure:"audit"`

	// OTelTracesEnabled turns on the stdout OpenTelemetry trace exporter for
	// local development. Disabled by default.
	OTelTracesEnabled bool `mapstructure:"otel_traces_enabled"`

	// DevMode enables permissive startup defaults (see SetDevDefaults) and a
	// seeded admin user for local development. It does not change LogLevel.
	DevMode bool `mapstructure:"dev_mode"`
}

// JWTConfig configures bearer token signing and validation.
type JWTConfig struct {
	// Alg selects the signing algorithm family.
	Alg string `mapstructure:"alg" validate:"required,oneof=HS256 RS256"`

	// Secret is the HMAC signing key, required when Alg is HS256.
	Secret string `mapstructure:"secret"`

	// PrivateKey and PublicKey are PEM-encoded RSA keys, required when Alg is
	// RS256. PrivateKey signs, PublicKey validates.
	PrivateKey string `mapstructure:"private_key"`
	PublicKey  string `mapstructure:"public_key"`

	// ExpireMinutes is the token TTL in minutes. Defaults to 60.
	ExpireMinutes int `mapstructure:"expire_minutes" validate:"required,min=1"`
}

// AuditConfig configures audit record persistence.
type AuditConfig struct {
	// LogPath is the directory audit JSONL files are written to. Empty means
	// stdout-only (no file persistence).
	LogPath string `mapstructure:"log_path"`

	// RetentionDays is how long rotated audit files are kept before cleanup.
	// Defaults to 30.
	RetentionDays int `mapstructure:"retention_days" validate:"omitempty,min=1"`
}

// SetDefaults applies sensible default values for fields left unset.
func (c *Config) SetDefaults() {
	if c.HTTPPort == 0 {
		c.HTTPPort = 8000
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.JWT.Alg == "" {
		c.JWT.Alg = "HS256"
	}
	if c.JWT.ExpireMinutes == 0 {
		c.JWT.ExpireMinutes = 60
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 30
	}
}

// SetDevDefaults applies permissive defaults for development mode, satisfying
// required fields so the service can start with minimal configuration.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.JWT.Alg == "HS256" && c.JWT.Secret == "" {
		c.JWT.Secret = "dev-mode-insecure-secret-do-not-use-in-production"
	}
	if c.PoliciesPath == "" {
		c.PoliciesPath = "policies.json"
	}
	if c.DBPath == "" {
		c.DBPath = ":memory:"
	}
}
