package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file (if any) and the
// environment variables named in the external interface: JWT_SECRET,
// JWT_PRIVATE_KEY, JWT_PUBLIC_KEY, JWT_ALG, JWT_EXPIRE_MINUTES,
// POLICIES_PATH, DB_PATH, LOG_LEVEL, HTTP_PORT, plus the additive
// CONFIG_FILE, OTEL_TRACES_ENABLED, AUDIT_LOG_PATH, AUDIT_RETENTION_DAYS.
// These are flat, unprefixed names, so each is bound individually rather
// than through a common env prefix.
func InitViper(configFile string) {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("identityd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	bindEnvKeys()
}

func bindEnvKeys() {
	_ = viper.BindEnv("http_port", "HTTP_PORT")
	_ = viper.BindEnv("log_level", "LOG_LEVEL")
	_ = viper.BindEnv("policies_path", "POLICIES_PATH")
	_ = viper.BindEnv("db_path", "DB_PATH")
	_ = viper.BindEnv("otel_traces_enabled", "OTEL_TRACES_ENABLED")
	_ = viper.BindEnv("dev_mode", "DEV_MODE")

	_ = viper.BindEnv("jwt.alg", "JWT_ALG")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.private_key", "JWT_PRIVATE_KEY")
	_ = viper.BindEnv("jwt.public_key", "JWT_PUBLIC_KEY")
	_ = viper.BindEnv("jwt.expire_minutes", "JWT_EXPIRE_MINUTES")

	_ = viper.BindEnv("audit.log_path", "AUDIT_LOG_PATH")
	_ = viper.BindEnv("audit.retention_days", "AUDIT_RETENTION_DAYS")
}

// LoadConfig reads the configuration file (if present), applies environment
// overrides, sets defaults, and returns the validated Config. DevMode must
// already be set on the environment/config file before this runs, since
// SetDevDefaults runs before Validate.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded,
// or an empty string if none was found (environment-variables-only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
