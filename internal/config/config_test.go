package config

import "testing"

func TestConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.SetDefaults()

	if cfg.HTTPPort != 8000 {
		t.Errorf("HTTPPort = %d, want 8000", cfg.HTTPPort)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q, want INFO", cfg.LogLevel)
	}
	if cfg.JWT.Alg != "HS256" {
		t.Errorf("JWT.Alg = %q, want HS256", cfg.JWT.Alg)
	}
	if cfg.JWT.ExpireMinutes != 60 {
		t.Errorf("JWT.ExpireMinutes = %d, want 60", cfg.JWT.ExpireMinutes)
	}
	if cfg.Audit.RetentionDays != 30 {
		t.Errorf("Audit.RetentionDays = %d, want 30", cfg.Audit.RetentionDays)
	}
}

func TestConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := Config{
		HTTPPort: 9090,
		LogLevel: "DEBUG",
		JWT:      JWTConfig{Alg: "RS256", ExpireMinutes: 15},
		Audit:    AuditConfig{RetentionDays: 30},
	}
	cfg.SetDefaults()

	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort overwritten: got %d, want 9090", cfg.HTTPPort)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel overwritten: got %q, want DEBUG", cfg.LogLevel)
	}
	if cfg.JWT.Alg != "RS256" {
		t.Errorf("JWT.Alg overwritten: got %q, want RS256", cfg.JWT.Alg)
	}
	if cfg.JWT.ExpireMinutes != 15 {
		t.Errorf("JWT.ExpireMinutes overwritten: got %d, want 15", cfg.JWT.ExpireMinutes)
	}
	if cfg.Audit.RetentionDays != 30 {
		t.Errorf("Audit.RetentionDays overwritten: got %d, want 30", cfg.Audit.RetentionDays)
	}
}

func TestConfig_SetDevDefaults_OnlyAppliesWhenDevMode(t *testing.T) {
	t.Parallel()

	cfg := Config{JWT: JWTConfig{Alg: "HS256"}}
	cfg.SetDevDefaults()

	if cfg.JWT.Secret != "" {
		t.Errorf("JWT.Secret = %q, want empty when DevMode is false", cfg.JWT.Secret)
	}
}

func TestConfig_SetDevDefaults_SeedsRequiredFields(t *testing.T) {
	t.Parallel()

	cfg := Config{DevMode: true, JWT: JWTConfig{Alg: "HS256"}}
	cfg.SetDevDefaults()

	if cfg.JWT.Secret == "" {
		t.Error("JWT.Secret should be seeded in dev mode")
	}
	if cfg.PoliciesPath == "" {
		t.Error("PoliciesPath should be seeded in dev mode")
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should be seeded in dev mode")
	}
}

func TestConfig_SetDevDefaults_DoesNotSeedSecretForRS256(t *testing.T) {
	t.Parallel()

	cfg := Config{DevMode: true, JWT: JWTConfig{Alg: "RS256"}}
	cfg.SetDevDefaults()

	if cfg.JWT.Secret != "" {
		t.Errorf("JWT.Secret = %q, want empty for RS256 dev mode", cfg.JWT.Secret)
	}
}
