package config

import "testing"

func minimalValidConfig() *Config {
	cfg := &Config{
		HTTPPort:     8000,
		LogLevel:     "INFO",
		PoliciesPath: "policies.json",
		DBPath:       ":memory:",
		JWT:          JWTConfig{Alg: "HS256", Secret: "test-secret", ExpireMinutes: 60},
	}
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_HS256RequiresSecret(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.JWT.Secret = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing JWT_SECRET under HS256, got nil")
	}
}

func TestValidate_RS256RequiresKeyPair(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.JWT.Alg = "RS256"
	cfg.JWT.Secret = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing RS256 key pair, got nil")
	}

	cfg.JWT.PrivateKey = "---PRIVATE---"
	err = cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing public key, got nil")
	}

	cfg.JWT.PublicKey = "---PUBLIC---"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with both RS256 keys set unexpected error: %v", err)
	}
}

func TestValidate_InvalidAlg(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.JWT.Alg = "ES256"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for unsupported alg, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.LogLevel = "TRACE"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for invalid log level, got nil")
	}
}

func TestValidate_MissingPoliciesPath(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.PoliciesPath = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing policies_path, got nil")
	}
}

func TestValidate_MissingDBPath(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.DBPath = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing db_path, got nil")
	}
}

func TestValidate_PortOutOfRange(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.HTTPPort = 70000

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for out-of-range port, got nil")
	}
}

func TestValidate_ZeroConfigAfterDefaultsAndDevMode(t *testing.T) {
	t.Parallel()

	cfg := &Config{DevMode: true}
	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() dev-mode zero-config unexpected error: %v", err)
	}
}
