package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/notely/internal/token"
	pkgconfig "github.com/starford/notely/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfig_ProductionRequiresSecret(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.Environment = EnvProduction
	err := cfg.Validate()
	if err == nil {
		t.Fatal("production without jwt_secret should fail")
	}
	if !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Auth.JWTSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("production with secret should pass: %v", err)
	}
}

func TestConfig_EmptyEnvironmentDefaultsDevelopment(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.Environment = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.App.Environment != EnvDevelopment {
		t.Errorf("environment = %q, want %q", cfg.App.Environment, EnvDevelopment)
	}
}

func TestConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "staging" }},
		{"port zero", func(c *Config) { c.App.HTTP.Port = 0 }},
		{"port too high", func(c *Config) { c.App.HTTP.Port = 70000 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }},
		{"bcrypt cost too high", func(c *Config) { c.Auth.BcryptCost = 40 }},
		{"negative ttl", func(c *Config) { c.Auth.TokenTTL = -time.Hour }},
		{"rate limit without burst", func(c *Config) { c.RateLimit.Burst = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRateLimitConfig_DisabledSkipsValidation(t *testing.T) {
	cfg := RateLimitConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled rate limit should pass: %v", err)
	}
}

func TestAuthConfig_SigningSecret(t *testing.T) {
	cfg := AuthConfig{}
	secret, fallback := cfg.SigningSecret()
	if !fallback || secret != token.FallbackSecret {
		t.Errorf("empty secret = (%q, %v), want fallback", secret, fallback)
	}

	cfg.JWTSecret = "mine"
	secret, fallback = cfg.SigningSecret()
	if fallback || secret != "mine" {
		t.Errorf("configured secret = (%q, %v)", secret, fallback)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("NOTELY_TEST_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  environment: production
  http:
    port: 9090
    allowed_origins: ["http://localhost:5173"]
    read_timeout: 5s
database:
  driver: mysql
  dsn: "notely:pw@tcp(db:3306)/notely"
  max_open_conns: 20
auth:
  jwt_secret: ${NOTELY_TEST_SECRET}
  token_ttl: 24h
rate_limit:
  enabled: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("http = %+v", cfg.App.HTTP)
	}
	if cfg.Auth.JWTSecret != "from-env" || cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Database.Driver != "mysql" || cfg.Database.MaxOpenConns != 20 {
		t.Errorf("database = %+v", cfg.Database)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Auth.BcryptCost != 12 || cfg.App.HTTP.ShutdownTimeout != 10*time.Second {
		t.Errorf("defaults lost: cost=%d shutdown=%v", cfg.Auth.BcryptCost, cfg.App.HTTP.ShutdownTimeout)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
}
