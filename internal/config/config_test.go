package config

import (
	"os"
	"path/filepath"
	"testing"

	"loadboard/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
database:
  path: "test.db"
gateway:
  base_url: "https://gateway.test"
  key_id: "key_test"
  key_secret: "secret_test"
api:
  enabled: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("expected database path test.db, got %s", cfg.Database.Path)
	}

	if cfg.Gateway.KeyID != "key_test" {
		t.Errorf("expected gateway key_id key_test, got %s", cfg.Gateway.KeyID)
	}

	if !cfg.API.HTTP.Enabled {
		t.Errorf("expected HTTP to be enabled when API is enabled")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("GATEWAY_KEY_SECRET", "from_env")

	yamlContent := `
database:
  path: "test.db"
gateway:
  key_id: "key_test"
  key_secret: "${GATEWAY_KEY_SECRET}"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Gateway.KeySecret != "from_env" {
		t.Errorf("expected key_secret from_env, got %s", cfg.Gateway.KeySecret)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Gateway:  GatewayConfig{KeyID: "k", KeySecret: "s"},
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			cfg: Config{
				Gateway: GatewayConfig{KeyID: "k", KeySecret: "s"},
			},
			wantErr: true,
		},
		{
			name: "missing gateway keys",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
			},
			wantErr: true,
		},
		{
			name: "telegram enabled without token",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Gateway:  GatewayConfig{KeyID: "k", KeySecret: "s"},
				Telegram: TelegramConfig{Enabled: true},
			},
			wantErr: true,
		},
		{
			name: "google enabled without spreadsheet",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Gateway:  GatewayConfig{KeyID: "k", KeySecret: "s"},
				Google:   GoogleConfig{Enabled: true, GoogleCredentialsFile: "creds.json"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Gateway.Currency != models.DefaultCurrency {
		t.Errorf("expected default currency %s, got %s", models.DefaultCurrency, cfg.Gateway.Currency)
	}
	if cfg.Gateway.OrderTTLSeconds != models.DefaultOrderTTL {
		t.Errorf("expected default order ttl %d, got %d", models.DefaultOrderTTL, cfg.Gateway.OrderTTLSeconds)
	}
	if cfg.API.RateLimit.Burst != models.RateLimitRequests {
		t.Errorf("expected default rate limit burst %d, got %d", models.RateLimitRequests, cfg.API.RateLimit.Burst)
	}
	if cfg.Fees.SchedulePath == "" {
		t.Errorf("expected default fee schedule path to be set")
	}
}
