package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := writeEnv(t, "STORAGE_BACKEND=memory\nJWT_SECRET=secret\nHANDLER_TIMEOUT=3s\nPROPOSAL_DESCRIPTION_MIN=20\n")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StorageBackend != BackendMemory {
		t.Errorf("backend = %q", cfg.StorageBackend)
	}
	if cfg.HandlerTimeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.HandlerTimeout)
	}
	if cfg.ProposalDescriptionMin != 20 || cfg.ProposalDescriptionMax != 1000 {
		t.Errorf("limits = %d..%d", cfg.ProposalDescriptionMin, cfg.ProposalDescriptionMax)
	}
	if cfg.ServerAddress != "0.0.0.0:8080" {
		t.Errorf("address = %q", cfg.ServerAddress)
	}
	if cfg.PhotosEnabled() || cfg.HistoryEnabled() {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := writeEnv(t, "STORAGE_BACKEND=memory\nJWT_SECRET=secret\n")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("secret = %q", cfg.JWTSecret)
	}
	if !cfg.HistoryEnabled() {
		t.Error("history should be enabled")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		StorageBackend:         BackendMemory,
		JWTSecret:              "secret",
		HandlerTimeout:         time.Second,
		ProposalDescriptionMin: 10,
		ProposalDescriptionMax: 1000,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"postgres without dsn", func(c *Config) { c.StorageBackend = BackendPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.StorageBackend = BackendPostgres
			c.PostgresConn = "postgres://localhost/market"
		}, false},
		{"unknown backend", func(c *Config) { c.StorageBackend = "redis" }, true},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero timeout", func(c *Config) { c.HandlerTimeout = 0 }, true},
		{"inverted limits", func(c *Config) { c.ProposalDescriptionMax = 5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
