package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/inkwell/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestStoreConfig_Backends(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StoreConfig)
		wantErr bool
	}{
		{"file", func(c *StoreConfig) {}, false},
		{"file without dir", func(c *StoreConfig) { c.File.Dir = "" }, true},
		{"sqlite", func(c *StoreConfig) { c.Backend = BackendSQLite }, false},
		{"sqlite without path", func(c *StoreConfig) { c.Backend = BackendSQLite; c.SQLite.Path = "" }, true},
		{"redis without addr", func(c *StoreConfig) { c.Backend = BackendRedis; c.Redis.Addr = "" }, true},
		{"memory ignores file section", func(c *StoreConfig) { c.Backend = BackendMemory; c.File.Dir = "" }, false},
		{"unknown backend", func(c *StoreConfig) { c.Backend = "s3" }, true},
		{"negative quota", func(c *StoreConfig) { c.QuotaBytes = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig().Store
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStoreConfig_EmptyKeyDefaults(t *testing.T) {
	cfg := NewDefaultConfig().Store
	cfg.Key = ""
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Key != "notes" {
		t.Errorf("key = %q, want notes", cfg.Key)
	}
}

func TestEventsConfig_NegativeThrottle(t *testing.T) {
	cfg := EventsConfig{ListThrottle: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("negative throttle should fail validation")
	}
}

func TestLoad_YAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	body := "store:\n  backend: memory\nevents:\n  list_throttle: 500ms\nauth:\n  mode: token\n  token: ${INKWELL_TEST_TOKEN}\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INKWELL_TEST_TOKEN", "s3cret")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Events.ListThrottle != 500*time.Millisecond {
		t.Errorf("store = %+v, events = %+v", cfg.Store, cfg.Events)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d, default should survive", cfg.App.HTTP.Port)
	}
}
