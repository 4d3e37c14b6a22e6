package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"DIR", "API_URL", "API_ID", "ADDR", "SCOPE", "LOG_LEVEL", "TIMEOUT"} {
		t.Setenv(envPrefix+key, "")
		os.Unsetenv(envPrefix + key)
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.PresetsDir != filepath.Join(home, ".prompt-mover", "presets") {
		t.Errorf("Unexpected presets dir %q", cfg.PresetsDir)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Expected addr %q, got %q", DefaultAddr, cfg.Addr)
	}
	if cfg.Scope != "global" {
		t.Errorf("Expected global scope, got %q", cfg.Scope)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Expected 15s timeout, got %s", cfg.Timeout)
	}
	if cfg.Remote() {
		t.Error("Expected local mode without api_url")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "presets_dir: /srv/presets\napi_id: st-bridge\nscope: \"100001\"\ntimeout: 30s\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PROMPT_MOVER_API_URL", "http://localhost:8000")
	t.Setenv("PROMPT_MOVER_TIMEOUT", "5s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.PresetsDir != "/srv/presets" {
		t.Errorf("Expected presets dir from file, got %q", cfg.PresetsDir)
	}
	if cfg.APIID != "st-bridge" {
		t.Errorf("Expected api id from file, got %q", cfg.APIID)
	}
	if cfg.Scope != "100001" {
		t.Errorf("Expected scope from file, got %q", cfg.Scope)
	}
	if cfg.APIURL != "http://localhost:8000" || !cfg.Remote() {
		t.Errorf("Expected env api url, got %q", cfg.APIURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Expected env timeout to win, got %s", cfg.Timeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	isolate(t)

	t.Setenv("PROMPT_MOVER_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for unparsable timeout")
	}

	t.Setenv("PROMPT_MOVER_TIMEOUT", "1s")
	t.Setenv("PROMPT_MOVER_API_URL", "localhost:8000")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for api url without scheme")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timeout: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.APIURL = "https://host.example"
	cfg.Timeout = 42 * time.Second
	if err := cfg.Save(); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if reloaded.APIURL != "https://host.example" {
		t.Errorf("Expected saved api url, got %q", reloaded.APIURL)
	}
	if reloaded.Timeout != 42*time.Second {
		t.Errorf("Expected saved timeout, got %s", reloaded.Timeout)
	}
	if reloaded.Path() != path {
		t.Errorf("Expected path %q, got %q", path, reloaded.Path())
	}
}
