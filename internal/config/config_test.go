package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hookline/hookline/internal/constants"
)

func TestGetConfigDirEnvOverride(t *testing.T) {
	t.Setenv(constants.EnvConfigDir, "/custom/config")

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if dir != "/custom/config" {
		t.Errorf("GetConfigDir() = %q, want %q", dir, "/custom/config")
	}
}

func TestGetConfigDirDefault(t *testing.T) {
	t.Setenv(constants.EnvConfigDir, "")

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".config", "hookline")
	if dir != expected {
		t.Errorf("GetConfigDir() = %q, want %q", dir, expected)
	}
}

func TestLoadConfig(t *testing.T) {
	data := []byte(`
max_concurrent = 4
handler_timeout = "250ms"
rules_dir = "myrules"

[aliases]
python3 = "python"

[audit]
enabled = false
max_size_mb = 5
`)
	cfg, err := LoadConfig(data)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", cfg.MaxConcurrent)
	}
	if cfg.HandlerTimeout != 250*time.Millisecond {
		t.Errorf("HandlerTimeout = %v, want 250ms", cfg.HandlerTimeout)
	}
	if cfg.RulesDir != "myrules" {
		t.Errorf("RulesDir = %q, want %q", cfg.RulesDir, "myrules")
	}
	if cfg.Aliases["python3"] != "python" {
		t.Errorf("Aliases[python3] = %q, want %q", cfg.Aliases["python3"], "python")
	}
	if cfg.Audit.Enabled {
		t.Error("Audit.Enabled = true, want false")
	}
	if cfg.Audit.MaxSize != 5<<20 {
		t.Errorf("Audit.MaxSize = %d, want %d", cfg.Audit.MaxSize, 5<<20)
	}
}

func TestLoadConfigAuditDefaultsEnabled(t *testing.T) {
	cfg, err := LoadConfig([]byte(``))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !cfg.Audit.Enabled {
		t.Error("Audit.Enabled = false for empty config, want true")
	}
}

func TestLoadConfigInvalidTimeout(t *testing.T) {
	tests := []string{
		`handler_timeout = "soon"`,
		`handler_timeout = "-3s"`,
	}
	for _, data := range tests {
		if _, err := LoadConfig([]byte(data)); err == nil {
			t.Errorf("LoadConfig(%q) succeeded, want error", data)
		}
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	if _, err := LoadConfig([]byte(`max_concurrent = [`)); err == nil {
		t.Error("LoadConfig() succeeded on invalid TOML, want error")
	}
}

func TestResolve(t *testing.T) {
	cfg := &Config{}
	cfg.Resolve("/etc/hookline")

	if cfg.RulesDir != "/etc/hookline/rules" {
		t.Errorf("RulesDir = %q, want %q", cfg.RulesDir, "/etc/hookline/rules")
	}
	if cfg.LoadersDir != "/etc/hookline/loaders" {
		t.Errorf("LoadersDir = %q, want %q", cfg.LoadersDir, "/etc/hookline/loaders")
	}
	if cfg.KnowledgePath != "/etc/hookline/knowledge.db" {
		t.Errorf("KnowledgePath = %q, want %q", cfg.KnowledgePath, "/etc/hookline/knowledge.db")
	}

	cfg = &Config{RulesDir: "/abs/rules"}
	cfg.Resolve("/etc/hookline")
	if cfg.RulesDir != "/abs/rules" {
		t.Errorf("absolute RulesDir = %q, want %q", cfg.RulesDir, "/abs/rules")
	}
}

func TestEmbeddedDefaultsParse(t *testing.T) {
	cfg, err := LoadConfig(GetDefaultConfig())
	if err != nil {
		t.Fatalf("embedded config does not parse: %v", err)
	}
	if cfg.MaxConcurrent != 8 {
		t.Errorf("default MaxConcurrent = %d, want 8", cfg.MaxConcurrent)
	}
	if cfg.HandlerTimeout != 5*time.Second {
		t.Errorf("default HandlerTimeout = %v, want 5s", cfg.HandlerTimeout)
	}
	if cfg.Aliases["python3"] != "python" {
		t.Errorf("default alias python3 = %q, want python", cfg.Aliases["python3"])
	}
}

func TestInitCreatesDefaults(t *testing.T) {
	defer Reset()

	dir := t.TempDir()
	t.Setenv(constants.EnvConfigDir, dir)

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, constants.ConfigFileName)); err != nil {
		t.Errorf("config.toml was not created: %v", err)
	}

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.RulesDir != filepath.Join(dir, "rules") {
		t.Errorf("RulesDir = %q, want %q", cfg.RulesDir, filepath.Join(dir, "rules"))
	}
}

func TestInitFallsBackOnBadConfig(t *testing.T) {
	defer Reset()

	dir := t.TempDir()
	t.Setenv(constants.EnvConfigDir, dir)
	if err := os.WriteFile(filepath.Join(dir, constants.ConfigFileName), []byte("max_concurrent = ["), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Init(); err == nil {
		t.Error("Init() succeeded on broken config, want error")
	}

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil after fallback")
	}
	if cfg.MaxConcurrent != 8 {
		t.Errorf("fallback MaxConcurrent = %d, want 8", cfg.MaxConcurrent)
	}
}
