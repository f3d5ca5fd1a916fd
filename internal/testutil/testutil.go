// Package testutil provides shared test utilities for hookline tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/constants"
)

// SetupTestConfig creates a temporary config directory with test
// configuration and points HOOKLINE_CONFIG at it. Returns the config
// directory and a cleanup function that should be deferred.
func SetupTestConfig(t *testing.T, configContent string) (string, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	os.Setenv(constants.EnvConfigDir, tmpDir)

	if configContent != "" {
		configPath := filepath.Join(tmpDir, constants.ConfigFileName)
		if err := os.WriteFile(configPath, []byte(configContent), constants.FileMode); err != nil {
			t.Fatal(err)
		}
	}

	config.Reset()
	config.Init()

	return tmpDir, func() {
		os.Unsetenv(constants.EnvConfigDir)
		config.Reset()
	}
}

// WriteRule writes one rule document into the config dir's rules
// subdirectory.
func WriteRule(t *testing.T, configDir, name, content string) {
	t.Helper()

	rulesDir := filepath.Join(configDir, constants.RulesSubdir)
	if err := os.MkdirAll(rulesDir, constants.DirMode); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(rulesDir, name), []byte(content), constants.FileMode); err != nil {
		t.Fatal(err)
	}
}

// MinimalTestConfig is a minimal config for testing.
const MinimalTestConfig = `
max_concurrent = 4
handler_timeout = "2s"

[audit]
enabled = false
`
