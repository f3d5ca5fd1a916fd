package cmd

import (
	"testing"

	"github.com/hookline/hookline/internal/config"
)

func resetGlobalState() {
	verbose = false
	dryRun = false
	noAuditLog = false
	rulesDir = ""
	config.Reset()
}

func TestIsVerbose(t *testing.T) {
	tests := []struct {
		name     string
		value    bool
		expected bool
	}{
		{"verbose false", false, false},
		{"verbose true", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobalState()
			verbose = tt.value
			if IsVerbose() != tt.expected {
				t.Errorf("IsVerbose() = %v, want %v", IsVerbose(), tt.expected)
			}
		})
	}
}

func TestIsDryRun(t *testing.T) {
	resetGlobalState()
	dryRun = true
	if !IsDryRun() {
		t.Error("IsDryRun() = false, want true")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	want := map[string]bool{
		"validate":   false,
		"init":       false,
		"completion": false,
		"remember":   false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q is not registered", name)
		}
	}
}
