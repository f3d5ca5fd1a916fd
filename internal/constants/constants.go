// Package constants defines shared constants used across the hookline codebase.
package constants

import "os"

// File permissions
const (
	DirMode  os.FileMode = 0755
	FileMode os.FileMode = 0644
)

// Environment variables
const (
	EnvConfigDir = "HOOKLINE_CONFIG"
	EnvRulesDir  = "HOOKLINE_RULES"
)

// Application paths
const (
	AppName        = "hookline"
	ConfigFileName = "config.toml"
	RulesSubdir    = "rules"
	KnowledgeFile  = "knowledge.db"
)
