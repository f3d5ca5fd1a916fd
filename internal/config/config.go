// Package config handles engine configuration loading for hookline.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hookline/hookline/internal/constants"
	"github.com/hookline/hookline/internal/logger"
)

//go:embed config.toml
var defaultConfig []byte

// Audit holds audit log settings.
type Audit struct {
	Enabled bool
	// Path overrides the default audit log location.
	Path string
	// MaxSize is the rotation threshold in bytes.
	MaxSize int64
}

// Config is the parsed engine configuration.
type Config struct {
	// MaxConcurrent caps rule handlers running at once for one event.
	MaxConcurrent int
	// HandlerTimeout bounds each handler's execution.
	HandlerTimeout time.Duration
	// RulesDir is where rule documents are loaded from.
	RulesDir string
	// LoadersDir anchors loader names referenced by load actions.
	LoadersDir string
	// KnowledgePath is the note store consulted by memory rules.
	KnowledgePath string
	// Aliases maps command names to their canonical form for matching.
	Aliases map[string]string
	Audit   Audit
}

type rawConfig struct {
	MaxConcurrent  int               `toml:"max_concurrent"`
	HandlerTimeout string            `toml:"handler_timeout"`
	RulesDir       string            `toml:"rules_dir"`
	LoadersDir     string            `toml:"loaders_dir"`
	Aliases        map[string]string `toml:"aliases"`
	Audit          struct {
		Enabled   *bool  `toml:"enabled"`
		Path      string `toml:"path"`
		MaxSizeMB int64  `toml:"max_size_mb"`
	} `toml:"audit"`
	Knowledge struct {
		Path string `toml:"path"`
	} `toml:"knowledge"`
}

var (
	globalConfig      *Config
	configInitialized bool
)

// GetConfigDir returns the config directory path.
// Uses HOOKLINE_CONFIG env var if set, otherwise ~/.config/hookline
func GetConfigDir() (string, error) {
	if dir := os.Getenv(constants.EnvConfigDir); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", constants.AppName), nil
}

// EnsureConfigFiles creates the config directory and writes the default
// config file if it doesn't exist.
func EnsureConfigFiles(configDir string) error {
	if err := os.MkdirAll(configDir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, constants.ConfigFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, defaultConfig, constants.FileMode); err != nil {
			return fmt.Errorf("failed to write %s: %w", constants.ConfigFileName, err)
		}
	}

	return nil
}

// LoadConfig parses TOML data into a Config. Paths stay as written;
// resolve them against a config dir with Resolve.
func LoadConfig(data []byte) (*Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg := &Config{
		MaxConcurrent: raw.MaxConcurrent,
		RulesDir:      raw.RulesDir,
		LoadersDir:    raw.LoadersDir,
		KnowledgePath: raw.Knowledge.Path,
		Aliases:       raw.Aliases,
	}

	if raw.HandlerTimeout != "" {
		d, err := time.ParseDuration(raw.HandlerTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid handler_timeout %q: %w", raw.HandlerTimeout, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("handler_timeout must be positive, got %q", raw.HandlerTimeout)
		}
		cfg.HandlerTimeout = d
	}

	cfg.Audit.Enabled = raw.Audit.Enabled == nil || *raw.Audit.Enabled
	cfg.Audit.Path = raw.Audit.Path
	if raw.Audit.MaxSizeMB > 0 {
		cfg.Audit.MaxSize = raw.Audit.MaxSizeMB << 20
	}

	return cfg, nil
}

// Resolve fills path defaults and anchors relative paths at configDir.
func (c *Config) Resolve(configDir string) {
	c.RulesDir = resolvePath(configDir, c.RulesDir, constants.RulesSubdir)
	c.LoadersDir = resolvePath(configDir, c.LoadersDir, "loaders")
	c.KnowledgePath = resolvePath(configDir, c.KnowledgePath, constants.KnowledgeFile)
}

func resolvePath(configDir, path, def string) string {
	if path == "" {
		path = def
	}
	if home, err := os.UserHomeDir(); err == nil && len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(home, path[2:])
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(configDir, path)
}

// loadEmbeddedDefaults loads the embedded default config file.
func loadEmbeddedDefaults() *Config {
	cfg, _ := LoadConfig(defaultConfig)
	return cfg
}

// Init loads configuration from files, creating defaults if necessary.
// If loading fails, it falls back to embedded defaults.
func Init() error {
	if configInitialized {
		return nil
	}

	configDir, err := GetConfigDir()
	if err != nil {
		logger.Debug("failed to get config dir, using embedded defaults", "error", err)
		globalConfig = loadEmbeddedDefaults()
		configInitialized = true
		return err
	}

	if err := EnsureConfigFiles(configDir); err != nil {
		logger.Debug("failed to ensure config files, using embedded defaults", "error", err)
		globalConfig = loadEmbeddedDefaults()
		globalConfig.Resolve(configDir)
		configInitialized = true
		return err
	}

	configPath := filepath.Join(configDir, constants.ConfigFileName)
	configData, err := os.ReadFile(configPath)
	if err != nil {
		logger.Debug("failed to read config file, using embedded defaults", "path", configPath, "error", err)
		globalConfig = loadEmbeddedDefaults()
		globalConfig.Resolve(configDir)
		configInitialized = true
		return fmt.Errorf("failed to read %s: %w", constants.ConfigFileName, err)
	}

	globalConfig, err = LoadConfig(configData)
	if err != nil {
		logger.Debug("failed to parse config, using embedded defaults", "error", err)
		globalConfig = loadEmbeddedDefaults()
		globalConfig.Resolve(configDir)
		configInitialized = true
		return fmt.Errorf("failed to load config: %w", err)
	}
	globalConfig.Resolve(configDir)

	logger.Debug("config loaded successfully",
		"path", configPath,
		"rules_dir", globalConfig.RulesDir,
		"max_concurrent", globalConfig.MaxConcurrent)
	configInitialized = true
	return nil
}

// Get returns the current configuration.
// If Init has not been called, it initializes with defaults.
func Get() *Config {
	if !configInitialized {
		Init()
	}
	return globalConfig
}

// Reset resets the configuration state. Used for testing.
func Reset() {
	configInitialized = false
	globalConfig = nil
}

// GetDefaultConfig returns the embedded default configuration.
func GetDefaultConfig() []byte {
	return defaultConfig
}
