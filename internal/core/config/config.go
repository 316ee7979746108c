package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/errs"
)

// DefaultInsightTemplate renders one generated insight line. Overridable via
// ~/.config/ccboard/insight_template.txt.
const DefaultInsightTemplate = `{{title}}: {{detail}}{{#has_metric}} ({{metric}}){{/has_metric}}`

// Config carries the resolved filesystem layout and user overrides.
type Config struct {
	ClaudeDir       string // ~/.claude unless overridden
	CachePath       string // metadata cache database file
	InsightTemplate string
}

type tomlConfig struct {
	ClaudeDir string `toml:"claude_dir"`
	CachePath string `toml:"cache_path"`
}

// Load resolves the configuration from ~/.config/ccboard/, falling back to
// defaults for anything absent. A missing home directory is the only fatal
// condition.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errs.New(errs.KindConfig, "resolve home", "", errs.ErrHomeNotFound)
	}

	cfg := &Config{
		ClaudeDir:       filepath.Join(home, ".claude"),
		CachePath:       filepath.Join(home, ".cache", "ccboard", "metadata.db"),
		InsightTemplate: DefaultInsightTemplate,
	}

	configDir := filepath.Join(home, ".config", "ccboard")
	tomlPath := filepath.Join(configDir, "config.toml")
	templatePath := filepath.Join(configDir, "insight_template.txt")

	// Load TOML config if it exists
	if _, err := os.Stat(tomlPath); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(tomlPath, &tc); err != nil {
			return nil, errs.New(errs.KindConfig, "decode config", tomlPath, err)
		}
		if tc.ClaudeDir != "" {
			cfg.ClaudeDir = tc.ClaudeDir
		}
		if tc.CachePath != "" {
			cfg.CachePath = tc.CachePath
		}
	}

	// If custom template exists, use it
	if data, err := os.ReadFile(templatePath); err == nil {
		cfg.InsightTemplate = string(data)
	}

	return cfg, nil
}

// ProjectsDir is the root of the per-project session trees.
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.ClaudeDir, "projects")
}

// StatsFile is the aggregate usage counters file.
func (c *Config) StatsFile() string {
	return filepath.Join(c.ClaudeDir, "stats-cache.json")
}

// GlobalSettings is the top-tier settings file.
func (c *Config) GlobalSettings() string {
	return filepath.Join(c.ClaudeDir, "settings.json")
}
