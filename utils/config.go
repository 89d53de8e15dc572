package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "chinese-tutor"
	configFileName = "config.yaml"

	DefaultAPIBaseURL = "http://localhost:5001/api"
)

var appConfigMemCache = make(map[string]*AppConfig)

type AppConfig struct {
	APIBaseURL      string           `yaml:"api_base_url,omitempty"`
	DefaultScenario string           `yaml:"default_scenario,omitempty"`
	ShowPinyin      bool             `yaml:"show_pinyin"`
	ShowEnglish     bool             `yaml:"show_english"`
	Features        FeatureConfig    `yaml:"features"`
	Scenarios       []ScenarioConfig `yaml:"scenarios,omitempty"`
	LogFile         string           `yaml:"log_file,omitempty"`
	LogLevel        string           `yaml:"log_level,omitempty"`
	ExportDir       string           `yaml:"export_dir,omitempty"`
	GlossTarget     string           `yaml:"gloss_target,omitempty"`
}

type FeatureConfig struct {
	PerTurnFeedback    bool `yaml:"per_turn_feedback"`
	EndOfSessionReview bool `yaml:"end_of_session_review"`
}

type ScenarioConfig struct {
	ID          string `yaml:"id"`
	Label       string `yaml:"label"`
	Description string `yaml:"description,omitempty"`
}

func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		APIBaseURL:      DefaultAPIBaseURL,
		DefaultScenario: "restaurant",
		Features: FeatureConfig{
			EndOfSessionReview: true,
		},
		LogLevel:    "info",
		ExportDir:   "exports",
		GlossTarget: "en",
	}
}

// GetConfigDir returns the per-user directory holding config.yaml and the log.
func GetConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName)
}

func DefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), configFileName)
}

// LoadAppConfig reads the YAML config at path, falling back to defaults when
// the file does not exist, then applies TUTOR_* environment overrides. Results
// are cached per path.
func LoadAppConfig(path string) (*AppConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if cached, exists := appConfigMemCache[path]; exists {
		return cached, nil
	}

	config, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}

	config.applyEnv()
	config.fillDefaults()

	appConfigMemCache[path] = config
	return config, nil
}

// LoadFileConfig reads only what is stored at path. Unset string keys stay
// empty and environment overrides are not applied, so the result is safe to
// edit and write back with SaveAppConfig.
func LoadFileConfig(path string) (*AppConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	config := &AppConfig{Features: DefaultAppConfig().Features}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	return config, nil
}

// SaveAppConfig writes config to path, creating the directory if needed. The
// cached effective config for path is dropped so the next load re-applies the
// environment.
func SaveAppConfig(path string, config *AppConfig) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	delete(appConfigMemCache, path)
	return nil
}

func ClearAppConfigCache() {
	appConfigMemCache = make(map[string]*AppConfig)
}

func (c *AppConfig) applyEnv() {
	if v := os.Getenv("TUTOR_API_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("TUTOR_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("TUTOR_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *AppConfig) fillDefaults() {
	defaults := DefaultAppConfig()
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaults.APIBaseURL
	}
	if c.DefaultScenario == "" {
		c.DefaultScenario = defaults.DefaultScenario
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(GetConfigDir(), "tutor.log")
	}
	if c.ExportDir == "" {
		c.ExportDir = defaults.ExportDir
	}
	if c.GlossTarget == "" {
		c.GlossTarget = defaults.GlossTarget
	}
}

var configKeys = map[string]func(c *AppConfig, value string) error{
	"api_base_url":     func(c *AppConfig, v string) error { c.APIBaseURL = v; return nil },
	"default_scenario": func(c *AppConfig, v string) error { c.DefaultScenario = v; return nil },
	"log_file":         func(c *AppConfig, v string) error { c.LogFile = v; return nil },
	"log_level":        func(c *AppConfig, v string) error { c.LogLevel = v; return nil },
	"export_dir":       func(c *AppConfig, v string) error { c.ExportDir = v; return nil },
	"gloss_target":     func(c *AppConfig, v string) error { c.GlossTarget = v; return nil },
	"show_pinyin":      boolSetter(func(c *AppConfig, b bool) { c.ShowPinyin = b }),
	"show_english":     boolSetter(func(c *AppConfig, b bool) { c.ShowEnglish = b }),
	"features.per_turn_feedback": boolSetter(func(c *AppConfig, b bool) {
		c.Features.PerTurnFeedback = b
	}),
	"features.end_of_session_review": boolSetter(func(c *AppConfig, b bool) {
		c.Features.EndOfSessionReview = b
	}),
}

func boolSetter(set func(*AppConfig, bool)) func(*AppConfig, string) error {
	return func(c *AppConfig, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", value)
		}
		set(c, b)
		return nil
	}
}

// Set updates a single key using its YAML name, e.g. "show_pinyin" or
// "features.per_turn_feedback".
func (c *AppConfig) Set(key, value string) error {
	setter, ok := configKeys[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("unknown config key '%s' (known keys: %s)", key, strings.Join(ConfigKeys(), ", "))
	}
	return setter(c, strings.TrimSpace(value))
}

func ConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
