package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/runner"
)

// Config represents the hitdesk configuration
type Config struct {
	Root               string  `json:"root,omitempty" yaml:"root,omitempty"`
	DefaultEnvironment string  `json:"defaultEnvironment,omitempty" yaml:"defaultEnvironment,omitempty"`
	Timeout            int     `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects    *bool   `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects       int     `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL        *bool   `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy              string  `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	RateLimit          float64 `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // requests per second
	SessionDB          string  `json:"sessionDb,omitempty" yaml:"sessionDb,omitempty"`
	NoticeTTL          int     `json:"noticeTtl,omitempty" yaml:"noticeTtl,omitempty"` // milliseconds
	Listen             string  `json:"listen,omitempty" yaml:"listen,omitempty"`
	Watch              *bool   `json:"watch,omitempty" yaml:"watch,omitempty"`
	NoColor            *bool   `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetWatch returns the watch setting, defaulting to true
func (c *Config) GetWatch() bool {
	return getBool(c.Watch, true)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func (c *Config) NoticeTTLDuration() time.Duration {
	return time.Duration(c.NoticeTTL) * time.Millisecond
}

// RunnerConfig translates the request execution settings.
func (c *Config) RunnerConfig() *runner.Config {
	return &runner.Config{
		Timeout:        c.TimeoutDuration(),
		FollowRedirect: c.GetFollowRedirects(),
		MaxRedirects:   c.MaxRedirects,
		ValidateSSL:    c.GetValidateSSL(),
		Proxy:          c.Proxy,
		RateLimit:      c.RateLimit,
	}
}

// ConfigFilenames contains the possible config file names, in lookup order
var ConfigFilenames = []string{
	".hitdesk.json",
	".hitdesk.yaml",
	".hitdesk.yml",
	"hitdesk.json",
	"hitdesk.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Root != "" {
		result.Root = other.Root
	}
	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.SessionDB != "" {
		result.SessionDB = other.SessionDB
	}
	if other.NoticeTTL > 0 {
		result.NoticeTTL = other.NoticeTTL
	}
	if other.Listen != "" {
		result.Listen = other.Listen
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Watch != nil {
		result.Watch = other.Watch
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	return &result
}

// SaveConfig saves the configuration to a file, as YAML when the
// extension says so and JSON otherwise
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
