// Package config loads prompt-mover settings from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dpshade/prompt-mover/internal/models"
)

const (
	DefaultAddr    = ":8080"
	DefaultAPIID   = "prompt-mover"
	DefaultTimeout = 15 * time.Second

	envPrefix = "PROMPT_MOVER_"
)

// Config holds every setting the CLI, UI and host server read
type Config struct {
	// PresetsDir is the local preset library, also served by `serve`
	PresetsDir string `yaml:"presets_dir"`
	// APIURL selects a remote host; when empty the local directory is used
	APIURL string `yaml:"api_url,omitempty"`
	// APIID identifies this tool to the host save endpoint
	APIID    string        `yaml:"api_id"`
	Addr     string        `yaml:"addr"`
	Scope    string        `yaml:"scope"`
	LogLevel string        `yaml:"log_level"`
	Timeout  time.Duration `yaml:"timeout"`

	path string
}

// BaseDir returns ~/.prompt-mover
func BaseDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".prompt-mover"), nil
}

// DefaultPath returns the location of the config file
func DefaultPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Default returns the built-in settings
func Default() (*Config, error) {
	base, err := BaseDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		PresetsDir: filepath.Join(base, "presets"),
		APIID:      DefaultAPIID,
		Addr:       DefaultAddr,
		Scope:      models.GlobalScope,
		LogLevel:   "info",
		Timeout:    DefaultTimeout,
	}, nil
}

// Load reads the config file at path (the default path when empty) and
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DIR":       &c.PresetsDir,
		"API_URL":   &c.APIURL,
		"API_ID":    &c.APIID,
		"ADDR":      &c.Addr,
		"SCOPE":     &c.Scope,
		"LOG_LEVEL": &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", envPrefix, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the settings after every override has been applied
func (c *Config) Validate() error {
	if c.PresetsDir == "" && c.APIURL == "" {
		return fmt.Errorf("either presets_dir or api_url must be set")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.APIURL != "" && !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api_url must start with http:// or https://")
	}
	if c.Scope == "" {
		c.Scope = models.GlobalScope
	}
	return nil
}

// Remote reports whether presets are read from a host API
func (c *Config) Remote() bool {
	return c.APIURL != ""
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the config back to the file it was loaded from
func (c *Config) Save() error {
	if c.path == "" {
		path, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = path
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(c.path, data, 0644)
}
