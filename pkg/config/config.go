// Package config loads inkwell settings from a TOML file, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/papercomputeco/inkwell/pkg/llm/openai"
)

const (
	DefaultListenAddr = ":3000"
	DefaultSessionTTL = 30 * 24 * time.Hour
	DirName           = ".inkwell"
	FileName          = "config.toml"
	DBFileName        = "inkwell.db"
)

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
	Limits   LimitsConfig   `toml:"limits"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Listen     string `toml:"listen"`
	SessionTTL string `toml:"session_ttl"`
	Metrics    bool   `toml:"metrics"`

	// CookieSecure sets the Secure attribute on the session cookie
	CookieSecure bool `toml:"cookie_secure"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" keeps everything in memory
	Path string `toml:"path"`
}

type LLMConfig struct {
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	Timeout    string `toml:"timeout"`
	MaxRetries *int   `toml:"max_retries"`
}

type LimitsConfig struct {
	// GeneratePerMinute is the per-user budget; 0 disables the limit
	GeneratePerMinute int `toml:"generate_per_minute"`
}

type LogConfig struct {
	Debug bool `toml:"debug"`
	JSON  bool `toml:"json"`
}

// Default returns the built-in configuration.
func Default() Config {
	retries := openai.DefaultMaxRetries
	return Config{
		Server: ServerConfig{
			Listen:     DefaultListenAddr,
			SessionTTL: DefaultSessionTTL.String(),
			Metrics:    true,
		},
		LLM: LLMConfig{
			BaseURL:    openai.DefaultBaseURL,
			Model:      openai.DefaultModel,
			Timeout:    openai.DefaultTimeout.String(),
			MaxRetries: &retries,
		},
		Limits: LimitsConfig{
			GeneratePerMinute: 10,
		},
	}
}

// Load reads path (or the default location when path is empty) over the
// defaults, then applies .env and environment overrides. A missing file at the
// default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if def, err := Path(""); err == nil {
			path = def
		}
	}

	if path != "" {
		_, err := toml.DecodeFile(path, &cfg)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("could not read config %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the config file Load reads for path: path itself when set,
// ~/.inkwell/config.toml otherwise.
func Path(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("INKWELL_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("INKWELL_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("INKWELL_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("INKWELL_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("INKWELL_GENERATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INKWELL_GENERATE_PER_MINUTE %q: must be a whole number", v)
		}
		c.Limits.GeneratePerMinute = n
	}
	return nil
}

// Validate checks durations and limits.
func (c *Config) Validate() error {
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	if _, err := c.SessionTTL(); err != nil {
		return err
	}
	if c.Limits.GeneratePerMinute < 0 {
		return fmt.Errorf("limits.generate_per_minute must not be negative, got %d", c.Limits.GeneratePerMinute)
	}
	if c.LLM.MaxRetries != nil && *c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative, got %d", *c.LLM.MaxRetries)
	}
	return nil
}

// LLMTimeout parses llm.timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	return parseDuration("llm.timeout", c.LLM.Timeout, openai.DefaultTimeout)
}

// SessionTTL parses server.session_ttl.
func (c *Config) SessionTTL() (time.Duration, error) {
	return parseDuration("server.session_ttl", c.Server.SessionTTL, DefaultSessionTTL)
}

// Retries returns llm.max_retries or the default.
func (c *Config) Retries() int {
	if c.LLM.MaxRetries == nil {
		return openai.DefaultMaxRetries
	}
	return *c.LLM.MaxRetries
}

// ProviderOptions converts the LLM section into provider options.
func (c *Config) ProviderOptions() []openai.Option {
	timeout, _ := c.LLMTimeout()
	return []openai.Option{
		openai.WithAPIKey(c.LLM.APIKey),
		openai.WithBaseURL(c.LLM.BaseURL),
		openai.WithModel(c.LLM.Model),
		openai.WithTimeout(timeout),
		openai.WithMaxRetries(c.Retries()),
	}
}

func parseDuration(key, v string, fallback time.Duration) (time.Duration, error) {
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

// Dir returns ~/.inkwell.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}
