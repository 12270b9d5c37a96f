// Package config loads agent and proxy settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/petasbytes/aurora-agent/internal/logger"
	"github.com/petasbytes/aurora-agent/internal/provider"
	"github.com/petasbytes/aurora-agent/internal/proxy"
	"github.com/petasbytes/aurora-agent/internal/telemetry"
	"github.com/petasbytes/aurora-agent/tools"
)

const (
	EnvPrefix = "AURORA"
	// EnvAPIKey holds the OpenRouter credential. It is read without the prefix.
	EnvAPIKey = "OPENROUTER_API_KEY"
	// EnvConfigFile names an optional yaml/json/toml file.
	EnvConfigFile = "AURORA_CONFIG"

	DefaultMaxTurns   = 10
	defaultEventsSize = 10 // MB
)

type Config struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	Referer   string `mapstructure:"referer"`
	Title     string `mapstructure:"title"`
	MaxTurns  int    `mapstructure:"max_turns"`
	MaxTokens int64  `mapstructure:"max_tokens"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ShellTimeout   time.Duration `mapstructure:"shell_timeout"`
	FileTimeout    time.Duration `mapstructure:"file_timeout"`
	SearchTimeout  time.Duration `mapstructure:"search_timeout"`

	Log        logger.Config `mapstructure:"log"`
	Observe    bool          `mapstructure:"observe"`
	EventsFile string        `mapstructure:"events_file"`

	Proxy ProxyConfig `mapstructure:"proxy"`
}

type ProxyConfig struct {
	TargetModel string `mapstructure:"target_model"`
	Port        int    `mapstructure:"port"`
	Upstream    string `mapstructure:"upstream"`
}

// StartupError is a configuration or usage problem detected before the
// agent loop starts. Its message is shown to the user as is.
type StartupError struct {
	Msg string
}

func (e *StartupError) Error() string { return e.Msg }

// ErrMissingAPIKey is wrapped by the StartupError for an unset credential.
var ErrMissingAPIKey = errors.New(EnvAPIKey + " is not set.")

func setDefaults(v *viper.Viper) {
	timeouts := tools.DefaultTimeouts()
	logCfg := logger.DefaultConfig()

	v.SetDefault("model", provider.DefaultModel)
	v.SetDefault("base_url", provider.DefaultBaseURL)
	v.SetDefault("referer", provider.DefaultReferer)
	v.SetDefault("title", provider.DefaultTitle)
	v.SetDefault("max_turns", DefaultMaxTurns)
	v.SetDefault("max_tokens", provider.DefaultMaxTokens)
	v.SetDefault("request_timeout", 5*time.Minute)
	v.SetDefault("shell_timeout", timeouts.Shell)
	v.SetDefault("file_timeout", timeouts.File)
	v.SetDefault("search_timeout", timeouts.Search)

	v.SetDefault("log.level", logCfg.Level)
	v.SetDefault("log.format", logCfg.Format)
	v.SetDefault("log.output", logCfg.Output)
	v.SetDefault("log.file.filename", logCfg.File.Filename)
	v.SetDefault("log.file.maxsize", logCfg.File.MaxSize)
	v.SetDefault("log.file.maxage", logCfg.File.MaxAge)
	v.SetDefault("log.file.maxbackups", logCfg.File.MaxBackups)
	v.SetDefault("log.file.compress", logCfg.File.Compress)

	v.SetDefault("observe", false)
	v.SetDefault("events_file", telemetry.DefaultPath)

	v.SetDefault("proxy.target_model", proxy.DefaultTargetModel)
	v.SetDefault("proxy.port", proxy.DefaultPort)
	v.SetDefault("proxy.upstream", proxy.DefaultUpstream)
}

// Load reads defaults, then the file named by AURORA_CONFIG (if any), then
// AURORA_* environment variables. It does not validate.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", EnvAPIKey); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", EnvAPIKey, err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate reports a missing credential as a *StartupError; other problems
// are plain errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &StartupError{Msg: "ERROR: " + ErrMissingAPIKey.Error()}
	}
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be at least 1, got %d", c.MaxTurns)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", c.MaxTokens)
	}
	for name, d := range map[string]time.Duration{
		"request_timeout": c.RequestTimeout,
		"shell_timeout":   c.ShellTimeout,
		"file_timeout":    c.FileTimeout,
		"search_timeout":  c.SearchTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Provider returns the transport settings.
func (c *Config) Provider() provider.Config {
	return provider.Config{
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		Model:     c.Model,
		MaxTokens: c.MaxTokens,
		Referer:   c.Referer,
		Title:     c.Title,
	}
}

func (c *Config) Timeouts() tools.Timeouts {
	return tools.Timeouts{Shell: c.ShellTimeout, File: c.FileTimeout, Search: c.SearchTimeout}
}

func (c *Config) Telemetry() telemetry.Config {
	return telemetry.Config{
		Enabled:    c.Observe,
		Path:       c.EventsFile,
		MaxSizeMB:  defaultEventsSize,
		MaxBackups: 3,
	}
}
