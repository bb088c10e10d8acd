// Package config loads bot settings from the environment, a .env file and an optional YAML overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sukalov/geniusbot/internal/command"
	"github.com/sukalov/geniusbot/internal/utils"
)

// Config holds the whole bot configuration.
type Config struct {
	Reddit     RedditConfig     `yaml:"reddit"`
	Genius     GeniusConfig     `yaml:"genius"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Cache      CacheConfig      `yaml:"cache"`
	Trigger    TriggerConfig    `yaml:"trigger"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Log        LogConfig        `yaml:"log"`
}

type RedditConfig struct {
	ClientID     string        `yaml:"-"`
	ClientSecret string        `yaml:"-"`
	Username     string        `yaml:"-"`
	Password     string        `yaml:"-"`
	UserAgent    string        `yaml:"user_agent"`
	Subreddit    string        `yaml:"subreddit"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type GeniusConfig struct {
	Token string `yaml:"-"`
}

// LedgerConfig selects the dedup backend by URL scheme.
type LedgerConfig struct {
	URL       string `yaml:"url"`
	AuthToken string `yaml:"-"`
}

type CacheConfig struct {
	Dir        string `yaml:"dir"`
	MemorySize int    `yaml:"memory_size"`
}

type TriggerConfig struct {
	Mode      command.TriggerMode `yaml:"mode"`
	Token     string              `yaml:"token"`
	MaxVerses int                 `yaml:"max_verses"`
}

type SupervisorConfig struct {
	BackoffMin time.Duration `yaml:"backoff_min"`
	BackoffMax time.Duration `yaml:"backoff_max"`
}

// LogConfig configures the console logger and the optional Telegram channel sink.
type LogConfig struct {
	Level          string   `yaml:"level"`
	BotToken       string   `yaml:"-"`
	ChannelID      int64    `yaml:"channel_id"`
	AdminUsernames []string `yaml:"admin_usernames"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent:    "geniusbot/1.0",
			Subreddit:    "lukerken",
			PollInterval: 5 * time.Second,
		},
		Ledger: LedgerConfig{URL: "file:geniusbot.db"},
		Cache:  CacheConfig{Dir: "lyrics", MemorySize: 128},
		Trigger: TriggerConfig{
			Mode:      command.TriggerExact,
			MaxVerses: command.DefaultMaxVerses,
		},
		Supervisor: SupervisorConfig{
			BackoffMin: 2 * time.Second,
			BackoffMax: 5 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then BOT_CONFIG_FILE, then environment variables.
func Load() (*Config, error) {
	// .env is optional; LoadEnv with no required keys only loads it.
	if _, err := utils.LoadEnv(nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if path := os.Getenv("BOT_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Reddit.ClientID = utils.EnvOr("REDDIT_CLIENT_ID", c.Reddit.ClientID)
	c.Reddit.ClientSecret = utils.EnvOr("REDDIT_CLIENT_SECRET", c.Reddit.ClientSecret)
	c.Reddit.Username = utils.EnvOr("REDDIT_USERNAME", c.Reddit.Username)
	c.Reddit.Password = utils.EnvOr("REDDIT_PASSWORD", c.Reddit.Password)
	c.Reddit.UserAgent = utils.EnvOr("REDDIT_USER_AGENT", c.Reddit.UserAgent)
	c.Reddit.Subreddit = utils.EnvOr("REDDIT_SUBREDDIT", c.Reddit.Subreddit)
	c.Genius.Token = utils.EnvOr("GENIUS_TOKEN", c.Genius.Token)
	c.Ledger.URL = utils.EnvOr("LEDGER_URL", c.Ledger.URL)
	c.Ledger.AuthToken = utils.EnvOr("LEDGER_AUTH_TOKEN", c.Ledger.AuthToken)
	c.Cache.Dir = utils.EnvOr("CACHE_DIR", c.Cache.Dir)
	c.Trigger.Mode = command.TriggerMode(strings.ToLower(utils.EnvOr("TRIGGER_MODE", string(c.Trigger.Mode))))
	c.Trigger.Token = utils.EnvOr("TRIGGER_TOKEN", c.Trigger.Token)
	c.Log.Level = utils.EnvOr("LOG_LEVEL", c.Log.Level)
	c.Log.BotToken = utils.EnvOr("LOG_BOT_TOKEN", c.Log.BotToken)

	if raw := os.Getenv("ADMIN_USERNAMES"); raw != "" {
		c.Log.AdminUsernames = utils.SplitList(raw)
	}

	var err error
	if c.Trigger.MaxVerses, err = intEnv("MAX_VERSES", c.Trigger.MaxVerses); err != nil {
		return err
	}
	if c.Cache.MemorySize, err = intEnv("CACHE_MEMORY_SIZE", c.Cache.MemorySize); err != nil {
		return err
	}
	if raw := os.Getenv("LOG_CHANNEL_ID"); raw != "" {
		c.Log.ChannelID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse LOG_CHANNEL_ID: %w", err)
		}
	}
	if c.Reddit.PollInterval, err = durationEnv("POLL_INTERVAL", c.Reddit.PollInterval); err != nil {
		return err
	}
	if c.Supervisor.BackoffMin, err = durationEnv("BACKOFF_MIN", c.Supervisor.BackoffMin); err != nil {
		return err
	}
	if c.Supervisor.BackoffMax, err = durationEnv("BACKOFF_MAX", c.Supervisor.BackoffMax); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings that do not depend on which subcommand runs.
func (c *Config) Validate() error {
	switch c.Trigger.Mode {
	case command.TriggerExact, command.TriggerSubstring:
	default:
		return fmt.Errorf("unknown trigger mode %q", c.Trigger.Mode)
	}
	if c.Trigger.MaxVerses < 1 {
		return fmt.Errorf("max verses must be positive, got %d", c.Trigger.MaxVerses)
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache dir must not be empty")
	}
	if c.Supervisor.BackoffMin <= 0 || c.Supervisor.BackoffMax < c.Supervisor.BackoffMin {
		return fmt.Errorf("invalid backoff bounds %s..%s", c.Supervisor.BackoffMin, c.Supervisor.BackoffMax)
	}
	return nil
}

// RequireReddit reports the first missing Reddit credential.
func (c *Config) RequireReddit() error {
	required := map[string]string{
		"REDDIT_CLIENT_ID":     c.Reddit.ClientID,
		"REDDIT_CLIENT_SECRET": c.Reddit.ClientSecret,
		"REDDIT_USERNAME":      c.Reddit.Username,
		"REDDIT_PASSWORD":      c.Reddit.Password,
	}
	for _, key := range []string{"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_USERNAME", "REDDIT_PASSWORD"} {
		if required[key] == "" {
			return fmt.Errorf("missing required environment variable: %s", key)
		}
	}
	return nil
}

func (c *Config) RequireGenius() error {
	if c.Genius.Token == "" {
		return fmt.Errorf("missing required environment variable: GENIUS_TOKEN")
	}
	return nil
}

// TriggerToken falls back to the authenticated account name.
func (c *Config) TriggerToken() string {
	if c.Trigger.Token != "" {
		return c.Trigger.Token
	}
	return c.Reddit.Username
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return value, nil
}
