// Package config loads agent configuration from file, environment, and
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the cost agent.
type Config struct {
	ListenAddr  string            `mapstructure:"listen_addr"`
	Interval    string            `mapstructure:"interval"`
	CronSpec    string            `mapstructure:"cron"`
	CallTimeout string            `mapstructure:"call_timeout"`
	CacheDir    string            `mapstructure:"cache_dir"`
	CacheTTL    string            `mapstructure:"cache_ttl"`
	NoCache     bool              `mapstructure:"no_cache"`
	DryRun      bool              `mapstructure:"dry_run"`
	RateLimit   float64           `mapstructure:"rate_limit"`
	LogLevel    string            `mapstructure:"log_level"`
	Aliases     map[string]string `mapstructure:"aliases"`
	Scrape      ScrapeConfig      `mapstructure:"scrape"`
	Firecrawl   FirecrawlConfig   `mapstructure:"firecrawl"`
	LiteLLM     LiteLLMConfig     `mapstructure:"litellm"`
	GitHub      GitHubConfig      `mapstructure:"github"`
}

// ScrapeConfig selects how the models page is scraped.
type ScrapeConfig struct {
	// Mode is auto, firecrawl, or html. Auto picks firecrawl when an
	// API key is present.
	Mode    string `mapstructure:"mode"`
	PageURL string `mapstructure:"page_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// LiteLLMConfig holds target-document settings.
type LiteLLMConfig struct {
	DocumentURL string `mapstructure:"document_url"`
}

// GitHubConfig holds PR-proposal settings.
type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	Owner      string `mapstructure:"owner"`
	Repo       string `mapstructure:"repo"`
	BaseBranch string `mapstructure:"base_branch"`
	FilePath   string `mapstructure:"file_path"`
	// CheckoutPath, when set, switches the proposal sink from the
	// Contents API to a local clone driven with go-git.
	CheckoutPath string `mapstructure:"checkout_path"`
	AuthorName   string `mapstructure:"author_name"`
	AuthorEmail  string `mapstructure:"author_email"`
}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("interval", "24h")
	v.SetDefault("call_timeout", "2m")
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("no_cache", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("rate_limit", 2.0)
	v.SetDefault("log_level", "info")
	v.SetDefault("scrape.mode", "auto")
	v.SetDefault("scrape.page_url", "https://fireworks.ai/models")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev")
	v.SetDefault("litellm.document_url", "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json")
	v.SetDefault("github.owner", "BerriAI")
	v.SetDefault("github.repo", "litellm")
	v.SetDefault("github.base_branch", "main")
	v.SetDefault("github.file_path", "model_prices_and_context_window.json")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/costagent")
	}

	// Environment variables
	v.SetEnvPrefix("COSTAGENT")
	v.AutomaticEnv()

	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("firecrawl.api_key", "FIRECRAWL_API_KEY")
	_ = v.BindEnv("litellm.document_url", "COSTAGENT_LITELLM_URL")
	_ = v.BindEnv("listen_addr", "COSTAGENT_LISTEN_ADDR")
	_ = v.BindEnv("interval", "COSTAGENT_INTERVAL")
	_ = v.BindEnv("dry_run", "COSTAGENT_DRY_RUN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// IntervalDuration parses the configured sync interval.
func (c *Config) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", c.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %q", c.Interval)
	}
	return d, nil
}

// CallTimeoutDuration parses the per-external-call timeout.
func (c *Config) CallTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// CacheTTLDuration parses the cache TTL, defaulting to an hour.
func (c *Config) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/costagent-cache"
	}
	return filepath.Join(home, ".cache", "costagent")
}
