package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

const defaultConfigFile = "config.json"

type Config struct {
	Server struct {
		Address string
	}
	Log struct {
		Level string `mapstructure:"LOG_LEVEL"`
	}
	Ethereum struct {
		RPCURL string `mapstructure:"ETH_RPC_URL"`
	}
	GitHub struct {
		APIURL string `mapstructure:"GITHUB_API_URL"`
		Token  string `mapstructure:"GITHUB_TOKEN"`
	}
	EthResearch struct {
		URL        string `mapstructure:"ETHRESEARCH_URL"`
		TopicLimit int    `mapstructure:"ETHRESEARCH_TOPIC_LIMIT"`
	}
	Cache struct {
		TTL        time.Duration `mapstructure:"CACHE_TTL"`
		MaxEntries int           `mapstructure:"CACHE_MAX_ENTRIES"`
	}
	Upstream struct {
		Timeout    time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
		MaxRetries int           `mapstructure:"UPSTREAM_MAX_RETRIES"`
		Backoff    time.Duration `mapstructure:"UPSTREAM_BACKOFF"`
	}
	Live struct {
		PollInterval time.Duration `mapstructure:"LIVE_POLL_INTERVAL"`
	}
}

// Load reads configFile (config.json when empty), then the environment.
// A missing default file is not an error; a missing explicit one is.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	explicit := configFile != ""
	if !explicit {
		configFile = defaultConfigFile
	}
	v.SetConfigFile(configFile)
	v.AutomaticEnv()

	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ETH_RPC_URL", "https://eth.llamarpc.com")
	v.SetDefault("GITHUB_API_URL", "https://api.github.com")
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("ETHRESEARCH_URL", "https://ethresear.ch")
	v.SetDefault("ETHRESEARCH_TOPIC_LIMIT", 30)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CACHE_MAX_ENTRIES", 1000)
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_MAX_RETRIES", 3)
	v.SetDefault("UPSTREAM_BACKOFF", "200ms")
	v.SetDefault("LIVE_POLL_INTERVAL", "12s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	cfg.Server.Address = v.GetString("SERVER_ADDRESS")
	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Ethereum.RPCURL = v.GetString("ETH_RPC_URL")

	cfg.GitHub.APIURL = v.GetString("GITHUB_API_URL")
	cfg.GitHub.Token = v.GetString("GITHUB_TOKEN")

	cfg.EthResearch.URL = v.GetString("ETHRESEARCH_URL")
	cfg.EthResearch.TopicLimit = v.GetInt("ETHRESEARCH_TOPIC_LIMIT")

	cfg.Cache.TTL = v.GetDuration("CACHE_TTL")
	cfg.Cache.MaxEntries = v.GetInt("CACHE_MAX_ENTRIES")

	cfg.Upstream.Timeout = v.GetDuration("UPSTREAM_TIMEOUT")
	cfg.Upstream.MaxRetries = v.GetInt("UPSTREAM_MAX_RETRIES")
	cfg.Upstream.Backoff = v.GetDuration("UPSTREAM_BACKOFF")

	cfg.Live.PollInterval = v.GetDuration("LIVE_POLL_INTERVAL")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("SERVER_ADDRESS must not be empty")
	}
	for key, raw := range map[string]string{
		"ETH_RPC_URL":     c.Ethereum.RPCURL,
		"GITHUB_API_URL":  c.GitHub.APIURL,
		"ETHRESEARCH_URL": c.EthResearch.URL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}
	if c.EthResearch.TopicLimit < 1 {
		return fmt.Errorf("ETHRESEARCH_TOPIC_LIMIT must be ≥ 1")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be ≥ 1")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.Upstream.MaxRetries < 1 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must be ≥ 1")
	}
	if c.Live.PollInterval <= 0 {
		return fmt.Errorf("LIVE_POLL_INTERVAL must be positive")
	}
	return nil
}
