package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	ServerPort  string `mapstructure:"SERVER_PORT"`
	APIKey      string `mapstructure:"API_KEY"`

	MaxRetries        int  `mapstructure:"MAX_RETRIES"`
	FetchTimeout      int  `mapstructure:"FETCH_TIMEOUT"`       // seconds
	RetryBaseDelay    int  `mapstructure:"RETRY_BASE_DELAY"`    // seconds
	BatchWorkers      int  `mapstructure:"BATCH_WORKERS"`
	RequestIntervalMS int  `mapstructure:"REQUEST_INTERVAL_MS"` // pacing between fetches
	RenderJS          bool `mapstructure:"RENDER_JS"`

	CheckIntervalMinutes int `mapstructure:"CHECK_INTERVAL_MINUTES"`
	RecheckTTLHours      int `mapstructure:"RECHECK_TTL_HOURS"`
	MaxFailures          int `mapstructure:"MAX_FAILURES"`

	// Comma-separated lists; empty means built-in agents and no proxy.
	UserAgents string `mapstructure:"USER_AGENTS"`
	ProxyList  string `mapstructure:"PROXY_LIST"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("FETCH_TIMEOUT", 10)      // in seconds
	viper.SetDefault("RETRY_BASE_DELAY", 2)    // in seconds
	viper.SetDefault("BATCH_WORKERS", 5)
	viper.SetDefault("REQUEST_INTERVAL_MS", 500)
	viper.SetDefault("CHECK_INTERVAL_MINUTES", 720)
	viper.SetDefault("RECHECK_TTL_HOURS", 1)
	viper.SetDefault("MAX_FAILURES", 3)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UserAgentList splits the configured user agents.
func (c *Config) UserAgentList() []string {
	return splitList(c.UserAgents)
}

// Proxies splits the configured proxy URLs.
func (c *Config) Proxies() []string {
	return splitList(c.ProxyList)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
