// Package config loads runtime configuration from environment variables
// and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the daemon needs to run
type Config struct {
	APIURL    string `mapstructure:"api_url"`
	StreamURL string `mapstructure:"stream_url"`

	Network   string `mapstructure:"network"`
	BridgeURL string `mapstructure:"bridge_url"`
	Wallet    string `mapstructure:"wallet"`

	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	BlockWindow    int           `mapstructure:"block_window"`
	TxWindow       int           `mapstructure:"tx_window"`

	StatusAddr      string `mapstructure:"status_addr"`
	CredentialsFile string `mapstructure:"credentials_file"`
	RedisURL        string `mapstructure:"redis_url"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from ADAPULSE_* environment variables, falling
// back to the built-in defaults
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("adapulse")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", "http://localhost:8000")
	v.SetDefault("stream_url", "ws://localhost:8000/ws")
	v.SetDefault("network", "testnet")
	v.SetDefault("bridge_url", "http://localhost:3199")
	v.SetDefault("wallet", "")
	v.SetDefault("reconnect_delay", 3*time.Second)
	v.SetDefault("block_window", 20)
	v.SetDefault("tx_window", 50)
	v.SetDefault("status_addr", ":9000")
	v.SetDefault("credentials_file", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("log_level", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Network {
	case "testnet", "preprod", "preview", "mainnet":
	default:
		return fmt.Errorf("unknown network %q", c.Network)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be positive, got %s", c.ReconnectDelay)
	}
	if c.BlockWindow <= 0 || c.TxWindow <= 0 {
		return fmt.Errorf("retention windows must be positive")
	}
	return nil
}

// ExpectedNetworkID maps the configured network name to a CIP-30 network id
func (c Config) ExpectedNetworkID() int {
	if c.Network == "mainnet" {
		return 1
	}
	return 0
}
