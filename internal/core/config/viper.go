package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// Environment > config file > defaults precedence; CLI flags are
// layered on by the command layer.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults matching Default()
	v.SetDefault("agent.debug", false)
	v.SetDefault("agent.api_endpoint", DefaultAPIEndpoint)
	v.SetDefault("agent.auto_events", nil)
	v.SetDefault("agent.batch_size", DefaultBatchSize)
	v.SetDefault("agent.flush_interval", DefaultFlushInterval.String())
	v.SetDefault("agent.batching", true)
	v.SetDefault("agent.state_store_url", "")

	// Bind environment variables with PULSE_ prefix
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	batching := v.GetBool("agent.batching")
	cfg := &Config{
		Debug:         v.GetBool("agent.debug"),
		APIEndpoint:   v.GetString("agent.api_endpoint"),
		AutoEvents:    v.GetStringSlice("agent.auto_events"),
		BatchSize:     v.GetInt("agent.batch_size"),
		FlushInterval: v.GetDuration("agent.flush_interval"),
		Batching:      &batching,
		StateStoreURL: v.GetString("agent.state_store_url"),
	}
	if !v.IsSet("agent.auto_events") {
		cfg.AutoEvents = nil
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
