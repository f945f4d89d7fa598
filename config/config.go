package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling and env variable binding.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// RedisAddr switches the stats cache from in-process memory to a shared
	// Redis instance when non-empty.
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`

	// CredentialSecret is the master secret the at-rest token cipher key is
	// derived from. Must be set outside local development.
	CredentialSecret string `mapstructure:"CREDENTIAL_SECRET"`

	StatsCacheTTLMin     int    `mapstructure:"STATS_CACHE_TTL_MIN"`
	CleanupSchedule      string `mapstructure:"CLEANUP_SCHEDULE"`
	HistoryRetentionDays int    `mapstructure:"HISTORY_RETENTION_DAYS"`
	GrowthWindowDays     int    `mapstructure:"GROWTH_WINDOW_DAYS"`
	TrendMonths          int    `mapstructure:"TREND_MONTHS"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/creatorpulse/")
	v.AddConfigPath("$HOME/.creatorpulse")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/creatorpulse_dev")
	v.SetDefault("MONGO_DB_NAME", "creatorpulse_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PREFIX", "creatorpulse")
	v.SetDefault("CREDENTIAL_SECRET", "a_very_secret_master_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("STATS_CACHE_TTL_MIN", 5)
	v.SetDefault("CLEANUP_SCHEDULE", "@every 1h")
	v.SetDefault("HISTORY_RETENTION_DAYS", 90)
	v.SetDefault("GROWTH_WINDOW_DAYS", 30)
	v.SetDefault("TREND_MONTHS", 6)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we run on defaults and env vars.
		// Anything else (permissions, malformed yaml) is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
