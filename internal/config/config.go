package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ServerConfig holds the settings for the covtrack service.
type ServerConfig struct {
	Listen   string         `mapstructure:"listen"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
}

// LogConfig controls the logging facade.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig holds the durable store connection settings.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load reads a configuration file from the "configs" directory into a struct.
// The configName parameter should be the base name of the file without the
// extension (e.g., "covtrack"). The result parameter should be a pointer to a
// struct that the configuration will be unmarshaled into.
func Load(configName string, result interface{}) error {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(result); err != nil {
		return fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	return nil
}

// LoadServer reads the server configuration, applying defaults for anything
// the file leaves unset.
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Listen: ":8080",
		Log:    LogConfig{Level: "info"},
	}
	if err := Load("covtrack", cfg); err != nil {
		return nil, err
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg, nil
}
