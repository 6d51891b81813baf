// Package config loads and saves the tool's settings from
// ~/.config/bobsync/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	// MongoURI points at the document database.
	MongoURI string `mapstructure:"mongo_uri"`
	// Database is the database name within it.
	Database string `mapstructure:"database"`
	// Owner scopes every query to one account.
	Owner string `mapstructure:"owner"`
	// List is the reminder list new entries are created in.
	List string `mapstructure:"list"`
	// ExtraLists are additional lists scanned on the inbound pass.
	ExtraLists []string `mapstructure:"extra_lists"`
}

func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bobsync", "config.yaml"), nil
}

func defaults() *Config {
	return &Config{
		MongoURI: "mongodb://localhost:27017",
		Database: "bob",
		List:     "Reminders",
	}
}

// Load reads the config file; a missing file yields the defaults.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database", "bob")
	v.SetDefault("list", "Reminders")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config back, creating parent directories as needed.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.Set("mongo_uri", cfg.MongoURI)
	v.Set("database", cfg.Database)
	v.Set("owner", cfg.Owner)
	v.Set("list", cfg.List)
	v.Set("extra_lists", cfg.ExtraLists)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
