// Package config loads the CLI's settings: a YAML file overlaid by
// environment variables, so scripted use never has to write credentials to
// disk.
package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the CLI configuration.
type Config struct {
	URL        string `koanf:"url"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	UseKeyring bool   `koanf:"use_keyring"`
	VerifyTLS  bool   `koanf:"verify_tls"`
	CustomCA   string `koanf:"custom_ca"`
	UseLocking bool   `koanf:"use_locking"`
	Debug      bool   `koanf:"debug"`
	TraceASCII bool   `koanf:"trace_ascii"`
	LogLevel   string `koanf:"log_level"`
}

func defaults() *Config {
	return &Config{
		VerifyTLS:  true,
		UseLocking: true,
		LogLevel:   "info",
	}
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "caldav-client", "config.yaml")
}

// Load reads the YAML file at path (skipped when absent) and overlays
// environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			k := koanf.New(".")
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
			if err := k.Unmarshal("", cfg); err != nil {
				return nil, err
			}
		}
	}

	if v := os.Getenv("CALDAV_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("CALDAV_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("CALDAV_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("CALDAV_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CALDAV_VERIFY_TLS"); v != "" {
		cfg.VerifyTLS = v == "true"
	}
	if v := os.Getenv("CALDAV_USE_LOCKING"); v != "" {
		cfg.UseLocking = v == "true"
	}
	return cfg, nil
}
