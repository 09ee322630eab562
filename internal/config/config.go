// Package config loads the optional YAML settings file of the sonorous CLI.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/absfs/sonorous"
)

type Config struct {
	LogLevel    string `yaml:"log_level"`
	Workers     int    `yaml:"workers"`
	Progress    bool   `yaml:"progress"`
	PasswordEnv string `yaml:"password_env"`
}

// Default returns the settings used when no file is given
func Default() Config {
	return Config{
		LogLevel: "warn",
		Workers:  min(runtime.NumCPU(), sonorous.MaxWorkers),
		Progress: true,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Keys not present in the file keep their default value; unknown keys are
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	return sonorous.ValidateWorkers(c.Workers)
}

// Level parses LogLevel as a slog level name, case insensitively
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, sonorous.NewValidationError("log_level", c.LogLevel, "must be debug, info, warn or error")
	}
	return lvl, nil
}
