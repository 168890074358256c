// Package config loads tool and server settings from ff.toml and
// FF_-prefixed environment variables. It uses viper with sensible
// defaults; environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// Config holds every setting the CLI and the distribution server read.
type Config struct {
	Env            string // active flag environment (dev, staging, prod, ...)
	Port           int    // distribution server port
	Hostname       string // distribution server bind host
	Flagfile       string // path to the Flagfile document
	Tests          string // path to the assertion file
	AuthToken      string // bearer token required by the server; empty disables auth
	RateLimitPerIP int    // requests per minute per client IP; 0 disables limiting
	Watch          bool   // reload the served table on file changes
}

// Load reads ff.toml (optional) from path, then applies FF_* environment
// overrides. An empty path means ./ff.toml.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if path == "" {
		path = "ff.toml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		// The file is optional; anything else is a real error.
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("FF")
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:            v.GetString("env"),
		Port:           v.GetInt("port"),
		Hostname:       v.GetString("hostname"),
		Flagfile:       v.GetString("flagfile"),
		Tests:          v.GetString("tests"),
		AuthToken:      v.GetString("auth_token"),
		RateLimitPerIP: v.GetInt("rate_limit_per_ip"),
		Watch:          v.GetBool("watch"),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "")
	v.SetDefault("port", 8080)
	v.SetDefault("hostname", "127.0.0.1")
	v.SetDefault("flagfile", "Flagfile")
	v.SetDefault("tests", "Flagfile.tests")
	v.SetDefault("auth_token", "")
	v.SetDefault("rate_limit_per_ip", 0)
	v.SetDefault("watch", false)
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}

// ValidationError reports a setting the server cannot start with.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks server-mode constraints. The CLI commands that only
// read files do not need it.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ValidationError{
			Field:   "port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.Port),
		}
	}
	if c.Hostname == "" {
		return ValidationError{
			Field:   "hostname",
			Message: "bind host cannot be empty",
		}
	}
	if c.Flagfile == "" {
		return ValidationError{
			Field:   "flagfile",
			Message: "flagfile path cannot be empty",
		}
	}
	if c.RateLimitPerIP < 0 {
		return ValidationError{
			Field:   "rate_limit_per_ip",
			Message: fmt.Sprintf("cannot be negative, got %d", c.RateLimitPerIP),
		}
	}
	return nil
}
