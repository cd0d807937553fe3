package cliconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/quartzbrowser/updatekit/pkg/updater"
)

// Config holds CLI configuration for updatekit.
type Config struct {
	FeedURL        string
	PublicKey      string
	CurrentVersion string

	CheckInterval   time.Duration
	DownloadDir     string
	SpoolDir        string
	ForceCheck      bool
	ForceCheckDelay time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		FeedURL:         updater.DefaultFeedURL,
		CheckInterval:   updater.DefaultCheckInterval,
		ForceCheckDelay: updater.DefaultForceCheckDelay,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("appcast-url is required")
	}
	if c.CurrentVersion == "" {
		return fmt.Errorf("app-version is required")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive")
	}
	return nil
}

// Logger returns the zerolog logger used by the CLI.
func Logger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
