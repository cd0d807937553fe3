package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	FeedURL         string `toml:"appcast_url"`
	PublicKey       string `toml:"public_key"`
	CheckInterval   string `toml:"check_interval"`
	DownloadDir     string `toml:"download_dir"`
	SpoolDir        string `toml:"spool_dir"`
	ForceCheck      *bool  `toml:"force_check"`
	ForceCheckDelay string `toml:"force_check_delay"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.updatekit/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".updatekit", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("appcast-url", fc.FeedURL, &cfg.FeedURL)
	s.setString("public-key", fc.PublicKey, &cfg.PublicKey)
	s.setString("download-dir", fc.DownloadDir, &cfg.DownloadDir)
	s.setString("spool-dir", fc.SpoolDir, &cfg.SpoolDir)

	if err := s.setDuration("check-interval", fc.CheckInterval, &cfg.CheckInterval); err != nil {
		return err
	}
	if err := s.setDuration("force-check-delay", fc.ForceCheckDelay, &cfg.ForceCheckDelay); err != nil {
		return err
	}

	s.setBool("force-check", fc.ForceCheck, &cfg.ForceCheck)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
