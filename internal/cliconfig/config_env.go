package cliconfig

import "os"

// ApplyEnvConfig applies UPDATEKIT_* environment variables to the
// Config. Environment values override file config but are overridden
// by explicitly set flags (tracked via the changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("appcast-url", os.Getenv("UPDATEKIT_APPCAST_URL"), &cfg.FeedURL)
	s.setString("public-key", os.Getenv("UPDATEKIT_PUBLIC_KEY"), &cfg.PublicKey)
	s.setString("download-dir", os.Getenv("UPDATEKIT_DOWNLOAD_DIR"), &cfg.DownloadDir)
	s.setString("spool-dir", os.Getenv("UPDATEKIT_SPOOL_DIR"), &cfg.SpoolDir)

	if err := s.setDuration("check-interval", os.Getenv("UPDATEKIT_CHECK_INTERVAL"), &cfg.CheckInterval); err != nil {
		return err
	}
	if err := s.setDuration("force-check-delay", os.Getenv("UPDATEKIT_FORCE_CHECK_DELAY"), &cfg.ForceCheckDelay); err != nil {
		return err
	}

	s.setBoolFromString("force-check", os.Getenv("UPDATEKIT_FORCE_CHECK"), &cfg.ForceCheck)

	return nil
}
