package updater

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Compiled-in defaults. The feed URL can be overridden for testing via
// Config.FeedURL (wired to a hidden CLI flag); the public key is fixed
// at build time.
const (
	// DefaultFeedURL is the production update feed.
	DefaultFeedURL = "https://updates.quartzbrowser.app/appcast.json"

	// DefaultPublicKey is the ed25519 key packages are signed with.
	DefaultPublicKey = "BK7d/clJUYbZzJFSCd6j5M+r7n1uaSoDwHJPQA4nDxA="

	// DefaultCheckInterval is the automatic check period.
	DefaultCheckInterval = time.Hour

	// DefaultForceCheckDelay is how long a forced startup check waits.
	// The delay is deliberate: an immediate check would race UI
	// construction in the host.
	DefaultForceCheckDelay = 2 * time.Second
)

// Config is resolved once per Initialize and immutable afterwards.
// Re-initialization after Cleanup re-resolves it from scratch.
type Config struct {
	// FeedURL overrides the compiled-in update feed. Testing only.
	FeedURL string

	// PublicKey overrides the compiled-in signing key. Testing only.
	PublicKey string

	// CurrentVersion is the running build's version, used by the
	// embedded agent for comparison. Required unless an agent is
	// injected with WithAgent.
	CurrentVersion string

	// CheckInterval is the automatic check period.
	CheckInterval time.Duration

	// DownloadDir is where the embedded agent stages packages.
	// Defaults to the user cache directory.
	DownloadDir string

	// ForceCheck schedules one check shortly after Initialize.
	// Testing only.
	ForceCheck bool

	// ForceCheckDelay is the delay before a forced check.
	ForceCheckDelay time.Duration
}

// SetDefaults fills unset fields with the compiled-in defaults.
func (c *Config) SetDefaults() {
	if c.FeedURL == "" {
		c.FeedURL = DefaultFeedURL
	}
	if c.PublicKey == "" {
		c.PublicKey = DefaultPublicKey
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.ForceCheckDelay <= 0 {
		c.ForceCheckDelay = DefaultForceCheckDelay
	}
	if c.DownloadDir == "" {
		if cache, err := os.UserCacheDir(); err == nil {
			c.DownloadDir = filepath.Join(cache, "quartzbrowser", "updates")
		}
	}
}

// Validate checks the resolved configuration for errors.
func (c Config) Validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("feed url is required")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive")
	}
	return nil
}
