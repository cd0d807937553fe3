package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/quartzbrowser/updatekit/internal/cliconfig"
	"github.com/quartzbrowser/updatekit/pkg/agent"
	"github.com/quartzbrowser/updatekit/pkg/host"
	"github.com/quartzbrowser/updatekit/pkg/log"
	"github.com/quartzbrowser/updatekit/pkg/runloop"
	"github.com/quartzbrowser/updatekit/pkg/status"
	"github.com/quartzbrowser/updatekit/pkg/updater"
)

const helpDescription = `
Auto-update orchestration for the Quartz browser.

Highlights:
  - Polls the release feed on a schedule and stages verified packages.
  - Serializes every observable update event onto a single run loop.
  - Negotiates application shutdown before an update is installed.
  - Supports an out-of-process helper via a spool directory.
`

var exampleUsage = strings.TrimSpace(`
  updatekit run
  updatekit run --spool-dir /var/spool/updatekit
  updatekit check --appcast-url http://localhost:8080/appcast.json
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "updatekit",
		Short:   "Auto-update orchestration for the Quartz browser",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.updatekit/config.toml)")
	root.PersistentFlags().StringVar(&cfg.FeedURL, "appcast-url", cfg.FeedURL, "update feed URL (override for internal testing)")
	if err := root.PersistentFlags().MarkHidden("appcast-url"); err != nil {
		logger.Info().Err(err).Msg("failed to hide appcast-url flag")
	}
	root.PersistentFlags().StringVar(&cfg.PublicKey, "public-key", cfg.PublicKey, "base64 ed25519 package signing key (override for internal testing)")
	if err := root.PersistentFlags().MarkHidden("public-key"); err != nil {
		logger.Info().Err(err).Msg("failed to hide public-key flag")
	}
	root.PersistentFlags().StringVar(&cfg.CurrentVersion, "app-version", getVersion(), "version of the running build")
	root.PersistentFlags().DurationVar(&cfg.CheckInterval, "check-interval", cfg.CheckInterval, "automatic check period")
	root.PersistentFlags().StringVar(&cfg.DownloadDir, "download-dir", cfg.DownloadDir, "staging directory for downloaded packages")
	root.PersistentFlags().StringVar(&cfg.SpoolDir, "spool-dir", cfg.SpoolDir, "spool directory of an out-of-process updater (uses the spool agent)")
	root.PersistentFlags().BoolVar(&cfg.ForceCheck, "force-check", cfg.ForceCheck, "check shortly after startup (debug)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the update orchestrator until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			_, err := runOrchestrator(cmd.Context(), cfg, logger, false)
			return err
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Run one update check and exit on the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			final, err := runOrchestrator(cmd.Context(), cfg, logger, true)
			if err != nil {
				return err
			}
			if final.State == status.StateError {
				return fmt.Errorf("update check failed: %s", final.LastError)
			}
			return nil
		},
	}

	root.AddCommand(runCmd, checkCmd)

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("updatekit")
		os.Exit(1)
	}
}

// loadConfig layers file and environment configuration under any
// explicitly set flags.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	cmd.InheritedFlags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

// runOrchestrator wires the run loop, orchestrator, host adapter, and
// chosen agent, then pumps the loop until a signal arrives (or, in
// once mode, until the check reaches a rest state). Returns the final
// observed status.
func runOrchestrator(parent context.Context, cfg cliconfig.Config, logger zerolog.Logger, once bool) (status.Status, error) {
	adapter := log.NewZerologAdapterWithLogger(logger)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	loop := runloop.New()

	// Demo host: quitting means ending the run loop.
	h := host.Funcs{
		CanCloseAllWindowsFunc: func() bool { return true },
		CloseAllAndQuitFunc: func() {
			logger.Info().Msg("host shutdown: closing for update install")
			cancel()
		},
		SetUpdateReadyFunc: func(version string) {
			logger.Info().Str("version", version).Msg("restart will apply an update")
		},
	}

	opts := []updater.Option{
		updater.WithLogger(adapter),
		updater.WithHost(h),
	}
	if cfg.SpoolDir != "" {
		opts = append(opts, updater.WithAgent(agent.NewSpool(cfg.SpoolDir, adapter)))
	}

	orch := updater.New(loop, updater.Config{
		FeedURL:         cfg.FeedURL,
		PublicKey:       cfg.PublicKey,
		CurrentVersion:  cfg.CurrentVersion,
		CheckInterval:   cfg.CheckInterval,
		DownloadDir:     cfg.DownloadDir,
		ForceCheck:      cfg.ForceCheck,
		ForceCheckDelay: cfg.ForceCheckDelay,
	}, opts...)

	var final status.Status
	orch.AddObserver(updater.Hooks{
		StatusChanged: func(s status.Status) {
			final = s
			if once && s.State.Terminal() {
				cancel()
			}
		},
		Progress: func(percent int) {
			logger.Info().Int("percent", percent).Msg("downloading update")
		},
	})

	loop.Post(orch.Initialize)
	if once {
		loop.Post(orch.CheckForUpdates)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			logger.Info().Msg("received signal, stopping...")
			loop.Post(orch.Cleanup)
			loop.Post(cancel)
		case <-ctx.Done():
		}
	}()

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		return final, err
	}
	return final, nil
}
