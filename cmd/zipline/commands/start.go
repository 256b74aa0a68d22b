package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/zipline/internal/logger"
	"github.com/marmos91/zipline/internal/telemetry"
	"github.com/marmos91/zipline/pkg/api"
	"github.com/marmos91/zipline/pkg/archive"
	"github.com/marmos91/zipline/pkg/config"
)

// startFlags override configuration values for a single run.
type startFlags struct {
	logging    bool
	delay      string
	path       string
	port       int
	compressor string
}

var startOpts startFlags

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the archive server",
	Long: `Start the zipline HTTP server in the foreground.

Configuration is read from --config, the default location
($XDG_CONFIG_HOME/zipline/config.yaml) or built-in defaults, in that order.
ZIPLINE_* environment variables override file values and the flags below
override both.

Examples:
  # Serve ./test_photos on :8080
  zipline start

  # Serve /srv/photos, pacing output by one second per chunk, debug logs
  zipline start --path /srv/photos --delay 1 --logging

  # Sub-second pacing and the in-process compressor
  zipline start --delay 250ms --compressor native

  # Environment overrides
  ZIPLINE_ARCHIVE_ROOT=/srv/photos ZIPLINE_SERVER_PORT=9000 zipline start`,
	RunE: runStart,
}

func init() {
	registerStartFlags(startCmd, &startOpts)
}

func registerStartFlags(cmd *cobra.Command, f *startFlags) {
	cmd.Flags().BoolVarP(&f.logging, "logging", "l", false, "Enable debug logging")
	cmd.Flags().StringVarP(&f.delay, "delay", "d", "", "Delay after every chunk, in seconds or as a duration (e.g. 1, 250ms)")
	cmd.Flags().StringVar(&f.path, "path", "", "Directory holding the archive directories")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "HTTP port")
	cmd.Flags().StringVar(&f.compressor, "compressor", "", "Compressor backend (exec|native)")
}

// apply copies the flags the user set onto cfg.
func (f *startFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("logging") && f.logging {
		cfg.Logging.Level = "DEBUG"
	}
	if flags.Changed("delay") {
		d, err := archive.ParseDelay(f.delay)
		if err != nil {
			return err
		}
		cfg.Archive.Delay = d
	}
	if flags.Changed("path") {
		cfg.Archive.Root = f.path
	}
	if flags.Changed("port") {
		cfg.Server.Port = f.port
	}
	if flags.Changed("compressor") {
		cfg.Archive.Compressor = f.compressor
	}

	return config.Validate(cfg)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := startOpts.apply(cmd, cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    telemetry.DefaultServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := telemetryShutdown(flushCtx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    telemetry.DefaultServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	metricsResult := config.InitializeMetrics(cfg)

	locator, err := archive.NewLocator(cfg.Archive.Root)
	if err != nil {
		return err
	}
	compressor, err := archive.NewCompressor(cfg.Archive, metricsResult.Archive)
	if err != nil {
		return err
	}
	if err := archive.CheckCompressor(compressor); err != nil {
		logger.Warn("Compressor unavailable, downloads will fail until it is installed", logger.Err(err))
	}
	supervisor := archive.NewSupervisor(cfg.Archive, compressor, metricsResult.Archive)

	logger.Info("Archive pipeline ready",
		logger.Dir(locator.Root()),
		logger.Backend(compressor.Name()),
		"delay", cfg.Archive.Delay,
		"chunk_size", cfg.Archive.ChunkSize.String(),
		"queue_depth", cfg.Archive.QueueDepth)

	handler, err := api.NewRouter(cfg.Server, api.Services{
		Locator:    locator,
		Compressor: compressor,
		Supervisor: supervisor,
	})
	if err != nil {
		return err
	}
	server := api.NewServer(cfg.Server, handler)
	server.SetShutdownTimeout(cfg.ShutdownTimeout)

	if path := configPathToWatch(GetConfigFile()); path != "" {
		forceDebug := cmd.Flags().Changed("logging") && startOpts.logging
		err := config.Watch(path, func(next *config.Config) {
			if forceDebug {
				next.Logging.Level = "DEBUG"
			}
			config.ApplyLogging(next)
		})
		if err != nil {
			logger.Warn("Configuration reload disabled", logger.Err(err))
		}
	}

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error", logger.Err(err))
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.", "port", cfg.Server.Port)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received, interrupting transfers", "signal", sig.String())
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
