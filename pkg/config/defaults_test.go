package config

import (
	"testing"
	"time"

	"github.com/marmos91/zipline/internal/bytesize"
	"github.com/marmos91/zipline/pkg/archive"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 0 {
		t.Errorf("Expected no default write timeout, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Server.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.Server.IdleTimeout)
	}
}

func TestApplyDefaults_Archive(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	a := cfg.Archive
	if a.Root != "test_photos" {
		t.Errorf("Expected default root 'test_photos', got %q", a.Root)
	}
	if a.Delay != 0 {
		t.Errorf("Expected no default delay, got %v", a.Delay)
	}
	if a.ChunkSize != 10*bytesize.KiB {
		t.Errorf("Expected default chunk size 10KiB, got %v", a.ChunkSize)
	}
	if a.QueueDepth != 1 {
		t.Errorf("Expected default queue depth 1, got %d", a.QueueDepth)
	}
	if a.Compressor != archive.CompressorExec || a.Command != "zip" {
		t.Errorf("Expected exec compressor running zip, got %q/%q", a.Compressor, a.Command)
	}
	if a.Filename != "archive.zip" {
		t.Errorf("Expected default filename 'archive.zip', got %q", a.Filename)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no metrics port while disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected metrics port %d, got %d", DefaultMetricsPort, cfg.Metrics.Port)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/zipline.log",
		},
		ShutdownTimeout: 60 * time.Second,
		Archive: archive.Config{
			Root:       "/srv/photos",
			Delay:      time.Second,
			Compressor: archive.CompressorNative,
		},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/zipline.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 60*time.Second {
		t.Errorf("Expected explicit timeout 60s to be preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Archive.Root != "/srv/photos" || cfg.Archive.Delay != time.Second {
		t.Errorf("Expected explicit archive settings to be preserved, got %+v", cfg.Archive)
	}
	if cfg.Archive.Compressor != archive.CompressorNative {
		t.Errorf("Expected explicit compressor to be preserved, got %q", cfg.Archive.Compressor)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}
