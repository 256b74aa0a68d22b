package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: INFO\n"), 0600); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *Config, 8)
	if err := Watch(path, func(cfg *Config) { changes <- cfg }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// An invalid edit is ignored.
	if err := os.WriteFile(path, []byte("logging:\n  level: LOUD\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Logging.Level == "LOUD" {
				t.Fatal("invalid configuration was delivered")
			}
			if cfg.Logging.Level == "DEBUG" {
				return
			}
		case <-deadline:
			t.Fatal("configuration change not observed")
		}
	}
}

func TestWatch_RequiresFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {})
	if err == nil {
		t.Fatal("Expected error when watching a missing file")
	}
}
