package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# zipline Configuration File
#
# Every key can be overridden with an environment variable named
# ZIPLINE_<SECTION>_<KEY>, for example:
#   ZIPLINE_ARCHIVE_ROOT=/srv/photos
#   ZIPLINE_ARCHIVE_DELAY=250ms
#   ZIPLINE_LOGGING_LEVEL=DEBUG
#
# Sizes accept human-readable values ("10KiB", "64k") and durations
# accept Go syntax ("30s", "250ms").

`

// InitConfig writes a default configuration file to the default location and
// returns its path. It refuses to overwrite an existing file unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	return WriteConfigToPath(GetDefaultConfig(), path, force)
}

// WriteConfigToPath writes cfg to path with the standard header comment.
func WriteConfigToPath(cfg *Config, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := RenderConfig(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RenderConfig returns cfg as commented YAML.
func RenderConfig(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}
