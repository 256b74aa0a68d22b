package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/marmos91/zipline/internal/logger"
)

// Watch re-reads the configuration file whenever it changes and hands every
// valid result to onChange. Invalid edits are logged and ignored, leaving the
// last good configuration in effect.
//
// Only settings that are safe to change at runtime should be applied by
// onChange; the archive pipeline and listeners are built once at startup.
// Watching stops when the process exits.
func Watch(configPath string, onChange func(*Config)) error {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no configuration file to watch")
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err == nil {
			err = Validate(cfg)
		}
		if err != nil {
			logger.Warn("Ignoring invalid configuration change", "file", e.Name, logger.Err(err))
			return
		}

		logger.Debug("Configuration file changed", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}

// ApplyLogging pushes the runtime-adjustable logging settings of cfg to the
// process logger.
func ApplyLogging(cfg *Config) {
	if logger.GetLevel().String() != cfg.Logging.Level {
		logger.Info("Log level changed", "level", cfg.Logging.Level)
	}
	logger.SetLevel(cfg.Logging.Level)
}
