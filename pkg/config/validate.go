package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/zipline/pkg/archive"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the configuration against its struct tags and the
// cross-field rules tags cannot express.
//
// Validation does not normalize values; see ApplyDefaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := getValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := validateArchive(&cfg.Archive); err != nil {
		return err
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Server.Port {
		return fmt.Errorf("metrics.port: %d is already used by server.port", cfg.Metrics.Port)
	}

	return nil
}

func validateArchive(cfg *archive.Config) error {
	if cfg.Compressor == archive.CompressorExec && cfg.Command == "" {
		return errors.New("archive.command: required when archive.compressor is exec")
	}
	if cfg.Filename != "" && strings.ContainsAny(cfg.Filename, "/\\\"\r\n") {
		return fmt.Errorf("archive.filename: %q must be a plain file name", cfg.Filename)
	}
	return nil
}

// formatValidationErrors renders validator errors as "field: tag" pairs using
// the dotted config key, e.g. "Config.Server.Port: failed on 'max' (param 65535)".
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed on '%s'", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (param %s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Warnings returns non-fatal observations about a valid configuration, such
// as an archive root that does not exist yet.
func Warnings(cfg *Config) []string {
	var warnings []string

	info, err := os.Stat(cfg.Archive.Root)
	switch {
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("archive.root %q is not accessible: %v", cfg.Archive.Root, err))
	case !info.IsDir():
		warnings = append(warnings, fmt.Sprintf("archive.root %q is not a directory", cfg.Archive.Root))
	}

	if cfg.Archive.Compressor == archive.CompressorExec {
		if err := archive.CheckCompressor(archive.NewExecCompressor(cfg.Archive, nil)); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	if cfg.Server.WriteTimeout > 0 {
		warnings = append(warnings, fmt.Sprintf("server.write_timeout %s will cut off long archive downloads", cfg.Server.WriteTimeout))
	}

	return warnings
}
