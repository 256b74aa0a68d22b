package prompt

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/marmos91/zipline/pkg/archive"
)

// ValidateYesNo accepts y, yes, n, no and the empty answer.
func ValidateYesNo(input string) error {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "y", "yes", "n", "no":
		return nil
	}
	return errors.New("answer y or n")
}

// ValidatePort accepts a TCP port number (1-65535).
func ValidatePort(input string) error {
	port, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return errors.New("must be a valid integer")
	}
	if port < 1 || port > 65535 {
		return errors.New("must be a valid port (1-65535)")
	}
	return nil
}

// ValidateDuration accepts a Go duration ("250ms") or whole seconds ("2").
func ValidateDuration(input string) error {
	d, err := archive.ParseDelay(input)
	if err != nil {
		return err
	}
	if d < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

// ValidateDirectory accepts an existing directory.
func ValidateDirectory(input string) error {
	info, err := os.Stat(strings.TrimSpace(input))
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}
