package archive

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/zipline/internal/bytesize"
)

// Compressor backends selectable through Config.Compressor.
const (
	CompressorExec   = "exec"
	CompressorNative = "native"
)

// Defaults mirror the behaviour of the first release of the service: 10 KiB
// chunks, no pacing, strict read/write alternation and the `zip` CLI.
const (
	DefaultChunkSize        = 10 * bytesize.KiB
	DefaultQueueDepth       = 1
	DefaultFilename         = "archive.zip"
	DefaultRoot             = "test_photos"
	DefaultCommand          = "zip"
	DefaultCompressionLevel = 6
	DefaultTerminateGrace   = 5 * time.Second
)

// DefaultArgs makes zip recurse into the working directory and write the
// archive to stdout.
var DefaultArgs = []string{"-q", "-r", "-", "."}

// Config is the archive pipeline configuration. It is built once at startup
// and handed to NewLocator, NewCompressor and NewSupervisor; nothing in the
// pipeline mutates it afterwards.
type Config struct {
	// Root is the directory under which archive identifiers are resolved.
	Root string `mapstructure:"root" validate:"required" yaml:"root"`

	// Delay is the pacing delay inserted after every chunk written to the client.
	// Zero disables pacing.
	Delay time.Duration `mapstructure:"delay" validate:"gte=0" yaml:"delay"`

	// ChunkSize bounds a single read from the compressor output.
	// Supports human-readable sizes ("10KiB", "64k").
	ChunkSize bytesize.ByteSize `mapstructure:"chunk_size" validate:"omitempty,min=512,max=16777216" yaml:"chunk_size"`

	// QueueDepth is the number of chunks that may be read ahead of the client.
	// 1 means strict alternation: the next read starts only after the previous
	// chunk was written (and paced).
	QueueDepth int `mapstructure:"queue_depth" validate:"omitempty,min=1,max=64" yaml:"queue_depth"`

	// Filename is the attachment name announced in Content-Disposition.
	Filename string `mapstructure:"filename" yaml:"filename"`

	// Compressor selects the backend: "exec" (external command) or "native".
	Compressor string `mapstructure:"compressor" validate:"omitempty,oneof=exec native" yaml:"compressor"`

	// Command and Args define the external compressor for the exec backend.
	// The command runs with the archive directory as its working directory and
	// must write the archive to stdout. Args defaults to DefaultArgs only when
	// Command is left empty.
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`

	// CaptureStderr forwards the compressor's stderr to the debug log instead
	// of discarding it.
	CaptureStderr bool `mapstructure:"capture_stderr" yaml:"capture_stderr"`

	// CompressionLevel is the deflate level used by the native backend (1-9).
	// Zero selects DefaultCompressionLevel.
	CompressionLevel int `mapstructure:"compression_level" validate:"gte=0,lte=9" yaml:"compression_level"`

	// TerminateGrace bounds how long Terminate waits for a compressor that
	// already closed its output to exit before it is killed.
	TerminateGrace time.Duration `mapstructure:"terminate_grace" yaml:"terminate_grace"`
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.Filename == "" {
		c.Filename = DefaultFilename
	}
	if c.Compressor == "" {
		c.Compressor = CompressorExec
	}
	if c.Command == "" {
		c.Command = DefaultCommand
		if len(c.Args) == 0 {
			c.Args = append([]string(nil), DefaultArgs...)
		}
	}
	if c.CompressionLevel == 0 {
		c.CompressionLevel = DefaultCompressionLevel
	}
	if c.TerminateGrace == 0 {
		c.TerminateGrace = DefaultTerminateGrace
	}
}

// ParseDelay parses a pacing delay given either as whole seconds ("2") or as
// a Go duration ("250ms").
func ParseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q (use seconds or a duration such as 250ms)", s)
	}
	return d, nil
}
