package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/zipline/internal/logger"
)

// ExecCompressor runs an external command (zip by default) inside the
// archive directory and streams its stdout.
type ExecCompressor struct {
	command       string
	args          []string
	grace         time.Duration
	captureStderr bool
	metrics       Metrics
}

// NewExecCompressor builds the subprocess backend from cfg.
func NewExecCompressor(cfg Config, metrics Metrics) *ExecCompressor {
	cfg.ApplyDefaults()
	return &ExecCompressor{
		command:       cfg.Command,
		args:          append([]string(nil), cfg.Args...),
		grace:         cfg.TerminateGrace,
		captureStderr: cfg.CaptureStderr,
		metrics:       orNoop(metrics),
	}
}

// Name implements Compressor.
func (c *ExecCompressor) Name() string { return CompressorExec }

// Check reports whether the command can be found.
func (c *ExecCompressor) Check() error {
	if _, err := exec.LookPath(c.command); err != nil {
		return fmt.Errorf("compressor %q unavailable: %w", c.command, err)
	}
	return nil
}

// Start launches the command with dir as its working directory and stdout
// connected to a pipe. The process is not bound to ctx: its lifetime is
// controlled through Terminate.
func (c *ExecCompressor) Start(ctx context.Context, dir string) (Stream, error) {
	cmd := exec.Command(c.command, c.args...)
	cmd.Dir = dir
	configureProcess(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.metrics.CompressorFailed(c.Name())
		return nil, &SpawnError{Command: c.command, Dir: dir, Err: err}
	}

	var stderr *logger.LineWriter
	if c.captureStderr {
		stderr = logger.NewLineWriter(ctx, "compressor stderr", logger.KeyCommand, c.command)
		cmd.Stderr = stderr
	}

	if err := cmd.Start(); err != nil {
		c.metrics.CompressorFailed(c.Name())
		return nil, &SpawnError{Command: c.command, Dir: dir, Err: err}
	}
	c.metrics.CompressorStarted(c.Name())

	logger.DebugCtx(ctx, "compressor started",
		logger.KeyCommand, c.command,
		logger.KeyPID, cmd.Process.Pid,
		logger.KeyDir, dir)

	return &process{
		cmd:     cmd,
		stdout:  stdout,
		stderr:  stderr,
		grace:   c.grace,
		backend: c.Name(),
		metrics: c.metrics,
	}, nil
}

// process is the Stream of an ExecCompressor.
type process struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  *logger.LineWriter
	grace   time.Duration
	backend string
	metrics Metrics

	// readMu serialises ReadChunk with the final cmd.Wait, which closes stdout.
	readMu     sync.Mutex
	eof        atomic.Bool
	terminated atomic.Bool

	termOnce sync.Once
	termErr  error

	statusMu    sync.Mutex
	status      ExitStatus
	statusKnown bool
}

func (p *process) PID() int {
	return p.cmd.Process.Pid
}

func (p *process) ReadChunk(buf []byte) (int, error) {
	if p.terminated.Load() {
		return 0, ErrTerminated
	}

	p.readMu.Lock()
	defer p.readMu.Unlock()

	if p.terminated.Load() {
		return 0, ErrTerminated
	}

	n, err := p.stdout.Read(buf)
	switch {
	case err == nil:
		return n, nil
	case p.terminated.Load():
		// The pipe broke because Terminate killed the process.
		return n, ErrTerminated
	case errors.Is(err, io.EOF):
		p.eof.Store(true)
		return n, io.EOF
	default:
		return n, &ReadError{Err: err}
	}
}

func (p *process) Terminate() error {
	p.termOnce.Do(func() {
		p.termErr = p.terminate()
	})
	return p.termErr
}

func (p *process) terminate() error {
	p.terminated.Store(true)

	killed := false
	if !p.eof.Load() {
		// Output not exhausted: the process may be blocked on a full pipe, so
		// stop it before waiting for the in-flight read to return.
		killed = killProcess(p.cmd) == nil
	}

	p.readMu.Lock()
	defer p.readMu.Unlock()

	waitCh := make(chan error, 1)
	go func() { waitCh <- p.cmd.Wait() }()

	var waitErr error
	if killed {
		waitErr = <-waitCh
	} else {
		timer := time.NewTimer(p.grace)
		select {
		case waitErr = <-waitCh:
			timer.Stop()
		case <-timer.C:
			killed = killProcess(p.cmd) == nil
			waitErr = <-waitCh
		}
	}

	if p.stderr != nil {
		_ = p.stderr.Close()
	}

	status := exitStatusOf(p.cmd)
	status.Killed = killed && status.Signaled

	p.statusMu.Lock()
	p.status = status
	p.statusKnown = true
	p.statusMu.Unlock()

	p.metrics.CompressorReaped(p.backend, status)
	logger.Debug("compressor reaped",
		logger.KeyPID, p.cmd.Process.Pid,
		logger.KeyExitCode, status.Code,
		logger.KeySignaled, status.Signaled,
		logger.KeyKilled, status.Killed)

	// A non-zero exit is reported through ExitStatus; only failures to reap
	// are errors here.
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return waitErr
	}
	return nil
}

func (p *process) ExitStatus() (ExitStatus, bool) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status, p.statusKnown
}

func exitStatusOf(cmd *exec.Cmd) ExitStatus {
	ps := cmd.ProcessState
	if ps == nil {
		return ExitStatus{Code: -1}
	}
	return ExitStatus{
		Code:     ps.ExitCode(),
		Signaled: !ps.Exited(),
	}
}
