// Package shell runs the interactive shell subprocess behind a pseudo-terminal
// and forwards its bytes without interpretation.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"
)

// ErrProcessClosed is returned when writing to a shell that has exited.
var ErrProcessClosed = errors.New("shell process closed")

// ActiveEnvVar is set in the child environment so shell startup files can
// tell they are running inside genshell.
const ActiveEnvVar = "GENSHELL_ACTIVE"

var (
	// hangupGrace is how long Close waits for the shell to exit after
	// SIGHUP before sending SIGKILL.
	hangupGrace = 500 * time.Millisecond

	// drainTimeout bounds how long Close waits for the output pump once the
	// shell is gone. Background jobs that survive the hangup keep the pty
	// open; their output is dropped after that.
	drainTimeout = time.Second
)

// Options configures the shell subprocess.
type Options struct {
	// Path is the shell executable
	Path string

	// Args are passed to the shell. Default: DefaultArgs(Path)
	Args []string

	// Cols and Rows are the fixed pty geometry. Default: 80x24
	Cols int
	Rows int

	// Env is appended to the inherited environment
	Env []string
}

// DefaultArgs returns interactive-mode arguments for the shell at path.
// Bash line editing is turned off because readline would echo forwarded
// lines a second time.
func DefaultArgs(path string) []string {
	if filepath.Base(path) == "bash" {
		return []string{"--noediting", "-i"}
	}
	return []string{"-i"}
}

// Bridge owns the shell process and its pty.
type Bridge struct {
	cmd  *exec.Cmd
	ptmx *os.File

	mu     sync.Mutex // guards closed, exitCode and pty writes
	closed bool

	sinkMu  sync.Mutex // guards sinks and pending
	sinks   []func([]byte)
	pending [][]byte

	done     chan struct{}
	pumpDone chan struct{}
	detached bool // guarded by sinkMu
	exitCode int
	group    *errgroup.Group
}

// Start spawns the shell. The child inherits the working directory and
// environment of the caller. Terminal echo on the pty is disabled before
// Start returns.
func Start(ctx context.Context, opts Options) (*Bridge, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("shell path is required")
	}
	if opts.Args == nil {
		opts.Args = DefaultArgs(opts.Path)
	}
	if opts.Cols <= 0 {
		opts.Cols = 80
	}
	if opts.Rows <= 0 {
		opts.Rows = 24
	}

	cmd := exec.CommandContext(ctx, opts.Path, opts.Args...)
	cmd.Env = append(os.Environ(), ActiveEnvVar+"=1")
	cmd.Env = append(cmd.Env, opts.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(opts.Rows),
		Cols: uint16(opts.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("start shell %s: %w", opts.Path, err)
	}

	if err := disableEcho(ptmx); err != nil {
		_ = cmd.Process.Kill()
		_ = ptmx.Close()
		_ = cmd.Wait()
		return nil, fmt.Errorf("disable pty echo: %w", err)
	}

	b := &Bridge{
		cmd:      cmd,
		ptmx:     ptmx,
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
		exitCode: -1,
	}

	b.group = &errgroup.Group{}
	b.group.Go(b.pump)
	b.group.Go(b.wait)

	slog.Info("Shell started",
		"path", opts.Path,
		"args", opts.Args,
		"pid", cmd.Process.Pid,
		"cols", opts.Cols,
		"rows", opts.Rows,
	)

	return b, nil
}

// WriteLine sends text followed by a newline to the shell's input.
func (b *Bridge) WriteLine(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("write %q: %w", text, ErrProcessClosed)
	}

	if _, err := io.WriteString(b.ptmx, text+"\n"); err != nil {
		return fmt.Errorf("write to shell: %w", err)
	}
	return nil
}

// OnOutput registers a sink receiving every output chunk in emission order.
// Output produced before the first sink was registered is delivered to it
// immediately.
func (b *Bridge) OnOutput(sink func([]byte)) {
	b.sinkMu.Lock()
	defer b.sinkMu.Unlock()

	b.sinks = append(b.sinks, sink)
	if len(b.sinks) == 1 {
		for _, chunk := range b.pending {
			sink(chunk)
		}
		b.pending = nil
	}
}

// Done is closed once the shell process has exited.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// ExitCode returns the shell's exit status, or -1 while it is running.
func (b *Bridge) ExitCode() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exitCode
}

// Close hangs up the shell's process group, escalating to SIGKILL if the
// shell is still running after a grace period, then closes the pty. It does
// not wait for background jobs that ignore the hangup: once drainTimeout
// passes, their remaining output is discarded and Close returns.
func (b *Bridge) Close() error {
	b.mu.Lock()
	running := !b.closed
	b.mu.Unlock()

	if running {
		if err := hangup(b.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
			slog.Warn("Failed to hang up shell", "error", err)
		}
		select {
		case <-b.done:
		case <-time.After(hangupGrace):
			if err := kill(b.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
				slog.Warn("Failed to kill shell", "error", err)
			}
		}
	}

	closeErr := b.ptmx.Close()

	waited := make(chan error, 1)
	go func() { waited <- b.group.Wait() }()

	select {
	case err := <-waited:
		if err != nil {
			return err
		}
	case <-time.After(drainTimeout):
		b.sinkMu.Lock()
		b.detached = true
		b.sinkMu.Unlock()
		slog.Warn("Shell pty still held open by background jobs, detaching")
	}

	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return fmt.Errorf("close pty: %w", closeErr)
	}
	return nil
}

// pump copies pty output to the sinks until the pty reports an error, which
// on Linux is EIO once every process holding the child side is gone.
func (b *Bridge) pump() error {
	defer close(b.pumpDone)

	buf := make([]byte, 4096)
	for {
		n, err := b.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			b.emit(chunk)
		}
		if err != nil {
			slog.Debug("Shell output closed", "error", err)
			return nil
		}
	}
}

func (b *Bridge) emit(chunk []byte) {
	b.sinkMu.Lock()
	defer b.sinkMu.Unlock()

	if b.detached {
		return
	}
	if len(b.sinks) == 0 {
		b.pending = append(b.pending, chunk)
		return
	}
	for _, sink := range b.sinks {
		sink(chunk)
	}
}

func (b *Bridge) wait() error {
	err := b.cmd.Wait()

	b.mu.Lock()
	b.closed = true
	if b.cmd.ProcessState != nil {
		b.exitCode = b.cmd.ProcessState.ExitCode()
	}
	b.mu.Unlock()
	close(b.done)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("wait for shell: %w", err)
	}

	slog.Info("Shell exited", "exit_code", b.ExitCode())
	return nil
}
