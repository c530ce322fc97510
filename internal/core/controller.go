package core

import (
	"context"
	"errors"
	"io"

	"genshell/internal/terminal"
)

// ShellProcess is the part of the shell bridge the Controller watches.
type ShellProcess interface {
	Done() <-chan struct{}
}

// Controller owns the keystroke pipeline: it decodes input, maintains the
// input buffer, performs all local echo, and hands completed lines to the
// Machine one at a time. Typing and Ctrl+C stay responsive while a line
// is being dispatched.
type Controller struct {
	state   *SessionState
	machine *Machine
	console *terminal.Console
	shell   ShellProcess
	logger  Logger
}

// NewController creates a Controller. logger may be nil.
func NewController(state *SessionState, machine *Machine, console *terminal.Console, shell ShellProcess, logger Logger) *Controller {
	if logger == nil {
		logger = NopLogger()
	}
	return &Controller{
		state:   state,
		machine: machine,
		console: console,
		shell:   shell,
		logger:  logger,
	}
}

// Run processes keys until the user interrupts, the shell exits, keys
// reaches EOF, ctx is canceled, or a dispatch fails fatally. It returns
// ErrInterrupted on Ctrl+C and nil on shell exit or EOF. An in-flight
// dispatch is abandoned on return; its context is canceled.
func (c *Controller) Run(ctx context.Context, keys io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches := make(chan []terminal.Key)
	readErr := make(chan error, 1)
	go c.readKeys(ctx, keys, batches, readErr)

	var (
		queue    []string
		inflight chan error
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-c.shell.Done():
			c.logger.Info("shell exited", "session", c.state.ID)
			return nil

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				c.logger.Info("input closed", "session", c.state.ID)
				return nil
			}
			return &SessionError{Operation: "read", Message: "failed to read keyboard input", Err: err}

		case batch := <-batches:
			for _, key := range batch {
				line, submitted, interrupted := c.handleKey(key)
				if interrupted {
					c.logger.Info("interrupted", "session", c.state.ID, "queued", len(queue), "busy", inflight != nil)
					return ErrInterrupted
				}
				if submitted {
					queue = append(queue, line)
				}
			}

		case err := <-inflight:
			inflight = nil
			if err != nil {
				return err
			}
		}

		if inflight == nil && len(queue) > 0 {
			line := queue[0]
			queue = queue[1:]
			inflight = c.dispatch(ctx, line)
		}
	}
}

// handleKey applies one key to the input buffer and the screen.
func (c *Controller) handleKey(key terminal.Key) (line string, submitted, interrupted bool) {
	switch key.Kind {
	case terminal.KeyInterrupt:
		return "", false, true
	case terminal.KeyChar:
		c.state.Input.Append(key.Rune)
		c.echo(c.console.EchoRune(key.Rune))
	case terminal.KeyBackspace:
		if r, ok := c.state.Input.Backspace(); ok {
			c.echo(c.console.EraseRune(r))
		}
	case terminal.KeyEnter:
		c.echo(c.console.Newline())
		return c.state.Input.TakeLine(), true, false
	}
	return "", false, false
}

func (c *Controller) dispatch(ctx context.Context, line string) chan error {
	done := make(chan error, 1)
	go func() {
		done <- c.machine.Dispatch(ctx, line)
	}()
	return done
}

func (c *Controller) readKeys(ctx context.Context, r io.Reader, batches chan<- []terminal.Key, readErr chan<- error) {
	var dec terminal.Decoder
	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if keys := dec.Feed(buf[:n]); len(keys) > 0 {
				select {
				case batches <- keys:
				case <-ctx.Done():
					return
				}
			}
		}
		if err != nil {
			readErr <- err
			return
		}
	}
}

func (c *Controller) echo(err error) {
	if err != nil {
		c.logger.Debug("echo failed", "error", err)
	}
}
