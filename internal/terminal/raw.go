package terminal

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// RawMode holds the terminal state to restore on exit.
type RawMode struct {
	fd    int
	state *term.State
}

// EnableRaw puts f into raw mode. The caller performs all echo.
func EnableRaw(f *os.File) (*RawMode, error) {
	fd := int(f.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enable raw mode: %w", err)
	}
	return &RawMode{fd: fd, state: state}, nil
}

// Restore returns the terminal to its previous mode. Safe to call on nil
// and more than once.
func (r *RawMode) Restore() error {
	if r == nil || r.state == nil {
		return nil
	}
	state := r.state
	r.state = nil
	if err := term.Restore(r.fd, state); err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	return nil
}

// Width returns the column count of f, or fallback when it is unknown.
func Width(f *os.File, fallback int) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
