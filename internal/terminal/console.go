// Package terminal owns the user's terminal: raw mode, keystroke decoding,
// and the single serialized output sink shared by the session and the shell.
package terminal

import (
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
)

// Console serializes writes to the user's terminal. Every call is written
// as one unit, so controller text is never split by shell output.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole wraps w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Write forwards p untouched. Shell output goes through here.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

// Print writes controller text, translating bare line feeds to CRLF
// because the terminal is in raw mode.
func (c *Console) Print(s string) error {
	if s == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, ToCRLF(s))
	return err
}

// EchoRune displays one typed character.
func (c *Console) EchoRune(r rune) error {
	return c.Print(string(r))
}

// EraseRune removes one displayed character from the end of the line,
// accounting for wide and zero-width runes.
func (c *Console) EraseRune(r rune) error {
	w := runewidth.RuneWidth(r)
	if w <= 0 {
		return nil
	}
	return c.Print(strings.Repeat("\b", w) + strings.Repeat(" ", w) + strings.Repeat("\b", w))
}

// Newline moves to the start of the next line.
func (c *Console) Newline() error {
	return c.Print("\n")
}

// ToCRLF converts every "\n" not already preceded by "\r" into "\r\n".
func ToCRLF(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + strings.Count(s, "\n"))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && (i == 0 || s[i-1] != '\r') {
			b.WriteByte('\r')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
