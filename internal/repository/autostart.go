package repository

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	AutostartBeginMarker = "# >>> genshell-autoload >>>"
	AutostartEndMarker   = "# <<< genshell-autoload <<<"

	// AutostartGuardEnv keeps nested interactive shells from starting
	// genshell again.
	AutostartGuardEnv = "GENSHELL_STARTED"
)

// Autostart manages the block in a shell startup file that launches
// genshell when an interactive shell starts.
type Autostart struct {
	path    string
	command string
}

// NewAutostart manages the block in the rc file at path. command is the
// line that launches genshell.
func NewAutostart(path, command string) *Autostart {
	if command == "" {
		command = "genshell"
	}
	return &Autostart{path: path, command: command}
}

// Path returns the rc file location.
func (a *Autostart) Path() string {
	return a.path
}

// Block returns the text Install appends.
func (a *Autostart) Block() string {
	return fmt.Sprintf("%s\nif [ -z \"$%s\" ]; then\n  export %s=1\n  %s\nfi\n%s\n",
		AutostartBeginMarker, AutostartGuardEnv, AutostartGuardEnv, a.command, AutostartEndMarker)
}

// Installed reports whether the rc file contains the block.
func (a *Autostart) Installed() (bool, error) {
	content, err := a.read()
	if err != nil {
		return false, err
	}
	return strings.Contains(content, AutostartBeginMarker), nil
}

// Install appends the block unless it is already present. It reports
// whether the file changed.
func (a *Autostart) Install() (bool, error) {
	changed := false
	err := withLock(a.path, "autostart", func() error {
		content, err := a.read()
		if err != nil {
			return err
		}
		if strings.Contains(content, AutostartBeginMarker) {
			return nil
		}

		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += "\n" + a.Block()
		changed = true
		return WriteFileAtomic(a.path, []byte(content), a.mode())
	})
	return changed, err
}

// Remove deletes every block from the rc file. It reports whether the
// file changed; a missing file or block is not an error.
func (a *Autostart) Remove() (bool, error) {
	changed := false
	err := withLock(a.path, "autostart", func() error {
		content, err := a.read()
		if err != nil {
			return err
		}
		cleaned := stripBlocks(content)
		if cleaned == content {
			return nil
		}
		changed = true
		return WriteFileAtomic(a.path, []byte(cleaned), a.mode())
	})
	return changed, err
}

func (a *Autostart) read() (string, error) {
	data, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", a.path, err)
	}
	return string(data), nil
}

func (a *Autostart) mode() os.FileMode {
	if info, err := os.Stat(a.path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

// stripBlocks removes each marker block together with the blank line
// Install put before it. An unterminated block is left untouched.
func stripBlocks(content string) string {
	for {
		start := strings.Index(content, AutostartBeginMarker)
		if start < 0 {
			return content
		}
		rel := strings.Index(content[start:], AutostartEndMarker)
		if rel < 0 {
			return content
		}
		end := start + rel + len(AutostartEndMarker)
		if end < len(content) && content[end] == '\n' {
			end++
		}
		switch {
		case start >= 2 && content[start-2:start] == "\n\n":
			start--
		case start == 1 && content[0] == '\n':
			start = 0
		}
		content = content[:start] + content[end:]
	}
}
