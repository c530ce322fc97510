//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package shell

import "os"

// pty.Start already fails on platforms without termios.
func disableEcho(*os.File) error {
	return nil
}
