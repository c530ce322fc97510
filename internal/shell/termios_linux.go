package shell

import (
	"os"

	"golang.org/x/sys/unix"
)

func disableEcho(f *os.File) error {
	fd := int(f.Fd())
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	termios.Lflag &^= unix.ECHO
	return unix.IoctlSetTermios(fd, unix.TCSETS, termios)
}
