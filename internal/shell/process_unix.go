//go:build unix

package shell

import (
	"errors"
	"os/exec"

	"golang.org/x/sys/unix"
)

// signalGroup signals the shell's process group. pty.Start makes the shell
// a session leader, so its pid is also the group id. Bash relays SIGHUP to
// its jobs before exiting.
func signalGroup(cmd *exec.Cmd, sig unix.Signal) error {
	err := unix.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	if err != nil {
		return cmd.Process.Signal(sig)
	}
	return nil
}

func hangup(cmd *exec.Cmd) error { return signalGroup(cmd, unix.SIGHUP) }

func kill(cmd *exec.Cmd) error { return signalGroup(cmd, unix.SIGKILL) }
