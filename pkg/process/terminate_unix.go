//go:build !windows

package process

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// SendTerminationSignal sends SIGTERM to the process group led by pid.
func SendTerminationSignal(pid int) error {
	return ignoreGone(syscall.Kill(-pid, syscall.SIGTERM))
}

// KillProcessGroup sends SIGKILL to the process group led by pid.
func KillProcessGroup(pid int) error {
	return ignoreGone(syscall.Kill(-pid, syscall.SIGKILL))
}

func ignoreGone(err error) error {
	if err == syscall.ESRCH {
		return nil
	}
	return err
}

// SignalName returns the conventional name of a signal, e.g. "SIGTERM".
func SignalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
