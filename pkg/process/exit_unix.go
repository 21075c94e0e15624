//go:build !windows

package process

import (
	"os"
	"syscall"
)

func describeState(state *os.ProcessState) ExitStatus {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ExitStatus{Code: state.ExitCode()}
	}
	sig := ws.Signal()
	return ExitStatus{
		Code:           -1,
		Signal:         SignalName(sig),
		ShutdownSignal: sig == syscall.SIGTERM || sig == syscall.SIGKILL,
	}
}
