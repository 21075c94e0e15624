package process

import (
	"fmt"
	"os"
)

// ExitStatus describes how a child terminated.
type ExitStatus struct {
	// Code is the exit code, or -1 when the child was killed by a signal.
	Code int
	// Signal names the terminating signal, empty for a normal exit.
	Signal string
	// ShutdownSignal is set when the terminating signal is one the
	// supervisor itself uses to stop the child.
	ShutdownSignal bool
	// Err carries a Wait failure unrelated to the child's own exit.
	Err error
}

func (s ExitStatus) String() string {
	if s.Signal != "" {
		return fmt.Sprintf("signal %s", s.Signal)
	}
	return fmt.Sprintf("exit code %d", s.Code)
}

// ExitStatusFromState converts the result of os.Process.Wait.
func ExitStatusFromState(state *os.ProcessState, waitErr error) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1, Err: waitErr}
	}
	status := describeState(state)
	if waitErr != nil {
		if _, ok := waitErr.(interface{ ExitCode() int }); !ok {
			status.Err = waitErr
		}
	}
	return status
}
