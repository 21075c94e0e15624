//go:build windows

package process

import "os"

func describeState(state *os.ProcessState) ExitStatus {
	return ExitStatus{Code: state.ExitCode()}
}
