package process

import (
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/core-tools/hsu-gateway/pkg/errors"
	"github.com/core-tools/hsu-gateway/pkg/logging"
)

type ExecutionConfig struct {
	ExecutablePath string
	Args           []string
	// Environment is the complete child environment; nothing is inherited
	// beyond what it lists.
	Environment      []string
	WorkingDirectory string
}

// Spawned is a started child with both output streams captured. The
// caller reaps it with Process.Wait and closes the streams once drained.
type Spawned struct {
	Process *os.Process
	Stdout  io.ReadCloser
	Stderr  io.ReadCloser
}

// Spawn starts the executable with stdin attached to the null device and
// stdout/stderr connected to pipes. The pipes exist before the child runs,
// so no output can be produced ahead of the readers.
func Spawn(execution ExecutionConfig, id string, logger logging.Logger) (*Spawned, error) {
	if err := ValidateExecutionConfig(execution); err != nil {
		logger.Errorf("Execution configuration validation failed, id: %s, error: %v", id, err)
		return nil, err
	}

	if err := ensureExecutable(execution.ExecutablePath); err != nil {
		return nil, errors.NewSpawnFailedError(execution.ExecutablePath, err).WithContext("id", id)
	}

	logger.Debugf("Spawning process, id: %s, executable path: '%s', args: %v, working directory: '%s'",
		id, execution.ExecutablePath, execution.Args, execution.WorkingDirectory)

	cmd := exec.Command(execution.ExecutablePath, execution.Args...)
	cmd.Dir = execution.WorkingDirectory
	cmd.Env = execution.Environment
	cmd.Stdin = nil

	setupProcessAttributes(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.NewSpawnFailedError(execution.ExecutablePath, err).WithContext("id", id)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return nil, errors.NewSpawnFailedError(execution.ExecutablePath, err).WithContext("id", id)
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, errors.NewSpawnFailedError(execution.ExecutablePath, err).WithContext("id", id)
	}

	logger.Infof("Spawned process, id: %s, PID: %d", id, cmd.Process.Pid)

	return &Spawned{
		Process: cmd.Process,
		Stdout:  stdout,
		Stderr:  stderr,
	}, nil
}

// ensureExecutable sets the execute bits on binaries unpacked without them.
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError("file does not exist", err).WithContext("path", path)
	}

	if runtime.GOOS == "windows" {
		return nil
	}

	mode := info.Mode()
	if mode&0111 != 0 {
		return nil
	}

	if err := os.Chmod(path, mode|0111); err != nil {
		return errors.NewIOError("failed to make file executable", err).WithContext("path", path)
	}
	return nil
}
