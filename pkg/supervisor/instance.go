package supervisor

import (
	"os"
	"sync"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/environment"
	"github.com/core-tools/hsu-gateway/pkg/process"
)

// ProcessState is the lifecycle state of one gateway process instance.
type ProcessState string

const (
	ProcessStateStarting ProcessState = "starting" // Spawned, readiness pending
	ProcessStateHealthy  ProcessState = "healthy"  // Readiness observed
	ProcessStateStopping ProcessState = "stopping" // Termination signal sent
	ProcessStateExited   ProcessState = "exited"   // Reaped
)

// instance is one spawned gateway process. A handle points at exactly one
// instance at a time and replaces it wholesale on restart.
type instance struct {
	id        string
	port      int
	url       string
	pid       int
	process   *os.Process
	startedAt time.Time

	mu    sync.Mutex
	state ProcessState

	// exited is closed after the process has been reaped; exit is valid
	// from then on.
	exited chan struct{}
	exit   process.ExitStatus

	// stopRequested marks exits caused by this program.
	stopRequested bool

	shutdown       *shutdownController
	unregisterHook func()
	// forwarding completes when both output streams reached EOF.
	forwarding sync.WaitGroup
}

func newInstance(id string, port int, spawned *process.Spawned) *instance {
	return &instance{
		id:        id,
		port:      port,
		url:       environment.URL(port),
		pid:       spawned.Process.Pid,
		process:   spawned.Process,
		startedAt: time.Now(),
		state:     ProcessStateStarting,
		exited:    make(chan struct{}),
	}
}

func (i *instance) State() ProcessState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// transition moves to state "to" unless the instance has already exited.
func (i *instance) transition(to ProcessState) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == ProcessStateExited {
		return false
	}
	i.state = to
	return true
}

func (i *instance) markStopRequested() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopRequested = true
}

// intentionalExit reports whether the exit was asked for, either through
// a stop request or by one of the two termination signals this program
// sends.
func (i *instance) intentionalExit() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stopRequested || i.exit.ShutdownSignal
}

func (i *instance) hasExited() bool {
	select {
	case <-i.exited:
		return true
	default:
		return false
	}
}

// reap waits for the process and publishes its exit status.
func (i *instance) reap() {
	state, err := i.process.Wait()
	status := process.ExitStatusFromState(state, err)

	i.mu.Lock()
	i.exit = status
	i.state = ProcessStateExited
	i.mu.Unlock()

	close(i.exited)
}

// awaitForwarding waits for both output streams to reach EOF and reports
// whether they did within timeout.
func (i *instance) awaitForwarding(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		i.forwarding.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (i *instance) exitStatus() process.ExitStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exit
}
