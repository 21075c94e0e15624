package supervisor

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/config"
	"github.com/core-tools/hsu-gateway/pkg/errors"
	"github.com/core-tools/hsu-gateway/pkg/metrics"
)

// ServiceHandle is the caller's view of a supervised gateway. URL, Port and
// the other accessors always read the current instance, which changes after
// a restart.
type ServiceHandle struct {
	sup *Supervisor
	cfg config.ServiceConfig

	current atomic.Pointer[instance]

	// mu serializes Stop, Restart and automatic restart swaps so there is
	// never more than one live instance per handle.
	mu sync.Mutex

	stopped     atomic.Bool
	stale       atomic.Bool
	autoRestart atomic.Bool
	restarts    atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once

	guard *restartGuard
}

func newServiceHandle(s *Supervisor, cfg config.ServiceConfig) *ServiceHandle {
	h := &ServiceHandle{
		sup:    s,
		cfg:    cfg,
		closed: make(chan struct{}),
		guard:  newRestartGuard(s.opts.RestartGuard, s.opts.ServiceID, s.logger),
	}
	h.autoRestart.Store(cfg.AutoRestartEnabled())
	return h
}

func (h *ServiceHandle) URL() string { return h.current.Load().url }

func (h *ServiceHandle) Port() int { return h.current.Load().port }

func (h *ServiceHandle) PID() int { return h.current.Load().pid }

// Process returns the OS process of the current instance.
func (h *ServiceHandle) Process() *os.Process { return h.current.Load().process }

func (h *ServiceHandle) InstanceID() string { return h.current.Load().id }

func (h *ServiceHandle) State() ProcessState { return h.current.Load().State() }

// Restarts counts successful restarts over the handle's lifetime.
func (h *ServiceHandle) Restarts() int64 { return h.restarts.Load() }

// Stale reports that the current instance exited and could not be
// replaced. Stop on a stale handle returns immediately.
func (h *ServiceHandle) Stale() bool { return h.stale.Load() }

// Done is closed once Stop has been called.
func (h *ServiceHandle) Done() <-chan struct{} { return h.closed }

// Stop terminates the current instance and waits for it to exit and for
// its output to be forwarded, killing it early if ctx ends first. It is safe to call more than once; later
// calls do not signal an exited process again. No restart follows.
func (h *ServiceHandle) Stop(ctx context.Context) {
	h.closeOnce.Do(func() { close(h.closed) })
	h.stopped.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()

	inst := h.current.Load()
	inst.shutdown.stop(ctx)
	h.sup.drainOutput(inst)
	h.sup.opts.Metrics.SetUp(false)

	if pf := h.sup.opts.ProcessFiles; pf != nil {
		_ = pf.Remove(h.sup.opts.ServiceID)
	}
}

// Restart gracefully stops the current instance and launches a new one on
// the same port. ctx bounds the stop only: once the old instance is gone
// the replacement is started regardless of ctx, and only Stop aborts it.
// The handle's auto-restart setting is unchanged.
func (h *ServiceHandle) Restart(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped.Load() {
		return errors.NewRestartFailedError("handle has been stopped", nil)
	}

	prev := h.current.Load()
	h.sup.logger.Infof("Restart requested, service: %s, id: %s", h.sup.opts.ServiceID, prev.id)
	prev.shutdown.stop(ctx)
	h.sup.drainOutput(prev)

	return h.relaunch(context.WithoutCancel(ctx), prev)
}

// relaunch starts a replacement for prev on prev's port and swaps it in.
// The caller holds h.mu.
func (h *ServiceHandle) relaunch(ctx context.Context, prev *instance) error {
	launchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.closed:
			cancel()
		case <-launchCtx.Done():
		}
	}()

	cfg := h.cfg
	cfg.Port = prev.port
	enabled := true
	cfg.AutoRestart = &enabled

	inst, err := h.sup.launch(launchCtx, cfg)
	if err != nil {
		h.stale.Store(true)
		h.sup.opts.Metrics.ObserveRestart(metrics.ResultFailure)
		h.sup.logger.Errorf("Gateway restart failed, handle is stale, service: %s, port: %d, error: %v",
			h.sup.opts.ServiceID, prev.port, err)
		return errors.NewRestartFailedError("gateway restart failed", err).
			WithContext("port", prev.port)
	}

	h.install(inst)
	h.stale.Store(false)
	h.restarts.Add(1)
	h.sup.opts.Metrics.ObserveRestart(metrics.ResultSuccess)
	h.sup.logger.Infof("Gateway restarted, service: %s, id: %s, pid: %d, url: %s",
		h.sup.opts.ServiceID, inst.id, inst.pid, inst.url)
	return nil
}

// install makes inst current and wires its exit handling.
func (h *ServiceHandle) install(inst *instance) {
	opts := h.sup.opts
	h.current.Store(inst)

	if opts.ExitHooks != nil {
		inst.unregisterHook = opts.ExitHooks.Register("gateway "+inst.id, inst.shutdown.begin)
	}

	if opts.ProcessFiles != nil {
		if err := opts.ProcessFiles.WritePIDFile(opts.ServiceID, inst.pid); err != nil {
			h.sup.logger.Warnf("Failed to write PID file, service: %s, error: %v", opts.ServiceID, err)
		}
		if err := opts.ProcessFiles.WritePortFile(opts.ServiceID, inst.port); err != nil {
			h.sup.logger.Warnf("Failed to write port file, service: %s, error: %v", opts.ServiceID, err)
		}
	}

	opts.Metrics.SetUp(true)
	go h.supervise(inst)
}

// supervise handles the exit of inst. Intentional exits end here; other
// exits are restarted after the restart delay when auto-restart is on.
func (h *ServiceHandle) supervise(inst *instance) {
	<-inst.exited

	if inst.unregisterHook != nil {
		inst.unregisterHook()
	}
	if h.current.Load() == inst {
		h.sup.opts.Metrics.SetUp(false)
	}

	status := inst.exitStatus()
	logger := h.sup.logger
	service := h.sup.opts.ServiceID

	if inst.intentionalExit() {
		h.sup.opts.Metrics.ObserveExit(metrics.CauseShutdown)
		logger.Infof("Gateway exited, service: %s, id: %s, pid: %d, status: %s", service, inst.id, inst.pid, status)
		return
	}

	h.sup.opts.Metrics.ObserveExit(metrics.CauseUnexpected)
	logger.Warnf("Gateway exited unexpectedly, service: %s, id: %s, pid: %d, status: %s", service, inst.id, inst.pid, status)

	if h.stopped.Load() || !h.autoRestart.Load() {
		return
	}

	if !h.guard.allow() {
		h.stale.Store(true)
		h.sup.opts.Metrics.ObserveRestart(metrics.ResultSuppressed)
		logger.Errorf("Restart suppressed, too many restarts, service: %s, max: %d, window: %v",
			service, h.sup.opts.RestartGuard.MaxRestarts, h.sup.opts.RestartGuard.Window)
		return
	}

	timer := time.NewTimer(h.sup.timings.RestartDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-h.closed:
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Stop or a requested restart may have run while the delay elapsed.
	if h.stopped.Load() || h.current.Load() != inst {
		return
	}

	logger.Infof("Restarting gateway, service: %s, port: %d", service, inst.port)
	_ = h.relaunch(context.Background(), inst)
}

// Snapshot is a point-in-time view of a handle.
type Snapshot struct {
	ServiceID   string    `json:"service_id"`
	InstanceID  string    `json:"instance_id"`
	PID         int       `json:"pid"`
	Port        int       `json:"port"`
	URL         string    `json:"url"`
	State       string    `json:"state"`
	StartedAt   time.Time `json:"started_at"`
	Restarts    int64     `json:"restarts"`
	Stale       bool      `json:"stale"`
	Stopped     bool      `json:"stopped"`
	AutoRestart bool      `json:"auto_restart"`
	LastExit    string    `json:"last_exit,omitempty"`
}

func (h *ServiceHandle) Snapshot() Snapshot {
	inst := h.current.Load()
	snap := Snapshot{
		ServiceID:   h.sup.opts.ServiceID,
		InstanceID:  inst.id,
		PID:         inst.pid,
		Port:        inst.port,
		URL:         inst.url,
		State:       string(inst.State()),
		StartedAt:   inst.startedAt,
		Restarts:    h.restarts.Load(),
		Stale:       h.stale.Load(),
		Stopped:     h.stopped.Load(),
		AutoRestart: h.autoRestart.Load(),
	}
	if inst.hasExited() {
		snap.LastExit = inst.exitStatus().String()
	}
	return snap
}
