// Package supervisor starts the gateway process, keeps it running and
// stops it.
//
// Start resolves the binary, picks a port, spawns the gateway with its
// output forwarded, and races readiness against an early exit. A failed
// start never leaves a process behind. The returned ServiceHandle follows
// the gateway across automatic restarts: readers always see the current
// instance.
package supervisor

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/binary"
	"github.com/core-tools/hsu-gateway/pkg/config"
	"github.com/core-tools/hsu-gateway/pkg/environment"
	"github.com/core-tools/hsu-gateway/pkg/errors"
	"github.com/core-tools/hsu-gateway/pkg/lifecycle"
	"github.com/core-tools/hsu-gateway/pkg/logcollection"
	"github.com/core-tools/hsu-gateway/pkg/logging"
	"github.com/core-tools/hsu-gateway/pkg/metrics"
	"github.com/core-tools/hsu-gateway/pkg/monitoring"
	"github.com/core-tools/hsu-gateway/pkg/portalloc"
	"github.com/core-tools/hsu-gateway/pkg/process"
	"github.com/core-tools/hsu-gateway/pkg/processfile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultRestartDelay = time.Second
	DefaultEscalation   = 5 * time.Second
	// DefaultOutputDrain bounds the wait for forwarded output once the
	// gateway has exited. A grandchild holding the pipes keeps them open.
	DefaultOutputDrain = 2 * time.Second
)

// Timings overrides the fixed supervision delays. Zero fields use the
// defaults.
type Timings struct {
	PollInterval time.Duration
	Grace        time.Duration
	RestartDelay time.Duration
	Escalation   time.Duration
	OutputDrain  time.Duration
}

func (t Timings) withDefaults() Timings {
	if t.PollInterval <= 0 {
		t.PollInterval = monitoring.DefaultInterval
	}
	if t.Grace == 0 {
		t.Grace = monitoring.DefaultGrace
	}
	if t.RestartDelay <= 0 {
		t.RestartDelay = DefaultRestartDelay
	}
	if t.Escalation <= 0 {
		t.Escalation = DefaultEscalation
	}
	if t.OutputDrain <= 0 {
		t.OutputDrain = DefaultOutputDrain
	}
	return t
}

// ExitHooks receives a callback per running instance that asks it to
// terminate when the host itself shuts down.
type ExitHooks interface {
	Register(name string, hook lifecycle.Hook) (unregister func())
}

// ReadinessOptions selects the readiness probe. The zero value is the
// port probe.
type ReadinessOptions struct {
	Type     monitoring.HealthCheckType
	HTTPPath string
}

type Options struct {
	// Resolver locates the gateway binary. It is consulted on every launch.
	Resolver binary.Resolver
	// Ports picks the port when ServiceConfig.Port is zero.
	Ports *portalloc.Allocator

	Logger logging.Logger
	// GatewayLogger receives forwarded gateway output.
	GatewayLogger *zap.Logger

	ExitHooks    ExitHooks
	Metrics      *metrics.Metrics
	ProcessFiles *processfile.ProcessFileManager

	// ServiceID names PID/port files and log lines. Defaults to "gateway".
	ServiceID string

	Readiness          ReadinessOptions
	RestartGuard       config.RestartGuardConfig
	WatchContractsFile bool
	Timings            Timings

	// BaseEnv supplies the parent environment. Defaults to os.Environ.
	BaseEnv func() []string
}

type Supervisor struct {
	opts    Options
	timings Timings
	logger  logging.Logger
}

func New(opts Options) *Supervisor {
	if opts.Resolver == nil {
		opts.Resolver = &binary.PlatformResolver{}
	}
	if opts.Ports == nil {
		opts.Ports = portalloc.NewAllocator()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.GatewayLogger == nil {
		opts.GatewayLogger = zap.NewNop()
	}
	if opts.ServiceID == "" {
		opts.ServiceID = "gateway"
	}
	if opts.BaseEnv == nil {
		opts.BaseEnv = os.Environ
	}
	return &Supervisor{
		opts:    opts,
		timings: opts.Timings.withDefaults(),
		logger:  opts.Logger,
	}
}

// Start launches the gateway and waits until it is ready. ctx bounds the
// launch only; the gateway keeps running after Start returns until the
// handle is stopped.
//
// Failures: a validation error for an incomplete cfg, BinaryNotFound,
// NoPortAvailable, GatewaySpawnFailed,
// GatewayExitedDuringStartup, HealthCheckTimeout. The spawned process, if
// any, has been killed and reaped and its output forwarded before the
// error is returned.
func (s *Supervisor) Start(ctx context.Context, cfg config.ServiceConfig) (*ServiceHandle, error) {
	s.logger.Infof("Starting gateway, service: %s, port: %d, auto restart: %t",
		s.opts.ServiceID, cfg.Port, cfg.AutoRestartEnabled())

	if err := config.ValidateServiceConfig(cfg); err != nil {
		s.opts.Metrics.ObserveStart(metrics.ResultFailure)
		s.logger.Errorf("Gateway configuration invalid, service: %s, error: %v", s.opts.ServiceID, err)
		return nil, err
	}

	inst, err := s.launch(ctx, cfg)
	if err != nil {
		s.opts.Metrics.ObserveStart(metrics.ResultFailure)
		s.logger.Errorf("Gateway start failed, service: %s, error: %v", s.opts.ServiceID, err)
		return nil, err
	}
	s.opts.Metrics.ObserveStart(metrics.ResultSuccess)

	h := newServiceHandle(s, cfg)
	h.install(inst)

	if s.opts.WatchContractsFile {
		if cfg.ContractsForm() == config.ContractsFormFilePath {
			if err := h.watchContracts(cfg.ContractsConfigFilePath); err != nil {
				s.logger.Warnf("Contracts file watch disabled, service: %s, path: %s, error: %v",
					s.opts.ServiceID, cfg.ContractsConfigFilePath, err)
			}
		} else {
			s.logger.Debugf("Contracts file watch requested but contracts are not file based, service: %s", s.opts.ServiceID)
		}
	}

	s.logger.Infof("Gateway started, service: %s, id: %s, pid: %d, url: %s",
		s.opts.ServiceID, inst.id, inst.pid, inst.url)
	return h, nil
}

// launch runs one start attempt and returns a healthy instance.
func (s *Supervisor) launch(ctx context.Context, cfg config.ServiceConfig) (*instance, error) {
	id := uuid.NewString()

	path, err := s.opts.Resolver.Resolve()
	if err != nil {
		return nil, errors.NewBinaryNotFoundError(err)
	}

	port, err := s.opts.Ports.Resolve(cfg.Port)
	if err != nil {
		return nil, err
	}

	env := environment.Build(cfg, port, s.opts.BaseEnv())
	spawned, err := process.Spawn(process.ExecutionConfig{
		ExecutablePath: path,
		Environment:    environment.List(env),
	}, id, s.logger)
	if err != nil {
		if !errors.IsSpawnFailedError(err) {
			err = errors.NewSpawnFailedError(path, err)
		}
		return nil, err
	}

	inst := newInstance(id, port, spawned)
	s.forward(inst, spawned)
	go inst.reap()

	s.logger.Debugf("Gateway spawned, id: %s, pid: %d, port: %d, path: %s", id, inst.pid, port, path)

	if err := s.awaitStartup(ctx, cfg, inst); err != nil {
		if killErr := process.KillProcessGroup(inst.pid); killErr != nil {
			s.logger.Errorf("Failed to kill gateway after failed start, id: %s, pid: %d, error: %v", id, inst.pid, killErr)
		}
		<-inst.exited
		s.opts.Metrics.ObserveExit(metrics.CauseStartup)
		s.drainOutput(inst)
		return nil, err
	}

	inst.transition(ProcessStateHealthy)
	inst.shutdown = newShutdownController(inst, s.timings.Escalation, s.logger)
	return inst, nil
}

// awaitStartup races readiness against the process exiting. The readiness
// poll is cancelled and waited for when the exit wins.
func (s *Supervisor) awaitStartup(ctx context.Context, cfg config.ServiceConfig, inst *instance) error {
	readyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	readiness := monitoring.ReadinessConfig{
		Type:     s.opts.Readiness.Type,
		Port:     inst.port,
		Timeout:  cfg.EffectiveHealthCheckTimeout(),
		Interval: s.timings.PollInterval,
		Grace:    s.timings.Grace,
	}
	if readiness.Type == monitoring.HealthCheckTypeHTTP {
		readiness.HTTP.Path = s.opts.Readiness.HTTPPath
	}

	ready := make(chan error, 1)
	go func() {
		ready <- monitoring.AwaitReady(readyCtx, readiness, inst.id, s.logger)
	}()

	select {
	case err := <-ready:
		if err != nil {
			return err
		}
		if inst.hasExited() {
			return s.exitedDuringStartup(inst)
		}
		return nil
	case <-inst.exited:
		cancel()
		<-ready
		return s.exitedDuringStartup(inst)
	}
}

func (s *Supervisor) exitedDuringStartup(inst *instance) error {
	status := inst.exitStatus()
	err := errors.NewExitedDuringStartupError(status.Code, status.Signal).
		WithContext("pid", inst.pid).
		WithContext("port", inst.port)
	if status.Err != nil {
		err.Cause = status.Err
	}
	return err
}

// drainOutput waits until everything the exited instance wrote has been
// forwarded, so its last diagnostics are logged before the caller moves on.
func (s *Supervisor) drainOutput(inst *instance) {
	if !inst.awaitForwarding(s.timings.OutputDrain) {
		s.logger.Warnf("Gateway output still open after exit, id: %s, pid: %d, waited: %v",
			inst.id, inst.pid, s.timings.OutputDrain)
	}
}

// forward attaches both output streams before the caller can observe the
// process. The pipes were created ahead of the spawn, so no output is lost.
func (s *Supervisor) forward(inst *instance, spawned *process.Spawned) {
	sink := logcollection.NewZapSink(s.opts.GatewayLogger, inst.id)
	m := s.opts.Metrics
	fwd := logcollection.NewForwarder(sink, logcollection.WithLineObserver(
		func(stream logcollection.StreamType, level logcollection.LogLevel) {
			m.ObserveLogLine(string(stream), level.String())
		}))

	inst.forwarding.Add(2)
	for stream, r := range map[logcollection.StreamType]io.ReadCloser{
		logcollection.StdoutStream: spawned.Stdout,
		logcollection.StderrStream: spawned.Stderr,
	} {
		go func() {
			defer inst.forwarding.Done()
			defer r.Close()
			fwd.Forward(r, stream)
		}()
	}
}
