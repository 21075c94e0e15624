// Package runner assembles a gateway supervisor from configuration and runs
// it until the context ends or the host receives SIGINT/SIGTERM.
package runner

import (
	"context"
	stderrors "errors"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/binary"
	"github.com/core-tools/hsu-gateway/pkg/config"
	"github.com/core-tools/hsu-gateway/pkg/control"
	"github.com/core-tools/hsu-gateway/pkg/errors"
	"github.com/core-tools/hsu-gateway/pkg/lifecycle"
	"github.com/core-tools/hsu-gateway/pkg/logging"
	"github.com/core-tools/hsu-gateway/pkg/metrics"
	"github.com/core-tools/hsu-gateway/pkg/monitoring"
	"github.com/core-tools/hsu-gateway/pkg/processfile"
	"github.com/core-tools/hsu-gateway/pkg/supervisor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
)

// Run supervises the gateway described by cfg. It returns nil after a
// clean shutdown and the start error when the gateway never came up.
func Run(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	logger := logging.NewZapLogger("", zapLogger.Named("supervisor").Sugar())
	opts := cfg.Supervisor

	logger.Infof("Gateway supervisor starting, service: %s, admin: %q, process files: %q",
		opts.ServiceID, opts.AdminAddress, opts.ProcessFileDir)

	if err := config.Validate(cfg); err != nil {
		return errors.NewValidationError("configuration validation failed", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry := lifecycle.NewRegistry(context.Background(), logger)
	registry.WatchSignals(opts.ShutdownTimeout, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-registry.Stopping():
			cancel()
		case <-ctx.Done():
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var files *processfile.ProcessFileManager
	if opts.ProcessFileDir != "" {
		files = processfile.NewProcessFileManager(processfile.ProcessFileConfig{
			BaseDirectory: opts.ProcessFileDir,
		}, logger)
	}

	supOpts := supervisor.Options{
		Resolver: &binary.PlatformResolver{
			Override:   cfg.Binary.Path,
			SearchDirs: cfg.Binary.SearchDirs,
		},
		Logger:             logger,
		GatewayLogger:      zapLogger,
		ExitHooks:          registry,
		Metrics:            metrics.New(promRegistry),
		ProcessFiles:       files,
		ServiceID:          opts.ServiceID,
		RestartGuard:       opts.Restart,
		WatchContractsFile: opts.WatchContractsFile,
	}

	if opts.ReadinessHTTPPath != "" {
		supOpts.Readiness = supervisor.ReadinessOptions{
			Type:     monitoring.HealthCheckTypeHTTP,
			HTTPPath: opts.ReadinessHTTPPath,
		}
	}
	sup := supervisor.New(supOpts)

	gateway := &gatewayService{
		sup:             sup,
		cfg:             cfg.Service,
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          logger,
	}

	tree := suture.New("hsu-gateway", suture.Spec{
		EventHook: func(e suture.Event) {
			logger.Warnf("Supervision event, %s", e)
		},
		Timeout: opts.ShutdownTimeout + supervisor.DefaultEscalation,
	})
	tree.Add(gateway)
	if opts.AdminAddress != "" {
		tree.Add(control.NewServer(opts.AdminAddress, gateway.current, promRegistry, logger))
	}

	treeErr := tree.Serve(ctx)

	if err := registry.Shutdown(opts.ShutdownTimeout); err != nil {
		logger.Warnf("Lifecycle shutdown reported an error, error: %v", err)
	}

	if err := gateway.startError(); err != nil {
		return err
	}
	if treeErr != nil && !stderrors.Is(treeErr, context.Canceled) && !stderrors.Is(treeErr, context.DeadlineExceeded) {
		return errors.NewInternalError("supervision tree failed", treeErr)
	}

	logger.Infof("Gateway supervisor stopped, service: %s", opts.ServiceID)
	return nil
}

// gatewayService starts the gateway, holds it until the tree stops, then
// stops it.
type gatewayService struct {
	sup             *supervisor.Supervisor
	cfg             config.ServiceConfig
	shutdownTimeout time.Duration
	logger          logging.Logger

	handle atomic.Pointer[supervisor.ServiceHandle]

	mu       sync.Mutex
	startErr error
}

func (g *gatewayService) Serve(ctx context.Context) error {
	h, err := g.sup.Start(ctx, g.cfg)
	if err != nil {
		g.mu.Lock()
		g.startErr = err
		g.mu.Unlock()
		return suture.ErrTerminateSupervisorTree
	}
	g.handle.Store(h)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), g.shutdownTimeout)
	defer cancel()
	h.Stop(stopCtx)
	return ctx.Err()
}

func (g *gatewayService) String() string {
	return "gateway"
}

// current feeds the admin server.
func (g *gatewayService) current() control.Gateway {
	h := g.handle.Load()
	if h == nil {
		return nil
	}
	return h
}

func (g *gatewayService) startError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.startErr
}
