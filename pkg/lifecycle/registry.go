// Package lifecycle runs cleanup hooks when the host program shuts down.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/logging"

	"vawter.tech/stopper"
)

// Hook is called once while the host is shutting down. Hooks must not
// block; anything slow belongs in its own goroutine.
type Hook func()

// Registry collects shutdown hooks. Hooks run after every goroutine started
// through the registry has returned, in registration order.
type Registry struct {
	sctx   *stopper.Context
	logger logging.Logger

	mu     sync.Mutex
	hooks  map[uint64]namedHook
	nextID uint64
	ran    bool
}

type namedHook struct {
	id   uint64
	name string
	hook Hook
}

func NewRegistry(ctx context.Context, logger logging.Logger) *Registry {
	r := &Registry{
		sctx:   stopper.WithContext(ctx),
		logger: logger,
		hooks:  make(map[uint64]namedHook),
	}
	r.sctx.Defer(r.runHooks)
	return r
}

// Register adds a hook and returns a function that removes it. Hooks
// registered after shutdown has started are ignored.
func (r *Registry) Register(name string, hook Hook) (unregister func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ran {
		r.logger.Warnf("Hook registered after shutdown, ignoring, name: %s", name)
		return func() {}
	}

	r.nextID++
	id := r.nextID
	r.hooks[id] = namedHook{id: id, name: name, hook: hook}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.hooks, id)
	}
}

// Len reports the number of registered hooks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// WatchSignals begins shutdown, with the given grace period for registry
// goroutines, when one of sigs arrives.
func (r *Registry) WatchSignals(grace time.Duration, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	r.sctx.Go(func(sctx *stopper.Context) error {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			r.logger.Infof("Received signal, shutting down, signal: %v", sig)
			sctx.Stop(grace)
		case <-sctx.Stopping():
		}
		return nil
	})
}

// Stopping is closed once shutdown has begun.
func (r *Registry) Stopping() <-chan struct{} {
	return r.sctx.Stopping()
}

func (r *Registry) IsStopping() bool {
	return r.sctx.IsStopping()
}

// Shutdown stops the registry, waits for its goroutines and runs the hooks.
func (r *Registry) Shutdown(grace time.Duration) error {
	r.sctx.Stop(grace)
	return r.sctx.Wait()
}

func (r *Registry) runHooks() {
	r.mu.Lock()
	r.ran = true
	hooks := make([]namedHook, 0, len(r.hooks))
	for _, h := range r.hooks {
		hooks = append(hooks, h)
	}
	r.hooks = make(map[uint64]namedHook)
	r.mu.Unlock()

	sort.Slice(hooks, func(i, j int) bool { return hooks[i].id < hooks[j].id })
	for _, h := range hooks {
		r.run(h)
	}
}

func (r *Registry) run(h namedHook) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("Shutdown hook panicked, name: %s, panic: %v", h.name, rec)
		}
	}()
	r.logger.Debugf("Running shutdown hook, name: %s", h.name)
	h.hook()
}
