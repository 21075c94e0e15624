package supervisor

import (
	stderrors "errors"

	"github.com/core-tools/hsu-gateway/pkg/config"
	"github.com/core-tools/hsu-gateway/pkg/logging"

	"github.com/sony/gobreaker/v2"
)

var errUnexpectedExit = stderrors.New("gateway exited unexpectedly")

// restartGuard caps automatic restarts per window. Every unexpected exit
// is recorded as a breaker failure; once more than MaxRestarts land in one
// window the breaker opens and restarts are refused until the window has
// passed. A nil guard allows everything.
type restartGuard struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

func newRestartGuard(cfg config.RestartGuardConfig, name string, logger logging.Logger) *restartGuard {
	if cfg.MaxRestarts <= 0 {
		return nil
	}
	limit := uint32(cfg.MaxRestarts)
	settings := gobreaker.Settings{
		Name:     name,
		Interval: cfg.Window,
		Timeout:  cfg.Window,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.TotalFailures > limit
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Restart guard state changed, service: %s, from: %s, to: %s", name, from, to)
		},
	}
	return &restartGuard{cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// allow records an unexpected exit and reports whether a restart may
// follow it.
func (g *restartGuard) allow() bool {
	if g == nil {
		return true
	}
	if g.cb.State() == gobreaker.StateHalfOpen {
		// The open period is over. Close the breaker so this exit is the
		// first of a fresh window rather than a failed half-open probe.
		_, _ = g.cb.Execute(func() (struct{}, error) {
			return struct{}{}, nil
		})
	}
	_, _ = g.cb.Execute(func() (struct{}, error) {
		return struct{}{}, errUnexpectedExit
	})
	return g.cb.State() != gobreaker.StateOpen
}
