package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/errors"
	"github.com/core-tools/hsu-gateway/pkg/logging"
	"github.com/core-tools/hsu-gateway/pkg/portalloc"
)

type HealthCheckType string

const (
	// HealthCheckTypePort treats an occupied port as ready.
	HealthCheckTypePort HealthCheckType = "port"
	// HealthCheckTypeHTTP requires a 2xx from an HTTP endpoint on the port.
	HealthCheckTypeHTTP HealthCheckType = "http"
)

const (
	DefaultInterval = 500 * time.Millisecond
	DefaultGrace    = 200 * time.Millisecond
	DefaultTimeout  = 30 * time.Second
)

type HTTPHealthCheckConfig struct {
	// Path is requested on http://127.0.0.1:<port>.
	Path    string            `yaml:"path"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

type ReadinessConfig struct {
	Type HealthCheckType
	Port int
	HTTP HTTPHealthCheckConfig

	// Timeout, Interval and Grace fall back to the Default values when zero.
	Timeout  time.Duration
	Interval time.Duration
	Grace    time.Duration
}

func (c ReadinessConfig) withDefaults() ReadinessConfig {
	if c.Type == "" {
		c.Type = HealthCheckTypePort
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Grace < 0 {
		c.Grace = 0
	} else if c.Grace == 0 {
		c.Grace = DefaultGrace
	}
	return c
}

// AwaitReady polls until the gateway looks ready, then waits the grace
// period so the listener can finish initializing. It fails with a
// HealthCheckTimeout error once the timeout passes without a positive
// probe, or a cancelled error when ctx ends first.
func AwaitReady(ctx context.Context, config ReadinessConfig, id string, logger logging.Logger) error {
	config = config.withDefaults()
	if err := ValidateReadinessConfig(config); err != nil {
		return err
	}

	check := newCheck(config)
	start := time.Now()

	logger.Debugf("Waiting for readiness, id: %s, type: %s, port: %d, timeout: %v",
		id, config.Type, config.Port, config.Timeout)

	for {
		ok, msg := check(ctx)
		if ok {
			logger.Debugf("Readiness probe passed, id: %s, %s", id, msg)
			if err := sleepCtx(ctx, config.Grace); err != nil {
				return errors.NewCancelledError("readiness wait cancelled", err).WithContext("id", id)
			}
			return nil
		}

		elapsed := time.Since(start)
		if elapsed >= config.Timeout {
			logger.Warnf("Readiness timed out, id: %s, port: %d, elapsed: %v, last probe: %s",
				id, config.Port, elapsed, msg)
			return errors.NewHealthCheckTimeoutError(config.Port, config.Timeout.Milliseconds()).
				WithContext("elapsed_ms", elapsed.Milliseconds())
		}

		wait := config.Interval
		if remaining := config.Timeout - elapsed; remaining < wait {
			wait = remaining
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return errors.NewCancelledError("readiness wait cancelled", err).WithContext("id", id)
		}
	}
}

type checkFunc func(ctx context.Context) (bool, string)

func newCheck(config ReadinessConfig) checkFunc {
	switch config.Type {
	case HealthCheckTypeHTTP:
		return httpCheck(config)
	default:
		return func(context.Context) (bool, string) {
			if portalloc.IsPortInUse(config.Port) {
				return true, fmt.Sprintf("port %d is occupied", config.Port)
			}
			return false, fmt.Sprintf("port %d is free", config.Port)
		}
	}
}

func httpCheck(config ReadinessConfig) checkFunc {
	url := fmt.Sprintf("http://127.0.0.1:%d%s", config.Port, config.HTTP.Path)
	client := &http.Client{Timeout: config.Interval}
	return func(ctx context.Context) (bool, string) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, fmt.Sprintf("Failed to create HTTP request: %v", err)
		}
		for key, value := range config.HTTP.Headers {
			req.Header.Set(key, value)
		}

		resp, err := client.Do(req)
		if err != nil {
			return false, fmt.Sprintf("HTTP request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true, fmt.Sprintf("HTTP health check passed: %s", resp.Status)
		}
		return false, fmt.Sprintf("HTTP health check failed: %s", resp.Status)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
