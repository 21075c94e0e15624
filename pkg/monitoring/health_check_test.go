package monitoring

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/errors"
	"github.com/core-tools/hsu-gateway/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestAwaitReadyOccupiedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	start := time.Now()
	err = AwaitReady(context.Background(), ReadinessConfig{
		Port:    ln.Addr().(*net.TCPAddr).Port,
		Timeout: 2 * time.Second,
	}, "test", logging.NewNopLogger())
	require.NoError(t, err)

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, DefaultGrace)
	assert.Less(t, elapsed, DefaultInterval+DefaultGrace)
}

func TestAwaitReadyBecomesReadyLater(t *testing.T) {
	port := freePort(t)
	go func() {
		time.Sleep(700 * time.Millisecond)
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", itoa(port)))
		if err == nil {
			time.Sleep(3 * time.Second)
			ln.Close()
		}
	}()

	err := AwaitReady(context.Background(), ReadinessConfig{Port: port, Timeout: 3 * time.Second},
		"test", logging.NewNopLogger())
	assert.NoError(t, err)
}

func TestAwaitReadyTimesOutWithinOneInterval(t *testing.T) {
	port := freePort(t)
	timeout := 1200 * time.Millisecond

	start := time.Now()
	err := AwaitReady(context.Background(), ReadinessConfig{Port: port, Timeout: timeout},
		"test", logging.NewNopLogger())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.IsHealthCheckTimeoutError(err))
	assert.Contains(t, err.Error(), "1200ms")
	assert.Contains(t, err.Error(), itoa(port))
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+DefaultInterval)

	v, ok := errors.ContextValue(err, "port")
	require.True(t, ok)
	assert.Equal(t, port, v)
}

func TestAwaitReadyTimeoutShorterThanInterval(t *testing.T) {
	start := time.Now()
	err := AwaitReady(context.Background(), ReadinessConfig{Port: freePort(t), Timeout: 150 * time.Millisecond},
		"test", logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsHealthCheckTimeoutError(err))
	assert.Less(t, time.Since(start), DefaultInterval)
}

func TestAwaitReadyCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := AwaitReady(ctx, ReadinessConfig{Port: freePort(t), Timeout: 5 * time.Second},
		"test", logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCancelledError(err))
}

func TestAwaitReadyHTTP(t *testing.T) {
	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ready:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()
	port := srv.Listener.Addr().(*net.TCPAddr).Port

	time.AfterFunc(600*time.Millisecond, func() { close(ready) })

	start := time.Now()
	err := AwaitReady(context.Background(), ReadinessConfig{
		Type:    HealthCheckTypeHTTP,
		Port:    port,
		HTTP:    HTTPHealthCheckConfig{Path: "/healthz"},
		Timeout: 3 * time.Second,
	}, "test", logging.NewNopLogger())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 600*time.Millisecond)
}

func TestValidateReadinessConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    ReadinessConfig
		shouldErr bool
	}{
		{name: "valid_port", config: ReadinessConfig{Port: 5050}, shouldErr: false},
		{name: "valid_http", config: ReadinessConfig{Type: HealthCheckTypeHTTP, Port: 5050, HTTP: HTTPHealthCheckConfig{Path: "/health"}}, shouldErr: false},
		{name: "zero_port", config: ReadinessConfig{}, shouldErr: true},
		{name: "port_too_large", config: ReadinessConfig{Port: 70000}, shouldErr: true},
		{name: "http_without_path", config: ReadinessConfig{Type: HealthCheckTypeHTTP, Port: 5050}, shouldErr: true},
		{name: "unknown_type", config: ReadinessConfig{Type: "grpc", Port: 5050}, shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReadinessConfig(tt.config.withDefaults())
			if tt.shouldErr {
				assert.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
