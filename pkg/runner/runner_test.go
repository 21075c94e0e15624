package runner

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/core-tools/hsu-gateway/internal/testgateway"
	"github.com/core-tools/hsu-gateway/pkg/config"
	"github.com/core-tools/hsu-gateway/pkg/errors"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	if testgateway.Enabled() {
		os.Exit(testgateway.Run())
	}
	os.Exit(m.Run())
}

func testConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	ports, err := freeport.GetFreePorts(2)
	require.NoError(t, err)

	return &config.Config{
		Service: config.ServiceConfig{
			PayerPrivateKey:       "0xabc123",
			RedisURL:              "redis://127.0.0.1:6379",
			AppChainRPCURL:        "http://127.0.0.1:8545",
			AppChainWSSURL:        "ws://127.0.0.1:8546",
			SettlementChainRPCURL: "http://127.0.0.1:9545",
			SettlementChainWSSURL: "ws://127.0.0.1:9546",
			Port:                  ports[0],
			HealthCheckTimeout:    5 * time.Second,
			ExtraEnv:              map[string]string{testgateway.ModeEnv: mode},
		},
		Binary: config.BinaryConfig{Path: exe},
		Supervisor: config.SupervisorOptions{
			ServiceID:       "runner-test",
			LogLevel:        "debug",
			LogFormat:       "console",
			AdminAddress:    "127.0.0.1:" + strconv.Itoa(ports[1]),
			ProcessFileDir:  t.TempDir(),
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testConfig(t, testgateway.ModeServe)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, zap.NewNop()) }()

	healthURL := "http://" + cfg.Supervisor.AdminAddress + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	pidFile := filepath.Join(cfg.Supervisor.ProcessFileDir, "runner-test.pid")
	assert.FileExists(t, pidFile)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.NoFileExists(t, pidFile)
}

func TestRunReturnsStartError(t *testing.T) {
	cfg := testConfig(t, testgateway.ModeExit)
	cfg.Supervisor.AdminAddress = ""

	err := Run(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.IsExitedDuringStartupError(err))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, testgateway.ModeServe)
	cfg.Service.RedisURL = ""

	err := Run(context.Background(), cfg, zap.NewNop())
	assert.True(t, errors.IsValidationError(err))
}
