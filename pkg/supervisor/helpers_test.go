package supervisor

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/core-tools/hsu-gateway/internal/testgateway"
	"github.com/core-tools/hsu-gateway/pkg/binary"
	"github.com/core-tools/hsu-gateway/pkg/config"
	"github.com/core-tools/hsu-gateway/pkg/logging"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/require"
)

var testTimings = Timings{
	PollInterval: 50 * time.Millisecond,
	Grace:        50 * time.Millisecond,
	RestartDelay: 100 * time.Millisecond,
	Escalation:   500 * time.Millisecond,
}

func newTestSupervisor(t *testing.T, configure ...func(*Options)) *Supervisor {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)

	opts := Options{
		Resolver:  binary.Static(exe),
		Logger:    logging.NewNopLogger(),
		ServiceID: "test-gateway",
		Timings:   testTimings,
	}
	for _, c := range configure {
		c(&opts)
	}
	return New(opts)
}

// testConfig returns a config for the fake gateway on a free port. The
// fake writes its PID to the returned file.
func testConfig(t *testing.T, mode string) (config.ServiceConfig, string) {
	t.Helper()
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	pidFile := filepath.Join(t.TempDir(), "gateway.pid")
	return config.ServiceConfig{
		PayerPrivateKey:       "0xabc123",
		RedisURL:              "redis://127.0.0.1:6379",
		AppChainRPCURL:        "http://127.0.0.1:8545",
		AppChainWSSURL:        "ws://127.0.0.1:8546",
		SettlementChainRPCURL: "http://127.0.0.1:9545",
		SettlementChainWSSURL: "ws://127.0.0.1:9546",
		Port:                  port,
		HealthCheckTimeout:    5 * time.Second,
		ExtraEnv: map[string]string{
			testgateway.ModeEnv:    mode,
			testgateway.PIDFileEnv: pidFile,
		},
	}, pidFile
}

func readPID(t *testing.T, path string) int {
	t.Helper()
	var data []byte
	require.Eventually(t, func() bool {
		var err error
		data, err = os.ReadFile(path)
		return err == nil && len(strings.TrimSpace(string(data))) > 0
	}, 5*time.Second, 20*time.Millisecond)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	return pid
}

func boolPtr(b bool) *bool { return &b }
