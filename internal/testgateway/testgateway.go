// Package testgateway is a stand-in for the gateway binary. It honors the
// same environment contract (XMTPD_API_PORT) and logs the way the real
// gateway does, with behavior selected by ModeEnv.
package testgateway

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ModeEnv       = "HSU_TEST_GATEWAY_MODE"
	PIDFileEnv    = "HSU_TEST_GATEWAY_PID_FILE"
	EnvFileEnv    = "HSU_TEST_GATEWAY_ENV_FILE"
	CrashAfterEnv = "HSU_TEST_GATEWAY_CRASH_AFTER"

	portEnv = "XMTPD_API_PORT"
)

const (
	// ModeServe listens on the API port and exits 0 on SIGTERM.
	ModeServe = "serve"
	// ModeExit rejects its configuration and exits with ExitCodeConfig.
	ModeExit = "exit"
	// ModeHang runs without ever listening.
	ModeHang = "hang"
	// ModeIgnoreTerm listens and ignores SIGTERM.
	ModeIgnoreTerm = "ignore-term"
	// ModeCrash listens, then exits with ExitCodeCrash after CrashAfterEnv.
	ModeCrash = "crash"
)

const (
	ExitCodeConfig = 3
	ExitCodeCrash  = 2

	defaultCrashAfter = 300 * time.Millisecond
)

// Enabled reports whether the current process was launched as a fake
// gateway.
func Enabled() bool {
	return os.Getenv(ModeEnv) != ""
}

// Run executes the mode named by ModeEnv and returns the exit code.
func Run() int {
	return RunMode(os.Getenv(ModeEnv))
}

func RunMode(mode string) int {
	logger := newLogger()
	defer logger.Sync()

	if err := writeDiagnostics(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write diagnostics: %v\n", err)
		return 1
	}

	switch mode {
	case ModeExit:
		fmt.Fprintln(os.Stderr, "invalid configuration: unknown contracts environment")
		return ExitCodeConfig
	case ModeHang:
		logger.Info("starting without api listener")
		for {
			time.Sleep(time.Hour)
		}
	case ModeServe, ModeIgnoreTerm, ModeCrash:
		return serve(logger, mode)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
		return 1
	}
}

func serve(logger *zap.Logger, mode string) int {
	port := os.Getenv(portEnv)
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", port))
	if err != nil {
		logger.Error("failed to listen", zap.String("port", port), zap.Error(err))
		return 1
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)

	logger.Info("gateway listening", zap.String("port", port))
	logger.Debug("payer key loaded")
	logger.Warn("node selector strategy not set")
	fmt.Println("plain text line")
	fmt.Fprintln(os.Stderr, "stderr diagnostic")

	var crash <-chan time.Time
	if mode == ModeCrash {
		crash = time.After(crashAfter())
	}

	for {
		select {
		case <-sigs:
			if mode == ModeIgnoreTerm {
				logger.Warn("ignoring termination signal")
				continue
			}
			logger.Info("shutting down")
			return 0
		case <-crash:
			logger.Error("fatal error, exiting")
			return ExitCodeCrash
		}
	}
}

func newLogger() *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

func crashAfter() time.Duration {
	if d, err := time.ParseDuration(os.Getenv(CrashAfterEnv)); err == nil && d > 0 {
		return d
	}
	return defaultCrashAfter
}

func writeDiagnostics() error {
	if path := os.Getenv(PIDFileEnv); path != "" {
		if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
			return err
		}
	}
	if path := os.Getenv(EnvFileEnv); path != "" {
		env := os.Environ()
		sort.Strings(env)
		if err := os.WriteFile(path, []byte(strings.Join(env, "\n")+"\n"), 0o644); err != nil {
			return err
		}
	}
	return nil
}
