package main

import (
	"context"
	"fmt"
	"os"

	"github.com/core-tools/hsu-gateway/pkg/config"
	"github.com/core-tools/hsu-gateway/pkg/logcollection"
	"github.com/core-tools/hsu-gateway/pkg/runner"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config      string `long:"config" short:"c" description:"path to the YAML configuration file (default: $HSU_GATEWAY_CONFIG)"`
	AdminAddr   string `long:"admin-addr" description:"address for the admin HTTP server, e.g. 127.0.0.1:9090"`
	LogLevel    string `long:"log-level" description:"supervisor log level: debug, info, warn or error"`
	PrintConfig bool   `long:"print-config" description:"print the effective configuration with secrets redacted and exit"`
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if opts.AdminAddr != "" {
		cfg.Supervisor.AdminAddress = opts.AdminAddr
	}
	if opts.LogLevel != "" {
		cfg.Supervisor.LogLevel = opts.LogLevel
	}

	if opts.PrintConfig {
		out, err := config.Dump(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render configuration: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	zapConfig := logcollection.DefaultZapConfig()
	zapConfig.Level = cfg.Supervisor.LogLevel
	zapConfig.Format = cfg.Supervisor.LogFormat
	logger, cleanup, err := logcollection.NewZapLogger(zapConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	defer logger.Sync()

	if err := runner.Run(context.Background(), cfg, logger); err != nil {
		logger.Sugar().Errorf("Gateway supervisor failed: %v", err)
		logger.Sync()
		cleanup()
		os.Exit(1)
	}
}
