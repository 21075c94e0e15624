package main

import (
	"fmt"
	"os"

	"github.com/core-tools/hsu-gateway/internal/testgateway"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Mode string `long:"mode" description:"behavior: serve, exit, hang, ignore-term or crash (default: $HSU_TEST_GATEWAY_MODE, then serve)"`
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

	mode := opts.Mode
	if mode == "" {
		mode = os.Getenv(testgateway.ModeEnv)
	}
	if mode == "" {
		mode = testgateway.ModeServe
	}

	os.Exit(testgateway.RunMode(mode))
}
