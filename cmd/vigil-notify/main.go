package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"vigil/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	return runWithSender(args, out, errOut, sendSyncRequest)
}

func runWithSender(args []string, out io.Writer, errOut io.Writer, send func(Config) error) int {
	cfg, err := parseArgs(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitCodeSuccess
		}
		fmt.Fprintln(errOut, err)
		return exitCodeUsage
	}
	if cfg.ShowVersion {
		if version.Version == "" || version.Version == "dev" {
			fmt.Fprintln(out, "vigil-notify dev")
		} else {
			fmt.Fprintf(out, "vigil-notify version %s\n", version.Version)
		}
		return exitCodeSuccess
	}
	cfg.LogWriter = errOut
	applyTimeout(cfg)

	if send == nil {
		return exitCodeSuccess
	}
	if err := send(cfg); err != nil {
		return handleNotifyError(err, errOut)
	}
	return exitCodeSuccess
}
