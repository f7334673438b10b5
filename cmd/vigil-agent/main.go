package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"vigil/internal/logging"
	"vigil/internal/version"
)

const exitUsage = 2

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	cfg, err := parseArgs(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(errOut, err)
		return exitUsage
	}
	if cfg.ShowVersion {
		if version.Version == "" || version.Version == "dev" {
			fmt.Fprintln(out, "vigil-agent dev")
		} else {
			fmt.Fprintf(out, "vigil-agent version %s\n", version.Version)
		}
		return 0
	}

	logOutput := io.Writer(out)
	if cfg.LogDir != "" {
		logFile, err := logging.OpenLogFile(cfg.LogDir)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(out, logFile)
	}

	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logging.LevelInfo
	}
	logger := logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), level, logOutput)

	if err := runAgent(cfg, logger); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}
