package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"vigil/internal/cli"
)

const defaultCoordinatorURL = "http://localhost:7130"
const defaultNotifyTimeout = 2 * time.Second

type Config struct {
	URL         string
	Token       string
	ProjectID   string
	AgentID     string
	Timeout     time.Duration
	Verbose     bool
	ShowVersion bool
	LogWriter   io.Writer
}

func parseArgs(args []string, errOut io.Writer) (Config, error) {
	fs := flag.NewFlagSet("vigil-notify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	urlFlag := fs.String("url", "", "Coordinator base URL (env: VIGIL_COORDINATOR_URL, default: http://localhost:7130)")
	tokenFlag := fs.String("token", "", "Auth token (env: VIGIL_TOKEN, default: none)")
	agentFlag := fs.String("agent", "manual", "Agent identity to report")
	timeoutFlag := fs.Duration("timeout", defaultNotifyTimeout, "Request timeout")
	verboseFlag := fs.Bool("verbose", false, "Verbose output")
	helpVersion := cli.AddHelpVersionFlags(fs, "Show this help message", "Print version and exit")
	fs.Usage = func() {
		printNotifyHelp(fs.Output())
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if helpVersion.Help {
		fs.Usage()
		return Config{}, flag.ErrHelp
	}
	if helpVersion.Version {
		return Config{ShowVersion: true}, nil
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return Config{}, fmt.Errorf("project id is required")
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return Config{}, fmt.Errorf("invalid arguments")
	}

	projectID := strings.TrimSpace(fs.Arg(0))
	if projectID == "" {
		fs.Usage()
		return Config{}, fmt.Errorf("project id is required")
	}

	url := strings.TrimSpace(*urlFlag)
	if url == "" {
		url = strings.TrimSpace(os.Getenv("VIGIL_COORDINATOR_URL"))
	}
	if url == "" {
		url = defaultCoordinatorURL
	}

	token := strings.TrimSpace(*tokenFlag)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("VIGIL_TOKEN"))
	}

	return Config{
		URL:       url,
		Token:     token,
		ProjectID: projectID,
		AgentID:   strings.TrimSpace(*agentFlag),
		Timeout:   *timeoutFlag,
		Verbose:   *verboseFlag,
	}, nil
}

func printNotifyHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: vigil-notify [options] <project-id>")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Request an immediate resync of a watched project from the build coordinator")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	writeNotifyOption(out, "--url URL", "Coordinator base URL (env: VIGIL_COORDINATOR_URL, default: http://localhost:7130)")
	writeNotifyOption(out, "--token TOKEN", "Auth token (env: VIGIL_TOKEN, default: none)")
	writeNotifyOption(out, "--agent ID", "Agent identity to report (default: manual)")
	writeNotifyOption(out, "--timeout DURATION", "Request timeout (default: 2s)")
	writeNotifyOption(out, "--verbose", "Verbose output")
	writeNotifyOption(out, "--version", "Print version and exit")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Examples:")
	fmt.Fprintln(out, "  vigil-notify my-service")
	fmt.Fprintln(out, "  vigil-notify --url http://coordinator:7130 --token s3cret my-service")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Exit codes:")
	fmt.Fprintln(out, "  0  Success")
	fmt.Fprintln(out, "  1  Usage error")
	fmt.Fprintln(out, "  2  Request rejected")
	fmt.Fprintln(out, "  3  Network or server error")
}

func writeNotifyOption(out io.Writer, name, desc string) {
	fmt.Fprintf(out, "  %-18s %s\n", name, desc)
}
