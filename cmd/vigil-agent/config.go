package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vigil/internal/cli"
)

const (
	defaultListenAddr  = "127.0.0.1:7125"
	defaultQuietPeriod = time.Second
)

// Config is the agent's resolved configuration. Precedence: flags over
// environment over config file over defaults.
type Config struct {
	CoordinatorURL string        `yaml:"coordinator_url"`
	Token          string        `yaml:"token"`
	ListenAddr     string        `yaml:"listen"`
	LogDir         string        `yaml:"log_dir"`
	LogLevel       string        `yaml:"log_level"`
	StateDir       string        `yaml:"state_dir"`
	QuietPeriod    time.Duration `yaml:"quiet_period"`
	ShowVersion    bool          `yaml:"-"`
}

func parseArgs(args []string, errOut io.Writer) (Config, error) {
	return parseArgsWithEnv(args, errOut, os.Getenv)
}

func parseArgsWithEnv(args []string, errOut io.Writer, getenv func(string) string) (Config, error) {
	flags := flag.NewFlagSet("vigil-agent", flag.ContinueOnError)
	flags.SetOutput(errOut)

	configPath := flags.String("config", getenv("VIGIL_CONFIG"), "path to YAML config file")
	coordinatorURL := flags.String("coordinator", "", "build coordinator base URL")
	token := flags.String("token", "", "coordinator auth token")
	listenAddr := flags.String("listen", "", "local address for /events and /metrics")
	logDir := flags.String("log-dir", "", "agent log directory")
	logLevel := flags.String("log-level", "", "minimum log level (debug|info|warning|error)")
	stateDir := flags.String("state-dir", "", "directory for persistent agent state")
	quietPeriod := flags.Duration("quiet-period", 0, "quiet period before a batch settles")
	helpVersion := cli.AddHelpVersionFlags(flags, "show this help message", "print version and exit")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	if helpVersion.Help {
		flags.Usage()
		return Config{}, flag.ErrHelp
	}

	cfg := Config{
		ListenAddr:  defaultListenAddr,
		LogLevel:    "info",
		QuietPeriod: defaultQuietPeriod,
	}
	if *configPath != "" {
		if err := loadConfigFile(*configPath, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg, getenv)

	if *coordinatorURL != "" {
		cfg.CoordinatorURL = *coordinatorURL
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *stateDir != "" {
		cfg.StateDir = *stateDir
	}
	if *quietPeriod > 0 {
		cfg.QuietPeriod = *quietPeriod
	}
	cfg.ShowVersion = helpVersion.Version

	if cfg.ShowVersion {
		return cfg, nil
	}
	if strings.TrimSpace(cfg.CoordinatorURL) == "" {
		return Config{}, fmt.Errorf("coordinator URL is required (flag -coordinator or VIGIL_COORDINATOR_URL)")
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(payload, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if value := getenv("VIGIL_COORDINATOR_URL"); value != "" {
		cfg.CoordinatorURL = value
	}
	if value := getenv("VIGIL_TOKEN"); value != "" {
		cfg.Token = value
	}
	if value := getenv("VIGIL_LISTEN"); value != "" {
		cfg.ListenAddr = value
	}
	if value := getenv("VIGIL_LOG_DIR"); value != "" {
		cfg.LogDir = value
	}
	if value := getenv("VIGIL_LOG_LEVEL"); value != "" {
		cfg.LogLevel = value
	}
	if value := getenv("VIGIL_STATE_DIR"); value != "" {
		cfg.StateDir = value
	}
	if value := getenv("VIGIL_QUIET_PERIOD"); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			cfg.QuietPeriod = parsed
		}
	}
}
