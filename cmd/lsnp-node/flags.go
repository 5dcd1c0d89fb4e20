package main

import (
	"flag"
	"fmt"
	"os"
)

// version is injected at build time with -ldflags "-X main.version=...". Defaults to dev.
var version = "dev"

// cliConfig holds user supplied flag values prior to merging with the TOML
// config so main.go can validate and map.
type cliConfig struct {
	configPath  string
	username    string
	displayName string
	status      string
	port        int
	dataDir     string
	logLevel    string
	showVersion bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("lsnp-node", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.configPath, "config", "", "Path to TOML config file")
	fs.StringVar(&cfg.username, "username", "", "Username part of the node's user_id")
	fs.StringVar(&cfg.displayName, "display-name", "", "Display name carried on PROFILE frames")
	fs.StringVar(&cfg.status, "status", "", "Status line carried on PROFILE frames")
	fs.IntVar(&cfg.port, "port", 0, "UDP base port (the node probes upward when taken)")
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Directory for downloads and the revoked-token file")
	fs.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.port < 0 || cfg.port > 65535 {
		return nil, fmt.Errorf("port %d out of range", cfg.port)
	}
	switch cfg.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}
	return cfg, nil
}
