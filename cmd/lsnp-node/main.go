package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Solenad/mp-csnetwk-group4/internal/config"
	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/node"
)

func main() {
	cli, err := parseFlags(os.Args[1:])
	if err != nil {
		// flag package already printed usage/error
		os.Exit(2)
	}
	if cli.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	log := logger.Logger().With("component", "cli")

	cfg, err := config.Load(cli.configPath)
	if err != nil {
		log.Error("bad configuration", "error", err)
		os.Exit(2)
	}
	// Flags override file values.
	if cli.username != "" {
		cfg.Username = cli.username
		if cli.displayName == "" && cfg.DisplayName == "" {
			cfg.DisplayName = cli.username
		}
	}
	if cli.displayName != "" {
		cfg.DisplayName = cli.displayName
	}
	if cli.status != "" {
		cfg.Status = cli.status
	}
	if cli.port != 0 {
		cfg.Port = cli.port
	}
	if cli.dataDir != "" {
		cfg.DataDir = cli.dataDir
	}
	if cli.logLevel != "" {
		cfg.LogLevel = cli.logLevel
	}

	sink := node.NewChanSink(256)
	n, err := node.New(cfg, sink)
	if err != nil {
		log.Error("failed to start node", "error", err)
		os.Exit(1)
	}
	n.Start()
	log.Info("node started", "user_id", n.UserID(), "version", version)

	// Events go to stdout; an interactive shell is layered on externally.
	go func() {
		for e := range sink.C {
			fmt.Printf("[%s] %s\n", e.Time.Format("15:04:05"), e.Summary)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutdown signal received")
	n.Stop()
	log.Info("node stopped")
}
