package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/orrn/printqueue/internal/api"
	"github.com/orrn/printqueue/internal/config"
	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/logging"
	"github.com/orrn/printqueue/internal/shutdown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()

	if err := db.Init(db.Config{Path: cfg.Database.Path}); err != nil {
		logger.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	srv, err := api.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	srv.Start()

	shutdown.Graceful(ctx, []os.Signal{syscall.SIGINT, syscall.SIGTERM}, srv, cfg.Server.ShutdownTimeout, logger)
}
