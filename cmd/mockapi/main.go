package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalogshell/client/internal/logging"
	"catalogshell/client/internal/mockapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "mockapi.yaml", "path to mock api config file")
	logLevel := flag.String("log-level", "info", "debug|info|error")
	flag.Parse()

	logger := logging.NewWriter(os.Stderr, logging.ParseLevel(*logLevel))
	cfg, err := mockapi.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Infof("mock api starting (config: %s, driver: %s)", *configPath, cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := mockapi.Bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Infof("mock api stopped")
	return nil
}
