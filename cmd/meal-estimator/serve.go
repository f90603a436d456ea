// cmd/meal-estimator/serve.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"meal-estimator/internal/config"
	"meal-estimator/internal/logging"
	"meal-estimator/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and MCP server",
	RunE:  runServe,
}

// flag name -> config key
var serveFlagKeys = map[string]string{
	"host":         "host",
	"address":      "address",
	"port":         "port",
	"db-path":      "db-path",
	"usda-api-key": "usda.api-key",
	"policy":       "portion.policy",
	"log-level":    "log.level",
	"log-file":     "log.file",
}

func addServeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("host", "0.0.0.0", "Host address")
	flags.String("address", "", "Address (alias for host)")
	flags.Int("port", 8011, "Port for HTTP transport")
	flags.String("db-path", "/data/meal-estimator.db", "Database path")
	flags.String("usda-api-key", "", "USDA FoodData Central API key (static nutrient table when empty)")
	flags.String("policy", "default", "Portion policy: default|strict")
	flags.String("log-level", "info", "Log level: debug|info|warn|error")
	flags.String("log-file", "", "Also write JSON logs to this rotated file")
}

func bindServeFlags(cmd *cobra.Command) error {
	for name, key := range serveFlagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := bindServeFlags(cmd); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		Production: cfg.Log.Production,
	})
	defer func() { _ = logger.Sync() }()

	// Create server
	srv, err := server.NewEstimatorServer(cfg, logger)
	if err != nil {
		logger.Errorw("failed to create server", "error", err)
		return err
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Infow("received shutdown signal", "signal", sig.String())
	case serveErr = <-errCh:
		logger.Errorw("server error", "error", serveErr)
	}

	// Graceful shutdown
	logger.Info("shutting down")
	cancel()
	if err := srv.Stop(); err != nil {
		logger.Errorw("error during shutdown", "error", err)
	}
	return serveErr
}
