package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osa911/enquiryd/internal/config"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/server"
	"github.com/osa911/enquiryd/internal/telemetry"
	"github.com/osa911/enquiryd/internal/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "enquiryd",
	Short: "Contact form intake service",
	Long: `enquiryd accepts contact form submissions over HTTP, validates them,
relays them by email and appends every accepted submission to a local log.

Example:
  enquiryd                          # Serve using the environment and .env files
  enquiryd --port 8080              # Override PORT
  enquiryd --env-file ./prod.env    # Load a specific env file`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		port, _ := cmd.Flags().GetString("port")
		return serve(envFile, port)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("enquiryd %s\n", version.Info())
	},
}

func init() {
	rootCmd.Flags().String("env-file", "", "Env file to load instead of the per-environment default")
	rootCmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(versionCmd)
}

func serve(envFile, port string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}

	logConfig := logging.DefaultConfig()
	logConfig.Level = cfg.LogLevel
	logConfig.File = cfg.LogFile
	logConfig.Requests = cfg.LogRequests
	if err := logging.InitLogger(logConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := logging.GetGlobalLogger()
	defer logger.Close()

	logger.Info("Starting enquiryd %s in %s mode", version.Version, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, version.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces: %v", err)
		}
	}()

	srv, err := server.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create server: %v", err)
		return err
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server stopped: %v", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
