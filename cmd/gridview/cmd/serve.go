package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solatis/gridview/internal/core/api"
	"github.com/solatis/gridview/internal/core/auth"
	"github.com/solatis/gridview/internal/core/db"
	"github.com/solatis/gridview/internal/core/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start gRPC view service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dbURL, err := requireDatabaseURL(cfg)
	if err != nil {
		return err
	}

	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.RequireMigrated(ctx, database); err != nil {
		return err
	}

	store, err := db.NewStore(database)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	secrets, err := configuredSecrets()
	if err != nil {
		return err
	}

	r, err := cfg.View.NewResolver()
	if err != nil {
		return err
	}

	logger := slog.Default()
	authenticator := auth.NewAuthenticator(secrets, store.Queries(), logger)

	service, err := api.NewViewService(store, r, &cfg.Server, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting gridview view service",
		"version", Version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"secrets", len(secrets))

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("shutting down gracefully", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return grpcServer.Shutdown(shutdownCtx)
	}
}
