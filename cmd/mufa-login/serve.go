package main

import (
	"context"
	"fmt"

	"github.com/Innov8rs-paradise/mufa-login/internal/apidoc"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/providers"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/Innov8rs-paradise/mufa-login/internal/directory"
	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"github.com/Innov8rs-paradise/mufa-login/internal/login"
	"github.com/Innov8rs-paradise/mufa-login/internal/metrics"
	"github.com/Innov8rs-paradise/mufa-login/internal/server"
	"github.com/Innov8rs-paradise/mufa-login/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the login HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mufa-login",
		zap.String("version", config.Version()),
		zap.String("address", cfg.Server.Addr()))

	var srv *server.Server
	app := fx.New(
		fx.WithLogger(logger.FxEventLogger),
		fx.Supply(cfg),
		session.Module,
		providers.Module,
		directory.Module,
		metrics.Module,
		login.Module,
		auth.Module,
		apidoc.Module,
		server.Module,
		fx.Populate(&srv),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	startCtx, cancel := context.WithTimeout(cmd.Context(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	var runErr error
	select {
	case sig := <-app.Wait():
		logger.Info("Received signal", zap.Stringer("signal", sig.Signal))
	case runErr = <-srv.Errors():
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Error("Failed to stop cleanly", zap.Error(err))
	}
	return runErr
}
