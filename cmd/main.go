package main

import (
	"context"
	"fmt"
	"os"

	"linkrental/internal/app"
	"linkrental/internal/config"
	"linkrental/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "linkrental",
		Short:         "Temporary business landing page rentals",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := serveCmd()
	rootCmd.AddCommand(serve, migrateCmd(), sweepCmd())
	rootCmd.RunE = serve.RunE
	rootCmd.Flags().AddFlagSet(serve.Flags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// environment is what every command needs before doing its own work.
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func bootstrap(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	if cfg.EnvFileLoaded {
		logger.Debug("Loaded settings from .env")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &environment{cfg: cfg, logger: logger, pool: pool}, nil
}

func (env *environment) close() {
	database.ClosePool(env.pool, env.logger)
	_ = env.logger.Sync()
}
