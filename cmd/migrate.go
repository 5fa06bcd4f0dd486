package main

import (
	"fmt"

	"linkrental/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			ctx := cmd.Context()
			env, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			migrator, err := database.NewMigrator(env.pool, env.logger)
			if err != nil {
				return err
			}
			defer migrator.Close()

			switch action {
			case "up":
				return migrator.Up(ctx)
			case "down":
				return migrator.Down(ctx)
			default:
				v, err := migrator.Version(ctx)
				if err != nil {
					return err
				}
				env.logger.Info("Schema version", zap.Int64("version", v))
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}
		},
	}
}
