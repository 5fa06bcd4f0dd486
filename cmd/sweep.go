package main

import (
	"fmt"

	"linkrental/internal/jobs"
	"linkrental/internal/repositories"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark lapsed rentals expired and report stale pending requests, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			sweepSvc := jobs.NewExpirySweepService(repositories.NewRentalRepository(env.pool), clockwork.NewRealClock(), env.logger)

			expired, err := sweepSvc.SweepExpired(ctx)
			if err != nil {
				return err
			}
			stale, err := sweepSvc.ReportStalePending(ctx, env.cfg.StalePendingAfter)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "expired: %d, stale pending: %d\n", expired, len(stale))
			return nil
		},
	}
}
