package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <match-url>...",
		Short: "Reconcile the given matches once",
		Long: `Run one reconciliation per match URL: fetch the log, compare it with the
saved snapshot, store the new snapshot and notify new events.

Examples:
  matchwatch check https://www.primeleague.gg/leagues/prm/2-1/matches/1234-alpha-vs-beta`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			engine, closeAll, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			failed := 0
			for _, u := range args {
				res, err := engine.Check(ctx, u)
				printResult(cmd.OutOrStdout(), res, err)
				if err != nil {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d matches failed", failed, len(args))
			}
			return nil
		},
	}
}
