package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"matchwatch/internal/watcher"
)

func (a *app) watchCmd() *cobra.Command {
	var (
		group   string
		team    string
		matches []string
		once    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Discover the team's matches and watch them until all are completed",
		Long: `Discover the team's matches on the group page, then reconcile every watched
match each CHECK_INTERVAL. The first observation of a match only records a
baseline; later passes notify new scheduling and result events. Completed
matches are dropped and the command exits once none are left.

Examples:
  matchwatch watch --group https://www.primeleague.gg/leagues/prm/2-1/group --team alpha-team
  matchwatch watch --config watch.yaml --once`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if group != "" {
				a.cfg.GroupURL = group
			}
			if team != "" {
				a.cfg.Team = team
			}
			a.cfg.MatchURLs = append(a.cfg.MatchURLs, matches...)
			if err := a.cfg.Validate(true); err != nil {
				return err
			}

			ctx := watcher.SetupSignalHandler(cmd.Context(), nil)

			urls, err := a.watchTargets(ctx)
			if err != nil {
				return err
			}

			engine, closeAll, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			fmt.Fprintf(cmd.OutOrStdout(), "watching %d matches, state %s, notify %s\n",
				len(urls), a.statePlace, strings.Join(a.sinkNames, ","))

			driver := watcher.NewDriver(engine, watcher.NewWatchlist(urls...), a.cfg.WatcherConfig())
			out := cmd.OutOrStdout()
			driver.OnPass(func(s watcher.PassSummary) {
				fmt.Fprintf(out, "pass %s: checked %d, new events %d, removed %d, failed %d, watching %d\n",
					dimColor.Sprint(s.ID[:8]), s.Checked, s.NewEvents, s.Removed, s.Failed, s.Remaining)
			})

			if once {
				driver.Pass(ctx)
				return nil
			}

			err = driver.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "league group page URL (env GROUP_URL)")
	cmd.Flags().StringVar(&team, "team", "", "team slug as it appears in match URLs (env TEAM)")
	cmd.Flags().StringSliceVar(&matches, "match", nil, "additional match URL to watch (repeatable)")
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")

	return cmd
}

// watchTargets merges discovered match URLs with explicitly configured ones
func (a *app) watchTargets(ctx context.Context) ([]string, error) {
	urls := append([]string(nil), a.cfg.MatchURLs...)

	if a.cfg.GroupURL != "" {
		found, err := a.client().DiscoverMatchURLs(ctx, a.cfg.GroupURL, a.cfg.Team)
		if err != nil {
			return nil, fmt.Errorf("failed to discover matches: %w", err)
		}
		urls = append(urls, found...)
	}

	zlog.Info().Int("matches", len(urls)).Msg("watch targets resolved")
	return urls, nil
}
