package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) discoverCmd() *cobra.Command {
	var group, team string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the team's match URLs found on the group page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if group != "" {
				a.cfg.GroupURL = group
			}
			if team != "" {
				a.cfg.Team = team
			}
			if a.cfg.GroupURL == "" || a.cfg.Team == "" {
				return errors.New("discover needs --group and --team (or GROUP_URL and TEAM)")
			}

			urls, err := a.client().DiscoverMatchURLs(cmd.Context(), a.cfg.GroupURL, a.cfg.Team)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(urls) == 0 {
				fmt.Fprintln(out, dimColor.Sprint("no matches found"))
				return nil
			}
			for _, u := range urls {
				fmt.Fprintln(out, u)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "league group page URL (env GROUP_URL)")
	cmd.Flags().StringVar(&team, "team", "", "team slug (env TEAM)")
	return cmd
}
