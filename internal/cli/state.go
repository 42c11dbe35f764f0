package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"matchwatch/internal/matchlog"
	"matchwatch/internal/notify"
	"matchwatch/internal/storage"
)

func (a *app) stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and remove saved match snapshots",
	}

	cmd.AddCommand(a.stateListCmd())
	cmd.AddCommand(a.stateShowCmd())
	cmd.AddCommand(a.stateClearCmd())
	return cmd
}

func (a *app) stateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			keys, err := store.List(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, dimColor.Sprint("no saved snapshots"))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MATCH\tEVENTS\tURL")
			for _, key := range keys {
				st, err := store.Load(ctx, key)
				if err != nil {
					fmt.Fprintf(w, "%s\t%s\t\n", key, errorColor.Sprint("unreadable"))
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", key, len(st.Logs), st.URL)
			}
			return w.Flush()
		},
	}
}

func (a *app) stateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <match-url-or-key>",
		Short: "Print the events of a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			key := matchlog.MatchUp(args[0])
			st, err := store.Load(ctx, key)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no snapshot saved for %s", key)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", okColor.Sprint(key), st.URL)
			for _, e := range st.Logs {
				fmt.Fprintln(out, notify.FormatEvent(e, st.URL))
			}
			return nil
		},
	}
}

func (a *app) stateClearCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [match-url-or-key]...",
		Short: "Delete saved snapshots so the next pass records a fresh baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("name at least one match or pass --all")
			}

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			keys := make([]string, 0, len(args))
			for _, arg := range args {
				keys = append(keys, matchlog.MatchUp(arg))
			}
			if all {
				if keys, err = store.List(ctx); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, key := range keys {
				err := store.Delete(ctx, key)
				switch {
				case errors.Is(err, storage.ErrNotFound):
					fmt.Fprintf(out, "%s %s\n", dimColor.Sprint("absent "), key)
				case err != nil:
					return fmt.Errorf("failed to delete %s: %w", key, err)
				default:
					fmt.Fprintf(out, "%s %s\n", okColor.Sprint("removed"), key)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "delete every saved snapshot")
	return cmd
}
