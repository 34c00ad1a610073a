package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/talgya/lineage/internal/engine"
	"github.com/talgya/lineage/internal/report"
)

func historyCmd(a *app) *cobra.Command {
	var (
		year int
		last int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the events of a saved simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			db, err := openStore(a)
			if err != nil {
				return err
			}
			defer db.Close()

			runID, err := db.RunID()
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			cfg, err := db.ConfigOf()
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}

			var events []engine.Event
			switch {
			case year >= 0:
				events, err = db.Events(year)
			case last > 0:
				events, err = db.RecentEvents(last)
				slices.Reverse(events)
			default:
				events, err = db.AllEvents()
			}
			if err != nil {
				return fmt.Errorf("history: fetching events: %w", err)
			}

			fmt.Fprintf(out, "%s (run %s)\n", cfg.VillageName, runID)
			if len(events) == 0 {
				fmt.Fprintln(out, "No events.")
				return nil
			}
			for _, e := range events {
				fmt.Fprintln(out, report.FormatEvent(e))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("db", "lineage.db", "snapshot database to read")
	f.IntVar(&year, "year", -1, "only show this year (0 holds the founding marriages)")
	f.IntVar(&last, "last", 0, "only show the most recent N events")
	return cmd
}
