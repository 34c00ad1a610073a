package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/talgya/lineage/internal/engine"
	"github.com/talgya/lineage/internal/persistence"
)

func resumeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue a saved simulation until it ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			interval, err := cmd.Flags().GetDuration("interval")
			if err != nil {
				return err
			}

			db, err := openStore(a)
			if err != nil {
				return err
			}
			defer db.Close()

			sim, runID, err := db.LoadRun(engine.Options{})
			if err != nil {
				return fmt.Errorf("resume: %w", err)
			}
			if sim.State() == engine.StateEnded {
				fmt.Fprintf(out, "Run %s already ended in year %d: %s\n", runID, sim.CurrentYear(), sim.EndReason())
				return nil
			}

			s, err := newSession(a, runID, sim, db, out, true)
			if err != nil {
				return err
			}
			defer s.close()

			slog.Info("run resumed", "run", runID, "year", sim.CurrentYear())
			return s.drive(cmd.Context(), interval)
		},
	}

	f := cmd.Flags()
	f.String("db", "lineage.db", "snapshot database to resume")
	f.String("report", "simulation_report.txt", "report file to append to; an empty path disables it")
	f.String("format", "text", "report format: text or yaml")
	f.Bool("quiet", false, "do not print a line per year")
	f.String("metrics-file", "", "write prometheus metrics to this textfile at the end")
	f.Duration("interval", 0, "pause between years")
	return cmd
}

// openStore opens the configured snapshot database, which must exist
// already.
func openStore(a *app) (*persistence.DB, error) {
	path := a.cfg.Storage.Path
	if path == "" {
		return nil, errors.New("no database configured (use --db)")
	}
	db, err := persistence.Open(path)
	if err != nil {
		return nil, err
	}
	return db, nil
}
