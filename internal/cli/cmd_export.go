package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/lineage/internal/engine"
	"github.com/talgya/lineage/internal/report"
)

func exportCmd(a *app) *cobra.Command {
	var (
		outPath string
		living  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved simulation's population as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(a)
			if err != nil {
				return err
			}
			defer db.Close()

			sim, runID, err := db.LoadRun(engine.Options{})
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if outPath == "" {
				return report.ExportYAML(cmd.OutOrStdout(), sim, runID, !living)
			}
			if err := writeYAML(outPath, sim, runID, !living); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Population exported to: %s\n", outPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("db", "lineage.db", "snapshot database to read")
	f.StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&living, "living", false, "only export living people")
	return cmd
}
