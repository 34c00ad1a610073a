package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/lineage/internal/config"
)

func presetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the parameter presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, p := range config.Presets() {
				s := p.Config()
				marker := ""
				if p.Name == a.cfg.Run.Preset {
					marker = " (selected)"
				}
				fmt.Fprintf(out, "%-10s %s%s\n", p.Name, p.Description, marker)
				fmt.Fprintf(out, "  Years: %d\n", s.MaxYears)
				fmt.Fprintf(out, "  Mortality: %s\n", s.MortalityDescription())
				fmt.Fprintf(out, "  Marriage: %s\n", s.MarriageDescription())
				fmt.Fprintf(out, "  Children: up to %d per family, %d in the player's line\n",
					s.MaxChildrenPerFamily, s.PlayerLineageChildLimit)
			}
			return nil
		},
	}
}
