package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/lineage/internal/config"
	"github.com/talgya/lineage/internal/engine"
	"github.com/talgya/lineage/internal/entropy"
	"github.com/talgya/lineage/internal/persistence"
)

func runCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new simulation and run it to the end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := cmd.Flags().GetDuration("interval")
			if err != nil {
				return err
			}
			return a.run(cmd, interval)
		},
	}

	f := cmd.Flags()
	f.String("player", "", "name of the starting player (asked for when empty)")
	f.Int("couples", 0, "founding couples besides the player")
	f.Int64("seed", 0, "random seed (0 draws a fresh one)")
	f.Int("years", config.DefaultMaxYears, "number of years to simulate")
	f.String("preset", "default", "parameter preset (see: lineage presets)")
	f.String("db", "lineage.db", "snapshot database; an empty path disables saving")
	f.String("report", "simulation_report.txt", "report file; an empty path disables it")
	f.String("format", "text", "report format: text (yearly log) or yaml (final export)")
	f.Bool("quiet", false, "do not print a line per year")
	f.String("metrics-file", "", "write prometheus metrics to this textfile at the end")
	f.Duration("interval", 0, "pause between years")
	return cmd
}

func (a *app) run(cmd *cobra.Command, interval time.Duration) error {
	out := cmd.OutOrStdout()

	name := a.cfg.Run.PlayerName
	if name == "" {
		var err error
		if name, err = promptName(cmd.InOrStdin(), out); err != nil {
			return err
		}
	}

	player, err := engine.NewPlayer(name, a.cfg.Simulation)
	if err != nil {
		return err
	}
	seed := a.cfg.Run.Seed
	if seed == 0 {
		seed = entropy.NewSource(a.cfg.Run.RandomOrgKey).Seed(cmd.Context())
	}
	sim, err := engine.New(a.cfg.Simulation, player, engine.Options{Seed: seed})
	if err != nil {
		return err
	}
	if a.cfg.Run.Couples > 0 {
		if err := sim.SeedFoundingCouples(a.cfg.Run.Couples); err != nil {
			return err
		}
	}

	runID, err := persistence.NewRunID()
	if err != nil {
		return err
	}

	var db *persistence.DB
	if path := a.cfg.Storage.Path; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		if db, err = persistence.Open(path); err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database opened", "path", path)
	}

	s, err := newSession(a, runID, sim, db, out, false)
	if err != nil {
		return err
	}
	defer s.close()

	slog.Info("run started",
		"run", runID,
		"player", name,
		"couples", a.cfg.Run.Couples,
		"preset", a.cfg.Run.Preset,
		"seed", seed,
	)
	return s.drive(cmd.Context(), interval)
}

// promptName asks for the starting player's name on in.
func promptName(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter starting player name (male): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading player name: %w", err)
	}
	fmt.Fprintln(out)

	name := strings.TrimSpace(line)
	if name == "" {
		return "", errors.New("a player name is required (use --player)")
	}
	return name, nil
}
