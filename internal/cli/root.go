// Package cli implements the lineage command line: starting, resuming and
// inspecting simulation runs.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/lineage/internal/config"
)

// app carries what every command needs once the configuration is loaded.
type app struct {
	configPath string
	cfg        *config.Config
}

// NewRootCmd builds the lineage command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "lineage",
		Short: "Lineage: a village demographics and kinship simulation",
		Long: "Lineage simulates a village year by year. People age, marry, have children and die, " +
			"while the player's family line is followed from one heir to the next until it dies out.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			a.cfg = cfg
			slog.SetDefault(newLogger(cfg.Logging, cmd.ErrOrStderr()))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.lineage/lineage.yaml, then ./lineage.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")

	root.AddCommand(
		runCmd(a),
		resumeCmd(a),
		historyCmd(a),
		exportCmd(a),
		serveCmd(a),
		presetsCmd(a),
	)
	return root
}

// Execute runs the command tree until ctx is cancelled.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func newLogger(lc config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(lc.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
