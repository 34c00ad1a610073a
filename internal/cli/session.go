package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/talgya/lineage/internal/engine"
	"github.com/talgya/lineage/internal/metrics"
	"github.com/talgya/lineage/internal/persistence"
	"github.com/talgya/lineage/internal/report"
)

// session wires a simulation to its sinks: the snapshot store, the text
// report, the metrics and the console.
type session struct {
	app     *app
	runID   string
	sim     *engine.Simulation
	db      *persistence.DB
	file    *os.File
	text    *report.Writer
	metrics *metrics.Metrics
	out     io.Writer
}

// newSession opens the report for sim. db may be nil when saving is
// disabled. A resumed session appends to the existing text report.
func newSession(a *app, runID string, sim *engine.Simulation, db *persistence.DB, out io.Writer, resumed bool) (*session, error) {
	s := &session{
		app:     a,
		runID:   runID,
		sim:     sim,
		db:      db,
		metrics: metrics.New(),
		out:     out,
	}
	if resumed {
		s.metrics.ObserveHistory(sim)
	}

	rc := a.cfg.Report
	if rc.Format == "text" && rc.Path != "" {
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if resumed {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(rc.Path, flags, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open report: %w", err)
		}
		s.file = f
		s.text = report.NewWriter(f)
		if !resumed {
			if err := s.text.Header(sim, runID, time.Now()); err != nil {
				f.Close()
				return nil, fmt.Errorf("write report header: %w", err)
			}
		}
		fmt.Fprintf(out, "Output will be written to: %s\n", rc.Path)
	}
	return s, nil
}

func (s *session) close() {
	if s.file != nil {
		s.file.Close()
	}
}

func (s *session) save() error {
	if s.db == nil {
		return nil
	}
	return s.db.SaveRun(s.runID, s.sim)
}

// drive runs the simulation to its end. An interrupted run is saved and
// reported as a clean stop.
func (s *session) drive(ctx context.Context, interval time.Duration) error {
	if err := s.save(); err != nil {
		return err
	}

	runner := engine.NewRunner(s.sim)
	runner.Interval = interval
	runner.OnYear = func(res engine.Result) error {
		s.metrics.ObserveYear(res, s.sim.Stats, res.Elapsed)
		if s.text != nil {
			if err := s.text.Year(s.sim, res); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
		if err := s.save(); err != nil {
			return err
		}
		if !s.app.cfg.Report.Quiet {
			fmt.Fprintln(s.out, report.Banner(res, s.sim.Stats.Living))
		}
		return nil
	}

	_, err := runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("run interrupted", "run", s.runID, "year", s.sim.CurrentYear())
		if s.db != nil {
			fmt.Fprintf(s.out, "Interrupted after year %d. Continue with: lineage resume --db %s\n",
				s.sim.CurrentYear(), s.app.cfg.Storage.Path)
		}
		return s.save()
	}
	if err != nil {
		return err
	}
	return s.finish()
}

func (s *session) finish() error {
	if s.text != nil {
		if err := s.text.Final(s.sim); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	rc := s.app.cfg.Report
	if rc.Format == "yaml" && rc.Path != "" {
		if err := writeYAML(rc.Path, s.sim, s.runID, true); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Population exported to: %s\n", rc.Path)
	}

	if err := s.metrics.WriteTextfile(s.app.cfg.Metrics.Path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	fmt.Fprintf(s.out, "Simulation ended after year %d: %s\n", s.sim.CurrentYear(), s.sim.EndReason())
	fmt.Fprintf(s.out, "Final population: %d\n", s.sim.Stats.Living)
	slog.Info("run finished", "run", s.runID, "year", s.sim.CurrentYear(), "reason", s.sim.EndReason())
	return nil
}

func writeYAML(path string, sim *engine.Simulation, runID string, all bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	defer f.Close()
	if err := report.ExportYAML(f, sim, runID, all); err != nil {
		return err
	}
	return f.Close()
}
