package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Runner drives a simulation forward year by year until it ends or the
// context is cancelled. Cancellation is only observed between years; a
// year in progress always completes.
type Runner struct {
	Sim *Simulation

	// Interval is an optional pause between years, for watching a run live.
	Interval time.Duration

	// OnYear is called after every simulated year. Returning an error stops
	// the run.
	OnYear func(Result) error
}

// NewRunner creates a runner for sim with no pause between years.
func NewRunner(sim *Simulation) *Runner {
	return &Runner{Sim: sim}
}

// Run advances the simulation until it ends. It returns the last result.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	slog.Info("simulation engine started", "year", r.Sim.CurrentYear(), "max_years", r.Sim.Config().MaxYears)

	var last Result
	for {
		if err := ctx.Err(); err != nil {
			slog.Info("simulation engine stopped", "year", r.Sim.CurrentYear(), "reason", err)
			return last, err
		}

		started := time.Now()
		res, err := r.Sim.AdvanceYear()
		if err != nil {
			return last, err
		}
		res.Elapsed = time.Since(started)
		last = res

		if r.OnYear != nil {
			if err := r.OnYear(res); err != nil {
				return last, fmt.Errorf("year %d callback: %w", res.Year, err)
			}
		}
		if !res.Continue {
			slog.Info("simulation engine stopped", "year", res.Year, "status", res.Status, "reason", res.Reason)
			return last, nil
		}

		if r.Interval > 0 {
			timer := time.NewTimer(r.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}
