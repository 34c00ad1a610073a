package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/config"
	"github.com/talgya/lineage/internal/registry"
)

// Snapshot is the complete resumable state of a run.
type Snapshot struct {
	Config    config.Simulation
	Seed      int64
	Year      int
	PlayerID  agents.PersonID
	State     State
	EndReason string
	Founders  int
	People    []registry.Record
	Events    []Event
}

// Snapshot captures the run. The result shares nothing with the live
// simulation.
func (s *Simulation) Snapshot() Snapshot {
	var events []Event
	for _, y := range s.Years() {
		events = append(events, s.EventsFor(y)...)
	}
	return Snapshot{
		Config:    s.cfg,
		Seed:      s.seed,
		Year:      s.year,
		PlayerID:  s.player,
		State:     s.state,
		EndReason: s.endReason,
		Founders:  s.founders,
		People:    s.reg.Records(),
		Events:    events,
	}
}

// Restore rebuilds a simulation from a snapshot. Without an explicit Rand
// or Seed in opts, the random source is seeded from the snapshot's seed
// and year so a resumed run is reproducible.
func Restore(snap Snapshot, opts Options) (*Simulation, error) {
	if err := snap.Config.Validate(); err != nil {
		return nil, err
	}
	reg, err := registry.Restore(snap.People, snap.Config.MaxChildrenPerFamily)
	if err != nil {
		return nil, fmt.Errorf("restore registry: %w", err)
	}

	switch snap.State {
	case StateRunning:
		p := reg.Get(snap.PlayerID)
		if p == nil || !p.Alive {
			return nil, fmt.Errorf("%w: running snapshot has no living player %d", ErrInvalidPlayer, snap.PlayerID)
		}
	case StateEnded:
		if snap.PlayerID != agents.None && reg.Get(snap.PlayerID) == nil {
			return nil, fmt.Errorf("%w: unknown player %d", ErrInvalidPlayer, snap.PlayerID)
		}
	default:
		return nil, fmt.Errorf("restore: unknown state %q", snap.State)
	}

	if opts.Rand == nil && opts.Seed == 0 {
		opts.Seed = snap.Seed + int64(snap.Year)
	}
	s := newSimulation(snap.Config, reg, opts)
	s.seed = snap.Seed
	s.year = snap.Year
	s.player = snap.PlayerID
	s.state = snap.State
	s.endReason = snap.EndReason
	s.founders = snap.Founders

	for _, e := range snap.Events {
		s.history[e.Year] = append(s.history[e.Year], e)
		switch e.Type {
		case EventBirth:
			s.Stats.Births++
		case EventDeath:
			s.Stats.Deaths++
		case EventMarriage:
			s.Stats.Marriages++
		case EventOutsiderArrival:
			s.Stats.Outsiders++
		case EventPlayerChange:
			s.Stats.Successors++
		}
	}
	s.updateStats()

	slog.Debug("simulation restored", "year", s.year, "state", s.state, "people", reg.Len())
	return s, nil
}
