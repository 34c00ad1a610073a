// Simulation ties the registry, kinship oracle, demographics policy and
// matchmaker together and advances them one year at a time.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/config"
	"github.com/talgya/lineage/internal/demographics"
	"github.com/talgya/lineage/internal/kinship"
	"github.com/talgya/lineage/internal/matchmaker"
	"github.com/talgya/lineage/internal/registry"
)

// ErrInvalidPlayer is returned when the initial player cannot start a run.
var ErrInvalidPlayer = errors.New("invalid player")

// Options tune how a simulation draws randomness.
type Options struct {
	// Seed seeds a math/rand source when Rand is nil.
	Seed int64

	// Rand overrides the random source. Tests pass a scripted one.
	Rand agents.Rand
}

// Simulation holds the complete run state. It is single-threaded: the
// caller's goroutine owns it and every year runs to completion inside
// AdvanceYear.
type Simulation struct {
	cfg     config.Simulation
	reg     *registry.Registry
	kin     *kinship.Oracle
	policy  *demographics.Policy
	matcher *matchmaker.Matchmaker
	spawner *agents.Spawner
	rng     agents.Rand
	seed    int64

	year      int
	player    agents.PersonID
	state     State
	endReason string
	history   map[int][]Event

	// Number of founding couples seeded before year 1.
	founders int

	// Statistics updated after every year.
	Stats Stats
}

// Stats tracks aggregate population statistics.
type Stats struct {
	Living     int `json:"living" yaml:"living"`
	EverLived  int `json:"ever_lived" yaml:"ever_lived"`
	Births     int `json:"births" yaml:"births"`
	Deaths     int `json:"deaths" yaml:"deaths"`
	Marriages  int `json:"marriages" yaml:"marriages"`
	Outsiders  int `json:"outsiders" yaml:"outsiders"`
	Successors int `json:"successors" yaml:"successors"`
}

// NewPlayer creates the initial player: a native man at the configured
// starting age and occupation.
func NewPlayer(name string, cfg config.Simulation) (*agents.Person, error) {
	p, err := agents.New(name, cfg.InitialPlayerAge, agents.SexMale, false, cfg.PlayerOccupation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlayer, err)
	}
	return p, nil
}

// New validates cfg, registers player and returns a simulation at year 0.
func New(cfg config.Simulation, player *agents.Person, opts Options) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if player == nil {
		return nil, fmt.Errorf("%w: player is nil", ErrInvalidPlayer)
	}
	if !player.Alive {
		return nil, fmt.Errorf("%w: player %q is not alive", ErrInvalidPlayer, player.Name)
	}

	s := newSimulation(cfg, registry.New(cfg.MaxChildrenPerFamily), opts)
	id, err := s.reg.Add(player)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlayer, err)
	}
	s.player = id
	s.updateStats()

	slog.Info("simulation created",
		"player", player.Name,
		"village", cfg.VillageName,
		"max_years", cfg.MaxYears,
		"seed", s.seed,
	)
	return s, nil
}

func newSimulation(cfg config.Simulation, reg *registry.Registry, opts Options) *Simulation {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(opts.Seed))
	}
	kin := kinship.New(reg)
	policy := demographics.New(cfg, rng)
	spawner := agents.NewSpawner(rng)
	return &Simulation{
		cfg:     cfg,
		reg:     reg,
		kin:     kin,
		policy:  policy,
		matcher: matchmaker.New(reg, kin, policy, spawner, rng),
		spawner: spawner,
		rng:     rng,
		seed:    opts.Seed,
		state:   StateRunning,
		history: make(map[int][]Event),
	}
}

// SeedFoundingCouples adds n married native couples before the first
// year. Their marriages are recorded under year 0.
func (s *Simulation) SeedFoundingCouples(n int) error {
	if s.year != 0 || s.founders != 0 {
		return fmt.Errorf("seed founding couples: only allowed once before year 1")
	}
	if n < s.cfg.MinStartingCouples || n > s.cfg.MaxStartingCouples {
		return fmt.Errorf("seed founding couples: %d outside %d-%d",
			n, s.cfg.MinStartingCouples, s.cfg.MaxStartingCouples)
	}

	for i := 0; i < n; i++ {
		surname := s.spawner.Surname()
		husband := s.spawner.Founder(agents.SexMale, s.policy.InitialAge(), surname)
		wife := s.spawner.Founder(agents.SexFemale, s.policy.InitialAge(), surname)
		for _, p := range []*agents.Person{husband, wife} {
			if _, err := s.reg.Add(p); err != nil {
				return fmt.Errorf("seed founding couples: %w", err)
			}
		}
		if err := s.reg.Marry(husband.ID, wife.ID); err != nil {
			return fmt.Errorf("seed founding couples: %w", err)
		}
		s.emit(marriageEvent(0, husband, wife))
		s.Stats.Marriages++
	}
	s.founders = n
	s.updateStats()

	slog.Info("founding couples seeded",
		"couples", n,
		"settlement", config.SettlementType(n),
		"population", s.reg.LivingCount(),
	)
	return nil
}

// AdvanceYear runs one year: aging, mortality, marriage and birth, in that
// order, each phase seeing the previous phase's changes. Once the run has
// ended every call returns StatusAlreadyEnded and changes nothing.
//
// An error is returned only for broken invariants (the registry refusing a
// birth the policy allowed); the run should be abandoned then.
func (s *Simulation) AdvanceYear() (Result, error) {
	if s.state == StateEnded {
		return Result{
			Year:   s.year,
			Status: StatusAlreadyEnded,
			Reason: ReasonAlreadyEnded,
		}, nil
	}

	s.year++
	year := s.year

	s.agePeople(year)
	widowed, err := s.processMortality(year)
	if err != nil {
		return Result{}, fmt.Errorf("year %d mortality: %w", year, err)
	}

	// Marriage and birth stop once the line has died out.
	if s.state == StateRunning {
		if err := s.processMarriages(year, widowed); err != nil {
			return Result{}, fmt.Errorf("year %d marriages: %w", year, err)
		}
		if err := s.processBirths(year); err != nil {
			return Result{}, fmt.Errorf("year %d births: %w", year, err)
		}
	}

	pruned := s.reg.RemoveDeceased()

	status := StatusContinuing
	switch {
	case s.state == StateEnded:
		status = StatusEndedNoHeir
	case year >= s.cfg.MaxYears:
		s.emit(endEvent(year, ReasonHorizon))
		s.end(ReasonHorizon)
		status = StatusEndedHorizon
	}
	s.updateStats()

	events := s.EventsFor(year)
	slog.Info("year simulated",
		"year", year,
		"status", status,
		"alive", s.Stats.Living,
		"events", len(events),
		"pruned", pruned,
	)

	return Result{
		Year:     year,
		Continue: status == StatusContinuing,
		Status:   status,
		Reason:   s.endReason,
		Events:   events,
	}, nil
}

// emit records an event in its year's history.
func (s *Simulation) emit(e Event) {
	s.history[e.Year] = append(s.history[e.Year], e)
	slog.Debug("event", "year", e.Year, "type", e.Type, "description", e.Description)
}

func (s *Simulation) end(reason string) {
	s.state = StateEnded
	s.endReason = reason
}

// CurrentYear returns the most recently simulated year (0 before the first).
func (s *Simulation) CurrentYear() int {
	return s.year
}

// CurrentPlayer returns the current player, or false once the line is
// extinct.
func (s *Simulation) CurrentPlayer() (registry.Record, bool) {
	if s.player == agents.None {
		return registry.Record{}, false
	}
	return s.reg.Record(s.player)
}

// PlayerID returns the current player's id, or agents.None.
func (s *Simulation) PlayerID() agents.PersonID {
	return s.player
}

// State returns RUNNING or ENDED.
func (s *Simulation) State() State {
	return s.state
}

// EndReason returns why the run ended, or "".
func (s *Simulation) EndReason() string {
	return s.endReason
}

// EventsFor returns a copy of the events recorded for year.
func (s *Simulation) EventsFor(year int) []Event {
	return slices.Clone(s.history[year])
}

// Years returns every year with recorded events, ascending.
func (s *Simulation) Years() []int {
	years := make([]int, 0, len(s.history))
	for y := range s.history {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

// Population returns snapshots of the living population.
func (s *Simulation) Population() []registry.Record {
	return s.reg.LivingRecords()
}

// Records returns snapshots of everyone who ever lived in the run.
func (s *Simulation) Records() []registry.Record {
	return s.reg.Records()
}

// Record returns a snapshot of one person.
func (s *Simulation) Record(id agents.PersonID) (registry.Record, bool) {
	return s.reg.Record(id)
}

// Config returns the run's parameters.
func (s *Simulation) Config() config.Simulation {
	return s.cfg
}

// Kinship returns the oracle over the run's registry. It only reads.
func (s *Simulation) Kinship() *kinship.Oracle {
	return s.kin
}

// Seed returns the seed the run was created with.
func (s *Simulation) Seed() int64 {
	return s.seed
}

// FoundingCouples returns how many couples were seeded before year 1.
func (s *Simulation) FoundingCouples() int {
	return s.founders
}

func (s *Simulation) updateStats() {
	s.Stats.Living = s.reg.LivingCount()
	s.Stats.EverLived = s.reg.Len()
}
