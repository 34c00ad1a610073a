package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/config"
	"github.com/talgya/lineage/internal/registry"
)

// immortal returns a config in which nobody dies.
func immortal() config.Simulation {
	cfg := config.Default()
	cfg.MortalityOnsetAge = 999
	cfg.MortalityCertaintyAge = 999
	return cfg
}

func newPlayer(t *testing.T, age int) *agents.Person {
	t.Helper()
	p, err := agents.New("Erik Voss", age, agents.SexMale, false, "Farmer")
	require.NoError(t, err)
	return p
}

func newSim(t *testing.T, cfg config.Simulation, playerAge int, seed int64) *Simulation {
	t.Helper()
	sim, err := New(cfg, newPlayer(t, playerAge), Options{Seed: seed})
	require.NoError(t, err)
	return sim
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MinMarriageAge = 40

	_, err := New(cfg, newPlayer(t, 18), Options{})
	require.Error(t, err)
	assert.True(t, config.IsConfigError(err))
}

func TestNew_RejectsInvalidPlayer(t *testing.T) {
	_, err := New(config.Default(), nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	dead := newPlayer(t, 30)
	dead.Alive = false
	_, err = New(config.Default(), dead, Options{})
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	_, err = NewPlayer("", config.Default())
	assert.ErrorIs(t, err, ErrInvalidPlayer)
}

func TestNewPlayer_UsesConfiguredDefaults(t *testing.T) {
	p, err := NewPlayer("Erik Voss", config.Default())
	require.NoError(t, err)
	assert.Equal(t, 18, p.Age)
	assert.Equal(t, agents.SexMale, p.Sex)
	assert.Equal(t, "Farmer", p.Occupation)
	assert.False(t, p.Outsider)
}

func TestAdvanceYear_ScenarioA_LonePlayerMarriesOutsider(t *testing.T) {
	cfg := immortal()
	cfg.MaxYears = 1
	cfg.MarriageProbability = 1
	sim := newSim(t, cfg, 20, 1)

	res, err := sim.AdvanceYear()
	require.NoError(t, err)

	player, ok := sim.CurrentPlayer()
	require.True(t, ok)
	assert.Equal(t, 21, player.Age)
	require.True(t, player.Married())

	spouse, ok := sim.Record(player.SpouseID)
	require.True(t, ok)
	assert.True(t, spouse.Outsider)
	assert.Equal(t, agents.SexFemale, spouse.Sex)

	assert.Equal(t, 1, res.Year)
	assert.Equal(t, 1, res.Count(EventMarriage))
	assert.Equal(t, 1, res.Count(EventOutsiderArrival))
	types := eventTypes(res.Events)
	assert.Less(t, indexOf(types, EventOutsiderArrival), indexOf(types, EventMarriage),
		"the outsider arrives before the wedding")

	// The horizon is inclusive: MaxYears=1 ends after the first year.
	assert.False(t, res.Continue)
	assert.Equal(t, StatusEndedHorizon, res.Status)
	assert.Equal(t, EventSimulationEnd, types[len(types)-1])
	assert.Equal(t, StateEnded, sim.State())
}

func TestAdvanceYear_ScenarioA_ContinuesBeforeHorizon(t *testing.T) {
	cfg := immortal()
	cfg.MaxYears = 2
	cfg.MarriageProbability = 1
	sim := newSim(t, cfg, 20, 1)

	res, err := sim.AdvanceYear()
	require.NoError(t, err)
	assert.True(t, res.Continue)
	assert.Equal(t, StatusContinuing, res.Status)
	assert.Zero(t, res.Count(EventSimulationEnd))
}

func TestAdvanceYear_ScenarioB_PlayerDiesWithoutHeir(t *testing.T) {
	sim := newSim(t, config.Default(), 71, 1)

	res, err := sim.AdvanceYear()
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventDeath, EventSimulationEnd}, eventTypes(res.Events))
	assert.Contains(t, res.Events[0].Description, "(was player)")
	assert.False(t, res.Continue)
	assert.Equal(t, StatusEndedNoHeir, res.Status)
	assert.Equal(t, ReasonNoHeir, res.Reason)

	_, ok := sim.CurrentPlayer()
	assert.False(t, ok)
	assert.Equal(t, agents.None, sim.PlayerID())
}

func TestAdvanceYear_AfterEndChangesNothing(t *testing.T) {
	sim := newSim(t, config.Default(), 71, 1)
	_, err := sim.AdvanceYear()
	require.NoError(t, err)
	before := sim.Snapshot()

	res, err := sim.AdvanceYear()
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyEnded, res.Status)
	assert.False(t, res.Continue)
	assert.Empty(t, res.Events)
	assert.Equal(t, before, sim.Snapshot())
}

func TestAdvanceYear_ScenarioC_BirthsStopAtCap(t *testing.T) {
	cfg := immortal()
	cfg.MaxYears = 6
	cfg.MarriageProbability = 0
	sim := newSim(t, cfg, 18, 5)
	require.NoError(t, sim.SeedFoundingCouples(1))

	var births []int
	for sim.State() == StateRunning {
		res, err := sim.AdvanceYear()
		require.NoError(t, err)
		for i := 0; i < res.Count(EventBirth); i++ {
			births = append(births, res.Year)
		}
	}

	assert.Equal(t, []int{1, 2}, births, "one child a year until the cap of two")
	for _, rec := range sim.Records() {
		assert.LessOrEqual(t, len(rec.Children), cfg.MaxChildrenPerFamily)
	}
}

func TestAdvanceYear_PlayerLineageCap(t *testing.T) {
	cfg := immortal()
	cfg.MaxYears = 6
	cfg.MarriageProbability = 1
	sim := newSim(t, cfg, 20, 9)

	for sim.State() == StateRunning {
		_, err := sim.AdvanceYear()
		require.NoError(t, err)
	}

	player, ok := sim.Record(sim.PlayerID())
	require.True(t, ok)
	require.True(t, player.Married())
	assert.Len(t, player.Children, cfg.PlayerLineageChildLimit)
}

func TestAdvanceYear_LongestPlayerNameStillHasChildren(t *testing.T) {
	cfg := immortal()
	cfg.MarriageProbability = 1
	cfg.BaseBirthProbability = 1
	cfg.MaxYears = 10

	name := "Al " + strings.Repeat("B", agents.MaxNameLength-3)
	player, err := agents.New(name, 20, agents.SexMale, false, "Farmer")
	require.NoError(t, err)
	sim, err := New(cfg, player, Options{Seed: 4})
	require.NoError(t, err)

	runToEnd(t, sim)

	rec, ok := sim.Record(player.ID)
	require.True(t, ok)
	require.True(t, rec.Married())
	require.NotEmpty(t, rec.Children)
	assert.Positive(t, sim.Stats.Births)
	for _, id := range rec.Children {
		child, _ := sim.Record(id)
		assert.LessOrEqual(t, utf8.RuneCountInString(child.Name), agents.MaxNameLength)
		assert.Contains(t, child.Name, " BBB", "keeps as much of the family name as fits")
	}
}

func TestSeedFoundingCouples(t *testing.T) {
	sim := newSim(t, config.Default(), 18, 3)
	require.NoError(t, sim.SeedFoundingCouples(3))

	assert.Equal(t, 7, sim.Stats.Living)
	assert.Equal(t, 3, sim.FoundingCouples())
	events := sim.EventsFor(0)
	require.Len(t, events, 3)
	for _, e := range events {
		assert.Equal(t, EventMarriage, e.Type)
		require.Len(t, e.Persons, 2)
		a, _ := sim.Record(e.Persons[0])
		b, _ := sim.Record(e.Persons[1])
		assert.Equal(t, b.ID, a.SpouseID)
		assert.False(t, a.Outsider)
		assert.False(t, b.Outsider)
		assert.GreaterOrEqual(t, a.Age, 18)
		assert.LessOrEqual(t, a.Age, 29)
	}

	assert.Error(t, sim.SeedFoundingCouples(1), "only once")
	assert.Error(t, newSim(t, config.Default(), 18, 3).SeedFoundingCouples(11))
}

// familyRegistry builds an old player (id 1) married to a wife (id 2)
// with children of the given ages in birth order (ids 3, 4, ...).
func familyRegistry(t *testing.T, cfg config.Simulation, playerAge, wifeAge int, children ...int) *registry.Registry {
	t.Helper()
	r := registry.New(cfg.MaxChildrenPerFamily)
	player := newPlayer(t, playerAge)
	_, err := r.Add(player)
	require.NoError(t, err)
	wife, err := agents.New("Astrid Voss", wifeAge, agents.SexFemale, true, "Homemaker")
	require.NoError(t, err)
	_, err = r.Add(wife)
	require.NoError(t, err)
	require.NoError(t, r.Marry(player.ID, wife.ID))

	for i, age := range children {
		c, err := agents.New("Child Voss", age, agents.Sex(i%2), false, "")
		require.NoError(t, err)
		c.FatherID, c.MotherID = player.ID, wife.ID
		require.NoError(t, r.AddChild(player.ID, c))
	}
	return r
}

func restoreSim(t *testing.T, cfg config.Simulation, r *registry.Registry, player agents.PersonID, seed int64) *Simulation {
	t.Helper()
	sim, err := Restore(Snapshot{
		Config:   cfg,
		Seed:     seed,
		Year:     10,
		PlayerID: player,
		State:    StateRunning,
		People:   r.Records(),
	}, Options{})
	require.NoError(t, err)
	return sim
}

func TestSuccession_SingleChildIsPromoted(t *testing.T) {
	cfg := config.Default()

	for seed := int64(1); seed <= 20; seed++ {
		sim := restoreSim(t, cfg, familyRegistry(t, cfg, 69, 40, 5), 1, seed)
		heir := agents.PersonID(3)

		res, err := sim.AdvanceYear()
		require.NoError(t, err)

		assert.Equal(t, 1, res.Count(EventPlayerChange), "seed %d", seed)
		assert.Equal(t, heir, sim.PlayerID())
		assert.True(t, res.Continue)
		assert.Equal(t, 11, res.Year)

		deathIdx := indexOf(eventTypes(res.Events), EventDeath)
		changeIdx := indexOf(eventTypes(res.Events), EventPlayerChange)
		assert.Less(t, deathIdx, changeIdx)
	}
}

func TestSuccession_FirstLivingChildInBirthOrder(t *testing.T) {
	cfg := config.Default()
	cfg.MaxChildrenPerFamily = 3
	cfg.PlayerLineageChildLimit = 3
	r := familyRegistry(t, cfg, 69, 40, 12, 10, 8)
	_, err := r.Die(3) // the eldest died years ago
	require.NoError(t, err)
	sim := restoreSim(t, cfg, r, 1, 1)

	res, err := sim.AdvanceYear()
	require.NoError(t, err)

	assert.Equal(t, agents.PersonID(4), sim.PlayerID(), "second child inherits")
	assert.Equal(t, 1, res.Count(EventDeath))
	assert.Equal(t, 1, res.Count(EventPlayerChange))
}

func TestSuccession_HeirDyingSameYearPassesOn(t *testing.T) {
	cfg := config.Default()
	cfg.PlayerLineageChildLimit = 2
	// Player (id 1) dies first; the only child (id 3) is old and dies later
	// in the same mortality pass with no heir of their own.
	sim := restoreSim(t, cfg, familyRegistry(t, cfg, 69, 40, 69), 1, 1)

	res, err := sim.AdvanceYear()
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventDeath, EventPlayerChange, EventDeath, EventSimulationEnd}, eventTypes(res.Events))
	assert.Equal(t, StatusEndedNoHeir, res.Status)
}

func TestMarriage_WidowedSitOutTheYear(t *testing.T) {
	cfg := config.Default()
	cfg.MarriageProbability = 1
	cfg.MaxYears = 50
	// The player dies leaving a widow aged 20 and a child who inherits.
	r := registry.New(cfg.MaxChildrenPerFamily)
	player := newPlayer(t, 69)
	_, err := r.Add(player)
	require.NoError(t, err)
	wife, err := agents.New("Astrid Voss", 19, agents.SexFemale, false, "")
	require.NoError(t, err)
	_, err = r.Add(wife)
	require.NoError(t, err)
	require.NoError(t, r.Marry(player.ID, wife.ID))
	suitor := newPlayer(t, 20)
	suitor.Name = "Bram Ward"
	_, err = r.Add(suitor)
	require.NoError(t, err)

	sim, err := Restore(Snapshot{Config: cfg, Seed: 1, Year: 3, PlayerID: suitor.ID, State: StateRunning, People: r.Records()}, Options{})
	require.NoError(t, err)

	_, err = sim.AdvanceYear()
	require.NoError(t, err)

	w, _ := sim.Record(wife.ID)
	s, _ := sim.Record(suitor.ID)
	assert.False(t, w.Married(), "widowed this year")
	require.True(t, s.Married())
	assert.NotEqual(t, wife.ID, s.SpouseID)
}

func TestMarriage_NoRemarriageWithChildren(t *testing.T) {
	cfg := config.Default()
	cfg.MarriageProbability = 1
	// A young widow with a child stays single for good.
	sim := restoreSim(t, cfg, familyRegistry(t, cfg, 69, 20, 3), 1, 1)
	widow := agents.PersonID(2)

	for i := 0; i < 5 && sim.State() == StateRunning; i++ {
		_, err := sim.AdvanceYear()
		require.NoError(t, err)
		w, _ := sim.Record(widow)
		assert.False(t, w.Married())
	}
}

func TestEventsFor_IsACopy(t *testing.T) {
	cfg := immortal()
	cfg.MarriageProbability = 1
	sim := newSim(t, cfg, 20, 1)
	_, err := sim.AdvanceYear()
	require.NoError(t, err)

	events := sim.EventsFor(1)
	require.NotEmpty(t, events)
	events[0].Description = "changed"
	assert.NotEqual(t, "changed", sim.EventsFor(1)[0].Description)
	assert.Empty(t, sim.EventsFor(99))
}

func TestRunner_RunsToHorizon(t *testing.T) {
	cfg := immortal()
	cfg.MaxYears = 12
	sim := newSim(t, cfg, 18, 4)

	var years []int
	runner := NewRunner(sim)
	runner.OnYear = func(res Result) error {
		years = append(years, res.Year)
		return nil
	}

	last, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEndedHorizon, last.Status)
	assert.Len(t, years, 12)
	assert.Equal(t, 12, sim.CurrentYear())
}

func TestRunner_ElapsedExcludesInterval(t *testing.T) {
	cfg := immortal()
	cfg.MaxYears = 3
	sim := newSim(t, cfg, 18, 4)

	runner := NewRunner(sim)
	runner.Interval = 250 * time.Millisecond
	var elapsed []time.Duration
	runner.OnYear = func(res Result) error {
		elapsed = append(elapsed, res.Elapsed)
		return nil
	}

	started := time.Now()
	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), 2*runner.Interval, "pauses between years happened")

	require.Len(t, elapsed, 3)
	for i, d := range elapsed {
		assert.Positive(t, d, "year %d", i+1)
		assert.Less(t, d, runner.Interval, "year %d", i+1)
	}
}

func TestRunner_StopsOnCancelAndCallbackError(t *testing.T) {
	sim := newSim(t, immortal(), 18, 4)
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(sim)
	runner.OnYear = func(res Result) error {
		if res.Year == 3 {
			cancel()
		}
		return nil
	}

	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, sim.CurrentYear(), "the current year completes before stopping")

	boom := errors.New("boom")
	runner.OnYear = func(Result) error { return boom }
	_, err = runner.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, sim.CurrentYear())
}

func indexOf(types []EventType, t EventType) int {
	for i, x := range types {
		if x == t {
			return i
		}
	}
	return -1
}
