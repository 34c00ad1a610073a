package persistence

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/config"
	"github.com/talgya/lineage/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "lineage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func simulated(t *testing.T, years int) *engine.Simulation {
	t.Helper()
	cfg := config.Default()
	cfg.MaxYears = 60
	player, err := engine.NewPlayer("Erik Voss", cfg)
	require.NoError(t, err)
	sim, err := engine.New(cfg, player, engine.Options{Seed: 11})
	require.NoError(t, err)
	require.NoError(t, sim.SeedFoundingCouples(3))
	for i := 0; i < years && sim.State() == engine.StateRunning; i++ {
		_, err := sim.AdvanceYear()
		require.NoError(t, err)
	}
	return sim
}

func TestNewRunID(t *testing.T) {
	a, err := NewRunID()
	require.NoError(t, err)
	b, err := NewRunID()
	require.NoError(t, err)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
}

func TestLoadSnapshot_EmptyDatabase(t *testing.T) {
	db := openTestDB(t)
	_, err := db.LoadSnapshot()
	assert.ErrorIs(t, err, ErrNoRun)

	_, err = db.RunID()
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	sim := simulated(t, 25)
	snap := sim.Snapshot()

	require.NoError(t, db.SaveSnapshot("run-1", snap))
	loaded, err := db.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)

	runID, err := db.RunID()
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	restored, err := engine.Restore(loaded, engine.Options{})
	require.NoError(t, err)
	for _, rec := range sim.Records() {
		assert.Equal(t, sim.Kinship().Ancestors(rec.ID), restored.Kinship().Ancestors(rec.ID))
		assert.Equal(t, sim.Kinship().Parents(rec.ID), restored.Kinship().Parents(rec.ID))
	}
	living := sim.Population()
	for i := range living {
		for j := i + 1; j < len(living); j++ {
			a, b := living[i].ID, living[j].ID
			assert.Equal(t, sim.Kinship().AreCloseRelatives(a, b), restored.Kinship().AreCloseRelatives(a, b))
		}
	}
}

func TestSaveSnapshot_ReplacesPreviousSave(t *testing.T) {
	db := openTestDB(t)
	sim := simulated(t, 5)
	require.NoError(t, db.SaveRun("run-1", sim))

	for i := 0; i < 5; i++ {
		_, err := sim.AdvanceYear()
		require.NoError(t, err)
	}
	require.NoError(t, db.SaveRun("run-1", sim))

	loaded, err := db.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.Year)
	assert.Len(t, loaded.People, len(sim.Records()))

	all, err := db.AllEvents()
	require.NoError(t, err)
	assert.Len(t, all, len(sim.Snapshot().Events), "events are not duplicated")
}

func TestEvents_ByYear(t *testing.T) {
	db := openTestDB(t)
	sim := simulated(t, 10)
	require.NoError(t, db.SaveRun("run-1", sim))

	for _, y := range sim.Years() {
		got, err := db.Events(y)
		require.NoError(t, err)
		assert.Equal(t, sim.EventsFor(y), got, "year %d", y)
	}

	none, err := db.Events(999)
	require.NoError(t, err)
	assert.Empty(t, none)

	recent, err := db.RecentEvents(2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(recent), 2)
}

func TestLoadRun(t *testing.T) {
	db := openTestDB(t)
	sim := simulated(t, 8)
	require.NoError(t, db.SaveRun("run-7", sim))

	restored, runID, err := db.LoadRun(engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, "run-7", runID)
	assert.Equal(t, sim.CurrentYear(), restored.CurrentYear())
	assert.Equal(t, sim.PlayerID(), restored.PlayerID())
	assert.NotEqual(t, agents.None, restored.PlayerID())

	cfg, err := db.ConfigOf()
	require.NoError(t, err)
	assert.Equal(t, sim.Config(), cfg)
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveMeta("note", "hello"))
	v, err := db.GetMeta("note")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}
