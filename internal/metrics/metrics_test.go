package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/lineage/internal/config"
	"github.com/talgya/lineage/internal/engine"
)

// value reads a counter or gauge from the registry. For vectors, want
// selects the series by its "type" label.
func value(t *testing.T, m *Metrics, name, want string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			matched := want == ""
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "type" && lp.GetValue() == want {
					matched = true
				}
			}
			if !matched {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}

func TestObserveYear(t *testing.T) {
	m := New()
	res := engine.Result{
		Year:     4,
		Continue: true,
		Events: []engine.Event{
			{Type: engine.EventBirth}, {Type: engine.EventBirth}, {Type: engine.EventDeath},
		},
	}
	m.ObserveYear(res, engine.Stats{Living: 9, EverLived: 12}, time.Millisecond)

	assert.Equal(t, 2.0, value(t, m, "lineage_events_total", "BIRTH"))
	assert.Equal(t, 1.0, value(t, m, "lineage_events_total", "DEATH"))
	assert.Equal(t, 9.0, value(t, m, "lineage_population_living", ""))
	assert.Equal(t, 12.0, value(t, m, "lineage_population_ever_lived", ""))
	assert.Equal(t, 4.0, value(t, m, "lineage_year", ""))
	assert.Equal(t, 1.0, value(t, m, "lineage_running", ""))

	res.Continue = false
	m.ObserveYear(res, engine.Stats{}, time.Millisecond)
	assert.Equal(t, 0.0, value(t, m, "lineage_running", ""))
	assert.Equal(t, 4.0, value(t, m, "lineage_events_total", "BIRTH"))
}

func TestNilMetricsIsANoop(t *testing.T) {
	var m *Metrics
	m.ObserveYear(engine.Result{}, engine.Stats{}, 0)
	m.ObserveHistory(nil)
	assert.NoError(t, m.WriteTextfile("ignored"))
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveYear(engine.Result{Events: []engine.Event{{Type: engine.EventBirth}}}, engine.Stats{}, 0)
	assert.Equal(t, 0.0, value(t, b, "lineage_events_total", "BIRTH"))
}

func TestObserveHistoryAndTextfile(t *testing.T) {
	cfg := config.Default()
	cfg.MaxYears = 3
	player, err := engine.NewPlayer("Erik Voss", cfg)
	require.NoError(t, err)
	sim, err := engine.New(cfg, player, engine.Options{Seed: 1})
	require.NoError(t, err)
	require.NoError(t, sim.SeedFoundingCouples(2))

	m := New()
	m.ObserveHistory(sim)
	assert.Equal(t, 2.0, value(t, m, "lineage_events_total", "MARRIAGE"))
	assert.Equal(t, 5.0, value(t, m, "lineage_population_living", ""))

	path := filepath.Join(t.TempDir(), "lineage.prom")
	require.NoError(t, m.WriteTextfile(path))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `lineage_events_total{type="MARRIAGE"} 2`)
	assert.Contains(t, string(body), "lineage_population_living 5")

	assert.NoError(t, m.WriteTextfile(""), "empty path disables export")
}
