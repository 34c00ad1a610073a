package report

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/config"
	"github.com/talgya/lineage/internal/engine"
	"github.com/talgya/lineage/internal/registry"
)

const (
	sectionRule    = "--------------------------------"
	subsectionRule = "........................"
)

// Writer writes the plain-text run log: a header, one block per simulated
// year and a final summary.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter creates a text report writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) line(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format+"\n", args...)
}

// Flush writes buffered output and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// Header writes the run's opening block.
func (w *Writer) Header(sim *engine.Simulation, runID string, started time.Time) error {
	cfg := sim.Config()
	w.line("Village Simulation Log: %s", cfg.VillageName)
	w.line("Run: %s", runID)
	w.line("Started: %s", started.Format("2006-01-02 15:04:05"))
	if p, ok := sim.CurrentPlayer(); ok {
		w.line("Player name: %s", p.Name)
	}
	w.line("Additional starting couples: %d (%s)", sim.FoundingCouples(), config.SettlementType(sim.FoundingCouples()))
	w.line("Mortality: %s", cfg.MortalityDescription())
	w.line("Marriage: %s", cfg.MarriageDescription())
	w.line("Seed: %d", sim.Seed())
	w.line(sectionRule)
	return w.Flush()
}

// Year writes the block for the year res describes: its events, the
// population after them, every living villager, the families and the
// marriage market.
func (w *Writer) Year(sim *engine.Simulation, res engine.Result) error {
	living := sim.Population()

	w.line("")
	w.line("========== Year %d ==========", res.Year)
	w.events(res.Events)
	w.population(Summarize(living))
	w.villagers(sim, living)
	w.families(sim.PlayerID(), Families(living))
	w.market(sim, living)
	w.line(sectionRule)
	return w.Flush()
}

func (w *Writer) events(events []engine.Event) {
	w.line("")
	w.line("Events This Year:")
	if len(events) == 0 {
		w.line("  None")
		return
	}

	byType := make(map[engine.EventType][]engine.Event)
	for _, e := range events {
		byType[e.Type] = append(byType[e.Type], e)
	}
	for _, t := range engine.EventTypes {
		group := byType[t]
		if len(group) == 0 {
			continue
		}
		w.line("  %s (%d):", eventHeading(t), len(group))
		for _, e := range group {
			w.line("    - %s", e.Description)
		}
	}
}

func eventHeading(t engine.EventType) string {
	words := strings.Split(strings.ToLower(string(t)), "_")
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func (w *Writer) population(p Population) {
	w.line("")
	w.line("Population Statistics:")
	w.line("  Total Population: %s", humanize.Comma(int64(p.Total)))
	w.line("  Natives: %d", p.Natives)
	w.line("  Outsiders: %d", p.Outsiders)
	w.line("  Males: %d, Females: %d", p.Males, p.Females)
	if p.Total > 0 {
		w.line("  Age Range: %d - %d (Average: %.1f)", p.MinAge, p.MaxAge, p.MeanAge)
	}
	w.line("  Married: %d (%.1f%%)", p.Married, p.Percent(p.Married))
}

func (w *Writer) villagers(sim *engine.Simulation, living []registry.Record) {
	w.line("")
	w.line("All Living Villagers:")

	sorted := slices.Clone(living)
	slices.SortFunc(sorted, func(a, b registry.Record) int {
		return cmp.Or(cmp.Compare(b.Age, a.Age), strings.Compare(a.Name, b.Name))
	})

	for _, r := range sorted {
		var b strings.Builder
		fmt.Fprintf(&b, "  %s (%d, %s, %s, %s)", r.Name, r.Age, r.Sex, r.Occupation, r.Origin())
		if r.ID == sim.PlayerID() {
			b.WriteString(" [PLAYER]")
		}
		if spouse, ok := sim.Record(r.SpouseID); r.Married() && ok {
			fmt.Fprintf(&b, ", Married to: %s", spouse.Name)
		} else {
			b.WriteString(", Single")
		}
		if len(r.Children) > 0 {
			fmt.Fprintf(&b, ", Children: %d", len(r.Children))
		}
		w.line("%s", b.String())

		if parents := parentLine(sim, r); parents != "" {
			w.line("    Parents: %s", parents)
		}
	}
}

func parentLine(sim *engine.Simulation, r registry.Record) string {
	var parts []string
	if m, ok := sim.Record(r.MotherID); ok {
		parts = append(parts, "Mother: "+m.Name)
	}
	if f, ok := sim.Record(r.FatherID); ok {
		parts = append(parts, "Father: "+f.Name)
	}
	if len(parts) == 0 {
		if r.Outsider {
			return ""
		}
		return "Unknown (founder)"
	}
	return strings.Join(parts, ", ")
}

func (w *Writer) families(player agents.PersonID, families []Family) {
	w.line("")
	w.line("Families (Total: %d):", len(families))
	if len(families) == 0 {
		w.line("  None")
		return
	}
	for i, f := range families {
		w.line("Family %d:", i+1)
		w.line("  %s", FormatFamily(f, player))
		w.line(subsectionRule)
	}
}

// FormatFamily renders a family on one line, marking the player.
func FormatFamily(f Family, player agents.PersonID) string {
	mark := func(r registry.Record) string {
		s := fmt.Sprintf("%s (%d, %s)", r.Name, r.Age, r.Sex)
		if r.ID == player {
			s += " [Player]"
		}
		return s
	}

	parents := make([]string, 0, len(f.Parents))
	for _, p := range f.Parents {
		parents = append(parents, mark(p))
	}
	out := strings.Join(parents, " & ")
	if len(f.Children) > 0 {
		children := make([]string, 0, len(f.Children))
		for _, c := range f.Children {
			children = append(children, mark(c))
		}
		out += ", Children: " + strings.Join(children, ", ")
	}
	return out
}

func (w *Writer) market(sim *engine.Simulation, living []registry.Record) {
	m := Analyze(living, sim.Config(), sim.Kinship())

	w.line("")
	w.line("Relationship Analysis:")
	w.line("  Outsiders who married into village: %d", len(m.MarriedOutsiders))
	for _, o := range m.MarriedOutsiders {
		if spouse, ok := sim.Record(o.SpouseID); ok {
			w.line("    - %s married to %s (%s)", o.Name, spouse.Name, strings.ToLower(spouse.Origin()))
		}
	}
	w.line("  Eligible for marriage: %d", m.Eligible)
	w.line("    - Natives: %d", m.EligibleNatives)
	w.line("    - Outsiders: %d", m.Eligible-m.EligibleNatives)
	w.line("  Eligible by sex:")
	w.line("    - Males: %d", m.EligibleMales)
	w.line("    - Females: %d", m.EligibleFemales)
	if m.Eligible > 1 {
		w.line("  Potential marriages blocked by family relations: %d", m.BlockedPairs)
	}
}

// Final writes the closing summary.
func (w *Writer) Final(sim *engine.Simulation) error {
	living := sim.Population()
	pop := Summarize(living)

	w.line("")
	w.line("========== SIMULATION ENDED ==========")
	w.line("Reason: %s", sim.EndReason())
	w.line("Total years simulated: %d", sim.CurrentYear())
	w.line("Final population: %s", humanize.Comma(int64(pop.Total)))
	w.line("People who ever lived: %s", humanize.Comma(int64(sim.Stats.EverLived)))
	if p, ok := sim.CurrentPlayer(); ok && p.Alive {
		w.line("Final player: %s (age %d, %s head of the line)", p.Name, p.Age, humanize.Ordinal(sim.Stats.Successors+1))
	}

	w.line("")
	w.line("Totals:")
	w.line("  Births: %s", humanize.Comma(int64(sim.Stats.Births)))
	w.line("  Deaths: %s", humanize.Comma(int64(sim.Stats.Deaths)))
	w.line("  Marriages: %s", humanize.Comma(int64(sim.Stats.Marriages)))
	w.line("  Outsiders: %s", humanize.Comma(int64(sim.Stats.Outsiders)))
	w.line("  Successions: %d", sim.Stats.Successors)

	if pop.Total > 0 {
		w.line("")
		w.line("Final Population Breakdown:")
		w.line("  Natives: %d (%.1f%%)", pop.Natives, pop.Percent(pop.Natives))
		w.line("  Outsiders: %d (%.1f%%)", pop.Outsiders, pop.Percent(pop.Outsiders))
	}
	return w.Flush()
}
