package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/engine"
	"github.com/talgya/lineage/internal/registry"
)

// Document is the YAML export of a run.
type Document struct {
	RunID     string          `yaml:"run_id,omitempty"`
	Village   string          `yaml:"village"`
	Year      int             `yaml:"year"`
	State     engine.State    `yaml:"state"`
	EndReason string          `yaml:"end_reason,omitempty"`
	Seed      int64           `yaml:"seed"`
	Player    agents.PersonID `yaml:"player,omitempty"`
	Stats     engine.Stats    `yaml:"stats"`
	Living    Population      `yaml:"living"`
	People    []PersonEntry   `yaml:"people"`
}

// PersonEntry is one person as exported.
type PersonEntry struct {
	ID         agents.PersonID   `yaml:"id"`
	Name       string            `yaml:"name"`
	Age        int               `yaml:"age"`
	Sex        string            `yaml:"sex"`
	Origin     string            `yaml:"origin"`
	Occupation string            `yaml:"occupation"`
	Alive      bool              `yaml:"alive"`
	Mother     agents.PersonID   `yaml:"mother,omitempty"`
	Father     agents.PersonID   `yaml:"father,omitempty"`
	Spouse     agents.PersonID   `yaml:"spouse,omitempty"`
	Children   []agents.PersonID `yaml:"children,omitempty"`
}

func entry(r registry.Record) PersonEntry {
	return PersonEntry{
		ID:         r.ID,
		Name:       r.Name,
		Age:        r.Age,
		Sex:        r.Sex.String(),
		Origin:     r.Origin(),
		Occupation: r.Occupation,
		Alive:      r.Alive,
		Mother:     r.MotherID,
		Father:     r.FatherID,
		Spouse:     r.SpouseID,
		Children:   r.Children,
	}
}

// NewDocument builds the export of sim. With all set, the dead are
// included as well.
func NewDocument(sim *engine.Simulation, runID string, all bool) Document {
	records := sim.Population()
	if all {
		records = sim.Records()
	}

	doc := Document{
		RunID:     runID,
		Village:   sim.Config().VillageName,
		Year:      sim.CurrentYear(),
		State:     sim.State(),
		EndReason: sim.EndReason(),
		Seed:      sim.Seed(),
		Player:    sim.PlayerID(),
		Stats:     sim.Stats,
		Living:    Summarize(sim.Population()),
		People:    make([]PersonEntry, 0, len(records)),
	}
	for _, r := range records {
		doc.People = append(doc.People, entry(r))
	}
	return doc
}

// ExportYAML writes the run as a YAML document.
func ExportYAML(w io.Writer, sim *engine.Simulation, runID string, all bool) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(sim, runID, all)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
