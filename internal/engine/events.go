package engine

import (
	"fmt"

	"github.com/talgya/lineage/internal/agents"
)

// EventType categorizes a simulation event.
type EventType string

const (
	EventBirth           EventType = "BIRTH"
	EventDeath           EventType = "DEATH"
	EventMarriage        EventType = "MARRIAGE"
	EventPlayerChange    EventType = "PLAYER_CHANGE"
	EventOutsiderArrival EventType = "OUTSIDER_ARRIVAL"
	EventSimulationEnd   EventType = "SIMULATION_END"
)

// EventTypes lists every event type in report order.
var EventTypes = []EventType{
	EventBirth, EventDeath, EventMarriage, EventPlayerChange, EventOutsiderArrival, EventSimulationEnd,
}

// Event is a notable occurrence in a simulated year. Events are values and
// never change after they are emitted.
type Event struct {
	Year        int               `json:"year" yaml:"year"`
	Type        EventType         `json:"type" yaml:"type"`
	Description string            `json:"description" yaml:"description"`
	Persons     []agents.PersonID `json:"persons,omitempty" yaml:"persons,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("Year %d: %s", e.Year, e.Description)
}

// Involves reports whether id took part in the event.
func (e Event) Involves(id agents.PersonID) bool {
	for _, p := range e.Persons {
		if p == id {
			return true
		}
	}
	return false
}

func birthEvent(year int, child, father, mother *agents.Person) Event {
	return Event{
		Year:        year,
		Type:        EventBirth,
		Description: fmt.Sprintf("Birth: %s born to %s and %s", child.Name, father.Name, mother.Name),
		Persons:     []agents.PersonID{child.ID, father.ID, mother.ID},
	}
}

func deathEvent(year int, p *agents.Person, wasPlayer bool) Event {
	suffix := ""
	if wasPlayer {
		suffix = " (was player)"
	}
	return Event{
		Year:        year,
		Type:        EventDeath,
		Description: fmt.Sprintf("Death: %s died at age %d%s", p.Name, p.Age, suffix),
		Persons:     []agents.PersonID{p.ID},
	}
}

func marriageEvent(year int, a, b *agents.Person) Event {
	return Event{
		Year: year,
		Type: EventMarriage,
		Description: fmt.Sprintf("Marriage: %s (%s) married %s (%s)",
			a.Name, a.Origin(), b.Name, b.Origin()),
		Persons: []agents.PersonID{a.ID, b.ID},
	}
}

func outsiderEvent(year int, p *agents.Person, reason string) Event {
	return Event{
		Year:        year,
		Type:        EventOutsiderArrival,
		Description: fmt.Sprintf("Outsider Arrival: %s arrived (needed because: %s)", p.Name, reason),
		Persons:     []agents.PersonID{p.ID},
	}
}

func playerChangeEvent(year int, heir, previous *agents.Person) Event {
	return Event{
		Year:        year,
		Type:        EventPlayerChange,
		Description: fmt.Sprintf("Player Change: Control passed to %s", heir.Name),
		Persons:     []agents.PersonID{heir.ID, previous.ID},
	}
}

func endEvent(year int, reason string, persons ...agents.PersonID) Event {
	return Event{
		Year:        year,
		Type:        EventSimulationEnd,
		Description: "Simulation End: " + reason,
		Persons:     persons,
	}
}
