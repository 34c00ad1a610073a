// Package report renders a run for people: the yearly text log, the final
// summary, a YAML export of the population and a one-line console banner.
// It only reads from the engine.
package report

import (
	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/registry"
)

// Family is a living couple, or a lone parent, with their unmarried living
// children.
type Family struct {
	Parents  []registry.Record
	Children []registry.Record
}

// Families groups the living population into households, walking people
// in id order. Married couples form one family; unmarried people with
// children form a single-parent family; everyone else is left out.
func Families(living []registry.Record) []Family {
	byID := make(map[agents.PersonID]registry.Record, len(living))
	for _, r := range living {
		byID[r.ID] = r
	}

	var families []Family
	done := make(map[agents.PersonID]bool)
	for _, r := range living {
		if done[r.ID] {
			continue
		}

		var f Family
		switch spouse, ok := byID[r.SpouseID]; {
		case r.Married() && ok:
			f.Parents = []registry.Record{r, spouse}
			done[spouse.ID] = true
		case !r.Married() && len(r.Children) > 0:
			f.Parents = []registry.Record{r}
		default:
			continue
		}
		done[r.ID] = true

		for _, id := range r.Children {
			if c, ok := byID[id]; ok && !c.Married() {
				f.Children = append(f.Children, c)
			}
		}
		families = append(families, f)
	}
	return families
}

// Includes reports whether id is a parent or child in the family.
func (f Family) Includes(id agents.PersonID) bool {
	for _, group := range [][]registry.Record{f.Parents, f.Children} {
		for _, r := range group {
			if r.ID == id {
				return true
			}
		}
	}
	return false
}
