// Population dynamics: aging, mortality with player succession, births.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/demographics"
)

// agePeople increments the age of every living person by one year.
func (s *Simulation) agePeople(year int) {
	living := s.reg.Living()
	for _, p := range living {
		if p.Age < agents.MaxAge {
			p.Age++
		}
	}
	slog.Debug("people aged", "year", year, "count", len(living))
}

// processMortality evaluates death for everyone alive when the phase
// starts. It returns the people widowed this year, who sit out the
// marriage phase.
func (s *Simulation) processMortality(year int) (map[agents.PersonID]struct{}, error) {
	widowed := make(map[agents.PersonID]struct{})

	for _, p := range s.reg.Living() {
		if !p.Alive || !s.policy.ShouldDie(p) {
			continue
		}

		wasPlayer := p.ID == s.player
		spouse, err := s.reg.Die(p.ID)
		if err != nil {
			return nil, err
		}
		if spouse != agents.None {
			widowed[spouse] = struct{}{}
		}
		s.emit(deathEvent(year, p, wasPlayer))
		s.Stats.Deaths++

		if wasPlayer {
			s.succeed(year, p)
		}
	}
	return widowed, nil
}

// succeed passes the player role to the deceased player's first living
// child in birth order, or ends the run when there is none.
func (s *Simulation) succeed(year int, deceased *agents.Person) {
	for _, id := range s.reg.Children(deceased.ID) {
		heir := s.reg.Get(id)
		if heir == nil || !heir.Alive {
			continue
		}
		s.player = heir.ID
		s.emit(playerChangeEvent(year, heir, deceased))
		s.Stats.Successors++
		slog.Info("player succeeded", "year", year, "from", deceased.Name, "to", heir.Name)
		return
	}

	s.player = agents.None
	s.emit(endEvent(year, ReasonNoHeir, deceased.ID))
	s.end(ReasonNoHeir)
	slog.Info("player line extinct", "year", year, "last", deceased.Name)
}

// processBirths lets every living married man and his wife have a child
// when both are below their cap and the birth draw succeeds. The caps were
// checked by the policy, so a registry refusal is a broken invariant.
func (s *Simulation) processBirths(year int) error {
	lineage := s.kin.Lineage(s.player)
	for _, father := range s.reg.Living() {
		if father.Sex != agents.SexMale {
			continue
		}
		motherID, married := s.reg.Spouse(father.ID)
		if !married {
			continue
		}
		mother := s.reg.Get(motherID)
		if mother == nil || !mother.Alive {
			continue
		}

		limit := s.childLimit(lineage, father.ID, mother.ID)
		dad := demographics.Parent{Person: father, SpouseID: motherID, Children: s.reg.ChildCount(father.ID)}
		mum := demographics.Parent{Person: mother, SpouseID: father.ID, Children: s.reg.ChildCount(mother.ID)}
		if !s.policy.ChildIsBorn(dad, mum, limit) {
			continue
		}

		child := s.spawner.Child(s.policy.ChildSex(), mother, father)
		if err := s.reg.AddChild(father.ID, child); err != nil {
			return fmt.Errorf("child for %s and %s: %w", father.Name, mother.Name, err)
		}
		s.emit(birthEvent(year, child, father, mother))
		s.Stats.Births++
	}
	return nil
}

// childLimit returns the cap for a couple: the player lineage cap when
// either parent is in the current player's direct line, the family cap
// otherwise.
func (s *Simulation) childLimit(lineage map[agents.PersonID]struct{}, father, mother agents.PersonID) int {
	_, fatherIn := lineage[father]
	_, motherIn := lineage[mother]
	if fatherIn || motherIn {
		return s.cfg.PlayerLineageChildLimit
	}
	return s.cfg.MaxChildrenPerFamily
}
