// Family formation: the yearly marriage phase.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/demographics"
	"github.com/talgya/lineage/internal/registry"
)

// processMarriages pairs eligible single people. Seekers are chosen up
// front by the annual marriage draw; eligibility is checked again at the
// attempt because earlier matches this phase take people off the market.
// People widowed this year neither seek nor get picked.
func (s *Simulation) processMarriages(year int, widowed map[agents.PersonID]struct{}) error {
	var seekers []*agents.Person
	for _, p := range s.reg.Living() {
		if _, ok := widowed[p.ID]; ok {
			continue
		}
		if !s.eligible(p) || !s.policy.MarriageOccurs() {
			continue
		}
		seekers = append(seekers, p)
	}

	married := 0
	for _, p := range seekers {
		if !s.eligible(p) {
			continue
		}

		match, err := s.matcher.FindSpouse(p.ID, widowed)
		if err != nil {
			return fmt.Errorf("spouse for %s: %w", p.Name, err)
		}
		if !match.Found {
			slog.Debug("no spouse found", "year", year, "person", p.ID)
			continue
		}

		spouse := s.reg.Get(match.Spouse)
		if match.Outsider {
			s.emit(outsiderEvent(year, spouse, match.Reason))
			s.Stats.Outsiders++
		}

		if err := s.reg.Marry(p.ID, spouse.ID); err != nil {
			if registry.IsInvalidState(err) || registry.IsInvalidArgument(err) {
				slog.Debug("marriage skipped", "year", year, "person", p.ID, "spouse", spouse.ID, "err", err)
				continue
			}
			return err
		}
		s.emit(marriageEvent(year, p, spouse))
		s.Stats.Marriages++
		married++
	}

	slog.Debug("marriages processed", "year", year, "seekers", len(seekers), "married", married)
	return nil
}

func (s *Simulation) eligible(p *agents.Person) bool {
	return demographics.IsEligibleForMarriage(p, s.reg.IsMarried(p.ID), s.reg.ChildCount(p.ID), s.cfg)
}
