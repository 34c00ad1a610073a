// Package matchmaker pairs marriage seekers with an eligible villager, or
// brings in an outsider when the village has nobody suitable.
package matchmaker

import (
	"fmt"
	"strings"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/demographics"
)

// Population is the part of the registry the matchmaker reads and extends.
type Population interface {
	Get(id agents.PersonID) *agents.Person
	Living() []*agents.Person
	IsMarried(id agents.PersonID) bool
	ChildCount(id agents.PersonID) int
	Add(p *agents.Person) (agents.PersonID, error)
}

// Relatives answers the incest check.
type Relatives interface {
	AreCloseRelatives(a, b agents.PersonID) bool
}

// Match is the outcome of one spouse search.
type Match struct {
	Found    bool
	Spouse   agents.PersonID
	Outsider bool

	// Reason explains why an outsider was needed. Empty for village matches.
	Reason string
}

// Matchmaker finds spouses.
type Matchmaker struct {
	pop     Population
	kin     Relatives
	policy  *demographics.Policy
	spawner *agents.Spawner
	rng     agents.Rand
}

// New creates a matchmaker. All randomness comes from rng, the policy and
// the spawner, which should share one seeded source.
func New(pop Population, kin Relatives, policy *demographics.Policy, spawner *agents.Spawner, rng agents.Rand) *Matchmaker {
	return &Matchmaker{pop: pop, kin: kin, policy: policy, spawner: spawner, rng: rng}
}

// Candidates returns the living villagers seeker could marry: opposite
// sex, eligible, not excluded and not a close relative. Id order.
func (m *Matchmaker) Candidates(seeker *agents.Person, exclude map[agents.PersonID]struct{}) []agents.PersonID {
	cfg := m.policy.Config()
	var out []agents.PersonID
	for _, p := range m.pop.Living() {
		if p.ID == seeker.ID || p.Sex == seeker.Sex {
			continue
		}
		if _, skip := exclude[p.ID]; skip {
			continue
		}
		if !demographics.IsEligibleForMarriage(p, m.pop.IsMarried(p.ID), m.pop.ChildCount(p.ID), cfg) {
			continue
		}
		if m.kin.AreCloseRelatives(seeker.ID, p.ID) {
			continue
		}
		out = append(out, p.ID)
	}
	return out
}

// FindSpouse picks a spouse for seeker uniformly from the candidates. With
// no candidates an outsider is synthesized and registered, unless the
// outsider gate turns the seeker away, in which case Found is false. The
// match is not married here; the caller does that.
func (m *Matchmaker) FindSpouse(seekerID agents.PersonID, exclude map[agents.PersonID]struct{}) (Match, error) {
	seeker := m.pop.Get(seekerID)
	if seeker == nil {
		return Match{}, fmt.Errorf("find spouse: unknown person %d", seekerID)
	}

	if candidates := m.Candidates(seeker, exclude); len(candidates) > 0 {
		return Match{
			Found:  true,
			Spouse: candidates[m.rng.Intn(len(candidates))],
		}, nil
	}

	if !m.policy.OutsiderAllowed(seeker.Age) {
		return Match{}, nil
	}

	// Tally before the outsider joins the village.
	reason := m.OutsiderReason(seeker)
	outsider := m.spawner.Outsider(seeker.Sex.Opposite(), m.policy.SpouseAge())
	if _, err := m.pop.Add(outsider); err != nil {
		return Match{}, fmt.Errorf("register outsider: %w", err)
	}
	return Match{
		Found:    true,
		Spouse:   outsider.ID,
		Outsider: true,
		Reason:   reason,
	}, nil
}

// OutsiderReason explains why seeker found nobody in the village by
// counting, among living opposite-sex villagers in the marriage band, how
// many are married, close relatives or already parents.
func (m *Matchmaker) OutsiderReason(seeker *agents.Person) string {
	cfg := m.policy.Config()
	want := seeker.Sex.Opposite()

	var inBand, married, relatives, parents int
	for _, p := range m.pop.Living() {
		if p.Sex != want || p.Age < cfg.MinMarriageAge || p.Age > cfg.MaxMarriageAge {
			continue
		}
		inBand++
		if m.pop.IsMarried(p.ID) {
			married++
		}
		if m.kin.AreCloseRelatives(seeker.ID, p.ID) {
			relatives++
		}
		if m.pop.ChildCount(p.ID) > 0 {
			parents++
		}
	}

	if inBand == 0 {
		return fmt.Sprintf("No eligible %s in village", want.Plural())
	}

	var reasons []string
	if married > 0 {
		reasons = append(reasons, fmt.Sprintf("%d already married", married))
	}
	if relatives > 0 {
		reasons = append(reasons, fmt.Sprintf("%d are close relatives", relatives))
	}
	if parents > 0 {
		reasons = append(reasons, fmt.Sprintf("%d already have children", parents))
	}
	if len(reasons) == 0 {
		return fmt.Sprintf("No unattached %s available this year", want.Plural())
	}
	return strings.Join(reasons, ", ")
}
