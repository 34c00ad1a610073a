// Package demographics holds the stochastic life rules: who dies, who
// marries, when a child is born and what it is. Every draw comes from an
// injected random source so runs are reproducible from a seed.
package demographics

import (
	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/config"
)

// Policy makes per-person demographic decisions.
type Policy struct {
	cfg config.Simulation
	rng agents.Rand
}

// New creates a policy over cfg drawing from rng.
func New(cfg config.Simulation, rng agents.Rand) *Policy {
	return &Policy{cfg: cfg, rng: rng}
}

// Config returns the parameters the policy was built with.
func (p *Policy) Config() config.Simulation {
	return p.cfg
}

// DeathChance returns the yearly chance of death at age, in percent. It is
// 100 from the certainty age on, however far the ramp got before it.
func (p *Policy) DeathChance(age int) int {
	onset, certainty := p.cfg.MortalityOnsetAge, p.cfg.MortalityCertaintyAge
	switch {
	case age < onset:
		return 0
	case age >= certainty:
		return 100
	}
	return min((age-onset)*p.cfg.MortalityRiskPerYear, 100)
}

// ShouldDie decides whether person dies this year. Below the onset age it
// never draws; from the certainty age on it is always true.
func (p *Policy) ShouldDie(person *agents.Person) bool {
	if person == nil || !person.Alive {
		return false
	}
	chance := p.DeathChance(person.Age)
	switch chance {
	case 0:
		return false
	case 100:
		return true
	}
	return p.rng.Intn(100) < chance
}

// SpouseAge draws an age uniformly from the marriage band.
func (p *Policy) SpouseAge() int {
	return uniform(p.rng, p.cfg.MinMarriageAge, p.cfg.MaxMarriageAge)
}

// InitialAge draws a founder's age from the initial population range.
func (p *Policy) InitialAge() int {
	return uniform(p.rng, p.cfg.InitialPopulationMinAge, p.cfg.InitialPopulationMaxAge)
}

// MarriageOccurs draws the annual marriage chance.
func (p *Policy) MarriageOccurs() bool {
	return bernoulli(p.rng, p.cfg.MarriageProbability)
}

// ChildSex draws the sex of a newborn.
func (p *Policy) ChildSex() agents.Sex {
	if bernoulli(p.rng, p.cfg.MaleChildProbability) {
		return agents.SexMale
	}
	return agents.SexFemale
}

// Parent is one side of a couple as the birth rule sees it.
type Parent struct {
	Person   *agents.Person
	SpouseID agents.PersonID
	Children int
}

// ChildIsBorn reports whether father and mother, married to each other and
// both below limit children, have a child this year.
func (p *Policy) ChildIsBorn(father, mother Parent, limit int) bool {
	if father.Person == nil || mother.Person == nil {
		return false
	}
	if father.SpouseID != mother.Person.ID || mother.SpouseID != father.Person.ID {
		return false
	}
	if !CanHaveMoreChildren(father.Person, father.Children, limit) ||
		!CanHaveMoreChildren(mother.Person, mother.Children, limit) {
		return false
	}
	return bernoulli(p.rng, p.cfg.BaseBirthProbability)
}

// OutsiderAllowed applies the optional outsider gate: when it is on, a
// seeker younger than the outsider minimum age only gets an outsider with
// the threshold probability. Older seekers always pass.
func (p *Policy) OutsiderAllowed(seekerAge int) bool {
	if !p.cfg.OutsiderGate || seekerAge >= p.cfg.OutsiderMarriageMinAge {
		return true
	}
	return bernoulli(p.rng, p.cfg.OutsiderMarriageThreshold)
}

// IsEligibleForMarriage is the single marriage eligibility rule: alive,
// unmarried, inside the marriage age band and without children. Anyone who
// has had children is never matched again, widowed or not.
func IsEligibleForMarriage(p *agents.Person, married bool, children int, cfg config.Simulation) bool {
	if p == nil || !p.Alive || married || children > 0 {
		return false
	}
	return p.Age >= cfg.MinMarriageAge && p.Age <= cfg.MaxMarriageAge
}

// CanHaveMoreChildren reports whether a living parent is below limit.
func CanHaveMoreChildren(p *agents.Person, children, limit int) bool {
	return p != nil && p.Alive && children < limit
}

func uniform(rng agents.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// bernoulli never draws for certain outcomes, so probability 0 and 1 cost
// no randomness.
func bernoulli(rng agents.Rand, probability float64) bool {
	switch {
	case probability <= 0:
		return false
	case probability >= 1:
		return true
	}
	return rng.Float64() < probability
}
