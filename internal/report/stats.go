package report

import (
	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/config"
	"github.com/talgya/lineage/internal/demographics"
	"github.com/talgya/lineage/internal/registry"
)

// Population is a breakdown of the living population.
type Population struct {
	Total     int     `yaml:"total"`
	Natives   int     `yaml:"natives"`
	Outsiders int     `yaml:"outsiders"`
	Males     int     `yaml:"males"`
	Females   int     `yaml:"females"`
	Married   int     `yaml:"married"`
	MinAge    int     `yaml:"min_age"`
	MaxAge    int     `yaml:"max_age"`
	MeanAge   float64 `yaml:"mean_age"`
}

// Summarize computes the population breakdown of living.
func Summarize(living []registry.Record) Population {
	var p Population
	if len(living) == 0 {
		return p
	}

	p.MinAge = agents.MaxAge
	sum := 0
	for _, r := range living {
		p.Total++
		if r.Outsider {
			p.Outsiders++
		} else {
			p.Natives++
		}
		if r.Sex == agents.SexMale {
			p.Males++
		} else {
			p.Females++
		}
		if r.Married() {
			p.Married++
		}
		p.MinAge = min(p.MinAge, r.Age)
		p.MaxAge = max(p.MaxAge, r.Age)
		sum += r.Age
	}
	p.MeanAge = float64(sum) / float64(p.Total)
	return p
}

// Percent returns n as a percentage of the total, or 0 for an empty
// population.
func (p Population) Percent(n int) float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(p.Total)
}

// Relatives is what the report needs from the kinship oracle.
type Relatives interface {
	AreCloseRelatives(a, b agents.PersonID) bool
}

// Marriageability explains the state of the marriage market: who could
// marry and how many opposite-sex pairings kinship rules out.
type Marriageability struct {
	MarriedOutsiders []registry.Record
	Eligible         int
	EligibleNatives  int
	EligibleMales    int
	EligibleFemales  int
	BlockedPairs     int
}

// Analyze inspects the living population under cfg.
func Analyze(living []registry.Record, cfg config.Simulation, kin Relatives) Marriageability {
	var m Marriageability
	var eligible []registry.Record
	for _, r := range living {
		if r.Outsider && r.Married() {
			m.MarriedOutsiders = append(m.MarriedOutsiders, r)
		}
		if !demographics.IsEligibleForMarriage(&r.Person, r.Married(), len(r.Children), cfg) {
			continue
		}
		eligible = append(eligible, r)
		if !r.Outsider {
			m.EligibleNatives++
		}
		if r.Sex == agents.SexMale {
			m.EligibleMales++
		} else {
			m.EligibleFemales++
		}
	}
	m.Eligible = len(eligible)

	for i, a := range eligible {
		for _, b := range eligible[i+1:] {
			if a.Sex != b.Sex && kin.AreCloseRelatives(a.ID, b.ID) {
				m.BlockedPairs++
			}
		}
	}
	return m
}
