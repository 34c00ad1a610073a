// Package config holds the immutable simulation parameters, the named
// presets and the viper-backed application configuration.
package config

import (
	"fmt"
	"slices"
	"strings"
)

// Simulation parameter defaults.
const (
	DefaultMaxYears              = 150
	DefaultMinMarriageAge        = 18
	DefaultMaxMarriageAge        = 29
	DefaultMortalityOnsetAge     = 60
	DefaultMortalityCertaintyAge = 70
	DefaultMortalityRiskPerYear  = 10 // percent
	DefaultMaxChildrenPerFamily  = 2
	DefaultLineageChildLimit     = 1
	DefaultMarriageProbability   = 0.20
	DefaultBirthProbability      = 1.0
	DefaultMaleChildProbability  = 0.5
	DefaultInitialMinAge         = 18
	DefaultInitialMaxAge         = 29
	DefaultOutsiderThreshold     = 0.30
	DefaultOutsiderMinAge        = 25
	DefaultMinStartingCouples    = 0
	DefaultMaxStartingCouples    = 10
	DefaultInitialPlayerAge      = 18
	DefaultPlayerOccupation      = "Farmer"
	DefaultVillageName           = "Haven"
)

// Validation limits.
const (
	MinYears      = 1
	MaxYearsLimit = 1000
	MaxPersonAge  = 150
	MaxChildCap   = 20
)

// Simulation is the parameter set for one run. Build it once, validate it
// and never change it while the run is in progress.
type Simulation struct {
	MaxYears int `mapstructure:"max_years" json:"max_years"`

	MinMarriageAge int `mapstructure:"min_marriage_age" json:"min_marriage_age"`
	MaxMarriageAge int `mapstructure:"max_marriage_age" json:"max_marriage_age"`

	// Death is impossible below the onset age and certain from the
	// certainty age; in between the risk ramps by MortalityRiskPerYear
	// percent per year. A ramp that has not reached 100% by the certainty
	// age jumps to 100% there. An onset above MaxPersonAge disables
	// mortality.
	MortalityOnsetAge     int `mapstructure:"mortality_onset_age" json:"mortality_onset_age"`
	MortalityCertaintyAge int `mapstructure:"mortality_certainty_age" json:"mortality_certainty_age"`
	MortalityRiskPerYear  int `mapstructure:"mortality_risk_per_year" json:"mortality_risk_per_year"`

	MaxChildrenPerFamily    int `mapstructure:"max_children_per_family" json:"max_children_per_family"`
	PlayerLineageChildLimit int `mapstructure:"player_lineage_child_limit" json:"player_lineage_child_limit"`

	MarriageProbability  float64 `mapstructure:"marriage_probability" json:"marriage_probability"`
	BaseBirthProbability float64 `mapstructure:"base_birth_probability" json:"base_birth_probability"`
	MaleChildProbability float64 `mapstructure:"male_child_probability" json:"male_child_probability"`

	InitialPopulationMinAge int `mapstructure:"initial_population_min_age" json:"initial_population_min_age"`
	InitialPopulationMaxAge int `mapstructure:"initial_population_max_age" json:"initial_population_max_age"`

	// When OutsiderGate is on, seekers younger than OutsiderMarriageMinAge
	// only get an outsider spouse with probability OutsiderMarriageThreshold.
	OutsiderGate              bool    `mapstructure:"outsider_gate" json:"outsider_gate"`
	OutsiderMarriageThreshold float64 `mapstructure:"outsider_marriage_threshold" json:"outsider_marriage_threshold"`
	OutsiderMarriageMinAge    int     `mapstructure:"outsider_marriage_min_age" json:"outsider_marriage_min_age"`

	MinStartingCouples int    `mapstructure:"min_starting_couples" json:"min_starting_couples"`
	MaxStartingCouples int    `mapstructure:"max_starting_couples" json:"max_starting_couples"`
	InitialPlayerAge   int    `mapstructure:"initial_player_age" json:"initial_player_age"`
	PlayerOccupation   string `mapstructure:"player_occupation" json:"player_occupation"`
	VillageName        string `mapstructure:"village_name" json:"village_name"`
}

// Default returns the standard parameter set.
func Default() Simulation {
	return Simulation{
		MaxYears:                  DefaultMaxYears,
		MinMarriageAge:            DefaultMinMarriageAge,
		MaxMarriageAge:            DefaultMaxMarriageAge,
		MortalityOnsetAge:         DefaultMortalityOnsetAge,
		MortalityCertaintyAge:     DefaultMortalityCertaintyAge,
		MortalityRiskPerYear:      DefaultMortalityRiskPerYear,
		MaxChildrenPerFamily:      DefaultMaxChildrenPerFamily,
		PlayerLineageChildLimit:   DefaultLineageChildLimit,
		MarriageProbability:       DefaultMarriageProbability,
		BaseBirthProbability:      DefaultBirthProbability,
		MaleChildProbability:      DefaultMaleChildProbability,
		InitialPopulationMinAge:   DefaultInitialMinAge,
		InitialPopulationMaxAge:   DefaultInitialMaxAge,
		OutsiderMarriageThreshold: DefaultOutsiderThreshold,
		OutsiderMarriageMinAge:    DefaultOutsiderMinAge,
		MinStartingCouples:        DefaultMinStartingCouples,
		MaxStartingCouples:        DefaultMaxStartingCouples,
		InitialPlayerAge:          DefaultInitialPlayerAge,
		PlayerOccupation:          DefaultPlayerOccupation,
		VillageName:               DefaultVillageName,
	}
}

// Validate checks every field range and the cross-field constraints.
func (s Simulation) Validate() error {
	switch {
	case s.MaxYears < MinYears || s.MaxYears > MaxYearsLimit:
		return newError("max_years", "must be between %d and %d, got %d", MinYears, MaxYearsLimit, s.MaxYears)
	case !validAge(s.MinMarriageAge):
		return newError("min_marriage_age", "invalid age %d", s.MinMarriageAge)
	case !validAge(s.MaxMarriageAge):
		return newError("max_marriage_age", "invalid age %d", s.MaxMarriageAge)
	case s.MortalityOnsetAge < 0:
		return newError("mortality_onset_age", "invalid age %d", s.MortalityOnsetAge)
	case s.MortalityCertaintyAge < 0:
		return newError("mortality_certainty_age", "invalid age %d", s.MortalityCertaintyAge)
	case s.MortalityRiskPerYear < 0 || s.MortalityRiskPerYear > 100:
		return newError("mortality_risk_per_year", "must be between 0 and 100 percent, got %d", s.MortalityRiskPerYear)
	case s.MaxChildrenPerFamily < 0 || s.MaxChildrenPerFamily > MaxChildCap:
		return newError("max_children_per_family", "must be between 0 and %d, got %d", MaxChildCap, s.MaxChildrenPerFamily)
	case s.PlayerLineageChildLimit < 0 || s.PlayerLineageChildLimit > MaxChildCap:
		return newError("player_lineage_child_limit", "must be between 0 and %d, got %d", MaxChildCap, s.PlayerLineageChildLimit)
	case !validProbability(s.MarriageProbability):
		return newError("marriage_probability", "must be between 0.0 and 1.0, got %g", s.MarriageProbability)
	case !validProbability(s.BaseBirthProbability):
		return newError("base_birth_probability", "must be between 0.0 and 1.0, got %g", s.BaseBirthProbability)
	case !validProbability(s.MaleChildProbability):
		return newError("male_child_probability", "must be between 0.0 and 1.0, got %g", s.MaleChildProbability)
	case !validAge(s.InitialPopulationMinAge) || !validAge(s.InitialPopulationMaxAge) ||
		s.InitialPopulationMinAge > s.InitialPopulationMaxAge:
		return newError("initial_population_age", "invalid range %d-%d", s.InitialPopulationMinAge, s.InitialPopulationMaxAge)
	case !validProbability(s.OutsiderMarriageThreshold):
		return newError("outsider_marriage_threshold", "must be between 0.0 and 1.0, got %g", s.OutsiderMarriageThreshold)
	case !validAge(s.OutsiderMarriageMinAge):
		return newError("outsider_marriage_min_age", "invalid age %d", s.OutsiderMarriageMinAge)
	case s.MinStartingCouples < 0 || s.MaxStartingCouples < 0 || s.MinStartingCouples > s.MaxStartingCouples:
		return newError("starting_couples", "invalid range %d-%d", s.MinStartingCouples, s.MaxStartingCouples)
	case !validAge(s.InitialPlayerAge):
		return newError("initial_player_age", "invalid age %d", s.InitialPlayerAge)
	case strings.TrimSpace(s.PlayerOccupation) == "":
		return newError("player_occupation", "cannot be empty")
	case strings.TrimSpace(s.VillageName) == "":
		return newError("village_name", "cannot be empty")
	case s.MinMarriageAge > s.MaxMarriageAge:
		return newError("min_marriage_age", "minimum marriage age %d exceeds maximum %d", s.MinMarriageAge, s.MaxMarriageAge)
	case s.MortalityOnsetAge > s.MortalityCertaintyAge:
		return newError("mortality_onset_age", "onset age %d exceeds certainty age %d", s.MortalityOnsetAge, s.MortalityCertaintyAge)
	case s.PlayerLineageChildLimit > s.MaxChildrenPerFamily:
		return newError("player_lineage_child_limit", "lineage limit %d exceeds family maximum %d", s.PlayerLineageChildLimit, s.MaxChildrenPerFamily)
	}
	return nil
}

func validAge(age int) bool {
	return age >= 0 && age <= MaxPersonAge
}

func validProbability(p float64) bool {
	return p >= 0 && p <= 1
}

// SettlementType names a settlement by its number of founding couples.
func SettlementType(couples int) string {
	switch {
	case couples == 0:
		return "Solo Settlement"
	case couples <= 2:
		return "Farmstead"
	case couples <= 4:
		return "Thorp"
	case couples <= 9:
		return "Hamlet"
	default:
		return "Village"
	}
}

// MortalityDescription summarizes the death model for reports.
func (s Simulation) MortalityDescription() string {
	return fmt.Sprintf("No death before age %d, linear increase from %d-%d (%d%% per year), certain death from age %d",
		s.MortalityOnsetAge, s.MortalityOnsetAge, s.MortalityCertaintyAge, s.MortalityRiskPerYear, s.MortalityCertaintyAge)
}

// MarriageDescription summarizes marriage eligibility for reports.
func (s Simulation) MarriageDescription() string {
	return fmt.Sprintf("Eligible age %d-%d, must be unmarried and childless, no close relatives, annual probability %.0f%%",
		s.MinMarriageAge, s.MaxMarriageAge, s.MarriageProbability*100)
}

// Preset is a named variation of the default parameters.
type Preset struct {
	Name        string
	Description string
	apply       func(*Simulation)
}

// Config returns the preset's parameter set.
func (p Preset) Config() Simulation {
	s := Default()
	if p.apply != nil {
		p.apply(&s)
	}
	return s
}

var presets = []Preset{
	{
		Name:        "default",
		Description: "standard rules",
	},
	{
		Name:        "quick",
		Description: "50 years, 30% marriage rate",
		apply: func(s *Simulation) {
			s.MaxYears = 50
			s.MarriageProbability = 0.30
		},
	},
	{
		Name:        "long",
		Description: "500 years, 15% marriage rate",
		apply: func(s *Simulation) {
			s.MaxYears = 500
			s.MarriageProbability = 0.15
		},
	},
	{
		Name:        "high-birth",
		Description: "up to 4 children per family, 2 for the player's line, 35% marriage rate",
		apply: func(s *Simulation) {
			s.MaxChildrenPerFamily = 4
			s.PlayerLineageChildLimit = 2
			s.MarriageProbability = 0.35
		},
	},
	{
		Name:        "harsh",
		Description: "mortality from 50 and certain at 60, one child per family, 15% marriage rate",
		apply: func(s *Simulation) {
			s.MortalityOnsetAge = 50
			s.MortalityCertaintyAge = 60
			s.MaxChildrenPerFamily = 1
			s.MarriageProbability = 0.15
		},
	},
	{
		Name:        "long-life",
		Description: "mortality from 75 and certain at 90, marriage up to 40",
		apply: func(s *Simulation) {
			s.MortalityOnsetAge = 75
			s.MortalityCertaintyAge = 90
			s.MaxMarriageAge = 40
		},
	},
}

// Presets returns every preset in display order.
func Presets() []Preset {
	return slices.Clone(presets)
}

// LookupPreset finds a preset by name.
func LookupPreset(name string) (Preset, error) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Preset{}, newError("preset", "unknown preset %q", name)
}
