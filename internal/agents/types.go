// Package agents provides the person data model and the spawner that
// synthesizes villagers, outsiders and newborns.
package agents

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// PersonID is a stable arena identifier for a person. Zero means "nobody".
type PersonID uint64

// None is the zero PersonID.
const None PersonID = 0

// Sex represents biological sex for demographic simulation.
type Sex uint8

const (
	SexMale   Sex = 0
	SexFemale Sex = 1
)

// Opposite returns the other sex.
func (s Sex) Opposite() Sex {
	if s == SexMale {
		return SexFemale
	}
	return SexMale
}

func (s Sex) String() string {
	if s == SexMale {
		return "Male"
	}
	return "Female"
}

// Abbrev returns "M" or "F".
func (s Sex) Abbrev() string {
	if s == SexMale {
		return "M"
	}
	return "F"
}

// Plural returns a lower-case plural noun ("males", "females").
func (s Sex) Plural() string {
	return strings.ToLower(s.String()) + "s"
}

// Person limits.
const (
	MaxNameLength = 50
	MaxAge        = 150
)

// NoOccupation is stored for people without a trade (newborns).
const NoOccupation = "None"

// Person is the core entity of the simulation. Marriage and child edges
// live in the registry's id indexes; only the birth parents, which never
// change, are kept on the struct.
type Person struct {
	ID   PersonID `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`

	// Demographics
	Age   int  `json:"age" yaml:"age"` // Sim-years
	Sex   Sex  `json:"sex" yaml:"sex"`
	Alive bool `json:"alive" yaml:"alive"`

	// Outsider is true for people who married into the village.
	Outsider   bool   `json:"outsider" yaml:"outsider"`
	Occupation string `json:"occupation" yaml:"occupation"`

	MotherID PersonID `json:"mother_id,omitempty" yaml:"mother_id,omitempty"`
	FatherID PersonID `json:"father_id,omitempty" yaml:"father_id,omitempty"`
}

// ErrInvalidPerson is wrapped by Validate failures.
var ErrInvalidPerson = errors.New("invalid person")

// New creates a living person with validated identity fields.
func New(name string, age int, sex Sex, outsider bool, occupation string) (*Person, error) {
	p := &Person{
		Name:       name,
		Age:        age,
		Sex:        sex,
		Alive:      true,
		Outsider:   outsider,
		Occupation: occupation,
	}
	if p.Occupation == "" {
		p.Occupation = NoOccupation
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the identity invariants: a 1–50 character name, an age in
// [0, MaxAge] and a known sex.
func (p *Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidPerson)
	}
	if utf8.RuneCountInString(p.Name) > MaxNameLength {
		return fmt.Errorf("%w: name %q exceeds %d characters", ErrInvalidPerson, p.Name, MaxNameLength)
	}
	if p.Age < 0 || p.Age > MaxAge {
		return fmt.Errorf("%w: age %d outside 0..%d", ErrInvalidPerson, p.Age, MaxAge)
	}
	if p.Sex != SexMale && p.Sex != SexFemale {
		return fmt.Errorf("%w: unknown sex %d", ErrInvalidPerson, p.Sex)
	}
	return nil
}

// Origin returns "Outsider" or "Native".
func (p *Person) Origin() string {
	if p.Outsider {
		return "Outsider"
	}
	return "Native"
}

// HasParents reports whether birth parents were recorded.
func (p *Person) HasParents() bool {
	return p.MotherID != None || p.FatherID != None
}

func (p *Person) String() string {
	status := "Living"
	if !p.Alive {
		status = "Deceased"
	}
	return fmt.Sprintf("%s (%d, %s, %s, %s)", p.Name, p.Age, p.Sex, p.Origin(), status)
}
