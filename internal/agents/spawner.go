// Person spawning: names, occupations and ages for founders, outsiders
// and newborns.
package agents

import (
	"strings"
	"unicode/utf8"
)

// Rand is the random source the spawner draws from. *math/rand.Rand
// satisfies it; tests pass a seeded one.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Spawner creates people for the simulation. It never assigns IDs; the
// registry does that on insertion.
type Spawner struct {
	rng Rand

	// Recently used first names per sex, cleared once half the pool is used.
	used map[Sex]map[string]struct{}
}

// NewSpawner creates a spawner drawing from rng.
func NewSpawner(rng Rand) *Spawner {
	return &Spawner{
		rng: rng,
		used: map[Sex]map[string]struct{}{
			SexMale:   {},
			SexFemale: {},
		},
	}
}

// Outsider synthesizes an adult who marries into the village.
func (s *Spawner) Outsider(sex Sex, age int) *Person {
	return &Person{
		Name:       fullName(s.FirstName(sex), s.Surname()),
		Age:        clampAge(age),
		Sex:        sex,
		Alive:      true,
		Outsider:   true,
		Occupation: s.Occupation(sex),
	}
}

// Founder synthesizes a native member of a founding couple.
func (s *Spawner) Founder(sex Sex, age int, surname string) *Person {
	if surname == "" {
		surname = s.Surname()
	}
	return &Person{
		Name:       fullName(s.FirstName(sex), surname),
		Age:        clampAge(age),
		Sex:        sex,
		Alive:      true,
		Occupation: s.Occupation(sex),
	}
}

// Child creates a newborn carrying the father's family name, shortened
// when needed to keep the name within MaxNameLength.
func (s *Spawner) Child(sex Sex, mother, father *Person) *Person {
	var surname string
	if father != nil {
		surname = FamilyName(father.Name)
	}
	child := &Person{
		Name:       fullName(s.FirstName(sex), surname),
		Age:        0,
		Sex:        sex,
		Alive:      true,
		Occupation: NoOccupation,
	}
	if mother != nil {
		child.MotherID = mother.ID
	}
	if father != nil {
		child.FatherID = father.ID
	}
	return child
}

// FirstName picks a given name for sex, avoiding recently used names while
// enough alternatives remain.
func (s *Spawner) FirstName(sex Sex) string {
	pool := femaleNames
	if sex == SexMale {
		pool = maleNames
	}
	used := s.used[sex]

	available := make([]string, 0, len(pool))
	for _, n := range pool {
		if _, ok := used[n]; !ok {
			available = append(available, n)
		}
	}
	if len(available) == 0 {
		clear(used)
		available = pool
	}

	name := available[s.rng.Intn(len(available))]
	used[name] = struct{}{}
	if len(used) > len(pool)/2 {
		clear(used)
	}
	return name
}

// Surname picks a random family name.
func (s *Spawner) Surname() string {
	return lastNames[s.rng.Intn(len(lastNames))]
}

// Occupation picks a trade from the pool for sex.
func (s *Spawner) Occupation(sex Sex) string {
	pool := femaleOccupations
	if sex == SexMale {
		pool = maleOccupations
	}
	return pool[s.rng.Intn(len(pool))]
}

// FamilyName returns everything after the first word of a full name.
func FamilyName(fullName string) string {
	_, rest, ok := strings.Cut(strings.TrimSpace(fullName), " ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}

// fullName joins a given name and a family name, cutting the family name
// so the result is at most MaxNameLength runes.
func fullName(first, surname string) string {
	room := MaxNameLength - utf8.RuneCountInString(first) - 1
	if room <= 0 {
		return first
	}
	if utf8.RuneCountInString(surname) > room {
		surname = string([]rune(surname)[:room])
	}
	surname = strings.TrimSpace(surname)
	if surname == "" {
		return first
	}
	return first + " " + surname
}

func clampAge(age int) int {
	if age < 0 {
		return 0
	}
	if age > MaxAge {
		return MaxAge
	}
	return age
}

// Name pools for procedural generation.
var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron", "Ulric",
	"Varen", "Wren", "Yorick", "Zander", "Arlen", "Beric", "Cade",
	"Dorian", "Edric", "Falk", "Gunnar", "Hugo", "Ivar", "Jorik",
	"Alaric", "Baldwin", "Conrad", "Edmund", "Godric", "Leonard",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Una", "Vera",
	"Willa", "Yara", "Zara", "Ava", "Birgit", "Cora", "Dagny",
	"Eira", "Fern", "Gwen", "Hilde", "Inga", "Johanna", "Katla",
	"Agnes", "Beatrice", "Edith", "Matilda", "Winifred", "Maud",
}

var lastNames = []string{
	"Voss", "Thornwood", "Blackwood", "Ashford", "Ironhand", "Dunmore",
	"Greenvale", "Stormcrow", "Frostborn", "Hearthstone", "Millward",
	"Copperfield", "Ravenmoor", "Silverdale", "Wolfsbane", "Stoneheart",
	"Deepwell", "Brightwater", "Oakenshield", "Redforge", "Windholm",
	"Marshwood", "Goldhaven", "Nightingale", "Riverstone", "Steelworth",
	"Embercroft", "Holloway", "Dawnridge", "Farrow", "Wyatt", "Thatcher",
	"Briar", "Caldwell", "Frost", "Harper", "Mercer", "Ward", "Cross",
}

var maleOccupations = []string{
	"Farmer", "Blacksmith", "Merchant", "Carpenter", "Miller", "Baker",
	"Fisher", "Hunter", "Cook", "Miner", "Shepherd",
}

var femaleOccupations = []string{
	"Homemaker", "Seamstress", "Merchant", "Herbalist", "Shepherd",
	"Baker", "Cook", "Farmer",
}
