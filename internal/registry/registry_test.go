package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/lineage/internal/agents"
)

func person(t *testing.T, name string, age int, sex agents.Sex) *agents.Person {
	t.Helper()
	p, err := agents.New(name, age, sex, false, "Farmer")
	require.NoError(t, err)
	return p
}

func addPerson(t *testing.T, r *Registry, name string, age int, sex agents.Sex) agents.PersonID {
	t.Helper()
	id, err := r.Add(person(t, name, age, sex))
	require.NoError(t, err)
	return id
}

func couple(t *testing.T, r *Registry) (agents.PersonID, agents.PersonID) {
	t.Helper()
	h := addPerson(t, r, "Erik Voss", 25, agents.SexMale)
	w := addPerson(t, r, "Astrid Voss", 24, agents.SexFemale)
	require.NoError(t, r.Marry(h, w))
	return h, w
}

func TestRegistry_Add_AssignsSequentialIDs(t *testing.T) {
	r := New(2)

	a := addPerson(t, r, "Erik Voss", 20, agents.SexMale)
	b := addPerson(t, r, "Freya Ward", 22, agents.SexFemale)

	assert.Equal(t, agents.PersonID(1), a)
	assert.Equal(t, agents.PersonID(2), b)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, r.LivingCount())
}

func TestRegistry_Add_RejectsReAdd(t *testing.T) {
	r := New(2)
	p := person(t, "Erik Voss", 20, agents.SexMale)
	_, err := r.Add(p)
	require.NoError(t, err)

	_, err = r.Add(p)
	assert.True(t, IsInvalidArgument(err))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Add_RejectsInvalidPerson(t *testing.T) {
	r := New(2)

	_, err := r.Add(&agents.Person{Name: "", Age: 10, Alive: true})
	assert.True(t, IsInvalidArgument(err))

	_, err = r.Add(nil)
	assert.True(t, IsInvalidArgument(err))

	_, err = r.Add(&agents.Person{Name: "Orphan", Age: 0, Alive: true, MotherID: 42})
	assert.True(t, IsInvalidArgument(err))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Marry(t *testing.T) {
	r := New(2)
	h, w := couple(t, r)

	s, ok := r.Spouse(h)
	require.True(t, ok)
	assert.Equal(t, w, s)

	s, ok = r.Spouse(w)
	require.True(t, ok)
	assert.Equal(t, h, s)
}

func TestRegistry_Marry_Errors(t *testing.T) {
	r := New(2)
	h, w := couple(t, r)
	single := addPerson(t, r, "Lena Frost", 21, agents.SexFemale)
	man := addPerson(t, r, "Bram Frost", 21, agents.SexMale)
	dead := addPerson(t, r, "Greta Mercer", 40, agents.SexFemale)
	_, err := r.Die(dead)
	require.NoError(t, err)

	tests := []struct {
		name  string
		a, b  agents.PersonID
		check func(error) bool
	}{
		{"already married", h, single, IsInvalidState},
		{"spouse already married", man, w, IsInvalidState},
		{"deceased", man, dead, IsInvalidState},
		{"married checked before sex", single, w, IsInvalidState},
		{"same sex unmarried", man, addPerson(t, r, "Cade Ward", 30, agents.SexMale), IsInvalidArgument},
		{"self", man, man, IsInvalidArgument},
		{"unknown", man, 999, IsInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Marry(tt.a, tt.b)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	// Nothing partially applied.
	assert.False(t, r.IsMarried(single))
	assert.False(t, r.IsMarried(man))
}

func TestRegistry_AddChild_MirrorsOntoSpouse(t *testing.T) {
	r := New(2)
	h, w := couple(t, r)

	child := person(t, "Finn Voss", 0, agents.SexMale)
	child.FatherID, child.MotherID = h, w
	require.NoError(t, r.AddChild(h, child))

	assert.NotEqual(t, agents.None, child.ID)
	assert.Equal(t, []agents.PersonID{child.ID}, r.Children(h))
	assert.Equal(t, []agents.PersonID{child.ID}, r.Children(w))

	// Adding the same child through the mother is a duplicate for her.
	err := r.AddChild(w, child)
	assert.True(t, IsInvalidArgument(err))
	assert.Len(t, r.Children(w), 1)

	assert.ElementsMatch(t, []agents.PersonID{h, w}, r.Parents(child.ID))
	assert.Empty(t, r.Parents(h))
}

func TestRegistry_AddChild_RejectsOlderChild(t *testing.T) {
	r := New(2)
	older := addPerson(t, r, "Una Voss", 5, agents.SexFemale)
	h, _ := couple(t, r)

	err := r.AddChild(h, r.Get(older))
	assert.True(t, IsInvalidArgument(err))
	assert.Empty(t, r.Children(h))
	assert.Empty(t, r.Parents(older))
}

func TestRegistry_AddChild_Capacity(t *testing.T) {
	r := New(2)
	h, w := couple(t, r)

	for i := 0; i < 2; i++ {
		c := person(t, "Kid Voss", 0, agents.SexFemale)
		c.FatherID, c.MotherID = h, w
		require.NoError(t, r.AddChild(h, c))
	}
	before := r.Len()

	c := person(t, "Third Voss", 0, agents.SexFemale)
	c.FatherID, c.MotherID = h, w
	err := r.AddChild(h, c)
	require.Error(t, err)
	assert.True(t, IsCapacity(err))

	assert.Equal(t, before, r.Len(), "a rejected child must not be registered")
	assert.Equal(t, agents.None, c.ID)
	assert.Len(t, r.Children(h), 2)
	assert.Len(t, r.Children(w), 2)
}

func TestRegistry_AddChild_SpouseAtCapacity(t *testing.T) {
	r := New(1)
	h := addPerson(t, r, "Erik Voss", 25, agents.SexMale)
	w := addPerson(t, r, "Astrid Voss", 24, agents.SexFemale)

	// Restore-style setup: the wife already has a child from elsewhere.
	older := person(t, "Una Voss", 0, agents.SexFemale)
	older.MotherID = w
	require.NoError(t, r.AddChild(w, older))
	require.NoError(t, r.Marry(h, w))

	err := r.AddChild(h, person(t, "Late Voss", 0, agents.SexMale))
	assert.True(t, IsCapacity(err))
	assert.Empty(t, r.Children(h))
}

func TestRegistry_Die_WidowsSpouse(t *testing.T) {
	r := New(2)
	h, w := couple(t, r)

	spouse, err := r.Die(h)
	require.NoError(t, err)
	assert.Equal(t, w, spouse)
	assert.False(t, r.Get(h).Alive)
	assert.False(t, r.IsMarried(h))
	assert.False(t, r.IsMarried(w))

	_, err = r.Die(h)
	assert.True(t, IsInvalidState(err))
}

func TestRegistry_RemoveDeceased_KeepsArena(t *testing.T) {
	r := New(2)
	h, w := couple(t, r)
	_, err := r.Die(w)
	require.NoError(t, err)

	assert.Equal(t, 1, r.RemoveDeceased())
	assert.Equal(t, 1, r.LivingCount())
	assert.Len(t, r.Living(), 1)
	assert.Equal(t, h, r.Living()[0].ID)

	// Dead people remain reachable.
	require.NotNil(t, r.Get(w))
	assert.Len(t, r.All(), 2)
	assert.Len(t, r.Records(), 2)
}

func TestRegistry_Record_IsACopy(t *testing.T) {
	r := New(2)
	h, w := couple(t, r)

	rec, ok := r.Record(h)
	require.True(t, ok)
	assert.Equal(t, w, rec.SpouseID)
	assert.True(t, rec.Married())

	rec.Age = 99
	rec.Children = append(rec.Children, 7)
	assert.Equal(t, 25, r.Get(h).Age)
	assert.Empty(t, r.Children(h))

	_, ok = r.Record(42)
	assert.False(t, ok)
}

func TestRestore_RoundTrip(t *testing.T) {
	r := New(2)
	h, w := couple(t, r)
	c := person(t, "Finn Voss", 0, agents.SexMale)
	c.FatherID, c.MotherID = h, w
	require.NoError(t, r.AddChild(h, c))
	widow := addPerson(t, r, "Old Ward", 70, agents.SexMale)
	_, err := r.Die(widow)
	require.NoError(t, err)

	restored, err := Restore(r.Records(), 2)
	require.NoError(t, err)

	assert.Equal(t, r.Records(), restored.Records())
	assert.Equal(t, r.LivingCount(), restored.LivingCount())

	// The restored registry keeps assigning fresh ids.
	next := addPerson(t, restored, "New Person", 20, agents.SexFemale)
	assert.Equal(t, agents.PersonID(r.Len()+1), next)
}

func TestRestore_RejectsBrokenEdges(t *testing.T) {
	r := New(2)
	h, _ := couple(t, r)

	records := r.Records()
	records[0].SpouseID = agents.None // one-sided marriage
	_, err := Restore(records, 2)
	assert.Error(t, err)

	records = r.Records()
	records[1].ID = 5
	_, err = Restore(records, 2)
	assert.Error(t, err)

	records = r.Records()
	records[0].Children = []agents.PersonID{h + 10}
	_, err = Restore(records, 2)
	assert.Error(t, err)

	// A child may not predate its parent.
	records = r.Records()
	records[1].Children = []agents.PersonID{h}
	_, err = Restore(records, 2)
	assert.ErrorContains(t, err, "registered before the parent")
}

func TestRestore_RebuildsParentIndex(t *testing.T) {
	r := New(2)
	h, w := couple(t, r)
	c := person(t, "Finn Voss", 0, agents.SexMale)
	require.NoError(t, r.AddChild(h, c))

	restored, err := Restore(r.Records(), 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []agents.PersonID{h, w}, restored.Parents(c.ID))
}
