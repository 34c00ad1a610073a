// Package registry is the arena that owns every person ever created in a
// run, living or dead, together with the marriage and parent/child edges
// between them. Edges are id pairs, never pointers.
package registry

import (
	"fmt"
	"slices"

	"github.com/talgya/lineage/internal/agents"
)

// Registry stores people by id. It is not safe for concurrent use; the
// engine's goroutine is its single writer.
type Registry struct {
	people []*agents.Person // people[id-1]

	// active is the living-order index. RemoveDeceased prunes it; kinship
	// queries never read it.
	active []agents.PersonID

	spouse   map[agents.PersonID]agents.PersonID
	children map[agents.PersonID][]agents.PersonID
	parents  map[agents.PersonID][]agents.PersonID // reverse of children

	maxChildren int
}

// Record is a read-only value snapshot of a person and their edges.
type Record struct {
	agents.Person `yaml:",inline"`

	SpouseID agents.PersonID   `json:"spouse_id,omitempty" yaml:"spouse_id,omitempty"`
	Children []agents.PersonID `json:"children,omitempty" yaml:"children,omitempty"`
}

// Married reports whether the record has a current spouse.
func (r Record) Married() bool {
	return r.SpouseID != agents.None
}

// New creates an empty registry enforcing maxChildren per parent.
func New(maxChildren int) *Registry {
	return &Registry{
		spouse:      make(map[agents.PersonID]agents.PersonID),
		children:    make(map[agents.PersonID][]agents.PersonID),
		parents:     make(map[agents.PersonID][]agents.PersonID),
		maxChildren: maxChildren,
	}
}

// MaxChildren returns the per-parent children cap.
func (r *Registry) MaxChildren() int {
	return r.maxChildren
}

// Add registers a never-before-seen person and assigns their id.
func (r *Registry) Add(p *agents.Person) (agents.PersonID, error) {
	if p == nil {
		return agents.None, invalidArgument("add", agents.None, "person is nil")
	}
	if p.ID != agents.None {
		return agents.None, invalidArgument("add", p.ID, "person is already registered")
	}
	if err := p.Validate(); err != nil {
		return agents.None, invalidArgument("add", agents.None, err.Error())
	}
	for _, parent := range []agents.PersonID{p.MotherID, p.FatherID} {
		if parent != agents.None && r.Get(parent) == nil {
			return agents.None, invalidArgument("add", parent, "unknown parent")
		}
	}

	p.ID = agents.PersonID(len(r.people) + 1)
	r.people = append(r.people, p)
	r.active = append(r.active, p.ID)
	return p.ID, nil
}

// Get returns the person with id, or nil. The pointer is owned by the
// registry: callers may age a person but must use Die to end a life.
func (r *Registry) Get(id agents.PersonID) *agents.Person {
	if id == agents.None || int(id) > len(r.people) {
		return nil
	}
	return r.people[id-1]
}

// All returns every person ever registered, in id order.
func (r *Registry) All() []*agents.Person {
	return slices.Clone(r.people)
}

// Living returns the living people in id order.
func (r *Registry) Living() []*agents.Person {
	living := make([]*agents.Person, 0, len(r.active))
	for _, id := range r.active {
		if p := r.people[id-1]; p.Alive {
			living = append(living, p)
		}
	}
	return living
}

// Len returns the number of people ever registered.
func (r *Registry) Len() int {
	return len(r.people)
}

// LivingCount returns the number of living people.
func (r *Registry) LivingCount() int {
	n := 0
	for _, id := range r.active {
		if r.people[id-1].Alive {
			n++
		}
	}
	return n
}

// RemoveDeceased drops dead people from the active index. They stay in the
// arena for kinship and reporting queries.
func (r *Registry) RemoveDeceased() int {
	kept := r.active[:0]
	removed := 0
	for _, id := range r.active {
		if r.people[id-1].Alive {
			kept = append(kept, id)
		} else {
			removed++
		}
	}
	r.active = kept
	return removed
}

// Spouse returns the current spouse of id.
func (r *Registry) Spouse(id agents.PersonID) (agents.PersonID, bool) {
	s, ok := r.spouse[id]
	return s, ok
}

// IsMarried reports whether id has a current spouse.
func (r *Registry) IsMarried(id agents.PersonID) bool {
	_, ok := r.spouse[id]
	return ok
}

// Children returns id's children in birth order.
func (r *Registry) Children(id agents.PersonID) []agents.PersonID {
	return slices.Clone(r.children[id])
}

// Parents returns everyone who lists id as a child. The order is not
// significant.
func (r *Registry) Parents(id agents.PersonID) []agents.PersonID {
	return slices.Clone(r.parents[id])
}

// ChildCount returns the number of children recorded for id.
func (r *Registry) ChildCount(id agents.PersonID) int {
	return len(r.children[id])
}

// Marry links a and b as spouses. Both edges are set together or not at
// all.
func (r *Registry) Marry(a, b agents.PersonID) error {
	pa, pb := r.Get(a), r.Get(b)
	if pa == nil {
		return invalidArgument("marry", a, "unknown person")
	}
	if pb == nil {
		return invalidArgument("marry", b, "unknown person")
	}
	if a == b {
		return invalidArgument("marry", a, "cannot marry oneself")
	}
	if !pa.Alive {
		return invalidState("marry", a, "person is deceased")
	}
	if !pb.Alive {
		return invalidState("marry", b, "person is deceased")
	}
	if r.IsMarried(a) {
		return invalidState("marry", a, "person is already married")
	}
	if r.IsMarried(b) {
		return invalidState("marry", b, "person is already married")
	}
	if pa.Sex == pb.Sex {
		return invalidArgument("marry", b, "partners must be of opposite sex")
	}

	r.spouse[a] = b
	r.spouse[b] = a
	return nil
}

// AddChild records child under parent and mirrors the edge onto the
// parent's spouse. A child that is not yet registered is added first. The
// cap is checked for both parents before anything changes. Parents always
// have lower ids than their children.
func (r *Registry) AddChild(parent agents.PersonID, child *agents.Person) error {
	if r.Get(parent) == nil {
		return invalidArgument("add_child", parent, "unknown parent")
	}
	if child == nil {
		return invalidArgument("add_child", parent, "child is nil")
	}
	if child.ID != agents.None {
		if r.Get(child.ID) != child {
			return invalidArgument("add_child", child.ID, "child is not registered here")
		}
		if slices.Contains(r.children[parent], child.ID) {
			return invalidArgument("add_child", child.ID, "child already recorded for parent")
		}
		if child.ID < parent {
			return invalidArgument("add_child", child.ID, "child was registered before the parent")
		}
	}

	if len(r.children[parent]) >= r.maxChildren {
		return capacity("add_child", parent, r.maxChildren)
	}
	spouse, married := r.spouse[parent]
	mirror := married && (child.ID == agents.None || !slices.Contains(r.children[spouse], child.ID))
	if mirror && len(r.children[spouse]) >= r.maxChildren {
		return capacity("add_child", spouse, r.maxChildren)
	}
	if mirror && child.ID != agents.None && child.ID < spouse {
		return invalidArgument("add_child", child.ID, "child was registered before the parent's spouse")
	}

	if child.ID == agents.None {
		if _, err := r.Add(child); err != nil {
			return err
		}
	}
	r.children[parent] = append(r.children[parent], child.ID)
	r.parents[child.ID] = append(r.parents[child.ID], parent)
	if mirror {
		r.children[spouse] = append(r.children[spouse], child.ID)
		r.parents[child.ID] = append(r.parents[child.ID], spouse)
	}
	return nil
}

// Die marks id as dead and clears the marriage on both sides. It returns
// the widowed spouse, if there was one.
func (r *Registry) Die(id agents.PersonID) (agents.PersonID, error) {
	p := r.Get(id)
	if p == nil {
		return agents.None, invalidArgument("die", id, "unknown person")
	}
	if !p.Alive {
		return agents.None, invalidState("die", id, "person is already deceased")
	}

	p.Alive = false
	spouse, ok := r.spouse[id]
	if !ok {
		return agents.None, nil
	}
	delete(r.spouse, id)
	delete(r.spouse, spouse)
	return spouse, nil
}

// Record returns a value snapshot of id.
func (r *Registry) Record(id agents.PersonID) (Record, bool) {
	p := r.Get(id)
	if p == nil {
		return Record{}, false
	}
	return r.record(p), true
}

// Records returns snapshots of every person ever registered, in id order.
func (r *Registry) Records() []Record {
	out := make([]Record, 0, len(r.people))
	for _, p := range r.people {
		out = append(out, r.record(p))
	}
	return out
}

// LivingRecords returns snapshots of the living population, in id order.
func (r *Registry) LivingRecords() []Record {
	living := r.Living()
	out := make([]Record, 0, len(living))
	for _, p := range living {
		out = append(out, r.record(p))
	}
	return out
}

func (r *Registry) record(p *agents.Person) Record {
	return Record{
		Person:   *p,
		SpouseID: r.spouse[p.ID],
		Children: slices.Clone(r.children[p.ID]),
	}
}

// Restore rebuilds a registry from snapshot records. Ids must run 1..n and
// every edge must point at a known person; parents must have lower ids than
// their children and spouse edges must be mutual and between living people.
func Restore(records []Record, maxChildren int) (*Registry, error) {
	r := New(maxChildren)
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b Record) int {
		return int(a.ID) - int(b.ID)
	})

	for i, rec := range sorted {
		if rec.ID != agents.PersonID(i+1) {
			return nil, fmt.Errorf("restore: expected id %d, got %d", i+1, rec.ID)
		}
		p := rec.Person
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("restore person %d: %w", rec.ID, err)
		}
		r.people = append(r.people, &p)
		if p.Alive {
			r.active = append(r.active, p.ID)
		}
	}

	for _, rec := range sorted {
		for _, id := range []agents.PersonID{rec.MotherID, rec.FatherID, rec.SpouseID} {
			if id != agents.None && r.Get(id) == nil {
				return nil, fmt.Errorf("restore person %d: unknown relative %d", rec.ID, id)
			}
		}
		for _, id := range []agents.PersonID{rec.MotherID, rec.FatherID} {
			if id >= rec.ID {
				return nil, fmt.Errorf("restore person %d: parent %d registered after the child", rec.ID, id)
			}
		}
		if len(rec.Children) > maxChildren {
			return nil, capacity("restore", rec.ID, maxChildren)
		}
		for _, c := range rec.Children {
			if r.Get(c) == nil {
				return nil, fmt.Errorf("restore person %d: unknown child %d", rec.ID, c)
			}
			if c <= rec.ID {
				return nil, fmt.Errorf("restore person %d: child %d registered before the parent", rec.ID, c)
			}
			r.parents[c] = append(r.parents[c], rec.ID)
		}
		if len(rec.Children) > 0 {
			r.children[rec.ID] = slices.Clone(rec.Children)
		}
		if rec.SpouseID != agents.None {
			r.spouse[rec.ID] = rec.SpouseID
		}
	}

	for a, b := range r.spouse {
		if r.spouse[b] != a {
			return nil, fmt.Errorf("restore: spouse edge %d->%d is not mutual", a, b)
		}
		if !r.people[a-1].Alive {
			return nil, fmt.Errorf("restore: deceased person %d is still married", a)
		}
	}
	return r, nil
}
