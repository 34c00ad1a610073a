// Package kinship answers family-tree questions over the registry: parents,
// ancestors, grandparents and whether two people are too closely related to
// marry. Dead people are part of every query.
package kinship

import (
	"maps"
	"slices"

	"github.com/talgya/lineage/internal/agents"
)

// Graph is the read-only view of the registry the oracle needs.
// *registry.Registry satisfies it. Parents must be registered before their
// children, so an ancestor always has a lower id than its descendants.
type Graph interface {
	Get(id agents.PersonID) *agents.Person
	Children(id agents.PersonID) []agents.PersonID
	Parents(id agents.PersonID) []agents.PersonID
}

// Oracle computes kinship over a Graph. It holds no state of its own, so
// results always reflect the graph's current edges.
type Oracle struct {
	g Graph
}

// New creates an oracle over g.
func New(g Graph) *Oracle {
	return &Oracle{g: g}
}

// Parents returns the birth parents of id. Recorded mother and father ids
// win; when neither is set the graph's child edges are used.
func (o *Oracle) Parents(id agents.PersonID) []agents.PersonID {
	p := o.g.Get(id)
	if p == nil {
		return nil
	}
	if p.HasParents() {
		var parents []agents.PersonID
		for _, pid := range []agents.PersonID{p.FatherID, p.MotherID} {
			if pid != agents.None {
				parents = append(parents, pid)
			}
		}
		return parents
	}

	return o.g.Parents(id)
}

// Ancestors returns every ancestor of id over all generations, in id order.
// A visited set guarantees termination even on a malformed graph.
func (o *Oracle) Ancestors(id agents.PersonID) []agents.PersonID {
	return sortedKeys(o.ancestorSet(id))
}

func (o *Oracle) ancestorSet(id agents.PersonID) map[agents.PersonID]struct{} {
	seen := make(map[agents.PersonID]struct{})
	queue := o.Parents(id)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := seen[next]; ok || next == id {
			continue
		}
		seen[next] = struct{}{}
		queue = append(queue, o.Parents(next)...)
	}
	return seen
}

// Grandparents returns the union of the parents of id's parents.
func (o *Oracle) Grandparents(id agents.PersonID) []agents.PersonID {
	set := make(map[agents.PersonID]struct{})
	for _, gp := range o.grandparents(id) {
		set[gp] = struct{}{}
	}
	return sortedKeys(set)
}

func (o *Oracle) grandparents(id agents.PersonID) []agents.PersonID {
	var out []agents.PersonID
	for _, parent := range o.Parents(id) {
		out = append(out, o.Parents(parent)...)
	}
	return out
}

// IsAncestor reports whether ancestor appears anywhere above id. The walk
// stops at people registered before ancestor, since none of their
// forebears can be below it.
func (o *Oracle) IsAncestor(ancestor, id agents.PersonID) bool {
	if ancestor == agents.None || ancestor >= id {
		return false
	}
	seen := make(map[agents.PersonID]struct{})
	queue := o.Parents(id)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == ancestor {
			return true
		}
		if next < ancestor {
			continue
		}
		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}
		queue = append(queue, o.Parents(next)...)
	}
	return false
}

// AreCloseRelatives reports whether a and b are the same person, in a
// direct line, siblings or half-siblings, or first cousins. The checks run
// cheapest first; the result is symmetric.
func (o *Oracle) AreCloseRelatives(a, b agents.PersonID) bool {
	if a == b {
		return true
	}
	if overlaps(o.Parents(a), o.Parents(b)) {
		return true
	}
	if overlaps(o.grandparents(a), o.grandparents(b)) {
		return true
	}
	return o.IsAncestor(a, b) || o.IsAncestor(b, a)
}

// IsLineage reports whether id is in a direct line with head: head
// itself, one of head's ancestors or one of head's descendants.
func (o *Oracle) IsLineage(id, head agents.PersonID) bool {
	if id == agents.None || head == agents.None {
		return false
	}
	return id == head || o.IsAncestor(id, head) || o.IsAncestor(head, id)
}

// Lineage returns head's whole direct line as a set: head, every ancestor
// and every descendant. Membership matches IsLineage; callers asking about
// many people at once should build the set once.
func (o *Oracle) Lineage(head agents.PersonID) map[agents.PersonID]struct{} {
	if head == agents.None || o.g.Get(head) == nil {
		return map[agents.PersonID]struct{}{}
	}
	line := o.ancestorSet(head)
	maps.Copy(line, o.descendantSet(head))
	line[head] = struct{}{}
	return line
}

// Descendants returns everyone below id, in id order.
func (o *Oracle) Descendants(id agents.PersonID) []agents.PersonID {
	return sortedKeys(o.descendantSet(id))
}

func (o *Oracle) descendantSet(id agents.PersonID) map[agents.PersonID]struct{} {
	seen := make(map[agents.PersonID]struct{})
	queue := o.g.Children(id)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := seen[next]; ok || next == id {
			continue
		}
		seen[next] = struct{}{}
		queue = append(queue, o.g.Children(next)...)
	}
	return seen
}

func overlaps(a, b []agents.PersonID) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[agents.PersonID]struct{}) []agents.PersonID {
	return slices.Sorted(maps.Keys(set))
}
