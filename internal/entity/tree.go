package entity

import (
	"iter"
	"slices"

	lkerrors "github.com/conneroisu/lenskit/internal/errors"
)

// Tree stores the parent/child relation of live entities. Children keep
// insertion order, which is the positional order used when views are rebuilt.
type Tree struct {
	parent   map[Entity]Entity
	children map[Entity][]Entity
}

// NewTree creates a tree whose only node is Root.
func NewTree() *Tree {
	t := &Tree{
		parent:   make(map[Entity]Entity),
		children: make(map[Entity][]Entity),
	}
	t.parent[Root] = Null
	return t
}

// Contains reports whether e is a node of the tree.
func (t *Tree) Contains(e Entity) bool {
	_, ok := t.parent[e]
	return ok
}

// Len returns the number of nodes, Root included.
func (t *Tree) Len() int { return len(t.parent) }

// Add appends child to parent's children. The parent must be in the tree and
// the child must not be.
func (t *Tree) Add(child, parent Entity) error {
	if !t.Contains(parent) || t.Contains(child) || child == Null {
		return lkerrors.NewInvalidParentError(uint32(child), uint32(parent))
	}
	t.parent[child] = parent
	t.children[parent] = append(t.children[parent], child)
	return nil
}

// Parent returns the parent of e. Root and unknown entities have none.
func (t *Tree) Parent(e Entity) (Entity, bool) {
	p, ok := t.parent[e]
	if !ok || p == Null {
		return Null, false
	}
	return p, true
}

// Children returns a copy of e's children in positional order.
func (t *Tree) Children(e Entity) []Entity {
	return slices.Clone(t.children[e])
}

// ChildAt returns the child of parent at position index.
func (t *Tree) ChildAt(parent Entity, index int) (Entity, bool) {
	kids := t.children[parent]
	if index < 0 || index >= len(kids) {
		return Null, false
	}
	return kids[index], true
}

// ChildCount returns the number of children of e.
func (t *Tree) ChildCount(e Entity) int {
	return len(t.children[e])
}

// Lineage yields e and then its ancestors, nearest first and Root last. The
// sequence is finite and can be ranged over more than once.
func (t *Tree) Lineage(e Entity) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		if !t.Contains(e) {
			return
		}
		for cur := e; cur != Null; cur = t.parent[cur] {
			if !yield(cur) {
				return
			}
		}
	}
}

// Ancestors yields the strict ancestors of e, nearest first.
func (t *Tree) Ancestors(e Entity) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		first := true
		for cur := range t.Lineage(e) {
			if first {
				first = false
				continue
			}
			if !yield(cur) {
				return
			}
		}
	}
}

// IsAncestor reports whether a is a strict ancestor of e.
func (t *Tree) IsAncestor(a, e Entity) bool {
	for cur := range t.Ancestors(e) {
		if cur == a {
			return true
		}
	}
	return false
}

// Depth returns the number of ancestors of e.
func (t *Tree) Depth(e Entity) int {
	d := 0
	for range t.Ancestors(e) {
		d++
	}
	return d
}

// Descendants yields the subtree below e in post-order, so every node comes
// after its children. e itself is not included.
func (t *Tree) Descendants(e Entity) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		t.walkPost(e, yield)
	}
}

func (t *Tree) walkPost(e Entity, yield func(Entity) bool) bool {
	for _, c := range t.children[e] {
		if !t.walkPost(c, yield) || !yield(c) {
			return false
		}
	}
	return true
}

// Remove detaches e and its whole subtree and returns the removed entities
// in post-order (e last). Root cannot be removed.
func (t *Tree) Remove(e Entity) []Entity {
	if e == Root || !t.Contains(e) {
		return nil
	}
	removed := slices.Collect(t.Descendants(e))
	removed = append(removed, e)

	if p, ok := t.Parent(e); ok {
		t.children[p] = slices.DeleteFunc(t.children[p], func(c Entity) bool { return c == e })
	}
	for _, r := range removed {
		delete(t.parent, r)
		delete(t.children, r)
	}
	return removed
}
