package entity

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lkerrors "github.com/conneroisu/lenskit/internal/errors"
)

func buildChain(t *testing.T, depth int) (*Manager, *Tree, []Entity) {
	t.Helper()
	m := NewManager()
	tree := NewTree()
	root := m.Create()
	require.Equal(t, Root, root)

	chain := []Entity{root}
	for i := 0; i < depth; i++ {
		e := m.Create()
		require.NoError(t, tree.Add(e, chain[len(chain)-1]))
		chain = append(chain, e)
	}
	return m, tree, chain
}

func TestManagerRecyclesDestroyedIDs(t *testing.T) {
	m := NewManager()
	a := m.Create()
	b := m.Create()
	c := m.Create()
	assert.Equal(t, []Entity{0, 1, 2}, []Entity{a, b, c})

	assert.True(t, m.Destroy(b))
	assert.False(t, m.Destroy(b), "double destroy is a no-op")
	assert.False(t, m.Alive(b))

	assert.Equal(t, b, m.Create(), "freed id is handed out again")
	assert.Equal(t, Entity(3), m.Create())
	assert.Equal(t, 4, m.Count())
}

func TestTreeLineageIsNearestFirst(t *testing.T) {
	_, tree, chain := buildChain(t, 3)
	leaf := chain[3]

	got := slices.Collect(tree.Lineage(leaf))
	assert.Equal(t, []Entity{chain[3], chain[2], chain[1], Root}, got)

	// Restartable.
	again := slices.Collect(tree.Lineage(leaf))
	assert.Equal(t, got, again)

	assert.Equal(t, []Entity{chain[2], chain[1], Root}, slices.Collect(tree.Ancestors(leaf)))
	assert.Equal(t, 3, tree.Depth(leaf))
	assert.True(t, tree.IsAncestor(chain[1], leaf))
	assert.False(t, tree.IsAncestor(leaf, leaf))
}

func TestTreeAddRejectsInvalidParent(t *testing.T) {
	m := NewManager()
	tree := NewTree()
	m.Create()
	orphan := m.Create()

	err := tree.Add(orphan, Entity(42))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lkerrors.ErrInvalidParent))

	require.NoError(t, tree.Add(orphan, Root))
	assert.Error(t, tree.Add(orphan, Root), "already in tree")
}

func TestTreeChildAtAndRemove(t *testing.T) {
	m := NewManager()
	tree := NewTree()
	m.Create()

	a, b := m.Create(), m.Create()
	require.NoError(t, tree.Add(a, Root))
	require.NoError(t, tree.Add(b, Root))
	a1 := m.Create()
	require.NoError(t, tree.Add(a1, a))

	got, ok := tree.ChildAt(Root, 1)
	require.True(t, ok)
	assert.Equal(t, b, got)
	_, ok = tree.ChildAt(Root, 2)
	assert.False(t, ok)

	removed := tree.Remove(a)
	assert.Equal(t, []Entity{a1, a}, removed)
	assert.False(t, tree.Contains(a1))
	assert.Equal(t, []Entity{b}, tree.Children(Root))
	assert.Nil(t, tree.Remove(Root))
}
