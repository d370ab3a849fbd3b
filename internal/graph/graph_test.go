package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Equal(t, 1, g.Len())

	g.AddNode("a") // Test idempotency
	assert.Equal(t, 1, g.Len())

	g.AddNode("b")
	assert.Equal(t, 2, g.Len())
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("a", "b") // b depends on a
		require.NoError(t, err)

		deps, err := g.Dependencies("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, deps)

		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("dne", "a")
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge("a", "dne")
		assert.ErrorContains(t, err, "destination node not found")

		err = g.AddEdge("a", "a")
		assert.ErrorContains(t, err, "self-referential edge")
	})
}

func TestDependencies_Sorted(t *testing.T) {
	g := New()
	for _, id := range []string{"z", "m", "a", "sink"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("z", "sink"))
	require.NoError(t, g.AddEdge("a", "sink"))
	require.NoError(t, g.AddEdge("m", "sink"))

	deps, err := g.Dependencies("sink")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, deps)

	_, err = g.Dependencies("dne")
	assert.ErrorContains(t, err, "node not found")
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		g := New()
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("linear chain has no cycles", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))

		assert.NoError(t, g.DetectCycles())
	})

	t.Run("diamond has no cycles", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("a", "c"))
		require.NoError(t, g.AddEdge("b", "d"))
		require.NoError(t, g.AddEdge("c", "d"))

		assert.NoError(t, g.DetectCycles())
	})

	t.Run("two-node cycle is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		assert.ErrorContains(t, g.DetectCycles(), "cycle detected")
	})

	t.Run("longer cycle behind a tail is detected", func(t *testing.T) {
		g := New()
		for _, id := range []string{"entry", "a", "b", "c"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("entry", "a"))
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("c", "a"))

		assert.ErrorContains(t, g.DetectCycles(), "cycle detected")
	})
}

func TestStableTopoSort(t *testing.T) {
	build := func() *Graph {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		// Diamond: a -> {b, c} -> d.
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("a", "c"))
		require.NoError(t, g.AddEdge("b", "d"))
		require.NoError(t, g.AddEdge("c", "d"))
		return g
	}

	t.Run("respects the dependency order", func(t *testing.T) {
		g := build()
		ordered, err := g.StableTopoSort([]string{"a", "b", "c", "d"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, ordered)
	})

	t.Run("ties follow the preference order", func(t *testing.T) {
		g := build()
		ordered, err := g.StableTopoSort([]string{"a", "c", "b", "d"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "b", "d"}, ordered)
	})

	t.Run("is deterministic across repeated calls", func(t *testing.T) {
		g := build()
		first, err := g.StableTopoSort([]string{"a", "b", "c", "d"})
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			again, err := g.StableTopoSort([]string{"a", "b", "c", "d"})
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("unlisted nodes sort after listed ones", func(t *testing.T) {
		g := New()
		g.AddNode("x")
		g.AddNode("y")
		ordered, err := g.StableTopoSort([]string{"y"})
		require.NoError(t, err)
		assert.Equal(t, []string{"y", "x"}, ordered)
	})

	t.Run("cycle surfaces as an error", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		_, err := g.StableTopoSort(nil)
		assert.ErrorContains(t, err, "not acyclic")
	})
}
