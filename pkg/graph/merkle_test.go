package graph_test

import (
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyMerkle_TrueForUntouchedSnapshot(t *testing.T) {
	s := graph.New()
	a := newComponent(t, s, "a")

	ok, err := s.VerifyMerkle(a)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VerifyMerkle(s.Root())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMerkleHash_ChangesOnEdgeAdd(t *testing.T) {
	s := graph.New()
	a := newComponent(t, s, "a")
	b := newComponent(t, s, "b")

	wA, err := s.NodeWeight(a)
	require.NoError(t, err)
	before := wA.Info().MerkleHash

	require.NoError(t, s.AddEdge(a, graph.EdgeWeight{Kind: graph.EdgeKindUse}, b))

	wA, err = s.NodeWeight(a)
	require.NoError(t, err)
	after := wA.Info().MerkleHash

	assert.NotEqual(t, before, after)
}

func TestMerkleHash_PropagatesToAncestors(t *testing.T) {
	s := graph.New()
	a := newComponent(t, s, "a")
	b := newComponent(t, s, "b")
	require.NoError(t, s.AddEdge(s.Root(), graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "a"}, a))

	rootBefore, err := s.NodeWeight(s.Root())
	require.NoError(t, err)
	before := rootBefore.Info().MerkleHash

	require.NoError(t, s.AddEdge(a, graph.EdgeWeight{Kind: graph.EdgeKindUse}, b))
	require.NoError(t, s.RecomputeMerkleHashesFrom([]graph.NodeID{a}))

	rootAfter, err := s.NodeWeight(s.Root())
	require.NoError(t, err)
	after := rootAfter.Info().MerkleHash

	assert.NotEqual(t, before, after, "mutating a descendant must change every ancestor's merkle hash up to root")
}

func TestMerkleHash_PropagatesToAncestorsOnContentReplace(t *testing.T) {
	s := graph.New()
	a := newComponent(t, s, "a")
	require.NoError(t, s.AddEdge(s.Root(), graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "a"}, a))

	rootBefore, err := s.NodeWeight(s.Root())
	require.NoError(t, err)
	before := rootBefore.Info().MerkleHash

	wA, err := s.NodeWeight(a)
	require.NoError(t, err)
	replaced := wA.(*graph.ComponentWeight)
	replaced.Name = "a-renamed"
	_, err = s.AddOrReplaceNode(replaced)
	require.NoError(t, err)

	rootAfter, err := s.NodeWeight(s.Root())
	require.NoError(t, err)
	after := rootAfter.Info().MerkleHash

	assert.NotEqual(t, before, after, "replacing a node's content must change every ancestor's merkle hash up to root, not just the node itself")
}

func TestMerkleHash_OrderIndependentOverIsomorphicEdgeSets(t *testing.T) {
	s1 := graph.New()
	a1 := newComponent(t, s1, "a")
	b1 := newComponent(t, s1, "b")
	c1 := newComponent(t, s1, "c")
	require.NoError(t, s1.AddEdge(a1, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "b"}, b1))
	require.NoError(t, s1.AddEdge(a1, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "c"}, c1))

	s2 := graph.New()
	a2 := newComponent(t, s2, "a")
	c2 := newComponent(t, s2, "c")
	b2 := newComponent(t, s2, "b")
	require.NoError(t, s2.AddEdge(a2, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "c"}, c2))
	require.NoError(t, s2.AddEdge(a2, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "b"}, b2))

	w1, err := s1.NodeWeight(a1)
	require.NoError(t, err)
	w2, err := s2.NodeWeight(a2)
	require.NoError(t, err)

	assert.Equal(t, w1.Info().MerkleHash, w2.Info().MerkleHash,
		"merkle hash must be independent of the order edges were added in")
}
