package rebaser_test

import (
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/Mindburn-Labs/workspace-engine/pkg/rebaser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_AddsNewComponentToTarget(t *testing.T) {
	base := graph.New()
	target := base.Clone()
	source := base.Clone()

	a := addComponent(t, source, "a")
	require.NoError(t, source.AddEdge(source.Root(), graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "a"}, a))

	next, conflicts, err := rebaser.Apply(source, target)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.NotNil(t, next)

	_, err = next.NodeWeight(a)
	assert.NoError(t, err)

	outs := next.EdgesDirected(next.Root(), graph.Outgoing)
	require.Len(t, outs, 1)
	assert.Equal(t, a, outs[0].Destination)
}

func TestApply_NoChangesYieldsEquivalentSnapshot(t *testing.T) {
	base := graph.New()
	addComponent(t, base, "a")
	target := base.Clone()
	source := base.Clone()

	next, conflicts, err := rebaser.Apply(source, target)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.ElementsMatch(t, target.Nodes(), next.Nodes())
}
