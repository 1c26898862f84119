package dvg_test

import (
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/attribute"
	"github.com/Mindburn-Labs/workspace-engine/pkg/dvg"
	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingRoots_ReflectsQueuedUpdates(t *testing.T) {
	s := graph.New()
	newComponent(t, s, "web")
	resolver := newResolver(t)

	_, err := attribute.UpdateAttributes(s, resolver, "web", []attribute.AttributeUpdate{
		{Path: "/domain/Name", Source: mustValueSource(`"web-1"`)},
	})
	require.NoError(t, err)

	roots, forced, nodeIDs := dvg.PendingRoots(s)
	require.Len(t, roots, 1)
	require.Len(t, nodeIDs, 1)
	assert.Empty(t, forced)
}

func TestBuildFromPending_ConsumesEveryQueuedRoot(t *testing.T) {
	s := graph.New()
	newComponent(t, s, "web")
	resolver := newResolver(t)

	_, err := attribute.UpdateAttributes(s, resolver, "web", []attribute.AttributeUpdate{
		{Path: "/domain/Name", Source: mustValueSource(`"web-1"`)},
		{Path: "/domain/Port", Source: mustValueSource(`8080`)},
	})
	require.NoError(t, err)

	g, rootNodeIDs, err := dvg.BuildFromPending(s, nil)
	require.NoError(t, err)
	assert.Len(t, rootNodeIDs, 2)
	assert.NotEmpty(t, g.IndependentValues())
}

func TestFinishRoot_ReplacesPendingMarkerWithFinished(t *testing.T) {
	s := graph.New()
	newComponent(t, s, "web")
	resolver := newResolver(t)

	_, err := attribute.UpdateAttributes(s, resolver, "web", []attribute.AttributeUpdate{
		{Path: "/domain/Name", Source: mustValueSource(`"web-1"`)},
	})
	require.NoError(t, err)

	_, _, rootNodeIDs := dvg.PendingRoots(s)
	require.Len(t, rootNodeIDs, 1)

	require.NoError(t, dvg.FinishRoot(s, rootNodeIDs[0]))

	roots, _, remaining := dvg.PendingRoots(s)
	assert.Empty(t, roots)
	assert.Empty(t, remaining)

	var finished int
	for _, e := range s.EdgesDirected(s.Root(), graph.Outgoing) {
		if e.Weight.Kind != graph.EdgeKindContain {
			continue
		}
		w, err := s.NodeWeight(e.Destination)
		require.NoError(t, err)
		if _, ok := w.(*graph.FinishedDependentValueRootWeight); ok {
			finished++
		}
	}
	assert.Equal(t, 1, finished)
}
