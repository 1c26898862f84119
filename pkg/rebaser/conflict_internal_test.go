package rebaser

import (
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectConflicts_DanglingEdgeDestination(t *testing.T) {
	target := graph.New()
	source := graph.New()
	ghostDestination := source.GenerateULID()

	updates := []Update{
		NewEdge{Source: target.Root(), Destination: ghostDestination, Weight: graph.EdgeWeight{Kind: graph.EdgeKindUse}},
	}

	conflicts := detectConflicts(target, updates)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictDanglingEdge, conflicts[0].Reason)
	assert.Equal(t, ghostDestination, conflicts[0].NodeID)
}

func TestDetectConflicts_NoConflictWhenDestinationIsAlsoNew(t *testing.T) {
	target := graph.New()
	w := &graph.ComponentWeight{Name: "new"}
	info := w.Info()
	info.ID = target.GenerateULID()
	w.CommonInfo = info

	updates := []Update{
		NewNode{Weight: w},
		NewEdge{Source: target.Root(), Destination: info.ID, Weight: graph.EdgeWeight{Kind: graph.EdgeKindUse}},
	}

	conflicts := detectConflicts(target, updates)
	assert.Empty(t, conflicts)
}
