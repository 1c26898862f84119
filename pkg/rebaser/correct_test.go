package rebaser_test

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/Mindburn-Labs/workspace-engine/pkg/rebaser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addSchemaVariant(t *testing.T, s *graph.Snapshot, schema graph.NodeID, version string, locked bool) graph.NodeID {
	t.Helper()
	v, err := semver.NewVersion(version)
	require.NoError(t, err)
	w := &graph.SchemaVariantWeight{Name: "v" + version, Locked: locked, Version: v}
	info := w.Info()
	info.ID = s.GenerateULID()
	info.LineageID = graph.NewLineageID()
	w.CommonInfo = info
	id, err := s.AddNode(w)
	require.NoError(t, err)
	require.NoError(t, s.AddEdge(schema, graph.EdgeWeight{Kind: graph.EdgeKindUse}, id))
	return id
}

func TestCorrectUpdates_RelocksPriorUnlockedVariant(t *testing.T) {
	base := graph.New()
	schema := addComponent(t, base, "schema") // any node can stand in as the "Schema" anchor here
	require.NoError(t, base.AddEdge(base.Root(), graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "schema"}, schema))
	oldVariant := addSchemaVariant(t, base, schema, "1.0.0", false)

	target := base.Clone()
	source := base.Clone()

	newVariant := addSchemaVariant(t, source, schema, "1.1.0", false)

	raw, err := rebaser.DetectUpdates(source, target)
	require.NoError(t, err)

	corrected, err := rebaser.CorrectUpdates(source, target, raw)
	require.NoError(t, err)

	var relockedOld bool
	var sawNewVariant bool
	for _, u := range corrected {
		switch t := u.(type) {
		case rebaser.ReplaceNode:
			if sv, ok := t.Weight.(*graph.SchemaVariantWeight); ok && sv.ID == oldVariant {
				assert.True(t, sv.Locked, "the pre-existing unlocked variant must be relocked")
				relockedOld = true
			}
		case rebaser.NewNode:
			if sv, ok := t.Weight.(*graph.SchemaVariantWeight); ok && sv.ID == newVariant {
				assert.False(t, sv.Locked, "the winning new variant stays unlocked")
				sawNewVariant = true
			}
		}
	}
	assert.True(t, relockedOld)
	assert.True(t, sawNewVariant)
}

// TestCorrectUpdates_ExclusiveOutgoingRemovesPriorEdge covers the case the
// generic correction exists for: applying a raw update list against a
// target that, by the time of correction, already carries a conflicting
// exclusive-outgoing edge the raw diff never saw (the target moved between
// detection and correction/apply).
func TestCorrectUpdates_ExclusiveOutgoingRemovesPriorEdge(t *testing.T) {
	source := graph.New()
	target := graph.New()

	parent := addComponent(t, target, "parent")
	oldChild := addComponent(t, target, "old")
	require.NoError(t, target.AddEdge(parent, graph.EdgeWeight{Kind: graph.EdgeKindPrototype}, oldChild))

	newChild := addComponent(t, target, "new")
	raw := []rebaser.Update{
		rebaser.NewEdge{Source: parent, Destination: newChild, Weight: graph.EdgeWeight{Kind: graph.EdgeKindPrototype}},
	}

	corrected, err := rebaser.CorrectUpdates(source, target, raw)
	require.NoError(t, err)

	var sawRemoveOld bool
	for _, u := range corrected {
		if re, ok := u.(rebaser.RemoveEdge); ok && re.Source == parent && re.Destination == oldChild && re.Kind == graph.EdgeKindPrototype {
			sawRemoveOld = true
		}
	}
	assert.True(t, sawRemoveOld)
}
