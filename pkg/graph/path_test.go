package graph_test

import (
	"encoding/json"
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addAttributeValue(t *testing.T, s *graph.Snapshot, kind graph.PropKind, value any) graph.NodeID {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	id := s.GenerateULID()
	w := &graph.AttributeValueWeight{Value: raw, PropKind: kind}
	info := w.Info()
	info.ID = id
	w.CommonInfo = info
	added, err := s.AddNode(w)
	require.NoError(t, err)
	return added
}

func TestResolvePath_ObjectFields(t *testing.T) {
	s := graph.New()
	root := addAttributeValue(t, s, graph.PropKindObject, map[string]any{})
	leaf := addAttributeValue(t, s, graph.PropKindString, "hello")
	require.NoError(t, s.AddEdge(root, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "greeting"}, leaf))

	got, err := s.ResolvePath(root, "/greeting")
	require.NoError(t, err)
	assert.Equal(t, leaf, got)
}

func TestResolvePath_EmptyPathReturnsStart(t *testing.T) {
	s := graph.New()
	root := addAttributeValue(t, s, graph.PropKindObject, map[string]any{})

	got, err := s.ResolvePath(root, "")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = s.ResolvePath(root, "/")
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResolvePath_MissingFieldIsErrPathMissing(t *testing.T) {
	s := graph.New()
	root := addAttributeValue(t, s, graph.PropKindObject, map[string]any{})

	_, err := s.ResolvePath(root, "/nope")
	assert.ErrorIs(t, err, graph.ErrPathMissing)
}

func TestResolvePath_DescendIntoLeafIsErrPathInvalid(t *testing.T) {
	s := graph.New()
	leaf := addAttributeValue(t, s, graph.PropKindString, "hello")

	_, err := s.ResolvePath(leaf, "/anything")
	assert.ErrorIs(t, err, graph.ErrPathInvalid)
}

func TestResolvePath_ArrayIndexing(t *testing.T) {
	s := graph.New()
	root := addAttributeValue(t, s, graph.PropKindArray, []any{})
	e0 := addAttributeValue(t, s, graph.PropKindString, "zero")
	e1 := addAttributeValue(t, s, graph.PropKindString, "one")

	require.NoError(t, s.AddEdge(root, graph.EdgeWeight{Kind: graph.EdgeKindContain}, e0))
	require.NoError(t, s.AddEdge(root, graph.EdgeWeight{Kind: graph.EdgeKindContain}, e1))

	ordering := &graph.OrderingWeight{Order: []graph.NodeID{e0, e1}}
	orderingInfo := ordering.Info()
	orderingInfo.ID = s.GenerateULID()
	ordering.CommonInfo = orderingInfo
	orderingID, err := s.AddNode(ordering)
	require.NoError(t, err)
	require.NoError(t, s.AddEdge(root, graph.EdgeWeight{Kind: graph.EdgeKindOrdering}, orderingID))

	got, err := s.ResolvePath(root, "/1")
	require.NoError(t, err)
	assert.Equal(t, e1, got)

	_, err = s.ResolvePath(root, "/5")
	assert.ErrorIs(t, err, graph.ErrPathOutOfBounds)

	_, err = s.ResolvePath(root, "/-")
	assert.ErrorIs(t, err, graph.ErrPathInvalid)
}

func TestResolvePath_NonIntegerArrayIndexIsInvalid(t *testing.T) {
	s := graph.New()
	root := addAttributeValue(t, s, graph.PropKindArray, []any{})

	_, err := s.ResolvePath(root, "/notanumber")
	assert.ErrorIs(t, err, graph.ErrPathInvalid)
}
