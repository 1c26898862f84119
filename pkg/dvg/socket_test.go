package dvg_test

import (
	"encoding/json"
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/attribute"
	"github.com/Mindburn-Labs/workspace-engine/pkg/dvg"
	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInfo(s *graph.Snapshot) graph.CommonInfo {
	return graph.CommonInfo{ID: s.GenerateULID(), LineageID: graph.NewLineageID()}
}

func newOutputSocket(t *testing.T, s *graph.Snapshot, name string) graph.NodeID {
	t.Helper()
	w := &graph.OutputSocketWeight{CommonInfo: newInfo(s), Name: name}
	id, err := s.AddNode(w)
	require.NoError(t, err)
	return id
}

func newInputSocket(t *testing.T, s *graph.Snapshot, name string) graph.NodeID {
	t.Helper()
	w := &graph.InputSocketWeight{CommonInfo: newInfo(s), Name: name}
	id, err := s.AddNode(w)
	require.NoError(t, err)
	return id
}

func wireComponentToSocket(t *testing.T, s *graph.Snapshot, componentID, socketID graph.NodeID) {
	t.Helper()
	require.NoError(t, s.AddEdge(componentID, graph.EdgeWeight{Kind: graph.EdgeKindContain}, socketID))
}

func TestSocketDependentsOf_WiredConnectionPropagates(t *testing.T) {
	s := graph.New()
	from := newComponent(t, s, "db")
	to := newComponent(t, s, "web")
	resolver := newResolver(t)

	report, err := attribute.UpdateAttributes(s, resolver, "db", []attribute.AttributeUpdate{
		{Path: "/resource/endpoint", Source: attribute.ValueSource{Value: json.RawMessage(`"db.local:5432"`)}},
	})
	require.NoError(t, err)
	outputValueID := report.MutatedValueIDs[0]

	report, err = attribute.UpdateAttributes(s, resolver, "web", []attribute.AttributeUpdate{
		{Path: "/domain/Peer", Source: attribute.ValueSource{Value: json.RawMessage(`null`)}},
	})
	require.NoError(t, err)
	inputValueID := report.MutatedValueIDs[0]

	outputSocket := newOutputSocket(t, s, "endpoint")
	inputSocket := newInputSocket(t, s, "peer")
	wireComponentToSocket(t, s, from, outputSocket)
	wireComponentToSocket(t, s, to, inputSocket)

	require.NoError(t, dvg.LinkSocketValue(s, outputSocket, outputValueID))
	require.NoError(t, dvg.LinkSocketValue(s, inputSocket, inputValueID))
	require.NoError(t, dvg.ConnectSockets(s, outputSocket, inputSocket))

	g, err := dvg.Build(s, []graph.NodeID{outputValueID}, nil)
	require.NoError(t, err)

	assert.Contains(t, g.DirectDependenciesOf(inputValueID), outputValueID)
}

func TestSocketDependentsOf_DeletionAsymmetryBlocksFlow(t *testing.T) {
	s := graph.New()
	from := newComponent(t, s, "db")
	to := newComponent(t, s, "web")
	resolver := newResolver(t)

	toWeight, err := s.NodeWeight(to)
	require.NoError(t, err)
	toComponent := toWeight.(*graph.ComponentWeight)
	toComponent.ToDelete = true
	_, err = s.AddOrReplaceNode(toComponent)
	require.NoError(t, err)

	report, err := attribute.UpdateAttributes(s, resolver, "db", []attribute.AttributeUpdate{
		{Path: "/resource/endpoint", Source: attribute.ValueSource{Value: json.RawMessage(`"db.local:5432"`)}},
	})
	require.NoError(t, err)
	outputValueID := report.MutatedValueIDs[0]

	report, err = attribute.UpdateAttributes(s, resolver, "web", []attribute.AttributeUpdate{
		{Path: "/domain/Peer", Source: attribute.ValueSource{Value: json.RawMessage(`null`)}},
	})
	require.NoError(t, err)
	inputValueID := report.MutatedValueIDs[0]

	outputSocket := newOutputSocket(t, s, "endpoint")
	inputSocket := newInputSocket(t, s, "peer")
	wireComponentToSocket(t, s, from, outputSocket)
	wireComponentToSocket(t, s, to, inputSocket)

	require.NoError(t, dvg.LinkSocketValue(s, outputSocket, outputValueID))
	require.NoError(t, dvg.LinkSocketValue(s, inputSocket, inputValueID))
	require.NoError(t, dvg.ConnectSockets(s, outputSocket, inputSocket))

	g, err := dvg.Build(s, []graph.NodeID{outputValueID}, nil)
	require.NoError(t, err)

	assert.NotContains(t, g.DirectDependenciesOf(inputValueID), outputValueID)
}
