package attribute_test

import (
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/attribute"
	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newComponent(t *testing.T, s *graph.Snapshot, name string) graph.NodeID {
	t.Helper()
	w := &graph.ComponentWeight{Name: name}
	info := w.Info()
	info.ID = s.GenerateULID()
	info.LineageID = graph.NewLineageID()
	w.CommonInfo = info
	id, err := s.AddNode(w)
	require.NoError(t, err)
	return id
}

func TestResolveComponent_ByID(t *testing.T) {
	s := graph.New()
	c := newComponent(t, s, "web")

	found, err := attribute.ResolveComponent(s, c.String())
	require.NoError(t, err)
	assert.Equal(t, c, found)
}

func TestResolveComponent_ByName(t *testing.T) {
	s := graph.New()
	c := newComponent(t, s, "web")

	found, err := attribute.ResolveComponent(s, "web")
	require.NoError(t, err)
	assert.Equal(t, c, found)
}

func TestResolveComponent_DuplicateNameIsAmbiguous(t *testing.T) {
	s := graph.New()
	newComponent(t, s, "web")
	newComponent(t, s, "web")

	_, err := attribute.ResolveComponent(s, "web")
	assert.ErrorIs(t, err, attribute.ErrDuplicateComponentName)
}

func TestResolveComponent_NotFound(t *testing.T) {
	s := graph.New()
	_, err := attribute.ResolveComponent(s, "nonexistent")
	assert.ErrorIs(t, err, attribute.ErrSourceComponentNotFound)
}

func TestEnsureComponentRoot_IsIdempotent(t *testing.T) {
	s := graph.New()
	c := newComponent(t, s, "web")

	root1, err := attribute.EnsureComponentRoot(s, c)
	require.NoError(t, err)
	root2, err := attribute.EnsureComponentRoot(s, c)
	require.NoError(t, err)
	assert.Equal(t, root1, root2)

	w, err := s.NodeWeight(root1)
	require.NoError(t, err)
	av, ok := w.(*graph.AttributeValueWeight)
	require.True(t, ok)
	assert.Equal(t, graph.PropKindObject, av.PropKind)
}

func TestValidateBelongsToComponent(t *testing.T) {
	s := graph.New()
	web := newComponent(t, s, "web")
	db := newComponent(t, s, "db")

	nameID, err := attribute.Vivify(s, mustRoot(t, s, web), "/domain/Name")
	require.NoError(t, err)

	assert.NoError(t, attribute.ValidateBelongsToComponent(s, web, nameID))

	dbRoot := mustRoot(t, s, db)
	err = attribute.ValidateBelongsToComponent(s, db, nameID)
	assert.ErrorIs(t, err, attribute.ErrValueNotFromComponent)
	assert.NotEqual(t, dbRoot, nameID)
}

func mustRoot(t *testing.T, s *graph.Snapshot, componentID graph.NodeID) graph.NodeID {
	t.Helper()
	root, err := attribute.EnsureComponentRoot(s, componentID)
	require.NoError(t, err)
	return root
}
