package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/workspace-engine/pkg/attribute"
	"github.com/Mindburn-Labs/workspace-engine/pkg/audit"
	"github.com/Mindburn-Labs/workspace-engine/pkg/dvg/debounce"
	"github.com/Mindburn-Labs/workspace-engine/pkg/funcrun"
	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/Mindburn-Labs/workspace-engine/pkg/observability"
)

func newTestComponent(t *testing.T, s *graph.Snapshot, name string) graph.NodeID {
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

func disabledProvider(t *testing.T) *observability.Provider {
	t.Helper()
	p, err := observability.New(context.Background(), &observability.Config{Enabled: false})
	require.NoError(t, err)
	return p
}

// fakeFuncRunClient answers every Execute call with a fixed reply,
// recording the last request it saw.
type fakeFuncRunClient struct {
	reply      funcrun.Reply
	err        error
	lastReq    funcrun.Request
	callsCount int
}

func (f *fakeFuncRunClient) Execute(_ context.Context, req funcrun.Request) (funcrun.Reply, error) {
	f.lastReq = req
	f.callsCount++
	return f.reply, f.err
}

func newTestRunner(t *testing.T, registry *changeSetRegistry, client funcRunClient) *engineRunner {
	t.Helper()
	resolver, err := attribute.NewFuncResolver()
	require.NoError(t, err)
	return newEngineRunner(registry, resolver, nil, client, audit.NewStore(), disabledProvider(t), "ws-1")
}

// buildSubscriptionFixture wires source."/domain/Replicas" = 3 and
// mirror."/domain/Mirror" subscribed to it through a CEL doubling
// function, returning the snapshot with both pending dependent-value
// roots still anchored.
func buildSubscriptionFixture(t *testing.T) *graph.Snapshot {
	t.Helper()
	s := graph.New()
	newTestComponent(t, s, "source")
	newTestComponent(t, s, "mirror")
	resolver, err := attribute.NewFuncResolver()
	require.NoError(t, err)

	_, err = attribute.UpdateAttributes(s, resolver, "source", []attribute.AttributeUpdate{
		{Path: "/domain/Replicas", Source: attribute.ValueSource{Value: json.RawMessage(`3`)}},
	})
	require.NoError(t, err)

	_, err = attribute.UpdateAttributes(s, resolver, "mirror", []attribute.AttributeUpdate{
		{Path: "/domain/Mirror", Source: attribute.SubscriptionSource{
			Component: "source",
			Path:      "/domain/Replicas",
			Func:      "value + value",
		}},
	})
	require.NoError(t, err)
	return s
}

func TestEngineRunner_PendingWork_ReportsQueuedRoots(t *testing.T) {
	registry := newChangeSetRegistry(newMemObjectStore())
	snap := buildSubscriptionFixture(t)
	registry.Register("cs-1", snap)

	runner := newTestRunner(t, registry, &fakeFuncRunClient{})
	hasPending, status, err := runner.PendingWork(context.Background(), "cs-1")
	require.NoError(t, err)
	assert.True(t, hasPending)
	assert.Equal(t, debounce.StatusOpen, status)
}

func TestEngineRunner_RunDVU_ResolvesCELSubscriptionInProcess(t *testing.T) {
	registry := newChangeSetRegistry(newMemObjectStore())
	snap := buildSubscriptionFixture(t)
	registry.Register("cs-2", snap)

	runner := newTestRunner(t, registry, &fakeFuncRunClient{})
	require.NoError(t, runner.RunDVU(context.Background(), "cs-2"))

	mirrorRoot, err := attribute.EnsureComponentRoot(snap, mustTestComponent(t, snap, "mirror"))
	require.NoError(t, err)
	mirrorID, err := snap.ResolvePath(mirrorRoot, "/domain/Mirror")
	require.NoError(t, err)
	w, err := snap.NodeWeight(mirrorID)
	require.NoError(t, err)
	av := w.(*graph.AttributeValueWeight)
	assert.JSONEq(t, "6", string(av.Value))

	hasPending, _, err := runner.PendingWork(context.Background(), "cs-2")
	require.NoError(t, err)
	assert.False(t, hasPending, "RunDVU should finish every pending root")
}

func TestEngineRunner_RunDVU_CommitsToObjectStore(t *testing.T) {
	store := newMemObjectStore()
	registry := newChangeSetRegistry(store)
	snap := buildSubscriptionFixture(t)
	registry.Register("cs-3", snap)

	runner := newTestRunner(t, registry, &fakeFuncRunClient{})
	require.NoError(t, runner.RunDVU(context.Background(), "cs-3"))

	_, found, err := store.Get(context.Background(), snapshotObjectKey("cs-3"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestEngineRunner_RunDVU_DispatchesOpaqueBackendOverFuncrun(t *testing.T) {
	s := graph.New()
	newTestComponent(t, s, "source")
	newTestComponent(t, s, "mirror")
	resolver, err := attribute.NewFuncResolver()
	require.NoError(t, err)

	_, err = attribute.UpdateAttributes(s, resolver, "source", []attribute.AttributeUpdate{
		{Path: "/domain/Name", Source: attribute.ValueSource{Value: json.RawMessage(`"web-1"`)}},
	})
	require.NoError(t, err)
	_, err = attribute.UpdateAttributes(s, resolver, "mirror", []attribute.AttributeUpdate{
		{Path: "/domain/Name", Source: attribute.SubscriptionSource{Component: "source", Path: "/domain/Name"}},
	})
	require.NoError(t, err)

	// Force the installed prototype func to the opaque (sandboxed) backend,
	// the shape a JS-authored function would take.
	mirrorRoot, err := attribute.EnsureComponentRoot(s, mustTestComponent(t, s, "mirror"))
	require.NoError(t, err)
	nameID, err := s.ResolvePath(mirrorRoot, "/domain/Name")
	require.NoError(t, err)
	fn, fnID, ok := attribute.PrototypeFunc(s, nameID)
	require.True(t, ok)
	fn.Backend = graph.FuncBackendJS
	fn.Name = "uppercase"
	_, err = s.AddOrReplaceNode(fn)
	require.NoError(t, err)
	_ = fnID

	registry := newChangeSetRegistry(newMemObjectStore())
	registry.Register("cs-4", s)

	client := &fakeFuncRunClient{reply: funcrun.Reply{Status: funcrun.StatusSuccess, Value: json.RawMessage(`"WEB-1"`)}}
	runner := newTestRunner(t, registry, client)
	require.NoError(t, runner.RunDVU(context.Background(), "cs-4"))

	assert.Equal(t, 1, client.callsCount)
	assert.Equal(t, "uppercase", client.lastReq.FuncID)

	w, err := s.NodeWeight(nameID)
	require.NoError(t, err)
	av := w.(*graph.AttributeValueWeight)
	assert.JSONEq(t, `"WEB-1"`, string(av.Value))
}

func mustTestComponent(t *testing.T, s *graph.Snapshot, ref string) graph.NodeID {
	t.Helper()
	id, err := attribute.ResolveComponent(s, ref)
	require.NoError(t, err)
	return id
}
