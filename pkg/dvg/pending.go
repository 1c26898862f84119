package dvg

import (
	"strings"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
)

// dvRootKeyPrefix matches the key attribute.UpdateAttributes uses when it
// anchors a pending DependentValueRoot under the snapshot root.
const dvRootKeyPrefix = "dvroot:"

// PendingRoots collects the attribute values queued for recomputation
// (every DependentValueRootWeight still anchored under the snapshot
// root) along with the set that must run from their prototype function
// regardless of whether their inputs actually changed.
func PendingRoots(snap *graph.Snapshot) (roots []graph.NodeID, forcePrototype []graph.NodeID, rootNodeIDs []graph.NodeID) {
	for _, e := range snap.EdgesDirected(snap.Root(), graph.Outgoing) {
		if e.Weight.Kind != graph.EdgeKindContain || !strings.HasPrefix(e.Weight.Key, dvRootKeyPrefix) {
			continue
		}
		w, err := snap.NodeWeight(e.Destination)
		if err != nil {
			continue
		}
		dvr, ok := w.(*graph.DependentValueRootWeight)
		if !ok {
			continue
		}
		roots = append(roots, dvr.ValueID)
		rootNodeIDs = append(rootNodeIDs, e.Destination)
		if dvr.FromPrototypeExecution {
			forcePrototype = append(forcePrototype, dvr.ValueID)
		}
	}
	return roots, forcePrototype, rootNodeIDs
}

// BuildFromPending runs Build seeded by every pending DependentValueRoot
// currently anchored under the snapshot root, plus secretRoots.
func BuildFromPending(snap *graph.Snapshot, secretRoots []graph.NodeID) (*Graph, []graph.NodeID, error) {
	roots, forcePrototype, rootNodeIDs := PendingRoots(snap)
	g, err := Build(snap, roots, secretRoots)
	if err != nil {
		return nil, nil, err
	}
	for _, v := range forcePrototype {
		g.mustExecute[collapse(snap, v)] = true
	}
	return g, rootNodeIDs, nil
}

// FinishRoot replaces a pending DependentValueRoot node with a
// FinishedDependentValueRoot marker once its value has been recomputed,
// per spec.md §4.4's completion-tracking contract. The Contain edge
// anchoring it under the snapshot root is preserved under the same key.
func FinishRoot(snap *graph.Snapshot, rootNodeID graph.NodeID) error {
	w, err := snap.NodeWeight(rootNodeID)
	if err != nil {
		return err
	}
	dvr, ok := w.(*graph.DependentValueRootWeight)
	if !ok {
		return nil
	}

	var key string
	for _, e := range snap.EdgesDirected(snap.Root(), graph.Outgoing) {
		if e.Destination == rootNodeID && e.Weight.Kind == graph.EdgeKindContain {
			key = e.Weight.Key
			break
		}
	}

	snap.RemoveNode(rootNodeID)

	finished := &graph.FinishedDependentValueRootWeight{ValueID: dvr.ValueID}
	info := finished.Info()
	info.ID = snap.GenerateULID()
	info.LineageID = graph.NewLineageID()
	finished.CommonInfo = info
	finishedID, err := snap.AddNode(finished)
	if err != nil {
		return err
	}
	return snap.AddEdge(snap.Root(), graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: key}, finishedID)
}
