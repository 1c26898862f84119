package dvg

import "github.com/Mindburn-Labs/workspace-engine/pkg/graph"

// socketValueKey is the Contain edge key linking an InputSocket or
// OutputSocket node to the AttributeValue it backs, reusing Contain's
// optional key field the same way attribute.rootAttributeKey anchors a
// component's attribute tree root.
const socketValueKey = "$value"

// LinkSocketValue records that socketID (an InputSocket or OutputSocket
// node) backs avID, so DVG construction can find the attribute value a
// wired connection feeds or drains.
func LinkSocketValue(snap *graph.Snapshot, socketID, avID graph.NodeID) error {
	return snap.AddEdge(socketID, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: socketValueKey}, avID)
}

// ConnectSockets wires an output socket on one component to an input
// socket on another, the graph-level counterpart of a diagram connection.
// Reuses EdgeKindUse (already non-exclusive-outgoing) rather than adding a
// ninth edge kind: "this input socket uses this output socket's value".
func ConnectSockets(snap *graph.Snapshot, fromOutputSocketID, toInputSocketID graph.NodeID) error {
	return snap.AddEdge(toInputSocketID, graph.EdgeWeight{Kind: graph.EdgeKindUse}, fromOutputSocketID)
}

// socketBackedValue returns the AttributeValue a socket node backs, if any.
func socketBackedValue(snap *graph.Snapshot, socketID graph.NodeID) (graph.NodeID, bool) {
	for _, e := range snap.EdgesDirected(socketID, graph.Outgoing) {
		if e.Weight.Kind == graph.EdgeKindContain && e.Weight.Key == socketValueKey {
			return e.Destination, true
		}
	}
	return graph.NilNodeID, false
}

// valueBackedSocket returns the socket node (Input or Output) that
// avID backs, the inverse of socketBackedValue.
func valueBackedSocket(snap *graph.Snapshot, avID graph.NodeID) (graph.NodeID, bool) {
	for _, e := range snap.EdgesDirected(avID, graph.Incoming) {
		if e.Weight.Kind == graph.EdgeKindContain && e.Weight.Key == socketValueKey {
			return e.Source, true
		}
	}
	return graph.NilNodeID, false
}

// shouldDataFlow reports whether a connection between components should
// still propagate values. Per spec.md §4.4 step 3, a connection is only
// walked while both endpoint components agree on deletion state: a
// component mid-deletion must stop feeding, and must stop receiving from,
// components that are not themselves being deleted.
func shouldDataFlow(snap *graph.Snapshot, fromComponentID, toComponentID graph.NodeID) bool {
	from, okFrom := componentWeight(snap, fromComponentID)
	to, okTo := componentWeight(snap, toComponentID)
	if !okFrom || !okTo {
		return false
	}
	return from.ToDelete == to.ToDelete
}

func componentWeight(snap *graph.Snapshot, id graph.NodeID) (*graph.ComponentWeight, bool) {
	w, err := snap.NodeWeight(id)
	if err != nil {
		return nil, false
	}
	cw, ok := w.(*graph.ComponentWeight)
	return cw, ok
}

// owningComponent walks Contain edges up from id until it reaches a
// Component node.
func owningComponent(snap *graph.Snapshot, id graph.NodeID) (graph.NodeID, bool) {
	seen := make(map[graph.NodeID]bool)
	for {
		if seen[id] {
			return graph.NilNodeID, false
		}
		seen[id] = true
		if _, ok := componentWeight(snap, id); ok {
			return id, true
		}
		var next graph.NodeID
		found := false
		for _, e := range snap.EdgesDirected(id, graph.Incoming) {
			if e.Weight.Kind == graph.EdgeKindContain {
				next = e.Source
				found = true
				break
			}
		}
		if !found {
			return graph.NilNodeID, false
		}
		id = next
	}
}

// socketDependentsOf implements DVG construction step 3: if id is backed
// by an output socket, every input socket wired to it (via EdgeKindUse,
// subject to shouldDataFlow) in turn backs a dependent attribute value.
func socketDependentsOf(snap *graph.Snapshot, id graph.NodeID) []graph.NodeID {
	outputSocketID, ok := valueBackedSocket(snap, id)
	if !ok {
		return nil
	}
	fromComponentID, ok := owningComponent(snap, outputSocketID)
	if !ok {
		return nil
	}

	var dependents []graph.NodeID
	for _, e := range snap.EdgesDirected(outputSocketID, graph.Incoming) {
		if e.Weight.Kind != graph.EdgeKindUse {
			continue
		}
		inputSocketID := e.Source
		toComponentID, ok := owningComponent(snap, inputSocketID)
		if !ok || !shouldDataFlow(snap, fromComponentID, toComponentID) {
			continue
		}
		if avID, ok := socketBackedValue(snap, inputSocketID); ok {
			dependents = append(dependents, avID)
		}
	}
	return dependents
}
