package attribute

import (
	"fmt"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
)

// rootAttributeKey is the Contain-edge key linking a Component node to the
// root of its attribute-value subtree.
const rootAttributeKey = "$root"

// ResolveComponent finds a component by NodeID first, falling back to a
// workspace-unique name lookup. DuplicateComponentName is returned if more
// than one component carries that name.
func ResolveComponent(snap *graph.Snapshot, ref string) (graph.NodeID, error) {
	if id, err := graph.ParseNodeID(ref); err == nil {
		if w, ok := snap.NodeWeightOpt(id); ok {
			if _, ok := w.(*graph.ComponentWeight); ok {
				return id, nil
			}
		}
	}

	var match graph.NodeID
	found := false
	for _, id := range snap.Nodes() {
		w, ok := snap.NodeWeightOpt(id)
		if !ok {
			continue
		}
		c, ok := w.(*graph.ComponentWeight)
		if !ok || c.Name != ref {
			continue
		}
		if found {
			return graph.NodeID{}, fmt.Errorf("%w: %q", ErrDuplicateComponentName, ref)
		}
		match, found = id, true
	}
	if !found {
		return graph.NodeID{}, fmt.Errorf("%w: %q", ErrSourceComponentNotFound, ref)
	}
	return match, nil
}

// EnsureComponentRoot returns the root AttributeValue of a component's
// attribute subtree, vivifying it (as an empty Object) if this is the
// component's first mutation.
func EnsureComponentRoot(snap *graph.Snapshot, componentID graph.NodeID) (graph.NodeID, error) {
	if _, ok := snap.NodeWeightOpt(componentID); !ok {
		return graph.NodeID{}, fmt.Errorf("%w: component %s", graph.ErrNotFound, componentID)
	}
	for _, e := range snap.EdgesDirected(componentID, graph.Outgoing) {
		if e.Weight.Kind == graph.EdgeKindContain && e.Weight.Key == rootAttributeKey {
			return e.Destination, nil
		}
	}

	root := &graph.AttributeValueWeight{PropKind: graph.PropKindObject}
	info := root.Info()
	info.ID = snap.GenerateULID()
	info.LineageID = graph.NewLineageID()
	root.CommonInfo = info
	rootID, err := snap.AddNode(root)
	if err != nil {
		return graph.NodeID{}, err
	}
	if err := snap.AddEdge(componentID, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: rootAttributeKey}, rootID); err != nil {
		return graph.NodeID{}, err
	}
	return rootID, nil
}

// ValidateBelongsToComponent returns ErrValueNotFromComponent unless avID
// is reachable from componentID's attribute subtree — the guard behind
// any operation that accepts an attribute-value id directly rather than
// a path (spec.md §4.3's ValueNotFromComponent failure mode).
func ValidateBelongsToComponent(snap *graph.Snapshot, componentID, avID graph.NodeID) error {
	if !belongsToComponent(snap, componentID, avID) {
		return fmt.Errorf("%w: %s", ErrValueNotFromComponent, avID)
	}
	return nil
}

// belongsToComponent reports whether avID's path from componentID's root
// resolves back to avID itself — used to validate ValueNotFromComponent.
func belongsToComponent(snap *graph.Snapshot, componentID, avID graph.NodeID) bool {
	rootID, ok := func() (graph.NodeID, bool) {
		for _, e := range snap.EdgesDirected(componentID, graph.Outgoing) {
			if e.Weight.Kind == graph.EdgeKindContain && e.Weight.Key == rootAttributeKey {
				return e.Destination, true
			}
		}
		return graph.NodeID{}, false
	}()
	if !ok {
		return false
	}
	if rootID == avID {
		return true
	}
	visited := make(map[graph.NodeID]bool)
	stack := []graph.NodeID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, e := range snap.EdgesDirected(id, graph.Outgoing) {
			if e.Weight.Kind != graph.EdgeKindContain {
				continue
			}
			if e.Destination == avID {
				return true
			}
			stack = append(stack, e.Destination)
		}
	}
	return false
}
