package attribute

import (
	"fmt"
	"strconv"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
)

// Vivify walks path from start, creating each missing intermediate
// attribute value and its backing graph edges (object field, map key,
// array element) as it goes. It is idempotent: a later Vivify or
// graph.ResolvePath call over the same path returns the same id.
//
// A schema-variant prop tree would normally dictate whether an
// intermediate is an Object, Map, or Array; absent that wiring here, a
// freshly created intermediate's shape is inferred from the path itself —
// the next segment after it (an index or "-" means Array, anything else
// means Object) — and a newly vivified leaf defaults to PropKindJSON until
// the caller's actual write gives it a definitive kind.
func Vivify(snap *graph.Snapshot, start graph.NodeID, path string) (graph.NodeID, error) {
	segments := graph.SplitPointer(path)
	cur := start
	for i, seg := range segments {
		child, err := vivifyStep(snap, cur, seg, kindHintForNext(segments, i+1))
		if err != nil {
			return graph.NodeID{}, err
		}
		cur = child
	}
	return cur, nil
}

func kindHintForNext(segments []string, i int) graph.PropKind {
	if i >= len(segments) {
		return graph.PropKindJSON
	}
	seg := segments[i]
	if seg == "-" {
		return graph.PropKindArray
	}
	if _, err := strconv.Atoi(seg); err == nil {
		return graph.PropKindArray
	}
	return graph.PropKindObject
}

func vivifyStep(snap *graph.Snapshot, cur graph.NodeID, seg string, childKindHint graph.PropKind) (graph.NodeID, error) {
	w, err := snap.NodeWeight(cur)
	if err != nil {
		return graph.NodeID{}, err
	}
	av, ok := w.(*graph.AttributeValueWeight)
	if !ok {
		return graph.NodeID{}, fmt.Errorf("%w: %s is not an attribute value", ErrPathInvalid, cur)
	}

	switch av.PropKind {
	case graph.PropKindObject, graph.PropKindMap:
		for _, e := range snap.EdgesDirected(cur, graph.Outgoing) {
			if e.Weight.Kind == graph.EdgeKindContain && e.Weight.Key == seg {
				return e.Destination, nil
			}
		}
		return createChild(snap, cur, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: seg}, childKindHint)

	case graph.PropKindArray:
		children, err := snap.OrderedChildren(cur)
		if err != nil {
			return graph.NodeID{}, err
		}
		if seg == "-" {
			return appendArrayChild(snap, cur, children, childKindHint)
		}
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 {
			return graph.NodeID{}, fmt.Errorf("%w: non-negative integer index required, got %q", ErrPathInvalid, seg)
		}
		if idx < len(children) {
			return children[idx], nil
		}
		if idx > len(children) {
			return graph.NodeID{}, fmt.Errorf("%w: index %d, length %d", ErrAppendPastEnd, idx, len(children))
		}
		return appendArrayChild(snap, cur, children, childKindHint)

	default:
		return graph.NodeID{}, fmt.Errorf("%w: cannot descend into leaf at %s", ErrPathInvalid, cur)
	}
}

func createChild(snap *graph.Snapshot, parent graph.NodeID, edge graph.EdgeWeight, kind graph.PropKind) (graph.NodeID, error) {
	child := &graph.AttributeValueWeight{PropKind: kind}
	info := child.Info()
	info.ID = snap.GenerateULID()
	info.LineageID = graph.NewLineageID()
	child.CommonInfo = info
	childID, err := snap.AddNode(child)
	if err != nil {
		return graph.NodeID{}, err
	}
	if err := snap.AddEdge(parent, edge, childID); err != nil {
		return graph.NodeID{}, err
	}
	return childID, nil
}

func appendArrayChild(snap *graph.Snapshot, arrayID graph.NodeID, existing []graph.NodeID, kind graph.PropKind) (graph.NodeID, error) {
	childID, err := createChild(snap, arrayID, graph.EdgeWeight{Kind: graph.EdgeKindContain}, kind)
	if err != nil {
		return graph.NodeID{}, err
	}
	order := append(append([]graph.NodeID(nil), existing...), childID)
	return childID, setOrdering(snap, arrayID, order)
}

func setOrdering(snap *graph.Snapshot, arrayID graph.NodeID, order []graph.NodeID) error {
	for _, e := range snap.EdgesDirected(arrayID, graph.Outgoing) {
		if e.Weight.Kind == graph.EdgeKindOrdering {
			w, err := snap.NodeWeight(e.Destination)
			if err != nil {
				return err
			}
			ow, ok := w.(*graph.OrderingWeight)
			if !ok {
				return fmt.Errorf("%w: ordering edge target is not an Ordering node", graph.ErrCorrupt)
			}
			ow.Order = order
			_, err = snap.AddOrReplaceNode(ow)
			return err
		}
	}

	ordering := &graph.OrderingWeight{Order: order}
	info := ordering.Info()
	info.ID = snap.GenerateULID()
	ordering.CommonInfo = info
	orderingID, err := snap.AddNode(ordering)
	if err != nil {
		return err
	}
	return snap.AddEdge(arrayID, graph.EdgeWeight{Kind: graph.EdgeKindOrdering}, orderingID)
}
