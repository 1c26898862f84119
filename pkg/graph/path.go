package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// Path-resolution errors, matching spec.md §4.1's three-way distinction.
var (
	// ErrPathInvalid means the path descends into a shape mismatch (e.g.
	// an integer index against an Object, or any descent into a leaf).
	ErrPathInvalid = fmt.Errorf("graph: path invalid")
	// ErrPathOutOfBounds means an array index is past the current length.
	ErrPathOutOfBounds = fmt.Errorf("graph: path index out of bounds")
	// ErrPathMissing means an element is well-formed for the shape but is
	// simply not present yet (an unset map key or object field).
	ErrPathMissing = fmt.Errorf("graph: path element missing")
)

// SplitPointer splits a '/'-delimited JSON pointer into its elements.
// An empty path ("" or "/") yields no elements (resolves to the start
// node itself).
func SplitPointer(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// ResolvePath walks outgoing Contain edges from start, one path element at
// a time, per spec.md §4.1's path-resolution algorithm: object/map fields
// by Contain.Key, array elements by index through the Ordering child.
func (s *Snapshot) ResolvePath(start NodeID, path string) (NodeID, error) {
	cur := start
	for _, seg := range SplitPointer(path) {
		next, err := s.resolveStep(cur, seg)
		if err != nil {
			return NodeID{}, err
		}
		cur = next
	}
	return cur, nil
}

func (s *Snapshot) resolveStep(cur NodeID, seg string) (NodeID, error) {
	w, err := s.NodeWeight(cur)
	if err != nil {
		return NodeID{}, err
	}
	av, ok := w.(*AttributeValueWeight)
	if !ok {
		return NodeID{}, fmt.Errorf("%w: %s is not an attribute value", ErrPathInvalid, cur)
	}
	switch av.PropKind {
	case PropKindObject, PropKindMap:
		child, ok := s.containChildByKey(cur, seg)
		if !ok {
			return NodeID{}, fmt.Errorf("%w: %q", ErrPathMissing, seg)
		}
		return child, nil
	case PropKindArray:
		if seg == "-" {
			return NodeID{}, fmt.Errorf("%w: \"-\" only valid as the final element of an update path, not for resolution", ErrPathInvalid)
		}
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 {
			return NodeID{}, fmt.Errorf("%w: non-negative integer index required, got %q", ErrPathInvalid, seg)
		}
		children, err := s.OrderedChildren(cur)
		if err != nil {
			return NodeID{}, err
		}
		if idx >= len(children) {
			return NodeID{}, fmt.Errorf("%w: index %d, length %d", ErrPathOutOfBounds, idx, len(children))
		}
		return children[idx], nil
	default:
		return NodeID{}, fmt.Errorf("%w: cannot descend into leaf at %s", ErrPathInvalid, cur)
	}
}

// containChildByKey finds the Contain-edge child of cur whose Key matches
// seg (used for both Object field names and Map keys).
func (s *Snapshot) containChildByKey(cur NodeID, seg string) (NodeID, bool) {
	for _, e := range s.outgoing[cur] {
		if e.Weight.Kind == EdgeKindContain && e.Weight.Key == seg {
			return e.Target, true
		}
	}
	return NodeID{}, false
}

// OrderedChildren returns the Contain-edge children of an Array attribute
// value, ordered via its Ordering child — not via edge traversal order,
// per spec.md invariant 4.
func (s *Snapshot) OrderedChildren(cur NodeID) ([]NodeID, error) {
	var orderingID NodeID
	found := false
	for _, e := range s.outgoing[cur] {
		if e.Weight.Kind == EdgeKindOrdering {
			orderingID = e.Target
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}
	w, err := s.NodeWeight(orderingID)
	if err != nil {
		return nil, err
	}
	ow, ok := w.(*OrderingWeight)
	if !ok {
		return nil, fmt.Errorf("%w: ordering edge target is not an Ordering node", ErrCorrupt)
	}
	return ow.Order, nil
}
