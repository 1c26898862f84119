package graph

import (
	"fmt"
	"reflect"
)

// Snapshot is one immutable (once persisted) version of the workspace
// graph: G = (N, E, root). All mutation methods return errors rather than
// panicking or retrying — spec.md §4.1 "Failure semantics: all operations
// are pure functions of the graph state; they never retry."
type Snapshot struct {
	root NodeID

	nodes    map[NodeID]NodeWeight
	outgoing map[NodeID][]edgeRecord
	incoming map[NodeID][]edgeRecord
	lineage  map[LineageID]NodeID

	idGen *idGenerator
}

// New creates an empty snapshot with a fresh root Category node.
func New() *Snapshot {
	s := &Snapshot{
		nodes:    make(map[NodeID]NodeWeight),
		outgoing: make(map[NodeID][]edgeRecord),
		incoming: make(map[NodeID][]edgeRecord),
		lineage:  make(map[LineageID]NodeID),
		idGen:    newIDGenerator(),
	}
	root := &CategoryWeight{Category: "root"}
	id := s.idGen.Generate()
	root.ID = id
	root.LineageID = NewLineageID()
	s.nodes[id] = root
	s.root = id
	s.recomputeContentAndMerkle(id)
	return s
}

// Root returns the id of the snapshot's single root node.
func (s *Snapshot) Root() NodeID { return s.root }

// GenerateULID returns a monotonic node id scoped to this snapshot.
func (s *Snapshot) GenerateULID() NodeID { return s.idGen.Generate() }

var (
	// ErrDuplicateID is returned by AddNode when the node's id already
	// exists in the snapshot (invariant 1).
	ErrDuplicateID = fmt.Errorf("graph: duplicate node id")
	// ErrNotFound is returned by lookups that require the node to exist.
	ErrNotFound = fmt.Errorf("graph: node not found")
	// ErrExclusiveOutgoingViolation is returned by AddEdge when the source
	// already has an outgoing edge of an exclusive-outgoing kind.
	ErrExclusiveOutgoingViolation = fmt.Errorf("graph: exclusive-outgoing edge violation")
	// ErrCorrupt marks fatal structural corruption (dangling edge target).
	ErrCorrupt = fmt.Errorf("graph: corrupt structure")
)

// AddNode inserts a new node. It is an error if the id already exists.
func (s *Snapshot) AddNode(w NodeWeight) (NodeID, error) {
	info := w.Info()
	if _, exists := s.nodes[info.ID]; exists {
		return NodeID{}, fmt.Errorf("%w: %s", ErrDuplicateID, info.ID)
	}
	s.nodes[info.ID] = w
	if info.LineageID != (LineageID{}) {
		s.lineage[info.LineageID] = info.ID
	}
	if err := s.recomputeContentAndMerkle(info.ID); err != nil {
		return NodeID{}, err
	}
	return info.ID, nil
}

// AddOrReplaceNode inserts w, replacing any existing node with the same id.
// Existing edges to/from that id are preserved (this is a content
// replacement, i.e. ReplaceNode semantics, not a structural removal).
func (s *Snapshot) AddOrReplaceNode(w NodeWeight) (NodeID, error) {
	info := w.Info()
	s.nodes[info.ID] = w
	if info.LineageID != (LineageID{}) {
		s.lineage[info.LineageID] = info.ID
	}
	if err := s.recomputeContentAndMerkle(info.ID); err != nil {
		return NodeID{}, err
	}
	if err := s.recomputeMerkleFrom(info.ID); err != nil {
		return NodeID{}, err
	}
	return info.ID, nil
}

// AddEdge creates an edge src --weight--> dst. If weight.Kind is
// exclusive-outgoing and src already has such an edge, it returns
// ErrExclusiveOutgoingViolation; the caller resolves this by calling
// RemoveEdge first (spec.md §4.1 contract table).
func (s *Snapshot) AddEdge(src NodeID, weight EdgeWeight, dst NodeID) error {
	if _, ok := s.nodes[src]; !ok {
		return fmt.Errorf("%w: source %s", ErrNotFound, src)
	}
	if _, ok := s.nodes[dst]; !ok {
		return fmt.Errorf("%w: destination %s", ErrNotFound, dst)
	}
	if weight.Kind.IsExclusiveOutgoing() {
		for _, e := range s.outgoing[src] {
			if e.Weight.Kind == weight.Kind {
				return fmt.Errorf("%w: %s already has outgoing %s", ErrExclusiveOutgoingViolation, src, weight.Kind)
			}
		}
	}
	rec := edgeRecord{Weight: weight, Target: dst}
	s.outgoing[src] = append(s.outgoing[src], rec)
	s.incoming[dst] = append(s.incoming[dst], edgeRecord{Weight: weight, Target: src})
	return s.recomputeMerkleFrom(src)
}

// RemoveEdge removes the (src, kind, dst) edge if present; silent if
// absent, per spec.md's contract table.
func (s *Snapshot) RemoveEdge(src NodeID, kind EdgeKind, dst NodeID) error {
	out := s.outgoing[src]
	found := false
	filtered := out[:0]
	for _, e := range out {
		if e.Weight.Kind == kind && e.Target == dst {
			found = true
			continue
		}
		filtered = append(filtered, e)
	}
	s.outgoing[src] = filtered

	in := s.incoming[dst]
	filteredIn := in[:0]
	for _, e := range in {
		if e.Weight.Kind == kind && e.Target == src {
			continue
		}
		filteredIn = append(filteredIn, e)
	}
	s.incoming[dst] = filteredIn

	if !found {
		return nil
	}
	return s.recomputeMerkleFrom(src)
}

// NodeWeight returns the node's weight, or ErrNotFound.
func (s *Snapshot) NodeWeight(id NodeID) (NodeWeight, error) {
	w, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return w, nil
}

// NodeWeightOpt returns the node's weight, or (nil, false) if absent.
func (s *Snapshot) NodeWeightOpt(id NodeID) (NodeWeight, bool) {
	w, ok := s.nodes[id]
	return w, ok
}

// NodeByLineage resolves a node by its lineage id (used by the rebaser's
// fallback match when ids differ across a ReplaceNode).
func (s *Snapshot) NodeByLineage(lineage LineageID) (NodeID, bool) {
	id, ok := s.lineage[lineage]
	return id, ok
}

// EdgesDirected returns the edges touching id in the given direction.
func (s *Snapshot) EdgesDirected(id NodeID, dir Direction) []EdgeView {
	var recs []edgeRecord
	if dir == Outgoing {
		recs = s.outgoing[id]
	} else {
		recs = s.incoming[id]
	}
	views := make([]EdgeView, len(recs))
	for i, r := range recs {
		if dir == Outgoing {
			views[i] = EdgeView{Weight: r.Weight, Source: id, Destination: r.Target}
		} else {
			views[i] = EdgeView{Weight: r.Weight, Source: r.Target, Destination: id}
		}
	}
	return views
}

// Nodes returns every node id in the snapshot, in no particular order.
func (s *Snapshot) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Edges returns every edge in the snapshot as (source, weight, destination).
func (s *Snapshot) Edges() []EdgeView {
	var all []EdgeView
	for src, recs := range s.outgoing {
		for _, r := range recs {
			all = append(all, EdgeView{Weight: r.Weight, Source: src, Destination: r.Target})
		}
	}
	return all
}

// RemoveNode deletes a node and all edges touching it. Used by structural
// corrections and by array/map-element unset.
func (s *Snapshot) RemoveNode(id NodeID) {
	for _, e := range s.outgoing[id] {
		s.removeIncomingRecord(e.Target, id, e.Weight.Kind)
	}
	for _, e := range s.incoming[id] {
		s.removeOutgoingRecord(e.Target, id, e.Weight.Kind)
	}
	delete(s.outgoing, id)
	delete(s.incoming, id)
	if w, ok := s.nodes[id]; ok {
		if w.Info().LineageID != (LineageID{}) {
			delete(s.lineage, w.Info().LineageID)
		}
	}
	delete(s.nodes, id)
}

func (s *Snapshot) removeIncomingRecord(at, src NodeID, kind EdgeKind) {
	in := s.incoming[at]
	filtered := in[:0]
	for _, e := range in {
		if e.Target == src && e.Weight.Kind == kind {
			continue
		}
		filtered = append(filtered, e)
	}
	s.incoming[at] = filtered
}

func (s *Snapshot) removeOutgoingRecord(at, dst NodeID, kind EdgeKind) {
	out := s.outgoing[at]
	filtered := out[:0]
	for _, e := range out {
		if e.Target == dst && e.Weight.Kind == kind {
			continue
		}
		filtered = append(filtered, e)
	}
	s.outgoing[at] = filtered
}

// Clone returns a deep-enough copy of the snapshot for a change set to
// mutate independently of its parent: the maps are copied, and each
// NodeWeight struct is copied one level deep, so hash recomputation (which
// writes CommonInfo in place) on one side is never seen by the other.
// Slices, maps and pointers inside a weight stay shared.
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		root:     s.root,
		nodes:    make(map[NodeID]NodeWeight, len(s.nodes)),
		outgoing: make(map[NodeID][]edgeRecord, len(s.outgoing)),
		incoming: make(map[NodeID][]edgeRecord, len(s.incoming)),
		lineage:  make(map[LineageID]NodeID, len(s.lineage)),
		idGen:    s.idGen,
	}
	for k, v := range s.nodes {
		cp := reflect.New(reflect.TypeOf(v).Elem())
		cp.Elem().Set(reflect.ValueOf(v).Elem())
		clone.nodes[k] = cp.Interface().(NodeWeight)
	}
	for k, v := range s.outgoing {
		cp := make([]edgeRecord, len(v))
		copy(cp, v)
		clone.outgoing[k] = cp
	}
	for k, v := range s.incoming {
		cp := make([]edgeRecord, len(v))
		copy(cp, v)
		clone.incoming[k] = cp
	}
	for k, v := range s.lineage {
		clone.lineage[k] = v
	}
	return clone
}
