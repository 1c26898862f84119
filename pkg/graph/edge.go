package graph

import "sort"

// EdgeKind discriminates the closed set of edge-weight kinds (spec.md §3).
type EdgeKind string

const (
	EdgeKindUse                     EdgeKind = "Use"
	EdgeKindContain                 EdgeKind = "Contain"
	EdgeKindPrototype                EdgeKind = "Prototype"
	EdgeKindPrototypeArgument        EdgeKind = "PrototypeArgument"
	EdgeKindPrototypeArgumentValue   EdgeKind = "PrototypeArgumentValue"
	EdgeKindValueSubscription        EdgeKind = "ValueSubscription"
	EdgeKindOrdering                 EdgeKind = "Ordering"
	EdgeKindOrdinal                  EdgeKind = "Ordinal"
)

// exclusiveOutgoing lists edge kinds where a node may have at most one
// outgoing edge of that kind (spec.md invariant 3). Contain is NOT
// exclusive in general (a node can Contain many children) but IS
// exclusive per-key for Map/Object props; that narrower rule is enforced
// at the attribute layer, not here.
var exclusiveOutgoing = map[EdgeKind]bool{
	EdgeKindUse:      false, // a Schema may have many Use edges, one per variant
	EdgeKindPrototype: true,
	EdgeKindOrdering:  true,
}

// IsExclusiveOutgoing reports whether a node may have at most one outgoing
// edge of this kind.
func (k EdgeKind) IsExclusiveOutgoing() bool { return exclusiveOutgoing[k] }

// EdgeWeight is the payload carried by an edge. Kind determines which
// optional fields are meaningful:
//   - Contain: Key (optional map key)
//   - ValueSubscription: Path (JSON pointer into the source component)
//   - Ordinal: Ordinal (explicit position, when not using an Ordering node)
type EdgeWeight struct {
	Kind    EdgeKind
	Key     string
	Path    string
	Ordinal int
}

// edgeRecord is the internal adjacency-list entry: one outgoing edge from
// a source node.
type edgeRecord struct {
	Weight EdgeWeight
	Target NodeID
}

// edgeSortKey orders edges canonically for Merkle folding: by
// (kind-discriminant, target-merkle-hash), per spec.md invariant 2.
type edgeSortKey struct {
	kindRank     int
	targetMerkle string
}

var edgeKindRank = map[EdgeKind]int{
	EdgeKindUse:                   0,
	EdgeKindContain:                1,
	EdgeKindPrototype:              2,
	EdgeKindPrototypeArgument:      3,
	EdgeKindPrototypeArgumentValue: 4,
	EdgeKindValueSubscription:      5,
	EdgeKindOrdering:               6,
	EdgeKindOrdinal:                7,
}

func sortEdgesForMerkle(edges []edgeRecord, merkleOf func(NodeID) string) []edgeRecord {
	sorted := make([]edgeRecord, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := edgeKindRank[sorted[i].Weight.Kind], edgeKindRank[sorted[j].Weight.Kind]
		if ki != kj {
			return ki < kj
		}
		return merkleOf(sorted[i].Target) < merkleOf(sorted[j].Target)
	})
	return sorted
}

// Direction selects which edge set EdgesDirected inspects.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// EdgeView is the public, read-only projection of an edgeRecord returned
// from query operations, naming source and destination explicitly.
type EdgeView struct {
	Weight      EdgeWeight
	Source      NodeID
	Destination NodeID
}
