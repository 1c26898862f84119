// Package rebaser computes the difference between a change-set snapshot
// and the current head, corrects it against invariants the head may have
// drifted on, and applies it — or reports why it cannot be applied
// transparently.
package rebaser

import "github.com/Mindburn-Labs/workspace-engine/pkg/graph"

// Update is the closed sum type the detector emits and the corrector
// rewrites. Closed via an unexported marker method, same pattern as
// graph.NodeWeight: dispatch by type switch, never reflection.
type Update interface {
	isUpdate()
}

// NewNode records a node present in source but absent from target.
type NewNode struct {
	Weight graph.NodeWeight
}

// NewEdge records an edge present in source but absent from target.
type NewEdge struct {
	Source      graph.NodeID
	Destination graph.NodeID
	Weight      graph.EdgeWeight
}

// RemoveEdge records an edge present in target but absent from source.
type RemoveEdge struct {
	Source      graph.NodeID
	Destination graph.NodeID
	Kind        graph.EdgeKind
}

// ReplaceNode records a node that exists in both, under the same identity
// (same id or matched lineage), but with a different content hash.
type ReplaceNode struct {
	Weight graph.NodeWeight
}

func (NewNode) isUpdate()     {}
func (NewEdge) isUpdate()     {}
func (RemoveEdge) isUpdate()  {}
func (ReplaceNode) isUpdate() {}
