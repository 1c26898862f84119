package rebaser

import "github.com/Mindburn-Labs/workspace-engine/pkg/graph"

// ConflictReason discriminates why an update list cannot be applied
// transparently.
type ConflictReason string

const (
	// ConflictIncompatibleContent names the case where both sides changed
	// the same node's content in ways no correction pass resolves.
	// detectConflicts does not emit it: it sees only the two tips, not the
	// snapshot they forked from.
	ConflictIncompatibleContent ConflictReason = "incompatible_content"
	// ConflictDanglingEdge fires when an edge is added whose source or
	// destination was removed on the target side.
	ConflictDanglingEdge ConflictReason = "dangling_edge"
)

// Conflict describes one irreconcilable difference found while applying an
// update list. The apply aborts and returns the full list so the client
// can decide whether to reopen its change set against the new head.
type Conflict struct {
	Reason ConflictReason
	NodeID graph.NodeID
	Detail string
}

// detectConflicts scans a corrected update list against target for
// dangling edges: a NewEdge whose source or destination is neither in
// target nor created by the list. Incompatible content changes are not
// detected.
func detectConflicts(target *graph.Snapshot, updates []Update) []Conflict {
	willExist := make(map[graph.NodeID]bool)
	for _, u := range updates {
		if nn, ok := u.(NewNode); ok {
			willExist[nn.Weight.Info().ID] = true
		}
	}

	var conflicts []Conflict
	for _, u := range updates {
		switch t := u.(type) {
		case NewEdge:
			_, srcExists := target.NodeWeightOpt(t.Source)
			_, dstExists := target.NodeWeightOpt(t.Destination)
			if !srcExists && !willExist[t.Source] {
				conflicts = append(conflicts, Conflict{Reason: ConflictDanglingEdge, NodeID: t.Source, Detail: "edge source missing from target"})
			}
			if !dstExists && !willExist[t.Destination] {
				conflicts = append(conflicts, Conflict{Reason: ConflictDanglingEdge, NodeID: t.Destination, Detail: "edge destination missing from target"})
			}
		}
	}
	return conflicts
}
