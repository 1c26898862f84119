package rebaser

import (
	"sort"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
)

// Apply runs detection, correction, and application in one step: it
// detects the update list between source and target, corrects it against
// target's invariants, and either returns the new target snapshot or the
// conflicts that blocked it. Applying the corrected list is atomic: a
// failure partway through means the caller discards the returned snapshot
// and nothing was ever written to persistence, since Apply only ever hands
// back a fresh in-memory Snapshot for the caller to persist as a whole.
func Apply(source, target *graph.Snapshot) (*graph.Snapshot, []Conflict, error) {
	raw, err := DetectUpdates(source, target)
	if err != nil {
		return nil, nil, err
	}
	corrected, err := CorrectUpdates(source, target, raw)
	if err != nil {
		return nil, nil, err
	}

	if conflicts := detectConflicts(target, corrected); len(conflicts) > 0 {
		return nil, conflicts, nil
	}

	// Replay nodes first, then edge removals, then edge additions: a NewEdge
	// may target a node the same list creates, and an exclusive-outgoing
	// NewEdge needs correction's RemoveEdge of the old edge applied first.
	phase := func(u Update) int {
		switch u.(type) {
		case NewNode, ReplaceNode:
			return 0
		case RemoveEdge:
			return 1
		}
		return 2
	}
	ordered := append([]Update(nil), corrected...)
	sort.SliceStable(ordered, func(i, j int) bool { return phase(ordered[i]) < phase(ordered[j]) })

	next := target.Clone()
	for _, u := range ordered {
		switch t := u.(type) {
		case NewNode:
			if _, err := next.AddNode(t.Weight); err != nil {
				return nil, nil, err
			}
		case ReplaceNode:
			if _, err := next.AddOrReplaceNode(t.Weight); err != nil {
				return nil, nil, err
			}
		case NewEdge:
			if err := next.AddEdge(t.Source, t.Weight, t.Destination); err != nil {
				return nil, nil, err
			}
		case RemoveEdge:
			if err := next.RemoveEdge(t.Source, t.Kind, t.Destination); err != nil {
				return nil, nil, err
			}
		}
	}

	return next, nil, nil
}
