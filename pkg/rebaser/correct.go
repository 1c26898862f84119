package rebaser

import "github.com/Mindburn-Labs/workspace-engine/pkg/graph"

// CorrectUpdates rewrites a raw update list so it cannot violate invariants
// the target may have drifted on since source forked from it. It runs the
// SchemaVariant.locked correction (invariant 5) followed by the generic
// exclusive-outgoing correction (invariant 3).
func CorrectUpdates(source, target *graph.Snapshot, updates []Update) ([]Update, error) {
	updates = correctSchemaVariantLocking(source, target, updates)
	updates = correctExclusiveOutgoing(target, updates)
	return updates, nil
}

// correctSchemaVariantLocking implements spec invariant 5: at most one
// unlocked SchemaVariant per Schema. Among the updates touching
// SchemaVariants under one schema, the last one (by position in the
// update list) that leaves its variant unlocked wins; every other unlocked
// variant — touched by this change set or not — is rewritten to locked via
// a synthetic ReplaceNode.
func correctSchemaVariantLocking(source, target *graph.Snapshot, updates []Update) []Update {
	type touched struct {
		weight *graph.SchemaVariantWeight
		index  int
	}
	bySchema := make(map[graph.NodeID]map[graph.NodeID]touched)
	schemaOf := func(variantID graph.NodeID) (graph.NodeID, bool) {
		for _, e := range source.EdgesDirected(variantID, graph.Incoming) {
			if e.Weight.Kind == graph.EdgeKindUse {
				return e.Source, true
			}
		}
		for _, e := range target.EdgesDirected(variantID, graph.Incoming) {
			if e.Weight.Kind == graph.EdgeKindUse {
				return e.Source, true
			}
		}
		return graph.NodeID{}, false
	}

	for i, u := range updates {
		var w graph.NodeWeight
		switch t := u.(type) {
		case NewNode:
			w = t.Weight
		case ReplaceNode:
			w = t.Weight
		default:
			continue
		}
		sv, ok := w.(*graph.SchemaVariantWeight)
		if !ok {
			continue
		}
		schemaID, ok := schemaOf(sv.ID)
		if !ok {
			continue
		}
		if _, ok := target.NodeWeightOpt(schemaID); !ok {
			// Schema deleted in target: the whole correction collapses to a no-op.
			continue
		}
		if bySchema[schemaID] == nil {
			bySchema[schemaID] = make(map[graph.NodeID]touched)
		}
		bySchema[schemaID][sv.ID] = touched{weight: sv, index: i}
	}

	var corrections []Update
	for schemaID, variants := range bySchema {
		// Bring in existing, untouched target variants under this schema so
		// a variant this change set never mentions can still be re-locked.
		for _, e := range target.EdgesDirected(schemaID, graph.Outgoing) {
			if e.Weight.Kind != graph.EdgeKindUse {
				continue
			}
			if _, touchedAlready := variants[e.Destination]; touchedAlready {
				continue
			}
			w, ok := target.NodeWeightOpt(e.Destination)
			if !ok {
				continue
			}
			sv, ok := w.(*graph.SchemaVariantWeight)
			if !ok || sv.Locked {
				continue
			}
			variants[e.Destination] = touched{weight: sv, index: -1}
		}

		winnerID := graph.NodeID{}
		winnerIdx := -2
		hasUnlocked := false
		for id, t := range variants {
			if t.weight.Locked {
				continue
			}
			hasUnlocked = true
			if t.index > winnerIdx {
				winnerIdx = t.index
				winnerID = id
			}
		}
		if !hasUnlocked {
			continue
		}
		for id, t := range variants {
			if id == winnerID || t.weight.Locked {
				continue
			}
			locked := *t.weight
			locked.Locked = true
			corrections = append(corrections, ReplaceNode{Weight: &locked})
		}
	}

	return append(updates, corrections...)
}

// correctExclusiveOutgoing implements invariant 3 generically: for every
// NewEdge of an exclusive-outgoing kind, any pre-existing target edge of
// that kind from the same source gets a compensating RemoveEdge, unless
// the update list already removes it.
func correctExclusiveOutgoing(target *graph.Snapshot, updates []Update) []Update {
	alreadyRemoved := make(map[string]bool)
	for _, u := range updates {
		if re, ok := u.(RemoveEdge); ok {
			alreadyRemoved[exclusiveKey(re.Source, re.Kind)] = true
		}
	}

	var corrections []Update
	seen := make(map[string]bool)
	for _, u := range updates {
		ne, ok := u.(NewEdge)
		if !ok || !ne.Weight.Kind.IsExclusiveOutgoing() {
			continue
		}
		key := exclusiveKey(ne.Source, ne.Weight.Kind)
		if alreadyRemoved[key] || seen[key] {
			continue
		}
		for _, e := range target.EdgesDirected(ne.Source, graph.Outgoing) {
			if e.Weight.Kind != ne.Weight.Kind || e.Destination == ne.Destination {
				continue
			}
			corrections = append(corrections, RemoveEdge{Source: ne.Source, Destination: e.Destination, Kind: e.Weight.Kind})
			seen[key] = true
		}
	}

	return append(updates, corrections...)
}

func exclusiveKey(src graph.NodeID, kind graph.EdgeKind) string {
	return src.String() + "|" + string(kind)
}
