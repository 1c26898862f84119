package rebaser

import (
	"fmt"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
)

// DetectUpdates walks source and target starting at their roots, comparing
// merkle-hashes at each matched pair and only descending where they
// differ — O(size of changed subtree), not O(total graph). Nodes are
// matched first by id, falling back to lineage id for nodes whose content
// was replaced (and so carry a fresh id) since the snapshots last shared
// an ancestor.
//
// The traversal uses an explicit stack rather than recursion, following
// the teacher's adjacency-walk idiom, to keep stack depth independent of
// graph depth.
func DetectUpdates(source, target *graph.Snapshot) ([]Update, error) {
	type pair struct {
		srcID graph.NodeID
		tgtID graph.NodeID
		tgtOK bool
	}

	visited := make(map[graph.NodeID]bool)
	var updates []Update
	stack := []pair{{srcID: source.Root(), tgtID: target.Root(), tgtOK: true}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[p.srcID] {
			continue
		}
		visited[p.srcID] = true

		srcW, err := source.NodeWeight(p.srcID)
		if err != nil {
			return nil, fmt.Errorf("rebaser: detect: source node %s: %w", p.srcID, err)
		}

		tgtW, tgtID, tgtFound := matchInTarget(target, p.srcID, p.tgtID, p.tgtOK, srcW)

		if !tgtFound {
			updates = append(updates, NewNode{Weight: srcW})
			for _, e := range source.EdgesDirected(p.srcID, graph.Outgoing) {
				updates = append(updates, NewEdge{Source: p.srcID, Destination: e.Destination, Weight: e.Weight})
				stack = append(stack, pair{srcID: e.Destination, tgtOK: false})
			}
			continue
		}

		if srcW.Info().MerkleHash == tgtW.Info().MerkleHash {
			continue
		}

		if srcW.Info().ContentHash != tgtW.Info().ContentHash {
			updates = append(updates, ReplaceNode{Weight: srcW})
		}

		srcEdges := source.EdgesDirected(p.srcID, graph.Outgoing)
		tgtEdges := target.EdgesDirected(tgtID, graph.Outgoing)

		type edgeKey struct {
			kind graph.EdgeKind
			dst  graph.NodeID
		}
		tgtSet := make(map[edgeKey]graph.NodeID, len(tgtEdges))
		for _, e := range tgtEdges {
			tgtSet[edgeKey{e.Weight.Kind, e.Destination}] = e.Destination
		}
		srcSet := make(map[edgeKey]bool, len(srcEdges))
		for _, e := range srcEdges {
			srcSet[edgeKey{e.Weight.Kind, e.Destination}] = true
		}

		for _, e := range srcEdges {
			k := edgeKey{e.Weight.Kind, e.Destination}
			childTgtID, childTgtOK := tgtSet[k]
			if !childTgtOK {
				updates = append(updates, NewEdge{Source: p.srcID, Destination: e.Destination, Weight: e.Weight})
			}
			stack = append(stack, pair{srcID: e.Destination, tgtID: childTgtID, tgtOK: childTgtOK})
		}
		for _, e := range tgtEdges {
			k := edgeKey{e.Weight.Kind, e.Destination}
			if !srcSet[k] {
				updates = append(updates, RemoveEdge{Source: p.srcID, Destination: e.Destination, Kind: e.Weight.Kind})
			}
		}
	}

	return updates, nil
}

// matchInTarget resolves the target-side counterpart of a source node: a
// direct id hit first, then a lineage fallback for replaced nodes.
func matchInTarget(target *graph.Snapshot, srcID, hintID graph.NodeID, hintOK bool, srcW graph.NodeWeight) (graph.NodeWeight, graph.NodeID, bool) {
	if hintOK {
		if w, ok := target.NodeWeightOpt(hintID); ok {
			return w, hintID, true
		}
	}
	if w, ok := target.NodeWeightOpt(srcID); ok {
		return w, srcID, true
	}
	if tid, ok := target.NodeByLineage(srcW.Info().LineageID); ok {
		if w, ok2 := target.NodeWeightOpt(tid); ok2 {
			return w, tid, true
		}
	}
	return nil, graph.NodeID{}, false
}
