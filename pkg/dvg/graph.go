// Package dvg builds and queries the dependent-value graph: a transient
// DAG over a snapshot's attribute-value ids, rooted at the values a
// mutation just touched, describing what must recompute and in what
// order.
package dvg

import "github.com/Mindburn-Labs/workspace-engine/pkg/graph"

// Graph is the built dependent-value graph for one recomputation pass.
// deps[a] is the set of ids a depends on (a must be recomputed after
// each of them). Ids are post-collapse: a value dominated by a
// function-computed parent never appears as a node itself, per spec.md
// §4.4 step 6 — its controlling ancestor stands in for it everywhere.
type Graph struct {
	snap *graph.Snapshot

	nodes       map[graph.NodeID]bool
	deps        map[graph.NodeID]map[graph.NodeID]bool
	mustExecute map[graph.NodeID]bool
	selfCycle   map[graph.NodeID]bool
}

// Build runs the BFS construction from spec.md §4.4 over snap, seeded by
// roots (attribute-value ids) and secretRoots (secret ids, expanded to
// their direct dependents and forced to execute from prototype).
func Build(snap *graph.Snapshot, roots []graph.NodeID, secretRoots []graph.NodeID) (*Graph, error) {
	g := &Graph{
		snap:        snap,
		nodes:       make(map[graph.NodeID]bool),
		deps:        make(map[graph.NodeID]map[graph.NodeID]bool),
		mustExecute: make(map[graph.NodeID]bool),
		selfCycle:   make(map[graph.NodeID]bool),
	}

	type queued struct {
		id     graph.NodeID
		forced bool
	}
	var worklist []queued
	for _, r := range roots {
		worklist = append(worklist, queued{id: r})
	}
	for _, secretID := range secretRoots {
		for _, dep := range secretDependents(snap, secretID) {
			worklist = append(worklist, queued{id: dep, forced: true})
		}
	}

	seen := make(map[graph.NodeID]bool)
	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]

		id := collapse(snap, cur.id)
		if seen[id] {
			if cur.forced {
				g.mustExecute[id] = true
			}
			continue
		}
		seen[id] = true
		g.nodes[id] = true
		if cur.forced {
			g.mustExecute[id] = true
		}

		w, err := snap.NodeWeight(id)
		if err != nil {
			return nil, err
		}
		av, ok := w.(*graph.AttributeValueWeight)
		if !ok {
			continue
		}

		// Step 1: subscribers.
		for _, dependent := range subscribersOf(snap, id) {
			g.addDep(collapse(snap, dependent), id)
			worklist = append(worklist, queued{id: dependent})
		}

		// Step 2: provider-arg links.
		for _, dependent := range providerArgDependentsOf(snap, id) {
			g.addDep(collapse(snap, dependent), id)
			worklist = append(worklist, queued{id: dependent})
		}

		// Step 3: inferred socket connections.
		for _, dependent := range socketDependentsOf(snap, id) {
			g.addDep(collapse(snap, dependent), id)
			worklist = append(worklist, queued{id: dependent})
		}

		// Step 4: object children as inputs, only when this value is
		// itself computed by a function (has an outgoing Prototype edge).
		// A child that feeds nothing downstream still needs to walk back
		// up via step 5 so its own subscribers see the parent object
		// change, hence no separate gate here.
		if av.PropKind == graph.PropKindObject && hasOutgoingPrototype(snap, id) {
			for _, child := range childAttributeValues(snap, id) {
				worklist = append(worklist, queued{id: child})
			}
		}

		// Step 5: parent propagation.
		if parent, ok := containingParent(snap, id); ok {
			g.addDep(collapse(snap, parent), id)
			worklist = append(worklist, queued{id: parent})
		}
	}

	g.breakCycles()
	return g, nil
}

// addDep records that dependent must be recomputed after upstream.
// Self-edges are recorded separately as cycles, never as a dependency on
// itself in the walkable sense.
func (g *Graph) addDep(dependent, upstream graph.NodeID) {
	if dependent == upstream {
		g.selfCycle[dependent] = true
		return
	}
	if g.deps[dependent] == nil {
		g.deps[dependent] = make(map[graph.NodeID]bool)
	}
	g.deps[dependent][upstream] = true
}

// breakCycles marks every node on a cycle as self-cycling, per spec.md
// §4.4's "mark each cycle node as depending on itself" — and, so the
// scheduler actually sees that, removes the discovered back-edge (and
// its mirror, for a mutual two-node cycle) from deps so a cyclic node
// becomes schedulable with no unresolved upstream instead of blocking
// forever on a dependency that will never clear.
func (g *Graph) breakCycles() {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[graph.NodeID]int, len(g.nodes))
	var path []graph.NodeID
	var visit func(id graph.NodeID)
	visit = func(id graph.NodeID) {
		color[id] = gray
		path = append(path, id)
		for upstream := range g.deps[id] {
			switch color[upstream] {
			case gray:
				// Every node on the DFS path from upstream down to id
				// lies on this cycle.
				for i := len(path) - 1; i >= 0; i-- {
					g.selfCycle[path[i]] = true
					if path[i] == upstream {
						break
					}
				}
				g.removeDep(id, upstream)
				if _, mutual := g.deps[upstream][id]; mutual {
					g.removeDep(upstream, id)
				}
			case white:
				visit(upstream)
			}
		}
		path = path[:len(path)-1]
		color[id] = black
	}
	for id := range g.nodes {
		if color[id] == white {
			visit(id)
		}
	}
}

// removeDep deletes the single dependent-on-upstream edge, pruning the
// dependent's empty dependency set so IndependentValues sees it as
// unblocked.
func (g *Graph) removeDep(dependent, upstream graph.NodeID) {
	ups, ok := g.deps[dependent]
	if !ok {
		return
	}
	delete(ups, upstream)
	if len(ups) == 0 {
		delete(g.deps, dependent)
	}
}

// collapse substitutes a value dominated by a dynamic parent function
// with that parent, recursively, per spec.md §4.4 step 6.
func collapse(snap *graph.Snapshot, id graph.NodeID) graph.NodeID {
	for {
		parent, ok := containingParent(snap, id)
		if !ok {
			return id
		}
		pw, err := snap.NodeWeight(parent)
		if err != nil {
			return id
		}
		pav, ok := pw.(*graph.AttributeValueWeight)
		if !ok || !isAggregate(pav.PropKind) || !hasOutgoingPrototype(snap, parent) {
			return id
		}
		id = parent
	}
}

func isAggregate(k graph.PropKind) bool {
	return k == graph.PropKindObject || k == graph.PropKindMap || k == graph.PropKindArray
}

func hasOutgoingPrototype(snap *graph.Snapshot, id graph.NodeID) bool {
	for _, e := range snap.EdgesDirected(id, graph.Outgoing) {
		if e.Weight.Kind == graph.EdgeKindPrototype {
			return true
		}
	}
	return false
}

func containingParent(snap *graph.Snapshot, id graph.NodeID) (graph.NodeID, bool) {
	for _, e := range snap.EdgesDirected(id, graph.Incoming) {
		if e.Weight.Kind != graph.EdgeKindContain {
			continue
		}
		if _, isAV := mustAttributeValue(snap, e.Source); isAV {
			return e.Source, true
		}
	}
	return graph.NilNodeID, false
}

func mustAttributeValue(snap *graph.Snapshot, id graph.NodeID) (*graph.AttributeValueWeight, bool) {
	w, err := snap.NodeWeight(id)
	if err != nil {
		return nil, false
	}
	av, ok := w.(*graph.AttributeValueWeight)
	return av, ok
}

func childAttributeValues(snap *graph.Snapshot, id graph.NodeID) []graph.NodeID {
	var children []graph.NodeID
	for _, e := range snap.EdgesDirected(id, graph.Outgoing) {
		if e.Weight.Kind != graph.EdgeKindContain {
			continue
		}
		if _, ok := mustAttributeValue(snap, e.Destination); ok {
			children = append(children, e.Destination)
		}
	}
	return children
}

// subscribersOf implements step 1: apa --ValueSubscription--> id marks
// apa's owning prototype's attribute value as a dependent of id.
func subscribersOf(snap *graph.Snapshot, id graph.NodeID) []graph.NodeID {
	return dependentsViaArgumentEdge(snap, id, graph.EdgeKindValueSubscription)
}

// providerArgDependentsOf implements step 2, the PrototypeArgumentValue
// analogue of step 1 (provider/socket-sourced arguments rather than
// path-addressed subscriptions).
func providerArgDependentsOf(snap *graph.Snapshot, id graph.NodeID) []graph.NodeID {
	return dependentsViaArgumentEdge(snap, id, graph.EdgeKindPrototypeArgumentValue)
}

// dependentsViaArgumentEdge walks id <-(edgeKind)- apa <-(PrototypeArgument)- fn <-(Prototype)- dependentAV.
func dependentsViaArgumentEdge(snap *graph.Snapshot, id graph.NodeID, edgeKind graph.EdgeKind) []graph.NodeID {
	var dependents []graph.NodeID
	for _, e := range snap.EdgesDirected(id, graph.Incoming) {
		if e.Weight.Kind != edgeKind {
			continue
		}
		apaID := e.Source
		for _, fnEdge := range snap.EdgesDirected(apaID, graph.Incoming) {
			if fnEdge.Weight.Kind != graph.EdgeKindPrototypeArgument {
				continue
			}
			fnID := fnEdge.Source
			for _, avEdge := range snap.EdgesDirected(fnID, graph.Incoming) {
				if avEdge.Weight.Kind == graph.EdgeKindPrototype {
					dependents = append(dependents, avEdge.Source)
				}
			}
		}
	}
	return dependents
}

// secretDependents finds the attribute values directly marked as using
// secretID, via the Secret's outgoing Use edges to those values.
func secretDependents(snap *graph.Snapshot, secretID graph.NodeID) []graph.NodeID {
	var dependents []graph.NodeID
	for _, e := range snap.EdgesDirected(secretID, graph.Outgoing) {
		if e.Weight.Kind != graph.EdgeKindUse {
			continue
		}
		if _, ok := mustAttributeValue(snap, e.Destination); ok {
			dependents = append(dependents, e.Destination)
		}
	}
	return dependents
}
