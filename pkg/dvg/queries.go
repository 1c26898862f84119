package dvg

import "github.com/Mindburn-Labs/workspace-engine/pkg/graph"

// IndependentValues returns the values with no unresolved upstream
// dependency: safe to execute first, in any order relative to each other.
func (g *Graph) IndependentValues() []graph.NodeID {
	var out []graph.NodeID
	for id := range g.nodes {
		if len(g.deps[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// DirectDependenciesOf returns the ids v must wait on before it may
// recompute. Empty for a value not present in the graph.
func (g *Graph) DirectDependenciesOf(v graph.NodeID) []graph.NodeID {
	deps := g.deps[v]
	if len(deps) == 0 {
		return nil
	}
	out := make([]graph.NodeID, 0, len(deps))
	for id := range deps {
		out = append(out, id)
	}
	return out
}

// ContainsValue reports whether v was reached during construction
// (after collapse substitution).
func (g *Graph) ContainsValue(v graph.NodeID) bool {
	return g.nodes[v]
}

// CycleOnSelf reports whether v participates in a dependency cycle and
// must therefore be scheduled exactly once regardless of which upstream
// value triggered it.
func (g *Graph) CycleOnSelf(v graph.NodeID) bool {
	return g.selfCycle[v]
}

// RemoveValue drops v from the graph along with any dependency edges
// referencing it, used once its recomputation has finished.
func (g *Graph) RemoveValue(v graph.NodeID) {
	delete(g.nodes, v)
	delete(g.deps, v)
	delete(g.mustExecute, v)
	delete(g.selfCycle, v)
	for id, ups := range g.deps {
		delete(ups, v)
		if len(ups) == 0 {
			delete(g.deps, id)
		}
	}
}

// ValuesNeedToExecuteFromPrototypeFunction returns the values that must
// run their prototype function rather than reuse a cached result, because
// they were reached via a secret-root expansion (spec.md §4.4) or were
// queued by BuildFromPending from a root marked FromPrototypeExecution.
func (g *Graph) ValuesNeedToExecuteFromPrototypeFunction() []graph.NodeID {
	out := make([]graph.NodeID, 0, len(g.mustExecute))
	for id := range g.mustExecute {
		out = append(out, id)
	}
	return out
}
