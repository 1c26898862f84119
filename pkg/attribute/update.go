package attribute

import (
	"fmt"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
)

// AuditRecord is emitted whenever a constant write changes an attribute
// value's materialized content (spec.md §4.3's "an audit record is
// emitted" clause). Persisting these is pkg/audit's job; UpdateAttributes
// only produces them.
type AuditRecord struct {
	ComponentID graph.NodeID
	ValueID     graph.NodeID
	Path        string
	OldValue    []byte
	NewValue    []byte
}

// UpdateReport is UpdateAttributes's result: every attribute value it
// touched (in application order, deduplicated, for dependent-value-root
// seeding per spec.md §4.4) plus the audit trail of constant-value changes.
type UpdateReport struct {
	MutatedValueIDs []graph.NodeID
	Audits          []AuditRecord
}

// UpdateAttributes is the central mutation: it resolves componentRef,
// applies each (path, source) pair in order against the component's
// attribute subtree, and pushes every mutated attribute value as a
// dependent-value root on snap.
func UpdateAttributes(snap *graph.Snapshot, resolver *FuncResolver, componentRef string, updates []AttributeUpdate) (*UpdateReport, error) {
	componentID, err := ResolveComponent(snap, componentRef)
	if err != nil {
		return nil, err
	}
	rootID, err := EnsureComponentRoot(snap, componentID)
	if err != nil {
		return nil, err
	}

	report := &UpdateReport{}
	seen := make(map[graph.NodeID]bool)
	record := func(id graph.NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		report.MutatedValueIDs = append(report.MutatedValueIDs, id)
	}

	for _, upd := range updates {
		var (
			avID graph.NodeID
			aerr error
		)
		switch src := upd.Source.(type) {
		case ValueSource:
			avID, aerr = applyValue(snap, componentID, rootID, upd.Path, src.Value, report)
		case UnsetSource:
			avID, aerr = applyUnset(snap, rootID, upd.Path)
		case SubscriptionSource:
			avID, aerr = applySubscription(snap, resolver, rootID, upd.Path, src)
		default:
			aerr = fmt.Errorf("%w: unknown source type %T", ErrSourceInvalid, upd.Source)
		}
		if aerr != nil {
			return nil, fmt.Errorf("attribute: update %q: %w", upd.Path, aerr)
		}
		record(avID)
	}

	for _, id := range report.MutatedValueIDs {
		if err := pushDependentValueRoot(snap, id, false); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// applyValue sets a constant at path, vivifying as needed. Writing an
// aggregate (Object/Map/Array) wholesale-replaces the node's existing
// children: everything under the old aggregate is dropped and the new
// aggregate is stored as the node's materialized value directly, since
// decomposing an arbitrary nested JSON aggregate into a typed child-node
// tree requires the owning schema variant's prop shape, which isn't wired
// here (see DESIGN.md).
func applyValue(snap *graph.Snapshot, componentID, rootID graph.NodeID, path string, value []byte, report *UpdateReport) (graph.NodeID, error) {
	avID, err := Vivify(snap, rootID, path)
	if err != nil {
		return graph.NodeID{}, err
	}
	w, err := snap.NodeWeight(avID)
	if err != nil {
		return graph.NodeID{}, err
	}
	av, ok := w.(*graph.AttributeValueWeight)
	if !ok {
		return graph.NodeID{}, fmt.Errorf("%w: %s is not an attribute value", ErrPathInvalid, avID)
	}

	old := av.Value
	if !av.IsLeaf() {
		for _, child := range childrenOf(snap, avID) {
			snap.RemoveNode(child)
		}
	}
	av.Value = value
	av.FuncExecutionHash = ""
	if _, err := snap.AddOrReplaceNode(av); err != nil {
		return graph.NodeID{}, err
	}

	if string(old) != string(value) {
		report.Audits = append(report.Audits, AuditRecord{
			ComponentID: componentID,
			ValueID:     avID,
			Path:        path,
			OldValue:    old,
			NewValue:    value,
		})
	}
	return avID, nil
}

// applyUnset removes the child named by the final path segment if its
// parent is a map or array; otherwise it reverts the value to nil, the
// schema-default placeholder absent a wired schema-prototype resolver.
func applyUnset(snap *graph.Snapshot, rootID graph.NodeID, path string) (graph.NodeID, error) {
	segments := graph.SplitPointer(path)
	if len(segments) == 0 {
		return graph.NodeID{}, fmt.Errorf("%w: cannot unset the component root", ErrPathInvalid)
	}

	parentPath := joinSegments(segments[:len(segments)-1])
	parentID, err := snap.ResolvePath(rootID, parentPath)
	if err != nil {
		return graph.NodeID{}, err
	}
	parentW, err := snap.NodeWeight(parentID)
	if err != nil {
		return graph.NodeID{}, err
	}
	parent, ok := parentW.(*graph.AttributeValueWeight)
	if !ok {
		return graph.NodeID{}, fmt.Errorf("%w: %s is not an attribute value", ErrPathInvalid, parentID)
	}

	avID, err := snap.ResolvePath(rootID, path)
	if err != nil {
		return graph.NodeID{}, err
	}

	switch parent.PropKind {
	case graph.PropKindMap, graph.PropKindArray:
		snap.RemoveNode(avID)
		if parent.PropKind == graph.PropKindArray {
			if err := reindexOrdering(snap, parentID, avID); err != nil {
				return graph.NodeID{}, err
			}
		}
		return parentID, nil
	default:
		w, err := snap.NodeWeight(avID)
		if err != nil {
			return graph.NodeID{}, err
		}
		av := w.(*graph.AttributeValueWeight)
		av.Value = nil
		av.FuncExecutionHash = ""
		if _, err := snap.AddOrReplaceNode(av); err != nil {
			return graph.NodeID{}, err
		}
		return avID, nil
	}
}

// applySubscription installs (or, with KeepExistingSubscriptions, appends
// alongside) a subscription at path. The subscriber's value is driven by
// a Func node reached via an exclusive Prototype edge; that func's single
// argument is an AttributePrototypeArgument reached via PrototypeArgument,
// which in turn points at the upstream source value via
// ValueSubscription(path).
func applySubscription(snap *graph.Snapshot, resolver *FuncResolver, rootID graph.NodeID, path string, src SubscriptionSource) (graph.NodeID, error) {
	if src.Path == "" {
		return graph.NodeID{}, fmt.Errorf("%w: subscription requires a source path", ErrSourceInvalid)
	}
	targetComponentID, err := ResolveComponent(snap, src.Component)
	if err != nil {
		return graph.NodeID{}, err
	}

	avID, err := Vivify(snap, rootID, path)
	if err != nil {
		return graph.NodeID{}, err
	}

	if src.Func != "" && src.Func != identityFuncName {
		if _, err := resolver.program(src.Func); err != nil {
			return graph.NodeID{}, err
		}
	}

	fnID, hasExisting := existingPrototypeFunc(snap, avID)
	if hasExisting && !src.KeepExistingSubscriptions {
		if err := snap.RemoveEdge(avID, graph.EdgeKindPrototype, fnID); err != nil {
			return graph.NodeID{}, err
		}
		hasExisting = false
	}
	if !hasExisting {
		backend := graph.FuncBackendIdentity
		if src.Func != "" && src.Func != identityFuncName {
			backend = graph.FuncBackendCel
		}
		fn := &graph.FuncWeight{Name: src.Func, Backend: backend, Code: src.Func}
		fnInfo := fn.Info()
		fnInfo.ID = snap.GenerateULID()
		fnInfo.LineageID = graph.NewLineageID()
		fn.CommonInfo = fnInfo
		newFnID, err := snap.AddNode(fn)
		if err != nil {
			return graph.NodeID{}, err
		}
		if err := snap.AddEdge(avID, graph.EdgeWeight{Kind: graph.EdgeKindPrototype}, newFnID); err != nil {
			return graph.NodeID{}, err
		}
		fnID = newFnID
	}

	apa := &graph.AttributePrototypeArgumentWeight{TargetComponentID: targetComponentID, Path: src.Path}
	apaInfo := apa.Info()
	apaInfo.ID = snap.GenerateULID()
	apaInfo.LineageID = graph.NewLineageID()
	apa.CommonInfo = apaInfo
	apaID, err := snap.AddNode(apa)
	if err != nil {
		return graph.NodeID{}, err
	}

	sourceAVID, err := targetAttributeValue(snap, targetComponentID, src.Path)
	if err != nil {
		return graph.NodeID{}, err
	}

	if err := snap.AddEdge(fnID, graph.EdgeWeight{Kind: graph.EdgeKindPrototypeArgument}, apaID); err != nil {
		return graph.NodeID{}, err
	}
	if err := snap.AddEdge(apaID, graph.EdgeWeight{Kind: graph.EdgeKindValueSubscription, Path: src.Path}, sourceAVID); err != nil {
		return graph.NodeID{}, err
	}

	return avID, nil
}

// existingPrototypeFunc returns avID's current Prototype target, if any.
func existingPrototypeFunc(snap *graph.Snapshot, avID graph.NodeID) (fnID graph.NodeID, ok bool) {
	for _, e := range snap.EdgesDirected(avID, graph.Outgoing) {
		if e.Weight.Kind == graph.EdgeKindPrototype {
			return e.Destination, true
		}
	}
	return graph.NodeID{}, false
}

// targetAttributeValue resolves path within targetComponentID's own
// attribute subtree, vivifying it if this is the first subscriber to
// reference it — the source side need not already exist (spec.md §4.3:
// "validates the path is schema-valid; it need not resolve right now").
func targetAttributeValue(snap *graph.Snapshot, targetComponentID graph.NodeID, path string) (graph.NodeID, error) {
	targetRoot, err := EnsureComponentRoot(snap, targetComponentID)
	if err != nil {
		return graph.NodeID{}, err
	}
	return Vivify(snap, targetRoot, path)
}

func childrenOf(snap *graph.Snapshot, id graph.NodeID) []graph.NodeID {
	var children []graph.NodeID
	for _, e := range snap.EdgesDirected(id, graph.Outgoing) {
		if e.Weight.Kind == graph.EdgeKindContain || e.Weight.Kind == graph.EdgeKindOrdering {
			children = append(children, e.Destination)
		}
	}
	return children
}

func reindexOrdering(snap *graph.Snapshot, arrayID, removed graph.NodeID) error {
	order, err := snap.OrderedChildren(arrayID)
	if err != nil {
		return err
	}
	filtered := make([]graph.NodeID, 0, len(order))
	for _, id := range order {
		if id != removed {
			filtered = append(filtered, id)
		}
	}
	return setOrdering(snap, arrayID, filtered)
}

func joinSegments(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	out := ""
	for _, s := range segments {
		out += "/" + s
	}
	return out
}

// pushDependentValueRoot records avID as a pending dependent-value-root,
// anchored off the snapshot's own root via a uniquely keyed Contain edge
// so multiple roots can coexist without tripping the per-key exclusivity
// the attribute layer enforces on Object/Map children.
func pushDependentValueRoot(snap *graph.Snapshot, avID graph.NodeID, fromPrototypeExecution bool) error {
	dvr := &graph.DependentValueRootWeight{ValueID: avID, FromPrototypeExecution: fromPrototypeExecution}
	info := dvr.Info()
	info.ID = snap.GenerateULID()
	info.LineageID = graph.NewLineageID()
	dvr.CommonInfo = info
	dvrID, err := snap.AddNode(dvr)
	if err != nil {
		return err
	}
	return snap.AddEdge(snap.Root(), graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: "dvroot:" + dvrID.String()}, dvrID)
}
