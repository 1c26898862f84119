package attribute

import (
	"encoding/json"
	"fmt"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
)

// PrototypeFunc returns the Func node governing avID's materialized
// value, if one is attached via an outgoing Prototype edge. A value with
// no prototype function (a plain constant) reports ok == false.
func PrototypeFunc(snap *graph.Snapshot, avID graph.NodeID) (fn *graph.FuncWeight, fnID graph.NodeID, ok bool) {
	fnID, ok = existingPrototypeFunc(snap, avID)
	if !ok {
		return nil, graph.NodeID{}, false
	}
	w, err := snap.NodeWeight(fnID)
	if err != nil {
		return nil, graph.NodeID{}, false
	}
	fw, ok := w.(*graph.FuncWeight)
	if !ok {
		return nil, graph.NodeID{}, false
	}
	return fw, fnID, true
}

// PrototypeArgument resolves the single upstream attribute value feeding
// fnID's argument, following fn --PrototypeArgument--> apa
// --ValueSubscription--> source, the shape applySubscription builds.
// Reports ok == false if fnID has no wired argument (an identity
// function installed directly by a constant write never does).
func PrototypeArgument(snap *graph.Snapshot, fnID graph.NodeID) (sourceAVID graph.NodeID, ok bool) {
	for _, e := range snap.EdgesDirected(fnID, graph.Outgoing) {
		if e.Weight.Kind != graph.EdgeKindPrototypeArgument {
			continue
		}
		apaID := e.Destination
		for _, se := range snap.EdgesDirected(apaID, graph.Outgoing) {
			if se.Weight.Kind == graph.EdgeKindValueSubscription {
				return se.Destination, true
			}
		}
	}
	return graph.NodeID{}, false
}

// UpstreamValue reads avID's current materialized JSON value, for
// feeding as a prototype function's argument.
func UpstreamValue(snap *graph.Snapshot, avID graph.NodeID) (json.RawMessage, error) {
	w, err := snap.NodeWeight(avID)
	if err != nil {
		return nil, err
	}
	av, ok := w.(*graph.AttributeValueWeight)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an attribute value", ErrPathInvalid, avID)
	}
	return av.Value, nil
}

// SetComputedValue installs value as avID's materialized content — the
// result of running its prototype function — and records
// executionHash so a later pass over unchanged inputs can be
// short-circuited by comparing hashes rather than re-running the
// function.
func SetComputedValue(snap *graph.Snapshot, avID graph.NodeID, value json.RawMessage, executionHash string) error {
	w, err := snap.NodeWeight(avID)
	if err != nil {
		return err
	}
	av, ok := w.(*graph.AttributeValueWeight)
	if !ok {
		return fmt.Errorf("%w: %s is not an attribute value", ErrPathInvalid, avID)
	}
	av.Value = value
	av.FuncExecutionHash = executionHash
	_, err = snap.AddOrReplaceNode(av)
	return err
}
