// Package observability provides workspace-engine-specific instrumentation
// helpers on top of the generic RED provider.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Workspace-engine semantic convention attributes.
var (
	// Node/graph attributes
	AttrNodeID    = attribute.Key("workspace_engine.node.id")
	AttrNodeKind  = attribute.Key("workspace_engine.node.kind")
	AttrMerkleHex = attribute.Key("workspace_engine.node.merkle_hash")

	// Snapshot/change-set attributes
	AttrWorkspaceID = attribute.Key("workspace_engine.workspace.id")
	AttrChangeSetID = attribute.Key("workspace_engine.change_set.id")

	// Attribute-mutation attributes
	AttrMutationPath   = attribute.Key("workspace_engine.mutation.path")
	AttrMutationKind   = attribute.Key("workspace_engine.mutation.kind")
	AttrMutationStatus = attribute.Key("workspace_engine.mutation.status")

	// Rebase attributes
	AttrRebaseConflict = attribute.Key("workspace_engine.rebase.conflict")
	AttrRebaseOutcome  = attribute.Key("workspace_engine.rebase.outcome")

	// Dependent-value / debouncer attributes
	AttrDVUFuncID         = attribute.Key("workspace_engine.dvu.func_id")
	AttrDVULeaderInstance = attribute.Key("workspace_engine.dvu.leader_instance")

	// Persistence-layer attributes
	AttrPersistenceTier   = attribute.Key("workspace_engine.persistence.tier")
	AttrPersistenceCache  = attribute.Key("workspace_engine.persistence.cache")
	AttrPersistenceMethod = attribute.Key("workspace_engine.persistence.method")
)

// SnapshotOperation creates attributes for a snapshot/change-set operation.
func SnapshotOperation(workspaceID, changeSetID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrWorkspaceID.String(workspaceID),
		AttrChangeSetID.String(changeSetID),
	}
}

// MutationOperation creates attributes for an attribute-update operation.
func MutationOperation(nodeID, path, kind, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrNodeID.String(nodeID),
		AttrMutationPath.String(path),
		AttrMutationKind.String(kind),
		AttrMutationStatus.String(status),
	}
}

// RebaseOperation creates attributes for a rebase operation.
func RebaseOperation(changeSetID, outcome string, hadConflict bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrChangeSetID.String(changeSetID),
		AttrRebaseOutcome.String(outcome),
		AttrRebaseConflict.Bool(hadConflict),
	}
}

// DVUOperation creates attributes for a dependent-value update run.
func DVUOperation(funcID, leaderInstance string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDVUFuncID.String(funcID),
		AttrDVULeaderInstance.String(leaderInstance),
	}
}

// PersistenceOperation creates attributes for a persistence-tier call.
func PersistenceOperation(tier, cache, method string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPersistenceTier.String(tier),
		AttrPersistenceCache.String(cache),
		AttrPersistenceMethod.String(method),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus records an error, if any, on the current span.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
