package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/workspace-engine/pkg/attribute"
	"github.com/Mindburn-Labs/workspace-engine/pkg/audit"
	"github.com/Mindburn-Labs/workspace-engine/pkg/dvg"
	"github.com/Mindburn-Labs/workspace-engine/pkg/dvg/debounce"
	"github.com/Mindburn-Labs/workspace-engine/pkg/funcrun"
	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/Mindburn-Labs/workspace-engine/pkg/observability"
	"github.com/Mindburn-Labs/workspace-engine/pkg/persistence/relational"
)

// funcRunClient is the subset of funcrun.Client the runner depends on,
// narrowed so tests can substitute a fake executor without a live NATS
// connection.
type funcRunClient interface {
	Execute(ctx context.Context, req funcrun.Request) (funcrun.Reply, error)
}

// engineRunner implements debounce.DVURunner: it drives one
// dependent-values-update pass over a change set's snapshot to
// completion, dispatching each independent value's prototype function
// either in-process (identity/CEL backends, via resolver) or over the
// function-execution RPC (every other backend — the opaque, sandboxed
// case spec.md §6.3 describes).
type engineRunner struct {
	registry  *changeSetRegistry
	resolver  *attribute.FuncResolver
	funcRuns  *relational.FuncRunStore
	funcrun   funcRunClient
	auditLog  *audit.Store
	obs       *observability.Provider
	workspace string // workspace id this runner's change sets belong to; fixed per runner instance

	mu       sync.Mutex
	statuses map[string]debounce.ChangeSetStatus
}

func newEngineRunner(
	registry *changeSetRegistry,
	resolver *attribute.FuncResolver,
	funcRuns *relational.FuncRunStore,
	client funcRunClient,
	auditLog *audit.Store,
	obs *observability.Provider,
	workspaceID string,
) *engineRunner {
	return &engineRunner{
		registry:  registry,
		resolver:  resolver,
		funcRuns:  funcRuns,
		funcrun:   client,
		auditLog:  auditLog,
		obs:       obs,
		workspace: workspaceID,
		statuses:  make(map[string]debounce.ChangeSetStatus),
	}
}

// status returns changeSetID's tracked lifecycle status, defaulting to
// Open for a change set this runner has never been told otherwise about
// — there is no separate change-set lifecycle store wired in, so Open
// is the only status this runner ever observes unless setStatus is
// called.
func (r *engineRunner) status(changeSetID string) debounce.ChangeSetStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.statuses[changeSetID]; ok {
		return s
	}
	return debounce.StatusOpen
}

func (r *engineRunner) setStatus(changeSetID string, status debounce.ChangeSetStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[changeSetID] = status
}

// PendingWork reports whether changeSetID's snapshot has any queued
// dependent-value roots.
func (r *engineRunner) PendingWork(ctx context.Context, changeSetID string) (bool, debounce.ChangeSetStatus, error) {
	snap, err := r.registry.Get(ctx, changeSetID)
	if err != nil {
		return false, "", err
	}
	roots, _, _ := dvg.PendingRoots(snap)
	return len(roots) > 0, r.status(changeSetID), nil
}

// RunDVU runs the dependent-values-update pass for changeSetID to
// completion: build the graph from every pending root, repeatedly
// execute its independent values until none remain, then commit the
// resulting snapshot.
func (r *engineRunner) RunDVU(ctx context.Context, changeSetID string) error {
	ctx, done := r.obs.TrackOperation(ctx, "dvg.debounce.run", observability.SnapshotOperation(r.workspace, changeSetID)...)
	var runErr error
	defer func() { done(runErr) }()

	snap, err := r.registry.Get(ctx, changeSetID)
	if err != nil {
		runErr = err
		return err
	}

	g, rootNodeIDs, err := dvg.BuildFromPending(snap, nil)
	if err != nil {
		runErr = fmt.Errorf("workspace-engine: build dependent-value graph for %q: %w", changeSetID, err)
		return runErr
	}

	mustExecute := make(map[graph.NodeID]bool)
	for _, id := range g.ValuesNeedToExecuteFromPrototypeFunction() {
		mustExecute[id] = true
	}

	for {
		independent := g.IndependentValues()
		if len(independent) == 0 {
			break
		}
		for _, avID := range independent {
			if err := r.executeValue(ctx, changeSetID, snap, avID, mustExecute[avID]); err != nil {
				runErr = fmt.Errorf("workspace-engine: execute value %s: %w", avID, err)
				return runErr
			}
			g.RemoveValue(avID)
		}
	}

	for _, rootNodeID := range rootNodeIDs {
		if err := dvg.FinishRoot(snap, rootNodeID); err != nil {
			runErr = fmt.Errorf("workspace-engine: finish root %s: %w", rootNodeID, err)
			return runErr
		}
	}

	if err := r.registry.Commit(ctx, changeSetID); err != nil {
		runErr = err
		return err
	}
	return nil
}

// executeValue resolves avID's prototype function and installs its
// result. A value with no prototype function at all (a plain constant
// pulled in only for parent-propagation bookkeeping) is left untouched.
func (r *engineRunner) executeValue(ctx context.Context, changeSetID string, snap *graph.Snapshot, avID graph.NodeID, forced bool) error {
	fn, fnID, ok := attribute.PrototypeFunc(snap, avID)
	if !ok {
		return nil
	}

	sourceAVID, hasArg := attribute.PrototypeArgument(snap, fnID)
	var upstream json.RawMessage
	if hasArg {
		v, err := attribute.UpstreamValue(snap, sourceAVID)
		if err != nil {
			return err
		}
		upstream = v
	}

	executionID := uuid.NewString()
	var (
		result json.RawMessage
		status relational.FuncRunState
		err    error
	)

	switch fn.Backend {
	case graph.FuncBackendIdentity, graph.FuncBackendCel:
		result, err = r.resolver.Resolve(fn.Code, upstream)
		if err != nil {
			status = relational.FuncRunStateFailure
		} else {
			status = relational.FuncRunStateSuccess
		}
	default:
		result, err = r.dispatchOpaque(ctx, executionID, fn, upstream)
		if err != nil {
			status = relational.FuncRunStateFailure
		} else {
			status = relational.FuncRunStateSuccess
		}
	}

	if r.funcRuns != nil {
		avIDStr := avID.String()
		now := time.Now()
		recordErr := r.funcRuns.Upsert(ctx, relational.FuncRun{
			Key:              executionID,
			CreatedAt:        now,
			UpdatedAt:        now,
			State:            status,
			FunctionKind:     relational.FunctionKindAttribute,
			WorkspaceID:      r.workspace,
			ChangeSetID:      changeSetID,
			ActorID:          "workspace-engine",
			AttributeValueID: &avIDStr,
			JSONValue:        result,
		})
		if recordErr != nil {
			observability.AddSpanEvent(ctx, "funcrun.record_failed", observability.AttrDVUFuncID.String(fn.Name))
		}
	}

	if err != nil {
		return err
	}
	if !forced && result == nil {
		return nil
	}
	return attribute.SetComputedValue(snap, avID, result, contentHash(result))
}

// dispatchOpaque sends fn's execution over the function-execution RPC —
// the path for any backend this engine doesn't resolve in-process
// (sandboxed/JS functions). The sandbox itself is out of scope; only the
// request/reply contract is implemented here.
func (r *engineRunner) dispatchOpaque(ctx context.Context, executionID string, fn *graph.FuncWeight, upstream json.RawMessage) (json.RawMessage, error) {
	args := map[string]json.RawMessage{}
	if upstream != nil {
		args["value"] = upstream
	}

	reply, err := r.funcrun.Execute(ctx, funcrun.Request{
		FuncID:      fn.Name,
		Args:        args,
		ExecutionID: executionID,
	})
	if err != nil {
		return nil, err
	}
	if reply.Status != funcrun.StatusSuccess {
		return nil, fmt.Errorf("workspace-engine: func %q execution %s failed: %v", fn.Name, executionID, reply.Logs)
	}
	return reply.Value, nil
}

func contentHash(value json.RawMessage) string {
	sum := sha256.Sum256(value)
	return "sha256:" + hex.EncodeToString(sum[:])
}
