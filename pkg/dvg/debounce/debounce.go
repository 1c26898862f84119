// Package debounce implements the per-change-set leader-election task
// that coalesces dependent-value update passes across a fleet of rebaser
// workers, coordinating through a shared kvcoord.Store. At most one
// worker runs the DVU pass for a given change set at any moment,
// fleet-wide, without a central scheduler.
package debounce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/workspace-engine/pkg/kvcoord"
)

// ChangeSetStatus mirrors the subset of change-set lifecycle states the
// debouncer cares about: whether it's still worth running a DVU pass.
type ChangeSetStatus string

const (
	StatusOpen                 ChangeSetStatus = "Open"
	StatusNeedsApproval        ChangeSetStatus = "NeedsApproval"
	StatusNeedsAbandonApproval ChangeSetStatus = "NeedsAbandonApproval"
)

// Open reports whether a change set in this status is still eligible
// for a dependent-values-update pass.
func (s ChangeSetStatus) Open() bool {
	switch s {
	case StatusOpen, StatusNeedsApproval, StatusNeedsAbandonApproval:
		return true
	default:
		return false
	}
}

// DVURunner is the hook into the rest of the engine: checking whether a
// change set's snapshot has pending dependent-value roots, and running
// the update pass to completion when it does.
type DVURunner interface {
	// PendingWork reports whether changeSetID's current snapshot has any
	// queued dependent-value roots, and the change set's lifecycle status.
	PendingWork(ctx context.Context, changeSetID string) (hasPendingRoots bool, status ChangeSetStatus, err error)
	// RunDVU runs the dependent-values-update pass for changeSetID to
	// completion and commits the resulting snapshot.
	RunDVU(ctx context.Context, changeSetID string) error
}

type kvStatus string

const (
	kvStatusWaiting kvStatus = "Waiting"
	kvStatusRunning kvStatus = "Running"
)

type kvState struct {
	InstanceID string   `json:"instance_id"`
	Status     kvStatus `json:"status"`
}

// debouncerState is the DebouncerState enum from the original task:
// WaitingToBecomeLeader, RunningAsLeader, Cancelled.
type debouncerState int

const (
	stateWaitingToBecomeLeader debouncerState = iota
	stateRunningAsLeader
	stateCancelled
)

// Debouncer runs the leader-election/keepalive/DVU-check state machine
// for one change set. Callers run exactly one per change set they
// handle, typically for the lifetime of that change set being open.
type Debouncer struct {
	instanceID  string
	store       kvcoord.Store
	key         string
	runner      DVURunner
	changeSetID string

	ttl              time.Duration
	dvuCheckInterval time.Duration

	restartedCount int
}

// New builds a Debouncer coordinating leadership for changeSetID under
// key (typically "{workspace_id}.{change_set_id}") against store. ttl is
// the KV key's lease duration; keepalive fires at 0.85×ttl.
// dvuCheckInterval is how often the leader re-checks for pending roots
// (and, while waiting, how often it polls for the key having gone
// missing — no watch primitive is assumed of kvcoord.Store).
func New(instanceID string, store kvcoord.Store, key, changeSetID string, runner DVURunner, ttl, dvuCheckInterval time.Duration) *Debouncer {
	return &Debouncer{
		instanceID:       instanceID,
		store:            store,
		key:              key,
		runner:           runner,
		changeSetID:      changeSetID,
		ttl:              ttl,
		dvuCheckInterval: dvuCheckInterval,
	}
}

// Run drives the state machine until ctx is cancelled, restarting on
// unexpected internal errors (mirroring the original task's
// restart-on-error outer loop) and returning once a clean cancellation
// has been observed.
func (d *Debouncer) Run(ctx context.Context) {
	for {
		err := d.tryRun(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		d.restartedCount++
	}
}

func (d *Debouncer) tryRun(ctx context.Context) error {
	state := stateWaitingToBecomeLeader
	var leaderState kvState
	var leaderRevision uint64

	for {
		switch state {
		case stateWaitingToBecomeLeader:
			next, ks, rev, err := d.waitingToBecomeLeader(ctx)
			if err != nil {
				return err
			}
			state, leaderState, leaderRevision = next, ks, rev
		case stateRunningAsLeader:
			next, err := d.runningAsLeader(ctx, leaderState, leaderRevision)
			if err != nil {
				return err
			}
			state = next
		case stateCancelled:
			return nil
		}
	}
}

// waitingToBecomeLeader polls for the coordination key's absence and
// attempts to create it; this substitutes for the original task's
// watch-with-history subscription, since kvcoord.Store's contract is
// poll-based rather than streaming.
func (d *Debouncer) waitingToBecomeLeader(ctx context.Context) (debouncerState, kvState, uint64, error) {
	ticker := time.NewTicker(d.dvuCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return stateCancelled, kvState{}, 0, nil
		case <-ticker.C:
			next, ks, rev, err := d.attemptToAcquireKey(ctx)
			if err != nil {
				return 0, kvState{}, 0, err
			}
			if next == stateRunningAsLeader {
				return next, ks, rev, nil
			}
			// Lost the race; keep polling.
		}
	}
}

func (d *Debouncer) attemptToAcquireKey(ctx context.Context) (debouncerState, kvState, uint64, error) {
	ks := kvState{InstanceID: d.instanceID, Status: kvStatusWaiting}
	value, err := json.Marshal(ks)
	if err != nil {
		return 0, kvState{}, 0, fmt.Errorf("debounce: marshal kv state: %w", err)
	}

	revision, err := d.store.Create(ctx, d.key, value, d.ttl)
	if err != nil {
		if errors.Is(err, kvcoord.ErrKeyExists) {
			return stateWaitingToBecomeLeader, kvState{}, 0, nil
		}
		return 0, kvState{}, 0, fmt.Errorf("debounce: create key %q: %w", d.key, err)
	}
	return stateRunningAsLeader, ks, revision, nil
}

// runningAsLeader spawns the keepalive sub-loop and runs the periodic
// DVU-check sub-loop until the change set's DVU pass completes, the
// keepalive fails (someone else took over), or ctx is cancelled.
func (d *Debouncer) runningAsLeader(ctx context.Context, ks kvState, revision uint64) (debouncerState, error) {
	keepaliveCtx, cancelKeepalive := context.WithCancel(ctx)
	defer cancelKeepalive()

	k := newKeepalive(d.store, d.key, ks, revision, d.ttl)
	keepaliveDone := make(chan error, 1)
	// The DVU-check sub-loop runs under innerCtx, which the keepalive
	// cancels when it stops, so a lost lease also ends the DVU checks.
	innerCtx, cancelInner := context.WithCancel(ctx)
	defer cancelInner()
	go func() {
		keepaliveDone <- k.run(keepaliveCtx)
		cancelInner()
	}()

	innerState, innerErr := d.runningAsLeaderInner(innerCtx, k)

	cancelKeepalive()
	keepaliveErr := <-keepaliveDone

	if keepaliveErr != nil && !errors.Is(keepaliveErr, context.Canceled) {
		// The keepalive lost the lease to someone else; we are no
		// longer leader and must not purge a key we don't own.
		return stateWaitingToBecomeLeader, innerErr
	}

	// Purge on a detached context: a cancelled leader must still delete
	// its key so re-election isn't stuck waiting out the full TTL.
	purgeCtx, cancelPurge := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPurge()
	if purgeErr := d.store.Delete(purgeCtx, d.key); purgeErr != nil {
		return 0, fmt.Errorf("debounce: purge key %q: %w", d.key, purgeErr)
	}

	if innerErr != nil {
		return 0, innerErr
	}
	return innerState, nil
}

func (d *Debouncer) runningAsLeaderInner(ctx context.Context, k *keepalive) (debouncerState, error) {
	ticker := time.NewTicker(d.dvuCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return stateCancelled, nil
		case <-ticker.C:
			next, ran, err := d.runDVUIfPending(ctx, k)
			if err != nil {
				return 0, err
			}
			if ran {
				return next, nil
			}
		}
	}
}

func (d *Debouncer) runDVUIfPending(ctx context.Context, k *keepalive) (debouncerState, bool, error) {
	hasPending, status, err := d.runner.PendingWork(ctx, d.changeSetID)
	if err != nil {
		return 0, false, fmt.Errorf("debounce: check pending work: %w", err)
	}
	if !hasPending || !status.Open() {
		return 0, false, nil
	}

	k.markRunning()

	if err := d.runner.RunDVU(ctx, d.changeSetID); err != nil {
		return 0, false, fmt.Errorf("debounce: run dvu: %w", err)
	}
	return stateWaitingToBecomeLeader, true, nil
}
