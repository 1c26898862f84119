package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/Mindburn-Labs/workspace-engine/pkg/persistence/objectstore"
)

// changeSetRegistry is the missing glue between the debouncer's
// string-keyed change-set ids and the rest of the engine's
// *graph.Snapshot-shaped API: every open change set this process
// handles has exactly one entry, guarded for concurrent access by the
// debouncer goroutine that owns it and by whatever request path landed
// the mutation that opened it.
type changeSetRegistry struct {
	store objectstore.Store

	mu   sync.RWMutex
	open map[string]*graph.Snapshot
}

func newChangeSetRegistry(store objectstore.Store) *changeSetRegistry {
	return &changeSetRegistry{store: store, open: make(map[string]*graph.Snapshot)}
}

// Register installs snap as changeSetID's in-memory snapshot, replacing
// any prior value. Callers use this once when a change set is opened or
// rebased into.
func (r *changeSetRegistry) Register(changeSetID string, snap *graph.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[changeSetID] = snap
}

// Get returns changeSetID's current snapshot, loading it from the
// object-store tier on a cache miss.
func (r *changeSetRegistry) Get(ctx context.Context, changeSetID string) (*graph.Snapshot, error) {
	r.mu.RLock()
	snap, ok := r.open[changeSetID]
	r.mu.RUnlock()
	if ok {
		return snap, nil
	}

	body, found, err := r.store.Get(ctx, snapshotObjectKey(changeSetID))
	if err != nil {
		return nil, fmt.Errorf("changeset registry: load %q: %w", changeSetID, err)
	}
	if !found {
		return nil, fmt.Errorf("changeset registry: %q has no open snapshot", changeSetID)
	}
	snap, err = graph.Deserialize(body)
	if err != nil {
		return nil, fmt.Errorf("changeset registry: decode %q: %w", changeSetID, err)
	}

	r.mu.Lock()
	r.open[changeSetID] = snap
	r.mu.Unlock()
	return snap, nil
}

// Commit persists changeSetID's current snapshot to the object-store
// tier, the durable record a rebaser worker restarting elsewhere reads
// back via Get.
func (r *changeSetRegistry) Commit(ctx context.Context, changeSetID string) error {
	r.mu.RLock()
	snap, ok := r.open[changeSetID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("changeset registry: %q is not open", changeSetID)
	}

	body, err := snap.Serialize()
	if err != nil {
		return fmt.Errorf("changeset registry: serialize %q: %w", changeSetID, err)
	}
	if err := r.store.Put(ctx, snapshotObjectKey(changeSetID), body); err != nil {
		return fmt.Errorf("changeset registry: persist %q: %w", changeSetID, err)
	}
	return nil
}

// Forget drops changeSetID's in-memory entry once the change set is
// applied or abandoned, without touching its last-committed object-store
// body.
func (r *changeSetRegistry) Forget(changeSetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, changeSetID)
}

func snapshotObjectKey(changeSetID string) string {
	return "snapshots/" + changeSetID
}
