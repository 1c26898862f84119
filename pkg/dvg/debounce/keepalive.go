package debounce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/workspace-engine/pkg/kvcoord"
)

// keepalive refreshes the coordination key at 0.85×ttl intervals,
// carrying the leader's current kvState and the last-known revision. A
// markRunning call asks it to flip the stored status to Running and
// push that update immediately, same as the control-channel op in the
// original keepalive task.
type keepalive struct {
	store kvcoord.Store
	key   string
	ttl   time.Duration

	state    kvState
	revision uint64

	runNow chan struct{}
}

func newKeepalive(store kvcoord.Store, key string, state kvState, revision uint64, ttl time.Duration) *keepalive {
	return &keepalive{
		store:    store,
		key:      key,
		ttl:      ttl,
		state:    state,
		revision: revision,
		runNow:   make(chan struct{}, 1),
	}
}

// markRunning requests the keepalive loop flip status to Running on its
// next iteration. Non-blocking: if a request is already queued, this is
// a no-op.
func (k *keepalive) markRunning() {
	select {
	case k.runNow <- struct{}{}:
	default:
	}
}

// run refreshes the key at 0.85×ttl until ctx is cancelled. It returns
// the context error on cancellation, or a wrapped kvcoord error if an
// update fails (revision mismatch: someone else became leader).
func (k *keepalive) run(ctx context.Context) error {
	interval := time.Duration(float64(k.ttl) * 0.85)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := k.updateEntry(ctx); err != nil {
				return err
			}
		case <-k.runNow:
			k.state.Status = kvStatusRunning
			if err := k.updateEntry(ctx); err != nil {
				return err
			}
		}
	}
}

func (k *keepalive) updateEntry(ctx context.Context) error {
	value, err := json.Marshal(k.state)
	if err != nil {
		return fmt.Errorf("debounce: marshal kv state: %w", err)
	}
	newRevision, err := k.store.Update(ctx, k.key, k.revision, value, k.ttl)
	if err != nil {
		return fmt.Errorf("debounce: keepalive update %q: %w", k.key, err)
	}
	k.revision = newRevision
	return nil
}
