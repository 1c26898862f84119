package debounce_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mindburn-Labs/workspace-engine/pkg/dvg/debounce"
	"github.com/Mindburn-Labs/workspace-engine/pkg/kvcoord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTTL      = 40 * time.Millisecond
	testInterval = 5 * time.Millisecond
	eventually   = 500 * time.Millisecond
	tick         = 5 * time.Millisecond
)

type fakeRunner struct {
	mu         sync.Mutex
	hasPending bool
	status     debounce.ChangeSetStatus

	runCount int32
}

func newFakeRunner(hasPending bool, status debounce.ChangeSetStatus) *fakeRunner {
	return &fakeRunner{hasPending: hasPending, status: status}
}

func (f *fakeRunner) setPending(hasPending bool, status debounce.ChangeSetStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasPending, f.status = hasPending, status
}

func (f *fakeRunner) PendingWork(_ context.Context, _ string) (bool, debounce.ChangeSetStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasPending, f.status, nil
}

func (f *fakeRunner) RunDVU(_ context.Context, _ string) error {
	atomic.AddInt32(&f.runCount, 1)
	return nil
}

func (f *fakeRunner) runs() int32 {
	return atomic.LoadInt32(&f.runCount)
}

func TestDebouncer_RunsPendingDVUAfterElection(t *testing.T) {
	store := kvcoord.NewMemStore()
	runner := newFakeRunner(true, debounce.StatusOpen)
	d := debounce.New("instance-a", store, "ws1.cs1", "cs1", runner, testTTL, testInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	assert.Eventually(t, func() bool {
		return runner.runs() > 0
	}, eventually, tick, "leader should have run the DVU pass at least once")
}

func TestDebouncer_SkipsDVUWhenNoPendingWork(t *testing.T) {
	store := kvcoord.NewMemStore()
	runner := newFakeRunner(false, debounce.StatusOpen)
	d := debounce.New("instance-a", store, "ws1.cs1", "cs1", runner, testTTL, testInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// Give it time to become leader and run several check cycles.
	require.Eventually(t, func() bool {
		entry, err := store.Get(context.Background(), "ws1.cs1")
		return err == nil && len(entry.Value) > 0
	}, eventually, tick, "leader should have claimed the coordination key")

	time.Sleep(6 * testInterval)
	assert.Zero(t, runner.runs(), "no pending roots means the DVU pass must not run")
}

func TestDebouncer_CancellationPurgesKeyWhileLeader(t *testing.T) {
	store := kvcoord.NewMemStore()
	runner := newFakeRunner(false, debounce.StatusOpen)
	d := debounce.New("instance-a", store, "ws1.cs1", "cs1", runner, testTTL, testInterval)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	require.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), "ws1.cs1")
		return err == nil
	}, eventually, tick, "debouncer should have become leader")

	cancel()

	assert.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), "ws1.cs1")
		return err == kvcoord.ErrNotFound
	}, eventually, tick, "a cancelled leader must purge its own key")
}

func TestDebouncer_CancellationWhileWaitingDoesNotTouchAnotherLeadersKey(t *testing.T) {
	store := kvcoord.NewMemStore()
	ctx := context.Background()
	_, err := store.Create(ctx, "ws1.cs1", []byte(`{"instance_id":"someone-else","status":"Waiting"}`), time.Hour)
	require.NoError(t, err)

	runner := newFakeRunner(true, debounce.StatusOpen)
	d := debounce.New("instance-a", store, "ws1.cs1", "cs1", runner, testTTL, testInterval)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(runCtx)
		close(done)
	}()

	time.Sleep(3 * testInterval)
	cancel()

	select {
	case <-done:
	case <-time.After(eventually):
		t.Fatal("Run did not return after cancellation while waiting")
	}

	entry, err := store.Get(context.Background(), "ws1.cs1")
	require.NoError(t, err, "the other leader's key must survive untouched")
	assert.Contains(t, string(entry.Value), "someone-else")
	assert.Zero(t, runner.runs())
}

func TestDebouncer_LeaseLostToCompetingWriterReturnsToWaiting(t *testing.T) {
	store := kvcoord.NewMemStore()
	runner := newFakeRunner(false, debounce.StatusOpen)
	d := debounce.New("instance-a", store, "ws1.cs1", "cs1", runner, testTTL, testInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.Eventually(t, func() bool {
		entry, err := store.Get(context.Background(), "ws1.cs1")
		return err == nil && len(entry.Value) > 0
	}, eventually, tick, "debouncer should have become leader")

	// Simulate a competing writer stealing the key out from under the
	// keepalive: delete and recreate with a fresh revision neither side
	// agreed on, so the next keepalive refresh sees a mismatch.
	require.NoError(t, store.Delete(context.Background(), "ws1.cs1"))
	_, err := store.Create(context.Background(), "ws1.cs1", []byte(`{"instance_id":"competitor","status":"Waiting"}`), time.Hour)
	require.NoError(t, err)

	// The keepalive should fail its next refresh (it fires every
	// 0.85×ttl), sending the debouncer back to WaitingToBecomeLeader
	// without touching the competitor's key.
	time.Sleep(time.Duration(float64(testTTL)*0.85) + 4*testInterval)
	entry, err := store.Get(context.Background(), "ws1.cs1")
	require.NoError(t, err)
	assert.Contains(t, string(entry.Value), "competitor", "debouncer must not have purged a key it no longer owns")

	// Once the competitor releases it, our instance should reclaim leadership.
	require.NoError(t, store.Delete(context.Background(), "ws1.cs1"))
	assert.Eventually(t, func() bool {
		entry, err := store.Get(context.Background(), "ws1.cs1")
		return err == nil && strings.Contains(string(entry.Value), "instance-a")
	}, eventually, tick, "debouncer should re-elect itself once the competitor's key clears")
}
