// Package kvcoord is the key-value coordination contract the debouncer
// uses for fleet-wide leader election: create-on-absence, expected-revision
// compare-and-swap updates, delete, and get, each keyed by an opaque
// string and carrying a monotonically increasing revision.
package kvcoord

import (
	"context"
	"errors"
	"time"
)

// ErrKeyExists is returned by Create when the key is already held by
// another leader.
var ErrKeyExists = errors.New("kvcoord: key already exists")

// ErrNotFound is returned by Update/Delete/Get when the key is absent —
// either never created or already expired/deleted.
var ErrNotFound = errors.New("kvcoord: key not found")

// ErrRevisionMismatch is returned by Update when the caller's expected
// revision no longer matches the stored one: someone else updated or
// recreated the key since the caller last read it.
var ErrRevisionMismatch = errors.New("kvcoord: revision mismatch")

// Entry is a stored value plus the revision it was written at.
type Entry struct {
	Value    []byte
	Revision uint64
}

// Store is the coordination primitive the debouncer builds leader
// election and keepalive on top of. Every key carries a TTL; once it
// elapses, the entry is gone as if deleted, so a crashed leader's lease
// clears without external intervention.
type Store interface {
	// Create inserts value under key with the given TTL if and only if
	// the key does not currently exist, returning the new entry's
	// revision. Returns ErrKeyExists if someone already holds it.
	Create(ctx context.Context, key string, value []byte, ttl time.Duration) (revision uint64, err error)

	// Update compare-and-swaps value into key, succeeding only if the
	// stored revision still equals expectedRevision, refreshing the TTL.
	// Returns ErrRevisionMismatch on a stale expectedRevision and
	// ErrNotFound if the key doesn't exist (expired or never created).
	Update(ctx context.Context, key string, expectedRevision uint64, value []byte, ttl time.Duration) (newRevision uint64, err error)

	// Delete removes key unconditionally. It does not error if the key
	// is already absent — deletion is idempotent, matching a leader's
	// "purge key, then exit" cancellation contract.
	Delete(ctx context.Context, key string) error

	// Get reads the current value and revision. Returns ErrNotFound if
	// the key is absent.
	Get(ctx context.Context, key string) (Entry, error)
}
