// Package objectstore is the content-blobs-and-snapshot-bodies tier of
// the persistence layer: an S3-compatible bucket per logical cache, with
// key transformation and distribution prefixing so time-ordered keys
// don't hot-spot a single partition.
package objectstore

import "context"

// Store is the per-cache object-store contract. Keys are logical cache
// keys (pre-transform); implementations apply KeyTransform and the
// distribution prefix internally.
type Store interface {
	// Put writes value under key, content-addressed idempotency assumed
	// at the caller (re-putting identical content is a safe no-op cost-wise).
	Put(ctx context.Context, key string, value []byte) error
	// Get reads value under key. A miss is not an error: it returns
	// (nil, false, nil).
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
