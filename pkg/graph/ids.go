// Package graph implements the content-addressed, versioned directed graph
// that is the workspace snapshot: typed node/edge weights, Merkle hashing,
// path resolution and deterministic serialization.
package graph

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NodeID is the time-ordered 128-bit identity of a node, stable across
// structural mutation but NOT across content-changing replacement — the
// spec calls this the "ulid". Two nodes with the same NodeID never coexist
// in one snapshot (invariant 1).
type NodeID = ulid.ULID

// LineageID is stable across content-changing replacements of a node
// (ReplaceNode in the rebaser); it is how the detector matches a changed
// node across two snapshots when the NodeID itself was regenerated.
type LineageID = uuid.UUID

// NilNodeID is the zero value, used as a sentinel for "no node".
var NilNodeID = ulid.ULID{}

// idGenerator produces monotonically increasing ulids scoped to one
// snapshot. It is a property of the Snapshot, not a package-level
// singleton — see spec.md §9 "Global mutable coordination: ... no
// module-level mutables".
type idGenerator struct {
	mu   sync.Mutex
	mono *ulid.MonotonicEntropy
}

func newIDGenerator() *idGenerator {
	return &idGenerator{mono: ulid.Monotonic(rand.NewChaCha8(seed()), 0)}
}

func seed() [32]byte {
	var b [32]byte
	_, _ = crand.Read(b[:])
	return b
}

// Generate returns the next monotonic ulid for this snapshot's generator.
func (g *idGenerator) Generate() NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.mono)
}

// NewLineageID returns a fresh random lineage id.
func NewLineageID() LineageID {
	return uuid.New()
}

// ParseNodeID parses the canonical text encoding of a NodeID.
func ParseNodeID(s string) (NodeID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("graph: invalid node id %q: %w", s, err)
	}
	return id, nil
}
