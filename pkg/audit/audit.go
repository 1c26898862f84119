// Package audit is the append-only store for the audit records
// UpdateAttributes emits on a changed constant value (spec.md §4.3).
// Entries are hash-chained per workspace, the same scheme the teacher's
// evidence store uses, scoped down from tenant/evidence-bundle concerns
// that don't apply to a single-workspace attribute write.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/workspace-engine/pkg/attribute"
)

var (
	// ErrChainBroken is returned by VerifyChain when an entry's stored
	// hash doesn't match what its contents recompute to.
	ErrChainBroken = errors.New("audit: hash chain is broken")
	// ErrNotFound is returned by Get for an unknown entry id.
	ErrNotFound = errors.New("audit: entry not found")
)

// Entry is one immutable, hash-chained audit record for a workspace.
type Entry struct {
	ID           string                `json:"id"`
	WorkspaceID  string                `json:"workspace_id"`
	ChangeSetID  string                `json:"change_set_id"`
	Sequence     uint64                `json:"sequence"`
	Timestamp    time.Time             `json:"timestamp"`
	Record       attribute.AuditRecord `json:"record"`
	PreviousHash string                `json:"previous_hash"`
	EntryHash    string                `json:"entry_hash"`
}

// Store is an in-process, append-only audit log. One hash chain is kept
// per workspace, so two workspaces' writes never interleave in the same
// chain.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	byID    map[string]Entry
	heads   map[string]string // workspace id -> chain head hash
	seq     map[string]uint64 // workspace id -> next sequence
}

// NewStore creates an empty audit store.
func NewStore() *Store {
	return &Store{
		byID:  make(map[string]Entry),
		heads: make(map[string]string),
		seq:   make(map[string]uint64),
	}
}

// Append records one audit entry for workspaceID/changeSetID, chaining it
// onto that workspace's existing head.
func (s *Store) Append(workspaceID, changeSetID string, rec attribute.AuditRecord) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[workspaceID]++
	prevHash := s.heads[workspaceID]
	if prevHash == "" {
		prevHash = "genesis"
	}

	entry := Entry{
		ID:           uuid.New().String(),
		WorkspaceID:  workspaceID,
		ChangeSetID:  changeSetID,
		Sequence:     s.seq[workspaceID],
		Timestamp:    time.Now().UTC(),
		Record:       rec,
		PreviousHash: prevHash,
	}

	hash, err := entryHash(entry)
	if err != nil {
		s.seq[workspaceID]--
		return Entry{}, fmt.Errorf("audit: hash entry: %w", err)
	}
	entry.EntryHash = hash

	s.entries = append(s.entries, entry)
	s.byID[entry.ID] = entry
	s.heads[workspaceID] = hash
	return entry, nil
}

// AppendAll records every audit record from an UpdateAttributes report in
// order, onto the same chain.
func (s *Store) AppendAll(workspaceID, changeSetID string, recs []attribute.AuditRecord) ([]Entry, error) {
	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		entry, err := s.Append(workspaceID, changeSetID, rec)
		if err != nil {
			return out, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// Get retrieves one entry by id.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// ForWorkspace returns every entry recorded for workspaceID, oldest first.
func (s *Store) ForWorkspace(workspaceID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0)
	for _, e := range s.entries {
		if e.WorkspaceID == workspaceID {
			out = append(out, e)
		}
	}
	return out
}

// ChainHead returns the current chain head hash for a workspace, or
// "genesis" if nothing has been appended yet.
func (s *Store) ChainHead(workspaceID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.heads[workspaceID]; ok {
		return h
	}
	return "genesis"
}

// VerifyChain recomputes workspaceID's chain from its entries and
// confirms the stored hashes and links are unmodified.
func (s *Store) VerifyChain(workspaceID string) error {
	s.mu.RLock()
	entries := make([]Entry, 0)
	for _, e := range s.entries {
		if e.WorkspaceID == workspaceID {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	expectedPrev := "genesis"
	for i, e := range entries {
		if e.PreviousHash != expectedPrev {
			return fmt.Errorf("%w: entry %d has previous_hash %s, expected %s", ErrChainBroken, i, e.PreviousHash, expectedPrev)
		}
		computed, err := entryHash(e)
		if err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrChainBroken, i, err)
		}
		if computed != e.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrChainBroken, i)
		}
		expectedPrev = e.EntryHash
	}
	return nil
}

func entryHash(e Entry) (string, error) {
	hashable := struct {
		WorkspaceID  string                `json:"workspace_id"`
		ChangeSetID  string                `json:"change_set_id"`
		Sequence     uint64                `json:"sequence"`
		Timestamp    time.Time             `json:"timestamp"`
		Record       attribute.AuditRecord `json:"record"`
		PreviousHash string                `json:"previous_hash"`
	}{e.WorkspaceID, e.ChangeSetID, e.Sequence, e.Timestamp, e.Record, e.PreviousHash}

	data, err := json.Marshal(hashable)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
