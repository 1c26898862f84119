package graph

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// recomputeContentAndMerkle recomputes both ContentHash (from the node's
// own content) and MerkleHash (folding ContentHash with outgoing edges)
// for a single node. Used when a node is first added or its content is
// replaced.
func (s *Snapshot) recomputeContentAndMerkle(id NodeID) error {
	w, ok := s.nodes[id]
	if !ok {
		return ErrCorrupt
	}
	raw, err := w.ContentBytes()
	if err != nil {
		return err
	}
	canonical, err := canonicalizeJSON(raw)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(canonical)
	contentHash := hex.EncodeToString(sum[:])

	info := w.Info()
	info.ContentHash = contentHash
	w.setInfo(info)

	return s.recomputeMerkleHash(id)
}

// recomputeMerkleHash recomputes only MerkleHash for id, from its current
// ContentHash and its outgoing edges' (already up to date) MerkleHashes.
func (s *Snapshot) recomputeMerkleHash(id NodeID) error {
	w, ok := s.nodes[id]
	if !ok {
		return ErrCorrupt
	}
	info := w.Info()
	merkleOf := func(target NodeID) string {
		if tw, ok := s.nodes[target]; ok {
			return tw.Info().MerkleHash
		}
		return ""
	}
	sorted := sortEdgesForMerkle(s.outgoing[id], merkleOf)

	var buf bytes.Buffer
	buf.WriteString("workspace-engine:node:v1")
	buf.WriteByte(0)
	buf.WriteString(info.ContentHash)
	for _, e := range sorted {
		buf.WriteByte(0)
		buf.WriteString(string(e.Weight.Kind))
		buf.WriteByte(0)
		buf.WriteString(merkleOf(e.Target))
	}
	sum := sha256.Sum256(buf.Bytes())
	info.MerkleHash = hex.EncodeToString(sum[:])
	w.setInfo(info)
	return nil
}

// recomputeMerkleFrom walks from id up through incoming edges to root,
// recomputing MerkleHash at each ancestor — spec.md invariant 2: "Any
// content or structural mutation changes the merkle-hash of the node and,
// transitively, of every ancestor up to root."
func (s *Snapshot) recomputeMerkleFrom(id NodeID) error {
	return s.RecomputeMerkleHashesFrom([]NodeID{id})
}

// RecomputeMerkleHashesFrom is the public contract operation: given a set
// of dirty node ids, recompute MerkleHash for each and every ancestor of
// each, up to root, visiting each node at most once.
func (s *Snapshot) RecomputeMerkleHashesFrom(dirty []NodeID) error {
	visited := make(map[NodeID]bool)
	queue := append([]NodeID(nil), dirty...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		if err := s.recomputeMerkleHash(id); err != nil {
			return err
		}
		for _, e := range s.incoming[id] {
			if !visited[e.Target] {
				queue = append(queue, e.Target)
			}
		}
	}
	return nil
}

// VerifyMerkle recomputes what a node's MerkleHash "should" be from its
// current ContentHash and outgoing edges and compares it to the stored
// value — the basis of testable invariant 1 in spec.md §8.
func (s *Snapshot) VerifyMerkle(id NodeID) (bool, error) {
	w, ok := s.nodes[id]
	if !ok {
		return false, ErrCorrupt
	}
	want := w.Info().MerkleHash
	if err := s.recomputeMerkleHash(id); err != nil {
		return false, err
	}
	got := s.nodes[id].Info().MerkleHash
	// restore (recompute is idempotent, but avoid relying on that for callers
	// who verify without intending to mutate).
	info := w.Info()
	info.MerkleHash = want
	w.setInfo(info)
	return got == want, nil
}
