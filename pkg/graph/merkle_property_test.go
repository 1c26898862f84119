//go:build property
// +build property

package graph_test

import (
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/graph"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestMerkleRecompute_Idempotent verifies recomputing an untouched
// snapshot's merkle hashes never changes them.
// Property: VerifyMerkle(n) == true for every node in a freshly built chain.
func TestMerkleRecompute_Idempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("every node in a chain verifies after construction", prop.ForAll(
		func(names []string) bool {
			if len(names) == 0 {
				return true
			}
			s := graph.New()
			prev := s.Root()
			for _, n := range names {
				if n == "" {
					continue
				}
				id := s.GenerateULID()
				w := &graph.ComponentWeight{Name: n}
				info := w.Info()
				info.ID = id
				w.CommonInfo = info
				added, err := s.AddNode(w)
				if err != nil {
					return false
				}
				if err := s.AddEdge(prev, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: n}, added); err != nil {
					return false
				}
				prev = added
			}
			for _, id := range s.Nodes() {
				ok, err := s.VerifyMerkle(id)
				if err != nil || !ok {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestSerializeDeserialize_PreservesMerkleHashes verifies round-tripping
// through the wire encoding never changes any node's merkle hash.
func TestSerializeDeserialize_PreservesMerkleHashes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("serialize then deserialize preserves merkle hashes", prop.ForAll(
		func(names []string) bool {
			s := graph.New()
			prev := s.Root()
			for _, n := range names {
				if n == "" {
					continue
				}
				id := s.GenerateULID()
				w := &graph.ComponentWeight{Name: n}
				info := w.Info()
				info.ID = id
				w.CommonInfo = info
				added, err := s.AddNode(w)
				if err != nil {
					return false
				}
				if err := s.AddEdge(prev, graph.EdgeWeight{Kind: graph.EdgeKindContain, Key: n}, added); err != nil {
					return false
				}
				prev = added
			}

			encoded, err := s.Serialize()
			if err != nil {
				return false
			}
			restored, err := graph.Deserialize(encoded)
			if err != nil {
				return false
			}

			for _, id := range s.Nodes() {
				orig, err := s.NodeWeight(id)
				if err != nil {
					return false
				}
				got, err := restored.NodeWeight(id)
				if err != nil {
					return false
				}
				if orig.Info().MerkleHash != got.Info().MerkleHash {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.AlphaString()),
	))

	properties.TestingRun(t)
}
