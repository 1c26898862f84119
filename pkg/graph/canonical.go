package graph

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// canonicalizeJSON NFC-normalizes every string leaf (same rule the
// teacher's pkg/kernel/csnf applies before hashing) and then runs the
// RFC 8785 JSON Canonicalization Scheme over the result via the real
// gowebpki/jcs library, replacing the teacher's hand-rolled
// pkg/compliance/jcs (which only relied on encoding/json's incidental key
// sorting). This is what makes ContentHash a deterministic function of a
// node's content, independent of map iteration order or prior whitespace.
func canonicalizeJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("graph: content is not valid json: %w", err)
	}
	normalized := normalizeStrings(v)
	plain, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("graph: re-marshal failed: %w", err)
	}
	canonical, err := jcs.Transform(plain)
	if err != nil {
		return nil, fmt.Errorf("graph: jcs canonicalization failed: %w", err)
	}
	return canonical, nil
}

func normalizeStrings(v any) any {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[norm.NFC.String(k)] = normalizeStrings(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeStrings(val)
		}
		return out
	default:
		return v
	}
}
