package graph

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
)

// wireNode is the on-disk envelope for one node: a kind discriminant plus
// the variant's own JSON-encoded fields (CommonInfo serialized
// separately so every variant shares one encode/decode path).
type wireNode struct {
	Kind NodeKind        `json:"kind"`
	Info CommonInfo      `json:"info"`
	Body json.RawMessage `json:"body"`
}

type wireEdge struct {
	Source      NodeID   `json:"source"`
	Destination NodeID   `json:"destination"`
	Kind        EdgeKind `json:"kind"`
	Key         string   `json:"key,omitempty"`
	Path        string   `json:"path,omitempty"`
	Ordinal     int      `json:"ordinal,omitempty"`
}

type wireSnapshot struct {
	Root  NodeID     `json:"root"`
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

// NodeByteSize returns the serialized byte length of a single node, for
// the per-kind telemetry named in spec.md §4.1.
func NodeByteSize(w NodeWeight) (int, error) {
	wn, err := encodeNode(w)
	if err != nil {
		return 0, err
	}
	b, err := json.Marshal(wn)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func encodeNode(w NodeWeight) (wireNode, error) {
	body, err := w.ContentBytes()
	if err != nil {
		return wireNode{}, err
	}
	return wireNode{Kind: w.Kind(), Info: w.Info(), Body: body}, nil
}

func decodeNode(wn wireNode) (NodeWeight, error) {
	factory, ok := nodeFactories[wn.Kind]
	if !ok {
		return nil, fmt.Errorf("graph: unknown node kind %q during deserialize", wn.Kind)
	}
	w, err := factory(wn.Body)
	if err != nil {
		return nil, fmt.Errorf("graph: decoding %s body: %w", wn.Kind, err)
	}
	w.setInfo(wn.Info)
	return w, nil
}

// Serialize produces the canonical, length-prefixed binary encoding used
// for on-disk storage: a 4-byte big-endian length prefix followed by the
// canonical JSON body. Canonicalizing the JSON (via the same JCS pass
// content-hashing uses) keeps the encoding deterministic across processes,
// satisfying serialize ∘ deserialize = id regardless of Go map iteration
// order.
func (s *Snapshot) Serialize() ([]byte, error) {
	ws := wireSnapshot{Root: s.root}
	ids := s.Nodes()
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	for _, id := range ids {
		wn, err := encodeNode(s.nodes[id])
		if err != nil {
			return nil, err
		}
		ws.Nodes = append(ws.Nodes, wn)
	}
	for _, src := range ids {
		for _, r := range s.outgoing[src] {
			ws.Edges = append(ws.Edges, wireEdge{
				Source:      src,
				Destination: r.Target,
				Kind:        r.Weight.Kind,
				Key:         r.Weight.Key,
				Path:        r.Weight.Path,
				Ordinal:     r.Weight.Ordinal,
			})
		}
	}
	body, err := json.Marshal(ws)
	if err != nil {
		return nil, fmt.Errorf("graph: marshal snapshot: %w", err)
	}
	canonical, err := canonicalizeJSON(body)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(canonical))); err != nil {
		return nil, err
	}
	buf.Write(canonical)
	return buf.Bytes(), nil
}

// Deserialize parses the encoding produced by Serialize back into a
// Snapshot with a fresh (but equivalent) internal index.
func Deserialize(data []byte) (*Snapshot, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("graph: truncated snapshot encoding")
	}
	length := binary.BigEndian.Uint32(data[:4])
	body := data[4:]
	if uint32(len(body)) != length {
		return nil, fmt.Errorf("graph: length prefix %d does not match body length %d", length, len(body))
	}

	var ws wireSnapshot
	if err := json.Unmarshal(body, &ws); err != nil {
		return nil, fmt.Errorf("graph: unmarshal snapshot: %w", err)
	}

	s := &Snapshot{
		root:     ws.Root,
		nodes:    make(map[NodeID]NodeWeight, len(ws.Nodes)),
		outgoing: make(map[NodeID][]edgeRecord),
		incoming: make(map[NodeID][]edgeRecord),
		lineage:  make(map[LineageID]NodeID, len(ws.Nodes)),
		idGen:    newIDGenerator(),
	}
	for _, wn := range ws.Nodes {
		w, err := decodeNode(wn)
		if err != nil {
			return nil, err
		}
		s.nodes[wn.Info.ID] = w
		if wn.Info.LineageID != (LineageID{}) {
			s.lineage[wn.Info.LineageID] = wn.Info.ID
		}
	}
	for _, we := range ws.Edges {
		if _, ok := s.nodes[we.Source]; !ok {
			return nil, fmt.Errorf("%w: edge source %s missing", ErrCorrupt, we.Source)
		}
		if _, ok := s.nodes[we.Destination]; !ok {
			return nil, fmt.Errorf("%w: edge destination %s missing", ErrCorrupt, we.Destination)
		}
		weight := EdgeWeight{Kind: we.Kind, Key: we.Key, Path: we.Path, Ordinal: we.Ordinal}
		s.outgoing[we.Source] = append(s.outgoing[we.Source], edgeRecord{Weight: weight, Target: we.Destination})
		s.incoming[we.Destination] = append(s.incoming[we.Destination], edgeRecord{Weight: weight, Target: we.Source})
	}
	return s, nil
}
