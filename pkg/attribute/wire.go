package attribute

import (
	"encoding/json"
	"fmt"
)

// AttributeUpdate is one (path, source) pair from an update_attributes
// call. Order and duplicate paths are both significant (spec.md §4.3), so
// callers must keep these in a slice, never a map.
type AttributeUpdate struct {
	Path   string
	Source Source
}

// DecodeUpdatePairs parses the §6.2 wire format: a JSON array of
// [path, sourceValue] two-element arrays, preserving order and duplicates.
func DecodeUpdatePairs(raw json.RawMessage) ([]AttributeUpdate, error) {
	var rawPairs []json.RawMessage
	if err := json.Unmarshal(raw, &rawPairs); err != nil {
		return nil, fmt.Errorf("attribute: malformed update pair list: %w", err)
	}

	updates := make([]AttributeUpdate, 0, len(rawPairs))
	for i, rawPair := range rawPairs {
		var tuple []json.RawMessage
		if err := json.Unmarshal(rawPair, &tuple); err != nil || len(tuple) != 2 {
			return nil, fmt.Errorf("attribute: pair %d is not a [path, source] tuple", i)
		}
		var path string
		if err := json.Unmarshal(tuple[0], &path); err != nil {
			return nil, fmt.Errorf("attribute: pair %d has a non-string path: %w", i, err)
		}
		src, err := DecodeSource(tuple[1])
		if err != nil {
			return nil, fmt.Errorf("attribute: pair %d: %w", i, err)
		}
		updates = append(updates, AttributeUpdate{Path: path, Source: src})
	}
	return updates, nil
}

// EncodeUpdatePairs is DecodeUpdatePairs's inverse.
func EncodeUpdatePairs(updates []AttributeUpdate) (json.RawMessage, error) {
	pairs := make([]json.RawMessage, 0, len(updates))
	for _, u := range updates {
		srcRaw, err := EncodeSource(u.Source)
		if err != nil {
			return nil, err
		}
		pathRaw, err := json.Marshal(u.Path)
		if err != nil {
			return nil, err
		}
		tuple, err := json.Marshal([]json.RawMessage{pathRaw, srcRaw})
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, tuple)
	}
	return json.Marshal(pairs)
}
