package attribute_test

import (
	"encoding/json"
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/attribute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUpdatePairs_PreservesOrderAndDuplicates(t *testing.T) {
	raw := json.RawMessage(`[
		["/domain/Name", "web-1"],
		["/domain/IPs/-", "10.0.0.1"],
		["/domain/IPs/-", "10.0.0.2"]
	]`)

	updates, err := attribute.DecodeUpdatePairs(raw)
	require.NoError(t, err)
	require.Len(t, updates, 3)
	assert.Equal(t, "/domain/Name", updates[0].Path)
	assert.Equal(t, "/domain/IPs/-", updates[1].Path)
	assert.Equal(t, "/domain/IPs/-", updates[2].Path)

	v1, ok := updates[1].Source.(attribute.ValueSource)
	require.True(t, ok)
	assert.JSONEq(t, `"10.0.0.1"`, string(v1.Value))
}

func TestDecodeUpdatePairs_RejectsWrongArity(t *testing.T) {
	_, err := attribute.DecodeUpdatePairs(json.RawMessage(`[["/a", "b", "c"]]`))
	assert.Error(t, err)
}

func TestEncodeUpdatePairs_RoundTrip(t *testing.T) {
	updates := []attribute.AttributeUpdate{
		{Path: "/domain/Name", Source: attribute.ValueSource{Value: json.RawMessage(`"web-1"`)}},
		{Path: "/domain/Timeout", Source: attribute.UnsetSource{}},
	}
	raw, err := attribute.EncodeUpdatePairs(updates)
	require.NoError(t, err)

	decoded, err := attribute.DecodeUpdatePairs(raw)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, updates[0].Path, decoded[0].Path)
	assert.Equal(t, attribute.UnsetSource{}, decoded[1].Source)
}
