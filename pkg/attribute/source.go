package attribute

import (
	"encoding/json"
	"fmt"
)

// Source is the closed sum type describing where an AttributeValue's
// content comes from (spec.md §4.3): a constant, a subscription to another
// component's resolved value, or unset (revert to the schema default).
type Source interface {
	isSource()
}

// ValueSource is a constant JSON value. Value may itself be the JSON null
// literal, which is distinct from Unset.
type ValueSource struct {
	Value json.RawMessage
}

// SubscriptionSource resolves to the result of applying Func (defaulting
// to identity) to the value at Path within the referenced component.
// Component is either a NodeID string or a workspace-unique component name,
// resolved by the caller against a snapshot.
type SubscriptionSource struct {
	Component                 string
	Path                      string
	Func                      string
	KeepExistingSubscriptions bool
}

// UnsetSource reverts the attribute value to the schema-provided default
// prototype.
type UnsetSource struct{}

func (ValueSource) isSource()        {}
func (SubscriptionSource) isSource() {}
func (UnsetSource) isSource()        {}

// wireSourceEnvelope mirrors the `$source` disambiguation forms from spec.md §4.3:
//
//	{"$source": null}                                    -> Unset
//	{"$source": {}}                                       -> Unset
//	{"$source": {"value": X}}                             -> ValueSource{X}
//	{"$source": {"component": .., "path": .., "func": ..}} -> SubscriptionSource
//	any other JSON value (no "$source" key)                -> ValueSource{that value}
type wireSourceEnvelope struct {
	Source *json.RawMessage `json:"$source"`
}

type wireSourceBody struct {
	Value                     *json.RawMessage `json:"value"`
	Component                 string            `json:"component"`
	Path                      string            `json:"path"`
	Func                      string            `json:"func"`
	KeepExistingSubscriptions bool              `json:"keep_existing_subscriptions"`
}

// DecodeSource parses one wire-form value into a Source, per the
// disambiguation rules above.
func DecodeSource(raw json.RawMessage) (Source, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		// Not a JSON object at all: it's a bare constant (string, number,
		// bool, array, or null is handled by the object-with-$source case
		// above only when literally {"$source": null}).
		return ValueSource{Value: raw}, nil
	}

	sourceRaw, hasSource := probe["$source"]
	if !hasSource {
		return ValueSource{Value: raw}, nil
	}
	if len(probe) != 1 {
		return nil, fmt.Errorf("%w", ErrSourceHasExtraFields)
	}

	if string(sourceRaw) == "null" {
		return UnsetSource{}, nil
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(sourceRaw, &body); err != nil {
		return nil, fmt.Errorf("%w: $source must be null or an object: %v", ErrSourceInvalid, err)
	}
	if len(body) == 0 {
		return UnsetSource{}, nil
	}

	if valueRaw, ok := body["value"]; ok {
		if len(body) != 1 {
			return nil, fmt.Errorf("%w", ErrSourceHasExtraFields)
		}
		return ValueSource{Value: valueRaw}, nil
	}

	var parsed wireSourceBody
	if err := json.Unmarshal(sourceRaw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceInvalid, err)
	}
	if parsed.Component == "" || parsed.Path == "" {
		return nil, fmt.Errorf("%w: subscription source requires component and path", ErrSourceInvalid)
	}
	return SubscriptionSource{
		Component:                 parsed.Component,
		Path:                      parsed.Path,
		Func:                      parsed.Func,
		KeepExistingSubscriptions: parsed.KeepExistingSubscriptions,
	}, nil
}

// EncodeSource is DecodeSource's inverse, used when echoing a component's
// current attribute tree back over the wire.
func EncodeSource(s Source) (json.RawMessage, error) {
	switch t := s.(type) {
	case ValueSource:
		// A constant that is itself an object with a "$source" key would
		// read back as a source form, so it goes out wrapped.
		var probe map[string]json.RawMessage
		if json.Unmarshal(t.Value, &probe) == nil {
			if _, ok := probe["$source"]; ok {
				bodyRaw, err := json.Marshal(map[string]json.RawMessage{"value": t.Value})
				if err != nil {
					return nil, err
				}
				return json.Marshal(wireSourceEnvelope{Source: (*json.RawMessage)(&bodyRaw)})
			}
		}
		return t.Value, nil
	case UnsetSource:
		return json.RawMessage(`{"$source":null}`), nil
	case SubscriptionSource:
		body := wireSourceBody{
			Component:                 t.Component,
			Path:                      t.Path,
			Func:                      t.Func,
			KeepExistingSubscriptions: t.KeepExistingSubscriptions,
		}
		bodyRaw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireSourceEnvelope{Source: (*json.RawMessage)(&bodyRaw)})
	default:
		return nil, fmt.Errorf("%w: unknown source type %T", ErrSourceInvalid, s)
	}
}
