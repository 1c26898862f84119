package graph

import (
	"encoding/json"

	"github.com/Masterminds/semver/v3"
)

// nodeFactories decodes a variant's ContentBytes() JSON back into a typed
// NodeWeight during Deserialize. One entry per NodeKind — the exhaustive
// match spec.md §9 calls for, here expressed as a lookup table instead of
// a switch so adding a variant cannot forget a case silently (a missing
// entry fails loudly in decodeNode).
var nodeFactories = map[NodeKind]func(json.RawMessage) (NodeWeight, error){
	NodeKindCategory: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Category CategoryKind `json:"category"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &CategoryWeight{Category: body.Category}, nil
	},
	NodeKindContent: func(b json.RawMessage) (NodeWeight, error) {
		var addr ContentAddress
		if err := json.Unmarshal(b, &addr); err != nil {
			return nil, err
		}
		return &ContentWeight{Address: addr}, nil
	},
	NodeKindProp: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name string   `json:"name"`
			Kind PropKind `json:"kind"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &PropWeight{Name: body.Name, Kind_: body.Kind}, nil
	},
	NodeKindFunc: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name    string      `json:"name"`
			Backend FuncBackend `json:"backend"`
			Code    string      `json:"code"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &FuncWeight{Name: body.Name, Backend: body.Backend, Code: body.Code}, nil
	},
	NodeKindFuncArgument: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name      string   `json:"name"`
			ValueKind PropKind `json:"value_kind"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &FuncArgumentWeight{Name: body.Name, ValueKind: body.ValueKind}, nil
	},
	NodeKindActionPrototype: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name string     `json:"name"`
			Kind ActionKind `json:"kind"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &ActionPrototypeWeight{Name: body.Name, Kind_: body.Kind}, nil
	},
	NodeKindAction: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			State ActionState `json:"state"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &ActionWeight{State: body.State}, nil
	},
	NodeKindAttributeValue: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Value             json.RawMessage `json:"value"`
			FuncExecutionHash string          `json:"func_execution_hash"`
			PropKind          PropKind        `json:"prop_kind"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &AttributeValueWeight{Value: body.Value, FuncExecutionHash: body.FuncExecutionHash, PropKind: body.PropKind}, nil
	},
	NodeKindAttributePrototypeArgument: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			TargetComponentID string `json:"target_component_id"`
			Path              string `json:"path"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		target, err := ParseNodeID(body.TargetComponentID)
		if err != nil {
			return nil, err
		}
		return &AttributePrototypeArgumentWeight{TargetComponentID: target, Path: body.Path}, nil
	},
	NodeKindComponent: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name     string `json:"name"`
			ToDelete bool   `json:"to_delete"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &ComponentWeight{Name: body.Name, ToDelete: body.ToDelete}, nil
	},
	NodeKindSecret: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			EncryptedHash string `json:"encrypted_hash"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &SecretWeight{EncryptedHash: body.EncryptedHash}, nil
	},
	NodeKindSchemaVariant: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name    string `json:"name"`
			Locked  bool   `json:"locked"`
			Version string `json:"version"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		var ver *semver.Version
		if body.Version != "" {
			v, err := semver.NewVersion(body.Version)
			if err != nil {
				return nil, err
			}
			ver = v
		}
		return &SchemaVariantWeight{Name: body.Name, Locked: body.Locked, Version: ver}, nil
	},
	NodeKindInputSocket: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &InputSocketWeight{Name: body.Name}, nil
	},
	NodeKindOutputSocket: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &OutputSocketWeight{Name: body.Name}, nil
	},
	NodeKindOrdering: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Order []string `json:"order"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		ids := make([]NodeID, len(body.Order))
		for i, s := range body.Order {
			id, err := ParseNodeID(s)
			if err != nil {
				return nil, err
			}
			ids[i] = id
		}
		return &OrderingWeight{Order: ids}, nil
	},
	NodeKindDependentValueRoot: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			ValueID                string `json:"value_id"`
			FromPrototypeExecution bool   `json:"from_prototype_execution"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		id, err := ParseNodeID(body.ValueID)
		if err != nil {
			return nil, err
		}
		return &DependentValueRootWeight{ValueID: id, FromPrototypeExecution: body.FromPrototypeExecution}, nil
	},
	NodeKindFinishedDependentValueRoot: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			ValueID string `json:"value_id"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		id, err := ParseNodeID(body.ValueID)
		if err != nil {
			return nil, err
		}
		return &FinishedDependentValueRootWeight{ValueID: id}, nil
	},
	NodeKindGeometry: func(b json.RawMessage) (NodeWeight, error) {
		var body struct{ X, Y, Width, Height float64 }
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &GeometryWeight{X: body.X, Y: body.Y, Width: body.Width, Height: body.Height}, nil
	},
	NodeKindView: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &ViewWeight{Name: body.Name}, nil
	},
	NodeKindDiagramObject: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Kind DiagramObjectKind `json:"kind"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &DiagramObjectWeight{Kind_: body.Kind}, nil
	},
	NodeKindManagementPrototype: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &ManagementPrototypeWeight{Name: body.Name}, nil
	},
	NodeKindApprovalRequirementDefinition: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			MinApprovers int `json:"min_approvers"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &ApprovalRequirementDefinitionWeight{MinApprovers: body.MinApprovers}, nil
	},
	NodeKindLeafPrototype: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Kind LeafKind `json:"kind"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &LeafPrototypeWeight{Kind_: body.Kind}, nil
	},
	NodeKindReason: func(b json.RawMessage) (NodeWeight, error) {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, err
		}
		return &ReasonWeight{Message: body.Message}, nil
	},
}
