package graph

import (
	"encoding/json"

	"github.com/Masterminds/semver/v3"
)

// NodeKind discriminates the closed set of node-weight variants. Adding a
// variant is a snapshot-schema change (spec.md §3).
type NodeKind string

const (
	NodeKindCategory                       NodeKind = "Category"
	NodeKindContent                        NodeKind = "Content"
	NodeKindProp                           NodeKind = "Prop"
	NodeKindFunc                           NodeKind = "Func"
	NodeKindFuncArgument                   NodeKind = "FuncArgument"
	NodeKindActionPrototype                NodeKind = "ActionPrototype"
	NodeKindAction                         NodeKind = "Action"
	NodeKindAttributeValue                 NodeKind = "AttributeValue"
	NodeKindAttributePrototypeArgument     NodeKind = "AttributePrototypeArgument"
	NodeKindComponent                      NodeKind = "Component"
	NodeKindSecret                         NodeKind = "Secret"
	NodeKindSchemaVariant                  NodeKind = "SchemaVariant"
	NodeKindInputSocket                    NodeKind = "InputSocket"
	NodeKindOutputSocket                   NodeKind = "OutputSocket"
	NodeKindOrdering                       NodeKind = "Ordering"
	NodeKindDependentValueRoot             NodeKind = "DependentValueRoot"
	NodeKindFinishedDependentValueRoot     NodeKind = "FinishedDependentValueRoot"
	NodeKindGeometry                       NodeKind = "Geometry"
	NodeKindView                           NodeKind = "View"
	NodeKindDiagramObject                  NodeKind = "DiagramObject"
	NodeKindManagementPrototype            NodeKind = "ManagementPrototype"
	NodeKindApprovalRequirementDefinition  NodeKind = "ApprovalRequirementDefinition"
	NodeKindLeafPrototype                  NodeKind = "LeafPrototype"
	NodeKindReason                         NodeKind = "Reason"
)

// CommonInfo is embedded in every node weight variant.
type CommonInfo struct {
	ID         NodeID
	LineageID  LineageID
	ContentHash string
	MerkleHash  string
}

// Info returns the embedded CommonInfo for any node weight.
func (c CommonInfo) Info() CommonInfo { return c }

// NodeWeight is the closed sum type over all node variants. It is
// implemented by exactly one struct per NodeKind in this package; the
// marker method keeps the set closed to external packages (spec.md §9
// "Dynamic dispatch over node variants": a tagged sum with exhaustive
// match, dispatch is static via type switch).
type NodeWeight interface {
	Kind() NodeKind
	Info() CommonInfo
	// ContentBytes returns the canonical bytes folded into ContentHash.
	// It must exclude ContentHash/MerkleHash themselves.
	ContentBytes() ([]byte, error)
	setInfo(CommonInfo)
	isNodeWeight()
}

// CorrectableNodeWeight is implemented by variants that carry a correction
// group key. SchemaVariant is the only implementer. pkg/rebaser does not
// call it: its invariant-5 pass selects *SchemaVariantWeight by type
// assertion and groups by the Schema on the incoming Use edge.
type CorrectableNodeWeight interface {
	NodeWeight
	// CorrectionKey groups nodes that must be corrected together (e.g. the
	// owning Schema's NodeID for SchemaVariant locking).
	CorrectionKey() NodeID
}

func marshalContent(v any) ([]byte, error) { return json.Marshal(v) }

// --- CategoryWeight ---

type CategoryKind string

const (
	CategoryComponents     CategoryKind = "components"
	CategorySchemas        CategoryKind = "schemas"
	CategorySecrets        CategoryKind = "secrets"
	CategoryViews          CategoryKind = "views"
	CategoryActions        CategoryKind = "actions"
	CategoryDependentValueRoots CategoryKind = "dependent_value_roots"
)

type CategoryWeight struct {
	CommonInfo
	Category CategoryKind
}

func (w *CategoryWeight) Kind() NodeKind         { return NodeKindCategory }
func (w *CategoryWeight) setInfo(c CommonInfo)   { w.CommonInfo = c }
func (w *CategoryWeight) isNodeWeight()          {}
func (w *CategoryWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Category CategoryKind `json:"category"`
	}{w.Category})
}

// --- ContentWeight ---

// ContentAddress identifies a blob in the object store by content hash
// plus a discriminant of what kind of payload it is.
type ContentAddress struct {
	Kind string `json:"kind"`
	Hash string `json:"hash"`
}

type ContentWeight struct {
	CommonInfo
	Address ContentAddress
}

func (w *ContentWeight) Kind() NodeKind       { return NodeKindContent }
func (w *ContentWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *ContentWeight) isNodeWeight()        {}
func (w *ContentWeight) ContentBytes() ([]byte, error) {
	return marshalContent(w.Address)
}

// --- PropWeight ---

type PropKind string

const (
	PropKindObject  PropKind = "object"
	PropKindMap     PropKind = "map"
	PropKindArray   PropKind = "array"
	PropKindString  PropKind = "string"
	PropKindNumber  PropKind = "number"
	PropKindBoolean PropKind = "boolean"
	PropKindJSON    PropKind = "json"
)

type PropWeight struct {
	CommonInfo
	Name string
	Kind_ PropKind
}

func (w *PropWeight) Kind() NodeKind       { return NodeKindProp }
func (w *PropWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *PropWeight) isNodeWeight()        {}
func (w *PropWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Name string   `json:"name"`
		Kind PropKind `json:"kind"`
	}{w.Name, w.Kind_})
}

// --- FuncWeight ---

type FuncBackend string

const (
	FuncBackendIdentity FuncBackend = "identity"
	FuncBackendCel       FuncBackend = "cel"
	FuncBackendJS        FuncBackend = "js"
)

type FuncWeight struct {
	CommonInfo
	Name    string
	Backend FuncBackend
	// Code is the CEL/JS source, empty for intrinsics like identity.
	Code string
}

func (w *FuncWeight) Kind() NodeKind       { return NodeKindFunc }
func (w *FuncWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *FuncWeight) isNodeWeight()        {}
func (w *FuncWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Name    string      `json:"name"`
		Backend FuncBackend `json:"backend"`
		Code    string      `json:"code"`
	}{w.Name, w.Backend, w.Code})
}

// --- FuncArgumentWeight ---

type FuncArgumentWeight struct {
	CommonInfo
	Name    string
	ValueKind PropKind
}

func (w *FuncArgumentWeight) Kind() NodeKind       { return NodeKindFuncArgument }
func (w *FuncArgumentWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *FuncArgumentWeight) isNodeWeight()        {}
func (w *FuncArgumentWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Name      string   `json:"name"`
		ValueKind PropKind `json:"value_kind"`
	}{w.Name, w.ValueKind})
}

// --- ActionPrototypeWeight / ActionWeight ---

type ActionKind string

const (
	ActionKindCreate  ActionKind = "create"
	ActionKindDestroy ActionKind = "destroy"
	ActionKindRefresh ActionKind = "refresh"
	ActionKindUpdate  ActionKind = "update"
	ActionKindManual  ActionKind = "manual"
)

type ActionPrototypeWeight struct {
	CommonInfo
	Name string
	Kind_ ActionKind
}

func (w *ActionPrototypeWeight) Kind() NodeKind       { return NodeKindActionPrototype }
func (w *ActionPrototypeWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *ActionPrototypeWeight) isNodeWeight()        {}
func (w *ActionPrototypeWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Name string     `json:"name"`
		Kind ActionKind `json:"kind"`
	}{w.Name, w.Kind_})
}

type ActionState string

const (
	ActionStateQueued    ActionState = "queued"
	ActionStateRunning   ActionState = "running"
	ActionStateOnHold    ActionState = "on_hold"
	ActionStateDispatched ActionState = "dispatched"
	ActionStateFailed    ActionState = "failed"
)

type ActionWeight struct {
	CommonInfo
	State ActionState
}

func (w *ActionWeight) Kind() NodeKind       { return NodeKindAction }
func (w *ActionWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *ActionWeight) isNodeWeight()        {}
func (w *ActionWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		State ActionState `json:"state"`
	}{w.State})
}

// --- AttributeValueWeight ---

type AttributeValueWeight struct {
	CommonInfo
	// Value is the materialized JSON value, or nil if unset/never computed.
	Value json.RawMessage
	// FuncExecutionHash records the hash of the last func execution that
	// produced Value, for change detection independent of Value identity
	// (two runs can produce byte-identical output from different inputs).
	FuncExecutionHash string
	// PropKind fixes the shape this value's children must take (Object,
	// Map, Array, or a leaf kind), set once at vivification time from the
	// owning schema variant's prop tree and never changed afterward.
	PropKind PropKind
}

func (w *AttributeValueWeight) Kind() NodeKind       { return NodeKindAttributeValue }
func (w *AttributeValueWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *AttributeValueWeight) isNodeWeight()        {}
func (w *AttributeValueWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Value             json.RawMessage `json:"value"`
		FuncExecutionHash string          `json:"func_execution_hash"`
		PropKind          PropKind        `json:"prop_kind"`
	}{w.Value, w.FuncExecutionHash, w.PropKind})
}

// IsLeaf reports whether this attribute value has no structured children.
func (w *AttributeValueWeight) IsLeaf() bool {
	switch w.PropKind {
	case PropKindObject, PropKindMap, PropKindArray:
		return false
	default:
		return true
	}
}

// --- AttributePrototypeArgumentWeight ---

type AttributePrototypeArgumentWeight struct {
	CommonInfo
	// TargetComponentID is set only for inter-component subscriptions.
	TargetComponentID NodeID
	Path              string
}

func (w *AttributePrototypeArgumentWeight) Kind() NodeKind       { return NodeKindAttributePrototypeArgument }
func (w *AttributePrototypeArgumentWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *AttributePrototypeArgumentWeight) isNodeWeight()        {}
func (w *AttributePrototypeArgumentWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		TargetComponentID string `json:"target_component_id"`
		Path              string `json:"path"`
	}{w.TargetComponentID.String(), w.Path})
}

// --- ComponentWeight ---

type ComponentWeight struct {
	CommonInfo
	Name     string
	ToDelete bool
}

func (w *ComponentWeight) Kind() NodeKind       { return NodeKindComponent }
func (w *ComponentWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *ComponentWeight) isNodeWeight()        {}
func (w *ComponentWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Name     string `json:"name"`
		ToDelete bool   `json:"to_delete"`
	}{w.Name, w.ToDelete})
}

// --- SecretWeight ---

type SecretWeight struct {
	CommonInfo
	// EncryptedHash references the encrypted payload in the content store;
	// the secret's plaintext never lives in the graph.
	EncryptedHash string
}

func (w *SecretWeight) Kind() NodeKind       { return NodeKindSecret }
func (w *SecretWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *SecretWeight) isNodeWeight()        {}
func (w *SecretWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		EncryptedHash string `json:"encrypted_hash"`
	}{w.EncryptedHash})
}

// --- SchemaVariantWeight ---

type SchemaVariantWeight struct {
	CommonInfo
	Name    string
	Locked  bool
	Version *semver.Version
}

func (w *SchemaVariantWeight) Kind() NodeKind       { return NodeKindSchemaVariant }
func (w *SchemaVariantWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *SchemaVariantWeight) isNodeWeight()        {}
func (w *SchemaVariantWeight) ContentBytes() ([]byte, error) {
	ver := ""
	if w.Version != nil {
		ver = w.Version.String()
	}
	return marshalContent(struct {
		Name    string `json:"name"`
		Locked  bool   `json:"locked"`
		Version string `json:"version"`
	}{w.Name, w.Locked, ver})
}

// CorrectionKey returns the node's own id, so each variant is its own
// correction group rather than zero-valued across unrelated schemas. It
// does not resolve the owning Schema; the rebaser finds that through the
// node's incoming Use edge without calling this method.
func (w *SchemaVariantWeight) CorrectionKey() NodeID { return w.ID }

// --- InputSocket / OutputSocket ---

type InputSocketWeight struct {
	CommonInfo
	Name string
}

func (w *InputSocketWeight) Kind() NodeKind       { return NodeKindInputSocket }
func (w *InputSocketWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *InputSocketWeight) isNodeWeight()        {}
func (w *InputSocketWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Name string `json:"name"`
	}{w.Name})
}

type OutputSocketWeight struct {
	CommonInfo
	Name string
}

func (w *OutputSocketWeight) Kind() NodeKind       { return NodeKindOutputSocket }
func (w *OutputSocketWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *OutputSocketWeight) isNodeWeight()        {}
func (w *OutputSocketWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Name string `json:"name"`
	}{w.Name})
}

// --- OrderingWeight ---

type OrderingWeight struct {
	CommonInfo
	// Order lists child NodeIDs in presentation/access order.
	Order []NodeID
}

func (w *OrderingWeight) Kind() NodeKind       { return NodeKindOrdering }
func (w *OrderingWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *OrderingWeight) isNodeWeight()        {}
func (w *OrderingWeight) ContentBytes() ([]byte, error) {
	ids := make([]string, len(w.Order))
	for i, id := range w.Order {
		ids[i] = id.String()
	}
	return marshalContent(struct {
		Order []string `json:"order"`
	}{ids})
}

// --- DependentValueRootWeight / FinishedDependentValueRootWeight ---

type DependentValueRootWeight struct {
	CommonInfo
	ValueID NodeID
	// FromPrototypeExecution marks a root that must execute from its
	// prototype even if its direct inputs did not change (e.g. secret
	// roots, see spec.md §4.4).
	FromPrototypeExecution bool
}

func (w *DependentValueRootWeight) Kind() NodeKind       { return NodeKindDependentValueRoot }
func (w *DependentValueRootWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *DependentValueRootWeight) isNodeWeight()        {}
func (w *DependentValueRootWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		ValueID                string `json:"value_id"`
		FromPrototypeExecution bool   `json:"from_prototype_execution"`
	}{w.ValueID.String(), w.FromPrototypeExecution})
}

type FinishedDependentValueRootWeight struct {
	CommonInfo
	ValueID NodeID
}

func (w *FinishedDependentValueRootWeight) Kind() NodeKind       { return NodeKindFinishedDependentValueRoot }
func (w *FinishedDependentValueRootWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *FinishedDependentValueRootWeight) isNodeWeight()        {}
func (w *FinishedDependentValueRootWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		ValueID string `json:"value_id"`
	}{w.ValueID.String()})
}

// --- Geometry / View / DiagramObject ---

type GeometryWeight struct {
	CommonInfo
	X, Y, Width, Height float64
}

func (w *GeometryWeight) Kind() NodeKind       { return NodeKindGeometry }
func (w *GeometryWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *GeometryWeight) isNodeWeight()        {}
func (w *GeometryWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		X, Y, Width, Height float64
	}{w.X, w.Y, w.Width, w.Height})
}

type ViewWeight struct {
	CommonInfo
	Name string
}

func (w *ViewWeight) Kind() NodeKind       { return NodeKindView }
func (w *ViewWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *ViewWeight) isNodeWeight()        {}
func (w *ViewWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Name string `json:"name"`
	}{w.Name})
}

type DiagramObjectKind string

const (
	DiagramObjectComponent DiagramObjectKind = "component"
	DiagramObjectView      DiagramObjectKind = "view"
)

type DiagramObjectWeight struct {
	CommonInfo
	Kind_ DiagramObjectKind
}

func (w *DiagramObjectWeight) Kind() NodeKind       { return NodeKindDiagramObject }
func (w *DiagramObjectWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *DiagramObjectWeight) isNodeWeight()        {}
func (w *DiagramObjectWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Kind DiagramObjectKind `json:"kind"`
	}{w.Kind_})
}

// --- ManagementPrototype / ApprovalRequirementDefinition / LeafPrototype / Reason ---

type ManagementPrototypeWeight struct {
	CommonInfo
	Name string
}

func (w *ManagementPrototypeWeight) Kind() NodeKind       { return NodeKindManagementPrototype }
func (w *ManagementPrototypeWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *ManagementPrototypeWeight) isNodeWeight()        {}
func (w *ManagementPrototypeWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Name string `json:"name"`
	}{w.Name})
}

type ApprovalRequirementDefinitionWeight struct {
	CommonInfo
	MinApprovers int
}

func (w *ApprovalRequirementDefinitionWeight) Kind() NodeKind { return NodeKindApprovalRequirementDefinition }
func (w *ApprovalRequirementDefinitionWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *ApprovalRequirementDefinitionWeight) isNodeWeight()        {}
func (w *ApprovalRequirementDefinitionWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		MinApprovers int `json:"min_approvers"`
	}{w.MinApprovers})
}

type LeafKind string

const (
	LeafKindCodeGen       LeafKind = "code_generation"
	LeafKindQualification LeafKind = "qualification"
)

type LeafPrototypeWeight struct {
	CommonInfo
	Kind_ LeafKind
}

func (w *LeafPrototypeWeight) Kind() NodeKind       { return NodeKindLeafPrototype }
func (w *LeafPrototypeWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *LeafPrototypeWeight) isNodeWeight()        {}
func (w *LeafPrototypeWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Kind LeafKind `json:"kind"`
	}{w.Kind_})
}

type ReasonWeight struct {
	CommonInfo
	Message string
}

func (w *ReasonWeight) Kind() NodeKind       { return NodeKindReason }
func (w *ReasonWeight) setInfo(c CommonInfo) { w.CommonInfo = c }
func (w *ReasonWeight) isNodeWeight()        {}
func (w *ReasonWeight) ContentBytes() ([]byte, error) {
	return marshalContent(struct {
		Message string `json:"message"`
	}{w.Message})
}
