// Package relational is the authoritative-for-metadata tier of the
// persistence layer: one typed store per durable stream, backed by
// database/sql. FuncRunStore is the worked example — a durable record
// of every function execution, upserted by key and cursor-paginated by
// workspace and change set.
package relational

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup by key finds no row.
var ErrNotFound = errors.New("relational: not found")

// FuncRunState is the lifecycle of one function execution, from the
// moment it's dispatched to the terminal reply from the RPC in pkg/funcrun.
type FuncRunState string

const (
	FuncRunStateCreated FuncRunState = "Created"
	FuncRunStateRunning FuncRunState = "Running"
	FuncRunStateSuccess FuncRunState = "Success"
	FuncRunStateFailure FuncRunState = "Failure"
)

// FunctionKind distinguishes the callers of the function-execution RPC.
type FunctionKind string

const (
	FunctionKindAttribute     FunctionKind = "Attribute"
	FunctionKindAction        FunctionKind = "Action"
	FunctionKindManagement    FunctionKind = "Management"
	FunctionKindQualification FunctionKind = "Qualification"
)

// FuncRun is one row of the func_runs table: the durable record of a
// single function execution, carrying both a queryable JSON projection
// (JSONValue) and the full value payload (ValueBytes).
type FuncRun struct {
	Key          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	State        FuncRunState
	FunctionKind FunctionKind

	WorkspaceID string
	ChangeSetID string
	ActorID     string

	ComponentID                  *string
	AttributeValueID             *string
	ActionID                     *string
	ActionOriginatingChangeSetID *string

	JSONValue  json.RawMessage
	ValueBytes []byte
}

// Page is one cursor-paginated slice of func runs, most-recent first.
type Page struct {
	Runs []FuncRun
	// NextCursor is the key to pass as Cursor on the following call, or
	// "" if this page reached the end of the stream.
	NextCursor string
}

// ListFilter scopes a paginated read to a workspace and change set, and
// optionally to one component.
type ListFilter struct {
	WorkspaceID string
	ChangeSetID string
	ComponentID string // optional

	// Cursor is the key of the last row seen on the previous page; empty
	// for the first page.
	Cursor string
	Limit  int
}
