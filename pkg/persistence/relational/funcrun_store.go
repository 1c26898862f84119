package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// FuncRunStore is the func_runs durable stream: one row per execution,
// upserted by key, readable as a cursor-paginated, most-recent-first
// list scoped to a workspace and change set (and optionally a component).
type FuncRunStore struct {
	db *sql.DB
}

// NewFuncRunStore wraps an existing connection pool. The caller owns
// the pool's lifecycle.
func NewFuncRunStore(db *sql.DB) *FuncRunStore {
	return &FuncRunStore{db: db}
}

const funcRunSchema = `
CREATE TABLE IF NOT EXISTS func_runs (
	key TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	state TEXT NOT NULL,
	function_kind TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	change_set_id TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	component_id TEXT,
	attribute_value_id TEXT,
	action_id TEXT,
	action_originating_change_set_id TEXT,
	json_value JSONB,
	value_bytes BYTEA
);
CREATE INDEX IF NOT EXISTS func_runs_workspace_change_set_idx
	ON func_runs (workspace_id, change_set_id, created_at DESC, key DESC);
`

func (s *FuncRunStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, funcRunSchema)
	return err
}

const funcRunUpsertColumns = `
	key, created_at, updated_at, state, function_kind, workspace_id,
	change_set_id, actor_id, component_id, attribute_value_id, action_id,
	action_originating_change_set_id, json_value, value_bytes
`

const funcRunUpsertConflict = `
	ON CONFLICT (key) DO UPDATE SET
		updated_at = EXCLUDED.updated_at,
		state = EXCLUDED.state,
		json_value = EXCLUDED.json_value,
		value_bytes = EXCLUDED.value_bytes
`

// Upsert writes one func run, inserting it if key is new or overwriting
// its mutable columns (updated_at, state, json_value, value_bytes) if not.
func (s *FuncRunStore) Upsert(ctx context.Context, run FuncRun) error {
	query := fmt.Sprintf(
		"INSERT INTO func_runs (%s) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) %s",
		funcRunUpsertColumns, funcRunUpsertConflict,
	)
	_, err := s.db.ExecContext(ctx, query, funcRunArgs(run)...)
	if err != nil {
		return fmt.Errorf("relational: upsert func run %q: %w", run.Key, err)
	}
	return nil
}

// UpsertBatch writes multiple func runs in one INSERT statement with
// per-row placeholders, rather than one round trip per row.
func (s *FuncRunStore) UpsertBatch(ctx context.Context, runs []FuncRun) error {
	if len(runs) == 0 {
		return nil
	}

	const colCount = 14
	valuesClauses := make([]string, 0, len(runs))
	args := make([]any, 0, len(runs)*colCount)

	for i, run := range runs {
		placeholders := make([]string, colCount)
		base := i * colCount
		for j := 0; j < colCount; j++ {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valuesClauses = append(valuesClauses, "("+strings.Join(placeholders, ", ")+")")
		args = append(args, funcRunArgs(run)...)
	}

	query := fmt.Sprintf(
		"INSERT INTO func_runs (%s) VALUES %s %s",
		funcRunUpsertColumns, strings.Join(valuesClauses, ", "), funcRunUpsertConflict,
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("relational: upsert %d func runs: %w", len(runs), err)
	}
	return nil
}

func funcRunArgs(run FuncRun) []any {
	return []any{
		run.Key, run.CreatedAt, run.UpdatedAt, string(run.State), string(run.FunctionKind),
		run.WorkspaceID, run.ChangeSetID, run.ActorID,
		run.ComponentID, run.AttributeValueID, run.ActionID, run.ActionOriginatingChangeSetID,
		[]byte(run.JSONValue), run.ValueBytes,
	}
}

// Get reads a single func run by key.
func (s *FuncRunStore) Get(ctx context.Context, key string) (FuncRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, created_at, updated_at, state, function_kind, workspace_id,
			change_set_id, actor_id, component_id, attribute_value_id, action_id,
			action_originating_change_set_id, json_value, value_bytes
		FROM func_runs WHERE key = $1`, key)
	run, err := scanFuncRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FuncRun{}, ErrNotFound
	}
	if err != nil {
		return FuncRun{}, fmt.Errorf("relational: get func run %q: %w", key, err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFuncRun(row rowScanner) (FuncRun, error) {
	var run FuncRun
	var state, kind string
	var jsonValue []byte
	err := row.Scan(
		&run.Key, &run.CreatedAt, &run.UpdatedAt, &state, &kind, &run.WorkspaceID,
		&run.ChangeSetID, &run.ActorID, &run.ComponentID, &run.AttributeValueID,
		&run.ActionID, &run.ActionOriginatingChangeSetID, &jsonValue, &run.ValueBytes,
	)
	if err != nil {
		return FuncRun{}, err
	}
	run.State = FuncRunState(state)
	run.FunctionKind = FunctionKind(kind)
	run.JSONValue = jsonValue
	return run, nil
}

// List returns one cursor-paginated page of func runs scoped by filter,
// ordered (created_at DESC, key DESC) as the worked example in the
// persistence design specifies.
func (s *FuncRunStore) List(ctx context.Context, filter ListFilter) (Page, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	var b strings.Builder
	b.WriteString(`SELECT key, created_at, updated_at, state, function_kind, workspace_id,
		change_set_id, actor_id, component_id, attribute_value_id, action_id,
		action_originating_change_set_id, json_value, value_bytes
		FROM func_runs WHERE workspace_id = $1 AND change_set_id = $2`)
	args := []any{filter.WorkspaceID, filter.ChangeSetID}

	if filter.ComponentID != "" {
		args = append(args, filter.ComponentID)
		fmt.Fprintf(&b, " AND component_id = $%d", len(args))
	}
	if filter.Cursor != "" {
		args = append(args, filter.Cursor)
		cursorArg := len(args)
		fmt.Fprintf(&b, ` AND (
			created_at < (SELECT created_at FROM func_runs WHERE key = $%d) OR
			(created_at = (SELECT created_at FROM func_runs WHERE key = $%d) AND key < $%d)
		)`, cursorArg, cursorArg, cursorArg)
	}
	args = append(args, filter.Limit)
	fmt.Fprintf(&b, " ORDER BY created_at DESC, key DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return Page{}, fmt.Errorf("relational: list func runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var page Page
	for rows.Next() {
		run, err := scanFuncRun(rows)
		if err != nil {
			return Page{}, fmt.Errorf("relational: scan func run: %w", err)
		}
		page.Runs = append(page.Runs, run)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("relational: list func runs: %w", err)
	}
	if len(page.Runs) == filter.Limit {
		page.NextCursor = page.Runs[len(page.Runs)-1].Key
	}
	return page, nil
}

// LastRunForAction returns the most recently updated func run for the
// given action, or ErrNotFound if none exists.
func (s *FuncRunStore) LastRunForAction(ctx context.Context, workspaceID, actionID string) (FuncRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, created_at, updated_at, state, function_kind, workspace_id,
			change_set_id, actor_id, component_id, attribute_value_id, action_id,
			action_originating_change_set_id, json_value, value_bytes
		FROM func_runs
		WHERE function_kind = $1 AND workspace_id = $2 AND action_id = $3
		ORDER BY updated_at DESC
		LIMIT 1`, string(FunctionKindAction), workspaceID, actionID)
	run, err := scanFuncRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FuncRun{}, ErrNotFound
	}
	if err != nil {
		return FuncRun{}, fmt.Errorf("relational: last run for action %q: %w", actionID, err)
	}
	return run, nil
}
