package attribute

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// identityFuncName is the subscription func implied by an empty Func field.
const identityFuncName = "identity"

// FuncResolver compiles and caches CEL programs that transform a
// subscription's upstream value into the value installed at the
// subscribing attribute. Expressions see a single bound variable, value,
// holding the upstream attribute's decoded JSON.
//
// A single resolver is expected to be shared across a snapshot's lifetime;
// its program cache is keyed by function body, not by call site.
type FuncResolver struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewFuncResolver builds a resolver with the "value" variable bound to
// whatever shape the upstream attribute produces.
func NewFuncResolver() (*FuncResolver, error) {
	env, err := cel.NewEnv(cel.Variable("value", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("attribute: failed to create CEL environment: %w", err)
	}
	return &FuncResolver{env: env, cache: make(map[string]cel.Program)}, nil
}

// Resolve applies the named function (an empty name or "identity" passes
// the value through unchanged) to upstream and returns the resulting JSON.
func (r *FuncResolver) Resolve(name string, upstream json.RawMessage) (json.RawMessage, error) {
	if name == "" || name == identityFuncName {
		return upstream, nil
	}

	prg, err := r.program(name)
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal(upstream, &decoded); err != nil {
		return nil, fmt.Errorf("attribute: upstream value is not valid JSON: %w", err)
	}

	out, _, err := prg.Eval(map[string]any{"value": decoded})
	if err != nil {
		return nil, fmt.Errorf("attribute: func %q: eval: %w", name, err)
	}
	result, err := json.Marshal(out.Value())
	if err != nil {
		return nil, fmt.Errorf("attribute: func %q result is not JSON-representable: %w", name, err)
	}
	return result, nil
}

func (r *FuncResolver) program(expr string) (cel.Program, error) {
	r.mu.RLock()
	prg, hit := r.cache[expr]
	r.mu.RUnlock()
	if hit {
		return prg, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prg, hit := r.cache[expr]; hit {
		return prg, nil
	}

	ast, issues := r.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFuncNotFound, expr, issues.Err())
	}
	prg, err := r.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("attribute: func %q: program build: %w", expr, err)
	}
	r.cache[expr] = prg
	return prg, nil
}
