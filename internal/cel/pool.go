package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// PredicatePool caches compiled boolean predicates by source text
type PredicatePool struct {
	mu       sync.RWMutex
	programs map[string]cel.Program
	env      *cel.Env
}

var (
	sharedPool     *PredicatePool
	sharedPoolErr  error
	sharedPoolOnce sync.Once
)

// NewPredicatePool creates a pool over the predicate environment
func NewPredicatePool() (*PredicatePool, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, err
	}
	return &PredicatePool{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Shared returns the process-wide pool
func Shared() (*PredicatePool, error) {
	sharedPoolOnce.Do(func() {
		sharedPool, sharedPoolErr = NewPredicatePool()
	})
	return sharedPool, sharedPoolErr
}

// Predicate retrieves or compiles expr, which must evaluate to bool
func (p *PredicatePool) Predicate(expr string) (cel.Program, error) {
	p.mu.RLock()
	if program, ok := p.programs[expr]; ok {
		p.mu.RUnlock()
		return program, nil
	}
	p.mu.RUnlock()

	ast, issues := p.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", ast.OutputType())
	}

	program, err := p.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	p.mu.Lock()
	p.programs[expr] = program
	p.mu.Unlock()
	return program, nil
}

// Len reports how many predicates are cached
func (p *PredicatePool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.programs)
}

// EvalBool runs a predicate against token and units
func EvalBool(program cel.Program, token string, units []string) (bool, error) {
	if units == nil {
		units = []string{}
	}
	out, _, err := program.Eval(map[string]any{
		VarToken: token,
		VarUnits: units,
	})
	if err != nil {
		return false, fmt.Errorf("expression evaluation error: %w", err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", out.Value())
	}
	return matched, nil
}
