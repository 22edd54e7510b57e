package menu

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELEvaluator is the default Evaluator, backed by CEL. Compiled programs are
// cached per expression so repeated renders pay compilation once.
//
// Expressions see three variables:
//
//	viewer  string              the viewer id ("" in shared/anonymous contexts)
//	name    string              the viewer display name
//	ctx     map(string, string) the ViewContext placeholder snapshot
type CELEvaluator struct {
	env      *cel.Env
	programs map[string]cel.Program
	mu       sync.RWMutex
}

// NewCELEvaluator creates the evaluator with its standard environment.
func NewCELEvaluator() (*CELEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("viewer", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("ctx", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("menu: creating CEL environment: %w", err)
	}
	return &CELEvaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate implements Evaluator.
func (e *CELEvaluator) Evaluate(_ context.Context, expr string, vars map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("menu: evaluating %q: %w", expr, err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("menu: expression %q is not boolean", expr)
	}
	return b, nil
}

// program returns the cached program for an expression, compiling on first
// use.
func (e *CELEvaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("menu: compiling %q: %w", expr, iss.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("menu: building program for %q: %w", expr, err)
	}

	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()
	return prg, nil
}
