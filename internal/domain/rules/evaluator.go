// Package rules evaluates planned-quantity formulas attached to offer lines.
// Formulas are plain arithmetic over a fixed set of declared identifiers,
// compile-checked by CEL. There is no host evaluation of any kind.
package rules

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"

	"fieldbill/internal/core/apperror"
)

// Identifiers available to quantity formulas. Anything else fails compilation.
var declaredVars = []string{
	"quantity", // offered quantity of the line
	"area",
	"length",
	"width",
	"height",
	"count",
	"waste",
}

// Evaluator compiles and runs quantity formulas. Safe for concurrent use;
// compiled programs are cached per formula text.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewEvaluator builds the CEL environment with the declared variable set.
func NewEvaluator() (*Evaluator, error) {
	opts := make([]cel.EnvOption, 0, len(declaredVars))
	for _, name := range declaredVars {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build formula environment: %w", err))
	}

	return &Evaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Eval runs a formula against the given variable values. Variables not present
// in vars default to zero; keys outside the declared set are rejected.
// The result must be a non-negative number.
func (e *Evaluator) Eval(ctx context.Context, formula string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	if formula == "" {
		return decimal.Zero, apperror.NewValidation("formula is empty")
	}

	prg, err := e.program(formula)
	if err != nil {
		return decimal.Zero, err
	}

	activation := make(map[string]any, len(declaredVars))
	for _, name := range declaredVars {
		activation[name] = float64(0)
	}
	for name, val := range vars {
		if _, ok := activation[name]; !ok {
			return decimal.Zero, apperror.NewValidation("unknown formula variable").
				WithDetail("variable", name)
		}
		activation[name] = val.InexactFloat64()
	}

	out, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return decimal.Zero, apperror.NewValidation("formula evaluation failed").
			WithDetail("formula", formula).
			WithDetail("reason", err.Error())
	}

	result, err := toDecimal(out.Value())
	if err != nil {
		return decimal.Zero, apperror.NewValidation("formula must produce a number").
			WithDetail("formula", formula)
	}
	if result.IsNegative() {
		return decimal.Zero, apperror.NewValidation("formula produced a negative quantity").
			WithDetail("formula", formula).
			WithDetail("result", result.String())
	}

	return result, nil
}

// Validate compiles a formula without running it. Used when saving offer lines
// so broken formulas are rejected at edit time, not at work-order refresh.
func (e *Evaluator) Validate(formula string) error {
	_, err := e.program(formula)
	return err
}

func (e *Evaluator) program(formula string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[formula]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(formula)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid quantity formula").
			WithDetail("formula", formula).
			WithDetail("reason", iss.Err().Error())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, apperror.NewValidation("invalid quantity formula").
			WithDetail("formula", formula).
			WithDetail("reason", err.Error())
	}

	e.mu.Lock()
	e.programs[formula] = prg
	e.mu.Unlock()

	return prg, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, apperror.NewValidation("formula result is not finite")
		}
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case uint64:
		return decimal.NewFromUint64(n), nil
	default:
		return decimal.Zero, apperror.NewValidation("formula result is not numeric")
	}
}
