package rules

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/apperror"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return e
}

func TestEval_Arithmetic(t *testing.T) {
	e := newEvaluator(t)
	ctx := context.Background()

	got, err := e.Eval(ctx, "area * 2.0 + waste", map[string]decimal.Decimal{
		"area":  decimal.NewFromFloat(12.5),
		"waste": decimal.NewFromInt(3),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(28)) {
		t.Errorf("expected 28, got %s", got)
	}
}

func TestEval_MissingVariablesDefaultToZero(t *testing.T) {
	e := newEvaluator(t)

	got, err := e.Eval(context.Background(), "quantity + count", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
}

func TestEval_RejectsUndeclaredIdentifier(t *testing.T) {
	e := newEvaluator(t)

	_, err := e.Eval(context.Background(), "surface * 2.0", nil)
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEval_RejectsUnknownVariableValue(t *testing.T) {
	e := newEvaluator(t)

	_, err := e.Eval(context.Background(), "area", map[string]decimal.Decimal{
		"surface": decimal.NewFromInt(1),
	})
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEval_RejectsNonNumericResult(t *testing.T) {
	e := newEvaluator(t)

	_, err := e.Eval(context.Background(), `"abc"`, nil)
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEval_RejectsNegativeResult(t *testing.T) {
	e := newEvaluator(t)

	_, err := e.Eval(context.Background(), "quantity - 5.0", nil)
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	e := newEvaluator(t)

	if err := e.Validate("length * width"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := e.Validate("length *"); err == nil {
		t.Error("expected compile error")
	}
}

func TestEval_CachesPrograms(t *testing.T) {
	e := newEvaluator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Eval(ctx, "count * 1.5", map[string]decimal.Decimal{
			"count": decimal.NewFromInt(4),
		}); err != nil {
			t.Fatalf("eval %d: %v", i, err)
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.programs) != 1 {
		t.Errorf("expected 1 cached program, got %d", len(e.programs))
	}
}
