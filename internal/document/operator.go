package document

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

const (
	// LerpExpr is the expression of the scaling operators morelight creates.
	LerpExpr = "lerp(value, lo, hi)"
	// LerpInput is the operator input a remapped channel drives.
	LerpInput = "value"
	// LerpOutput is the only output an operator exposes.
	LerpOutput = "result"
)

// Lerp linearly interpolates between lo and hi.
func Lerp(value, lo, hi float64) float64 {
	return lo + value*(hi-lo)
}

// LerpInputs returns the typed inputs of a lerp operator with the given bounds.
func LerpInputs(lo, hi float64) map[string]cty.Value {
	return map[string]cty.Value{
		LerpInput: cty.NumberFloatVal(0),
		"lo":      cty.NumberFloatVal(lo),
		"hi":      cty.NumberFloatVal(hi),
	}
}

// Number reads a numeric input of the operator.
func (op *Operator) Number(name string) (float64, error) {
	v, ok := op.Inputs[name]
	if !ok {
		return 0, fmt.Errorf("operator %q has no input %q", op.Name, name)
	}
	var f float64
	if err := gocty.FromCtyValue(v, &f); err != nil {
		return 0, fmt.Errorf("operator %q input %q: %w", op.Name, name, err)
	}
	return f, nil
}

// Evaluate computes the operator's result for the given value input. Only
// the lerp expression is supported.
func (op *Operator) Evaluate(value float64) (float64, error) {
	if op.Expr != LerpExpr {
		return 0, fmt.Errorf("operator %q: unsupported expression %q", op.Name, op.Expr)
	}
	lo, err := op.Number("lo")
	if err != nil {
		return 0, err
	}
	hi, err := op.Number("hi")
	if err != nil {
		return 0, err
	}
	return Lerp(value, lo, hi), nil
}
