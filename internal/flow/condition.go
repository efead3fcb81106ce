package flow

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
)

// EvaluateCondition expands and compares every part of a condition,
// folding the part results left to right. The combinator between two
// adjacent parts is the one attached to the left part.
func EvaluateCondition(ctx context.Context, condition *designer.Condition, vars *Variables) (bool, error) {
	result := false
	for i, part := range condition.Parts {
		var first, second string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			first, err = ExpandText(gctx, part.FirstValue, vars)
			return err
		})
		g.Go(func() error {
			var err error
			second, err = ExpandText(gctx, part.SecondValue, vars)
			return err
		})
		if err := g.Wait(); err != nil {
			return false, err
		}

		value := comparePart(Deserialize(first), part.Operator, Deserialize(second))

		if i == 0 {
			result = value
			continue
		}
		combinator := designer.NextPartAnd
		if prev := condition.Parts[i-1].NextPartOperator; prev != nil {
			combinator = *prev
		}
		if combinator == designer.NextPartOr {
			result = result || value
		} else {
			result = result && value
		}
	}
	return result, nil
}

// comparePart never fails: an ordering operator applied to a string
// operand is simply false.
func comparePart(first any, operator designer.ConditionPartOperator, second any) bool {
	switch operator {
	case designer.OperatorEqual:
		return valuesEqual(first, second)
	case designer.OperatorNotEqual:
		return !valuesEqual(first, second)
	}

	a, aOK := toFloat(first)
	b, bOK := toFloat(second)
	if !aOK || !bOK {
		return false
	}
	switch operator {
	case designer.OperatorGreater:
		return a > b
	case designer.OperatorGreaterEqual:
		return a >= b
	case designer.OperatorLess:
		return a < b
	case designer.OperatorLessEqual:
		return a <= b
	}
	return false
}

// valuesEqual compares numerically when both sides are numeric (bools
// count as 0 and 1), and by exact value otherwise.
func valuesEqual(first, second any) bool {
	if a, ok := toFloat(first); ok {
		if b, ok := toFloat(second); ok {
			return a == b
		}
	}
	return first == second
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
