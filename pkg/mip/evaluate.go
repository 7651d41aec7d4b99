package mip

import (
	"fmt"
	"math"
)

func (expr Expr) Value(values []float64) float64 {
	value := expr.Constant
	for _, term := range expr.Terms {
		value += term.Coef * values[term.Var]
	}
	return value
}

// Violation is how far values are from satisfying constraint, zero when satisfied.
func (constraint Constraint) Violation(values []float64) float64 {
	lhs := constraint.Expr.Value(values)
	switch constraint.Sense {
	case LessEqual:
		return math.Max(0, lhs-constraint.Rhs)
	case GreaterEqual:
		return math.Max(0, constraint.Rhs-lhs)
	default:
		return math.Abs(lhs - constraint.Rhs)
	}
}

func (model *Model) ObjectiveValue(values []float64) float64 {
	return model.objective.Value(values)
}

// Check verifies bounds, integrality, constraints and SOS sets of values within tolerance.
func (model *Model) Check(values []float64, tolerance float64) error {
	if len(values) != len(model.vars) {
		return fmt.Errorf("expected %d values but got %d", len(model.vars), len(values))
	}
	for i, info := range model.vars {
		value := values[i]
		if value < info.Lower-tolerance || value > info.Upper+tolerance {
			return fmt.Errorf("variable %v = %v is outside [%v, %v]", info.Name, value, info.Lower, info.Upper)
		}
		if info.Type != Continuous && math.Abs(value-math.Round(value)) > tolerance {
			return fmt.Errorf("variable %v = %v is not integral", info.Name, value)
		}
	}
	for i, constraint := range model.constraints {
		if violation := constraint.Violation(values); violation > tolerance {
			return fmt.Errorf("constraint %d (%v) is violated by %v", i, constraint.Name, violation)
		}
	}
	for _, set := range model.sos {
		nonzero := 0
		for _, v := range set.Vars {
			if math.Abs(values[v]) > tolerance {
				nonzero++
			}
		}
		if nonzero > 1 {
			return fmt.Errorf("sos %v has %d nonzero variables", set.Name, nonzero)
		}
	}
	return nil
}
