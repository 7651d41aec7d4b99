package mip

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpr(t *testing.T) {
	t.Run("Simplify merges repeated variables", func(t *testing.T) {
		//** Arrange
		expr := Sum(2, 0, 2)
		expr.Add(1, 3).Add(1, -3).AddConstant(4)

		//** Act
		simplified := expr.Simplify()

		//** Assert
		assert.Equal(t, Expr{Terms: []Term{{Var: 0, Coef: 1}, {Var: 2, Coef: 2}}, Constant: 4}, simplified)
	})

	t.Run("Constant moves to the right hand side", func(t *testing.T) {
		//** Arrange
		expr := Sum(0)
		expr.AddConstant(2)

		//** Act
		constraint := LessEq(expr, 5)

		//** Assert
		assert.Equal(t, 3.0, constraint.Rhs)
		assert.Equal(t, 0.0, constraint.Expr.Constant)
	})
}

func TestCheck(t *testing.T) {
	//** Arrange
	model := NewModel("check")
	x := model.NewBinary("x")
	y := model.NewBinary("y")
	z := model.NewInteger("z", 0, 5)
	model.AddConstraints(LessEq(Sum(x, y), 1).Named("pair"))
	expr := Sum(z)
	expr.Add(x, -1)
	model.AddConstraints(GreaterEq(expr, 2))
	model.AddSOS1("sos", []Var{x, z})
	objective := Sum(z)
	objective.AddConstant(1)
	model.Minimize(objective)

	t.Run("Feasible values", func(t *testing.T) {
		//** Act
		err := model.Check([]float64{0, 1, 2}, 1e-6)

		//** Assert
		assert.NoError(t, err)
		assert.Equal(t, 3.0, model.ObjectiveValue([]float64{0, 1, 2}))
	})

	t.Run("Violated constraint", func(t *testing.T) {
		assert.ErrorContains(t, model.Check([]float64{1, 1, 3}, 1e-6), "pair")
	})

	t.Run("Violated sos", func(t *testing.T) {
		assert.ErrorContains(t, model.Check([]float64{1, 0, 3}, 1e-6), "sos")
	})

	t.Run("Fractional integer", func(t *testing.T) {
		assert.ErrorContains(t, model.Check([]float64{0, 0, 2.5}, 1e-6), "integral")
	})

	t.Run("Max value over bounds", func(t *testing.T) {
		expr := Sum(x, z)
		expr.Add(y, -2)
		assert.Equal(t, 6.0, model.MaxValue(expr))
	})
}

func TestToLP(t *testing.T) {
	//** Arrange
	model := NewModel("lp")
	x := model.NewBinary("x(0,1)")
	z := model.NewInteger("z", 0, 7)
	expr := Sum(x)
	expr.Add(z, -2)
	model.AddConstraints(LessEq(expr, 3))
	model.AddSOS1("s", []Var{x})
	model.Minimize(Sum(z))

	//** Act
	lp := model.ToLP()

	//** Assert
	assert.Equal(t, "x_0_1_0", model.LPName(x))
	for _, section := range []string{"Minimize", "Subject To", "Bounds", "Binaries", "Generals", "SOS", "End"} {
		assert.Contains(t, lp, section)
	}
	assert.Contains(t, lp, " c0:  1 x_0_1_0 - 2 z_1 <= 3\n")
	assert.Contains(t, lp, " 0 <= z_1 <= 7\n")
	assert.Contains(t, lp, " s0: S1:: x_0_1_0:1\n")
	assert.False(t, strings.Contains(lp, "x(0,1)"))
}

func TestStaticContext(t *testing.T) {
	//** Arrange
	ctx := NewStaticContext([]float64{1, 2}, 3, 1, 4)
	expr := Sum(0, 1)

	//** Act
	value, err := ExprValue(ctx, expr)
	_, missing := ExprValue(ctx, Sum(NoVar))
	ctx.AddLocal(LessEq(expr, 1))

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, 3.0, value)
	assert.ErrorIs(t, missing, ErrNotExtracted)
	assert.Len(t, ctx.Cuts(), 1)
	assert.Empty(t, ctx.Cuts())
}
