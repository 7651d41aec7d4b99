package mip

import (
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
)

type Var int

// NoVar stands for a variable the model never declared.
const NoVar Var = -1

type VarType int

const (
	Binary VarType = iota
	Integer
	Continuous
)

type VarInfo struct {
	Name  string
	Lower float64
	Upper float64
	Type  VarType
}

type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression. The zero value is the constant 0.
type Expr struct {
	Terms    []Term
	Constant float64
}

func Sum(vars ...Var) Expr {
	expr := Expr{Terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		expr.Terms = append(expr.Terms, Term{Var: v, Coef: 1})
	}
	return expr
}

func (expr *Expr) Add(v Var, coef float64) *Expr {
	expr.Terms = append(expr.Terms, Term{Var: v, Coef: coef})
	return expr
}

func (expr *Expr) AddConstant(constant float64) *Expr {
	expr.Constant += constant
	return expr
}

func (expr *Expr) AddExpr(other Expr, scale float64) *Expr {
	for _, term := range other.Terms {
		expr.Terms = append(expr.Terms, Term{Var: term.Var, Coef: term.Coef * scale})
	}
	expr.Constant += other.Constant * scale
	return expr
}

// Simplify merges repeated variables, drops zero coefficients and orders terms by variable.
func (expr Expr) Simplify() Expr {
	coefs := make(map[Var]float64, len(expr.Terms))
	for _, term := range expr.Terms {
		coefs[term.Var] += term.Coef
	}
	terms := make([]Term, 0, len(coefs))
	for v, coef := range coefs {
		if coef != 0 {
			terms = append(terms, Term{Var: v, Coef: coef})
		}
	}
	slices.SortFunc(terms, func(a, b Term) int { return int(a.Var) - int(b.Var) })
	return Expr{Terms: terms, Constant: expr.Constant}
}

func (expr Expr) Vars() []Var {
	return lo.Map(expr.Terms, func(term Term, _ int) Var { return term.Var })
}

type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (sense Sense) String() string {
	switch sense {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "="
	}
}

// Constraint reads Expr Sense Rhs, with the expression constant already moved to the right hand side.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	Rhs   float64
}

func newConstraint(expr Expr, sense Sense, rhs float64) Constraint {
	simplified := expr.Simplify()
	rhs -= simplified.Constant
	simplified.Constant = 0
	return Constraint{Expr: simplified, Sense: sense, Rhs: rhs}
}

func LessEq(expr Expr, rhs float64) Constraint {
	return newConstraint(expr, LessEqual, rhs)
}

func GreaterEq(expr Expr, rhs float64) Constraint {
	return newConstraint(expr, GreaterEqual, rhs)
}

func Eq(expr Expr, rhs float64) Constraint {
	return newConstraint(expr, Equal, rhs)
}

func (constraint Constraint) Named(name string) Constraint {
	constraint.Name = name
	return constraint
}

// SOS1 allows at most one of its variables to be nonzero.
type SOS1 struct {
	Name string
	Vars []Var
}

type Model struct {
	Name        string
	vars        []VarInfo
	constraints []Constraint
	sos         []SOS1
	objective   Expr
}

func NewModel(name string) *Model {
	return &Model{Name: name}
}

func (model *Model) NewVar(name string, lower, upper float64, kind VarType) Var {
	if lower > upper {
		panic(fmt.Sprintf("variable %v has empty domain [%v, %v]", name, lower, upper))
	}
	model.vars = append(model.vars, VarInfo{Name: name, Lower: lower, Upper: upper, Type: kind})
	return Var(len(model.vars) - 1)
}

func (model *Model) NewBinary(name string) Var {
	return model.NewVar(name, 0, 1, Binary)
}

func (model *Model) NewInteger(name string, lower, upper float64) Var {
	return model.NewVar(name, lower, upper, Integer)
}

func (model *Model) Has(v Var) bool {
	return v >= 0 && int(v) < len(model.vars)
}

func (model *Model) VarInfo(v Var) VarInfo {
	return model.vars[v]
}

func (model *Model) NumVars() int {
	return len(model.vars)
}

func (model *Model) AddConstraints(constraints ...Constraint) {
	model.constraints = append(model.constraints, constraints...)
}

func (model *Model) AddSOS1(name string, vars []Var) {
	model.sos = append(model.sos, SOS1{Name: name, Vars: vars})
}

func (model *Model) Minimize(objective Expr) {
	model.objective = objective.Simplify()
}

func (model *Model) Constraints() []Constraint {
	return model.constraints
}

func (model *Model) SOS() []SOS1 {
	return model.sos
}

func (model *Model) Objective() Expr {
	return model.objective
}

// MaxValue is the largest value expr can take over the variable bounds.
func (model *Model) MaxValue(expr Expr) float64 {
	value := expr.Constant
	for _, term := range expr.Terms {
		info := model.vars[term.Var]
		value += math.Max(term.Coef*info.Lower, term.Coef*info.Upper)
	}
	return value
}
