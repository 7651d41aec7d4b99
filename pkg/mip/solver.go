package mip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNotExtracted = errors.New("variable not extracted")
	ErrUnsupported  = errors.New("model not supported by solver")
)

type Status int

const (
	Unknown Status = iota
	Optimal
	Feasible
	Infeasible
	Unbounded
)

func (status Status) String() string {
	return [...]string{"unknown", "optimal", "feasible", "infeasible", "unbounded"}[status]
}

// HasSolution reports whether the status comes with variable values.
func (status Status) HasSolution() bool {
	return status == Optimal || status == Feasible
}

type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
	BestBound float64
	Nodes     int
}

// Params is applied to a solver before each solve. Zero values mean no limit.
type Params struct {
	TimeLimit     time.Duration
	NodeLimit     int
	MemoryLimitMB int
	Cutoff        *float64 // Only solutions with a smaller objective are accepted
	Options       map[string]string
}

// SearchContext gives read access to the search state at a hook point.
type SearchContext interface {
	Value(v Var) (float64, error)
	ObjectiveValue() float64
	BestBound() float64
	Nodes() int
}

// CutContext additionally accepts constraints valid in the current subtree only.
type CutContext interface {
	SearchContext
	AddLocal(constraint Constraint)
}

type IncumbentObserver interface {
	OnIncumbent(ctx SearchContext)
}

type CutSeparator interface {
	OnNode(ctx CutContext)
}

type NodeObserver interface {
	OnNodeExplored(ctx SearchContext)
}

// Callbacks are invoked synchronously from the search. Any of them may be nil.
type Callbacks struct {
	Incumbent IncumbentObserver
	Cuts      CutSeparator
	Nodes     NodeObserver
}

type Solver interface {
	Solve(ctx context.Context, model *Model, params Params, callbacks Callbacks) (Solution, error)
}

// ExprValue evaluates expr at the search state, failing on the first missing variable.
func ExprValue(ctx SearchContext, expr Expr) (float64, error) {
	value := expr.Constant
	for _, term := range expr.Terms {
		termValue, err := ctx.Value(term.Var)
		if err != nil {
			return 0, err
		}
		value += term.Coef * termValue
	}
	return value, nil
}

// StaticContext exposes a fixed vector of values, such as a final or incumbent solution.
type StaticContext struct {
	values    []float64
	objective float64
	bound     float64
	nodes     int
	cuts      []Constraint
}

func NewStaticContext(values []float64, objective, bound float64, nodes int) *StaticContext {
	return &StaticContext{values: values, objective: objective, bound: bound, nodes: nodes}
}

func (ctx *StaticContext) Value(v Var) (float64, error) {
	if v < 0 || int(v) >= len(ctx.values) {
		return 0, fmt.Errorf("%w: %d", ErrNotExtracted, v)
	}
	return ctx.values[v], nil
}

func (ctx *StaticContext) ObjectiveValue() float64 {
	return ctx.objective
}

func (ctx *StaticContext) BestBound() float64 {
	return ctx.bound
}

func (ctx *StaticContext) Nodes() int {
	return ctx.nodes
}

func (ctx *StaticContext) AddLocal(constraint Constraint) {
	ctx.cuts = append(ctx.cuts, constraint)
}

// Cuts returns the constraints added since the last call and forgets them.
func (ctx *StaticContext) Cuts() []Constraint {
	cuts := ctx.cuts
	ctx.cuts = nil
	return cuts
}

// notify runs the incumbent and node hooks on a final solution, for backends without live callbacks.
func notify(callbacks Callbacks, solution Solution) {
	if !solution.Status.HasSolution() {
		return
	}
	ctx := NewStaticContext(solution.Values, solution.Objective, solution.BestBound, solution.Nodes)
	if callbacks.Incumbent != nil {
		callbacks.Incumbent.OnIncumbent(ctx)
	}
	if callbacks.Nodes != nil {
		callbacks.Nodes.OnNodeExplored(ctx)
	}
}

func deadline(ctx context.Context, params Params) (context.Context, context.CancelFunc) {
	if params.TimeLimit > 0 {
		return context.WithTimeout(ctx, params.TimeLimit)
	}
	return context.WithCancel(ctx)
}

func unboundedBelow() float64 {
	return math.Inf(-1)
}
