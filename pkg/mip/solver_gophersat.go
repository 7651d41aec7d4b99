package mip

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"slices"

	"github.com/crillab/gophersat/solver"
	"github.com/samber/lo"
)

// gophersatSolver solves models with binary and bounded integer variables as pseudo-boolean problems.
// Integers are binary expanded. Each satisfying model becomes an incumbent and is followed by a
// constraint asking for a strictly cheaper one, until the problem turns unsatisfiable (optimality)
// or a limit is hit. Limits are checked between two improvements.
type gophersatSolver struct {
	logger *slog.Logger
}

func NewGophersatSolver(logger *slog.Logger) Solver {
	if logger == nil {
		logger = slog.Default()
	}
	return &gophersatSolver{logger: logger}
}

// pbEncoding maps every model variable onto a run of consecutive literals (1-based), least significant first.
type pbEncoding struct {
	model *Model
	first []int
	width []int
	next  int
}

type pbTerm struct {
	lit    int
	weight int
}

func newPBEncoding(model *Model) (*pbEncoding, error) {
	encoding := &pbEncoding{
		model: model,
		first: make([]int, model.NumVars()),
		width: make([]int, model.NumVars()),
		next:  1,
	}
	for i, info := range model.vars {
		if info.Type == Continuous {
			return nil, fmt.Errorf("%w: continuous variable %v", ErrUnsupported, info.Name)
		}
		if math.IsInf(info.Lower, 0) || math.IsInf(info.Upper, 0) {
			return nil, fmt.Errorf("%w: unbounded variable %v", ErrUnsupported, info.Name)
		}
		span := int(math.Floor(info.Upper)) - int(math.Ceil(info.Lower))
		encoding.first[i] = encoding.next
		encoding.width[i] = bits.Len(uint(span))
		encoding.next += encoding.width[i]
	}
	return encoding, nil
}

func (encoding *pbEncoding) lower(v Var) int {
	return int(math.Ceil(encoding.model.vars[v].Lower))
}

// expand rewrites expr over literals and returns the constant part.
func (encoding *pbEncoding) expand(expr Expr) ([]pbTerm, int, error) {
	terms := make([]pbTerm, 0, len(expr.Terms))
	constant := 0
	for _, term := range expr.Terms {
		coef := math.Round(term.Coef)
		if math.Abs(coef-term.Coef) > 1e-9 {
			return nil, 0, fmt.Errorf("%w: fractional coefficient %v", ErrUnsupported, term.Coef)
		}
		if int(term.Var) < 0 || int(term.Var) >= len(encoding.first) {
			return nil, 0, fmt.Errorf("%w: %d", ErrNotExtracted, term.Var)
		}
		constant += int(coef) * encoding.lower(term.Var)
		for bit := range encoding.width[term.Var] {
			terms = append(terms, pbTerm{lit: encoding.first[term.Var] + bit, weight: int(coef) << bit})
		}
	}
	return terms, constant, nil
}

// atLeast turns sum(terms) >= bound into positive weighted literals and cardinality.
func atLeast(terms []pbTerm, bound int) ([]int, []int, int) {
	lits := make([]int, 0, len(terms))
	weights := make([]int, 0, len(terms))
	for _, term := range terms {
		switch {
		case term.weight > 0:
			lits = append(lits, term.lit)
			weights = append(weights, term.weight)
		case term.weight < 0:
			lits = append(lits, -term.lit)
			weights = append(weights, -term.weight)
			bound -= term.weight
		}
	}
	return lits, weights, bound
}

func negate(terms []pbTerm) []pbTerm {
	negated := make([]pbTerm, len(terms))
	for i, term := range terms {
		negated[i] = pbTerm{lit: term.lit, weight: -term.weight}
	}
	return negated
}

// constraint encodes a linear constraint as one or two "at least" constraints.
func (encoding *pbEncoding) constraint(constraint Constraint) ([]solver.PBConstr, error) {
	terms, constant, err := encoding.expand(constraint.Expr)
	if err != nil {
		return nil, err
	}
	rhs := constraint.Rhs - float64(constant)
	result := make([]solver.PBConstr, 0, 2)
	if constraint.Sense != LessEqual {
		lits, weights, card := atLeast(terms, int(math.Ceil(rhs-1e-9)))
		result = append(result, solver.GtEq(lits, weights, card))
	}
	if constraint.Sense != GreaterEqual {
		lits, weights, card := atLeast(negate(terms), -int(math.Floor(rhs+1e-9)))
		result = append(result, solver.GtEq(lits, weights, card))
	}
	return result, nil
}

func (encoding *pbEncoding) sos(set SOS1) (solver.PBConstr, error) {
	terms := make([]pbTerm, 0, len(set.Vars))
	for _, v := range set.Vars {
		if encoding.model.vars[v].Type != Binary {
			return solver.PBConstr{}, fmt.Errorf("%w: sos %v over non binary variable", ErrUnsupported, set.Name)
		}
		terms = append(terms, pbTerm{lit: encoding.first[v], weight: -1})
	}
	lits, weights, card := atLeast(terms, -1)
	return solver.GtEq(lits, weights, card), nil
}

// domains restricts integer expansions whose span is not a power of two minus one.
func (encoding *pbEncoding) domains() []solver.PBConstr {
	result := make([]solver.PBConstr, 0)
	for i, info := range encoding.model.vars {
		span := int(math.Floor(info.Upper)) - int(math.Ceil(info.Lower))
		if encoding.width[i] == 0 || span == 1<<encoding.width[i]-1 {
			continue
		}
		terms := make([]pbTerm, 0, encoding.width[i])
		for bit := range encoding.width[i] {
			terms = append(terms, pbTerm{lit: encoding.first[i] + bit, weight: -(1 << bit)})
		}
		lits, weights, card := atLeast(terms, -span)
		result = append(result, solver.GtEq(lits, weights, card))
	}
	return result
}

func (encoding *pbEncoding) decode(assignment []bool) []float64 {
	values := make([]float64, encoding.model.NumVars())
	for i := range values {
		value := encoding.lower(Var(i))
		for bit := range encoding.width[i] {
			if assignment[encoding.first[i]+bit-1] {
				value += 1 << bit
			}
		}
		values[i] = float64(value)
	}
	return values
}

func toLits(lits []int) []solver.Lit {
	result := make([]solver.Lit, len(lits))
	for i, lit := range lits {
		result[i] = solver.IntToLit(int32(lit))
	}
	return result
}

func (backend *gophersatSolver) Solve(ctx context.Context, model *Model, params Params, callbacks Callbacks) (Solution, error) {
	encoding, err := newPBEncoding(model)
	if err != nil {
		return Solution{}, err
	}

	constraints := encoding.domains()
	for _, constraint := range model.constraints {
		encoded, err := encoding.constraint(constraint)
		if err != nil {
			return Solution{}, fmt.Errorf("constraint %v: %w", constraint.Name, err)
		}
		constraints = append(constraints, encoded...)
	}
	for _, set := range model.sos {
		encoded, err := encoding.sos(set)
		if err != nil {
			return Solution{}, err
		}
		constraints = append(constraints, encoded)
	}

	objectiveTerms, objectiveConstant, err := encoding.expand(model.objective)
	if err != nil {
		return Solution{}, fmt.Errorf("objective: %w", err)
	}
	costLits, costWeights, costOffset := atLeast(objectiveTerms, 0)
	// Costs are paid by true literals: sum(w * lit) = sum(terms) + costOffset
	constant := float64(objectiveConstant) + model.objective.Constant - float64(costOffset)
	maxCost := 0
	for _, weight := range costWeights {
		maxCost += weight
	}
	if params.Cutoff != nil {
		budget := int(math.Ceil(*params.Cutoff-constant-1e-9)) - 1
		constraints = append(constraints, solver.GtEq(negateLits(costLits), slices.Clone(costWeights), maxCost-budget))
	}

	// Two fresh literals on top make sure every literal is accounted for in the problem
	anchor := encoding.next
	constraints = append(constraints, solver.PropClause(anchor, anchor+1))

	// Parsing normalizes weights in place, so reachability is judged first
	if lo.SomeBy(constraints, unreachable) {
		return Solution{Status: Infeasible, BestBound: unboundedBelow()}, nil
	}
	problem := solver.ParsePBConstrs(constraints)
	if problem.Status == solver.Unsat {
		return Solution{Status: Infeasible, BestBound: unboundedBelow()}, nil
	}
	if len(costLits) > 0 {
		problem.SetCostFunc(toLits(costLits), costWeights)
	}
	sat := solver.New(problem)

	ctx, cancel := deadline(ctx, params)
	defer cancel()

	result := Solution{Status: Unknown, BestBound: constant}
	for {
		if ctx.Err() != nil || (params.NodeLimit > 0 && result.Nodes >= params.NodeLimit) {
			break
		}
		status := sat.Solve()
		result.Nodes++
		if status != solver.Sat {
			if result.Status == Feasible {
				result.Status = Optimal
				result.BestBound = result.Objective
			} else {
				result.Status = Infeasible
			}
			break
		}

		assignment := sat.Model()
		values := encoding.decode(assignment)
		cost := 0
		for i, lit := range costLits {
			if assignment[abs(lit)-1] == (lit > 0) {
				cost += costWeights[i]
			}
		}
		objective := constant + float64(cost)
		search := NewStaticContext(values, objective, result.BestBound, result.Nodes)

		if callbacks.Cuts != nil {
			callbacks.Cuts.OnNode(search)
			violated := false
			for _, cut := range search.Cuts() {
				encoded, err := encoding.constraint(cut)
				if err != nil {
					backend.logger.Warn("cut skipped", slog.String("error", err.Error()))
					continue
				}
				if cut.Violation(values) > 1e-6 {
					violated = true
				}
				for _, constr := range encoded {
					if constr.AtLeast > 0 {
						sat.AppendClause(pbClause(constr))
					}
				}
			}
			if violated {
				continue
			}
		}

		result.Status = Feasible
		result.Values = values
		result.Objective = objective
		if callbacks.Incumbent != nil {
			callbacks.Incumbent.OnIncumbent(search)
		}
		if callbacks.Nodes != nil {
			callbacks.Nodes.OnNodeExplored(search)
		}
		if cost == 0 {
			result.Status = Optimal
			result.BestBound = objective
			break
		}
		sat.AppendClause(solver.NewPBClause(toLits(negateLits(costLits)), append([]int(nil), costWeights...), maxCost-cost+1))
	}

	backend.logger.Debug("pseudo-boolean search finished",
		slog.String("model", model.Name),
		slog.String("status", result.Status.String()),
		slog.Int("iterations", result.Nodes),
		slog.Float64("objective", result.Objective))
	return result, nil
}

func pbClause(constr solver.PBConstr) *solver.Clause {
	weights := constr.Weights
	if weights == nil {
		weights = make([]int, len(constr.Lits))
		for i := range weights {
			weights[i] = 1
		}
	}
	return solver.NewPBClause(toLits(constr.Lits), weights, constr.AtLeast)
}

// unreachable reports constraints whose bound exceeds the total weight of their literals.
func unreachable(constr solver.PBConstr) bool {
	total := len(constr.Lits)
	if constr.Weights != nil {
		total = lo.Sum(constr.Weights)
	}
	return constr.AtLeast > total
}

func negateLits(lits []int) []int {
	negated := make([]int, len(lits))
	for i, lit := range lits {
		negated[i] = -lit
	}
	return negated
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
