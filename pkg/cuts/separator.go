package cuts

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/limaJavier/cctt/pkg/conflicts"
	"github.com/limaJavier/cctt/pkg/formulation"
	"github.com/limaJavier/cctt/pkg/mip"
)

const (
	FamilyPattern  = "pattern"
	FamilyClique   = "clique"
	FamilyRounding = "rounding"
	FamilyTriangle = "triangle"

	epsilon          = 1e-6
	roundingFraction = 0.1
	triangleExcess   = 1.1
)

type Counter interface {
	CutsAdded(family string, count int)
}

type poolKey struct {
	period int
	clique string
}

// Separator adds violated inequalities at search nodes. Every cut is local and its pool is private to one search.
type Separator struct {
	formulation *formulation.Formulation
	graph       *conflicts.Graph
	logger      *slog.Logger
	counter     Counter

	active     bool
	totalCalls int
	totalCuts  int
	pool       map[poolKey]struct{}
	known      map[string]struct{} // Cliques already pooled or grown
}

func NewSeparator(f *formulation.Formulation, logger *slog.Logger, counter Counter) *Separator {
	if logger == nil {
		logger = slog.Default()
	}
	separator := &Separator{
		formulation: f,
		graph:       f.Graph,
		logger:      logger,
		counter:     counter,
		pool:        make(map[poolKey]struct{}),
		known:       make(map[string]struct{}),
	}
	if separator.graph != nil {
		for _, clique := range separator.graph.Cliques() {
			separator.known[conflicts.CliqueKey(clique)] = struct{}{}
		}
	}
	return separator
}

func (separator *Separator) TotalCuts() int {
	return separator.totalCuts
}

func (separator *Separator) OnNode(ctx mip.CutContext) {
	nodes := ctx.Nodes()
	if separator.totalCalls >= 2*(nodes+1) {
		return
	}
	features := separator.formulation.Config.Features
	cfg := separator.formulation.Config

	added := 0
	if features.PatternCuts && separator.totalCalls <= 5*(nodes+1) {
		added += separator.record(FamilyPattern, separator.patternCuts(ctx))
	}
	if separator.active || separator.totalCalls%cfg.CliqueCutFrequency == 0 {
		added += separator.record(FamilyClique, separator.cliqueCuts(ctx))
	}
	if features.ObjectiveComponents {
		added += separator.record(FamilyRounding, separator.roundingCuts(ctx))
	}
	if features.TriangleCuts && (separator.active || separator.totalCalls%cfg.TriangleCutFrequency == 0) {
		added += separator.record(FamilyTriangle, separator.triangleCuts(ctx))
	}

	separator.active = added > 0
	separator.totalCalls++
	separator.totalCuts += added
}

func (separator *Separator) record(family string, count int) int {
	if count > 0 && separator.counter != nil {
		separator.counter.CutsAdded(family, count)
	}
	return count
}

func (separator *Separator) cliqueExpr(clique []int, period int) mip.Expr {
	expr := mip.Expr{}
	for _, c := range clique {
		expr.AddExpr(separator.formulation.PeriodExpr(c, period), 1)
	}
	return expr
}

func (separator *Separator) cliqueCuts(ctx mip.CutContext) int {
	if separator.graph == nil {
		return 0
	}
	added := 0
	for _, clique := range separator.graph.Cliques() {
		key := conflicts.CliqueKey(clique)
		for p := range separator.formulation.Instance.Periods() {
			if _, ok := separator.pool[poolKey{p, key}]; ok {
				continue
			}
			expr := separator.cliqueExpr(clique, p)
			value, err := mip.ExprValue(ctx, expr)
			if err != nil {
				separator.logger.Warn("clique cut skipped", slog.String("clique", key), slog.Int("period", p), slog.String("error", err.Error()))
				continue
			}
			if value > 1+epsilon {
				ctx.AddLocal(mip.LessEq(expr, 1).Named(fmt.Sprintf("cliqueCut(%v,%d)", key, p)))
				separator.pool[poolKey{p, key}] = struct{}{}
				added++
			}
		}
	}
	return added
}

func (separator *Separator) roundingCuts(ctx mip.CutContext) int {
	added := 0
	for _, accumulator := range separator.formulation.Vars.Accumulators() {
		value, err := ctx.Value(accumulator)
		if err != nil {
			separator.logger.Warn("rounding cut skipped", slog.String("error", err.Error()))
			continue
		}
		if value-math.Floor(value) > roundingFraction {
			ctx.AddLocal(mip.GreaterEq(mip.Sum(accumulator), math.Ceil(value)))
			added++
		}
	}
	return added
}

// patternCuts compares the singleton checks of every curriculum and day with the penalty of the most violated daily pattern.
func (separator *Separator) patternCuts(ctx mip.CutContext) int {
	f := separator.formulation
	if f.Vars.SingletonChecks == nil || f.HeuristicCompactness() {
		return 0
	}
	instance := f.Instance
	patterns := instance.Patterns()
	added := 0
	for u := range instance.ProperCurricula {
		courses := instance.Curricula[u].Courses
		for d := range instance.Days {
			checks := f.Vars.SingletonChecks[u][d]
			checkValue, err := mip.ExprValue(ctx, mip.Sum(checks...))
			if err != nil {
				separator.logger.Warn("pattern cut skipped", slog.Int("curriculum", u), slog.Int("day", d), slog.String("error", err.Error()))
				continue
			}

			first, _ := instance.DayPeriods(d)
			occupancy := make([]mip.Expr, instance.PeriodsPerDay)
			values := make([]float64, instance.PeriodsPerDay)
			failed := false
			for pd := range instance.PeriodsPerDay {
				occupancy[pd] = mip.Expr{}
				for _, c := range courses {
					occupancy[pd].AddExpr(f.PeriodExpr(c, first+pd), 1)
				}
				if values[pd], err = mip.ExprValue(ctx, occupancy[pd]); err != nil {
					failed = true
					break
				}
			}
			if failed {
				separator.logger.Warn("pattern cut skipped", slog.Int("curriculum", u), slog.Int("day", d), slog.String("error", err.Error()))
				continue
			}

			best, bestScore := -1, checkValue+epsilon
			for i, pattern := range patterns {
				score := 0.0
				for pd, coefficient := range pattern.Coefficients {
					score += float64(coefficient) * values[pd]
				}
				score = float64(pattern.Penalty) * (score - float64(pattern.Rhs))
				if score > bestScore {
					best, bestScore = i, score
				}
			}
			if best < 0 {
				continue
			}

			pattern := patterns[best]
			expr := mip.Expr{}
			for pd, coefficient := range pattern.Coefficients {
				expr.AddExpr(occupancy[pd], float64(pattern.Penalty*coefficient))
			}
			for _, check := range checks {
				expr.Add(check, -1)
			}
			ctx.AddLocal(mip.LessEq(expr, float64(pattern.Penalty*pattern.Rhs)).Named(fmt.Sprintf("patternCut(%d,%d)", u, d)))
			added++
		}
	}
	return added
}

// triangleCuts grows cliques out of triangles that are violated at some period.
func (separator *Separator) triangleCuts(ctx mip.CutContext) int {
	if separator.graph == nil {
		return 0
	}
	periods := separator.formulation.Instance.Periods()
	added := 0
	separator.graph.Triangles(func(u, v, w int) bool {
		violated := false
		for p := range periods {
			value, err := mip.ExprValue(ctx, separator.cliqueExpr([]int{u, v, w}, p))
			if err == nil && value > 1+epsilon {
				violated = true
				break
			}
		}
		if !violated {
			return true
		}

		clique := separator.graph.Grow([]int{u, v, w})
		key := conflicts.CliqueKey(clique)
		if _, ok := separator.known[key]; ok {
			return true
		}
		separator.known[key] = struct{}{}

		for p := range periods {
			expr := separator.cliqueExpr(clique, p)
			value, err := mip.ExprValue(ctx, expr)
			if err != nil || value <= triangleExcess {
				continue
			}
			ctx.AddLocal(mip.LessEq(expr, 1).Named(fmt.Sprintf("triangleCut(%v,%d)", key, p)))
			separator.pool[poolKey{p, key}] = struct{}{}
			added++
		}
		return true
	})
	return added
}
