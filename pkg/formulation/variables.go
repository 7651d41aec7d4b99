package formulation

import (
	"fmt"
	"math"

	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
)

const maxPenalty = 214783647

// Variables holds the families a phase materializes. Families a phase does not need are nil (or mip.NoVar).
type Variables struct {
	X                 [][][]mip.Var // [period][room class][course]
	CourseRooms       [][]mip.Var   // [course][room class]
	CoursePeriods     [][]mip.Var   // [course][period]
	CourseDays        [][]mip.Var   // [course][day]
	MinDaysViolations []mip.Var     // [course]
	SingletonChecks   [][][]mip.Var // [proper curriculum][day][check]

	PenaltyRoomStability    mip.Var
	PenaltyRoomCapacity     mip.Var
	PenaltyPeriodSingletons mip.Var
	PenaltyPeriodSpread     mip.Var
}

func (vars *Variables) Accumulators() []mip.Var {
	accumulators := make([]mip.Var, 0, 4)
	for _, v := range []mip.Var{vars.PenaltyRoomStability, vars.PenaltyRoomCapacity, vars.PenaltyPeriodSingletons, vars.PenaltyPeriodSpread} {
		if v != mip.NoVar {
			accumulators = append(accumulators, v)
		}
	}
	return accumulators
}

func hasMinCourseDays(phase model.Phase) bool {
	return phase == model.Monolithic || phase == model.Surface
}

func (f *Formulation) hasCompactness() bool {
	return f.Phase != model.FixPeriod && f.Instance.PeriodsPerDay >= 2
}

// buildVariables declares exactly the families required by the phase and the feature flags.
func buildVariables(f *Formulation) Variables {
	instance, features, m := f.Instance, f.Config.Features, f.Model
	courses, periods, days, rooms := len(instance.Courses), instance.Periods(), instance.Days, len(f.Rooms)

	vars := Variables{
		PenaltyRoomStability:    mip.NoVar,
		PenaltyRoomCapacity:     mip.NoVar,
		PenaltyPeriodSingletons: mip.NoVar,
		PenaltyPeriodSpread:     mip.NoVar,
	}

	vars.X = make([][][]mip.Var, periods)
	for p := range periods {
		vars.X[p] = make([][]mip.Var, rooms)
		for r := range rooms {
			vars.X[p][r] = make([]mip.Var, courses)
			for c := range courses {
				vars.X[p][r][c] = m.NewBinary(fmt.Sprintf("x(%d,%d,%d)", p, r, c))
			}
		}
	}

	vars.CourseRooms = make([][]mip.Var, courses)
	for c := range courses {
		vars.CourseRooms[c] = make([]mip.Var, rooms)
		for r := range rooms {
			vars.CourseRooms[c][r] = m.NewBinary(fmt.Sprintf("y(%d,%d)", c, r))
		}
	}

	if f.Phase != model.Surface && features.AdditionalVariables {
		vars.CoursePeriods = make([][]mip.Var, courses)
		for c := range courses {
			vars.CoursePeriods[c] = make([]mip.Var, periods)
			for p := range periods {
				vars.CoursePeriods[c][p] = m.NewBinary(fmt.Sprintf("cp(%d,%d)", c, p))
			}
		}
	}

	if hasMinCourseDays(f.Phase) {
		vars.CourseDays = make([][]mip.Var, courses)
		vars.MinDaysViolations = make([]mip.Var, courses)
		for c, course := range instance.Courses {
			vars.CourseDays[c] = make([]mip.Var, days)
			for d := range days {
				vars.CourseDays[c][d] = m.NewBinary(fmt.Sprintf("cd(%d,%d)", c, d))
			}
			vars.MinDaysViolations[c] = m.NewInteger(fmt.Sprintf("viol(%d)", c), 0, float64(max(0, requiredDays(course)-1)))
		}
	}

	if f.hasCompactness() {
		checks := instance.PeriodsPerDay
		if f.heuristic {
			checks = 1
		}
		vars.SingletonChecks = make([][][]mip.Var, instance.ProperCurricula)
		for u := range instance.ProperCurricula {
			vars.SingletonChecks[u] = make([][]mip.Var, days)
			for d := range days {
				vars.SingletonChecks[u][d] = make([]mip.Var, checks)
				for s := range checks {
					vars.SingletonChecks[u][d][s] = m.NewBinary(fmt.Sprintf("check(%d,%d,%d)", u, d, s))
				}
			}
		}
	}

	f.Vars = vars
	if features.ObjectiveComponents {
		accumulator := func(name string, expr mip.Expr) mip.Var {
			upper := math.Min(maxPenalty, math.Max(0, m.MaxValue(expr)))
			return m.NewInteger(name, 0, math.Floor(upper))
		}
		if !features.ZeroRoomStability {
			vars.PenaltyRoomStability = accumulator("penaltyRoomStability", f.roomStabilityPenalty())
		}
		vars.PenaltyRoomCapacity = accumulator("penaltyRoomCapacity", f.roomCapacityPenalty())
		if f.hasCompactness() {
			vars.PenaltyPeriodSingletons = accumulator("penaltyPeriodSingletons", f.singletonPenalty())
		}
		if hasMinCourseDays(f.Phase) {
			vars.PenaltyPeriodSpread = accumulator("penaltyPeriodSpread", f.spreadPenalty())
		}
	}
	return vars
}

// requiredDays is the minimum number of days a course should spread over. A course without lectures requires none.
func requiredDays(course model.Course) int {
	if course.Lectures == 0 {
		return 0
	}
	return course.MinDays
}
