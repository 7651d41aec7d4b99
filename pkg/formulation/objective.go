package formulation

import (
	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
)

// roomStabilityPenalty counts room classes used beyond the first one per course.
func (f *Formulation) roomStabilityPenalty() mip.Expr {
	weight := float64(f.Weights.RoomStability)
	expr := mip.Expr{}
	for c := range f.Instance.Courses {
		for r := range f.Rooms {
			expr.Add(f.Vars.CourseRooms[c][r], weight)
		}
	}
	expr.AddConstant(-weight * float64(f.lecturedCourses()))
	return expr
}

// roomCapacityPenalty only has terms for course and room pairs where the students do not fit.
func (f *Formulation) roomCapacityPenalty() mip.Expr {
	weight := f.Weights.RoomCapacity
	expr := mip.Expr{}
	for c, course := range f.Instance.Courses {
		for r, class := range f.Rooms {
			if course.Students <= class.Capacity {
				continue
			}
			for p := range f.Instance.Periods() {
				expr.Add(f.Vars.X[p][r][c], float64(weight*(course.Students-class.Capacity)))
			}
		}
	}
	return expr
}

func (f *Formulation) singletonPenalty() mip.Expr {
	weight := float64(f.Weights.Compactness)
	expr := mip.Expr{}
	for _, byDay := range f.Vars.SingletonChecks {
		for _, checks := range byDay {
			for _, check := range checks {
				expr.Add(check, weight)
			}
		}
	}
	return expr
}

func (f *Formulation) spreadPenalty() mip.Expr {
	weight := float64(f.Weights.MinDays)
	expr := mip.Expr{}
	for _, violation := range f.Vars.MinDaysViolations {
		expr.Add(violation, weight)
	}
	return expr
}

// carriedPenalty is the constant part coming from the parent of a fixing phase.
func (f *Formulation) carriedPenalty() float64 {
	carried := 0.0
	if f.Phase == model.FixPeriod || f.Phase == model.FixDay {
		carried += float64(f.Weights.MinDays * f.Neighbourhood.PenaltyMinCourseDays)
	}
	if f.Phase == model.FixPeriod {
		carried += float64(f.Weights.Compactness * f.Neighbourhood.PenaltyCompactness)
	}
	return carried
}

func objective(f *Formulation) (block, error) {
	var b block
	features := f.Config.Features

	families := []struct {
		accumulator mip.Var
		applies     bool
		penalty     func() mip.Expr
	}{
		{f.Vars.PenaltyRoomStability, !features.ZeroRoomStability, f.roomStabilityPenalty},
		{f.Vars.PenaltyRoomCapacity, true, f.roomCapacityPenalty},
		{f.Vars.PenaltyPeriodSingletons, f.hasCompactness(), f.singletonPenalty},
		{f.Vars.PenaltyPeriodSpread, hasMinCourseDays(f.Phase), f.spreadPenalty},
	}

	total := mip.Expr{}
	total.AddConstant(f.carriedPenalty())
	for _, family := range families {
		if !family.applies {
			continue
		}
		penalty := family.penalty()
		if !features.ObjectiveComponents {
			total.AddExpr(penalty, 1)
			continue
		}
		tie := mip.Sum(family.accumulator)
		tie.AddExpr(penalty, -1)
		b.add(mip.Eq(tie, 0).Named(f.Model.VarInfo(family.accumulator).Name))
		total.Add(family.accumulator, 1)
	}
	b.objective = &total
	return b, nil
}
