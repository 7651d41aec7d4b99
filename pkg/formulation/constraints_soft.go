package formulation

import (
	"fmt"

	"github.com/limaJavier/cctt/pkg/mip"
)

// singletonRelation reads: Expr - Check <= 0, where Expr is 1 when the curriculum has an isolated lecture at the slot.
type singletonRelation struct {
	name  string
	expr  mip.Expr
	check mip.Var
}

func (f *Formulation) occupancy(curriculum []int, period int) mip.Expr {
	expr := mip.Expr{}
	for _, c := range curriculum {
		expr.AddExpr(f.PeriodExpr(c, period), 1)
	}
	return expr
}

func (f *Formulation) singletonRelations() []singletonRelation {
	relations := make([]singletonRelation, 0)
	if f.Vars.SingletonChecks == nil {
		return relations
	}
	instance := f.Instance
	for u := range instance.ProperCurricula {
		courses := instance.Curricula[u].Courses
		for d := range instance.Days {
			checks := f.Vars.SingletonChecks[u][d]
			check := func(slot int) mip.Var {
				if f.heuristic {
					return checks[0]
				}
				return checks[slot]
			}
			first, end := instance.DayPeriods(d)
			last := end - 1

			morning := f.occupancy(courses, first)
			morning.AddExpr(f.occupancy(courses, first+1), -1)
			relations = append(relations, singletonRelation{fmt.Sprintf("morning(%d,%d)", u, d), morning, check(0)})

			evening := f.occupancy(courses, last)
			evening.AddExpr(f.occupancy(courses, last-1), -1)
			relations = append(relations, singletonRelation{fmt.Sprintf("evening(%d,%d)", u, d), evening, check(1)})

			for p := first + 1; p < last; p++ {
				interior := f.occupancy(courses, p)
				interior.AddExpr(f.occupancy(courses, p+1), -1)
				interior.AddExpr(f.occupancy(courses, p-1), -1)
				relations = append(relations, singletonRelation{fmt.Sprintf("interior(%d,%d)", u, p), interior, check(p - first + 1)})
			}
		}
	}
	return relations
}

func compactnessConstraints(f *Formulation) (block, error) {
	var b block
	for _, relation := range f.singletonRelations() {
		expr := relation.expr
		expr.Add(relation.check, -1)
		b.add(mip.LessEq(expr, 0).Named(relation.name))
	}
	return b, nil
}

func minCourseDaysConstraints(f *Formulation) (block, error) {
	var b block
	vars := f.Vars
	if vars.CourseDays == nil {
		return b, nil
	}
	features := f.Config.Features

	for c, course := range f.Instance.Courses {
		violation := vars.MinDaysViolations[c]
		minDays := requiredDays(course)
		days := mip.Expr{}
		for d := range f.Instance.Days {
			courseDay := vars.CourseDays[c][d]
			first, last := f.Instance.DayPeriods(d)
			daySum := mip.Expr{}
			for p := first; p < last; p++ {
				period := f.PeriodExpr(c, p)
				daySum.AddExpr(period, 1)
				period.Add(courseDay, -1)
				b.add(mip.LessEq(period, 0).Named(fmt.Sprintf("courseDayUsed(%d,%d)", c, p)))
			}
			if !features.PreprocessingFriendly {
				unused := daySum
				unused.Add(courseDay, -1)
				b.add(mip.GreaterEq(unused, 0).Named(fmt.Sprintf("courseDayUnused(%d,%d)", c, d)))
			}
			if features.StaticImpliedBounds {
				implied := daySum
				implied.AddConstant(float64(minDays - course.Lectures)).Add(violation, -1)
				b.add(mip.LessEq(implied, 1).Named(fmt.Sprintf("courseDayImplied(%d,%d)", c, d)))
			}
			days.Add(courseDay, 1)
		}

		spread := days
		spread.Add(violation, 1)
		b.add(mip.GreaterEq(spread, float64(minDays)).Named(fmt.Sprintf("minCourseDays(%d)", c)))

		if features.StaticImpliedBounds {
			if course.Lectures > 0 {
				b.add(mip.GreaterEq(days, 1).Named(fmt.Sprintf("someCourseDay(%d)", c)))
			}
			if minDays > 0 {
				b.add(mip.LessEq(mip.Sum(violation), float64(minDays-1)).Named(fmt.Sprintf("violationBound(%d)", c)))
			}
		}
	}
	return b, nil
}
