package formulation

import (
	"fmt"

	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
)

func hardConstraints(f *Formulation) (block, error) {
	var b block
	instance, vars := f.Instance, f.Vars
	periods := instance.Periods()

	for c, course := range instance.Courses {
		expr := mip.Expr{}
		for p := range periods {
			expr.AddExpr(f.RoomSum(c, p), 1)
		}
		b.add(mip.Eq(expr, float64(course.Lectures)).Named(fmt.Sprintf("lectures(%d)", c)))
	}

	multiplicity := float64(instance.Multiplicity(f.Phase))
	for p := range periods {
		total := mip.Expr{}
		for r, class := range f.Rooms {
			usage := mip.Sum(vars.X[p][r]...)
			total.AddExpr(usage, 1)
			b.add(mip.LessEq(usage, float64(class.Multiplicity)).Named(fmt.Sprintf("roomOccupancy(%d,%d)", p, r)))
		}
		b.add(mip.LessEq(total, multiplicity).Named(fmt.Sprintf("periodOccupancy(%d)", p)))
	}

	for u, curriculum := range instance.Curricula {
		for p := range periods {
			members := make([]mip.Var, 0, len(curriculum.Courses)*len(f.Rooms))
			for _, c := range curriculum.Courses {
				for r := range f.Rooms {
					members = append(members, vars.X[p][r][c])
				}
			}
			name := fmt.Sprintf("curriculum(%d,%d)", u, p)
			if f.Config.Features.SpecialOrderedSets {
				b.sos = append(b.sos, mip.SOS1{Name: name, Vars: members})
			} else {
				b.add(mip.LessEq(mip.Sum(members...), 1).Named(name))
			}
		}
	}

	for _, restriction := range instance.Restrictions {
		for r := range f.Rooms {
			b.add(mip.Eq(mip.Sum(vars.X[restriction.Period][r][restriction.Course]), 0).Named(fmt.Sprintf("unavailable(%d,%d,%d)", restriction.Period, r, restriction.Course)))
		}
	}
	return b, nil
}

func roomStabilityConstraints(f *Formulation) (block, error) {
	var b block
	features, vars := f.Config.Features, f.Vars
	periods := f.Instance.Periods()

	for c, course := range f.Instance.Courses {
		used := mip.Expr{}
		for r := range f.Rooms {
			y := vars.CourseRooms[c][r]
			usage := mip.Expr{}
			for p := range periods {
				x := vars.X[p][r][c]
				usage.Add(x, 1)
				link := mip.Sum(y)
				link.Add(x, -1)
				b.add(mip.GreaterEq(link, 0).Named(fmt.Sprintf("roomUsed(%d,%d,%d)", c, r, p)))
			}
			if !features.PreprocessingFriendly {
				tight := usage
				tight.Add(y, -1)
				b.add(mip.GreaterEq(tight, 0).Named(fmt.Sprintf("roomUnused(%d,%d)", c, r)))
			}
			if features.ZeroRoomStability {
				exact := usage
				exact.Add(y, -float64(course.Lectures))
				b.add(mip.Eq(exact, 0).Named(fmt.Sprintf("singleRoomUsage(%d,%d)", c, r)))
			}
			used.Add(y, 1)
		}
		if course.Lectures == 0 {
			continue
		}
		if features.ZeroRoomStability {
			b.add(mip.Eq(used, 1).Named(fmt.Sprintf("singleRoom(%d)", c)))
		} else if features.StaticImpliedBounds {
			b.add(mip.GreaterEq(used, 1).Named(fmt.Sprintf("someRoom(%d)", c)))
		}
	}
	return b, nil
}

func coursePeriodConstraints(f *Formulation) (block, error) {
	var b block
	vars := f.Vars
	if vars.CoursePeriods == nil {
		return b, nil
	}
	periods := f.Instance.Periods()

	for c, course := range f.Instance.Courses {
		b.add(mip.Eq(mip.Sum(vars.CoursePeriods[c]...), float64(course.Lectures)).Named(fmt.Sprintf("coursePeriodLectures(%d)", c)))
		for p := range periods {
			cp := vars.CoursePeriods[c][p]
			sync := mip.Sum(cp)
			sync.AddExpr(f.RoomSum(c, p), -1)
			b.add(mip.Eq(sync, 0).Named(fmt.Sprintf("coursePeriodSync(%d,%d)", c, p)))

			scaled := mip.Expr{}
			scaled.Add(cp, float64(course.Lectures)).AddExpr(f.RoomSum(c, p), -1)
			b.add(mip.GreaterEq(scaled, 0).Named(fmt.Sprintf("coursePeriodScaled(%d,%d)", c, p)))
		}
	}

	multiplicity := float64(f.Instance.Multiplicity(f.Phase))
	for p := range periods {
		total := mip.Expr{}
		for c := range f.Instance.Courses {
			total.Add(vars.CoursePeriods[c][p], 1)
		}
		b.add(mip.LessEq(total, multiplicity).Named(fmt.Sprintf("coursePeriodOccupancy(%d)", p)))
	}

	for u, curriculum := range f.Instance.Curricula {
		for p := range periods {
			members := make([]mip.Var, 0, len(curriculum.Courses))
			for _, c := range curriculum.Courses {
				members = append(members, vars.CoursePeriods[c][p])
			}
			b.add(mip.LessEq(mip.Sum(members...), 1).Named(fmt.Sprintf("coursePeriodCurriculum(%d,%d)", u, p)))
		}
	}

	if f.Config.Features.StaticCliqueCutsInDives && f.Graph != nil {
		for k, clique := range f.Graph.Cliques() {
			for p := range periods {
				members := make([]mip.Var, 0, len(clique))
				for _, c := range clique {
					members = append(members, vars.CoursePeriods[c][p])
				}
				name := fmt.Sprintf("clique(%d,%d)", k, p)
				if f.Config.Features.SpecialOrderedSets {
					b.sos = append(b.sos, mip.SOS1{Name: name, Vars: members})
				} else {
					b.add(mip.LessEq(mip.Sum(members...), 1).Named(name))
				}
			}
		}
	}
	return b, nil
}

func neighbourhoodConstraints(f *Formulation) (block, error) {
	var b block
	if f.Phase != model.FixPeriod && f.Phase != model.FixDay {
		return b, nil
	}
	instance, vars, neighbourhood := f.Instance, f.Vars, f.Neighbourhood
	validPair := func(pair model.CoursePeriod) error {
		if pair.Course < 0 || pair.Course >= len(instance.Courses) || pair.Period < 0 || pair.Period >= instance.Periods() {
			return fmt.Errorf("course %d at period %d is out of range", pair.Course, pair.Period)
		}
		return nil
	}

	for _, pair := range neighbourhood.FixPeriod {
		if err := validPair(pair); err != nil {
			return b, err
		}
		b.add(mip.Eq(f.RoomSum(pair.Course, pair.Period), 1).Named(fmt.Sprintf("fixPeriod(%d,%d)", pair.Course, pair.Period)))
		if vars.CoursePeriods != nil {
			b.add(mip.Eq(mip.Sum(vars.CoursePeriods[pair.Course][pair.Period]), 1))
		}
	}

	for _, triple := range neighbourhood.FixDay {
		if triple.Course < 0 || triple.Course >= len(instance.Courses) || triple.Day < 0 || triple.Day >= instance.Days || triple.Events < 0 {
			return b, fmt.Errorf("course %d on day %d with %d events is out of range", triple.Course, triple.Day, triple.Events)
		}
		b.add(mip.Eq(f.DaySum(triple.Course, triple.Day), float64(triple.Events)).Named(fmt.Sprintf("fixDay(%d,%d)", triple.Course, triple.Day)))
		if vars.CoursePeriods != nil {
			first, last := instance.DayPeriods(triple.Day)
			b.add(mip.Eq(mip.Sum(vars.CoursePeriods[triple.Course][first:last]...), float64(triple.Events)))
		}
	}

	for _, pair := range neighbourhood.PreprocessAway {
		if err := validPair(pair); err != nil {
			return b, err
		}
		for r := range f.Rooms {
			b.add(mip.Eq(mip.Sum(vars.X[pair.Period][r][pair.Course]), 0).Named(fmt.Sprintf("preprocessAway(%d,%d,%d)", pair.Course, pair.Period, r)))
		}
		if vars.CoursePeriods != nil {
			b.add(mip.Eq(mip.Sum(vars.CoursePeriods[pair.Course][pair.Period]), 0))
		}
	}
	return b, nil
}
