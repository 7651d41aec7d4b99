package formulation

import (
	"fmt"
	"math"

	"github.com/limaJavier/cctt/pkg/mip"
)

// Lecture places one lecture of a course in a room class at an absolute period.
type Lecture struct {
	Course int
	Period int
	Class  int
}

// ValuesFromAssignment completes a value for every variable of the model from the lectures, each auxiliary at its tightest value.
func (f *Formulation) ValuesFromAssignment(lectures []Lecture) ([]float64, error) {
	instance, vars := f.Instance, f.Vars
	values := make([]float64, f.Model.NumVars())

	for _, lecture := range lectures {
		if lecture.Course < 0 || lecture.Course >= len(instance.Courses) || lecture.Period < 0 || lecture.Period >= instance.Periods() || lecture.Class < 0 || lecture.Class >= len(f.Rooms) {
			return nil, fmt.Errorf("lecture %+v is out of range", lecture)
		}
		x := vars.X[lecture.Period][lecture.Class][lecture.Course]
		if values[x] != 0 {
			return nil, fmt.Errorf("lecture %+v is assigned twice", lecture)
		}
		values[x] = 1
		values[vars.CourseRooms[lecture.Course][lecture.Class]] = 1
		if vars.CoursePeriods != nil {
			values[vars.CoursePeriods[lecture.Course][lecture.Period]] = 1
		}
		if vars.CourseDays != nil {
			values[vars.CourseDays[lecture.Course][instance.DayOf(lecture.Period)]] = 1
		}
	}

	for c, violation := range vars.MinDaysViolations {
		days := mip.Sum(vars.CourseDays[c]...).Value(values)
		values[violation] = math.Max(0, float64(requiredDays(instance.Courses[c]))-days)
	}

	for _, relation := range f.singletonRelations() {
		values[relation.check] = math.Max(values[relation.check], math.Max(0, relation.expr.Value(values)))
	}

	penalties := map[mip.Var]func() mip.Expr{
		vars.PenaltyRoomStability:    f.roomStabilityPenalty,
		vars.PenaltyRoomCapacity:     f.roomCapacityPenalty,
		vars.PenaltyPeriodSingletons: f.singletonPenalty,
		vars.PenaltyPeriodSpread:     f.spreadPenalty,
	}
	for accumulator, penalty := range penalties {
		if accumulator != mip.NoVar {
			values[accumulator] = penalty().Value(values)
		}
	}
	return values, nil
}

// LecturesFrom rounds the assignment variables of an integral search state.
func (f *Formulation) LecturesFrom(ctx mip.SearchContext) ([]Lecture, error) {
	lectures := make([]Lecture, 0)
	for p, byRoom := range f.Vars.X {
		for r, byCourse := range byRoom {
			for c, x := range byCourse {
				value, err := ctx.Value(x)
				if err != nil {
					return nil, err
				}
				if math.Round(value) == 1 {
					lectures = append(lectures, Lecture{Course: c, Period: p, Class: r})
				}
			}
		}
	}
	return lectures, nil
}
