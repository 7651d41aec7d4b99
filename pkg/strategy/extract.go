package strategy

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/limaJavier/cctt/pkg/formulation"
	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
)

const integralityTolerance = 1e-4

// IntegralityError reports a parent solution that is not integral where it has to be.
type IntegralityError struct {
	Course int
	Period int
	Value  float64
}

func (err *IntegralityError) Error() string {
	return fmt.Sprintf("course %d takes %v rooms at period %d", err.Course, err.Value, err.Period)
}

func roundProperly(value float64) int {
	return int(math.Floor(value + 0.5))
}

// valueOf retrieves a variable and logs a warning when it is not available.
func valueOf(ctx mip.SearchContext, f *formulation.Formulation, v mip.Var, logger *slog.Logger) (float64, bool) {
	value, err := ctx.Value(v)
	if err != nil {
		name := "unknown"
		if f.Model.Has(v) {
			name = f.Model.VarInfo(v).Name
		}
		logger.Warn("cannot retrieve variable", slog.String("variable", name), slog.String("error", err.Error()))
		return 0, false
	}
	return value, true
}

// SumMissingCourseDays is the min days penalty of the search state, or the one carried by the neighbourhood.
func SumMissingCourseDays(f *formulation.Formulation, ctx mip.SearchContext, logger *slog.Logger) int {
	if f.Phase == model.FixDay || f.Phase == model.FixPeriod {
		return f.Neighbourhood.PenaltyMinCourseDays
	}
	sum := 0
	for _, violation := range f.Vars.MinDaysViolations {
		if value, ok := valueOf(ctx, f, violation, logger); ok {
			sum += roundProperly(value)
		}
	}
	return sum
}

// SumSingletonChecks counts isolated lectures, which FixPeriod takes from the neighbourhood.
func SumSingletonChecks(f *formulation.Formulation, ctx mip.SearchContext, logger *slog.Logger) int {
	if f.Phase == model.FixPeriod {
		return f.Neighbourhood.PenaltyCompactness
	}
	sum := 0
	for _, byDay := range f.Vars.SingletonChecks {
		for _, checks := range byDay {
			for _, check := range checks {
				if value, ok := valueOf(ctx, f, check, logger); ok {
					sum += roundProperly(value)
				}
			}
		}
	}
	return sum
}

func SumMissingSeats(f *formulation.Formulation, ctx mip.SearchContext, logger *slog.Logger) int {
	sum := 0
	for r, class := range f.Rooms {
		for c, course := range f.Instance.Courses {
			if course.Students <= class.Capacity {
				continue
			}
			for p := range f.Instance.Periods() {
				if value, ok := valueOf(ctx, f, f.Vars.X[p][r][c], logger); ok && roundProperly(value) == 1 {
					sum += course.Students - class.Capacity
				}
			}
		}
	}
	return sum
}

// SumExtraRoomsUsed counts room classes used by a course beyond its first one.
func SumExtraRoomsUsed(f *formulation.Formulation, ctx mip.SearchContext, logger *slog.Logger) int {
	sum := 0
	for c, course := range f.Instance.Courses {
		if course.Lectures > 0 {
			sum--
		}
		for _, courseRoom := range f.Vars.CourseRooms[c] {
			if value, ok := valueOf(ctx, f, courseRoom, logger); ok {
				sum += roundProperly(value)
			}
		}
	}
	return sum
}

func snapshot(f *formulation.Formulation, ctx mip.SearchContext, phase model.Phase, logger *slog.Logger) model.Neighbourhood {
	next := model.NewNeighbourhood(phase)
	next.Cost = ctx.ObjectiveValue()
	next.LowerBound = ctx.BestBound()
	next.PenaltyMinCourseDays = SumMissingCourseDays(f, ctx, logger)
	next.PenaltyCompactness = SumSingletonChecks(f, ctx, logger)
	return next
}

// ExtractFixPeriod fixes every lecture of the search state to its period and removes every other course period pair.
// Pairs whose room sum is not 0 or 1 are left out and reported through the returned error, made of *IntegralityError.
func ExtractFixPeriod(f *formulation.Formulation, ctx mip.SearchContext, logger *slog.Logger) (model.Neighbourhood, error) {
	if logger == nil {
		logger = slog.Default()
	}
	next := snapshot(f, ctx, model.FixPeriod, logger)

	errs := make([]error, 0)
	for c := range f.Instance.Courses {
		for p := range f.Instance.Periods() {
			value, err := mip.ExprValue(ctx, f.RoomSum(c, p))
			if err != nil {
				logger.Warn("cannot retrieve room sum", slog.Int("course", c), slog.Int("period", p), slog.String("error", err.Error()))
				continue
			}
			rounded := roundProperly(value)
			if math.Abs(value-float64(rounded)) > integralityTolerance || (rounded != 0 && rounded != 1) {
				errs = append(errs, &IntegralityError{Course: c, Period: p, Value: value})
				continue
			}
			if rounded == 1 {
				next.FixPeriod = append(next.FixPeriod, model.CoursePeriod{Course: c, Period: p})
			} else {
				next.PreprocessAway = append(next.PreprocessAway, model.CoursePeriod{Course: c, Period: p})
			}
		}
	}
	return next, errors.Join(errs...)
}

// ExtractFixDay keeps the number of lectures of every course and day, and removes every period of days a course does not use.
func ExtractFixDay(f *formulation.Formulation, ctx mip.SearchContext, logger *slog.Logger) model.Neighbourhood {
	if logger == nil {
		logger = slog.Default()
	}
	next := snapshot(f, ctx, model.FixDay, logger)

	for c := range f.Instance.Courses {
		for d := range f.Instance.Days {
			first, end := f.Instance.DayPeriods(d)
			events, ok := 0, true
			for p := first; p < end; p++ {
				value, err := mip.ExprValue(ctx, f.RoomSum(c, p))
				if err != nil {
					logger.Warn("cannot retrieve room sum", slog.Int("course", c), slog.Int("day", d), slog.String("error", err.Error()))
					ok = false
					continue
				}
				events += roundProperly(value)
			}

			if events > 0 {
				next.FixDay = append(next.FixDay, model.CourseDay{Course: c, Day: d, Events: events})
			} else if ok {
				for p := first; p < end; p++ {
					next.PreprocessAway = append(next.PreprocessAway, model.CoursePeriod{Course: c, Period: p})
				}
			}
		}
	}
	return next
}
