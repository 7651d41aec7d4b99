package strategy

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/limaJavier/cctt/pkg/config"
	"github.com/limaJavier/cctt/pkg/conflicts"
	"github.com/limaJavier/cctt/pkg/formulation"
	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
	"github.com/limaJavier/cctt/pkg/report"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

// threeCourses spans two days of three periods and two rooms.
func threeCourses(t *testing.T) *model.Instance {
	instance, err := model.ProcessRawInstance(model.RawInstance{
		Name: "three", Days: 2, PeriodsPerDay: 3,
		Courses: []model.RawCourse{
			{Name: "a", Teacher: "ta", Lectures: 2, MinDays: 2, Students: 30},
			{Name: "b", Teacher: "tb", Lectures: 2, MinDays: 2, Students: 15},
			{Name: "c", Teacher: "tc", Lectures: 1, MinDays: 1, Students: 40},
		},
		Rooms:        []model.Room{{Name: "big", Capacity: 35}, {Name: "small", Capacity: 20}},
		Curricula:    []model.RawCurriculum{{Name: "q", Courses: []string{"a", "b"}}},
		Restrictions: []model.RawRestriction{{Course: "c", Day: 1, Period: 2}},
	})
	require.NoError(t, err)
	return instance
}

// roomLectures uses one class per room: big is class 0 and small is class 1.
var roomLectures = []formulation.Lecture{
	{Course: 0, Period: 0, Class: 0},
	{Course: 0, Period: 3, Class: 0},
	{Course: 1, Period: 1, Class: 1},
	{Course: 1, Period: 4, Class: 0},
	{Course: 2, Period: 0, Class: 1},
}

// surfaceLectures is the same timetable over the surface classes: small is class 0 and big is class 1.
var surfaceLectures = []formulation.Lecture{
	{Course: 0, Period: 0, Class: 1},
	{Course: 0, Period: 3, Class: 1},
	{Course: 1, Period: 1, Class: 0},
	{Course: 1, Period: 4, Class: 1},
	{Course: 2, Period: 0, Class: 0},
}

type fakeClock struct {
	now time.Time
}

func (clock *fakeClock) Now() time.Time {
	return clock.now
}

type fakeSolver struct {
	mutex  sync.Mutex
	calls  map[string]int
	status mip.Status
}

func newFakeSolver(status mip.Status) *fakeSolver {
	return &fakeSolver{calls: make(map[string]int), status: status}
}

func (solver *fakeSolver) Solve(ctx context.Context, m *mip.Model, params mip.Params, callbacks mip.Callbacks) (mip.Solution, error) {
	solver.mutex.Lock()
	defer solver.mutex.Unlock()
	solver.calls[m.Name]++
	return mip.Solution{Status: solver.status}, nil
}

func (solver *fakeSolver) factory() SolverFactory {
	return func() (mip.Solver, error) { return solver, nil }
}

type panickingSolver struct{}

func (panickingSolver) Solve(context.Context, *mip.Model, mip.Params, mip.Callbacks) (mip.Solution, error) {
	panic("engine crashed")
}

type fakeRecorder struct {
	neighbourhoods []report.NeighbourhoodRecord
	solutions      []report.SolutionRecord
	bounds         []report.BoundRecord
}

func (recorder *fakeRecorder) RecordNeighbourhood(record report.NeighbourhoodRecord) error {
	recorder.neighbourhoods = append(recorder.neighbourhoods, record)
	return nil
}

func (recorder *fakeRecorder) RecordSolution(record report.SolutionRecord) error {
	recorder.solutions = append(recorder.solutions, record)
	return nil
}

func (recorder *fakeRecorder) RecordBound(record report.BoundRecord) error {
	recorder.bounds = append(recorder.bounds, record)
	return nil
}

func graphOf(instance *model.Instance) *conflicts.Graph {
	graph := conflicts.NewGraph(nil)
	graph.Build(instance)
	graph.GenerateCliques()
	return graph
}

func build(t *testing.T, instance *model.Instance, neighbourhood model.Neighbourhood, cfg *config.Config) *formulation.Formulation {
	f, err := formulation.New(instance, graphOf(instance), neighbourhood, cfg, nil)
	require.NoError(t, err)
	return f
}

// incumbent completes lectures into a search state of f.
func incumbent(t *testing.T, f *formulation.Formulation, lectures []formulation.Lecture) (*mip.StaticContext, []float64) {
	values, err := f.ValuesFromAssignment(lectures)
	require.NoError(t, err)
	require.NoError(t, f.Model.Check(values, tolerance))
	objective := f.Model.ObjectiveValue(values)
	return mip.NewStaticContext(values, objective, objective, 1), values
}

func newDiver(instance *model.Instance, cfg *config.Config, factory SolverFactory, clock config.Clock) *Diver {
	return &Diver{
		Instance:  instance,
		Graph:     graphOf(instance),
		Config:    cfg,
		NewSolver: factory,
		Bounds:    NewUpperBounds(),
		Stopwatch: config.NewStopwatch(clock),
	}
}

func TestExtractFixPeriod(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		//** Arrange
		instance := threeCourses(t)
		cfg := config.Default()
		monolithic := build(t, instance, model.NewNeighbourhood(model.Monolithic), &cfg)
		ctx, _ := incumbent(t, monolithic, roomLectures)

		//** Act
		next, err := ExtractFixPeriod(monolithic, ctx, nil)
		require.NoError(t, err)
		fixPeriod := build(t, instance, next, &cfg)
		values, err := fixPeriod.ValuesFromAssignment(roomLectures)
		require.NoError(t, err)

		//** Assert
		assert.Equal(t, model.FixPeriod, next.Phase)
		assert.Len(t, next.FixPeriod, len(roomLectures))
		assert.Len(t, next.PreprocessAway, len(instance.Courses)*instance.Periods()-len(roomLectures))
		assert.Zero(t, next.PenaltyMinCourseDays)
		assert.Zero(t, next.PenaltyCompactness)
		assert.NoError(t, fixPeriod.Model.Check(values, tolerance))

		lectures, err := fixPeriod.LecturesFrom(mip.NewStaticContext(values, 0, 0, 0))
		require.NoError(t, err)
		assert.ElementsMatch(t, roomLectures, lectures)
	})

	t.Run("Fractional parent", func(t *testing.T) {
		//** Arrange
		instance := threeCourses(t)
		cfg := config.Default()
		monolithic := build(t, instance, model.NewNeighbourhood(model.Monolithic), &cfg)
		_, values := incumbent(t, monolithic, roomLectures)
		values[monolithic.Vars.X[0][0][0]] = 0.5

		//** Act
		next, err := ExtractFixPeriod(monolithic, mip.NewStaticContext(values, 0, 0, 0), nil)

		//** Assert
		var integrality *IntegralityError
		require.ErrorAs(t, err, &integrality)
		assert.Equal(t, IntegralityError{Course: 0, Period: 0, Value: 0.5}, *integrality)
		assert.NotContains(t, next.FixPeriod, model.CoursePeriod{Course: 0, Period: 0})
		assert.NotContains(t, next.PreprocessAway, model.CoursePeriod{Course: 0, Period: 0})
		assert.Len(t, next.FixPeriod, len(roomLectures)-1)
	})
}

func TestExtractFixDay(t *testing.T) {
	//** Arrange
	instance := threeCourses(t)
	cfg := config.Default()
	surface := build(t, instance, model.NewNeighbourhood(model.Surface), &cfg)
	ctx, _ := incumbent(t, surface, surfaceLectures)

	//** Act
	next := ExtractFixDay(surface, ctx, nil)

	//** Assert
	assert.ElementsMatch(t, []model.CourseDay{
		{Course: 0, Day: 0, Events: 1},
		{Course: 0, Day: 1, Events: 1},
		{Course: 1, Day: 0, Events: 1},
		{Course: 1, Day: 1, Events: 1},
		{Course: 2, Day: 0, Events: 1},
	}, next.FixDay)
	// Course c has no lecture on the second day
	assert.ElementsMatch(t, []model.CoursePeriod{
		{Course: 2, Period: 3},
		{Course: 2, Period: 4},
		{Course: 2, Period: 5},
	}, next.PreprocessAway)
	assert.Equal(t, ctx.ObjectiveValue(), next.Cost)
}

func TestPenaltySums(t *testing.T) {
	instance := threeCourses(t)
	cfg := config.Default()
	monolithic := build(t, instance, model.NewNeighbourhood(model.Monolithic), &cfg)
	// Both courses of the curriculum keep their two lectures on the first day
	crowded := []formulation.Lecture{
		{Course: 0, Period: 0, Class: 0},
		{Course: 0, Period: 1, Class: 0},
		{Course: 1, Period: 3, Class: 1},
		{Course: 1, Period: 4, Class: 1},
		{Course: 2, Period: 2, Class: 0},
	}

	t.Run("Complete state", func(t *testing.T) {
		//** Arrange
		ctx, _ := incumbent(t, monolithic, crowded)

		//** Act
		missingDays := SumMissingCourseDays(monolithic, ctx, nil)
		missingSeats := SumMissingSeats(monolithic, ctx, nil)
		extraRooms := SumExtraRoomsUsed(monolithic, ctx, nil)

		//** Assert
		assert.Equal(t, 2, missingDays)
		assert.Equal(t, 5, missingSeats)
		assert.Equal(t, 0, extraRooms)
	})

	t.Run("Missing variables are skipped", func(t *testing.T) {
		//** Arrange
		_, values := incumbent(t, monolithic, crowded)
		assignments := len(monolithic.Vars.X) * len(monolithic.Vars.X[0]) * len(monolithic.Vars.X[0][0])
		ctx := mip.NewStaticContext(values[:assignments], 0, 0, 0)
		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, nil))

		//** Act
		missingDays := SumMissingCourseDays(monolithic, ctx, logger)
		next, err := ExtractFixPeriod(monolithic, ctx, logger)

		//** Assert
		assert.Zero(t, missingDays)
		assert.Contains(t, logs.String(), "cannot retrieve variable")
		assert.NoError(t, err)
		assert.Len(t, next.FixPeriod, len(crowded))
	})
}

func TestUpperBounds(t *testing.T) {
	//** Arrange
	bounds := NewUpperBounds()

	//** Act
	first := bounds.Add(model.FixPeriod, 10)
	worse := bounds.Add(model.FixPeriod, 12)
	day := bounds.Add(model.FixDay, 8)

	//** Assert
	assert.True(t, first)
	assert.False(t, worse)
	assert.True(t, day)
	assert.Equal(t, 9.5, *bounds.Cutoff(model.FixPeriod))
	assert.Equal(t, 7.5, *bounds.Cutoff(model.FixDay))
	assert.Nil(t, bounds.Cutoff(model.Surface))

	t.Run("FixPeriod tightens FixDay", func(t *testing.T) {
		//** Arrange
		bounds := NewUpperBounds()
		bounds.Add(model.FixDay, 20)

		//** Act
		bounds.Add(model.FixPeriod, 15)

		//** Assert
		bound, ok := bounds.Bound(model.FixDay)
		assert.True(t, ok)
		assert.Equal(t, 15, bound)
	})
}

func TestQueue(t *testing.T) {
	//** Arrange
	var queue Queue
	for cost := range 3 {
		next := model.NewNeighbourhood(model.FixDay)
		next.Cost = float64(cost)
		queue.Push(next)
	}

	//** Act
	popped := make([]float64, 0)
	for {
		next, ok := queue.Pop()
		if !ok {
			break
		}
		popped = append(popped, next.Cost)
	}

	//** Assert
	assert.Equal(t, []float64{2, 1, 0}, popped)
	assert.Zero(t, queue.Len())
}

func TestContract(t *testing.T) {
	t.Run("Drains the latest neighbourhoods", func(t *testing.T) {
		//** Arrange
		instance := threeCourses(t)
		cfg := config.Default()
		cfg.FixPeriodDivesFromSurface = 2
		cfg.FixDayDivesFromSurface = 1
		solver := newFakeSolver(mip.Infeasible)
		recorder := &fakeRecorder{}
		diver := newDiver(instance, &cfg, solver.factory(), &fakeClock{now: time.Unix(0, 0)})
		diver.Recorder = recorder
		surface := build(t, instance, model.NewNeighbourhood(model.Surface), &cfg)
		contract := NewContract(surface, diver)
		ctx, _ := incumbent(t, surface, surfaceLectures)

		//** Act
		for range 3 {
			contract.OnIncumbent(ctx)
		}
		contract.FinishOff(context.Background())

		//** Assert
		assert.Equal(t, 2, solver.calls["three-fixperiod"])
		assert.Equal(t, 1, solver.calls["three-fixday"])
		assert.Equal(t, 1, contract.fixPeriod.Len())
		assert.Equal(t, 2, contract.fixDay.Len())
		require.Len(t, recorder.neighbourhoods, 6)
		phases := lo.CountValuesBy(recorder.neighbourhoods, func(record report.NeighbourhoodRecord) model.Phase {
			return record.Neighbourhood.Phase
		})
		assert.Equal(t, map[model.Phase]int{model.FixDay: 3, model.FixPeriod: 3}, phases)
	})

	t.Run("Time limit", func(t *testing.T) {
		//** Arrange
		instance := threeCourses(t)
		cfg := config.Default()
		solver := newFakeSolver(mip.Infeasible)
		clock := &fakeClock{now: time.Unix(0, 0)}
		diver := newDiver(instance, &cfg, solver.factory(), clock)
		surface := build(t, instance, model.NewNeighbourhood(model.Surface), &cfg)
		contract := NewContract(surface, diver)
		ctx, _ := incumbent(t, surface, surfaceLectures)
		contract.OnIncumbent(ctx)

		//** Act
		clock.now = clock.now.Add(cfg.ContractTimeLimit + time.Second)
		contract.FinishOff(context.Background())

		//** Assert
		assert.Empty(t, solver.calls)
	})

	t.Run("Failed dives do not stop the others", func(t *testing.T) {
		//** Arrange
		instance := threeCourses(t)
		cfg := config.Default()
		cfg.FixDayDivesFromSurface = 0
		solver := newFakeSolver(mip.Infeasible)
		created := 0
		factory := func() (mip.Solver, error) {
			created++
			if created == 1 {
				return panickingSolver{}, nil
			}
			return solver, nil
		}
		diver := newDiver(instance, &cfg, factory, &fakeClock{now: time.Unix(0, 0)})
		surface := build(t, instance, model.NewNeighbourhood(model.Surface), &cfg)
		contract := NewContract(surface, diver)
		ctx, _ := incumbent(t, surface, surfaceLectures)
		contract.OnIncumbent(ctx)
		contract.OnIncumbent(ctx)

		//** Act & Assert
		assert.NotPanics(t, func() { contract.FinishOff(context.Background()) })
		assert.Equal(t, 1, solver.calls["three-fixperiod"])
		assert.Zero(t, contract.fixPeriod.Len())
	})
}

func TestDive(t *testing.T) {
	t.Run("Panics become errors", func(t *testing.T) {
		//** Arrange
		instance := threeCourses(t)
		cfg := config.Default()
		factory := func() (mip.Solver, error) { return panickingSolver{}, nil }
		diver := newDiver(instance, &cfg, factory, nil)

		//** Act
		err := diver.Dive(context.Background(), model.NewNeighbourhood(model.FixPeriod), model.Surface)

		//** Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
	})

	t.Run("Solver creation fails", func(t *testing.T) {
		//** Arrange
		instance := threeCourses(t)
		cfg := config.Default()
		errMissing := errors.New("missing binary")
		factory := func() (mip.Solver, error) { return nil, errMissing }
		diver := newDiver(instance, &cfg, factory, nil)

		//** Act
		err := diver.Dive(context.Background(), model.NewNeighbourhood(model.FixDay), model.Surface)

		//** Assert
		assert.ErrorIs(t, err, errMissing)
	})

	t.Run("Cutoff follows the bounds", func(t *testing.T) {
		//** Arrange
		instance := threeCourses(t)
		cfg := config.Default()
		cfg.Phases.FixPeriod.NodeLimit = 50
		diver := newDiver(instance, &cfg, nil, nil)
		diver.Bounds.Add(model.FixPeriod, 7)

		//** Act
		params := diver.Params(model.FixPeriod)

		//** Assert
		assert.Equal(t, 50, params.NodeLimit)
		require.NotNil(t, params.Cutoff)
		assert.Equal(t, 6.5, *params.Cutoff)
		assert.Nil(t, diver.Params(model.Surface).Cutoff)
	})
}

func TestAnytime(t *testing.T) {
	//** Arrange
	instance := threeCourses(t)
	cfg := config.Default()
	cfg.Phases.FixPeriod.AnytimeOnset = 10 * time.Second
	cfg.Phases.FixDay.AnytimeOnset = -1
	solver := newFakeSolver(mip.Infeasible)
	start := time.Unix(0, 0)
	clock := &fakeClock{now: start}
	diver := newDiver(instance, &cfg, solver.factory(), clock)
	surface := build(t, instance, model.NewNeighbourhood(model.Surface), &cfg)
	anytime := NewAnytime(context.Background(), surface, diver)
	ctx, _ := incumbent(t, surface, surfaceLectures)

	//** Act
	clock.now = start.Add(5 * time.Second)
	anytime.OnIncumbent(ctx)
	early := solver.calls["three-fixperiod"]
	clock.now = start.Add(15 * time.Second)
	anytime.OnIncumbent(ctx)

	//** Assert
	assert.Zero(t, early)
	assert.Equal(t, 1, solver.calls["three-fixperiod"])
	assert.Zero(t, solver.calls["three-fixday"])
}

func TestSolutionSaving(t *testing.T) {
	//** Arrange
	instance := threeCourses(t)
	cfg := config.Default()
	recorder := &fakeRecorder{}
	diver := newDiver(instance, &cfg, nil, nil)
	diver.Recorder = recorder
	monolithic := build(t, instance, model.NewNeighbourhood(model.Monolithic), &cfg)
	parent, _ := incumbent(t, monolithic, roomLectures)
	next, err := ExtractFixPeriod(monolithic, parent, nil)
	require.NoError(t, err)
	fixPeriod := build(t, instance, next, &cfg)
	ctx, _ := incumbent(t, fixPeriod, roomLectures)

	//** Act
	NewSolutionSaving(fixPeriod, diver).OnIncumbent(ctx)

	//** Assert
	require.Len(t, recorder.solutions, 1)
	solution := recorder.solutions[0]
	// Course c overflows the small room by 20 seats and course b uses both rooms
	assert.Equal(t, report.Penalties{RoomCapacity: 20, RoomStability: 1}, solution.Penalties)
	assert.Equal(t, 21, solution.Cost)
	assert.Equal(t, model.FixPeriod, solution.Phase)
	assert.Len(t, solution.Sessions, len(roomLectures))

	bound, ok := diver.Bounds.Bound(model.FixDay)
	assert.True(t, ok)
	assert.Equal(t, 21, bound)
	best, ok := diver.BestCost()
	assert.True(t, ok)
	assert.Equal(t, 21, best)
}

func TestBoundSaver(t *testing.T) {
	//** Arrange
	instance := threeCourses(t)
	cfg := config.Default()
	recorder := &fakeRecorder{}
	diver := newDiver(instance, &cfg, nil, nil)
	diver.Recorder = recorder
	saver := NewBoundSaver(diver, "globalLB")

	//** Act
	for _, bound := range []float64{0, 0.005, 1, 1} {
		saver.OnNodeExplored(mip.NewStaticContext(nil, 0, bound, 0))
	}

	//** Assert
	require.Len(t, recorder.bounds, 2)
	assert.Equal(t, 0.0, recorder.bounds[0].Value)
	assert.Equal(t, 1.0, recorder.bounds[1].Value)
	assert.Equal(t, "globalLB", recorder.bounds[1].Tag)
}
