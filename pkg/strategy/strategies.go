package strategy

import (
	"context"
	"log/slog"
	"math"

	"github.com/limaJavier/cctt/pkg/formulation"
	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
	"github.com/limaJavier/cctt/pkg/report"
)

// Strategy observes the incumbents of one search and may keep working once the search is over.
type Strategy interface {
	mip.IncumbentObserver
	FinishOff(ctx context.Context)
}

// extractFixPeriod logs the pairs a non integral parent made it skip.
func extractFixPeriod(f *formulation.Formulation, ctx mip.SearchContext, logger *slog.Logger) model.Neighbourhood {
	next, err := ExtractFixPeriod(f, ctx, logger)
	if err != nil {
		logger.Error("parent solution is not integral", slog.String("phase", f.Phase.String()), slog.String("error", err.Error()))
	}
	return next
}

// Anytime dives from every incumbent of the search once the onset of the target phase has passed.
type Anytime struct {
	ctx         context.Context
	formulation *formulation.Formulation
	diver       *Diver
}

func NewAnytime(ctx context.Context, f *formulation.Formulation, diver *Diver) *Anytime {
	return &Anytime{ctx: ctx, formulation: f, diver: diver}
}

func (anytime *Anytime) due(phase model.Phase) bool {
	onset := anytime.diver.Config.Phase(phase).AnytimeOnset
	return onset >= 0 && anytime.diver.elapsed() > onset
}

func (anytime *Anytime) OnIncumbent(ctx mip.SearchContext) {
	diver, f, logger := anytime.diver, anytime.formulation, anytime.diver.logger()
	diver.Metrics.Incumbent(f.Phase.String())

	if anytime.due(model.FixPeriod) {
		next := extractFixPeriod(f, ctx, logger)
		diver.RecordNeighbourhood(next)
		_ = diver.Dive(anytime.ctx, next, f.Phase)
	}
	if anytime.due(model.FixDay) {
		next := ExtractFixDay(f, ctx, logger)
		diver.RecordNeighbourhood(next)
		_ = diver.Dive(anytime.ctx, next, f.Phase)
	}
}

func (anytime *Anytime) FinishOff(context.Context) {}

// Contract queues a neighbourhood of each kind per incumbent and dives into the latest ones after the search.
type Contract struct {
	formulation *formulation.Formulation
	diver       *Diver
	fixDay      Queue
	fixPeriod   Queue
}

func NewContract(f *formulation.Formulation, diver *Diver) *Contract {
	return &Contract{formulation: f, diver: diver}
}

func (contract *Contract) OnIncumbent(ctx mip.SearchContext) {
	diver, f, logger := contract.diver, contract.formulation, contract.diver.logger()
	diver.Metrics.Incumbent(f.Phase.String())

	fixDay := ExtractFixDay(f, ctx, logger)
	fixPeriod := extractFixPeriod(f, ctx, logger)
	contract.fixDay.Push(fixDay)
	contract.fixPeriod.Push(fixPeriod)
	diver.RecordNeighbourhood(fixDay)
	diver.RecordNeighbourhood(fixPeriod)
}

// FinishOff drains both queues, FixPeriod first, within the dive counts and the contract time limit.
func (contract *Contract) FinishOff(ctx context.Context) {
	cfg := contract.diver.Config
	contract.drain(ctx, &contract.fixPeriod, cfg.FixPeriodDivesFromSurface)
	contract.drain(ctx, &contract.fixDay, cfg.FixDayDivesFromSurface)
}

func (contract *Contract) drain(ctx context.Context, queue *Queue, count int) {
	diver := contract.diver
	for dives := 0; dives < count && diver.elapsed() < diver.Config.ContractTimeLimit; dives++ {
		next, ok := queue.Pop()
		if !ok {
			return
		}
		_ = diver.Dive(ctx, next, contract.formulation.Phase)
	}
}

// SolutionSaving records every incumbent as a timetable.
type SolutionSaving struct {
	formulation *formulation.Formulation
	diver       *Diver
}

func NewSolutionSaving(f *formulation.Formulation, diver *Diver) *SolutionSaving {
	return &SolutionSaving{formulation: f, diver: diver}
}

func (saving *SolutionSaving) OnIncumbent(ctx mip.SearchContext) {
	diver, f, logger := saving.diver, saving.formulation, saving.diver.logger()
	diver.Metrics.Incumbent(f.Phase.String())

	penalties := report.Penalties{
		RoomCapacity:  SumMissingSeats(f, ctx, logger),
		MinCourseDays: SumMissingCourseDays(f, ctx, logger),
		Compactness:   SumSingletonChecks(f, ctx, logger),
		RoomStability: SumExtraRoomsUsed(f, ctx, logger),
	}
	cost := penalties.Total(f.Weights)

	if diver.Bounds.Add(f.Phase, cost) {
		diver.Metrics.SolutionCost(f.Phase.String(), cost)
	}
	diver.saved(cost)
	logger.Info("solution found", slog.String("phase", f.Phase.String()), slog.Int("cost", cost), slog.Float64("objective", ctx.ObjectiveValue()))

	if !diver.Config.Features.SolutionLogging {
		return
	}
	record := report.SolutionRecord{
		Phase:           f.Phase,
		SubmodelCost:    ctx.ObjectiveValue(),
		Cost:            cost,
		NeighbourhoodLB: ctx.BestBound(),
		Penalties:       penalties,
		Discovered:      diver.elapsed(),
	}
	lectures, err := f.LecturesFrom(ctx)
	if err == nil {
		record.Sessions, err = report.AssignRooms(f.Instance, f.Phase, lectures)
	}
	if err != nil {
		logger.Warn("solution saved without sessions", slog.String("error", err.Error()))
	}
	diver.record(func(recorder report.Recorder) error { return recorder.RecordSolution(record) })
}

func (saving *SolutionSaving) FinishOff(context.Context) {}

// SolutionPolishing tightens the FixDay bound with every incumbent and dives into its FixPeriod neighbourhoods afterwards.
type SolutionPolishing struct {
	formulation *formulation.Formulation
	diver       *Diver
	fixPeriod   Queue
}

func NewSolutionPolishing(f *formulation.Formulation, diver *Diver) *SolutionPolishing {
	return &SolutionPolishing{formulation: f, diver: diver}
}

func (polishing *SolutionPolishing) OnIncumbent(ctx mip.SearchContext) {
	diver, f := polishing.diver, polishing.formulation
	diver.Metrics.Incumbent(f.Phase.String())
	diver.Bounds.Add(f.Phase, int(math.Round(ctx.ObjectiveValue())))
	polishing.fixPeriod.Push(extractFixPeriod(f, ctx, diver.logger()))
}

func (polishing *SolutionPolishing) FinishOff(ctx context.Context) {
	diver := polishing.diver
	for dives := 0; dives < diver.Config.FixPeriodDivesFromFixDay; dives++ {
		next, ok := polishing.fixPeriod.Pop()
		if !ok {
			return
		}
		_ = diver.Dive(ctx, next, polishing.formulation.Phase)
	}
}

// BoundSaver records the best bound of the search whenever it moves by more than 0.01.
type BoundSaver struct {
	diver    *Diver
	tag      string
	previous float64
}

func NewBoundSaver(diver *Diver, tag string) *BoundSaver {
	return &BoundSaver{diver: diver, tag: tag, previous: -1}
}

func (saver *BoundSaver) OnNodeExplored(ctx mip.SearchContext) {
	bound := ctx.BestBound()
	if math.IsInf(bound, 0) || math.Abs(bound-saver.previous) <= 0.01 {
		return
	}
	saver.previous = bound
	saver.diver.record(func(recorder report.Recorder) error {
		return recorder.RecordBound(report.BoundRecord{Tag: saver.tag, Value: bound, Discovered: saver.diver.elapsed()})
	})
}
