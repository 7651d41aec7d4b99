package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/limaJavier/cctt/pkg/config"
	"github.com/limaJavier/cctt/pkg/conflicts"
	"github.com/limaJavier/cctt/pkg/cuts"
	"github.com/limaJavier/cctt/pkg/formulation"
	"github.com/limaJavier/cctt/pkg/metrics"
	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
	"github.com/limaJavier/cctt/pkg/report"
)

const NoNeighbourhoodMessage = "Not a single neighbourhood has been found. Please check the time limit and feasibility of the instance."

type Options struct {
	Instance     *model.Instance
	Config       *config.Config
	NewSolver    SolverFactory
	Recorder     report.Recorder // Optional
	Metrics      *metrics.Metrics
	Clock        config.Clock
	Logger       *slog.Logger
	OutputPrefix string
	// Monolithic solves the whole problem at once and saves its incumbents instead of diving
	Monolithic bool
	RunId      string
}

type Result struct {
	RunId     string
	Phase     model.Phase
	Status    mip.Status
	Objective float64
	BestBound float64
	BestCost  *int // Cheapest timetable saved by any search
	Elapsed   time.Duration
}

// Found reports whether the top search produced a solution to extract neighbourhoods from.
func (result Result) Found() bool {
	return result.Status.HasSolution()
}

// Run solves the top phase with the configured strategy, then lets the strategy finish its dives.
func Run(ctx context.Context, options Options) (result Result, err error) {
	cfg := options.Config
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	result.RunId = options.RunId
	if result.RunId == "" {
		result.RunId = uuid.NewString()
	}
	logger = logger.With(slog.String("run", result.RunId))
	stopwatch := config.NewStopwatch(options.Clock)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("solve aborted: %v", r)
			logger.Error("solve aborted", slog.String("error", err.Error()))
		}
		result.Elapsed = stopwatch.Elapsed()
	}()

	graph := conflicts.NewGraph(logger)
	graph.Build(options.Instance)
	graph.GenerateCliques()

	result.Phase = model.Surface
	if options.Monolithic {
		result.Phase = model.Monolithic
	}
	f, err := formulation.New(options.Instance, graph, model.NewNeighbourhood(result.Phase), cfg, logger)
	if err != nil {
		return result, fmt.Errorf("building %v model: %w", result.Phase, err)
	}

	diver := &Diver{
		Instance:     options.Instance,
		Graph:        graph,
		Config:       cfg,
		NewSolver:    options.NewSolver,
		Bounds:       NewUpperBounds(),
		Recorder:     options.Recorder,
		Metrics:      options.Metrics,
		Stopwatch:    stopwatch,
		Logger:       logger,
		OutputPrefix: options.OutputPrefix,
	}
	diver.ExportLP(f.Model, result.Phase.String())

	var strategy Strategy
	switch {
	case options.Monolithic:
		strategy = NewSolutionSaving(f, diver)
	case cfg.Strategy == config.StrategyAnytime:
		strategy = NewAnytime(ctx, f, diver)
	default:
		strategy = NewContract(f, diver)
	}

	callbacks := mip.Callbacks{Incumbent: strategy}
	if cfg.Features.LowerBoundLogging {
		callbacks.Nodes = NewBoundSaver(diver, "globalLB")
	}
	if cfg.Features.DynamicCutsAtSurface {
		callbacks.Cuts = cuts.NewSeparator(f, logger, options.Metrics)
	}

	solver, err := options.NewSolver()
	if err != nil {
		return result, fmt.Errorf("creating solver: %w", err)
	}

	logger.Info("solving", slog.String("phase", result.Phase.String()), slog.String("strategy", cfg.Strategy))
	solution, err := solver.Solve(ctx, f.Model, diver.Params(result.Phase), callbacks)
	if err != nil {
		return result, fmt.Errorf("solving %v model: %w", result.Phase, err)
	}
	result.Status, result.Objective, result.BestBound = solution.Status, solution.Objective, solution.BestBound
	if !result.Found() {
		logger.Warn(NoNeighbourhoodMessage, slog.String("status", solution.Status.String()))
	}
	logger.Info("search finished",
		slog.String("status", solution.Status.String()),
		slog.Float64("objective", solution.Objective),
		slog.Duration("elapsed", stopwatch.Elapsed()))

	strategy.FinishOff(ctx)

	if best, ok := diver.BestCost(); ok {
		result.BestCost = &best
	}
	return result, nil
}
