package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/limaJavier/cctt/pkg/config"
	"github.com/limaJavier/cctt/pkg/conflicts"
	"github.com/limaJavier/cctt/pkg/formulation"
	"github.com/limaJavier/cctt/pkg/metrics"
	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
	"github.com/limaJavier/cctt/pkg/report"
)

// SolverFactory creates the solver of one search. Every search gets its own.
type SolverFactory func() (mip.Solver, error)

// Diver solves neighbourhoods as independent sub-problems. It is shared by every strategy of a solve.
type Diver struct {
	Instance  *model.Instance
	Graph     *conflicts.Graph
	Config    *config.Config
	NewSolver SolverFactory
	Bounds    *UpperBounds
	Recorder  report.Recorder
	Metrics   *metrics.Metrics
	Stopwatch *config.Stopwatch
	Logger    *slog.Logger
	// Prefix of exported files, such as <prefix>.fixday12.lp
	OutputPrefix string

	mutex sync.Mutex
	best  *int
}

func (diver *Diver) logger() *slog.Logger {
	if diver.Logger == nil {
		return slog.Default()
	}
	return diver.Logger
}

// Params applies the configuration of phase and its current cutoff.
func (diver *Diver) Params(phase model.Phase) mip.Params {
	phaseConfig := diver.Config.Phase(phase)
	params := mip.Params{
		TimeLimit:     phaseConfig.TimeLimit,
		NodeLimit:     phaseConfig.NodeLimit,
		MemoryLimitMB: phaseConfig.MemoryLimitMB,
		Options:       phaseConfig.Options,
	}
	if diver.Bounds != nil {
		params.Cutoff = diver.Bounds.Cutoff(phase)
	}
	return params
}

func (diver *Diver) elapsed() time.Duration {
	if diver.Stopwatch == nil {
		return 0
	}
	return diver.Stopwatch.Elapsed()
}

// BestCost is the cheapest timetable saved so far.
func (diver *Diver) BestCost() (int, bool) {
	diver.mutex.Lock()
	defer diver.mutex.Unlock()
	if diver.best == nil {
		return 0, false
	}
	return *diver.best, true
}

func (diver *Diver) saved(cost int) {
	diver.mutex.Lock()
	defer diver.mutex.Unlock()
	if diver.best == nil || cost < *diver.best {
		diver.best = &cost
	}
}

func (diver *Diver) record(fn func(recorder report.Recorder) error) {
	if diver.Recorder == nil {
		return
	}
	if err := fn(diver.Recorder); err != nil {
		diver.logger().Warn("cannot record progress", slog.String("error", err.Error()))
	}
}

// RecordNeighbourhood logs an extracted neighbourhood when neighbourhood logging is on.
func (diver *Diver) RecordNeighbourhood(next model.Neighbourhood) {
	if !diver.Config.Features.NeighbourhoodLogging {
		return
	}
	diver.record(func(recorder report.Recorder) error {
		return recorder.RecordNeighbourhood(report.NeighbourhoodRecord{Neighbourhood: next, Discovered: diver.elapsed()})
	})
}

// ExportLP writes the model next to the output prefix when LP export is on.
func (diver *Diver) ExportLP(m *mip.Model, suffix string) {
	if !diver.Config.Features.LpExport || diver.OutputPrefix == "" {
		return
	}
	path := fmt.Sprintf("%v.%v.lp", diver.OutputPrefix, suffix)
	if err := os.WriteFile(path, []byte(m.ToLP()), 0644); err != nil {
		diver.logger().Warn("cannot export model", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Dive builds and solves the model of next. Failures, panics included, are returned and never reach the caller's search.
func (diver *Diver) Dive(ctx context.Context, next model.Neighbourhood, from model.Phase) (err error) {
	logger := diver.logger().With(slog.String("phase", next.Phase.String()), slog.String("from", from.String()))
	start := time.Now()
	outcome := "failed"
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dive into %v panicked: %v", next.Phase, r)
		}
		if err != nil {
			logger.Error("dive failed", slog.String("error", err.Error()))
		}
		diver.Metrics.DiveFinished(next.Phase.String(), outcome, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("diving into neighbourhood", slog.Float64("cost", next.Cost), slog.Int("size", next.Size()))

	f, err := formulation.New(diver.Instance, diver.Graph, next, diver.Config, logger)
	if err != nil {
		return fmt.Errorf("building %v model: %w", next.Phase, err)
	}
	diver.ExportLP(f.Model, fmt.Sprintf("%v%d", next.Phase, int(next.Cost)))

	solver, err := diver.NewSolver()
	if err != nil {
		return fmt.Errorf("creating solver: %w", err)
	}

	var observer Strategy
	if next.Phase == model.FixDay {
		observer = NewSolutionPolishing(f, diver)
	} else {
		observer = NewSolutionSaving(f, diver)
	}

	solution, err := solver.Solve(ctx, f.Model, diver.Params(next.Phase), mip.Callbacks{Incumbent: observer})
	if err != nil {
		return fmt.Errorf("solving %v model: %w", next.Phase, err)
	}
	observer.FinishOff(ctx)

	outcome = solution.Status.String()
	logger.Info("dive finished",
		slog.String("status", outcome),
		slog.Float64("objective", solution.Objective),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
