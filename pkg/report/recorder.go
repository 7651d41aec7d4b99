package report

import (
	"errors"
	"time"

	"github.com/limaJavier/cctt/pkg/config"
	"github.com/limaJavier/cctt/pkg/model"
)

// Penalties are the soft constraint violations of a complete timetable, unweighted.
type Penalties struct {
	RoomCapacity  int
	MinCourseDays int
	Compactness   int
	RoomStability int
}

func (penalties Penalties) Total(weights config.Weights) int {
	return weights.MinDays*penalties.MinCourseDays +
		weights.Compactness*penalties.Compactness +
		weights.RoomCapacity*penalties.RoomCapacity +
		weights.RoomStability*penalties.RoomStability
}

type SolutionRecord struct {
	Phase           model.Phase
	SubmodelCost    float64 // Objective reported by the solver of the phase
	Cost            int     // Weighted penalties of the timetable
	NeighbourhoodLB float64
	Penalties       Penalties
	Sessions        []Session
	Discovered      time.Duration
}

type NeighbourhoodRecord struct {
	Neighbourhood model.Neighbourhood
	Discovered    time.Duration
}

type BoundRecord struct {
	Tag        string
	Value      float64
	Discovered time.Duration
}

// Recorder receives the progress of a solve.
type Recorder interface {
	RecordNeighbourhood(record NeighbourhoodRecord) error
	RecordSolution(record SolutionRecord) error
	RecordBound(record BoundRecord) error
}

// Multi forwards every record to all of its recorders, even after one of them fails.
type Multi []Recorder

func (multi Multi) RecordNeighbourhood(record NeighbourhoodRecord) error {
	errs := make([]error, 0)
	for _, recorder := range multi {
		errs = append(errs, recorder.RecordNeighbourhood(record))
	}
	return errors.Join(errs...)
}

func (multi Multi) RecordSolution(record SolutionRecord) error {
	errs := make([]error, 0)
	for _, recorder := range multi {
		errs = append(errs, recorder.RecordSolution(record))
	}
	return errors.Join(errs...)
}

func (multi Multi) RecordBound(record BoundRecord) error {
	errs := make([]error, 0)
	for _, recorder := range multi {
		errs = append(errs, recorder.RecordBound(record))
	}
	return errors.Join(errs...)
}
