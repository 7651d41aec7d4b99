package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/limaJavier/cctt/pkg/report"
)

// RunRecorder archives the records of one run.
type RunRecorder struct {
	store *Store
	runId string
}

func (store *Store) Recorder(runId string) *RunRecorder {
	return &RunRecorder{store: store, runId: runId}
}

func (recorder *RunRecorder) RecordSolution(record report.SolutionRecord) error {
	var timetable strings.Builder
	for _, session := range record.Sessions {
		fmt.Fprintf(&timetable, "%v %v %d %d\n", session.Course, session.Room, session.Day, session.PeriodWithin)
	}
	_, err := recorder.store.db.ExecContext(context.Background(),
		`INSERT INTO solutions (id, run_id, phase, cost, submodel_cost, penalty_room_capacity, penalty_min_days,
			penalty_compactness, penalty_room_stability, discovered_ms, timetable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), recorder.runId, record.Phase.String(), record.Cost, record.SubmodelCost,
		record.Penalties.RoomCapacity, record.Penalties.MinCourseDays, record.Penalties.Compactness,
		record.Penalties.RoomStability, record.Discovered.Milliseconds(), timetable.String())
	if err != nil {
		return fmt.Errorf("inserting solution: %w", err)
	}
	return nil
}

func (recorder *RunRecorder) RecordNeighbourhood(record report.NeighbourhoodRecord) error {
	neighbourhood := record.Neighbourhood
	_, err := recorder.store.db.ExecContext(context.Background(),
		`INSERT INTO neighbourhoods (id, run_id, phase, cost, lower_bound, fixed, preprocessed, discovered_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), recorder.runId, neighbourhood.Phase.String(), neighbourhood.Cost, finite(neighbourhood.LowerBound),
		len(neighbourhood.FixPeriod)+len(neighbourhood.FixDay), len(neighbourhood.PreprocessAway), record.Discovered.Milliseconds())
	if err != nil {
		return fmt.Errorf("inserting neighbourhood: %w", err)
	}
	return nil
}

func (recorder *RunRecorder) RecordBound(record report.BoundRecord) error {
	_, err := recorder.store.db.ExecContext(context.Background(),
		`INSERT INTO bounds (run_id, tag, value, discovered_ms) VALUES (?, ?, ?, ?)`,
		recorder.runId, record.Tag, finite(record.Value), record.Discovered.Milliseconds())
	if err != nil {
		return fmt.Errorf("inserting bound: %w", err)
	}
	return nil
}
