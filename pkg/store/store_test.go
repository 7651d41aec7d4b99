package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/limaJavier/cctt/pkg/model"
	"github.com/limaJavier/cctt/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	store, err := Open(filepath.Join(t.TempDir(), "archive", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRuns(t *testing.T) {
	t.Run("Run lifecycle", func(t *testing.T) {
		//** Arrange
		store := openStore(t)
		ctx := context.Background()
		started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		run := &Run{Instance: "comp01.ctt", Strategy: "contract", Backend: "gophersat", StartedAt: started}

		//** Act
		require.NoError(t, store.CreateRun(ctx, run))
		recorder := store.Recorder(run.Id)
		require.NoError(t, recorder.RecordSolution(report.SolutionRecord{Phase: model.Surface, Cost: 12, Discovered: time.Second}))
		require.NoError(t, recorder.RecordSolution(report.SolutionRecord{
			Phase:      model.FixPeriod,
			Cost:       9,
			Penalties:  report.Penalties{Compactness: 2, RoomCapacity: 5},
			Sessions:   []report.Session{{Course: "c0", Room: "A", Day: 1, PeriodWithin: 2}},
			Discovered: 2500 * time.Millisecond,
		}))
		require.NoError(t, store.FinishRun(ctx, run.Id, "finished", started.Add(time.Minute)))
		runs, err := store.Runs(ctx)
		require.NoError(t, err)
		solutions, err := store.Solutions(ctx, run.Id)
		require.NoError(t, err)

		//** Assert
		assert.NotEmpty(t, run.Id)
		require.Len(t, runs, 1)
		assert.Equal(t, "finished", runs[0].Status)
		assert.True(t, started.Equal(runs[0].StartedAt))
		require.NotNil(t, runs[0].FinishedAt)
		require.NotNil(t, runs[0].BestCost)
		assert.Equal(t, 9, *runs[0].BestCost)

		require.Len(t, solutions, 2)
		assert.Equal(t, "fixperiod", solutions[0].Phase)
		assert.Equal(t, 2, solutions[0].PenaltyCompactness)
		assert.Equal(t, 5, solutions[0].PenaltyRoomCapacity)
		assert.Equal(t, 2500*time.Millisecond, solutions[0].Discovered)
		assert.Equal(t, "c0 A 1 2\n", solutions[0].Timetable)
	})

	t.Run("Unknown run", func(t *testing.T) {
		//** Arrange
		store := openStore(t)

		//** Act
		err := store.FinishRun(context.Background(), "missing", "finished", time.Now())

		//** Assert
		assert.Error(t, err)
	})

	t.Run("Run without solutions", func(t *testing.T) {
		//** Arrange
		store := openStore(t)
		ctx := context.Background()
		run := &Run{Instance: "toy", Strategy: "anytime", Backend: "cbc", StartedAt: time.Now()}
		require.NoError(t, store.CreateRun(ctx, run))

		//** Act
		require.NoError(t, store.FinishRun(ctx, run.Id, "no solution", time.Now()))
		runs, err := store.Runs(ctx)

		//** Assert
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Nil(t, runs[0].BestCost)
	})
}

func TestRecorder(t *testing.T) {
	t.Run("Neighbourhoods and bounds", func(t *testing.T) {
		//** Arrange
		store := openStore(t)
		ctx := context.Background()
		run := &Run{Instance: "toy", Strategy: "contract", Backend: "gophersat", StartedAt: time.Now()}
		require.NoError(t, store.CreateRun(ctx, run))
		recorder := store.Recorder(run.Id)
		neighbourhood := model.NewNeighbourhood(model.FixDay)
		neighbourhood.LowerBound = math.Inf(-1)
		neighbourhood.FixDay = []model.CourseDay{{Course: 0, Day: 0, Events: 1}}

		//** Act
		errNeighbourhood := recorder.RecordNeighbourhood(report.NeighbourhoodRecord{Neighbourhood: neighbourhood})
		errBound := recorder.RecordBound(report.BoundRecord{Tag: "globalLB", Value: 3})
		count, err := store.CountNeighbourhoods(ctx, run.Id)

		//** Assert
		assert.NoError(t, errNeighbourhood)
		assert.NoError(t, errBound)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Records of unknown runs are rejected", func(t *testing.T) {
		//** Arrange
		store := openStore(t)

		//** Act
		err := store.Recorder("missing").RecordSolution(report.SolutionRecord{})

		//** Assert
		assert.Error(t, err)
	})
}
