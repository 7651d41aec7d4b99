package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/limaJavier/cctt/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (clock *fakeClock) Now() time.Time {
	return clock.now
}

func TestDefault(t *testing.T) {
	//** Act
	config := Default()

	//** Assert
	assert.NoError(t, Validate(config))
	assert.Equal(t, StrategyContract, config.Strategy)
	assert.Equal(t, Weights{RoomCapacity: 1, MinDays: 5, Compactness: 2, RoomStability: 1}, config.Phase(model.FixDay).Weights)
	assert.True(t, config.HeuristicCompactness(model.FixDay))
	assert.False(t, config.HeuristicCompactness(model.Surface))
	assert.False(t, config.HeuristicCompactness(model.FixPeriod))
}

func TestLoad(t *testing.T) {
	t.Run("Yaml overrides keep other defaults", func(t *testing.T) {
		//** Arrange
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "strategy: anytime\nfeatures:\n  triangle_cuts: true\nphases:\n  surface:\n    time_limit: 90s\n    anytime_onset: -1s\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		//** Act
		config, err := Load(path)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, StrategyAnytime, config.Strategy)
		assert.True(t, config.Features.TriangleCuts)
		assert.True(t, config.Features.AdditionalVariables)
		assert.Equal(t, 90*time.Second, config.Phases.Surface.TimeLimit)
		assert.Equal(t, -time.Second, config.Phases.Surface.AnytimeOnset)
		assert.Equal(t, 5, config.Phases.Surface.Weights.MinDays)
	})

	t.Run("Json", func(t *testing.T) {
		//** Arrange
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"clique_cut_frequency": 7}`), 0o644))

		//** Act
		config, err := Load(path)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, 7, config.CliqueCutFrequency)
	})

	t.Run("Unknown key", func(t *testing.T) {
		_, err := FromMap(map[string]any{"strategi": "anytime"})
		assert.Error(t, err)
	})

	t.Run("Invalid values", func(t *testing.T) {
		//** Act
		_, err := FromMap(map[string]any{"strategy": "greedy", "clique_cut_frequency": 0})

		//** Assert
		var validationError *ValidationError
		require.ErrorAs(t, err, &validationError)
		assert.Len(t, validationError.Problems, 2)
	})

	t.Run("Pattern cuts exclude heuristic compactness", func(t *testing.T) {
		//** Act
		_, err := FromMap(map[string]any{"features": map[string]any{"pattern_cuts": true, "heuristic_compactness_at_surface": true}})

		//** Assert
		assert.ErrorContains(t, err, "mutually exclusive")
	})
}

func TestStopwatch(t *testing.T) {
	//** Arrange
	clock := &fakeClock{now: time.Unix(100, 0)}
	stopwatch := NewStopwatch(clock)

	//** Act
	clock.now = clock.now.Add(3 * time.Second)

	//** Assert
	assert.Equal(t, 3*time.Second, stopwatch.Elapsed())
}
