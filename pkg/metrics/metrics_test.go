package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("Counters", func(t *testing.T) {
		//** Arrange
		metrics := New()

		//** Act
		metrics.CutsAdded("clique", 3)
		metrics.CutsAdded("clique", 2)
		metrics.CutsAdded("rounding", 1)
		metrics.DiveFinished("fixday", "solved", 2*time.Second)
		metrics.Incumbent("surface")
		metrics.SolutionCost("fixperiod", 14)

		//** Assert
		assert.Equal(t, 5.0, testutil.ToFloat64(metrics.cuts.WithLabelValues("clique")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cuts.WithLabelValues("rounding")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dives.WithLabelValues("fixday", "solved")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.incumbents.WithLabelValues("surface")))
		assert.Equal(t, 14.0, testutil.ToFloat64(metrics.bestCost.WithLabelValues("fixperiod")))
	})

	t.Run("Textfile", func(t *testing.T) {
		//** Arrange
		metrics := New()
		metrics.DiveFinished("fixperiod", "failed", time.Second)
		path := filepath.Join(t.TempDir(), "cctt.prom")

		//** Act
		err := metrics.WriteTextfile(path)

		//** Assert
		require.NoError(t, err)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), `cctt_dives_total{outcome="failed",phase="fixperiod"} 1`)
		assert.Contains(t, string(content), "cctt_dive_duration_seconds_count")
	})

	t.Run("Nil metrics", func(t *testing.T) {
		//** Arrange
		var metrics *Metrics

		//** Act & Assert
		assert.NotPanics(t, func() {
			metrics.CutsAdded("clique", 1)
			metrics.DiveFinished("fixday", "solved", time.Second)
			metrics.Incumbent("surface")
			metrics.SolutionCost("surface", 1)
		})
		assert.NoError(t, metrics.WriteTextfile(filepath.Join(t.TempDir(), "none.prom")))
		assert.Nil(t, metrics.Registry())
	})
}
