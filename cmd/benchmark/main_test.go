package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	for input, expected := range map[string]time.Duration{
		"00:01:01.12": time.Minute + time.Second + 120*time.Millisecond,
		"01:01:01.12": time.Hour + time.Minute + time.Second + 120*time.Millisecond,
		"1:01.12":     time.Minute + time.Second + 120*time.Millisecond,
		"0:00.12":     120 * time.Millisecond,
		"00:00:00.12": 120 * time.Millisecond,
	} {
		duration, err := parseDuration(input)
		require.NoError(t, err)
		assert.Equal(t, expected, duration, input)
	}

	_, err := parseDuration("12")
	assert.Error(t, err)
}

func TestParseTimeOutput(t *testing.T) {
	t.Run("Lines", func(t *testing.T) {
		//** Act
		duration, err := parseDurationLine("\tElapsed (wall clock) time (h:mm:ss or m:ss): 0:02.50")
		require.NoError(t, err)
		memory, err := parseMemoryLine("\tMaximum resident set size (kbytes): 2048")
		require.NoError(t, err)
		cpu, err := parseCpuPercentageLine("\tPercent of CPU this job got: 97%")
		require.NoError(t, err)

		//** Assert
		assert.Equal(t, 2500*time.Millisecond, duration)
		assert.Equal(t, 2.0, memory)
		assert.Equal(t, 97, cpu)
	})

	t.Run("Best cost", func(t *testing.T) {
		//** Act
		cost, err := parseBestCost("Run: 1234\nBest cost: 17\nElapsed: 1s\n")

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, 17, cost)

		_, err = parseBestCost("Not a single neighbourhood has been found.\n")
		assert.Error(t, err)
	})
}

func TestInstancesAndVariants(t *testing.T) {
	t.Run("Only ctt files are collected", func(t *testing.T) {
		//** Arrange
		directory := t.TempDir()
		instance := "Name: one\nCourses: 1\nRooms: 1\nDays: 1\nPeriods_per_day: 2\nCurricula: 0\nConstraints: 0\n" +
			"COURSES:\nc t 2 1 5\nROOMS:\nr 10\nCURRICULA:\nUNAVAILABILITY_CONSTRAINTS:\nEND.\n"
		require.NoError(t, os.WriteFile(filepath.Join(directory, "one.ctt"), []byte(instance), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(directory, "notes.txt"), []byte("ignored"), 0o644))

		//** Act
		instances, err := getInstances(directory)

		//** Assert
		require.NoError(t, err)
		require.Len(t, instances, 1)
		assert.Equal(t, InstanceMetadata{
			Name: "one", Path: filepath.Join(directory, "one.ctt"),
			Courses: 1, Lectures: 2, Rooms: 1, Curricula: 0, Days: 1, Periods: 2,
		}, instances[0])
	})

	t.Run("Every strategy per backend", func(t *testing.T) {
		//** Act
		variants := getVariants([]string{"gophersat", " cbc", ""})

		//** Assert
		assert.Len(t, variants, 6)
		assert.Equal(t, []string{"--monolithic", "--backend", "cbc"}, variants[5].args())
		assert.Equal(t, []string{"--strategy", "contract", "--backend", "gophersat"}, variants[0].args())
	})
}
