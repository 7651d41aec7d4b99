package conflicts

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/limaJavier/cctt/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildInstance(t *testing.T, courses int, curricula [][]int) *model.Instance {
	raw := model.RawInstance{Name: "graph", Days: 1, PeriodsPerDay: 3, Rooms: []model.Room{{Name: "r", Capacity: 10}}}
	for i := range courses {
		raw.Courses = append(raw.Courses, model.RawCourse{Name: fmt.Sprint("c", i), Teacher: fmt.Sprint("t", i), Lectures: 1, MinDays: 1, Students: 1})
	}
	for i, curriculum := range curricula {
		rawCurriculum := model.RawCurriculum{Name: fmt.Sprint("q", i)}
		for _, course := range curriculum {
			rawCurriculum.Courses = append(rawCurriculum.Courses, fmt.Sprint("c", course))
		}
		raw.Curricula = append(raw.Curricula, rawCurriculum)
	}
	instance, err := model.ProcessRawInstance(raw)
	require.NoError(t, err)
	return instance
}

func randomCurricula(random *rand.Rand, courses int) [][]int {
	curricula := make([][]int, 0)
	for range 2 + random.Intn(8) {
		curriculum := random.Perm(courses)[:2+random.Intn(courses-2)]
		curricula = append(curricula, curriculum)
	}
	return curricula
}

func TestBuild(t *testing.T) {
	t.Run("Two courses sharing a curriculum", func(t *testing.T) {
		//** Arrange
		graph := NewGraph(nil)

		//** Act
		graph.Build(buildInstance(t, 2, [][]int{{0, 1}}))

		//** Assert
		assert.Equal(t, 2, graph.VertexCount())
		assert.Equal(t, 1, graph.EdgeCount())
		assert.True(t, graph.Adjacent(0, 1))
	})

	t.Run("Repeated pairs are a single edge", func(t *testing.T) {
		//** Arrange
		graph := NewGraph(nil)

		//** Act
		graph.Build(buildInstance(t, 3, [][]int{{0, 1, 2}, {1, 0}}))

		//** Assert
		assert.Equal(t, 3, graph.EdgeCount())
		assert.Equal(t, []int{1, 2}, graph.Neighbours(0))
	})

	t.Run("Adjacency is symmetric", func(t *testing.T) {
		random := rand.New(rand.NewSource(7))
		for range 20 {
			//** Arrange
			graph := NewGraph(nil)

			//** Act
			graph.Build(buildInstance(t, 12, randomCurricula(random, 12)))

			//** Assert
			for u := range graph.VertexCount() {
				assert.NotContains(t, graph.Neighbours(u), u)
				for _, v := range graph.Neighbours(u) {
					assert.True(t, graph.Adjacent(v, u))
				}
			}
		}
	})
}

func TestGenerateCliques(t *testing.T) {
	t.Run("Complete graph on four vertices", func(t *testing.T) {
		//** Arrange
		graph := NewGraph(nil)
		graph.Build(buildInstance(t, 4, [][]int{{0, 1, 2, 3}}))

		//** Act
		graph.GenerateCliques()

		//** Assert
		require.NotEmpty(t, graph.Cliques())
		assert.Contains(t, graph.Cliques(), []int{0, 1, 2, 3})
		for _, clique := range graph.Cliques() {
			assert.GreaterOrEqual(t, len(clique), 3)
		}
	})

	t.Run("Every pooled clique is a clique", func(t *testing.T) {
		random := rand.New(rand.NewSource(11))
		for range 20 {
			//** Arrange
			graph := NewGraph(nil)
			graph.Build(buildInstance(t, 15, randomCurricula(random, 15)))

			//** Act
			graph.GenerateCliques()

			//** Assert
			for _, clique := range graph.Cliques() {
				assert.True(t, graph.IsClique(clique), "clique %v", clique)
			}
		}
	})

	t.Run("Rebuilding discards the pool", func(t *testing.T) {
		//** Arrange
		graph := NewGraph(nil)
		graph.Build(buildInstance(t, 4, [][]int{{0, 1, 2, 3}}))
		graph.GenerateCliques()

		//** Act
		graph.Build(buildInstance(t, 4, [][]int{{0, 1}}))

		//** Assert
		assert.Empty(t, graph.Cliques())
	})
}

func TestGrow(t *testing.T) {
	t.Run("Triangle grows to the full clique", func(t *testing.T) {
		//** Arrange
		graph := NewGraph(nil)
		graph.Build(buildInstance(t, 6, [][]int{{0, 1, 2, 3, 4}, {4, 5}}))
		triangles := make([][3]int, 0)

		//** Act
		graph.Triangles(func(u, v, w int) bool {
			triangles = append(triangles, [3]int{u, v, w})
			return true
		})
		grown := graph.Grow([]int{0, 1, 2})

		//** Assert
		assert.Len(t, triangles, 10)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, grown)
		assert.Equal(t, "0,1,2,3,4", CliqueKey(grown))
	})
}
