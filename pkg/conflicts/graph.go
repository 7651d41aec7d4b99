package conflicts

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/limaJavier/cctt/pkg/model"
	"github.com/samber/lo"
)

const minCliqueSize = 2

// Graph has a vertex per course and an edge between courses that share a curriculum.
// Once built it is only read, so it is shared by every model of a solve.
type Graph struct {
	adjacency [][]int // Sorted and duplicate free
	edges     int
	cliques   [][]int
	logger    *slog.Logger
}

func NewGraph(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{logger: logger}
}

// Build discards any previous graph (and its cliques) and rebuilds it from the curricula of instance.
func (graph *Graph) Build(instance *model.Instance) {
	sets := make([]map[int]struct{}, len(instance.Courses))
	for i := range sets {
		sets[i] = make(map[int]struct{})
	}
	for _, curriculum := range instance.Curricula {
		for _, u := range curriculum.Courses {
			for _, v := range curriculum.Courses {
				if u != v {
					sets[u][v] = struct{}{}
				}
			}
		}
	}

	graph.adjacency = make([][]int, len(sets))
	graph.edges = 0
	for u, set := range sets {
		graph.adjacency[u] = lo.Keys(set)
		slices.Sort(graph.adjacency[u])
		graph.edges += len(set)
	}
	graph.edges /= 2
	graph.cliques = nil

	graph.logger.Info("conflict graph built", slog.Int("vertices", graph.VertexCount()), slog.Int("edges", graph.edges))
}

func (graph *Graph) VertexCount() int {
	return len(graph.adjacency)
}

func (graph *Graph) EdgeCount() int {
	return graph.edges
}

func (graph *Graph) Neighbours(u int) []int {
	return graph.adjacency[u]
}

func (graph *Graph) Adjacent(u, v int) bool {
	_, found := slices.BinarySearch(graph.adjacency[u], v)
	return found
}

func (graph *Graph) Cliques() [][]int {
	return graph.cliques
}

// GenerateCliques replaces the clique pool with at most one greedily grown clique per vertex.
func (graph *Graph) GenerateCliques() {
	type candidate struct {
		vertex       int
		intersection []int
	}

	graph.cliques = make([][]int, 0)
	for u, neighbours := range graph.adjacency {
		if len(neighbours) < minCliqueSize {
			continue
		}

		candidates := make([]candidate, 0)
		for _, v := range neighbours {
			if v >= u {
				break
			}
			intersection := intersect(neighbours, graph.adjacency[v])
			if len(intersection) >= minCliqueSize {
				candidates = append(candidates, candidate{vertex: v, intersection: intersection})
			}
		}
		if len(candidates) < minCliqueSize {
			continue
		}
		slices.SortStableFunc(candidates, func(a, b candidate) int {
			return len(b.intersection) - len(a.intersection)
		})

		clique := make([]int, 0)
		for _, candidate := range candidates {
			if includes(candidate.intersection, clique) {
				clique = append(clique, candidate.vertex)
			}
		}
		if len(clique) < minCliqueSize {
			continue
		}
		clique = append(clique, u)
		slices.Sort(clique)
		graph.cliques = append(graph.cliques, clique)
	}

	graph.logger.Info("clique pool generated", slog.Int("cliques", len(graph.cliques)))
}

// Triangles calls visit for every u < v < w that are pairwise adjacent, stopping when visit returns false.
func (graph *Graph) Triangles(visit func(u, v, w int) bool) {
	for u, neighbours := range graph.adjacency {
		for _, v := range neighbours {
			if v <= u {
				continue
			}
			for _, w := range graph.adjacency[v] {
				if w <= v || !graph.Adjacent(u, w) {
					continue
				}
				if !visit(u, v, w) {
					return
				}
			}
		}
	}
}

// Grow absorbs, in increasing id order, every vertex adjacent to all members of clique.
func (graph *Graph) Grow(clique []int) []int {
	grown := slices.Clone(clique)
	candidates := slices.Clone(graph.adjacency[clique[0]])
	for _, member := range clique[1:] {
		candidates = intersect(candidates, graph.adjacency[member])
	}
	for len(candidates) > 0 {
		vertex := candidates[0]
		grown = append(grown, vertex)
		candidates = intersect(candidates[1:], graph.adjacency[vertex])
	}
	slices.Sort(grown)
	return grown
}

// IsClique reports whether every pair of vertices is adjacent.
func (graph *Graph) IsClique(vertices []int) bool {
	for i, u := range vertices {
		for _, v := range vertices[i+1:] {
			if !graph.Adjacent(u, v) {
				return false
			}
		}
	}
	return true
}

// CliqueKey identifies a sorted vertex set.
func CliqueKey(clique []int) string {
	return strings.Join(lo.Map(clique, func(vertex int, _ int) string { return strconv.Itoa(vertex) }), ",")
}

// intersect expects both slices sorted.
func intersect(a, b []int) []int {
	result := make([]int, 0)
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			result = append(result, a[i])
			i++
			j++
		}
	}
	return result
}

func includes(set []int, subset []int) bool {
	return lo.EveryBy(subset, func(vertex int) bool {
		_, found := slices.BinarySearch(set, vertex)
		return found
	})
}
