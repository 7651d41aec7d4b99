package strategy

import (
	"sync"

	"github.com/limaJavier/cctt/pkg/model"
)

// UpperBounds tracks the best cost recorded per phase. Later searches of a phase only accept strictly cheaper solutions.
type UpperBounds struct {
	mutex  sync.Mutex
	bounds map[model.Phase]int
}

func NewUpperBounds() *UpperBounds {
	return &UpperBounds{bounds: make(map[model.Phase]int)}
}

// Add records cost for phase and reports whether it improved the bound. A FixPeriod improvement tightens FixDay as well.
func (upper *UpperBounds) Add(phase model.Phase, cost int) bool {
	upper.mutex.Lock()
	defer upper.mutex.Unlock()

	if bound, ok := upper.bounds[phase]; ok && cost > bound {
		return false
	}
	upper.bounds[phase] = cost
	if phase == model.FixPeriod {
		if bound, ok := upper.bounds[model.FixDay]; !ok || cost <= bound {
			upper.bounds[model.FixDay] = cost
		}
	}
	return true
}

// Cutoff is the objective every new solution of phase must stay below, nil while phase has no bound.
func (upper *UpperBounds) Cutoff(phase model.Phase) *float64 {
	upper.mutex.Lock()
	defer upper.mutex.Unlock()

	bound, ok := upper.bounds[phase]
	if !ok {
		return nil
	}
	cutoff := float64(bound) - 0.5
	return &cutoff
}

func (upper *UpperBounds) Bound(phase model.Phase) (int, bool) {
	upper.mutex.Lock()
	defer upper.mutex.Unlock()

	bound, ok := upper.bounds[phase]
	return bound, ok
}

// Queue hands neighbourhoods back most recent first.
type Queue struct {
	items []model.Neighbourhood
}

func (queue *Queue) Push(neighbourhood model.Neighbourhood) {
	queue.items = append(queue.items, neighbourhood)
}

func (queue *Queue) Pop() (model.Neighbourhood, bool) {
	if len(queue.items) == 0 {
		return model.Neighbourhood{}, false
	}
	last := queue.items[len(queue.items)-1]
	queue.items = queue.items[:len(queue.items)-1]
	return last, true
}

func (queue *Queue) Len() int {
	return len(queue.items)
}
