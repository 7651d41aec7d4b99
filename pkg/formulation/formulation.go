package formulation

import (
	"fmt"
	"log/slog"

	"github.com/limaJavier/cctt/pkg/config"
	"github.com/limaJavier/cctt/pkg/conflicts"
	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
	"golang.org/x/sync/errgroup"
)

// Formulation is the MIP of one phase attempt over a neighbourhood.
type Formulation struct {
	Model         *mip.Model
	Vars          Variables
	Instance      *model.Instance
	Graph         *conflicts.Graph
	Neighbourhood model.Neighbourhood
	Phase         model.Phase
	Config        *config.Config
	Rooms         []model.RoomClass
	Weights       config.Weights

	heuristic bool
}

// block is the output of one constraint pass.
type block struct {
	constraints []mip.Constraint
	sos         []mip.SOS1
	objective   *mip.Expr
}

func (b *block) add(constraints ...mip.Constraint) {
	b.constraints = append(b.constraints, constraints...)
}

type pass struct {
	name     string
	generate func(f *Formulation) (block, error)
}

var passes = []pass{
	{"hard", hardConstraints},
	{"room stability", roomStabilityConstraints},
	{"compactness", compactnessConstraints},
	{"min course days", minCourseDaysConstraints},
	{"course periods", coursePeriodConstraints},
	{"neighbourhood", neighbourhoodConstraints},
	{"objective", objective},
}

// New builds the model of neighbourhood.Phase. Passes only read the formulation, so they run concurrently and are merged in order.
func New(instance *model.Instance, graph *conflicts.Graph, neighbourhood model.Neighbourhood, cfg *config.Config, logger *slog.Logger) (*Formulation, error) {
	if logger == nil {
		logger = slog.Default()
	}
	phase := neighbourhood.Phase
	f := &Formulation{
		Model:         mip.NewModel(fmt.Sprintf("%v-%v", instance.Name, phase)),
		Instance:      instance,
		Graph:         graph,
		Neighbourhood: neighbourhood,
		Phase:         phase,
		Config:        cfg,
		Rooms:         instance.RoomClasses(phase),
		Weights:       cfg.Phase(phase).Weights,
		heuristic:     cfg.HeuristicCompactness(phase),
	}
	f.Vars = buildVariables(f)

	blocks := make([]block, len(passes))
	var group errgroup.Group
	for i, p := range passes {
		group.Go(func() error {
			generated, err := p.generate(f)
			if err != nil {
				return fmt.Errorf("%v constraints: %w", p.name, err)
			}
			blocks[i] = generated
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for _, generated := range blocks {
		f.Model.AddConstraints(generated.constraints...)
		for _, set := range generated.sos {
			f.Model.AddSOS1(set.Name, set.Vars)
		}
		if generated.objective != nil {
			f.Model.Minimize(*generated.objective)
		}
	}

	logger.Info("model built",
		slog.String("phase", phase.String()),
		slog.Int("variables", f.Model.NumVars()),
		slog.Int("constraints", len(f.Model.Constraints())),
		slog.Int("sos", len(f.Model.SOS())),
		slog.Int("neighbourhood", neighbourhood.Size()))
	return f, nil
}

func (f *Formulation) HeuristicCompactness() bool {
	return f.heuristic
}

// RoomSum is the number of rooms the course takes at period, which is 0 or 1.
func (f *Formulation) RoomSum(course, period int) mip.Expr {
	expr := mip.Expr{}
	for r := range f.Rooms {
		expr.Add(f.Vars.X[period][r][course], 1)
	}
	return expr
}

// PeriodExpr is the course-period indicator when materialized and the room sum otherwise.
func (f *Formulation) PeriodExpr(course, period int) mip.Expr {
	if f.Vars.CoursePeriods != nil {
		return mip.Sum(f.Vars.CoursePeriods[course][period])
	}
	return f.RoomSum(course, period)
}

// DaySum counts the lectures of course on day.
func (f *Formulation) DaySum(course, day int) mip.Expr {
	expr := mip.Expr{}
	first, last := f.Instance.DayPeriods(day)
	for p := first; p < last; p++ {
		expr.AddExpr(f.RoomSum(course, p), 1)
	}
	return expr
}

// lecturedCourses counts courses with at least one lecture, each of which needs a room.
func (f *Formulation) lecturedCourses() int {
	count := 0
	for _, course := range f.Instance.Courses {
		if course.Lectures > 0 {
			count++
		}
	}
	return count
}
