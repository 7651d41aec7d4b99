package report

import (
	"errors"
	"fmt"

	"github.com/limaJavier/cctt/pkg/formulation"
	"github.com/limaJavier/cctt/pkg/model"
	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

var ErrUnassignable = errors.New("lectures cannot be matched to physical rooms")

// Session is a lecture placed in a physical room.
type Session struct {
	Course       string
	Room         string
	Period       int
	Day          int
	PeriodWithin int
}

// AssignRooms turns lectures placed in room classes of phase into sessions in physical rooms.
// Lectures of every period are matched to the rooms of their class, never more than one per room.
func AssignRooms(instance *model.Instance, phase model.Phase, lectures []formulation.Lecture) ([]Session, error) {
	classes := instance.RoomClasses(phase)
	byPeriod := lo.GroupBy(lectures, func(lecture formulation.Lecture) int { return lecture.Period })

	sessions := make([]Session, 0, len(lectures))
	for period := range instance.Periods() {
		scheduled := byPeriod[period]
		if len(scheduled) == 0 {
			continue
		}
		for _, lecture := range scheduled {
			if lecture.Class < 0 || lecture.Class >= len(classes) {
				return nil, fmt.Errorf("lecture of course %d uses unknown room class %d", lecture.Course, lecture.Class)
			}
		}

		rooms := lo.Range(len(instance.Rooms))
		matching, err := matchRooms(scheduled, rooms, func(lecture formulation.Lecture, room int) bool {
			return lo.Contains(classes[lecture.Class].Rooms, room)
		})
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", period, err)
		}

		for i, lecture := range scheduled {
			sessions = append(sessions, Session{
				Course:       instance.Courses[lecture.Course].Name,
				Room:         instance.Rooms[matching[i]].Name,
				Period:       period,
				Day:          instance.DayOf(period),
				PeriodWithin: instance.PeriodWithinDay(period),
			})
		}
	}
	return sessions, nil
}

// matchRooms returns, for every lecture, the room it is given.
func matchRooms(lectures []formulation.Lecture, rooms []int, fits func(formulation.Lecture, int) bool) ([]int, error) {
	neighbours := func(lectureAny any, roomAny any) (bool, error) {
		return fits(lectureAny.(formulation.Lecture), roomAny.(int)), nil
	}

	lecturesAny := lo.Map(lectures, func(lecture formulation.Lecture, _ int) any { return lecture })
	roomsAny := lo.Map(rooms, func(room int, _ int) any { return room })

	graph, err := bipartitegraph.NewBipartiteGraph(lecturesAny, roomsAny, neighbours)
	if err != nil {
		return nil, err
	}

	matching := graph.LargestMatching()
	if len(matching) < len(lectures) {
		return nil, ErrUnassignable
	}

	assigned := make([]int, len(lectures))
	for _, edge := range matching {
		lectureIndex, roomIndex := edge.Node1, edge.Node2-len(lectures)
		assigned[lectureIndex] = rooms[roomIndex]
	}
	return assigned, nil
}
