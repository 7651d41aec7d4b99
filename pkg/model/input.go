package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

var ErrMalformedInstance = errors.New("malformed instance")

type RawCourse struct {
	Name     string
	Teacher  string
	Lectures int
	MinDays  int
	Students int
}

type RawCurriculum struct {
	Name    string
	Courses []string
}

type RawRestriction struct {
	Course string
	Day    int
	Period int
}

type RawInstance struct {
	Name          string
	Days          int
	PeriodsPerDay int
	Courses       []RawCourse
	Rooms         []Room
	Curricula     []RawCurriculum
	Restrictions  []RawRestriction
}

type Course struct {
	Id       int
	Name     string
	Teacher  string
	Lectures int
	MinDays  int
	Students int
}

type Room struct {
	Id       int
	Name     string
	Capacity int
}

type Curriculum struct {
	Name    string
	Courses []int
}

// Restriction forbids a course from being taught at an absolute period.
type Restriction struct {
	Course int
	Period int
}

type Instance struct {
	Name          string
	Days          int
	PeriodsPerDay int
	Courses       []Course
	Rooms         []Room // Sorted by descending capacity
	Curricula     []Curriculum
	// The first ProperCurricula entries of Curricula come from the input, the rest are one per teacher with more than one course
	ProperCurricula int
	Restrictions    []Restriction

	roomClasses [phaseCount][]RoomClass
	patterns    []Pattern
}

func (instance *Instance) Periods() int {
	return instance.Days * instance.PeriodsPerDay
}

// DayPeriods returns the half-open range of absolute periods that belong to day.
func (instance *Instance) DayPeriods(day int) (int, int) {
	return day * instance.PeriodsPerDay, (day + 1) * instance.PeriodsPerDay
}

func (instance *Instance) DayOf(period int) int {
	return period / instance.PeriodsPerDay
}

func (instance *Instance) PeriodWithinDay(period int) int {
	return period % instance.PeriodsPerDay
}

func (instance *Instance) RoomClasses(phase Phase) []RoomClass {
	return instance.roomClasses[phase]
}

// Multiplicity returns the number of physical rooms available per period under the aggregation of phase.
func (instance *Instance) Multiplicity(phase Phase) int {
	return lo.SumBy(instance.roomClasses[phase], func(class RoomClass) int { return class.Multiplicity })
}

func (instance *Instance) Patterns() []Pattern {
	return instance.patterns
}

func InstanceFromJson(file string) (*Instance, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var inputJson map[string]any
	err = json.Unmarshal(bytes, &inputJson)
	if err != nil {
		return nil, err
	}

	var raw RawInstance
	if err := mapstructure.Decode(inputJson, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInstance, err)
	}
	return ProcessRawInstance(raw)
}

func InstanceFromFile(file string) (*Instance, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer handle.Close()
	return ParseInstance(handle)
}

func ProcessRawInstance(raw RawInstance) (*Instance, error) {
	if raw.Days <= 0 || raw.PeriodsPerDay <= 0 {
		return nil, fmt.Errorf("%w: days (%d) and periods per day (%d) must be positive", ErrMalformedInstance, raw.Days, raw.PeriodsPerDay)
	}

	instance := &Instance{
		Name:          raw.Name,
		Days:          raw.Days,
		PeriodsPerDay: raw.PeriodsPerDay,
	}

	courseIds := make(map[string]int, len(raw.Courses))
	for i, rawCourse := range raw.Courses {
		if _, ok := courseIds[rawCourse.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate course \"%v\"", ErrMalformedInstance, rawCourse.Name)
		}
		if rawCourse.Lectures < 0 || rawCourse.MinDays < 0 || rawCourse.Students < 0 {
			return nil, fmt.Errorf("%w: course \"%v\" has negative attributes", ErrMalformedInstance, rawCourse.Name)
		}
		courseIds[rawCourse.Name] = i
		instance.Courses = append(instance.Courses, Course{
			Id:       i,
			Name:     rawCourse.Name,
			Teacher:  rawCourse.Teacher,
			Lectures: rawCourse.Lectures,
			MinDays:  rawCourse.MinDays,
			Students: rawCourse.Students,
		})
	}
	lookup := func(name string) (int, error) {
		id, ok := courseIds[name]
		if !ok {
			return 0, fmt.Errorf("%w: unknown course \"%v\"", ErrMalformedInstance, name)
		}
		return id, nil
	}

	// Largest rooms first, ties broken by descending name
	instance.Rooms = slices.Clone(raw.Rooms)
	slices.SortStableFunc(instance.Rooms, func(a, b Room) int {
		if a.Capacity != b.Capacity {
			return b.Capacity - a.Capacity
		}
		return strings.Compare(b.Name, a.Name)
	})
	for i := range instance.Rooms {
		instance.Rooms[i].Id = i
	}

	for _, rawCurriculum := range raw.Curricula {
		curriculum := Curriculum{Name: rawCurriculum.Name}
		for _, name := range rawCurriculum.Courses {
			id, err := lookup(name)
			if err != nil {
				return nil, fmt.Errorf("curriculum \"%v\": %w", rawCurriculum.Name, err)
			}
			curriculum.Courses = append(curriculum.Courses, id)
		}
		instance.Curricula = append(instance.Curricula, curriculum)
	}
	instance.ProperCurricula = len(instance.Curricula)

	// A teacher cannot lecture two courses at once, which is exactly a curriculum
	teachers := lo.Uniq(lo.Map(instance.Courses, func(course Course, _ int) string { return course.Teacher }))
	for _, teacher := range teachers {
		courses := lo.FilterMap(instance.Courses, func(course Course, _ int) (int, bool) {
			return course.Id, course.Teacher == teacher
		})
		if len(courses) > 1 {
			instance.Curricula = append(instance.Curricula, Curriculum{Name: teacher, Courses: courses})
		}
	}

	for _, rawRestriction := range raw.Restrictions {
		id, err := lookup(rawRestriction.Course)
		if err != nil {
			return nil, fmt.Errorf("unavailability constraint: %w", err)
		}
		if rawRestriction.Day < 0 || rawRestriction.Day >= raw.Days || rawRestriction.Period < 0 || rawRestriction.Period >= raw.PeriodsPerDay {
			return nil, fmt.Errorf("%w: unavailability of \"%v\" at (%d, %d) is out of range", ErrMalformedInstance, rawRestriction.Course, rawRestriction.Day, rawRestriction.Period)
		}
		instance.Restrictions = append(instance.Restrictions, Restriction{
			Course: id,
			Period: rawRestriction.Day*raw.PeriodsPerDay + rawRestriction.Period,
		})
	}

	for _, phase := range Phases {
		instance.roomClasses[phase] = AggregateRooms(instance.Rooms, phase)
	}
	instance.patterns = GeneratePatterns(instance.PeriodsPerDay)

	return instance, nil
}
