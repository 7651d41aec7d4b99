package model

type CoursePeriod struct {
	Course int
	Period int
}

type CourseDay struct {
	Course int
	Day    int
	Events int
}

// Neighbourhood describes the sub-problem a phase solves: which assignments are fixed, forced per day or removed.
type Neighbourhood struct {
	Phase          Phase
	FixPeriod      []CoursePeriod
	FixDay         []CourseDay
	PreprocessAway []CoursePeriod

	Cost       float64
	LowerBound float64
	// Penalties of the parent solution, carried forward when the phase does not model them
	PenaltyMinCourseDays int
	PenaltyCompactness   int
}

func NewNeighbourhood(phase Phase) Neighbourhood {
	return Neighbourhood{Phase: phase}
}

func (neighbourhood *Neighbourhood) Size() int {
	return len(neighbourhood.FixPeriod) + len(neighbourhood.FixDay) + len(neighbourhood.PreprocessAway)
}
