package model

import "fmt"

type Phase int

const (
	Monolithic Phase = iota
	Surface
	FixPeriod
	FixDay
	phaseCount
)

var Phases = []Phase{Monolithic, Surface, FixPeriod, FixDay}

var phaseNames = map[Phase]string{
	Monolithic: "monolithic",
	Surface:    "surface",
	FixPeriod:  "fixperiod",
	FixDay:     "fixday",
}

func (phase Phase) String() string {
	name, ok := phaseNames[phase]
	if !ok {
		return fmt.Sprintf("phase(%d)", int(phase))
	}
	return name
}

func ParsePhase(name string) (Phase, error) {
	for phase, phaseName := range phaseNames {
		if phaseName == name {
			return phase, nil
		}
	}
	return 0, fmt.Errorf("unknown phase \"%v\"", name)
}
