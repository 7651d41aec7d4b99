package config

import (
	"time"

	"github.com/limaJavier/cctt/pkg/model"
)

const (
	StrategyAnytime  = "anytime"
	StrategyContract = "contract"
)

type Features struct {
	SpecialOrderedSets             bool `mapstructure:"special_ordered_sets" yaml:"special_ordered_sets"`
	StaticCliqueCutsInDives        bool `mapstructure:"static_clique_cuts_in_dives" yaml:"static_clique_cuts_in_dives"`
	StaticImpliedBounds            bool `mapstructure:"static_implied_bounds" yaml:"static_implied_bounds"`
	HeuristicCompactnessAtSurface  bool `mapstructure:"heuristic_compactness_at_surface" yaml:"heuristic_compactness_at_surface"`
	HeuristicCompactnessInDayDives bool `mapstructure:"heuristic_compactness_in_day_dives" yaml:"heuristic_compactness_in_day_dives"`
	PatternCuts                    bool `mapstructure:"pattern_cuts" yaml:"pattern_cuts"`
	DynamicCutsAtSurface           bool `mapstructure:"dynamic_cuts_at_surface" yaml:"dynamic_cuts_at_surface"`
	TriangleCuts                   bool `mapstructure:"triangle_cuts" yaml:"triangle_cuts"`
	ZeroRoomStability              bool `mapstructure:"zero_room_stability" yaml:"zero_room_stability"`
	PreprocessingFriendly          bool `mapstructure:"preprocessing_friendly" yaml:"preprocessing_friendly"`
	AdditionalVariables            bool `mapstructure:"additional_variables" yaml:"additional_variables"`
	ObjectiveComponents            bool `mapstructure:"objective_components" yaml:"objective_components"`
	NeighbourhoodLogging           bool `mapstructure:"neighbourhood_logging" yaml:"neighbourhood_logging"`
	LowerBoundLogging              bool `mapstructure:"lower_bound_logging" yaml:"lower_bound_logging"`
	SolutionLogging                bool `mapstructure:"solution_logging" yaml:"solution_logging"`
	LpExport                       bool `mapstructure:"lp_export" yaml:"lp_export"`
}

type Weights struct {
	RoomCapacity  int `mapstructure:"room_capacity" yaml:"room_capacity" validate:"gte=0"`
	MinDays       int `mapstructure:"min_days" yaml:"min_days" validate:"gte=0"`
	Compactness   int `mapstructure:"compactness" yaml:"compactness" validate:"gte=0"`
	RoomStability int `mapstructure:"room_stability" yaml:"room_stability" validate:"gte=0"`
}

// PhaseConfig holds what is applied to the solver of one phase. Zero limits mean unlimited.
type PhaseConfig struct {
	Weights       Weights           `mapstructure:"weights" yaml:"weights"`
	TimeLimit     time.Duration     `mapstructure:"time_limit" yaml:"time_limit" validate:"gte=0"`
	NodeLimit     int               `mapstructure:"node_limit" yaml:"node_limit" validate:"gte=0"`
	MemoryLimitMB int               `mapstructure:"memory_limit_mb" yaml:"memory_limit_mb" validate:"gte=0"`
	AnytimeOnset  time.Duration     `mapstructure:"anytime_onset" yaml:"anytime_onset"` // Negative disables anytime dives into the phase
	Options       map[string]string `mapstructure:"options" yaml:"options"`
}

type PhaseSet struct {
	Monolithic PhaseConfig `mapstructure:"monolithic" yaml:"monolithic"`
	Surface    PhaseConfig `mapstructure:"surface" yaml:"surface"`
	FixPeriod  PhaseConfig `mapstructure:"fixperiod" yaml:"fixperiod"`
	FixDay     PhaseConfig `mapstructure:"fixday" yaml:"fixday"`
}

// Config is built once and shared read-only by every component of a solve.
type Config struct {
	Features                  Features      `mapstructure:"features" yaml:"features"`
	Strategy                  string        `mapstructure:"strategy" yaml:"strategy" validate:"oneof=anytime contract"`
	Backend                   string        `mapstructure:"backend" yaml:"backend" validate:"oneof=gophersat cbc"`
	ContractTimeLimit         time.Duration `mapstructure:"contract_time_limit" yaml:"contract_time_limit" validate:"gt=0"`
	CliqueCutFrequency        int           `mapstructure:"clique_cut_frequency" yaml:"clique_cut_frequency" validate:"gt=0"`
	TriangleCutFrequency      int           `mapstructure:"triangle_cut_frequency" yaml:"triangle_cut_frequency" validate:"gt=0"`
	FixDayDivesFromSurface    int           `mapstructure:"fixday_dives_from_surface" yaml:"fixday_dives_from_surface" validate:"gte=0"`
	FixPeriodDivesFromSurface int           `mapstructure:"fixperiod_dives_from_surface" yaml:"fixperiod_dives_from_surface" validate:"gte=0"`
	FixPeriodDivesFromFixDay  int           `mapstructure:"fixperiod_dives_from_fixday" yaml:"fixperiod_dives_from_fixday" validate:"gte=0"`
	Phases                    PhaseSet      `mapstructure:"phases" yaml:"phases"`
}

func defaultPhase() PhaseConfig {
	return PhaseConfig{
		Weights: Weights{RoomCapacity: 1, MinDays: 5, Compactness: 2, RoomStability: 1},
		Options: map[string]string{},
	}
}

func Default() Config {
	return Config{
		Features: Features{
			StaticCliqueCutsInDives:        true,
			StaticImpliedBounds:            true,
			HeuristicCompactnessInDayDives: true,
			AdditionalVariables:            true,
			ObjectiveComponents:            true,
			NeighbourhoodLogging:           true,
			LowerBoundLogging:              true,
			SolutionLogging:                true,
		},
		Strategy:                  StrategyContract,
		Backend:                   "gophersat",
		ContractTimeLimit:         3600 * time.Second,
		CliqueCutFrequency:        5,
		TriangleCutFrequency:      5,
		FixDayDivesFromSurface:    3,
		FixPeriodDivesFromSurface: 3,
		FixPeriodDivesFromFixDay:  3,
		Phases: PhaseSet{
			Monolithic: defaultPhase(),
			Surface:    defaultPhase(),
			FixPeriod:  defaultPhase(),
			FixDay:     defaultPhase(),
		},
	}
}

func (config *Config) Phase(phase model.Phase) PhaseConfig {
	switch phase {
	case model.Surface:
		return config.Phases.Surface
	case model.FixPeriod:
		return config.Phases.FixPeriod
	case model.FixDay:
		return config.Phases.FixDay
	default:
		return config.Phases.Monolithic
	}
}

// HeuristicCompactness reports whether the phase keeps a single singleton check per curriculum and day.
func (config *Config) HeuristicCompactness(phase model.Phase) bool {
	return phase == model.Surface && config.Features.HeuristicCompactnessAtSurface ||
		phase == model.FixDay && config.Features.HeuristicCompactnessInDayDives
}
