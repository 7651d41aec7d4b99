package model

// Pattern scores one daily occupancy shape of a curriculum. Coefficients are +1 for occupied periods and -1 for free ones.
type Pattern struct {
	Coefficients []int
	Penalty      int
	Rhs          int // Occupied periods minus one
}

// GeneratePatterns enumerates every sign sequence of length periodsPerDay and keeps those with an isolated lecture.
func GeneratePatterns(periodsPerDay int) []Pattern {
	patterns := make([]Pattern, 0)
	if periodsPerDay < 3 {
		return patterns
	}
	coefficients := make([]int, 0, periodsPerDay)
	var enumerate func(rhs int)
	enumerate = func(rhs int) {
		if len(coefficients) == periodsPerDay {
			if penalty := PatternPenalty(coefficients); penalty > 0 {
				patterns = append(patterns, Pattern{
					Coefficients: append([]int(nil), coefficients...),
					Penalty:      penalty,
					Rhs:          rhs,
				})
			}
			return
		}
		coefficients = append(coefficients, -1)
		enumerate(rhs)
		coefficients[len(coefficients)-1] = 1
		enumerate(rhs + 1)
		coefficients = coefficients[:len(coefficients)-1]
	}
	enumerate(-1)
	return patterns
}

// PatternPenalty counts isolated lectures: first or last period followed or preceded by a gap, and every gap-lecture-gap triple.
func PatternPenalty(coefficients []int) int {
	n := len(coefficients)
	if n < 2 {
		return 0
	}
	penalty := 0
	if coefficients[0] > 0 && coefficients[1] < 0 {
		penalty++
	}
	if coefficients[n-1] > 0 && coefficients[n-2] < 0 {
		penalty++
	}
	for i := 1; i+1 < n; i++ {
		if coefficients[i-1] < 0 && coefficients[i] > 0 && coefficients[i+1] < 0 {
			penalty++
		}
	}
	return penalty
}
