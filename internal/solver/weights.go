package solver

// Weights holds the per-dimension penalty multipliers from spec §4.2.
type Weights struct {
	TeacherOverlap      int
	ClassOverlap        int
	IntervalViolation   int
	TeacherGap          int
	SubjectDayImbalance int
	DailyOverload       int
	WeeklyOverload      int
}

// DefaultWeights returns the table's stated default weights.
func DefaultWeights() Weights {
	return Weights{
		TeacherOverlap:      1000,
		ClassOverlap:        1000,
		IntervalViolation:   500,
		TeacherGap:          100,
		SubjectDayImbalance: 50,
		DailyOverload:       20,
		WeeklyOverload:      10,
	}
}

const (
	// DefaultDailyLimit is the per-teacher daily period cap (§6).
	DefaultDailyLimit = 7
	// DefaultWeeklyLimit is the per-teacher weekly period cap (§6).
	DefaultWeeklyLimit = 35
)
