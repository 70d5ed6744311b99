package solver

import "fmt"

// FeasibilityWarning flags a teacher or class whose aggregate required
// load exceeds weekly capacity before the solve even starts. The
// pre-check is advisory only: it never blocks a solve.
type FeasibilityWarning struct {
	ResourceType string // "teacher" or "class"
	ResourceID   string
	Required     int
	Capacity     int
	Message      string
}

// CheckFeasibility sums required periods per teacher and per class and
// flags any whose total exceeds its weekly capacity (§4.1).
func CheckFeasibility(lessons []Lesson, cfg Config, weeklyTeacherLimit int) []FeasibilityWarning {
	if weeklyTeacherLimit <= 0 {
		weeklyTeacherLimit = DefaultWeeklyLimit
	}
	classCapacity := cfg.PeriodsPerDay * len(cfg.Days)

	teacherLoad := make(map[string]int)
	classLoad := make(map[string]int)

	for _, lesson := range lessons {
		periods := lesson.TotalPeriods()
		for _, teacherID := range lesson.TeacherIDs {
			teacherLoad[teacherID] += periods
		}
		for _, classID := range lesson.ClassIDs {
			classLoad[classID] += periods
		}
	}

	var warnings []FeasibilityWarning
	for teacherID, load := range teacherLoad {
		if load > weeklyTeacherLimit {
			warnings = append(warnings, FeasibilityWarning{
				ResourceType: "teacher",
				ResourceID:   teacherID,
				Required:     load,
				Capacity:     weeklyTeacherLimit,
				Message:      fmt.Sprintf("teacher %s requires %d periods/week, exceeding the %d limit", teacherID, load, weeklyTeacherLimit),
			})
		}
	}
	for classID, load := range classLoad {
		if load > classCapacity {
			warnings = append(warnings, FeasibilityWarning{
				ResourceType: "class",
				ResourceID:   classID,
				Required:     load,
				Capacity:     classCapacity,
				Message:      fmt.Sprintf("class %s requires %d periods/week, exceeding the %d-period grid", classID, load, classCapacity),
			})
		}
	}
	return warnings
}
