package solver

import (
	"fmt"
	"math/rand"
)

// ValidationError names the offending field and value for malformed
// input rejected before solving starts (§7).
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// SolverState owns every piece of mutable state for one solve: the
// grid, the task list, the PRNG, and the lesson catalogue borrowed
// read-only from the caller. A fresh SolverState is created per Solve
// call; nothing leaks across calls (spec §9, "no cross-call leakage").
type SolverState struct {
	Config  Config
	Lessons map[string]Lesson
	Classes map[string]Class
	Tasks   []*Task
	TaskByID map[int]*Task
	Grid    *Grid
	Options Options
	rng     *rand.Rand

	Iterations int
}

// Result is the solver's external output (§6).
type Result struct {
	Success        bool
	Slots          []SlotRecord
	FailedLessons  []FailedLesson
	Warnings       []FeasibilityWarning
	Stats          Stats
}

// Stats summarises the run.
type Stats struct {
	TotalSlots         int
	ScheduledLessons   int
	FailedLessons      int
	SwapAttempts       int
	SuccessfulSwaps    int
	Iterations         int
	ConflictsRemaining int
	Seed               int64
}

// Validate rejects malformed input before any solving work begins
// (§7): an interval boundary outside [1, P-1], a lesson referencing an
// unknown class, or a negative period count.
func Validate(lessons []Lesson, classes []Class, cfg Config) error {
	if cfg.PeriodsPerDay <= 0 {
		return &ValidationError{Field: "config.periodsPerDay", Value: cfg.PeriodsPerDay, Message: "must be positive"}
	}
	if len(cfg.Days) == 0 {
		return &ValidationError{Field: "config.daysOfWeek", Value: cfg.Days, Message: "must contain at least one day"}
	}
	for _, b := range cfg.IntervalBoundaries {
		if b < 1 || b > cfg.PeriodsPerDay-1 {
			return &ValidationError{Field: "config.intervalBoundaries", Value: b, Message: fmt.Sprintf("must be within [1, %d]", cfg.PeriodsPerDay-1)}
		}
	}

	knownClasses := make(map[string]bool, len(classes))
	for _, c := range classes {
		knownClasses[c.ID] = true
	}

	for _, l := range lessons {
		if l.Singles < 0 {
			return &ValidationError{Field: "lesson.singles", Value: l.Singles, Message: "must not be negative"}
		}
		if l.Doubles < 0 {
			return &ValidationError{Field: "lesson.doubles", Value: l.Doubles, Message: "must not be negative"}
		}
		if len(l.TeacherIDs) == 0 {
			return &ValidationError{Field: "lesson.teacherIds", Value: l.ID, Message: "must reference at least one teacher"}
		}
		if len(l.ClassIDs) == 0 {
			return &ValidationError{Field: "lesson.classIds", Value: l.ID, Message: "must reference at least one class"}
		}
		for _, classID := range l.ClassIDs {
			if !knownClasses[classID] {
				return &ValidationError{Field: "lesson.classIds", Value: classID, Message: fmt.Sprintf("lesson %s references unknown class", l.ID)}
			}
		}
	}
	return nil
}

// NewSolverState builds a fresh, self-contained solver state for one
// solve call.
func NewSolverState(lessons []Lesson, classes []Class, cfg Config, opts Options) *SolverState {
	opts = opts.normalized()

	lessonMap := make(map[string]Lesson, len(lessons))
	for _, l := range lessons {
		lessonMap[l.ID] = l
	}
	classMap := make(map[string]Class, len(classes))
	for _, c := range classes {
		classMap[c.ID] = c
	}

	tasks := ExpandLessons(lessons)
	OrderTasks(tasks, lessonMap, opts.PriorityKeywords)

	taskByID := make(map[int]*Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}

	return &SolverState{
		Config:   cfg,
		Lessons:  lessonMap,
		Classes:  classMap,
		Tasks:    tasks,
		TaskByID: taskByID,
		Grid:     NewGrid(cfg),
		Options:  opts,
		rng:      rand.New(rand.NewSource(opts.Seed)),
	}
}

func (s *SolverState) penaltyContext() PenaltyContext {
	return PenaltyContext{
		Grid:        s.Grid,
		Lessons:     s.Lessons,
		Weights:     s.Options.Weights,
		Config:      s.Config,
		DailyLimit:  s.Options.DailyLimit,
		WeeklyLimit: s.Options.WeeklyLimit,
	}
}

// Solve runs the full pipeline: input validation, feasibility
// pre-check, greedy initialization, stochastic repair, diagnostic
// reporting, and result serialization (§2 control flow).
func Solve(lessons []Lesson, classes []Class, cfg Config, opts Options) (*Result, error) {
	result, _, err := SolveForEditing(lessons, classes, cfg, opts)
	return result, err
}

// SolveForEditing runs the same pipeline as Solve but also returns the
// resulting SolverState, so a caller that wants to apply a swap
// suggestion later (ApplySwap) can do so against the exact grid the
// result was derived from instead of re-solving from scratch.
func SolveForEditing(lessons []Lesson, classes []Class, cfg Config, opts Options) (*Result, *SolverState, error) {
	if err := Validate(lessons, classes, cfg); err != nil {
		return nil, nil, err
	}

	warnings := CheckFeasibility(lessons, cfg, opts.normalized().WeeklyLimit)

	state := NewSolverState(lessons, classes, cfg, opts)
	ctx := state.penaltyContext()

	InitializeGreedy(state.Tasks, ctx, state.rng)

	engine := newRepairEngine(state)
	repairStats := engine.Run()

	report := BuildDiagnosticReport(state)
	slots := Serialize(state.Grid, state.Tasks, state.Config)

	conflictsRemaining := totalConflictCount(state.Tasks)

	scheduled := 0
	for _, l := range lessons {
		if !hasFailure(report, l.ID) {
			scheduled++
		}
	}

	result := &Result{
		Success:       conflictsRemaining == 0,
		Slots:         slots,
		FailedLessons: report,
		Warnings:      warnings,
		Stats: Stats{
			TotalSlots:         len(slots),
			ScheduledLessons:   scheduled,
			FailedLessons:      len(report),
			SwapAttempts:       repairStats.SwapAttempts,
			SuccessfulSwaps:    repairStats.SuccessfulSwaps,
			Iterations:         repairStats.Iterations,
			ConflictsRemaining: conflictsRemaining,
			Seed:               state.Options.Seed,
		},
	}
	return result, state, nil
}

func hasFailure(report []FailedLesson, lessonID string) bool {
	for _, f := range report {
		if f.LessonID == lessonID {
			return true
		}
	}
	return false
}

func totalConflictCount(tasks []*Task) int {
	total := 0
	for _, t := range tasks {
		total += t.ConflictCount
	}
	return total
}

func totalPenaltySum(tasks []*Task) int {
	total := 0
	for _, t := range tasks {
		total += t.Penalty
	}
	return total
}
