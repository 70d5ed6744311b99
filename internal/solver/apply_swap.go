package solver

// ApplySwap moves one task to a caller-chosen slot and re-derives
// conflicts, the diagnostic report and the serialized grid from the
// adjusted placement, without re-running repair. This backs the
// "accept one suggested swap" operation: the caller already decided
// the new placement (typically copied from a FailedLesson
// suggestion), so the solver only needs to replay it and re-check
// consequences for every task sharing a resource with the move.
func ApplySwap(state *SolverState, taskID, day, period int) (*Result, error) {
	task, ok := state.TaskByID[taskID]
	if !ok {
		return nil, &ValidationError{Field: "taskId", Value: taskID, Message: "unknown task id"}
	}
	if day < 1 || day > len(state.Config.Days) {
		return nil, &ValidationError{Field: "day", Value: day, Message: "out of range for the configured week"}
	}
	if period < 1 || period > state.Config.PeriodsPerDay {
		return nil, &ValidationError{Field: "period", Value: period, Message: "out of range for the configured day"}
	}

	ctx := state.penaltyContext()
	oldDay, oldPeriod, wasPlaced := task.Day, task.Period, task.Placed

	if task.Placed {
		state.Grid.Move(task, day, period)
	} else {
		state.Grid.Place(task, day, period)
		task.Placed = true
	}
	RefreshConflict(task, ctx)
	refreshSharedResourceTasks(state, task, ctx)
	if wasPlaced {
		// Occupants of the vacated slot may have lost a conflict too.
		old := *task
		old.Day, old.Period = oldDay, oldPeriod
		refreshSharedResourceTasks(state, &old, ctx)
	}

	report := BuildDiagnosticReport(state)
	slots := Serialize(state.Grid, state.Tasks, state.Config)
	conflictsRemaining := totalConflictCount(state.Tasks)

	scheduled := 0
	for _, l := range state.Lessons {
		if !hasFailure(report, l.ID) {
			scheduled++
		}
	}

	return &Result{
		Success:       conflictsRemaining == 0,
		Slots:         slots,
		FailedLessons: report,
		Stats: Stats{
			TotalSlots:         len(slots),
			ScheduledLessons:   scheduled,
			FailedLessons:      len(report),
			ConflictsRemaining: conflictsRemaining,
			Seed:               state.Options.Seed,
		},
	}, nil
}

// refreshSharedResourceTasks recomputes ConflictCount for every other
// task that shares a class or teacher with moved at its current
// placement, since a single move can resolve or introduce conflicts
// for occupants it did not directly touch.
func refreshSharedResourceTasks(state *SolverState, moved *Task, ctx PenaltyContext) {
	seen := map[int]bool{moved.ID: true}
	for _, p := range moved.OccupiedPeriods(moved.Period) {
		for _, classID := range moved.Classes {
			for _, rec := range state.Grid.RecordsAt(classID, moved.Day, p) {
				if seen[rec.TaskID] {
					continue
				}
				seen[rec.TaskID] = true
				if t, ok := state.TaskByID[rec.TaskID]; ok {
					RefreshConflict(t, ctx)
				}
			}
		}
		for _, teacherID := range moved.Teachers {
			for _, id := range state.Grid.TeacherTasksAt(teacherID, moved.Day, p) {
				if seen[id] {
					continue
				}
				seen[id] = true
				if t, ok := state.TaskByID[id]; ok {
					RefreshConflict(t, ctx)
				}
			}
		}
	}
}
