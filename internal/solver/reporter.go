package solver

import "sort"

// SwapSuggestion is one candidate alternate placement offered for a
// conflicting task, ranked by how much it reduces that task's penalty.
type SwapSuggestion struct {
	TaskID       int
	FromDay      int
	FromPeriod   int
	ToDay        int
	ToPeriod     int
	PenaltyDelta int
	Feasibility  string // "easy", "moderate", "hard"
}

// FailedLesson groups every task of one lesson that still carries a
// conflict (or never found a legal slot at all) after repair, with
// human-readable reasons and up to three swap suggestions per
// lesson (§4.5).
type FailedLesson struct {
	LessonID           string
	LessonName         string
	ConflictingTasks   int
	UnplacedTasks      int
	TotalConflictScore int
	Reasons            []string
	Suggestions        []SwapSuggestion
}

const maxSuggestionsPerLesson = 3

// BuildDiagnosticReport classifies every task still in conflict (or
// unplaced) after repair by lesson, attaching reasons drawn from the
// same dimensions the penalty function scores, plus a handful of
// candidate alternate slots to help an operator resolve it by hand.
func BuildDiagnosticReport(state *SolverState) []FailedLesson {
	ctx := state.penaltyContext()

	type group struct {
		tasks []*Task
	}
	groups := make(map[string]*group)
	var order []string
	for _, t := range state.Tasks {
		if t.ConflictCount == 0 && t.Placed {
			continue
		}
		g, ok := groups[t.LessonID]
		if !ok {
			g = &group{}
			groups[t.LessonID] = g
			order = append(order, t.LessonID)
		}
		g.tasks = append(g.tasks, t)
	}
	sort.Strings(order)

	report := make([]FailedLesson, 0, len(order))
	for _, lessonID := range order {
		g := groups[lessonID]
		lesson := state.Lessons[lessonID]

		fl := FailedLesson{
			LessonID:   lessonID,
			LessonName: lesson.Name,
		}

		reasonSet := make(map[string]bool)
		var suggestions []SwapSuggestion

		for _, t := range g.tasks {
			fl.TotalConflictScore += t.Penalty
			if !t.Placed {
				fl.UnplacedTasks++
				reasonSet["no legal slot could be found for this task"] = true
				continue
			}
			fl.ConflictingTasks++
			classifyReasons(t, ctx, reasonSet)

			if len(suggestions) < maxSuggestionsPerLesson {
				suggestions = append(suggestions, suggestSwaps(t, ctx, maxSuggestionsPerLesson-len(suggestions))...)
			}
		}

		fl.Reasons = sortedKeys(reasonSet)
		fl.Suggestions = suggestions
		report = append(report, fl)
	}

	return report
}

func classifyReasons(t *Task, ctx PenaltyContext, reasons map[string]bool) {
	periods := t.OccupiedPeriods(t.Period)

	for _, teacherID := range t.Teachers {
		for _, p := range periods {
			if ctx.Grid.TeacherBusyCount(teacherID, t.Day, p) > 1 {
				reasons["teacher is double-booked at this period"] = true
			}
		}
		if ctx.Grid.TeacherDayLoad(teacherID, t.Day) > ctx.DailyLimit {
			reasons["teacher exceeds the daily period limit"] = true
		}
		if ctx.Grid.TeacherWeekLoad(teacherID) > ctx.WeeklyLimit {
			reasons["teacher exceeds the weekly period limit"] = true
		}
	}

	for _, classID := range t.Classes {
		for _, p := range periods {
			if ctx.Grid.ClassBusyCount(classID, t.Day, p) > 1 {
				reasons["class already has another lesson at this period"] = true
			}
		}
	}

	if t.IsDouble && ctx.Config.IsIntervalBoundary(t.Period) {
		reasons["double period spans an interval boundary"] = true
	}
}

// suggestSwaps temporarily removes t from the grid, scans candidate
// slots the same way the repair engine's chain-swap lookahead does,
// and returns up to limit strictly-better alternatives, restoring t to
// its original placement before returning.
func suggestSwaps(t *Task, ctx PenaltyContext, limit int) []SwapSuggestion {
	if limit <= 0 {
		return nil
	}
	fromDay, fromPeriod := t.Day, t.Period
	originalPenalty := t.Penalty

	ctx.Grid.Remove(t)
	defer ctx.Grid.Place(t, fromDay, fromPeriod)

	type candidate struct {
		day, period, penalty int
	}
	var candidates []candidate
	for day := 1; day <= len(ctx.Config.Days); day++ {
		count := 0
		for _, p := range candidatePeriods(t, ctx.Config) {
			if count >= 20 {
				break
			}
			count++
			if day == fromDay && p == fromPeriod {
				continue
			}
			penalty := Penalty(t, day, p, ctx)
			if penalty < originalPenalty {
				candidates = append(candidates, candidate{day, p, penalty})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].penalty < candidates[j].penalty
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]SwapSuggestion, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, SwapSuggestion{
			TaskID:       t.ID,
			FromDay:      fromDay,
			FromPeriod:   fromPeriod,
			ToDay:        c.day,
			ToPeriod:     c.period,
			PenaltyDelta: c.penalty - originalPenalty,
			Feasibility:  feasibilityLabel(c.penalty),
		})
	}
	return out
}

func feasibilityLabel(penalty int) string {
	switch {
	case penalty <= 0:
		return "easy"
	case penalty <= 200:
		return "moderate"
	default:
		return "hard"
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
