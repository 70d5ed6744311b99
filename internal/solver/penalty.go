package solver

// PenaltyContext bundles the read-only state the penalty function
// needs beyond the hypothetical placement itself: the grid snapshot,
// the lesson catalogue (for subject lookups on existing records), the
// configured weights, the weekly grid shape, and the daily/weekly
// overload thresholds.
type PenaltyContext struct {
	Grid        *Grid
	Lessons     map[string]Lesson
	Weights     Weights
	Config      Config
	DailyLimit  int
	WeeklyLimit int
}

// Penalty scores a hypothetical placement of task at (day, startPeriod)
// against the current index. It is pure over (inputs + grid snapshot):
// it reads the grid but never mutates it. The result is always >= 0.
func Penalty(task *Task, day, startPeriod int, ctx PenaltyContext) int {
	periods := task.OccupiedPeriods(startPeriod)
	total := 0

	// Critical teacher overlap.
	for _, teacherID := range task.Teachers {
		for _, p := range periods {
			if count := ctx.Grid.TeacherBusyCount(teacherID, day, p); count > 0 {
				total += ctx.Weights.TeacherOverlap * count
			}
		}
	}

	// Critical class overlap.
	for _, classID := range task.Classes {
		for _, p := range periods {
			if count := ctx.Grid.ClassBusyCount(classID, day, p); count > 0 {
				total += ctx.Weights.ClassOverlap * count
			}
		}
	}

	// Interval violation.
	if task.IsDouble && ctx.Config.IsIntervalBoundary(startPeriod) {
		total += ctx.Weights.IntervalViolation
	}

	// Teacher gap: for each teacher, the span of first-to-last occupied
	// period on the day minus the count of occupied periods, including
	// this hypothetical placement.
	for _, teacherID := range task.Teachers {
		occupied := teacherDayPeriods(ctx.Grid, teacherID, day, ctx.Config.PeriodsPerDay)
		for _, p := range periods {
			occupied[p] = true
		}
		if len(occupied) > 1 {
			minP, maxP := periodRange(occupied)
			gap := (maxP - minP + 1) - len(occupied)
			if gap > 0 {
				total += ctx.Weights.TeacherGap * gap
			}
		}
	}

	// Subject-day imbalance: classes with >=3 existing same-day periods
	// sharing a subject with this lesson.
	subjectSet := toSet(task.SubjectIDs)
	if len(subjectSet) > 0 {
		for _, classID := range task.Classes {
			count := 0
			for p := 1; p <= ctx.Config.PeriodsPerDay; p++ {
				for _, rec := range ctx.Grid.RecordsAt(classID, day, p) {
					if lessonSharesSubject(ctx.Lessons, rec.LessonID, subjectSet) {
						count++
						break
					}
				}
			}
			if count >= 3 {
				total += ctx.Weights.SubjectDayImbalance * (count - 2)
			}
		}
	}

	// Daily / weekly overload.
	dailyLimit := ctx.DailyLimit
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	weeklyLimit := ctx.WeeklyLimit
	if weeklyLimit <= 0 {
		weeklyLimit = DefaultWeeklyLimit
	}
	for _, teacherID := range task.Teachers {
		hypotheticalDay := ctx.Grid.TeacherDayLoad(teacherID, day) + len(periods)
		if hypotheticalDay >= dailyLimit {
			over := hypotheticalDay - dailyLimit + 1
			total += ctx.Weights.DailyOverload * over
		}
		hypotheticalWeek := ctx.Grid.TeacherWeekLoad(teacherID) + len(periods)
		if hypotheticalWeek >= weeklyLimit {
			over := hypotheticalWeek - weeklyLimit + 1
			total += ctx.Weights.WeeklyOverload * over
		}
	}

	return total
}

// ConflictCount is the legacy integer wrapper used by the main repair
// loop: it rounds the full penalty up to units of 100.
func ConflictCount(penalty int) int {
	if penalty <= 0 {
		return 0
	}
	return (penalty + 99) / 100
}

func teacherDayPeriods(g *Grid, teacherID string, day, periodsPerDay int) map[int]bool {
	occupied := make(map[int]bool)
	for p := 1; p <= periodsPerDay; p++ {
		if g.TeacherBusyCount(teacherID, day, p) > 0 {
			occupied[p] = true
		}
	}
	return occupied
}

func periodRange(periods map[int]bool) (min, max int) {
	first := true
	for p := range periods {
		if first {
			min, max = p, p
			first = false
			continue
		}
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return min, max
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// RefreshConflict recomputes and stores task.ConflictCount against the
// rest of the grid, excluding the task's own contribution to busy
// counts. It returns the full penalty for callers that need the
// richer signal (e.g. the annealing energy).
func RefreshConflict(task *Task, ctx PenaltyContext) int {
	if !task.Placed {
		return 0
	}
	day, period := task.Day, task.Period
	ctx.Grid.Remove(task)
	penalty := Penalty(task, day, period, ctx)
	ctx.Grid.Place(task, day, period)
	task.Penalty = penalty
	task.ConflictCount = ConflictCount(penalty)
	return penalty
}

func lessonSharesSubject(lessons map[string]Lesson, lessonID string, subjects map[string]bool) bool {
	lesson, ok := lessons[lessonID]
	if !ok {
		return false
	}
	for _, s := range lesson.SubjectIDs {
		if subjects[s] {
			return true
		}
	}
	return false
}
