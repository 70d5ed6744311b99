package solver

import (
	"math/rand"
	"sort"
	"strings"
)

// DefaultPriorityKeywords is the stated default priority-keyword list
// used to bias task ordering toward historically hard-to-place
// lessons (§4.3, §6).
var DefaultPriorityKeywords = []string{"ITT", "B1", "AESTHETIC", "COMBINED"}

// ExpandLessons turns every lesson into its constituent tasks: one per
// required single, one per required double.
func ExpandLessons(lessons []Lesson) []*Task {
	tasks := make([]*Task, 0)
	nextID := 0
	for _, lesson := range lessons {
		for i := 0; i < lesson.Singles; i++ {
			tasks = append(tasks, newTask(nextID, lesson, false))
			nextID++
		}
		for i := 0; i < lesson.Doubles; i++ {
			tasks = append(tasks, newTask(nextID, lesson, true))
			nextID++
		}
	}
	return tasks
}

func newTask(id int, lesson Lesson, isDouble bool) *Task {
	return &Task{
		ID:         id,
		LessonID:   lesson.ID,
		LessonName: lesson.Name,
		IsDouble:   isDouble,
		Teachers:   append([]string(nil), lesson.TeacherIDs...),
		Classes:    append([]string(nil), lesson.ClassIDs...),
		SubjectIDs: append([]string(nil), lesson.SubjectIDs...),
	}
}

// OrderTasks sorts tasks by the §4.3 total order: resource-block size
// descending, priority-keyword bonus descending, teacher+class count
// descending, doubles-count descending, total-periods descending, with
// ties broken by stable task id.
func OrderTasks(tasks []*Task, lessons map[string]Lesson, keywords []string) {
	if len(keywords) == 0 {
		keywords = DefaultPriorityKeywords
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		la, lb := lessons[a.LessonID], lessons[b.LessonID]

		blockA := len(a.Teachers) * len(a.Classes)
		blockB := len(b.Teachers) * len(b.Classes)
		if blockA != blockB {
			return blockA > blockB
		}

		bonusA := priorityBonus(la.Name, keywords)
		bonusB := priorityBonus(lb.Name, keywords)
		if bonusA != bonusB {
			return bonusA > bonusB
		}

		sumA := len(a.Teachers) + len(a.Classes)
		sumB := len(b.Teachers) + len(b.Classes)
		if sumA != sumB {
			return sumA > sumB
		}

		if la.Doubles != lb.Doubles {
			return la.Doubles > lb.Doubles
		}

		totalA := la.TotalPeriods()
		totalB := lb.TotalPeriods()
		if totalA != totalB {
			return totalA > totalB
		}

		return a.ID < b.ID
	})
}

func priorityBonus(name string, keywords []string) int {
	upper := strings.ToUpper(name)
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(upper, strings.ToUpper(k)) {
			return 1
		}
	}
	return 0
}

// candidateSlot is one (day, period) pair considered by the greedy
// and repair placement rule.
type candidateSlot struct {
	Day    int
	Period int
}

// BestSlot implements the §4.3 placement rule: iterate every day and
// every legal starting period, score each candidate as
// conflictCount - 0.1*balanceScore (kept in scaled-integer form per
// §5's determinism requirement: score10 = 10*conflictCount -
// balanceScore), and return the first minimum-scoring slot. When the
// guard blocks every day it falls back to a random legal slot itself;
// ok is false only when no legal slot exists for this task at all
// (e.g. a single-period grid with zero valid periods).
func BestSlot(task *Task, ctx PenaltyContext, rng *rand.Rand, guardBlockedDays map[int]bool) (day, period int, ok bool) {
	bestScore := 0
	found := false

	for dayIdx := 1; dayIdx <= len(ctx.Config.Days); dayIdx++ {
		if guardBlockedDays != nil && guardBlockedDays[dayIdx] {
			continue
		}
		for _, p := range candidatePeriods(task, ctx.Config) {
			conflict := ConflictCount(Penalty(task, dayIdx, p, ctx))
			balance := balanceScore(task, ctx.Grid, dayIdx)
			score10 := 10*conflict - balance
			if !found || score10 < bestScore {
				bestScore = score10
				day, period = dayIdx, p
				found = true
			}
		}
	}

	if found {
		return day, period, true
	}

	// Every day was filtered out by the guard (or the grid has no legal
	// slots at all): fall back to a uniformly random legal slot,
	// ignoring the guard.
	return randomLegalSlot(task, ctx.Config, rng)
}

func candidatePeriods(task *Task, cfg Config) []int {
	if task.IsDouble {
		return cfg.ValidDoubleStarts()
	}
	periods := make([]int, 0, cfg.PeriodsPerDay)
	for p := 1; p <= cfg.PeriodsPerDay; p++ {
		periods = append(periods, p)
	}
	return periods
}

func balanceScore(task *Task, g *Grid, day int) int {
	total := 0
	for _, teacherID := range task.Teachers {
		load := g.TeacherDayLoad(teacherID, day)
		if remaining := DefaultDailyLimit - load; remaining > 0 {
			total += remaining
		}
	}
	return total
}

func randomLegalSlot(task *Task, cfg Config, rng *rand.Rand) (day, period int, ok bool) {
	var all []candidateSlot
	for dayIdx := 1; dayIdx <= len(cfg.Days); dayIdx++ {
		for _, p := range candidatePeriods(task, cfg) {
			all = append(all, candidateSlot{Day: dayIdx, Period: p})
		}
	}
	if len(all) == 0 {
		return 0, 0, false
	}
	pick := all[rng.Intn(len(all))]
	return pick.Day, pick.Period, true
}

// guardBlockedDaysFor reports, per day, whether task's lesson already has
// a record for one of task's classes on that day. This is the
// per-class daily-lesson-repeat guard referenced in §4.3: it steers
// the initializer away from stacking two instances of the same lesson
// on the same day before falling back to an unguarded random slot.
func guardBlockedDaysFor(task *Task, g *Grid, cfg Config) map[int]bool {
	blocked := make(map[int]bool)
	for dayIdx := 1; dayIdx <= len(cfg.Days); dayIdx++ {
		for _, classID := range task.Classes {
			for p := 1; p <= cfg.PeriodsPerDay; p++ {
				for _, rec := range g.RecordsAt(classID, dayIdx, p) {
					if rec.LessonID == task.LessonID {
						blocked[dayIdx] = true
					}
				}
			}
		}
	}
	return blocked
}

// InitializeGreedy places every task in order, never rejecting one for
// its conflicts: it takes the best slot even if that slot is
// conflict-laden. A task is left unplaced only when no legal slot
// exists for it at all.
func InitializeGreedy(tasks []*Task, ctx PenaltyContext, rng *rand.Rand) {
	for _, task := range tasks {
		guard := guardBlockedDaysFor(task, ctx.Grid, ctx.Config)
		day, period, ok := BestSlot(task, ctx, rng, guard)
		if !ok {
			// No legal slot exists at all (degenerate config); skip.
			continue
		}
		penalty := Penalty(task, day, period, ctx)
		ctx.Grid.Place(task, day, period)
		task.Penalty = penalty
		task.ConflictCount = ConflictCount(penalty)
	}
}
