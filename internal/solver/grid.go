package solver

// Record is what a grid cell holds for one placed task. Under
// conflict a single cell can hold more than one record.
type Record struct {
	TaskID   int
	LessonID string
	Kind     SlotKind
}

type cellKey struct {
	ClassID string
	Day     int
	Period  int
}

type resourceKey struct {
	ID     string
	Day    int
	Period int
}

// Grid is the shared occupancy index: for every (class, day, period)
// it records the set of tasks placed there (which may contain
// conflicts), and it tracks teacher busy cells and load counters used
// by the penalty function and repair engine.
type Grid struct {
	cfg Config

	cells        map[cellKey][]Record
	teacherCells map[resourceKey][]int // task IDs occupying (teacher, day, period)

	teacherDayLoad  map[resourceKey]int // Period field unused (0)
	teacherWeekLoad map[string]int
	classWeekLoad   map[string]int
}

// NewGrid builds an empty occupancy index for the given configuration.
func NewGrid(cfg Config) *Grid {
	return &Grid{
		cfg:             cfg,
		cells:           make(map[cellKey][]Record),
		teacherCells:    make(map[resourceKey][]int),
		teacherDayLoad:  make(map[resourceKey]int),
		teacherWeekLoad: make(map[string]int),
		classWeekLoad:   make(map[string]int),
	}
}

// TeacherBusyCount returns how many tasks currently occupy
// (teacher, day, period).
func (g *Grid) TeacherBusyCount(teacherID string, day, period int) int {
	return len(g.teacherCells[resourceKey{ID: teacherID, Day: day, Period: period}])
}

// TeacherTasksAt returns the task IDs occupying (teacher, day, period).
func (g *Grid) TeacherTasksAt(teacherID string, day, period int) []int {
	return g.teacherCells[resourceKey{ID: teacherID, Day: day, Period: period}]
}

// ClassBusyCount returns how many records currently occupy
// (classID, day, period).
func (g *Grid) ClassBusyCount(classID string, day, period int) int {
	return len(g.cells[cellKey{ClassID: classID, Day: day, Period: period}])
}

// RecordsAt returns the records held by a (class, day, period) cell.
func (g *Grid) RecordsAt(classID string, day, period int) []Record {
	return g.cells[cellKey{ClassID: classID, Day: day, Period: period}]
}

// TeacherDayLoad returns how many periods a teacher is already
// occupied for on the given day.
func (g *Grid) TeacherDayLoad(teacherID string, day int) int {
	return g.teacherDayLoad[resourceKey{ID: teacherID, Day: day}]
}

// TeacherWeekLoad returns a teacher's total occupied periods this week.
func (g *Grid) TeacherWeekLoad(teacherID string) int {
	return g.teacherWeekLoad[teacherID]
}

// ClassWeekLoad returns a class's total occupied periods this week.
func (g *Grid) ClassWeekLoad(classID string) int {
	return g.classWeekLoad[classID]
}

// Place binds task into the grid at (day, startPeriod), writing a
// record for every (class, occupied period) and incrementing teacher
// and class load counters. It does not check for conflicts;
// overlapping placements are allowed and simply produce multi-record
// cells.
func (g *Grid) Place(task *Task, day, startPeriod int) {
	periods := task.OccupiedPeriods(startPeriod)
	for idx, p := range periods {
		kind := slotKindFor(idx, len(periods))
		for _, classID := range task.Classes {
			key := cellKey{ClassID: classID, Day: day, Period: p}
			g.cells[key] = append(g.cells[key], Record{TaskID: task.ID, LessonID: task.LessonID, Kind: kind})
			g.classWeekLoad[classID]++
		}
		for _, teacherID := range task.Teachers {
			key := resourceKey{ID: teacherID, Day: day, Period: p}
			g.teacherCells[key] = append(g.teacherCells[key], task.ID)
			g.teacherDayLoad[resourceKey{ID: teacherID, Day: day}]++
			g.teacherWeekLoad[teacherID]++
		}
	}

	task.Placed = true
	task.Day = day
	task.Period = startPeriod
}

// Remove undoes a previous Place for task, restoring the index to the
// state it would have had without that task. It is the exact inverse
// of Place given the same (day, startPeriod) the task was placed at.
func (g *Grid) Remove(task *Task) {
	if !task.Placed {
		return
	}
	periods := task.OccupiedPeriods(task.Period)
	for _, p := range periods {
		for _, classID := range task.Classes {
			key := cellKey{ClassID: classID, Day: task.Day, Period: p}
			g.cells[key] = removeRecord(g.cells[key], task.ID)
			if len(g.cells[key]) == 0 {
				delete(g.cells, key)
			}
			if g.classWeekLoad[classID] > 0 {
				g.classWeekLoad[classID]--
			}
		}
		for _, teacherID := range task.Teachers {
			key := resourceKey{ID: teacherID, Day: task.Day, Period: p}
			g.teacherCells[key] = removeTaskID(g.teacherCells[key], task.ID)
			if len(g.teacherCells[key]) == 0 {
				delete(g.teacherCells, key)
			}
			dayKey := resourceKey{ID: teacherID, Day: task.Day}
			if g.teacherDayLoad[dayKey] > 0 {
				g.teacherDayLoad[dayKey]--
			}
			if g.teacherWeekLoad[teacherID] > 0 {
				g.teacherWeekLoad[teacherID]--
			}
		}
	}
	task.Placed = false
	task.Day = 0
	task.Period = 0
}

// Move removes task from its current placement and places it at
// (day, startPeriod) in a single logical step.
func (g *Grid) Move(task *Task, day, startPeriod int) {
	g.Remove(task)
	g.Place(task, day, startPeriod)
}

func slotKindFor(idx, total int) SlotKind {
	if total == 1 {
		return SlotSingle
	}
	if idx == 0 {
		return SlotDoubleStart
	}
	return SlotDoubleEnd
}

func removeRecord(records []Record, taskID int) []Record {
	out := records[:0]
	for _, r := range records {
		if r.TaskID != taskID {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func removeTaskID(ids []int, taskID int) []int {
	out := ids[:0]
	for _, id := range ids {
		if id != taskID {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
