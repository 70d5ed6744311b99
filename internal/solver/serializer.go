package solver

import "sort"

// Serialize flattens every placed task's grid presence into the
// external slot-record shape (§4.6): one record per (class, occupied
// period) touched by a placed task. Unplaced tasks (degenerate
// configs with no legal slot at all) contribute nothing.
func Serialize(grid *Grid, tasks []*Task, cfg Config) []SlotRecord {
	slots := make([]SlotRecord, 0, len(tasks))
	for _, task := range tasks {
		if !task.Placed {
			continue
		}
		periods := task.OccupiedPeriods(task.Period)
		dayName := dayName(cfg, task.Day)
		for idx, p := range periods {
			kind := slotKindFor(idx, len(periods))
			for _, classID := range task.Classes {
				slots = append(slots, SlotRecord{
					ClassID:  classID,
					LessonID: task.LessonID,
					Day:      dayName,
					Period:   p,
					Kind:     kind,
				})
			}
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].ClassID != slots[j].ClassID {
			return slots[i].ClassID < slots[j].ClassID
		}
		if slots[i].Day != slots[j].Day {
			return slots[i].Day < slots[j].Day
		}
		return slots[i].Period < slots[j].Period
	})

	return slots
}

func dayName(cfg Config, day int) string {
	if day < 1 || day > len(cfg.Days) {
		return ""
	}
	return cfg.Days[day-1]
}
