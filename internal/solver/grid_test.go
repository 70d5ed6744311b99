package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		PeriodsPerDay:      6,
		Days:               []string{"MON", "TUE", "WED", "THU", "FRI"},
		IntervalBoundaries: []int{3},
	}
}

func TestGridPlaceAndRemoveRoundTrip(t *testing.T) {
	g := NewGrid(testConfig())
	task := &Task{ID: 1, LessonID: "math", Teachers: []string{"t1"}, Classes: []string{"c1"}}

	g.Place(task, 1, 2)
	require.True(t, task.Placed)
	assert.Equal(t, 1, g.TeacherBusyCount("t1", 1, 2))
	assert.Equal(t, 1, g.ClassBusyCount("c1", 1, 2))
	assert.Equal(t, 1, g.TeacherDayLoad("t1", 1))
	assert.Equal(t, 1, g.TeacherWeekLoad("t1"))

	g.Remove(task)
	assert.False(t, task.Placed)
	assert.Equal(t, 0, g.TeacherBusyCount("t1", 1, 2))
	assert.Equal(t, 0, g.ClassBusyCount("c1", 1, 2))
	assert.Equal(t, 0, g.TeacherDayLoad("t1", 1))
	assert.Equal(t, 0, g.TeacherWeekLoad("t1"))
}

func TestGridDoubleOccupiesTwoPeriods(t *testing.T) {
	g := NewGrid(testConfig())
	task := &Task{ID: 1, LessonID: "math", IsDouble: true, Teachers: []string{"t1"}, Classes: []string{"c1"}}

	g.Place(task, 1, 4)

	assert.Equal(t, 1, g.ClassBusyCount("c1", 1, 4))
	assert.Equal(t, 1, g.ClassBusyCount("c1", 1, 5))
	recs := g.RecordsAt("c1", 1, 4)
	require.Len(t, recs, 1)
	assert.Equal(t, SlotDoubleStart, recs[0].Kind)
	recs = g.RecordsAt("c1", 1, 5)
	require.Len(t, recs, 1)
	assert.Equal(t, SlotDoubleEnd, recs[0].Kind)
}

func TestGridMultipleRecordsOnConflict(t *testing.T) {
	g := NewGrid(testConfig())
	a := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	b := &Task{ID: 2, Teachers: []string{"t1"}, Classes: []string{"c1"}}

	g.Place(a, 1, 1)
	g.Place(b, 1, 1)

	assert.Equal(t, 2, g.TeacherBusyCount("t1", 1, 1))
	assert.Equal(t, 2, g.ClassBusyCount("c1", 1, 1))
	assert.ElementsMatch(t, []int{1, 2}, g.TeacherTasksAt("t1", 1, 1))
}

func TestGridMoveIsRemoveThenPlace(t *testing.T) {
	g := NewGrid(testConfig())
	task := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(task, 1, 1)

	g.Move(task, 2, 4)

	assert.Equal(t, 0, g.TeacherBusyCount("t1", 1, 1))
	assert.Equal(t, 1, g.TeacherBusyCount("t1", 2, 4))
	assert.Equal(t, 2, task.Day)
	assert.Equal(t, 4, task.Period)
}

func TestConfigValidDoubleStarts(t *testing.T) {
	cfg := testConfig()
	starts := cfg.ValidDoubleStarts()
	assert.NotContains(t, starts, 3)
	assert.NotContains(t, starts, 6)
	assert.Contains(t, starts, 1)
	assert.Contains(t, starts, 4)
}
