package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeFlattensPlacedTasksOnly(t *testing.T) {
	g := NewGrid(smallConfig())
	placed := &Task{ID: 1, LessonID: "math", Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(placed, 2, 4)
	unplaced := &Task{ID: 2, LessonID: "sci", Teachers: []string{"t2"}, Classes: []string{"c1"}}

	slots := Serialize(g, []*Task{placed, unplaced}, smallConfig())

	require.Len(t, slots, 1)
	assert.Equal(t, "c1", slots[0].ClassID)
	assert.Equal(t, "TUE", slots[0].Day)
	assert.Equal(t, 4, slots[0].Period)
	assert.Equal(t, SlotSingle, slots[0].Kind)
}

func TestSerializeDoubleEmitsTwoRecords(t *testing.T) {
	g := NewGrid(smallConfig())
	task := &Task{ID: 1, LessonID: "lab", IsDouble: true, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(task, 1, 1)

	slots := Serialize(g, []*Task{task}, smallConfig())

	require.Len(t, slots, 2)
	assert.Equal(t, SlotDoubleStart, slots[0].Kind)
	assert.Equal(t, SlotDoubleEnd, slots[1].Kind)
}

func TestSerializeIsSortedByClassDayPeriod(t *testing.T) {
	g := NewGrid(smallConfig())
	taskA := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c2"}}
	taskB := &Task{ID: 2, Teachers: []string{"t2"}, Classes: []string{"c1"}}
	g.Place(taskA, 1, 1)
	g.Place(taskB, 1, 1)

	slots := Serialize(g, []*Task{taskA, taskB}, smallConfig())

	require.Len(t, slots, 2)
	assert.Equal(t, "c1", slots[0].ClassID)
	assert.Equal(t, "c2", slots[1].ClassID)
}
