package solver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(lessons []Lesson, classes []Class, cfg Config, opts Options) *SolverState {
	state := NewSolverState(lessons, classes, cfg, opts)
	ctx := state.penaltyContext()
	InitializeGreedy(state.Tasks, ctx, state.rng)
	return state
}

func TestRepairEngineReducesOrHoldsConflicts(t *testing.T) {
	classes := []Class{{ID: "c1"}}
	lessons := []Lesson{
		{ID: "math", TeacherIDs: []string{"t1"}, ClassIDs: []string{"c1"}, Singles: 4},
		{ID: "sci", TeacherIDs: []string{"t1"}, ClassIDs: []string{"c1"}, Singles: 4},
	}
	opts := fastOptions(11)
	state := newTestState(lessons, classes, smallConfig(), opts)
	before := totalConflictCount(state.Tasks)

	engine := newRepairEngine(state)
	stats := engine.Run()

	after := totalConflictCount(state.Tasks)
	assert.LessOrEqual(t, after, before)
	assert.Greater(t, stats.Iterations, 0)
}

func TestRepairEngineStopsWhenConflictFree(t *testing.T) {
	classes := []Class{{ID: "c1"}}
	lessons := []Lesson{
		{ID: "math", TeacherIDs: []string{"t1"}, ClassIDs: []string{"c1"}, Singles: 2},
	}
	opts := fastOptions(12)
	state := newTestState(lessons, classes, smallConfig(), opts)

	engine := newRepairEngine(state)
	stats := engine.Run()

	assert.Equal(t, 0, totalConflictCount(state.Tasks))
	assert.Less(t, stats.Iterations, opts.MaxIterations)
}

func TestRandomRelocateKeepsTaskPlaced(t *testing.T) {
	g := NewGrid(smallConfig())
	ctx := testPenaltyContext(g, nil)
	task := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(task, 1, 1)

	state := &SolverState{
		Config:   smallConfig(),
		Tasks:    []*Task{task},
		TaskByID: map[int]*Task{1: task},
		Grid:     g,
		Options:  DefaultOptions(),
		rng:      rand.New(rand.NewSource(1)),
	}
	engine := &repairEngine{state: state, ctx: ctx, opts: state.Options}

	snapshots := engine.randomRelocate(task)

	require.Len(t, snapshots, 1)
	assert.True(t, task.Placed)
}

func TestPairwiseSwapExchangesPlacements(t *testing.T) {
	g := NewGrid(smallConfig())
	ctx := testPenaltyContext(g, nil)
	a := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	b := &Task{ID: 2, Teachers: []string{"t2"}, Classes: []string{"c2"}}
	g.Place(a, 1, 1)
	g.Place(b, 2, 3)

	state := &SolverState{
		Config:   smallConfig(),
		Tasks:    []*Task{a, b},
		TaskByID: map[int]*Task{1: a, 2: b},
		Grid:     g,
		Options:  DefaultOptions(),
		rng:      rand.New(rand.NewSource(1)),
	}
	engine := &repairEngine{state: state, ctx: ctx, opts: state.Options}

	engine.pairwiseSwap(a)

	assert.Equal(t, 2, a.Day)
	assert.Equal(t, 3, a.Period)
	assert.Equal(t, 1, b.Day)
	assert.Equal(t, 1, b.Period)
}

func TestStrategicShuffleKeepsTotalTaskCount(t *testing.T) {
	classes := []Class{{ID: "c1"}}
	lessons := []Lesson{
		{ID: "math", TeacherIDs: []string{"t1"}, ClassIDs: []string{"c1"}, Singles: 6},
	}
	opts := fastOptions(13)
	state := newTestState(lessons, classes, smallConfig(), opts)
	engine := newRepairEngine(state)

	engine.strategicShuffle()

	assert.Len(t, state.Tasks, 6)
}
