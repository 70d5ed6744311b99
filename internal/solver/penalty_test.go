package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testPenaltyContext(g *Grid, lessons map[string]Lesson) PenaltyContext {
	return PenaltyContext{
		Grid:        g,
		Lessons:     lessons,
		Weights:     DefaultWeights(),
		Config:      testConfig(),
		DailyLimit:  DefaultDailyLimit,
		WeeklyLimit: DefaultWeeklyLimit,
	}
}

func TestPenaltyZeroOnEmptyGrid(t *testing.T) {
	g := NewGrid(testConfig())
	ctx := testPenaltyContext(g, nil)
	task := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c1"}}

	assert.Equal(t, 0, Penalty(task, 1, 1, ctx))
}

func TestPenaltyTeacherOverlapWeighted(t *testing.T) {
	g := NewGrid(testConfig())
	ctx := testPenaltyContext(g, nil)
	existing := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(existing, 1, 1)

	incoming := &Task{ID: 2, Teachers: []string{"t1"}, Classes: []string{"c2"}}
	penalty := Penalty(incoming, 1, 1, ctx)

	assert.GreaterOrEqual(t, penalty, ctx.Weights.TeacherOverlap)
}

func TestPenaltyIntervalViolationOnDoubleAtBoundary(t *testing.T) {
	g := NewGrid(testConfig())
	ctx := testPenaltyContext(g, nil)
	task := &Task{ID: 1, IsDouble: true, Teachers: []string{"t1"}, Classes: []string{"c1"}}

	penalty := Penalty(task, 1, 3, ctx) // 3 is the configured interval boundary
	assert.GreaterOrEqual(t, penalty, ctx.Weights.IntervalViolation)
}

func TestPenaltyNoIntervalViolationAwayFromBoundary(t *testing.T) {
	g := NewGrid(testConfig())
	ctx := testPenaltyContext(g, nil)
	task := &Task{ID: 1, IsDouble: true, Teachers: []string{"t1"}, Classes: []string{"c1"}}

	penalty := Penalty(task, 1, 1, ctx)
	assert.Equal(t, 0, penalty)
}

func TestConflictCountRoundsUpToHundreds(t *testing.T) {
	assert.Equal(t, 0, ConflictCount(0))
	assert.Equal(t, 0, ConflictCount(-5))
	assert.Equal(t, 1, ConflictCount(1))
	assert.Equal(t, 1, ConflictCount(100))
	assert.Equal(t, 2, ConflictCount(101))
}

func TestPenaltyDailyOverloadAppliesAtLimit(t *testing.T) {
	g := NewGrid(testConfig())
	ctx := testPenaltyContext(g, nil)
	ctx.DailyLimit = 2

	first := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(first, 1, 1)
	second := &Task{ID: 2, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(second, 1, 2)

	incoming := &Task{ID: 3, Teachers: []string{"t1"}, Classes: []string{"c2"}}
	penalty := Penalty(incoming, 1, 3, ctx)

	assert.GreaterOrEqual(t, penalty, ctx.Weights.DailyOverload)
}

func TestPenaltySubjectDayImbalance(t *testing.T) {
	lessons := map[string]Lesson{
		"math-a": {ID: "math-a", SubjectIDs: []string{"math"}},
		"math-b": {ID: "math-b", SubjectIDs: []string{"math"}},
	}
	g := NewGrid(testConfig())
	ctx := testPenaltyContext(g, lessons)

	for i, p := range []int{1, 2, 3} {
		existing := &Task{ID: i + 1, LessonID: "math-a", Teachers: []string{"t1"}, Classes: []string{"c1"}}
		g.Place(existing, 1, p)
	}

	incoming := &Task{ID: 99, LessonID: "math-b", SubjectIDs: []string{"math"}, Teachers: []string{"t2"}, Classes: []string{"c1"}}
	penalty := Penalty(incoming, 1, 4, ctx)

	assert.GreaterOrEqual(t, penalty, ctx.Weights.SubjectDayImbalance)
}

func TestRefreshConflictExcludesOwnContribution(t *testing.T) {
	g := NewGrid(testConfig())
	ctx := testPenaltyContext(g, nil)
	solo := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(solo, 1, 1)

	penalty := RefreshConflict(solo, ctx)
	assert.Equal(t, 0, penalty)
	assert.Equal(t, 0, solo.ConflictCount)
	assert.True(t, solo.Placed)
	assert.Equal(t, 1, solo.Day)
	assert.Equal(t, 1, solo.Period)
}
