package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDiagnosticReportGroupsByLesson(t *testing.T) {
	classes := []Class{{ID: "c1"}, {ID: "c2"}}
	cfg := Config{PeriodsPerDay: 1, Days: []string{"MON"}}
	lessons := []Lesson{
		{ID: "a", Name: "Lesson A", TeacherIDs: []string{"t1"}, ClassIDs: []string{"c1"}, Singles: 1},
		{ID: "b", Name: "Lesson B", TeacherIDs: []string{"t1"}, ClassIDs: []string{"c2"}, Singles: 1},
	}
	opts := fastOptions(21)
	opts.MaxIterations = 10
	state := newTestState(lessons, classes, cfg, opts)
	ctx := state.penaltyContext()
	for _, task := range state.Tasks {
		RefreshConflict(task, ctx)
	}

	report := BuildDiagnosticReport(state)

	if totalConflictCount(state.Tasks) == 0 {
		t.Skip("greedy init happened to be conflict-free for this seed")
	}
	require.NotEmpty(t, report)
	for _, fl := range report {
		assert.NotEmpty(t, fl.Reasons)
	}
}

func TestBuildDiagnosticReportEmptyWhenNoConflicts(t *testing.T) {
	classes := []Class{{ID: "c1"}}
	lessons := []Lesson{
		{ID: "math", TeacherIDs: []string{"t1"}, ClassIDs: []string{"c1"}, Singles: 2},
	}
	opts := fastOptions(22)
	state := newTestState(lessons, classes, smallConfig(), opts)
	engine := newRepairEngine(state)
	engine.Run()

	report := BuildDiagnosticReport(state)

	assert.Empty(t, report)
}

func TestSuggestSwapsRestoresOriginalPlacement(t *testing.T) {
	g := NewGrid(Config{PeriodsPerDay: 1, Days: []string{"MON", "TUE"}})
	ctx := testPenaltyContext(g, nil)
	blocker := &Task{ID: 1, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(blocker, 1, 1)
	conflicted := &Task{ID: 2, Teachers: []string{"t1"}, Classes: []string{"c1"}}
	g.Place(conflicted, 1, 1)
	conflicted.Penalty = Penalty(conflicted, 1, 1, ctx)

	suggestions := suggestSwaps(conflicted, ctx, 3)

	assert.Equal(t, 1, conflicted.Day)
	assert.Equal(t, 1, conflicted.Period)
	if len(suggestions) > 0 {
		assert.Equal(t, 2, suggestions[0].ToDay)
	}
}

func TestFeasibilityLabelThresholds(t *testing.T) {
	assert.Equal(t, "easy", feasibilityLabel(0))
	assert.Equal(t, "moderate", feasibilityLabel(150))
	assert.Equal(t, "hard", feasibilityLabel(1500))
}
