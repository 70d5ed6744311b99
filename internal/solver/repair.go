package solver

import (
	"math"
	"sort"
)

// RepairStats summarises one repair run for diagnostics (§6 stats).
type RepairStats struct {
	Iterations      int
	SwapAttempts    int
	SuccessfulSwaps int
}

type placementSnapshot struct {
	task   *Task
	day    int
	period int
}

func snapshotOf(t *Task) placementSnapshot {
	return placementSnapshot{task: t, day: t.Day, period: t.Period}
}

type repairEngine struct {
	state *SolverState
	ctx   PenaltyContext
	opts  Options
}

func newRepairEngine(state *SolverState) *repairEngine {
	return &repairEngine{state: state, ctx: state.penaltyContext(), opts: state.Options}
}

// Run executes the §4.4 stochastic repair main loop: reheating on
// stagnation, strategic shuffle on deeper stagnation, and a 30%
// chain-swap / 70% simple-move operator mix gated by a Metropolis
// acceptance test. It terminates on zero conflicts, on exhausting
// MaxIterations, or on an external cancellation signal checked at
// every progress-tick boundary. Reaching StagnationThreshold reheats and
// resets the stagnation counter, so the strategic shuffle only runs when
// ShuffleThreshold does not exceed StagnationThreshold; with the default
// options (50 000 and 200 000) it never runs.
func (e *repairEngine) Run() RepairStats {
	stats := RepairStats{}
	current := e.energy()
	best := current
	sinceImprovement := 0
	temperature := 1.0

	for iter := 0; iter < e.opts.MaxIterations; iter++ {
		stats.Iterations = iter + 1

		if sinceImprovement >= e.opts.StagnationThreshold {
			temperature = e.opts.ReheatTemperature
			sinceImprovement = 0
		}
		if sinceImprovement >= e.opts.ShuffleThreshold {
			e.strategicShuffle()
			temperature = 1.0
			sinceImprovement = 0
			current = e.energy()
		}

		conflicting := e.conflictingTasks()
		if len(conflicting) == 0 {
			break
		}

		a := conflicting[e.state.rng.Intn(len(conflicting))]

		var touched []placementSnapshot
		stats.SwapAttempts++
		if e.state.rng.Float64() < 0.3 {
			touched = e.chainSwap(a)
		} else {
			touched = e.simpleMove(a)
		}

		newEnergy := e.energy()
		delta := newEnergy - current

		accept := delta <= 0
		if !accept {
			probability := math.Exp(-float64(delta) / temperature)
			accept = e.state.rng.Float64() < probability
		}

		if accept {
			current = newEnergy
			if newEnergy < best {
				best = newEnergy
				sinceImprovement = 0
				stats.SuccessfulSwaps++
			} else {
				sinceImprovement++
			}
		} else {
			sinceImprovement++
			// Source-equivalent default: the operator's mutation already
			// stands. RevertOnReject recovers a textbook SA revert. See
			// spec §9 and DESIGN.md.
			if e.opts.RevertOnReject && len(touched) > 0 {
				e.revert(touched)
				current = e.energy()
			}
		}

		temperature = math.Max(0.0001, temperature-e.opts.CoolingRate)

		if (iter+1)%e.opts.ProgressEvery == 0 {
			if e.opts.OnProgress != nil {
				e.opts.OnProgress(iter+1, totalConflictCount(e.state.Tasks))
			}
			if e.opts.Cancel != nil {
				select {
				case <-e.opts.Cancel:
					return stats
				default:
				}
			}
		}
	}

	return stats
}

func (e *repairEngine) energy() int {
	if e.opts.UseFullPenaltyAsEnergy {
		return totalPenaltySum(e.state.Tasks)
	}
	return totalConflictCount(e.state.Tasks)
}

func (e *repairEngine) conflictingTasks() []*Task {
	out := make([]*Task, 0)
	for _, t := range e.state.Tasks {
		if t.ConflictCount > 0 {
			out = append(out, t)
		}
	}
	return out
}

func (e *repairEngine) revert(snapshots []placementSnapshot) {
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		e.ctx.Grid.Move(snap.task, snap.day, snap.period)
	}
	for _, snap := range snapshots {
		RefreshConflict(snap.task, e.ctx)
	}
}

// simpleMove implements §4.4.2: 70% random relocate, 30% pairwise
// swap.
func (e *repairEngine) simpleMove(a *Task) []placementSnapshot {
	if e.state.rng.Float64() < 0.3 {
		return e.pairwiseSwap(a)
	}
	return e.randomRelocate(a)
}

func (e *repairEngine) randomRelocate(a *Task) []placementSnapshot {
	before := snapshotOf(a)
	e.ctx.Grid.Remove(a)
	guard := guardBlockedDaysFor(a, e.ctx.Grid, e.state.Config)
	day, period, ok := BestSlot(a, e.ctx, e.state.rng, guard)
	if !ok {
		day, period = before.day, before.period
	}
	e.ctx.Grid.Place(a, day, period)
	RefreshConflict(a, e.ctx)
	return []placementSnapshot{before}
}

func (e *repairEngine) pairwiseSwap(a *Task) []placementSnapshot {
	var candidates []*Task
	for _, t := range e.state.Tasks {
		if t.ID == a.ID || !t.Placed || t.IsDouble != a.IsDouble {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return e.randomRelocate(a)
	}
	b := candidates[e.state.rng.Intn(len(candidates))]

	beforeA := snapshotOf(a)
	beforeB := snapshotOf(b)

	e.ctx.Grid.Remove(a)
	e.ctx.Grid.Remove(b)
	e.ctx.Grid.Place(a, beforeB.day, beforeB.period)
	e.ctx.Grid.Place(b, beforeA.day, beforeA.period)

	RefreshConflict(a, e.ctx)
	RefreshConflict(b, e.ctx)

	return []placementSnapshot{beforeA, beforeB}
}

// chainSwap implements §4.4.1: a two-level (A->B, with one further
// B->C lookahead) rotation, matching §9's correction that the source
// states depth 3 but implements depth 2 with one-level lookahead.
func (e *repairEngine) chainSwap(a *Task) []placementSnapshot {
	neighbors := e.overlappingTasks(a, e.opts.ChainSearchLimit)
	if len(neighbors) == 0 {
		return nil
	}
	b := neighbors[e.state.rng.Intn(len(neighbors))]

	aBefore := snapshotOf(a)
	bBefore := snapshotOf(b)

	e.ctx.Grid.Remove(b)
	origPenaltyB := Penalty(b, bBefore.day, bBefore.period, e.ctx)
	bDay, bPeriod, bPenalty, found := e.scanBetterSlot(b, origPenaltyB)
	if !found {
		e.ctx.Grid.Place(b, bBefore.day, bBefore.period)
		return nil
	}

	occupant := e.occupantAt(b, bDay, bPeriod)
	if occupant == nil {
		e.ctx.Grid.Remove(a)
		e.ctx.Grid.Place(a, bBefore.day, bBefore.period)
		e.ctx.Grid.Place(b, bDay, bPeriod)
		RefreshConflict(a, e.ctx)
		RefreshConflict(b, e.ctx)
		_ = bPenalty
		return []placementSnapshot{aBefore, bBefore}
	}

	c := occupant
	cBefore := snapshotOf(c)
	e.ctx.Grid.Remove(c)
	origPenaltyC := Penalty(c, cBefore.day, cBefore.period, e.ctx)
	cDay, cPeriod, _, foundC := e.scanBetterSlot(c, origPenaltyC)
	if !foundC {
		e.ctx.Grid.Place(c, cBefore.day, cBefore.period)
		e.ctx.Grid.Place(b, bBefore.day, bBefore.period)
		return nil
	}

	e.ctx.Grid.Remove(a)
	e.ctx.Grid.Place(a, bBefore.day, bBefore.period)
	e.ctx.Grid.Place(b, cBefore.day, cBefore.period)
	e.ctx.Grid.Place(c, cDay, cPeriod)

	RefreshConflict(a, e.ctx)
	RefreshConflict(b, e.ctx)
	RefreshConflict(c, e.ctx)

	return []placementSnapshot{aBefore, bBefore, cBefore}
}

// overlappingTasks finds up to limit distinct other tasks that share a
// teacher or a class with a at a's current occupied periods.
func (e *repairEngine) overlappingTasks(a *Task, limit int) []*Task {
	seen := map[int]bool{a.ID: true}
	var out []*Task
	for _, p := range a.OccupiedPeriods(a.Period) {
		for _, classID := range a.Classes {
			for _, rec := range e.ctx.Grid.RecordsAt(classID, a.Day, p) {
				if seen[rec.TaskID] {
					continue
				}
				seen[rec.TaskID] = true
				if t, ok := e.state.TaskByID[rec.TaskID]; ok {
					out = append(out, t)
					if len(out) >= limit {
						return out
					}
				}
			}
		}
		for _, teacherID := range a.Teachers {
			for _, tid := range e.ctx.Grid.TeacherTasksAt(teacherID, a.Day, p) {
				if seen[tid] {
					continue
				}
				seen[tid] = true
				if t, ok := e.state.TaskByID[tid]; ok {
					out = append(out, t)
					if len(out) >= limit {
						return out
					}
				}
			}
		}
	}
	return out
}

// occupantAt returns some other task occupying task's resource set at
// (day, startPeriod), or nil if that slot is free for task. task must
// already be removed from the grid by the caller.
func (e *repairEngine) occupantAt(task *Task, day, startPeriod int) *Task {
	for _, p := range task.OccupiedPeriods(startPeriod) {
		for _, classID := range task.Classes {
			for _, rec := range e.ctx.Grid.RecordsAt(classID, day, p) {
				if t, ok := e.state.TaskByID[rec.TaskID]; ok {
					return t
				}
			}
		}
		for _, teacherID := range task.Teachers {
			for _, tid := range e.ctx.Grid.TeacherTasksAt(teacherID, day, p) {
				if t, ok := e.state.TaskByID[tid]; ok {
					return t
				}
			}
		}
	}
	return nil
}

// scanBetterSlot enumerates candidate slots for task (already removed
// from the grid), capped at ChainSearchLimit candidates per day, and
// returns the lowest-penalty slot found, provided it strictly
// improves on originalPenalty.
func (e *repairEngine) scanBetterSlot(task *Task, originalPenalty int) (day, period, penalty int, found bool) {
	limit := e.opts.ChainSearchLimit
	for dayIdx := 1; dayIdx <= len(e.state.Config.Days); dayIdx++ {
		count := 0
		for _, p := range candidatePeriods(task, e.state.Config) {
			if count >= limit {
				break
			}
			count++
			candidatePenalty := Penalty(task, dayIdx, p, e.ctx)
			if !found || candidatePenalty < penalty {
				day, period, penalty, found = dayIdx, p, candidatePenalty, true
			}
		}
	}
	if found && penalty < originalPenalty {
		return day, period, penalty, true
	}
	return 0, 0, 0, false
}

// strategicShuffle implements §4.4 step 2: the lowest-penalty half of
// currently zero-conflict tasks stay put; the rest are removed and
// re-placed via the §4.3 minimum-score rule in randomized order. The
// source selects "the best 50%" by iteration order, which spec §9
// calls out as effectively arbitrary; this keeps the lowest-penalty
// half instead, a meaningful quality order.
func (e *repairEngine) strategicShuffle() {
	var zeroConflict []*Task
	for _, t := range e.state.Tasks {
		if t.ConflictCount == 0 {
			zeroConflict = append(zeroConflict, t)
		}
	}
	sort.SliceStable(zeroConflict, func(i, j int) bool {
		if zeroConflict[i].Penalty != zeroConflict[j].Penalty {
			return zeroConflict[i].Penalty < zeroConflict[j].Penalty
		}
		return zeroConflict[i].ID < zeroConflict[j].ID
	})

	keep := make(map[int]bool, len(zeroConflict)/2)
	keepCount := len(zeroConflict) / 2
	for i := 0; i < keepCount; i++ {
		keep[zeroConflict[i].ID] = true
	}

	var toReplace []*Task
	for _, t := range e.state.Tasks {
		if t.ConflictCount == 0 && keep[t.ID] {
			continue
		}
		toReplace = append(toReplace, t)
	}
	e.state.rng.Shuffle(len(toReplace), func(i, j int) {
		toReplace[i], toReplace[j] = toReplace[j], toReplace[i]
	})

	for _, t := range toReplace {
		e.ctx.Grid.Remove(t)
		guard := guardBlockedDaysFor(t, e.ctx.Grid, e.state.Config)
		day, period, ok := BestSlot(t, e.ctx, e.state.rng, guard)
		if !ok {
			continue
		}
		penalty := Penalty(t, day, period, e.ctx)
		e.ctx.Grid.Place(t, day, period)
		t.Penalty = penalty
		t.ConflictCount = ConflictCount(penalty)
	}

	for _, t := range e.state.Tasks {
		if t.Placed {
			RefreshConflict(t, e.ctx)
		}
	}
}
