package dto

// LessonInput describes one weekly teaching requirement inside a
// generation request: a resource block (teachers + classes) and a
// count of single/double periods it must occupy.
type LessonInput struct {
	ID         string   `json:"id" validate:"required"`
	Name       string   `json:"name" validate:"required"`
	SubjectIDs []string `json:"subjectIds"`
	TeacherIDs []string `json:"teacherIds" validate:"required,min=1"`
	ClassIDs   []string `json:"classIds" validate:"required,min=1"`
	Singles    int      `json:"singles" validate:"min=0"`
	Doubles    int      `json:"doubles" validate:"min=0"`
	Color      string   `json:"color,omitempty"`
}

// ClassInput names a timetable column owner.
type ClassInput struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Grade string `json:"grade,omitempty"`
}

// TimetableConfigInput describes the weekly grid shape. Zero values
// fall back to the scheduler's configured defaults.
type TimetableConfigInput struct {
	PeriodsPerDay      int      `json:"periodsPerDay" validate:"omitempty,min=1,max=16"`
	Days               []string `json:"days"`
	IntervalBoundaries []int    `json:"intervalBoundaries"`
}

// SolverOverrides exposes the tunables a caller may override for one
// generation call rather than falling back to the server's defaults.
type SolverOverrides struct {
	MaxIterations          int     `json:"maxIterations,omitempty" validate:"omitempty,min=1"`
	Seed                   int64   `json:"seed,omitempty"`
	DailyLimit             int     `json:"dailyLimit,omitempty" validate:"omitempty,min=1"`
	WeeklyLimit            int     `json:"weeklyLimit,omitempty" validate:"omitempty,min=1"`
	RevertOnReject         *bool   `json:"revertOnReject,omitempty"`
	UseFullPenaltyAsEnergy *bool   `json:"useFullPenaltyAsEnergy,omitempty"`
}

// GenerateScheduleRequest instructs the generator to build a weekly
// timetable proposal for every lesson requirement in a term.
type GenerateScheduleRequest struct {
	TermID  string                `json:"termId" validate:"required"`
	Lessons []LessonInput         `json:"lessons" validate:"required,min=1,dive"`
	Classes []ClassInput          `json:"classes" validate:"required,min=1,dive"`
	Config  *TimetableConfigInput `json:"config,omitempty"`
	Solver  *SolverOverrides      `json:"solver,omitempty"`
}

// ScheduleSlotProposal is a single generated (class, day, period) cell.
type ScheduleSlotProposal struct {
	ClassID  string `json:"classId"`
	LessonID string `json:"lessonId"`
	Day      string `json:"day"`
	Period   int    `json:"period"`
	Kind     string `json:"kind"`
}

// SwapSuggestionDTO is a candidate alternate placement for a
// conflicting task.
type SwapSuggestionDTO struct {
	TaskID       int    `json:"taskId"`
	FromDay      int    `json:"fromDay"`
	FromPeriod   int    `json:"fromPeriod"`
	ToDay        int    `json:"toDay"`
	ToPeriod     int    `json:"toPeriod"`
	PenaltyDelta int    `json:"penaltyDelta"`
	Feasibility  string `json:"feasibility"`
}

// FailedLessonDTO reports a lesson that still carries a conflict after
// repair.
type FailedLessonDTO struct {
	LessonID           string              `json:"lessonId"`
	LessonName         string              `json:"lessonName"`
	ConflictingTasks   int                 `json:"conflictingTasks"`
	UnplacedTasks      int                 `json:"unplacedTasks"`
	TotalConflictScore int                 `json:"totalConflictScore"`
	Reasons            []string            `json:"reasons"`
	Suggestions        []SwapSuggestionDTO `json:"suggestions"`
}

// FeasibilityWarningDTO flags a pre-check capacity overrun.
type FeasibilityWarningDTO struct {
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	Required     int    `json:"required"`
	Capacity     int    `json:"capacity"`
	Message      string `json:"message"`
}

// ScheduleStatsDTO summarises one solve run.
type ScheduleStatsDTO struct {
	TotalSlots         int   `json:"totalSlots"`
	ScheduledLessons   int   `json:"scheduledLessons"`
	FailedLessons      int   `json:"failedLessons"`
	SwapAttempts       int   `json:"swapAttempts"`
	SuccessfulSwaps    int   `json:"successfulSwaps"`
	Iterations         int   `json:"iterations"`
	ConflictsRemaining int   `json:"conflictsRemaining"`
	Seed               int64 `json:"seed"`
}

// GenerateScheduleResponse returns the built timetable proposal.
type GenerateScheduleResponse struct {
	ProposalID string                  `json:"proposalId"`
	Success    bool                    `json:"success"`
	Slots      []ScheduleSlotProposal  `json:"slots"`
	Failed     []FailedLessonDTO       `json:"failedLessons"`
	Warnings   []FeasibilityWarningDTO `json:"warnings"`
	Stats      ScheduleStatsDTO        `json:"stats"`
}

// SaveScheduleRequest persists a proposal into semester schedules.
type SaveScheduleRequest struct {
	ProposalID    string `json:"proposalId" validate:"required"`
	CommitToDaily bool   `json:"commitToDaily"`
}

// ApplySwapRequest applies one suggested swap from a still-open
// proposal, re-checking conflicts and the diagnostic report from the
// adjusted placement without re-running repair.
type ApplySwapRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	TaskID     int    `json:"taskId" validate:"required"`
	ToDay      int    `json:"toDay" validate:"required,min=1"`
	ToPeriod   int    `json:"toPeriod" validate:"required,min=1"`
}

// SemesterScheduleQuery filters schedule summaries by class and term.
type SemesterScheduleQuery struct {
	TermID  string `form:"termId" json:"termId"`
	ClassID string `form:"classId" json:"classId"`
}

// ScheduleJobResponse reports the lifecycle of an asynchronously
// enqueued solve: queued/running/finished/failed, with the finished
// proposal or an error message attached once the worker settles it.
type ScheduleJobResponse struct {
	JobID    string                    `json:"jobId"`
	Status   string                    `json:"status"`
	Proposal *GenerateScheduleResponse `json:"proposal,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// ExportSlotsRequest selects which open proposal to render to a file.
type ExportSlotsRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	ClassID    string `json:"classId,omitempty"`
}
