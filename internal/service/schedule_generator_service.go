package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/solver"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/export"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
)

// jobDispatcher enqueues work onto the async job queue; satisfied by
// *jobs.Queue, used here for GenerateAsync and by the scheduler worker
// that drains it.
type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type lessonReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.Lesson, error)
	GetTimetableConfig(ctx context.Context, termID string) (*models.SchoolTimetableConfig, error)
}

type semesterScheduleRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.SemesterSchedule) error
	ListByTermClass(ctx context.Context, termID, classID string) ([]models.SemesterSchedule, error)
	FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SemesterScheduleStatus, meta types.JSONText) error
}

type semesterScheduleSlotRepository interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.SemesterScheduleSlot) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error)
}

type schedulerClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type schedulerTermReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// SchedulerDefaults seeds grid shape and solver tunables when a
// request doesn't override them, sourced from the server's own
// configuration rather than the solver package's bare defaults so an
// operator can tune them without a redeploy.
type SchedulerDefaults struct {
	Config  solver.Config
	Options solver.Options
}

// ScheduleGeneratorService builds timetable proposals with the
// constraint solver and persists accepted ones as semester schedules.
type ScheduleGeneratorService struct {
	terms     schedulerTermReader
	classes   schedulerClassReader
	lessons   lessonReader
	semesters semesterScheduleRepository
	slots     semesterScheduleSlotRepository
	tx        txProvider
	jobs      jobDispatcher
	validator *validator.Validate
	logger    *zap.Logger
	store     proposalCache
	jobStore  *schedulerJobStore
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	defaults  SchedulerDefaults
	metrics   *MetricsService
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	ProposalTTL time.Duration
	Defaults    SchedulerDefaults
	Jobs        jobDispatcher
	// Redis, when non-nil, backs the proposal cache so a proposal
	// survives a pod restart and can be read by whichever pod
	// receives the follow-up Save/List/Export call. Nil falls back to
	// the teacher's original in-memory store (single-pod/dev use).
	Redis *redis.Client
	// Metrics, when non-nil, records solve duration/iterations/conflict
	// counts and feasibility warnings on the shared Prometheus registry.
	Metrics *MetricsService
}

// NewScheduleGeneratorService wires scheduler dependencies.
func NewScheduleGeneratorService(
	terms schedulerTermReader,
	classes schedulerClassReader,
	lessons lessonReader,
	semesters semesterScheduleRepository,
	slots semesterScheduleSlotRepository,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.Defaults.Config.PeriodsPerDay <= 0 {
		cfg.Defaults.Config = defaultTimetableConfig()
	}
	if cfg.Defaults.Options.MaxIterations <= 0 {
		cfg.Defaults.Options = solver.DefaultOptions()
	}
	return &ScheduleGeneratorService{
		terms:     terms,
		classes:   classes,
		lessons:   lessons,
		semesters: semesters,
		slots:     slots,
		tx:        tx,
		jobs:      cfg.Jobs,
		validator: validate,
		logger:    logger,
		store:     NewProposalStore(cfg.ProposalTTL, cfg.Redis, logger),
		jobStore:  newSchedulerJobStore(),
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		defaults:  cfg.Defaults,
		metrics:   cfg.Metrics,
	}
}

// SetJobDispatcher wires the async job queue after construction, since
// the queue's worker is built from the service itself (NewSchedulerWorker
// takes *ScheduleGeneratorService) and so cannot exist before it.
func (s *ScheduleGeneratorService) SetJobDispatcher(dispatcher jobDispatcher) {
	s.jobs = dispatcher
}

func defaultTimetableConfig() solver.Config {
	return solver.Config{
		PeriodsPerDay:      8,
		Days:               []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"},
		IntervalBoundaries: []int{4},
	}
}

// Generate orchestrates the constraint-based scheduling pipeline: it
// resolves the grid shape and solver tunables for this call, runs the
// solver, and caches the resulting proposal for a later Save or
// ApplySwap.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	if err := s.ensureTerm(ctx, req.TermID); err != nil {
		return nil, err
	}
	for _, class := range req.Classes {
		if err := s.ensureClass(ctx, class.ID); err != nil {
			return nil, err
		}
	}

	cfg, err := s.resolveConfig(ctx, req.TermID, req.Config)
	if err != nil {
		return nil, err
	}
	opts := s.resolveOptions(req.Solver)

	lessons := toSolverLessons(req.Lessons)
	classes := toSolverClasses(req.Classes)

	solveStart := time.Now()
	result, state, err := solver.SolveForEditing(lessons, classes, cfg, opts)
	if err != nil {
		var verr *solver.ValidationError
		if errors.As(err, &verr) {
			return nil, appErrors.Clone(appErrors.ErrValidation, verr.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate schedule")
	}
	s.metrics.ObserveSolve(time.Since(solveStart), result.Stats.Iterations, result.Stats.ConflictsRemaining)
	for _, warning := range result.Warnings {
		s.metrics.RecordFeasibilityWarning(warning.ResourceType)
	}

	proposal := scheduleProposal{
		ProposalID:  uuid.NewString(),
		TermID:      req.TermID,
		Config:      cfg,
		Options:     opts,
		State:       state,
		Result:      *result,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(ctx, proposal)

	return toGenerateResponse(proposal), nil
}

// ApplySwap replaces one task's placement in a still-open proposal
// with an operator-chosen slot, re-checks every consequence against
// the exact grid the proposal was solved on, and overwrites the
// cached proposal with the new diagnostic result.
func (s *ScheduleGeneratorService) ApplySwap(ctx context.Context, req dto.ApplySwapRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid swap payload")
	}
	proposal, ok := s.store.Get(ctx, req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if proposal.State == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal no longer carries editable state")
	}

	swapStart := time.Now()
	result, err := solver.ApplySwap(proposal.State, req.TaskID, req.ToDay, req.ToPeriod)
	if err != nil {
		var verr *solver.ValidationError
		if errors.As(err, &verr) {
			return nil, appErrors.Clone(appErrors.ErrValidation, verr.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply swap")
	}
	s.metrics.ObserveSolve(time.Since(swapStart), result.Stats.Iterations, result.Stats.ConflictsRemaining)

	proposal.Result = *result
	proposal.RequestedAt = time.Now().UTC()
	s.store.Save(ctx, proposal)

	return toGenerateResponse(proposal), nil
}

// GenerateAsync enqueues a solve on the shared job queue instead of
// running it inline, for inputs large enough that a caller would
// rather poll than block on the request.
func (s *ScheduleGeneratorService) GenerateAsync(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.ScheduleJobResponse, error) {
	if s.jobs == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "async solving is not configured")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	jobID := uuid.NewString()
	s.jobStore.save(&schedulerJobRecord{ID: jobID, Status: schedulerJobQueued, CreatedAt: time.Now().UTC()})

	if err := s.jobs.Enqueue(jobs.Job{ID: jobID, Type: "scheduler", Payload: req}); err != nil {
		s.jobStore.markFailed(jobID, err.Error())
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue schedule job")
	}
	return &dto.ScheduleJobResponse{JobID: jobID, Status: string(schedulerJobQueued)}, nil
}

// GetJobStatus reports the lifecycle of a job enqueued through
// GenerateAsync.
func (s *ScheduleGeneratorService) GetJobStatus(ctx context.Context, jobID string) (*dto.ScheduleJobResponse, error) {
	record, ok := s.jobStore.get(jobID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule job not found")
	}
	resp := &dto.ScheduleJobResponse{JobID: record.ID, Status: string(record.Status)}
	if record.Result != nil {
		resp.Proposal = record.Result
	}
	if record.Error != "" {
		resp.Error = record.Error
	}
	return resp, nil
}

// ExportSlotsCSV renders a still-open proposal's flat slot list as CSV,
// reusing the reporting pipeline's generic tabular exporter.
func (s *ScheduleGeneratorService) ExportSlotsCSV(ctx context.Context, proposalID string) ([]byte, error) {
	proposal, ok := s.store.Get(ctx, proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	dataset := export.Dataset{
		Headers: []string{"classId", "lessonId", "day", "period", "kind"},
	}
	for _, slot := range proposal.Result.Slots {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"classId":  slot.ClassID,
			"lessonId": slot.LessonID,
			"day":      slot.Day,
			"period":   fmt.Sprintf("%d", slot.Period),
			"kind":     string(slot.Kind),
		})
	}
	out, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule csv")
	}
	return out, nil
}

// ExportTimetablePDF renders one class's weekly grid from a still-open
// proposal as a PDF, reusing the reporting pipeline's PDF exporter.
func (s *ScheduleGeneratorService) ExportTimetablePDF(ctx context.Context, proposalID, classID string) ([]byte, error) {
	proposal, ok := s.store.Get(ctx, proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if proposal.State == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal no longer carries lesson metadata")
	}

	byDay := make(map[string]map[int]string)
	for _, slot := range proposal.Result.Slots {
		if slot.ClassID != classID {
			continue
		}
		if byDay[slot.Day] == nil {
			byDay[slot.Day] = make(map[int]string)
		}
		name := slot.LessonID
		if lesson, ok := proposal.State.Lessons[slot.LessonID]; ok {
			name = lesson.Name
		}
		byDay[slot.Day][slot.Period] = name
	}

	dataset := export.Dataset{Headers: append([]string{"period"}, proposal.Config.Days...)}
	for period := 1; period <= proposal.Config.PeriodsPerDay; period++ {
		row := map[string]string{"period": fmt.Sprintf("%d", period)}
		for _, day := range proposal.Config.Days {
			row[day] = byDay[day][period]
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	out, err := s.pdf.Render(dataset, fmt.Sprintf("Timetable - %s", classID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule pdf")
	}
	return out, nil
}

// Save persists a validated proposal as one semester schedule version
// per class it touches; the solver works across the whole term at
// once, but schedules stay scoped to a single class for presentation.
func (s *ScheduleGeneratorService) Save(ctx context.Context, req dto.SaveScheduleRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save schedule payload")
	}
	proposal, ok := s.store.Get(ctx, req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if !proposal.Result.Success {
		return "", appErrors.Clone(appErrors.ErrConflict, "proposal contains unresolved conflicts")
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	byClass := make(map[string][]solver.SlotRecord)
	for _, slot := range proposal.Result.Slots {
		byClass[slot.ClassID] = append(byClass[slot.ClassID], slot)
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	metaPayload := map[string]any{
		"stats":     proposal.Result.Stats,
		"generated": proposal.RequestedAt,
		"algorithm": "simulated_annealing_v1",
	}
	metaBytes, marshalErr := json.Marshal(metaPayload)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
		return "", err
	}

	var firstScheduleID string
	for classID, slots := range byClass {
		record := &models.SemesterSchedule{
			TermID:  proposal.TermID,
			ClassID: classID,
			Status:  models.SemesterScheduleStatusDraft,
			Meta:    types.JSONText(metaBytes),
		}
		if err = s.semesters.CreateVersioned(ctx, tx, record); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester schedule")
			return "", err
		}
		if firstScheduleID == "" {
			firstScheduleID = record.ID
		}

		slotModels := make([]models.SemesterScheduleSlot, 0, len(slots))
		for _, slot := range slots {
			slotModels = append(slotModels, models.SemesterScheduleSlot{
				SemesterScheduleID: record.ID,
				LessonID:           slot.LessonID,
				DayOfWeek:          dayNameToIndex(proposal.Config, slot.Day),
				TimeSlot:           slot.Period,
			})
		}
		if err = s.slots.UpsertBatch(ctx, tx, slotModels); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist semester schedule slots")
			return "", err
		}
		if req.CommitToDaily {
			if err = s.semesters.UpdateStatus(ctx, tx, record.ID, models.SemesterScheduleStatusPublished, nil); err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule status")
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return "", err
	}

	s.store.Delete(ctx, req.ProposalID)
	return firstScheduleID, nil
}

// List returns semester schedules for a class-term tuple.
func (s *ScheduleGeneratorService) List(ctx context.Context, query dto.SemesterScheduleQuery) ([]models.SemesterSchedule, error) {
	if query.TermID == "" || query.ClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId and classId are required")
	}
	list, err := s.semesters.ListByTermClass(ctx, query.TermID, query.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester schedules")
	}
	return list, nil
}

// GetSlots returns slot detail for a stored schedule.
func (s *ScheduleGeneratorService) GetSlots(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if _, err := s.semesters.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedule")
	}
	slots, err := s.slots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester schedule slots")
	}
	return slots, nil
}

// Delete removes a draft schedule version.
func (s *ScheduleGeneratorService) Delete(ctx context.Context, scheduleID string) error {
	record, err := s.semesters.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedule")
	}
	if record.Status != models.SemesterScheduleStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft schedules can be deleted")
	}
	if err := s.semesters.Delete(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester schedule")
	}
	return nil
}

func (s *ScheduleGeneratorService) ensureTerm(ctx context.Context, termID string) error {
	if s.terms == nil {
		return nil
	}
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return nil
}

func (s *ScheduleGeneratorService) ensureClass(ctx context.Context, classID string) error {
	if s.classes == nil {
		return nil
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("class %s not found", classID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}

// resolveConfig merges a request's grid override with a term's stored
// timetable config, falling back to the server's configured default
// when neither is present.
func (s *ScheduleGeneratorService) resolveConfig(ctx context.Context, termID string, override *dto.TimetableConfigInput) (solver.Config, error) {
	cfg := s.defaults.Config
	if s.lessons != nil {
		stored, err := s.lessons.GetTimetableConfig(ctx, termID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return solver.Config{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable config")
		}
		if stored != nil {
			cfg = solver.Config{
				PeriodsPerDay:      stored.PeriodsPerDay,
				Days:               []string(stored.DaysOfWeek),
				IntervalBoundaries: int64ToIntSlice(stored.IntervalBoundaries),
			}
		}
	}
	if override != nil {
		if override.PeriodsPerDay > 0 {
			cfg.PeriodsPerDay = override.PeriodsPerDay
		}
		if len(override.Days) > 0 {
			cfg.Days = override.Days
		}
		if len(override.IntervalBoundaries) > 0 {
			cfg.IntervalBoundaries = override.IntervalBoundaries
		} else if override.PeriodsPerDay > 0 {
			// Inherited boundaries that no longer fit the overridden day
			// length are dropped rather than rejected by validation.
			kept := make([]int, 0, len(cfg.IntervalBoundaries))
			for _, b := range cfg.IntervalBoundaries {
				if b >= 1 && b < cfg.PeriodsPerDay {
					kept = append(kept, b)
				}
			}
			cfg.IntervalBoundaries = kept
		}
	}
	return cfg, nil
}

func (s *ScheduleGeneratorService) resolveOptions(override *dto.SolverOverrides) solver.Options {
	opts := s.defaults.Options
	if override == nil {
		return opts
	}
	if override.MaxIterations > 0 {
		opts.MaxIterations = override.MaxIterations
	}
	if override.Seed != 0 {
		opts.Seed = override.Seed
	}
	if override.DailyLimit > 0 {
		opts.DailyLimit = override.DailyLimit
	}
	if override.WeeklyLimit > 0 {
		opts.WeeklyLimit = override.WeeklyLimit
	}
	if override.RevertOnReject != nil {
		opts.RevertOnReject = *override.RevertOnReject
	}
	if override.UseFullPenaltyAsEnergy != nil {
		opts.UseFullPenaltyAsEnergy = *override.UseFullPenaltyAsEnergy
	}
	return opts
}

func toSolverLessons(inputs []dto.LessonInput) []solver.Lesson {
	lessons := make([]solver.Lesson, 0, len(inputs))
	for _, l := range inputs {
		lessons = append(lessons, solver.Lesson{
			ID:         l.ID,
			Name:       l.Name,
			SubjectIDs: l.SubjectIDs,
			TeacherIDs: l.TeacherIDs,
			ClassIDs:   l.ClassIDs,
			Singles:    l.Singles,
			Doubles:    l.Doubles,
			Color:      l.Color,
		})
	}
	return lessons
}

func toSolverClasses(inputs []dto.ClassInput) []solver.Class {
	classes := make([]solver.Class, 0, len(inputs))
	for _, c := range inputs {
		classes = append(classes, solver.Class{ID: c.ID, Name: c.Name, Grade: c.Grade})
	}
	return classes
}

func int64ToIntSlice(values []int64) []int {
	result := make([]int, len(values))
	for i, v := range values {
		result[i] = int(v)
	}
	return result
}

func dayNameToIndex(cfg solver.Config, day string) int {
	for i, name := range cfg.Days {
		if name == day {
			return i + 1
		}
	}
	return 0
}

func toGenerateResponse(p scheduleProposal) *dto.GenerateScheduleResponse {
	slots := make([]dto.ScheduleSlotProposal, 0, len(p.Result.Slots))
	for _, slot := range p.Result.Slots {
		slots = append(slots, dto.ScheduleSlotProposal{
			ClassID:  slot.ClassID,
			LessonID: slot.LessonID,
			Day:      slot.Day,
			Period:   slot.Period,
			Kind:     string(slot.Kind),
		})
	}

	failed := make([]dto.FailedLessonDTO, 0, len(p.Result.FailedLessons))
	for _, f := range p.Result.FailedLessons {
		suggestions := make([]dto.SwapSuggestionDTO, 0, len(f.Suggestions))
		for _, sg := range f.Suggestions {
			suggestions = append(suggestions, dto.SwapSuggestionDTO{
				TaskID:       sg.TaskID,
				FromDay:      sg.FromDay,
				FromPeriod:   sg.FromPeriod,
				ToDay:        sg.ToDay,
				ToPeriod:     sg.ToPeriod,
				PenaltyDelta: sg.PenaltyDelta,
				Feasibility:  sg.Feasibility,
			})
		}
		failed = append(failed, dto.FailedLessonDTO{
			LessonID:           f.LessonID,
			LessonName:         f.LessonName,
			ConflictingTasks:   f.ConflictingTasks,
			UnplacedTasks:      f.UnplacedTasks,
			TotalConflictScore: f.TotalConflictScore,
			Reasons:            f.Reasons,
			Suggestions:        suggestions,
		})
	}

	warnings := make([]dto.FeasibilityWarningDTO, 0, len(p.Result.Warnings))
	for _, w := range p.Result.Warnings {
		warnings = append(warnings, dto.FeasibilityWarningDTO{
			ResourceType: w.ResourceType,
			ResourceID:   w.ResourceID,
			Required:     w.Required,
			Capacity:     w.Capacity,
			Message:      w.Message,
		})
	}

	return &dto.GenerateScheduleResponse{
		ProposalID: p.ProposalID,
		Success:    p.Result.Success,
		Slots:      slots,
		Failed:     failed,
		Warnings:   warnings,
		Stats: dto.ScheduleStatsDTO{
			TotalSlots:         p.Result.Stats.TotalSlots,
			ScheduledLessons:   p.Result.Stats.ScheduledLessons,
			FailedLessons:      p.Result.Stats.FailedLessons,
			SwapAttempts:       p.Result.Stats.SwapAttempts,
			SuccessfulSwaps:    p.Result.Stats.SuccessfulSwaps,
			Iterations:         p.Result.Stats.Iterations,
			ConflictsRemaining: p.Result.Stats.ConflictsRemaining,
			Seed:               p.Result.Stats.Seed,
		},
	}
}

// --- Proposal cache ---

type scheduleProposal struct {
	ProposalID  string
	TermID      string
	Config      solver.Config
	Options     solver.Options
	State       *solver.SolverState
	Result      solver.Result
	RequestedAt time.Time
}

// storedProposal is the Redis-safe projection of scheduleProposal. It
// drops State: *solver.SolverState carries the live Grid (unexported
// occupancy maps) and a *rand.Rand, neither of which round-trips
// through JSON, so ApplySwap against a rehydrated proposal is only
// possible on the pod that originally solved it.
type storedProposal struct {
	ProposalID  string         `json:"proposalId"`
	TermID      string         `json:"termId"`
	Config      solver.Config  `json:"config"`
	Options     solver.Options `json:"options"`
	Result      solver.Result  `json:"result"`
	RequestedAt time.Time      `json:"requestedAt"`
}

type proposalCache interface {
	Save(ctx context.Context, proposal scheduleProposal)
	Get(ctx context.Context, id string) (scheduleProposal, bool)
	Delete(ctx context.Context, id string)
}

// NewProposalStore picks the proposal cache backend: Redis-backed when
// a client is wired, so a proposal (and everything but its editable
// live state) survives a pod restart or a follow-up request landing
// on a different pod, or the teacher's original in-memory map for
// local/dev use when no Redis client is configured.
func NewProposalStore(ttl time.Duration, client *redis.Client, logger *zap.Logger) proposalCache {
	if client == nil {
		return newMemoryProposalStore(ttl)
	}
	return newRedisProposalStore(client, ttl, logger)
}

// memoryProposalStore is the teacher's original sync.RWMutex map. It
// is also kept underneath redisProposalStore as the only place a
// proposal's live *solver.SolverState survives, since ApplySwap
// mutates that state in place.
type memoryProposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]scheduleProposal
}

func newMemoryProposalStore(ttl time.Duration) *memoryProposalStore {
	return &memoryProposalStore{
		ttl:   ttl,
		items: make(map[string]scheduleProposal),
	}
}

func (s *memoryProposalStore) Save(_ context.Context, proposal scheduleProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *memoryProposalStore) Get(ctx context.Context, id string) (scheduleProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return scheduleProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(ctx, id)
		return scheduleProposal{}, false
	}
	return proposal, true
}

func (s *memoryProposalStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func proposalCacheKey(id string) string {
	return "scheduler:proposal:" + id
}

// redisProposalStore durably caches the serializable half of a
// proposal (everything but its live solver state) in Redis, grounded
// on the teacher's pkg/cache/redis.go client with a marshal-then-Set
// pattern. It layers memoryProposalStore on top for State, which only
// ever needs to survive on the pod that produced it.
type redisProposalStore struct {
	client *redis.Client
	ttl    time.Duration
	local  *memoryProposalStore
	logger *zap.Logger
}

func newRedisProposalStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *redisProposalStore {
	return &redisProposalStore{
		client: client,
		ttl:    ttl,
		local:  newMemoryProposalStore(ttl),
		logger: logger,
	}
}

func (s *redisProposalStore) Save(ctx context.Context, proposal scheduleProposal) {
	s.local.Save(ctx, proposal)

	payload, err := json.Marshal(storedProposal{
		ProposalID:  proposal.ProposalID,
		TermID:      proposal.TermID,
		Config:      proposal.Config,
		Options:     proposal.Options,
		Result:      proposal.Result,
		RequestedAt: proposal.RequestedAt,
	})
	if err != nil {
		s.logger.Warn("failed to marshal proposal for redis cache", zap.String("proposalId", proposal.ProposalID), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, proposalCacheKey(proposal.ProposalID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to cache proposal in redis", zap.String("proposalId", proposal.ProposalID), zap.Error(err))
	}
}

func (s *redisProposalStore) Get(ctx context.Context, id string) (scheduleProposal, bool) {
	if proposal, ok := s.local.Get(ctx, id); ok {
		return proposal, true
	}

	payload, err := s.client.Get(ctx, proposalCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("failed to read proposal from redis", zap.String("proposalId", id), zap.Error(err))
		}
		return scheduleProposal{}, false
	}

	var stored storedProposal
	if err := json.Unmarshal(payload, &stored); err != nil {
		s.logger.Warn("failed to unmarshal cached proposal", zap.String("proposalId", id), zap.Error(err))
		return scheduleProposal{}, false
	}
	return scheduleProposal{
		ProposalID:  stored.ProposalID,
		TermID:      stored.TermID,
		Config:      stored.Config,
		Options:     stored.Options,
		Result:      stored.Result,
		RequestedAt: stored.RequestedAt,
	}, true
}

func (s *redisProposalStore) Delete(ctx context.Context, id string) {
	s.local.Delete(ctx, id)
	if err := s.client.Del(ctx, proposalCacheKey(id)).Err(); err != nil {
		s.logger.Warn("failed to delete cached proposal from redis", zap.String("proposalId", id), zap.Error(err))
	}
}

// --- Async job tracking ---

type schedulerJobStatus string

const (
	schedulerJobQueued   schedulerJobStatus = "queued"
	schedulerJobRunning  schedulerJobStatus = "running"
	schedulerJobFinished schedulerJobStatus = "finished"
	schedulerJobFailed   schedulerJobStatus = "failed"
)

type schedulerJobRecord struct {
	ID        string
	Status    schedulerJobStatus
	Result    *dto.GenerateScheduleResponse
	Error     string
	CreatedAt time.Time
}

// schedulerJobStore tracks the lifecycle of solves enqueued through
// GenerateAsync, keyed by job id. It holds records only in memory,
// like memoryProposalStore: a restart drops in-flight jobs, which is
// acceptable since a dropped job can simply be resubmitted.
type schedulerJobStore struct {
	mu    sync.RWMutex
	items map[string]*schedulerJobRecord
}

func newSchedulerJobStore() *schedulerJobStore {
	return &schedulerJobStore{items: make(map[string]*schedulerJobRecord)}
}

func (s *schedulerJobStore) save(record *schedulerJobRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[record.ID] = record
}

func (s *schedulerJobStore) get(id string) (*schedulerJobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.items[id]
	return record, ok
}

func (s *schedulerJobStore) markRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.items[id]; ok {
		record.Status = schedulerJobRunning
	}
}

func (s *schedulerJobStore) markFinished(id string, result *dto.GenerateScheduleResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.items[id]; ok {
		record.Status = schedulerJobFinished
		record.Result = result
	}
}

func (s *schedulerJobStore) markFailed(id string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.items[id]; ok {
		record.Status = schedulerJobFailed
		record.Error = message
		return
	}
	s.items[id] = &schedulerJobRecord{ID: id, Status: schedulerJobFailed, Error: message, CreatedAt: time.Now().UTC()}
}

// SchedulerWorker adapts ScheduleGeneratorService.Generate to a
// pkg/jobs.Handler so it can be drained by a worker pool.
type SchedulerWorker struct {
	service *ScheduleGeneratorService
}

// NewSchedulerWorker constructs a worker bound to one generator service.
func NewSchedulerWorker(svc *ScheduleGeneratorService) *SchedulerWorker {
	return &SchedulerWorker{service: svc}
}

// Handle runs one queued solve and records its outcome for polling.
func (w *SchedulerWorker) Handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateScheduleRequest)
	if !ok {
		err := fmt.Errorf("scheduler worker: unexpected payload type %T", job.Payload)
		w.service.jobStore.markFailed(job.ID, err.Error())
		return err
	}
	w.service.jobStore.markRunning(job.ID)

	resp, err := w.service.Generate(ctx, req)
	if err != nil {
		w.service.jobStore.markFailed(job.ID, err.Error())
		return err
	}
	w.service.jobStore.markFinished(job.ID, resp)
	return nil
}
