package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/solver"
)

func smallRequest() dto.GenerateScheduleRequest {
	return dto.GenerateScheduleRequest{
		TermID: "term-1",
		Classes: []dto.ClassInput{
			{ID: "class-1", Name: "X-A"},
		},
		Lessons: []dto.LessonInput{
			{ID: "lesson-math", Name: "Math", TeacherIDs: []string{"teacher-1"}, ClassIDs: []string{"class-1"}, Singles: 2},
			{ID: "lesson-sci", Name: "Science", TeacherIDs: []string{"teacher-2"}, ClassIDs: []string{"class-1"}, Singles: 2},
		},
		Config: &dto.TimetableConfigInput{
			PeriodsPerDay: 4,
			Days:          []string{"MONDAY", "TUESDAY"},
		},
		Solver: &dto.SolverOverrides{MaxIterations: 2000, Seed: 7},
	}
}

func TestScheduleGeneratorServiceGenerateSuccess(t *testing.T) {
	svc := newSchedulerServiceFixture(t, schedulerFixtureConfig{})

	resp, err := svc.Generate(context.Background(), smallRequest())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 4, resp.Stats.TotalSlots)
	assert.Empty(t, resp.Failed)
	assert.NotEmpty(t, resp.ProposalID)
}

func TestScheduleGeneratorServiceGenerateRejectsUnknownClass(t *testing.T) {
	svc := newSchedulerServiceFixture(t, schedulerFixtureConfig{classes: classLookupStub{known: map[string]bool{}}})

	_, err := svc.Generate(context.Background(), smallRequest())
	require.Error(t, err)
}

func TestScheduleGeneratorServiceApplySwapRefinesOpenProposal(t *testing.T) {
	svc := newSchedulerServiceFixture(t, schedulerFixtureConfig{})

	resp, err := svc.Generate(context.Background(), smallRequest())
	require.NoError(t, err)
	require.NotEmpty(t, resp.Slots)

	proposal, ok := svc.store.Get(context.Background(), resp.ProposalID)
	require.True(t, ok)
	require.NotNil(t, proposal.State)
	task := proposal.State.Tasks[0]

	swapResp, err := svc.ApplySwap(context.Background(), dto.ApplySwapRequest{
		ProposalID: resp.ProposalID,
		TaskID:     task.ID,
		ToDay:      task.Day,
		ToPeriod:   task.Period,
	})
	require.NoError(t, err)
	assert.Equal(t, resp.ProposalID, swapResp.ProposalID)
}

func TestScheduleGeneratorServiceApplySwapUnknownProposal(t *testing.T) {
	svc := newSchedulerServiceFixture(t, schedulerFixtureConfig{})

	_, err := svc.ApplySwap(context.Background(), dto.ApplySwapRequest{
		ProposalID: "missing",
		TaskID:     1,
		ToDay:      1,
		ToPeriod:   1,
	})
	require.Error(t, err)
}

func TestScheduleGeneratorServiceSaveDraft(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	svc := newSchedulerServiceFixture(t, schedulerFixtureConfig{tx: txProvider})

	resp, err := svc.Generate(context.Background(), smallRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := svc.Save(context.Background(), dto.SaveScheduleRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceSaveRejectsUnresolvedConflicts(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	svc := newSchedulerServiceFixture(t, schedulerFixtureConfig{tx: txProvider})

	// A single lesson with more periods than the grid can legally hold
	// forces an unresolved conflict.
	req := smallRequest()
	req.Lessons = []dto.LessonInput{
		{ID: "lesson-a", Name: "A", TeacherIDs: []string{"teacher-1"}, ClassIDs: []string{"class-1"}, Singles: 8},
	}
	req.Config = &dto.TimetableConfigInput{PeriodsPerDay: 2, Days: []string{"MONDAY"}}

	resp, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	require.False(t, resp.Success)

	_, err = svc.Save(context.Background(), dto.SaveScheduleRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
}

// --- Fixtures ---

type schedulerFixtureConfig struct {
	tx      txProvider
	classes schedulerClassReader
}

func newSchedulerServiceFixture(t *testing.T, cfg schedulerFixtureConfig) *ScheduleGeneratorService {
	t.Helper()
	semesters := &semesterScheduleRepoStub{}
	slots := &semesterScheduleSlotRepoStub{}
	lessons := lessonReaderStub{}
	terms := termLookupStub{}
	classes := cfg.classes
	if classes == nil {
		classes = classLookupStub{known: map[string]bool{"class-1": true}}
	}
	tx := cfg.tx
	if tx == nil {
		tx = noopTxProvider{}
	}

	return NewScheduleGeneratorService(
		terms,
		classes,
		lessons,
		semesters,
		slots,
		tx,
		validator.New(),
		zap.NewNop(),
		ScheduleGeneratorConfig{
			ProposalTTL: time.Hour,
			Defaults: SchedulerDefaults{
				Config:  defaultTimetableConfig(),
				Options: solver.DefaultOptions(),
			},
		},
	)
}

type lessonReaderStub struct{}

func (lessonReaderStub) ListByTerm(ctx context.Context, termID string) ([]models.Lesson, error) {
	return nil, nil
}

func (lessonReaderStub) GetTimetableConfig(ctx context.Context, termID string) (*models.SchoolTimetableConfig, error) {
	return nil, sql.ErrNoRows
}

type semesterScheduleRepoStub struct {
	items []models.SemesterSchedule
}

func (s *semesterScheduleRepoStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.SemesterSchedule) error {
	schedule.ID = uuidString(len(s.items) + 1)
	schedule.Version = len(s.items) + 1
	s.items = append(s.items, *schedule)
	return nil
}

func (s *semesterScheduleRepoStub) ListByTermClass(ctx context.Context, termID, classID string) ([]models.SemesterSchedule, error) {
	return s.items, nil
}

func (s *semesterScheduleRepoStub) FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error) {
	for _, item := range s.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *semesterScheduleRepoStub) Delete(ctx context.Context, id string) error {
	for idx, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *semesterScheduleRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SemesterScheduleStatus, meta types.JSONText) error {
	for idx := range s.items {
		if s.items[idx].ID == id {
			s.items[idx].Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

type semesterScheduleSlotRepoStub struct {
	items map[string][]models.SemesterScheduleSlot
}

func (s *semesterScheduleSlotRepoStub) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.SemesterScheduleSlot) error {
	if s.items == nil {
		s.items = make(map[string][]models.SemesterScheduleSlot)
	}
	for _, slot := range slots {
		s.items[slot.SemesterScheduleID] = append(s.items[slot.SemesterScheduleID], slot)
	}
	return nil
}

func (s *semesterScheduleSlotRepoStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	return s.items[scheduleID], nil
}

type termLookupStub struct{}

func (termLookupStub) FindByID(ctx context.Context, id string) (*models.Term, error) {
	return &models.Term{ID: id}, nil
}

type classLookupStub struct {
	known map[string]bool
}

func (c classLookupStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if !c.known[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Class{ID: id}, nil
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, sql.ErrConnDone
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func uuidString(v int) string {
	return fmt.Sprintf("sched-%d", v)
}
