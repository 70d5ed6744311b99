package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func newLessonRepositoryMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLessonRepositoryListByTerm(t *testing.T) {
	db, mock, cleanup := newLessonRepositoryMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := sqlmock.NewRows([]string{"id", "term_id", "name", "subject_ids", "teacher_ids", "class_ids", "singles", "doubles", "color", "created_at", "updated_at"}).
		AddRow("lesson-1", "term-1", "Math", pq.StringArray{"math"}, pq.StringArray{"teacher-1"}, pq.StringArray{"class-1"}, 4, 0, "", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, term_id, name, subject_ids, teacher_ids, class_ids, singles, doubles, color, created_at, updated_at
FROM lessons WHERE term_id = $1 ORDER BY name ASC`)).
		WithArgs("term-1").
		WillReturnRows(rows)

	lessons, err := repo.ListByTerm(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "Math", lessons[0].Name)
	assert.Equal(t, pq.StringArray{"teacher-1"}, lessons[0].TeacherIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLessonRepositoryMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("INSERT INTO lessons").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Lesson{
		TermID:     "term-1",
		Name:       "Math",
		TeacherIDs: pq.StringArray{"teacher-1"},
		ClassIDs:   pq.StringArray{"class-1"},
		Singles:    4,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newLessonRepositoryMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("DELETE FROM lessons").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryUpsertTimetableConfig(t *testing.T) {
	db, mock, cleanup := newLessonRepositoryMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("INSERT INTO school_timetable_configs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpsertTimetableConfig(context.Background(), &models.SchoolTimetableConfig{
		TermID:             "term-1",
		PeriodsPerDay:      6,
		DaysOfWeek:         pq.StringArray{"MON", "TUE"},
		IntervalBoundaries: pq.Int64Array{3},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
