package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// LessonRepository persists the weekly teaching requirements a term's
// timetable is built from.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByTerm returns every lesson requirement for a term, ordered by
// name for stable presentation.
func (r *LessonRepository) ListByTerm(ctx context.Context, termID string) ([]models.Lesson, error) {
	const query = `SELECT id, term_id, name, subject_ids, teacher_ids, class_ids, singles, doubles, color, created_at, updated_at
FROM lessons WHERE term_id = $1 ORDER BY name ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, termID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// GetByID fetches a single lesson.
func (r *LessonRepository) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	const query = `SELECT id, term_id, name, subject_ids, teacher_ids, class_ids, singles, doubles, color, created_at, updated_at
FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Create inserts a lesson requirement.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
	const query = `INSERT INTO lessons (id, term_id, name, subject_ids, teacher_ids, class_ids, singles, doubles, color, created_at, updated_at)
VALUES (:id, :term_id, :name, :subject_ids, :teacher_ids, :class_ids, :singles, :doubles, :color, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update modifies a lesson's requirement counts and resource bindings.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET name = :name, subject_ids = :subject_ids, teacher_ids = :teacher_ids,
class_ids = :class_ids, singles = :singles, doubles = :doubles, color = :color, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson requirement.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM lessons WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted lesson rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetTimetableConfig loads the weekly grid shape configured for a
// term, falling back to sql.ErrNoRows when the term has never had one
// set (the caller then applies the scheduler's own defaults).
func (r *LessonRepository) GetTimetableConfig(ctx context.Context, termID string) (*models.SchoolTimetableConfig, error) {
	const query = `SELECT term_id, periods_per_day, days_of_week, interval_boundaries, updated_at
FROM school_timetable_configs WHERE term_id = $1`
	var cfg models.SchoolTimetableConfig
	if err := r.db.GetContext(ctx, &cfg, query, termID); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpsertTimetableConfig saves the weekly grid shape for a term.
func (r *LessonRepository) UpsertTimetableConfig(ctx context.Context, cfg *models.SchoolTimetableConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO school_timetable_configs (term_id, periods_per_day, days_of_week, interval_boundaries, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (term_id) DO UPDATE SET periods_per_day = EXCLUDED.periods_per_day, days_of_week = EXCLUDED.days_of_week,
interval_boundaries = EXCLUDED.interval_boundaries, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, cfg.TermID, cfg.PeriodsPerDay, pq.Array(cfg.DaysOfWeek), pq.Array(cfg.IntervalBoundaries), cfg.UpdatedAt); err != nil {
		return fmt.Errorf("upsert timetable config: %w", err)
	}
	return nil
}
