package models

import (
	"time"

	"github.com/lib/pq"
)

// Lesson is a weekly teaching requirement binding one or more teachers
// and one or more classes to a count of single and double periods.
// TeacherIDs, ClassIDs and SubjectIDs are stored as native Postgres
// text arrays (pq.StringArray implements sql.Scanner/driver.Valuer)
// rather than join tables.
type Lesson struct {
	ID         string         `db:"id" json:"id"`
	TermID     string         `db:"term_id" json:"term_id"`
	Name       string         `db:"name" json:"name"`
	SubjectIDs pq.StringArray `db:"subject_ids" json:"subject_ids"`
	TeacherIDs pq.StringArray `db:"teacher_ids" json:"teacher_ids"`
	ClassIDs   pq.StringArray `db:"class_ids" json:"class_ids"`
	Singles    int            `db:"singles" json:"singles"`
	Doubles    int            `db:"doubles" json:"doubles"`
	Color      string         `db:"color" json:"color,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// SchoolTimetableConfig is the weekly grid shape for one term: how
// many periods fall in a day, which days of the week are scheduled,
// and where interval boundaries fall (a double period may never start
// on one).
type SchoolTimetableConfig struct {
	TermID             string         `db:"term_id" json:"term_id"`
	PeriodsPerDay      int            `db:"periods_per_day" json:"periods_per_day"`
	DaysOfWeek         pq.StringArray `db:"days_of_week" json:"days_of_week"`
	IntervalBoundaries pq.Int64Array  `db:"interval_boundaries" json:"interval_boundaries"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}
