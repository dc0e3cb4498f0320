package models

// Plan event types stored alongside a student's calendar.
const (
	PlanEventCourse      = "course"
	PlanEventUnavailable = "unavailable"
)

// PlanEvent is one stored calendar entry enriched with its term, section and course.
// Start and End hold the raw stored timestamps; they are parsed leniently downstream.
type PlanEvent struct {
	ID         string `db:"id" json:"id" yaml:"id"`
	Type       string `db:"type" json:"type" yaml:"type"`
	Title      string `db:"title" json:"title,omitempty" yaml:"title"`
	Start      string `db:"start_at" json:"start" yaml:"start"`
	End        string `db:"end_at" json:"end" yaml:"end"`
	TermID     string `db:"term_id" json:"term_id" yaml:"term_id"`
	TermName   string `db:"term_name" json:"term_name" yaml:"term"`
	TermYear   int    `db:"term_year" json:"term_year" yaml:"year"`
	CRN        string `db:"crn" json:"crn,omitempty" yaml:"crn"`
	CourseID   string `db:"course_id" json:"course_id,omitempty" yaml:"course_id"`
	CourseName string `db:"course_name" json:"course_name,omitempty" yaml:"course_name"`
}

// PlannedSection is a section the student has placed on the plan for a term.
type PlannedSection struct {
	CRN        string `db:"crn" json:"crn" yaml:"crn"`
	CourseID   string `db:"course_id" json:"course_id" yaml:"course_id"`
	CourseName string `db:"course_name" json:"course_name" yaml:"course_name"`
	TermName   string `db:"term_name" json:"term_name" yaml:"term"`
	TermYear   int    `db:"term_year" json:"term_year" yaml:"year"`
}
