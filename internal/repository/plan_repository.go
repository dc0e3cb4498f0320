package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/planner-api/internal/models"
)

// PlanRepository reads a student's saved plan: calendar events, planned sections and completed courses.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs the repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// ListEvents returns the student's events for the term joined with their section's course.
func (r *PlanRepository) ListEvents(ctx context.Context, studentID, term string, year int) ([]models.PlanEvent, error) {
	const query = `
SELECT
	e.id,
	e.type,
	e.title,
	e.start_at,
	e.end_at,
	t.id::text AS term_id,
	t.name AS term_name,
	t.year AS term_year,
	COALESCE(e.crn, '') AS crn,
	COALESCE(s.course_id, '') AS course_id,
	COALESCE(c.title, '') AS course_name
FROM plan_events e
JOIN term t ON t.id = e.term_id
LEFT JOIN section s ON s.crn = e.crn
LEFT JOIN course c ON c.id = s.course_id
WHERE e.student_id = $1 AND t.name = $2 AND t.year = $3
ORDER BY e.start_at ASC, e.id ASC`

	var events []models.PlanEvent
	if err := r.db.SelectContext(ctx, &events, query, studentID, term, year); err != nil {
		return nil, fmt.Errorf("list plan events: %w", err)
	}
	return events, nil
}

// ListPlannedSections returns the sections the student has planned for the term.
func (r *PlanRepository) ListPlannedSections(ctx context.Context, studentID, term string, year int) ([]models.PlannedSection, error) {
	const query = `
SELECT
	ps.crn,
	s.course_id,
	c.title AS course_name,
	t.name AS term_name,
	t.year AS term_year
FROM planned_sections ps
JOIN section s ON s.crn = ps.crn
JOIN course c ON c.id = s.course_id
JOIN term t ON t.id = s.term_id
WHERE ps.student_id = $1 AND t.name = $2 AND t.year = $3
ORDER BY ps.created_at ASC, ps.crn ASC`

	var sections []models.PlannedSection
	if err := r.db.SelectContext(ctx, &sections, query, studentID, term, year); err != nil {
		return nil, fmt.Errorf("list planned sections: %w", err)
	}
	return sections, nil
}

// ListCompletedCourseIDs returns every course the student has completed.
func (r *PlanRepository) ListCompletedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT course_id FROM completed_courses WHERE student_id = $1 ORDER BY course_id ASC`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list completed courses: %w", err)
	}
	return ids, nil
}
