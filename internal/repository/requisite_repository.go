package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/planner-api/internal/models"
)

// RequisiteRepository reads prerequisite and corequisite relationships from the materialized views.
type RequisiteRepository struct {
	db *sqlx.DB
}

// NewRequisiteRepository constructs the repository.
func NewRequisiteRepository(db *sqlx.DB) *RequisiteRepository {
	return &RequisiteRepository{db: db}
}

type prerequisiteRow struct {
	ID                string          `db:"prereq_id"`
	Title             string          `db:"prereq_title"`
	SubjectID         string          `db:"prereq_subject_id"`
	CourseNumber      string          `db:"prereq_course_number"`
	Credits           sql.NullFloat64 `db:"prereq_credits"`
	RelationshipType  string          `db:"relationship_type"`
	GroupID           string          `db:"group_id"`
	CanTakeConcurrent bool            `db:"can_take_concurrent"`
	MinimumGrade      sql.NullString  `db:"minimum_grade"`
}

type corequisiteRow struct {
	ID           string          `db:"coreq_id"`
	Title        string          `db:"coreq_title"`
	SubjectID    string          `db:"coreq_subject_id"`
	CourseNumber string          `db:"coreq_course_number"`
	Credits      sql.NullFloat64 `db:"coreq_credits"`
}

// Prerequisites returns the course's prerequisite groups. Rows sharing a group_id are alternatives;
// groups keep the order of their first row.
func (r *RequisiteRepository) Prerequisites(ctx context.Context, courseID string) ([]models.RequisiteGroup, error) {
	const query = `
SELECT
	prereq_id,
	prereq_title,
	prereq_subject_id,
	prereq_course_number,
	prereq_credits,
	relationship_type,
	group_id,
	can_take_concurrent,
	minimum_grade
FROM prerequisites_m_view
WHERE course_id = $1
ORDER BY group_id ASC, prereq_subject_id ASC, prereq_course_number ASC`

	var rows []prerequisiteRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites for %s: %w", courseID, err)
	}

	index := make(map[string]int)
	var groups []models.RequisiteGroup
	for _, row := range rows {
		course := models.RequisiteCourse{
			ID:                row.ID,
			SubjectID:         row.SubjectID,
			CourseNumber:      row.CourseNumber,
			Name:              row.Title,
			Credits:           nullFloat(row.Credits),
			RelationshipType:  row.RelationshipType,
			GroupID:           row.GroupID,
			CanTakeConcurrent: row.CanTakeConcurrent,
			MinimumGrade:      row.MinimumGrade.String,
		}
		i, ok := index[row.GroupID]
		if !ok {
			i = len(groups)
			index[row.GroupID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], course)
	}
	return groups, nil
}

// Corequisites returns the courses that must be taken alongside courseID.
func (r *RequisiteRepository) Corequisites(ctx context.Context, courseID string) ([]models.RequisiteCourse, error) {
	const query = `
SELECT
	coreq_id,
	coreq_title,
	coreq_subject_id,
	coreq_course_number,
	coreq_credits
FROM corequisites_m_view
WHERE course_id = $1
ORDER BY coreq_subject_id ASC, coreq_course_number ASC`

	var rows []corequisiteRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list corequisites for %s: %w", courseID, err)
	}

	courses := make([]models.RequisiteCourse, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, models.RequisiteCourse{
			ID:           row.ID,
			SubjectID:    row.SubjectID,
			CourseNumber: row.CourseNumber,
			Name:         row.Title,
			Credits:      nullFloat(row.Credits),
		})
	}
	return courses, nil
}

// RefreshViews rebuilds both requisite views without blocking readers.
func (r *RequisiteRepository) RefreshViews(ctx context.Context) error {
	for _, view := range []string{"prerequisites_m_view", "corequisites_m_view"} {
		if _, err := r.db.ExecContext(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY "+view); err != nil {
			return fmt.Errorf("refresh %s: %w", view, err)
		}
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
