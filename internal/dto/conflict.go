package dto

import (
	"time"

	"github.com/noah-isme/planner-api/internal/models"
)

// EvaluateRequest selects the plan to evaluate.
type EvaluateRequest struct {
	StudentID string `json:"-" validate:"required"`
	Term      string `json:"term" form:"term" validate:"required"`
	Year      int    `json:"year" form:"year" validate:"required,gt=0"`
}

// ConflictQuery binds query parameters of the conflict endpoints.
type ConflictQuery struct {
	Term   string `form:"term"`
	Year   int    `form:"year"`
	Format string `form:"format"`
}

// RefreshRequest asks for a background recompute of one term.
type RefreshRequest struct {
	Term string `json:"term" validate:"required"`
	Year int    `json:"year" validate:"required,gt=0"`
}

// ConflictReport is the outcome of one evaluation.
type ConflictReport struct {
	StudentID            string                      `json:"student_id"`
	Term                 string                      `json:"term"`
	Year                 int                         `json:"year"`
	HasConflicts         bool                        `json:"has_conflicts"`
	Conflicts            []models.Conflict           `json:"conflicts"`
	CoursesWithConflicts []string                    `json:"courses_with_conflicts"`
	Counts               map[models.ConflictType]int `json:"counts"`
	RequisitesStale      bool                        `json:"requisites_stale"`
	EvaluatedAt          time.Time                   `json:"evaluated_at"`
}

// HasConflict reports whether courseID has any conflict in the report.
func (r *ConflictReport) HasConflict(courseID string) bool {
	return len(r.ForCourse(courseID)) > 0
}

// ForCourse returns the report's conflicts attributed to courseID.
func (r *ConflictReport) ForCourse(courseID string) []models.Conflict {
	if r == nil {
		return nil
	}
	var out []models.Conflict
	for _, c := range r.Conflicts {
		if c.CourseID == courseID {
			out = append(out, c)
		}
	}
	return out
}

// CourseConflicts narrows a report to one course.
type CourseConflicts struct {
	CourseID    string            `json:"course_id"`
	Term        string            `json:"term"`
	Year        int               `json:"year"`
	HasConflict bool              `json:"has_conflict"`
	Conflicts   []models.Conflict `json:"conflicts"`
}

// RefreshAccepted acknowledges a queued recompute.
type RefreshAccepted struct {
	JobID     string `json:"job_id"`
	Term      string `json:"term"`
	Year      int    `json:"year"`
	Coalesced bool   `json:"coalesced"`
}
