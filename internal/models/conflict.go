package models

// ConflictType classifies a detected conflict.
type ConflictType string

const (
	ConflictDuplicateCourse     ConflictType = "duplicate-course"
	ConflictCourseOverlap       ConflictType = "course-overlap"
	ConflictUnavailableOverlap  ConflictType = "unavailable-overlap"
	ConflictMissingPrerequisite ConflictType = "missing-prerequisite"
	ConflictMissingCorequisite  ConflictType = "missing-corequisite"
)

// ConflictTypes lists every type in display order.
var ConflictTypes = []ConflictType{
	ConflictDuplicateCourse,
	ConflictCourseOverlap,
	ConflictUnavailableOverlap,
	ConflictMissingPrerequisite,
	ConflictMissingCorequisite,
}

// Conflict is one scheduling or eligibility problem attributed to a course.
type Conflict struct {
	ID         string           `json:"id"`
	CourseID   string           `json:"courseId"`
	CourseName string           `json:"courseName"`
	Type       ConflictType     `json:"type"`
	Term       string           `json:"term"`
	Year       int              `json:"year"`
	Details    []ConflictDetail `json:"details"`
}

// ConflictDetail explains a conflict. Missing prerequisite groups carry their alternatives in Courses.
type ConflictDetail struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	FullData *RequisiteCourse `json:"fullData,omitempty"`
	IsGroup  bool             `json:"isGroup,omitempty"`
	Courses  []ConflictCourse `json:"courses,omitempty"`
}

// ConflictCourse is one alternative listed under a grouped detail.
type ConflictCourse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	FullData *RequisiteCourse `json:"fullData,omitempty"`
}
