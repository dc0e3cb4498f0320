package models

// RequisiteCourse is one course alternative inside a prerequisite group or corequisite list.
// Extended metadata is passed through for display only.
type RequisiteCourse struct {
	ID                string   `db:"id" json:"id" yaml:"id"`
	SubjectID         string   `db:"subject_id" json:"subjectId" yaml:"subject_id"`
	CourseNumber      string   `db:"course_number" json:"courseNumber" yaml:"course_number"`
	Name              string   `db:"name" json:"name" yaml:"name"`
	Credits           *float64 `db:"credits" json:"credits,omitempty" yaml:"credits"`
	RelationshipType  string   `db:"relationship_type" json:"relationshipType,omitempty" yaml:"relationship_type"`
	GroupID           string   `db:"group_id" json:"groupId,omitempty" yaml:"group_id"`
	CanTakeConcurrent bool     `db:"can_take_concurrent" json:"canTakeConcurrent,omitempty" yaml:"can_take_concurrent"`
	MinimumGrade      string   `db:"minimum_grade" json:"minimumGrade,omitempty" yaml:"minimum_grade"`
}

// Label renders the short catalog label, e.g. "CS 101".
func (c RequisiteCourse) Label() string {
	switch {
	case c.SubjectID == "" && c.CourseNumber == "":
		return c.Name
	case c.SubjectID == "":
		return c.CourseNumber
	case c.CourseNumber == "":
		return c.SubjectID
	}
	return c.SubjectID + " " + c.CourseNumber
}

// RequisiteGroup lists interchangeable prerequisite alternatives (any one satisfies the group).
type RequisiteGroup []RequisiteCourse
