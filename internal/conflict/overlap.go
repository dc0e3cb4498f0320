package conflict

import (
	"fmt"

	"github.com/noah-isme/planner-api/internal/models"
)

// DetectOverlaps reports duplicate sections, course/unavailable collisions and course/course
// collisions, in that order. Course collisions are reported once per side so each course can look
// up its own conflicts. Repeated detections of the same conflict are collapsed.
func DetectOverlaps(term string, year int, courses, unavailable []TimeBlock, sections []models.PlannedSection) []models.Conflict {
	c := newCollector(term, year)

	for _, group := range groupSectionsByCourse(sections) {
		if len(group) < 2 {
			continue
		}
		details := make([]models.ConflictDetail, 0, len(group))
		for _, s := range group {
			details = append(details, models.ConflictDetail{ID: s.CRN, Name: fmt.Sprintf("Section (CRN: %s)", s.CRN)})
		}
		c.add("duplicate-course-"+group[0].CourseID, group[0].CourseID, group[0].CourseName, models.ConflictDuplicateCourse, details...)
	}

	for _, course := range courses {
		for _, block := range unavailable {
			day, ok := course.Overlaps(block)
			if !ok {
				continue
			}
			c.add(
				fmt.Sprintf("unavailable-%s-%s", course.CourseID, block.ID),
				course.CourseID, course.Title, models.ConflictUnavailableOverlap,
				models.ConflictDetail{
					ID:   "detail-" + block.ID,
					Name: fmt.Sprintf("Conflicts with unavailable time on %s: %s", day, block.Span()),
				},
			)
		}
	}

	for i := 0; i < len(courses); i++ {
		for j := i + 1; j < len(courses); j++ {
			a, b := courses[i], courses[j]
			if a.CourseID == b.CourseID {
				continue
			}
			day, ok := a.Overlaps(b)
			if !ok {
				continue
			}
			c.add(fmt.Sprintf("course-overlap-%s-%s", a.CourseID, b.CourseID), a.CourseID, a.Title, models.ConflictCourseOverlap, overlapDetail(b, day.String()))
			c.add(fmt.Sprintf("course-overlap-%s-%s", b.CourseID, a.CourseID), b.CourseID, b.Title, models.ConflictCourseOverlap, overlapDetail(a, day.String()))
		}
	}

	return c.conflicts
}

func overlapDetail(other TimeBlock, day string) models.ConflictDetail {
	return models.ConflictDetail{
		ID:   "detail-" + other.CourseID,
		Name: fmt.Sprintf("Conflicts with %s on %s: %s", other.Title, day, other.Span()),
	}
}

// groupSectionsByCourse dedupes sections by CRN (first occurrence wins) and groups them by course,
// preserving first-seen order. Sections without a CRN or course are skipped.
func groupSectionsByCourse(sections []models.PlannedSection) [][]models.PlannedSection {
	seenCRN := make(map[string]struct{}, len(sections))
	index := make(map[string]int)
	var groups [][]models.PlannedSection
	for _, s := range sections {
		if s.CRN == "" || s.CourseID == "" {
			continue
		}
		if _, dup := seenCRN[s.CRN]; dup {
			continue
		}
		seenCRN[s.CRN] = struct{}{}
		i, ok := index[s.CourseID]
		if !ok {
			i = len(groups)
			index[s.CourseID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], s)
	}
	return groups
}

// collector accumulates conflicts keyed by their deterministic id.
type collector struct {
	term      string
	year      int
	seen      map[string]struct{}
	conflicts []models.Conflict
}

func newCollector(term string, year int) *collector {
	return &collector{term: term, year: year, seen: make(map[string]struct{})}
}

func (c *collector) add(id, courseID, courseName string, kind models.ConflictType, details ...models.ConflictDetail) {
	if _, dup := c.seen[id]; dup {
		return
	}
	c.seen[id] = struct{}{}
	c.conflicts = append(c.conflicts, models.Conflict{
		ID:         id,
		CourseID:   courseID,
		CourseName: courseName,
		Type:       kind,
		Term:       c.term,
		Year:       c.year,
		Details:    details,
	})
}
