package conflict

import "github.com/noah-isme/planner-api/internal/models"

// Result is the merged conflict list of one evaluation.
type Result struct {
	Conflicts []models.Conflict
	byCourse  map[string][]int
}

// Aggregate concatenates overlap conflicts and requisite conflicts, keeping each list's order.
// A course may appear under several conflict types.
func Aggregate(overlaps, requisites []models.Conflict) Result {
	all := make([]models.Conflict, 0, len(overlaps)+len(requisites))
	all = append(all, overlaps...)
	all = append(all, requisites...)

	byCourse := make(map[string][]int)
	for i, c := range all {
		byCourse[c.CourseID] = append(byCourse[c.CourseID], i)
	}
	return Result{Conflicts: all, byCourse: byCourse}
}

// HasConflict reports whether any conflict is attributed to courseID.
func (r Result) HasConflict(courseID string) bool {
	return len(r.byCourse[courseID]) > 0
}

// ForCourse returns the conflicts attributed to courseID in result order.
func (r Result) ForCourse(courseID string) []models.Conflict {
	idx := r.byCourse[courseID]
	out := make([]models.Conflict, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.Conflicts[i])
	}
	return out
}

// CourseIDs lists courses with at least one conflict, in order of first appearance.
func (r Result) CourseIDs() []string {
	seen := make(map[string]struct{}, len(r.byCourse))
	var out []string
	for _, c := range r.Conflicts {
		if _, ok := seen[c.CourseID]; ok {
			continue
		}
		seen[c.CourseID] = struct{}{}
		out = append(out, c.CourseID)
	}
	return out
}

// CountByType tallies conflicts per type.
func (r Result) CountByType() map[models.ConflictType]int {
	counts := make(map[models.ConflictType]int, len(models.ConflictTypes))
	for _, c := range r.Conflicts {
		counts[c.Type]++
	}
	return counts
}
