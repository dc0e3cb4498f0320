package conflict

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/planner-api/internal/models"
	appErrors "github.com/noah-isme/planner-api/pkg/errors"
)

// RequisiteProvider looks up a course's prerequisite groups and corequisites.
type RequisiteProvider interface {
	Prerequisites(ctx context.Context, courseID string) ([]models.RequisiteGroup, error)
	Corequisites(ctx context.Context, courseID string) ([]models.RequisiteCourse, error)
}

// FailureObserver is notified when a requisite lookup fails and is replaced by an empty result.
type FailureObserver interface {
	RecordRequisiteFailure(kind string)
}

// Requisite kinds used in logs and metrics.
const (
	KindPrerequisite = "prerequisite"
	KindCorequisite  = "corequisite"
)

// ScheduledCourse is a course present in the term plan.
type ScheduledCourse struct {
	CourseID string
	Title    string
}

// ScheduledCourses lists the course identities behind the given blocks, in block order.
func ScheduledCourses(blocks []TimeBlock) []ScheduledCourse {
	out := make([]ScheduledCourse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, ScheduledCourse{CourseID: b.CourseID, Title: b.Title})
	}
	return out
}

// CourseSet is a set of course ids.
type CourseSet map[string]struct{}

// NewCourseSet builds a set ignoring empty ids.
func NewCourseSet(ids ...string) CourseSet {
	s := make(CourseSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s CourseSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s CourseSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolver evaluates prerequisite and corequisite satisfaction for scheduled courses.
type Resolver struct {
	provider RequisiteProvider
	observer FailureObserver
	logger   *zap.Logger
}

// NewResolver builds a resolver over the given provider. observer may be nil.
func NewResolver(provider RequisiteProvider, observer FailureObserver, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{provider: provider, observer: observer, logger: logger}
}

// Resolve reports missing corequisites and prerequisites for every scheduled course that is not
// completed and not an exam placeholder. Courses are processed one at a time; both lookups of a course
// run together. A failed lookup counts as "no requisites of that kind", except a cancellation, which would
// otherwise hide real requisites. The only errors returned are an invalid term and a cancellation.
func (r *Resolver) Resolve(ctx context.Context, term string, year int, scheduled []ScheduledCourse, completed CourseSet) ([]models.Conflict, error) {
	if strings.TrimSpace(term) == "" || year <= 0 {
		return nil, appErrors.ErrInvalidTerm
	}
	if completed == nil {
		completed = CourseSet{}
	}

	scheduledIDs := make(CourseSet, len(scheduled))
	for _, s := range scheduled {
		if s.CourseID != "" {
			scheduledIDs[s.CourseID] = struct{}{}
		}
	}
	satisfied := func(id string) bool {
		return completed.Has(id) || scheduledIDs.Has(id)
	}

	var out []models.Conflict
	for _, course := range candidates(scheduled, completed) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prereqs, coreqs, err := r.fetch(ctx, course.CourseID)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if missing := missingCorequisites(coreqs, satisfied); len(missing) > 0 {
			out = append(out, models.Conflict{
				ID:         "missing-coreq-" + course.CourseID,
				CourseID:   course.CourseID,
				CourseName: course.Title,
				Type:       models.ConflictMissingCorequisite,
				Term:       term,
				Year:       year,
				Details:    missing,
			})
		}
		if missing := missingPrerequisiteGroups(prereqs, satisfied); len(missing) > 0 {
			out = append(out, models.Conflict{
				ID:         "missing-prereq-" + course.CourseID,
				CourseID:   course.CourseID,
				CourseName: course.Title,
				Type:       models.ConflictMissingPrerequisite,
				Term:       term,
				Year:       year,
				Details:    missing,
			})
		}
	}
	return out, nil
}

func (r *Resolver) fetch(ctx context.Context, courseID string) ([]models.RequisiteGroup, []models.RequisiteCourse, error) {
	var (
		prereqs []models.RequisiteGroup
		coreqs  []models.RequisiteCourse
		g       errgroup.Group
	)
	g.Go(func() error {
		groups, err := r.provider.Prerequisites(ctx, courseID)
		if errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			r.lookupFailed(ctx, KindPrerequisite, courseID, err)
			return nil
		}
		prereqs = groups
		return nil
	})
	g.Go(func() error {
		courses, err := r.provider.Corequisites(ctx, courseID)
		if errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			r.lookupFailed(ctx, KindCorequisite, courseID, err)
			return nil
		}
		coreqs = courses
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return prereqs, coreqs, nil
}

func (r *Resolver) lookupFailed(ctx context.Context, kind, courseID string, err error) {
	if ctx.Err() != nil {
		return
	}
	r.logger.Warn("requisite lookup failed", zap.String("kind", kind), zap.String("course_id", courseID), zap.Error(err))
	if r.observer != nil {
		r.observer.RecordRequisiteFailure(kind)
	}
}

// candidates returns the unique scheduled courses that need checking, in first-seen order.
func candidates(scheduled []ScheduledCourse, completed CourseSet) []ScheduledCourse {
	seen := make(map[string]struct{}, len(scheduled))
	var out []ScheduledCourse
	for _, s := range scheduled {
		if s.CourseID == "" || completed.Has(s.CourseID) || isExam(s.Title) {
			continue
		}
		if _, dup := seen[s.CourseID]; dup {
			continue
		}
		seen[s.CourseID] = struct{}{}
		out = append(out, s)
	}
	return out
}

func isExam(title string) bool {
	return strings.Contains(strings.ToUpper(title), "EXAM")
}

func missingCorequisites(coreqs []models.RequisiteCourse, satisfied func(string) bool) []models.ConflictDetail {
	var details []models.ConflictDetail
	for i := range coreqs {
		c := coreqs[i]
		if satisfied(c.ID) {
			continue
		}
		details = append(details, models.ConflictDetail{ID: c.ID, Name: c.Label(), FullData: &c})
	}
	return details
}

func missingPrerequisiteGroups(groups []models.RequisiteGroup, satisfied func(string) bool) []models.ConflictDetail {
	var details []models.ConflictDetail
	for idx, group := range groups {
		if groupSatisfied(group, satisfied) {
			continue
		}
		courses := make([]models.ConflictCourse, 0, len(group))
		names := make([]string, 0, len(group))
		for i := range group {
			c := group[i]
			courses = append(courses, models.ConflictCourse{ID: c.ID, Name: c.Label(), FullData: &c})
			names = append(names, c.Name)
		}
		name := "One of: " + strings.Join(names, ", ")
		if len(group) == 1 {
			name = group[0].Name
		}
		details = append(details, models.ConflictDetail{
			ID:      fmt.Sprintf("prereq-group-%d", idx),
			Name:    name,
			IsGroup: len(group) > 1,
			Courses: courses,
		})
	}
	return details
}

func groupSatisfied(group models.RequisiteGroup, satisfied func(string) bool) bool {
	for _, c := range group {
		if satisfied(c.ID) {
			return true
		}
	}
	return false
}
