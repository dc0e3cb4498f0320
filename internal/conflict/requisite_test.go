package conflict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/planner-api/internal/models"
	appErrors "github.com/noah-isme/planner-api/pkg/errors"
)

type stubProvider struct {
	mu         sync.Mutex
	prereqs    map[string][]models.RequisiteGroup
	coreqs     map[string][]models.RequisiteCourse
	prereqErrs map[string]error
	coreqErrs  map[string]error
	calls      []string
}

func (s *stubProvider) Prerequisites(_ context.Context, courseID string) ([]models.RequisiteGroup, error) {
	s.mu.Lock()
	s.calls = append(s.calls, "prereq:"+courseID)
	s.mu.Unlock()
	if err := s.prereqErrs[courseID]; err != nil {
		return nil, err
	}
	return s.prereqs[courseID], nil
}

func (s *stubProvider) Corequisites(_ context.Context, courseID string) ([]models.RequisiteCourse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, "coreq:"+courseID)
	s.mu.Unlock()
	if err := s.coreqErrs[courseID]; err != nil {
		return nil, err
	}
	return s.coreqs[courseID], nil
}

type countingObserver struct {
	mu    sync.Mutex
	kinds []string
}

func (o *countingObserver) RecordRequisiteFailure(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
}

func req(id, subject, number, name string) models.RequisiteCourse {
	return models.RequisiteCourse{ID: id, SubjectID: subject, CourseNumber: number, Name: name}
}

func TestResolve_MissingPrerequisiteScenario(t *testing.T) {
	provider := &stubProvider{prereqs: map[string][]models.RequisiteGroup{
		"CS201": {{req("CS101", "CS", "101", "Intro to CS")}},
	}}
	resolver := NewResolver(provider, nil, nil)

	got, err := resolver.Resolve(context.Background(), "Fall", 2025, []ScheduledCourse{{CourseID: "CS201", Title: "CS201"}}, nil)
	require.NoError(t, err)

	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, "missing-prereq-CS201", c.ID)
	assert.Equal(t, models.ConflictMissingPrerequisite, c.Type)
	assert.Equal(t, "CS201", c.CourseID)
	require.Len(t, c.Details, 1)
	group := c.Details[0]
	assert.Equal(t, "prereq-group-0", group.ID)
	assert.Equal(t, "Intro to CS", group.Name)
	assert.False(t, group.IsGroup)
	require.Len(t, group.Courses, 1)
	assert.Equal(t, "CS101", group.Courses[0].ID)
	assert.Equal(t, "CS 101", group.Courses[0].Name)
	require.NotNil(t, group.Courses[0].FullData)
	assert.Equal(t, "Intro to CS", group.Courses[0].FullData.Name)
}

func TestResolve_PrerequisiteAndOrCombinations(t *testing.T) {
	groups := []models.RequisiteGroup{
		{req("A", "MATH", "101", "Algebra"), req("B", "MATH", "102", "Geometry")},
		{req("C", "CS", "101", "Intro to CS")},
	}

	cases := []struct {
		name       string
		completed  CourseSet
		wantGroups []string
	}{
		{name: "or satisfied and single satisfied", completed: NewCourseSet("B", "C")},
		{name: "or satisfied single missing", completed: NewCourseSet("A"), wantGroups: []string{"prereq-group-1"}},
		{name: "or missing single satisfied", completed: NewCourseSet("C"), wantGroups: []string{"prereq-group-0"}},
		{name: "both missing", completed: NewCourseSet(), wantGroups: []string{"prereq-group-0", "prereq-group-1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &stubProvider{prereqs: map[string][]models.RequisiteGroup{"CS301": groups}}
			resolver := NewResolver(provider, nil, nil)

			got, err := resolver.Resolve(context.Background(), "Fall", 2025, []ScheduledCourse{{CourseID: "CS301", Title: "Algorithms"}}, tc.completed)
			require.NoError(t, err)

			if len(tc.wantGroups) == 0 {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			var ids []string
			for _, d := range got[0].Details {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tc.wantGroups, ids)
		})
	}
}

func TestResolve_GroupDescriptor(t *testing.T) {
	provider := &stubProvider{prereqs: map[string][]models.RequisiteGroup{
		"CS301": {{req("A", "MATH", "101", "Algebra"), req("B", "MATH", "102", "Geometry")}},
	}}
	resolver := NewResolver(provider, nil, nil)

	got, err := resolver.Resolve(context.Background(), "Fall", 2025, []ScheduledCourse{{CourseID: "CS301", Title: "Algorithms"}}, nil)
	require.NoError(t, err)

	require.Len(t, got, 1)
	detail := got[0].Details[0]
	assert.Equal(t, "One of: Algebra, Geometry", detail.Name)
	assert.True(t, detail.IsGroup)
	require.Len(t, detail.Courses, 2)
	assert.Equal(t, "MATH 101", detail.Courses[0].Name)
	assert.Equal(t, "MATH 102", detail.Courses[1].Name)
}

func TestResolve_ScheduledCourseSatisfiesRequisites(t *testing.T) {
	provider := &stubProvider{
		prereqs: map[string][]models.RequisiteGroup{"CS201": {{req("CS101", "CS", "101", "Intro")}}},
		coreqs:  map[string][]models.RequisiteCourse{"CS201": {req("CS201L", "CS", "201L", "Lab")}},
	}
	resolver := NewResolver(provider, nil, nil)
	scheduled := []ScheduledCourse{
		{CourseID: "CS201", Title: "Data Structures"},
		{CourseID: "CS101", Title: "Intro"},
		{CourseID: "CS201L", Title: "Lab"},
	}

	got, err := resolver.Resolve(context.Background(), "Fall", 2025, scheduled, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_CorequisiteBeforePrerequisite(t *testing.T) {
	provider := &stubProvider{
		prereqs: map[string][]models.RequisiteGroup{"CS201": {{req("CS101", "CS", "101", "Intro")}}},
		coreqs:  map[string][]models.RequisiteCourse{"CS201": {req("CS201L", "CS", "201L", "Lab"), req("MATH150", "MATH", "150", "Discrete")}},
	}
	resolver := NewResolver(provider, nil, nil)

	got, err := resolver.Resolve(context.Background(), "Fall", 2025, []ScheduledCourse{{CourseID: "CS201", Title: "Data Structures"}}, NewCourseSet("MATH150"))
	require.NoError(t, err)

	assert.Equal(t, []string{"missing-coreq-CS201", "missing-prereq-CS201"}, conflictIDs(got))
	coreq := got[0]
	assert.Equal(t, models.ConflictMissingCorequisite, coreq.Type)
	assert.Equal(t, "Data Structures", coreq.CourseName)
	require.Len(t, coreq.Details, 1)
	assert.Equal(t, "CS201L", coreq.Details[0].ID)
	assert.Equal(t, "CS 201L", coreq.Details[0].Name)
	require.NotNil(t, coreq.Details[0].FullData)
}

func TestResolve_SkipsExamsCompletedAndDuplicates(t *testing.T) {
	missing := []models.RequisiteGroup{{req("X", "X", "1", "Never taken")}}
	provider := &stubProvider{prereqs: map[string][]models.RequisiteGroup{
		"FINAL": missing,
		"MID":   missing,
		"CS101": missing,
		"CS201": missing,
	}}
	resolver := NewResolver(provider, nil, nil)
	scheduled := []ScheduledCourse{
		{CourseID: "FINAL", Title: "Final Exam"},
		{CourseID: "MID", Title: "midterm exam block"},
		{CourseID: "CS101", Title: "Intro"},
		{CourseID: "", Title: "No id"},
		{CourseID: "CS201", Title: "Data Structures"},
		{CourseID: "CS201", Title: "Data Structures"},
	}

	got, err := resolver.Resolve(context.Background(), "Fall", 2025, scheduled, NewCourseSet("CS101"))
	require.NoError(t, err)

	assert.Equal(t, []string{"missing-prereq-CS201"}, conflictIDs(got))
	assert.ElementsMatch(t, []string{"prereq:CS201", "coreq:CS201"}, provider.calls)
}

func TestResolve_PartialFailure(t *testing.T) {
	missing := []models.RequisiteGroup{{req("X", "X", "1", "Never taken")}}
	provider := &stubProvider{
		prereqs:    map[string][]models.RequisiteGroup{"CS101": missing, "CS201": missing, "CS301": missing},
		prereqErrs: map[string]error{"CS201": errors.New("connection reset")},
		coreqErrs:  map[string]error{"CS301": errors.New("timeout")},
	}
	observer := &countingObserver{}
	resolver := NewResolver(provider, observer, nil)
	scheduled := []ScheduledCourse{
		{CourseID: "CS101", Title: "Intro"},
		{CourseID: "CS201", Title: "Data Structures"},
		{CourseID: "CS301", Title: "Algorithms"},
	}

	got, err := resolver.Resolve(context.Background(), "Fall", 2025, scheduled, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"missing-prereq-CS101", "missing-prereq-CS301"}, conflictIDs(got))
	assert.ElementsMatch(t, []string{KindPrerequisite, KindCorequisite}, observer.kinds)
}

func TestResolve_EmptyGroupIsUnsatisfiable(t *testing.T) {
	provider := &stubProvider{prereqs: map[string][]models.RequisiteGroup{"CS201": {{}}}}
	resolver := NewResolver(provider, nil, nil)

	got, err := resolver.Resolve(context.Background(), "Fall", 2025, []ScheduledCourse{{CourseID: "CS201", Title: "Data Structures"}}, nil)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Empty(t, got[0].Details[0].Courses)
}

func TestResolve_InvalidTerm(t *testing.T) {
	resolver := NewResolver(&stubProvider{}, nil, nil)

	_, err := resolver.Resolve(context.Background(), " ", 2025, nil, nil)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTerm)

	_, err = resolver.Resolve(context.Background(), "Fall", 0, nil, nil)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTerm)
}

func TestResolve_CancelledContext(t *testing.T) {
	provider := &stubProvider{}
	resolver := NewResolver(provider, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := resolver.Resolve(ctx, "Fall", 2025, []ScheduledCourse{{CourseID: "CS101", Title: "Intro"}}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Empty(t, provider.calls)
}

func TestResolve_ProviderCancellationIsNotTreatedAsEmpty(t *testing.T) {
	provider := &stubProvider{
		prereqs: map[string][]models.RequisiteGroup{
			"CS201": {{req("CS101", "CS", "101", "Intro to CS")}},
		},
		prereqErrs: map[string]error{"CS201": fmt.Errorf("shared fetch: %w", context.Canceled)},
	}
	observer := &countingObserver{}
	resolver := NewResolver(provider, observer, nil)

	got, err := resolver.Resolve(context.Background(), "Fall", 2025, []ScheduledCourse{{CourseID: "CS201", Title: "Data Structures"}}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Empty(t, observer.kinds)
}

func TestResolve_LookupsRunPerCourseInOrder(t *testing.T) {
	provider := &stubProvider{}
	resolver := NewResolver(provider, nil, nil)
	var scheduled []ScheduledCourse
	for i := 0; i < 5; i++ {
		scheduled = append(scheduled, ScheduledCourse{CourseID: fmt.Sprintf("C%d", i), Title: "Course"})
	}

	_, err := resolver.Resolve(context.Background(), "Fall", 2025, scheduled, nil)
	require.NoError(t, err)

	require.Len(t, provider.calls, 10)
	for i := 0; i < 5; i++ {
		pair := provider.calls[i*2 : i*2+2]
		id := fmt.Sprintf("C%d", i)
		assert.ElementsMatch(t, []string{"prereq:" + id, "coreq:" + id}, pair)
	}
}
