package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/planner-api/internal/models"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestExtract_FiltersTermAndType(t *testing.T) {
	events := []models.PlanEvent{
		{ID: "e1", Type: "course", Start: "2025-09-01T09:00:00Z", End: "2025-09-01T10:00:00Z", TermName: "Fall", TermYear: 2025, CRN: "100", CourseID: "CS101", CourseName: "Intro"},
		{ID: "e2", Type: "unavailable", Start: "2025-09-01T12:00:00Z", End: "2025-09-01T13:00:00Z", TermName: "Fall", TermYear: 2025, Title: "Work"},
		{ID: "e3", Type: "course", Start: "2025-09-01T09:00:00Z", End: "2025-09-01T10:00:00Z", TermName: "Spring", TermYear: 2025, CourseID: "CS102"},
		{ID: "e4", Type: "course", Start: "2025-09-01T09:00:00Z", End: "2025-09-01T10:00:00Z", TermName: "Fall", TermYear: 2024, CourseID: "CS103"},
		{ID: "e5", Type: "reminder", Start: "2025-09-01T09:00:00Z", End: "2025-09-01T10:00:00Z", TermName: "Fall", TermYear: 2025},
	}

	blocks := Extract(events, "Fall", 2025, time.UTC)

	require.Len(t, blocks.Courses, 1)
	require.Len(t, blocks.Unavailable, 1)
	course := blocks.Courses[0]
	assert.Equal(t, "e1", course.ID)
	assert.Equal(t, BlockCourse, course.Kind)
	assert.Equal(t, "CS101", course.CourseID)
	assert.Equal(t, "Intro", course.Title)
	assert.Equal(t, NewClock(9, 0), course.Start)
	assert.Equal(t, NewClock(10, 0), course.End)
	assert.Equal(t, DaysOf(time.Monday), course.Days)
	assert.Equal(t, BlockUnavailable, blocks.Unavailable[0].Kind)
	assert.Empty(t, blocks.Unavailable[0].CourseID)
}

func TestExtract_ConvertsToLocalTime(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	events := []models.PlanEvent{
		// 02:30 UTC Tuesday is 22:30 Monday in New York (EDT).
		{ID: "e1", Type: "course", Start: "2025-09-02T02:30:00Z", End: "2025-09-02T03:45:00Z", TermName: "Fall", TermYear: 2025, CourseID: "CS101"},
	}

	blocks := Extract(events, "Fall", 2025, ny)

	require.Len(t, blocks.Courses, 1)
	assert.Equal(t, "22:30", blocks.Courses[0].Start.String())
	assert.Equal(t, "23:45", blocks.Courses[0].End.String())
	assert.Equal(t, DaysOf(time.Monday), blocks.Courses[0].Days)
}

func TestExtract_CourseIdentityFallbacks(t *testing.T) {
	events := []models.PlanEvent{
		{ID: "a", Type: "course", Start: "2025-09-01 09:00:00", End: "2025-09-01 10:00:00", TermName: "Fall", TermYear: 2025, CRN: "555", Title: "Custom block"},
		{ID: "b", Type: "course", Start: "2025-09-01 09:00:00", End: "2025-09-01 10:00:00", TermName: "Fall", TermYear: 2025},
	}

	blocks := Extract(events, "Fall", 2025, time.UTC)

	require.Len(t, blocks.Courses, 2)
	assert.Equal(t, "555", blocks.Courses[0].CourseID)
	assert.Equal(t, "Custom block", blocks.Courses[0].Title)
	assert.Equal(t, "", blocks.Courses[1].CourseID)
	assert.Equal(t, UntitledCourse, blocks.Courses[1].Title)
}

func TestExtract_MalformedTimestampDegrades(t *testing.T) {
	events := []models.PlanEvent{
		{ID: "bad", Type: "course", Start: "not-a-date", End: "", TermName: "Fall", TermYear: 2025, CourseID: "CS101"},
	}

	require.NotPanics(t, func() {
		blocks := Extract(events, "Fall", 2025, nil)
		require.Len(t, blocks.Courses, 1)
		assert.True(t, blocks.Courses[0].Days.Empty())
		assert.Equal(t, "CS101", blocks.Courses[0].CourseID)
	})
}

func TestDaySet(t *testing.T) {
	mw := DaysOf(time.Monday, time.Wednesday)
	tw := DaysOf(time.Tuesday, time.Wednesday)

	assert.True(t, mw.Has(time.Monday))
	assert.False(t, mw.Has(time.Tuesday))
	assert.Equal(t, []time.Weekday{time.Wednesday}, mw.Intersect(tw).Days())
	day, ok := mw.First()
	assert.True(t, ok)
	assert.Equal(t, time.Monday, day)
	_, ok = DaySet(0).First()
	assert.False(t, ok)
	assert.Equal(t, DaySet(0), DaySet(0).With(time.Weekday(9)))
}

func TestRangesOverlap_HalfOpen(t *testing.T) {
	assert.False(t, RangesOverlap(NewClock(9, 0), NewClock(10, 0), NewClock(10, 0), NewClock(11, 0)))
	assert.True(t, RangesOverlap(NewClock(9, 0), NewClock(10, 1), NewClock(10, 0), NewClock(11, 0)))
	assert.True(t, RangesOverlap(NewClock(9, 0), NewClock(12, 0), NewClock(10, 0), NewClock(11, 0)))
	// inverted and empty ranges never overlap
	assert.False(t, RangesOverlap(NewClock(11, 0), NewClock(9, 0), NewClock(9, 30), NewClock(10, 0)))
	assert.False(t, RangesOverlap(NewClock(10, 0), NewClock(10, 0), NewClock(9, 0), NewClock(11, 0)))
}
