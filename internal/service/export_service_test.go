package service

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/planner-api/internal/dto"
	"github.com/noah-isme/planner-api/internal/models"
	appErrors "github.com/noah-isme/planner-api/pkg/errors"
	"github.com/noah-isme/planner-api/pkg/export"
)

type failingCSV struct{}

func (failingCSV) Render(rows []export.ConflictRow) ([]byte, error) {
	return nil, errors.New("disk full")
}

func sampleReport() *dto.ConflictReport {
	return &dto.ConflictReport{
		StudentID:    "s1",
		Term:         "Fall",
		Year:         2025,
		HasConflicts: true,
		Conflicts: []models.Conflict{
			{ID: "unavailable-CS101-u1", CourseID: "CS101", CourseName: "Intro to CS", Type: models.ConflictUnavailableOverlap,
				Details: []models.ConflictDetail{{ID: "detail-u1", Name: "Conflicts with unavailable time on Monday: 09:30-10:30"}}},
			{ID: "missing-prereq-CS201", CourseID: "CS201", CourseName: "Data Structures", Type: models.ConflictMissingPrerequisite,
				Details: []models.ConflictDetail{
					{ID: "prereq-group-0", Name: "Discrete Math"},
					{ID: "prereq-group-1", Name: "One of: Algebra, Geometry", IsGroup: true},
				}},
		},
		Counts: map[models.ConflictType]int{models.ConflictUnavailableOverlap: 1, models.ConflictMissingPrerequisite: 1},
	}
}

func newExportServiceForTest() *ExportService {
	svc := NewExportService(nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestExportServiceRenderCSV(t *testing.T) {
	file, err := newExportServiceForTest().Render(sampleReport(), "")
	require.NoError(t, err)

	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "conflicts_Fall_2025_20250901_120000.csv", file.Filename)
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "CS201,Data Structures,missing-prerequisite,missing-prereq-CS201,\"One of: Algebra, Geometry\"", lines[3])
}

func TestExportServiceRenderPDF(t *testing.T) {
	file, err := newExportServiceForTest().Render(sampleReport(), "PDF")
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestExportServiceRenderErrors(t *testing.T) {
	svc := newExportServiceForTest()

	_, err := svc.Render(sampleReport(), "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedType)

	_, err = svc.Render(nil, "csv")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	svc.csv = failingCSV{}
	_, err = svc.Render(sampleReport(), "csv")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestConflictRowsKeepsConflictsWithoutDetails(t *testing.T) {
	rows := ConflictRows([]models.Conflict{{ID: "x", CourseID: "CS1", Type: models.ConflictCourseOverlap}})
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Detail)
}

func TestSummarizeListsCountsInDisplayOrder(t *testing.T) {
	assert.Equal(t, "unavailable-overlap: 1  missing-prerequisite: 1", summarize(sampleReport()))
	assert.Equal(t, "No conflicts", summarize(&dto.ConflictReport{}))
}
