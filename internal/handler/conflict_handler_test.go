package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/planner-api/internal/dto"
	"github.com/noah-isme/planner-api/internal/middleware"
	"github.com/noah-isme/planner-api/internal/models"
	"github.com/noah-isme/planner-api/internal/service"
	appErrors "github.com/noah-isme/planner-api/pkg/errors"
)

type conflictServiceMock struct {
	report      *dto.ConflictReport
	course      *dto.CourseConflicts
	accepted    *dto.RefreshAccepted
	err         error
	lastReq     dto.EvaluateRequest
	lastCourse  string
	lastRefresh dto.RefreshRequest
	calendar    string
}

func (m *conflictServiceMock) Evaluate(ctx context.Context, req dto.EvaluateRequest) (*dto.ConflictReport, error) {
	m.lastReq = req
	return m.report, m.err
}

func (m *conflictServiceMock) ForCourse(ctx context.Context, req dto.EvaluateRequest, courseID string) (*dto.CourseConflicts, error) {
	m.lastReq = req
	m.lastCourse = courseID
	return m.course, m.err
}

func (m *conflictServiceMock) PreviewCalendar(ctx context.Context, req dto.EvaluateRequest, calendar io.Reader) (*dto.ConflictReport, error) {
	m.lastReq = req
	body, _ := io.ReadAll(calendar)
	m.calendar = string(body)
	return m.report, m.err
}

func (m *conflictServiceMock) Refresh(ctx context.Context, studentID string, req dto.RefreshRequest) (*dto.RefreshAccepted, error) {
	m.lastReq = dto.EvaluateRequest{StudentID: studentID}
	m.lastRefresh = req
	return m.accepted, m.err
}

func newConflictRouter(svc *conflictServiceMock, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewConflictHandler(svc, service.NewExportService(nil, nil, nil))
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	r.GET("/plan/conflicts", h.Evaluate)
	r.GET("/plan/conflicts/courses/:courseId", h.CourseConflicts)
	r.GET("/plan/conflicts/export", h.Export)
	r.POST("/plan/conflicts/preview", h.Preview)
	r.POST("/plan/conflicts/refresh", h.Refresh)
	return r
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "student-1", Role: "student"}
}

func handlerReport() *dto.ConflictReport {
	return &dto.ConflictReport{
		StudentID:    "student-1",
		Term:         "Fall",
		Year:         2025,
		HasConflicts: true,
		Conflicts: []models.Conflict{{
			ID: "missing-coreq-CS101", CourseID: "CS101", CourseName: "Intro to CS", Type: models.ConflictMissingCorequisite,
			Details: []models.ConflictDetail{{ID: "CS101L", Name: "CS 101L"}},
		}},
		CoursesWithConflicts: []string{"CS101"},
		Counts:               map[models.ConflictType]int{models.ConflictMissingCorequisite: 1},
	}
}

func TestConflictHandlerEvaluate(t *testing.T) {
	svc := &conflictServiceMock{report: handlerReport()}
	r := newConflictRouter(svc, studentClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plan/conflicts?term=Fall&year=2025", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.EvaluateRequest{StudentID: "student-1", Term: "Fall", Year: 2025}, svc.lastReq)

	var body struct {
		Data dto.ConflictReport     `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.HasConflicts)
	assert.Equal(t, "missing-coreq-CS101", body.Data.Conflicts[0].ID)
	assert.Equal(t, float64(1), body.Meta["total"])
	assert.Equal(t, false, body.Meta["requisites_stale"])
}

func TestConflictHandlerRequiresClaims(t *testing.T) {
	r := newConflictRouter(&conflictServiceMock{report: handlerReport()}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plan/conflicts?term=Fall&year=2025", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConflictHandlerBadYear(t *testing.T) {
	r := newConflictRouter(&conflictServiceMock{report: handlerReport()}, studentClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plan/conflicts?term=Fall&year=soon", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrInvalidTerm.Code)
}

func TestConflictHandlerPropagatesServiceErrors(t *testing.T) {
	svc := &conflictServiceMock{err: appErrors.Clone(appErrors.ErrInvalidTerm, "term and year are required")}
	r := newConflictRouter(svc, studentClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plan/conflicts?term=Fall", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConflictHandlerCourseConflicts(t *testing.T) {
	svc := &conflictServiceMock{course: &dto.CourseConflicts{CourseID: "CS101", HasConflict: true, Conflicts: handlerReport().Conflicts}}
	r := newConflictRouter(svc, studentClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plan/conflicts/courses/CS101?term=Fall&year=2025", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CS101", svc.lastCourse)
	assert.Contains(t, w.Body.String(), `"has_conflict":true`)
}

func TestConflictHandlerExport(t *testing.T) {
	r := newConflictRouter(&conflictServiceMock{report: handlerReport()}, studentClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plan/conflicts/export?term=Fall&year=2025&format=csv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "conflicts_Fall_2025_")
	assert.True(t, strings.HasPrefix(w.Body.String(), "course_id,course_name,type,conflict_id,detail\n"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plan/conflicts/export?term=Fall&year=2025&format=docx", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConflictHandlerPreview(t *testing.T) {
	svc := &conflictServiceMock{report: handlerReport()}
	r := newConflictRouter(svc, studentClaims())

	calendar := "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	req := httptest.NewRequest(http.MethodPost, "/plan/conflicts/preview?term=Fall&year=2025", strings.NewReader(calendar))
	req.Header.Set("Content-Type", "text/calendar")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, calendar, svc.calendar)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/plan/conflicts/preview?term=Fall&year=2025", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConflictHandlerRefresh(t *testing.T) {
	svc := &conflictServiceMock{accepted: &dto.RefreshAccepted{JobID: "job-1", Term: "Fall", Year: 2025}}
	r := newConflictRouter(svc, studentClaims())

	payload, _ := json.Marshal(dto.RefreshRequest{Term: "Fall", Year: 2025})
	req := httptest.NewRequest(http.MethodPost, "/plan/conflicts/refresh", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "student-1", svc.lastReq.StudentID)
	assert.Equal(t, dto.RefreshRequest{Term: "Fall", Year: 2025}, svc.lastRefresh)
	assert.Contains(t, w.Body.String(), `"job_id":"job-1"`)

	req = httptest.NewRequest(http.MethodPost, "/plan/conflicts/refresh", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
