package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/planner-api/internal/dto"
	"github.com/noah-isme/planner-api/internal/middleware"
	"github.com/noah-isme/planner-api/internal/service"
	appErrors "github.com/noah-isme/planner-api/pkg/errors"
	"github.com/noah-isme/planner-api/pkg/response"
)

const maxCalendarBytes = 1 << 20

type conflictService interface {
	Evaluate(ctx context.Context, req dto.EvaluateRequest) (*dto.ConflictReport, error)
	ForCourse(ctx context.Context, req dto.EvaluateRequest, courseID string) (*dto.CourseConflicts, error)
	PreviewCalendar(ctx context.Context, req dto.EvaluateRequest, calendar io.Reader) (*dto.ConflictReport, error)
	Refresh(ctx context.Context, studentID string, req dto.RefreshRequest) (*dto.RefreshAccepted, error)
}

type reportRenderer interface {
	Render(report *dto.ConflictReport, format string) (*service.ExportFile, error)
}

// ConflictHandler exposes plan conflict endpoints for the authenticated student.
type ConflictHandler struct {
	conflicts conflictService
	exports   reportRenderer
}

// NewConflictHandler constructs the handler.
func NewConflictHandler(conflicts conflictService, exports reportRenderer) *ConflictHandler {
	return &ConflictHandler{conflicts: conflicts, exports: exports}
}

// Evaluate godoc
// @Summary Evaluate plan conflicts
// @Description Detects duplicate sections, time overlaps and missing requisites in the student's plan
// @Tags Conflicts
// @Produce json
// @Param term query string true "Term name"
// @Param year query int true "Term year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /plan/conflicts [get]
func (h *ConflictHandler) Evaluate(c *gin.Context) {
	req, _, ok := evaluateRequest(c)
	if !ok {
		return
	}
	report, err := h.conflicts.Evaluate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, reportMeta(c, report))
}

// CourseConflicts godoc
// @Summary Conflicts of one course
// @Tags Conflicts
// @Produce json
// @Param courseId path string true "Course ID"
// @Param term query string true "Term name"
// @Param year query int true "Term year"
// @Success 200 {object} response.Envelope
// @Router /plan/conflicts/courses/{courseId} [get]
func (h *ConflictHandler) CourseConflicts(c *gin.Context) {
	req, _, ok := evaluateRequest(c)
	if !ok {
		return
	}
	result, err := h.conflicts.ForCourse(c.Request.Context(), req, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Download the conflict report
// @Tags Conflicts
// @Produce text/csv
// @Produce application/pdf
// @Param term query string true "Term name"
// @Param year query int true "Term year"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /plan/conflicts/export [get]
func (h *ConflictHandler) Export(c *gin.Context) {
	req, query, ok := evaluateRequest(c)
	if !ok {
		return
	}
	report, err := h.conflicts.Evaluate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Render(report, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Preview godoc
// @Summary Preview conflicts against an iCalendar
// @Description Evaluates the plan with the calendar's busy times added. Nothing is stored.
// @Tags Conflicts
// @Accept text/calendar
// @Produce json
// @Param term query string true "Term name"
// @Param year query int true "Term year"
// @Success 200 {object} response.Envelope
// @Router /plan/conflicts/preview [post]
func (h *ConflictHandler) Preview(c *gin.Context) {
	req, _, ok := evaluateRequest(c)
	if !ok {
		return
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "calendar body required"))
		return
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxCalendarBytes)
	report, err := h.conflicts.PreviewCalendar(c.Request.Context(), req, body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, reportMeta(c, report))
}

// Refresh godoc
// @Summary Queue a conflict recompute
// @Description Recomputes requisite conflicts in the background, bypassing previously applied results
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param payload body dto.RefreshRequest true "Term to recompute"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /plan/conflicts/refresh [post]
func (h *ConflictHandler) Refresh(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	accepted, err := h.conflicts.Refresh(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, accepted)
}

func evaluateRequest(c *gin.Context) (dto.EvaluateRequest, dto.ConflictQuery, bool) {
	studentID, ok := studentFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return dto.EvaluateRequest{}, dto.ConflictQuery{}, false
	}
	var query dto.ConflictQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidTerm.Code, appErrors.ErrInvalidTerm.Status, appErrors.ErrInvalidTerm.Message))
		return dto.EvaluateRequest{}, dto.ConflictQuery{}, false
	}
	return dto.EvaluateRequest{StudentID: studentID, Term: query.Term, Year: query.Year}, query, true
}

func reportMeta(c *gin.Context, report *dto.ConflictReport) map[string]interface{} {
	return middleware.ResponseMeta(c, map[string]interface{}{
		"requisites_stale": report.RequisitesStale,
		"total":            len(report.Conflicts),
	})
}
