package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/planner-api/internal/dto"
	"github.com/noah-isme/planner-api/internal/models"
	appErrors "github.com/noah-isme/planner-api/pkg/errors"
	"github.com/noah-isme/planner-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type csvRenderer interface {
	Render(rows []export.ConflictRow) ([]byte, error)
}

type pdfRenderer interface {
	Render(rows []export.ConflictRow, title, summary string) ([]byte, error)
}

// ExportFile is a rendered report ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders conflict reports into downloadable files.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Render produces the report in format (csv when empty).
func (s *ExportService) Render(report *dto.ConflictReport, format string) (*ExportFile, error) {
	if report == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report is required")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}

	rows := ConflictRows(report.Conflicts)
	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		body, err = s.csv.Render(rows)
		contentType = "text/csv"
	case ExportFormatPDF:
		title := fmt.Sprintf("Plan conflicts %s %d", report.Term, report.Year)
		body, err = s.pdf.Render(rows, title, summarize(report))
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedType, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		s.logger.Error("render conflict export", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    s.buildFilename(report, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// ConflictRows flattens conflicts into one row per detail. Grouped details list their alternatives.
func ConflictRows(conflicts []models.Conflict) []export.ConflictRow {
	rows := make([]export.ConflictRow, 0, len(conflicts))
	for _, c := range conflicts {
		base := export.ConflictRow{CourseID: c.CourseID, CourseName: c.CourseName, Type: string(c.Type), ConflictID: c.ID}
		if len(c.Details) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, d := range c.Details {
			row := base
			row.Detail = d.Name
			rows = append(rows, row)
		}
	}
	return rows
}

func summarize(report *dto.ConflictReport) string {
	if !report.HasConflicts {
		return "No conflicts"
	}
	parts := make([]string, 0, len(models.ConflictTypes))
	for _, kind := range models.ConflictTypes {
		if n := report.Counts[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", kind, n))
		}
	}
	return strings.Join(parts, "  ")
}

func (s *ExportService) buildFilename(report *dto.ConflictReport, format string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("conflicts_%s_%d_%s.%s", sanitizeFilename(report.Term), report.Year, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
