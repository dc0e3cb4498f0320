package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

var columnWidths = []float64{25, 50, 40, 55, 107}

// PDFExporter renders conflict rows into a landscape table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title, a summary line and the table body.
func (e *PDFExporter) Render(rows []ConflictRow, title, summary string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	}
	if summary != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, tr(summary), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	for i, header := range Headers {
		pdf.CellFormat(columnWidths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	if len(rows) == 0 {
		pdf.CellFormat(sum(columnWidths), 7, "No conflicts", "1", 1, "C", false, 0, "")
	}
	for _, row := range rows {
		for i, value := range row.cells() {
			pdf.CellFormat(columnWidths[i], 7, tr(fit(pdf, value, columnWidths[i])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// fit truncates value so it fits a cell of width w.
func fit(pdf *gofpdf.Fpdf, value string, w float64) string {
	limit := w - 2
	if pdf.GetStringWidth(value) <= limit {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
