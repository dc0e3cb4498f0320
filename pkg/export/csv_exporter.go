package export

import (
	"fmt"

	"github.com/gocarina/gocsv"
)

// ConflictRow is one exported line of a conflict report. Grouped details are flattened into Detail.
type ConflictRow struct {
	CourseID   string `csv:"course_id"`
	CourseName string `csv:"course_name"`
	Type       string `csv:"type"`
	ConflictID string `csv:"conflict_id"`
	Detail     string `csv:"detail"`
}

// Headers lists the column titles in output order.
var Headers = []string{"Course", "Course Name", "Type", "Conflict", "Detail"}

func (r ConflictRow) cells() []string {
	return []string{r.CourseID, r.CourseName, r.Type, r.ConflictID, r.Detail}
}

// CSVExporter renders conflict rows into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes, header row included even when rows is empty.
func (e *CSVExporter) Render(rows []ConflictRow) ([]byte, error) {
	if rows == nil {
		rows = []ConflictRow{}
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("marshal csv: %w", err)
	}
	return out, nil
}
