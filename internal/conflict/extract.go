package conflict

import (
	"strings"
	"time"

	"github.com/noah-isme/planner-api/internal/models"
)

// UntitledCourse labels course blocks with no course or event title.
const UntitledCourse = "Untitled Course"

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
}

// Blocks holds the normalized course and unavailable blocks for one term.
type Blocks struct {
	Courses     []TimeBlock
	Unavailable []TimeBlock
}

// Extract projects the events of the given term into TimeBlocks evaluated in loc.
// Every retained event yields exactly one block tagged with the weekday of its start.
// Events with unreadable timestamps yield a block with no days, which can never overlap.
func Extract(events []models.PlanEvent, term string, year int, loc *time.Location) Blocks {
	if loc == nil {
		loc = time.Local
	}
	var out Blocks
	for _, ev := range events {
		if ev.TermName != term || ev.TermYear != year {
			continue
		}
		switch ev.Type {
		case models.PlanEventCourse:
			block := toBlock(ev, BlockCourse, loc)
			block.CRN = ev.CRN
			block.CourseID = firstNonEmpty(ev.CourseID, ev.CRN)
			block.Title = firstNonEmpty(ev.CourseName, ev.Title, UntitledCourse)
			out.Courses = append(out.Courses, block)
		case models.PlanEventUnavailable:
			block := toBlock(ev, BlockUnavailable, loc)
			block.Title = ev.Title
			out.Unavailable = append(out.Unavailable, block)
		}
	}
	return out
}

func toBlock(ev models.PlanEvent, kind BlockKind, loc *time.Location) TimeBlock {
	block := TimeBlock{ID: ev.ID, Kind: kind}
	start, okStart := parseTimestamp(ev.Start, loc)
	end, okEnd := parseTimestamp(ev.End, loc)
	if !okStart || !okEnd {
		return block
	}
	block.Start = NewClock(start.Hour(), start.Minute())
	block.End = NewClock(end.Hour(), end.Minute())
	block.Days = DaysOf(start.Weekday())
	return block
}

// parseTimestamp reads a stored timestamp and converts it to loc. Timestamps without an offset
// are taken as already local to loc.
func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
