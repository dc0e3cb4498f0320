// Package conflict detects scheduling and eligibility conflicts in a student's term plan.
//
// The pipeline has four stages: Extract turns stored plan events into TimeBlocks, DetectOverlaps finds
// duplicate sections and time collisions, Resolver checks prerequisites and corequisites against an
// injected RequisiteProvider, and Aggregate merges both lists into a Result.
package conflict

import (
	"fmt"
	"time"
)

// BlockKind tells course meetings apart from blocked-out time.
type BlockKind string

const (
	BlockCourse      BlockKind = "course"
	BlockUnavailable BlockKind = "unavailable"
)

// Clock is a wall-clock time of day in minutes since midnight.
type Clock int

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// RangesOverlap reports whether [s1,e1) and [s2,e2) intersect. Touching ranges and empty or
// inverted ranges never overlap.
func RangesOverlap(s1, e1, s2, e2 Clock) bool {
	if s1 >= e1 || s2 >= e2 {
		return false
	}
	return s1 < e2 && s2 < e1
}

// DaySet is a set of weekdays.
type DaySet uint8

// DaysOf builds a set from the given weekdays.
func DaysOf(days ...time.Weekday) DaySet {
	var s DaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// With returns the set including d.
func (s DaySet) With(d time.Weekday) DaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s | 1<<uint(d)
}

// Has reports whether d is in the set.
func (s DaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// Intersect returns the days common to both sets.
func (s DaySet) Intersect(o DaySet) DaySet {
	return s & o
}

// Empty reports whether the set has no days.
func (s DaySet) Empty() bool {
	return s == 0
}

// Days lists the members from Sunday to Saturday.
func (s DaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// First returns the earliest day in the week, and false for an empty set.
func (s DaySet) First() (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			return d, true
		}
	}
	return time.Sunday, false
}

// TimeBlock is the normalized form of one plan event.
type TimeBlock struct {
	ID       string
	Kind     BlockKind
	CourseID string
	CRN      string
	Title    string
	Start    Clock
	End      Clock
	Days     DaySet
}

// Overlaps reports whether two blocks share a weekday and their time ranges intersect.
// It returns the first shared weekday for display.
func (b TimeBlock) Overlaps(o TimeBlock) (time.Weekday, bool) {
	day, ok := b.Days.Intersect(o.Days).First()
	if !ok {
		return day, false
	}
	if !RangesOverlap(b.Start, b.End, o.Start, o.End) {
		return day, false
	}
	return day, true
}

// Span renders the block's time range.
func (b TimeBlock) Span() string {
	return b.Start.String() + "-" + b.End.String()
}
