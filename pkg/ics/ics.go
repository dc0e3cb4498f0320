// Package ics reads iCalendar busy times and folds recurring ones into a single week.
package ics

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

// ErrEmptyCalendar is returned when the payload holds no usable VEVENT.
var ErrEmptyCalendar = errors.New("calendar has no events")

const week = 7 * 24 * time.Hour

// Event is a parsed VEVENT.
type Event struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
	AllDay  bool
	RRule   string
	ExDates []time.Time
}

// Occurrence is one concrete busy interval.
type Occurrence struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
}

// Parse reads a calendar and returns its base events. Events without a UID or a usable time range and
// overrides of single recurring instances (RECURRENCE-ID) are skipped.
func Parse(r io.Reader) ([]Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var events []Event
	for _, ve := range cal.Events() {
		ev, ok := parseEvent(ve)
		if ok {
			events = append(events, ev)
		}
	}
	if len(events) == 0 {
		return nil, ErrEmptyCalendar
	}
	return events, nil
}

func parseEvent(ve *ical.VEvent) (Event, bool) {
	var ev Event
	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || strings.TrimSpace(uid.Value) == "" {
		return ev, false
	}
	if ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) != nil {
		return ev, false
	}
	ev.UID = strings.TrimSpace(uid.Value)
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, false
	}
	ev.Start = start
	if dt := ve.GetProperty(ical.ComponentPropertyDtStart); dt != nil {
		if vs := dt.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			ev.AllDay = true
		}
		if !strings.Contains(dt.Value, "T") {
			ev.AllDay = true
		}
	}
	if end, err := ve.GetEndAt(); err == nil {
		ev.End = end
	} else if ev.AllDay {
		ev.End = start.Add(24 * time.Hour)
	}
	if !ev.End.After(ev.Start) {
		return ev, false
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseDateTime(strings.TrimSpace(part), start.Location()); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	return ev, true
}

func parseDateTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// WeeklyOccurrences flattens events into the busy intervals of one representative week in loc.
// A recurring event contributes every occurrence within seven days of its first start; a single event
// contributes itself. All-day events cover their whole local day. Results are ordered by start time.
func WeeklyOccurrences(events []Event, loc *time.Location) ([]Occurrence, error) {
	if loc == nil {
		loc = time.Local
	}
	var out []Occurrence
	for _, ev := range events {
		starts, err := weekStarts(ev)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", ev.UID, err)
		}
		duration := ev.End.Sub(ev.Start)
		for _, s := range starts {
			start := s.In(loc)
			end := s.Add(duration).In(loc)
			if ev.AllDay {
				start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
				end = time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 0, 0, loc)
			}
			out = append(out, Occurrence{UID: ev.UID, Summary: ev.Summary, Start: start, End: end})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func weekStarts(ev Event) ([]time.Time, error) {
	if ev.RRule == "" {
		return []time.Time{ev.Start}, nil
	}
	rule, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, err
	}
	rule.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}
	return set.Between(ev.Start, ev.Start.Add(week-time.Second), true), nil
}
