package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
)

var (
	ErrStartAfterEnd = errors.New("event start time is after end time")
	ErrUnsetTime     = errors.New("unset event start or end time")
	ErrNoEventName   = errors.New("no event name")
)

// Event represents a span of days [Start, End) to model separately
type Event struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewEvent(name string, start, end time.Time) Event {
	return Event{
		Name:  name,
		Start: start,
		End:   end,
	}
}

func (e *Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// Contains reports whether t falls within the event span
func (e Event) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// Holiday returns one event per year that the holiday falls within [start, end]. Each event
// spans the holiday date widened by daysBefore and daysAfter in the location of start.
func Holiday(hol *cal.Holiday, start, end time.Time, daysBefore, daysAfter int) []Event {
	loc := start.Location()

	events := []Event{}
	for i := start.Year(); i <= end.Year(); i++ {
		date, ok := holidayDate(hol, i, loc)
		if !ok {
			continue
		}
		if date.Before(truncate(start)) || date.After(end) {
			continue
		}
		events = append(events, Event{
			Name:  eventName(hol, i),
			Start: date.AddDate(0, 0, -daysBefore),
			End:   date.AddDate(0, 0, 1+daysAfter),
		})
	}
	return events
}

// Holidays expands every holiday between start and end into events sorted by start time
func Holidays(hols []*cal.Holiday, start, end time.Time, daysBefore, daysAfter int) []Event {
	var events []Event
	for _, hol := range hols {
		events = append(events, Holiday(hol, start, end, daysBefore, daysAfter)...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

// holidayDate computes the actual date of the holiday for the year at midnight in loc
func holidayDate(hol *cal.Holiday, year int, loc *time.Location) (time.Time, bool) {
	actual, _ := hol.Calc(year)
	if actual.IsZero() {
		return time.Time{}, false
	}
	y, m, d := actual.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), true
}

func eventName(hol *cal.Holiday, year int) string {
	return strings.ReplaceAll(fmt.Sprintf("%s_%d", hol.Name, year), " ", "_")
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
