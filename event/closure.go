package event

import (
	"time"

	"github.com/rickar/cal/v2"
)

// ClosureCalendar answers whether a store is expected to be closed on a given day
type ClosureCalendar struct {
	holidays []*cal.Holiday
	extra    map[time.Time]string
}

// NewClosureCalendar builds a calendar from holidays that close every store. Nil uses
// ClosureHolidays.
func NewClosureCalendar(holidays []*cal.Holiday) *ClosureCalendar {
	if holidays == nil {
		holidays = ClosureHolidays
	}
	return &ClosureCalendar{
		holidays: holidays,
		extra:    make(map[time.Time]string),
	}
}

// AddClosure records a one-off closure of the store on the day of t
func (c *ClosureCalendar) AddClosure(t time.Time, reason string) {
	c.extra[utcDay(t)] = reason
}

// Reason returns the name of the closure covering the day of t
func (c *ClosureCalendar) Reason(t time.Time) (string, bool) {
	day := utcDay(t)
	if reason, exists := c.extra[day]; exists {
		return reason, true
	}
	for _, hol := range c.holidays {
		date, ok := holidayDate(hol, day.Year(), time.UTC)
		if ok && date.Equal(day) {
			return hol.Name, true
		}
	}
	return "", false
}

// Explain splits days into the ones covered by a known closure, keyed by day, and the ones
// that are not.
func (c *ClosureCalendar) Explain(days []time.Time) (map[time.Time]string, []time.Time) {
	explained := make(map[time.Time]string)
	var unexplained []time.Time
	for _, d := range days {
		if reason, ok := c.Reason(d); ok {
			explained[utcDay(d)] = reason
			continue
		}
		unexplained = append(unexplained, utcDay(d))
	}
	return explained, unexplained
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
