package prophet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aouyang1/go-salesforecast/event"
	"github.com/aouyang1/go-salesforecast/feature"
	"github.com/rickar/cal/v2"
)

// HolidayOptions lists the holidays modelled as indicator features. Every year of a holiday
// shares one feature spanning the holiday widened by DaysBefore and DaysAfter.
type HolidayOptions struct {
	Holidays   []*cal.Holiday `json:"-" mapstructure:"-"`
	DaysBefore int            `json:"days_before" mapstructure:"days_before"`
	DaysAfter  int            `json:"days_after" mapstructure:"days_after"`
}

func NewDefaultHolidayOptions() HolidayOptions {
	return HolidayOptions{
		Holidays: event.NationalHolidays,
	}
}

func (h HolidayOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	names := make([]string, 0, len(h.Holidays))
	for _, hol := range h.Holidays {
		names = append(names, hol.Name)
	}
	noCfg := " None"
	if len(names) > 0 {
		noCfg = fmt.Sprintf(" %s (-%d/+%d days)", strings.Join(names, ", "), h.DaysBefore, h.DaysAfter)
	}
	_, err := fmt.Fprintf(w, "%s%sHolidays:%s\n", prefix, indentExpand(indent, indentGrowth), noCfg)
	return err
}

func holidayFeatureName(hol *cal.Holiday) string {
	return strings.ReplaceAll(hol.Name, " ", "_")
}

func (h HolidayOptions) generateFeatures(t []time.Time) *feature.Set {
	feat := feature.NewSet()
	if len(t) == 0 {
		return feat
	}
	start, end := t[0], t[len(t)-1]
	// widen the search so windows of holidays just outside the range still reach into it
	searchStart := start.AddDate(0, 0, -h.DaysAfter-1)
	searchEnd := end.AddDate(0, 0, h.DaysBefore+1)

	for _, hol := range h.Holidays {
		events := event.Holiday(hol, searchStart, searchEnd, h.DaysBefore, h.DaysAfter)
		if len(events) == 0 {
			continue
		}
		mask := make([]float64, len(t))
		for i, tPnt := range t {
			for _, e := range events {
				if e.Contains(tPnt) {
					mask[i] = 1.0
					break
				}
			}
		}
		feat.Set(feature.NewEvent(holidayFeatureName(hol)), mask)
	}
	return feat
}
