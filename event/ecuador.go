package event

import (
	"time"

	"github.com/rickar/cal/v2"
)

// National holidays of Ecuador observed by the retail chain
var (
	NewYear = &cal.Holiday{
		Name:  "New Year",
		Type:  cal.ObservancePublic,
		Month: time.January,
		Day:   1,
		Func:  cal.CalcDayOfMonth,
	}
	CarnivalMonday = &cal.Holiday{
		Name:   "Carnival Monday",
		Type:   cal.ObservancePublic,
		Offset: -48,
		Func:   cal.CalcEasterOffset,
	}
	CarnivalTuesday = &cal.Holiday{
		Name:   "Carnival Tuesday",
		Type:   cal.ObservancePublic,
		Offset: -47,
		Func:   cal.CalcEasterOffset,
	}
	GoodFriday = &cal.Holiday{
		Name:   "Good Friday",
		Type:   cal.ObservancePublic,
		Offset: -2,
		Func:   cal.CalcEasterOffset,
	}
	LabourDay = &cal.Holiday{
		Name:  "Labour Day",
		Type:  cal.ObservancePublic,
		Month: time.May,
		Day:   1,
		Func:  cal.CalcDayOfMonth,
	}
	BattleOfPichincha = &cal.Holiday{
		Name:  "Battle of Pichincha",
		Type:  cal.ObservancePublic,
		Month: time.May,
		Day:   24,
		Func:  cal.CalcDayOfMonth,
	}
	IndependenceDay = &cal.Holiday{
		Name:  "Independence Day",
		Type:  cal.ObservancePublic,
		Month: time.August,
		Day:   10,
		Func:  cal.CalcDayOfMonth,
	}
	GuayaquilIndependence = &cal.Holiday{
		Name:  "Guayaquil Independence",
		Type:  cal.ObservancePublic,
		Month: time.October,
		Day:   9,
		Func:  cal.CalcDayOfMonth,
	}
	AllSoulsDay = &cal.Holiday{
		Name:  "All Souls Day",
		Type:  cal.ObservancePublic,
		Month: time.November,
		Day:   2,
		Func:  cal.CalcDayOfMonth,
	}
	CuencaIndependence = &cal.Holiday{
		Name:  "Cuenca Independence",
		Type:  cal.ObservancePublic,
		Month: time.November,
		Day:   3,
		Func:  cal.CalcDayOfMonth,
	}
	Christmas = &cal.Holiday{
		Name:  "Christmas",
		Type:  cal.ObservancePublic,
		Month: time.December,
		Day:   25,
		Func:  cal.CalcDayOfMonth,
	}

	NationalHolidays = []*cal.Holiday{
		NewYear,
		CarnivalMonday,
		CarnivalTuesday,
		GoodFriday,
		LabourDay,
		BattleOfPichincha,
		IndependenceDay,
		GuayaquilIndependence,
		AllSoulsDay,
		CuencaIndependence,
		Christmas,
	}

	// ClosureHolidays are the days every store is closed
	ClosureHolidays = []*cal.Holiday{
		Christmas,
	}
)

// HolidayByName looks up a national holiday by its name
func HolidayByName(name string) (*cal.Holiday, bool) {
	for _, hol := range NationalHolidays {
		if hol.Name == name {
			return hol, true
		}
	}
	return nil, false
}
