package domain

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
)

// LoadCategories are the activity categories that contribute to load scores.
var LoadCategories = []string{"business", "study", "private"}

// WeekDays is the length of a load window.
const WeekDays = 7

// CountsTowardLoad reports whether activities in category contribute load.
func CountsTowardLoad(category string) bool {
	return slices.Contains(LoadCategories, category)
}

// WeekEnd returns the last day of the window starting on start.
func WeekEnd(start civil.Date) civil.Date {
	return start.AddDays(WeekDays - 1)
}

// InWeek reports whether day falls within the window starting on start.
func InWeek(start, day civil.Date) bool {
	return !day.Before(start) && !day.After(WeekEnd(start))
}

// DurationMinutes is the whole number of minutes between start and end,
// truncated toward zero like the warehouse's TIMESTAMP_DIFF(..., MINUTE).
func DurationMinutes(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Minute)
}

// LoadPoints is fatigue level multiplied by duration in hours.
func LoadPoints(fatigueLevel int, start, end time.Time) float64 {
	return float64(fatigueLevel) * (float64(DurationMinutes(start, end)) / 60.0)
}

// SummarizeLoad folds activities into a per-day summary for the week
// starting on weekStart. Activities are bucketed by the UTC date of their
// start time; days without qualifying activities are omitted.
func SummarizeLoad(activities []Activity, weekStart civil.Date) WeeklyLoadSummary {
	byDay := map[civil.Date]*DailyLoad{}
	for _, a := range activities {
		if !CountsTowardLoad(a.CategoryID) {
			continue
		}
		day := civil.DateOf(a.StartTime.UTC())
		if !InWeek(weekStart, day) {
			continue
		}
		d, ok := byDay[day]
		if !ok {
			d = &DailyLoad{Date: day}
			byDay[day] = d
		}
		d.ActivityMinutes += DurationMinutes(a.StartTime, a.EndTime)
		d.LoadPoints += LoadPoints(a.FatigueLevel, a.StartTime, a.EndTime)
	}

	out := WeeklyLoadSummary{Daily: make([]DailyLoad, 0, len(byDay))}
	for day := weekStart; !day.After(WeekEnd(weekStart)); day = day.AddDays(1) {
		if d, ok := byDay[day]; ok {
			out.Daily = append(out.Daily, *d)
			out.TotalLoadPoints += d.LoadPoints
		}
	}
	return out
}
