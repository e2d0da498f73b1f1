package record

import (
	"sort"
	"time"

	"trcli/internal/core/timeutil"
)

// Timeline groups the calendar timeline payload's record arrays.
// Elements stay Raw; the command layer compacts what it exports
type Timeline struct {
	Activities        []Raw
	PlannedActivities []Raw
	Events            []Raw
	Annotations       []Raw
	FitnessThresholds []Raw
}

// TimelineFromRaw splits a decoded timeline document into its arrays.
// Missing arrays come back empty, never nil checks downstream
func TimelineFromRaw(payload Raw) *Timeline {
	return &Timeline{
		Activities:        payload.Objects("activities"),
		PlannedActivities: payload.Objects("plannedActivities"),
		Events:            payload.Objects("events"),
		Annotations:       payload.Objects("annotations"),
		FitnessThresholds: payload.Objects("fitnessThresholds"),
	}
}

// PlannedDateOnly reads a planned activity's calendar-date object as
// YYYY-MM-DD
func PlannedDateOnly(item Raw) string {
	return calendarDateOnly(item.Value("date"))
}

// FilterFuturePlanned keeps planned activities dated from fromDate
// onward, and up to toDate when given. Comparison is lexical on the
// date-only form
func FilterFuturePlanned(planned []Raw, fromDate, toDate string) []Raw {
	out := make([]Raw, 0, len(planned))
	for _, item := range planned {
		date := PlannedDateOnly(item)
		if date == "" || date < fromDate {
			continue
		}
		if toDate != "" && date > toDate {
			continue
		}
		out = append(out, item)
	}
	return out
}

// FilterPastActivities keeps activities whose local start date falls in
// the optional [fromDate, toDate] window, newest first. Activities with
// an unreadable start are dropped
func FilterPastActivities(activities []Raw, fromDate, toDate string, loc *time.Location) []Raw {
	out := make([]Raw, 0, len(activities))
	for _, item := range activities {
		started := timeutil.ToDateOnly(item.Value("started"), loc, true)
		if started == "" {
			continue
		}
		if fromDate != "" && started < fromDate {
			continue
		}
		if toDate != "" && started > toDate {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := timeutil.ParseTimestamp(out[i].Value("started"), true)
		b, _ := timeutil.ParseTimestamp(out[j].Value("started"), true)
		return a.After(b)
	})
	return out
}

// CountPlannedInRange counts planned workouts (rows carrying a workoutId
// or of planned type 1) dated within [fromDate, toDate]
func CountPlannedInRange(planned []Raw, fromDate, toDate string) int {
	count := 0
	for _, item := range planned {
		date := PlannedDateOnly(item)
		if date < fromDate || date > toDate {
			continue
		}
		if _, hasWorkout := item.Field("workoutId"); hasWorkout && item.Value("workoutId") != nil {
			count++
			continue
		}
		if item.Int("type") == 1 {
			count++
		}
	}
	return count
}
