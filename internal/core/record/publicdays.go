package record

import (
	"sort"
	"time"

	"trcli/internal/core/timeutil"
)

// DayAggregate is one flattened day of the public career TSS payload
type DayAggregate struct {
	Date                  string  `json:"date"`
	TSS                   float64 `json:"tss"`
	TSSTrainerRoad        float64 `json:"tssTrainerRoad"`
	TSSOther              float64 `json:"tssOther"`
	PlannedTSSTrainerRoad float64 `json:"plannedTssTrainerRoad"`
	PlannedTSSOther       float64 `json:"plannedTssOther"`
	PlannedTSSTotal       float64 `json:"plannedTssTotal"`
	HasRides              bool    `json:"hasRides"`
}

func (d DayAggregate) ResolveDateOnly() string { return d.Date }

func (d DayAggregate) ResolveLoad() (float64, bool) { return d.TSS, true }

// FlattenPublicDays flattens the public TSS payload's week-of-days
// nesting into one day list. Weeks may be ragged; days without a date
// are dropped and duplicate dates keep the first occurrence
func FlattenPublicDays(publicTSS Raw, loc *time.Location) []DayAggregate {
	weeks := publicTSS.Slice("tssByDay")
	out := make([]DayAggregate, 0, len(weeks)*7)
	seen := make(map[string]bool)
	for _, week := range weeks {
		days, ok := week.([]any)
		if !ok {
			continue
		}
		for _, dayRaw := range days {
			day := AsRaw(dayRaw)
			if day == nil {
				continue
			}
			dateRaw, ok := day.Field("date")
			if !ok || dateRaw == nil {
				continue
			}
			date := timeutil.ToDateOnly(dateRaw, loc, true)
			if date == "" || seen[date] {
				continue
			}
			seen[date] = true

			plannedTR := numberOrZero(day, "plannedTssTrainerRoad")
			plannedOther := numberOrZero(day, "plannedTssOther")
			out = append(out, DayAggregate{
				Date:                  date,
				TSS:                   numberOrZero(day, "tss"),
				TSSTrainerRoad:        numberOrZero(day, "tssTrainerRoad"),
				TSSOther:              numberOrZero(day, "tssOther"),
				PlannedTSSTrainerRoad: plannedTR,
				PlannedTSSOther:       plannedOther,
				PlannedTSSTotal:       plannedTR + plannedOther,
				HasRides:              day.Bool("hasRides"),
			})
		}
	}
	return out
}

// SortDaysAsc returns a copy sorted ascending by date
func SortDaysAsc(days []DayAggregate) []DayAggregate {
	out := append([]DayAggregate(nil), days...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// SortDaysDesc returns a copy sorted descending by date
func SortDaysDesc(days []DayAggregate) []DayAggregate {
	out := append([]DayAggregate(nil), days...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func numberOrZero(r Raw, name string) float64 {
	n, _ := r.Number(name)
	return n
}
