package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"trcli/internal/core/filter"
	"trcli/internal/core/record"
	"trcli/internal/core/timeutil"
	perr "trcli/internal/platform/errors"
	"trcli/internal/query"
)

// withLocalTime merges the local start/end window onto each activity
// map. Activities with an unreadable start pass through untouched
func withLocalTime(items []record.Raw, loc *time.Location) []record.Raw {
	out := make([]record.Raw, 0, len(items))
	for _, item := range items {
		window := timeutil.SummarizeWindow(item.Value("started"), item.Value("durationInSeconds"), loc)
		if window == nil {
			out = append(out, item)
			continue
		}
		merged := make(record.Raw, len(item)+7)
		for k, v := range item {
			merged[k] = v
		}
		merged["startedAtUtc"] = window.StartedAtUTC
		merged["startedAtLocal"] = window.StartedAtLocal
		merged["localDate"] = window.LocalDate
		merged["crossesMidnightLocal"] = window.CrossesMidnightLocal
		if window.EndedAtUTC != "" {
			merged["endedAtUtc"] = window.EndedAtUTC
			merged["endedAtLocal"] = window.EndedAtLocal
			merged["endLocalDate"] = window.EndLocalDate
		}
		out = append(out, merged)
	}
	return out
}

func withRecordType(items []record.Raw, kind string) []record.Raw {
	out := make([]record.Raw, 0, len(items))
	for _, item := range items {
		merged := make(record.Raw, len(item)+1)
		merged["recordType"] = kind
		for k, v := range item {
			merged[k] = v
		}
		out = append(out, merged)
	}
	return out
}

func idsOf(items []record.Raw) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.Int("id"))
	}
	return out
}

// personalRecordCount reads the per-activity record list from the
// merged map keyed by decimal activity id
func personalRecordCount(merged map[string]any, id int64) int {
	list, ok := merged[strconv.FormatInt(id, 10)].([]any)
	if !ok {
		return 0
	}
	return len(list)
}

func withPersonalRecordCounts(items []record.Raw, merged map[string]any) []record.Raw {
	out := make([]record.Raw, 0, len(items))
	for _, item := range items {
		copied := make(record.Raw, len(item)+1)
		for k, v := range item {
			copied[k] = v
		}
		copied["personalRecordCount"] = personalRecordCount(merged, item.Int("id"))
		out = append(out, copied)
	}
	return out
}

func (a *App) todayCommand() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Planned and completed workouts for one day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.filterConfig()
			if err != nil {
				return err
			}
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			today, err := normalizeDateFlag(date, timeutil.DateOnlyNow(loc))
			if err != nil {
				return err
			}

			if qc.Mode == query.ModePrivate {
				plannedToday := record.FilterFuturePlanned(qc.Timeline.PlannedActivities, today, today)
				activitiesToday := record.FilterPastActivities(qc.Timeline.Activities, today, today, loc)
				planned, completed := plannedToday, activitiesToday
				prs := map[string]any{}

				if a.flags.Details {
					err = parallel(
						func() (err error) {
							planned, err = qc.Client.PlannedActivitiesByIDs(cmd.Context(), qc.Member.ID(), qc.Member.Username(), idsOf(plannedToday))
							return err
						},
						func() (err error) {
							completed, err = qc.Client.ActivitiesByIDs(cmd.Context(), qc.Member.ID(), qc.Member.Username(), idsOf(activitiesToday))
							return err
						},
						func() (err error) {
							prs, err = qc.Client.PersonalRecordsByActivityIDs(cmd.Context(), qc.Member.ID(), qc.Member.Username(), idsOf(activitiesToday))
							return err
						},
					)
					if err != nil {
						return err
					}
				}

				completed = withLocalTime(completed, loc)
				combined := append(
					withRecordType(planned, "planned"),
					withRecordType(withPersonalRecordCounts(completed, prs), "completed")...,
				)

				p := newPayload("today", qc.Mode)
				p["member"] = memberField(qc)
				p["query"] = Payload{"date": today, "details": a.flags.Details}
				p["counts"] = Payload{"planned": len(planned), "completed": len(completed)}
				p["planned"] = planned
				p["completed"] = completed
				p["personalRecords"] = prs
				attachResult(p, filter.Apply(record.WrapAll(combined, loc), cfg))
				return a.write(p, listText(fmt.Sprintf("Today (%s)", today)))
			}

			var base []any
			var day *record.DayAggregate
			for _, d := range qc.PublicDays {
				if d.Date == today {
					day = &d
					base = []any{d}
					break
				}
			}
			dayCount := 0
			if day != nil {
				dayCount = 1
			}
			p := newPayload("today", qc.Mode)
			p["member"] = memberField(qc)
			p["query"] = Payload{"date": today, "details": a.flags.Details}
			p["counts"] = Payload{"days": dayCount}
			p["day"] = day
			p["limitations"] = []string{
				"Public mode provides day-level load/plan signal only.",
				"No workout-level detail without authentication.",
			}
			attachResult(p, filter.Apply(base, cfg))
			return a.write(p, listText(fmt.Sprintf("Today (%s) [public mode]", today)))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to inspect (YYYY-MM-DD, default today)")
	return cmd
}

func (a *App) futureCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "future",
		Short: "Upcoming planned workouts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.filterConfig()
			if err != nil {
				return err
			}
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			today := timeutil.DateOnlyNow(loc)
			fromDate, err := normalizeDateFlag(a.flags.From, today)
			if err != nil {
				return err
			}
			toDate, err := normalizeDateFlag(a.flags.To, timeutil.ShiftDateOnly(today, days))
			if err != nil {
				return err
			}
			if toDate < fromDate {
				return perr.InvalidArgf("invalid range: --to (%s) is before --from (%s)", toDate, fromDate)
			}

			if qc.Mode == query.ModePrivate {
				subset := record.FilterFuturePlanned(qc.Timeline.PlannedActivities, fromDate, toDate)
				records := subset
				if a.flags.Details {
					records, err = qc.Client.PlannedActivitiesByIDs(cmd.Context(), qc.Member.ID(), qc.Member.Username(), idsOf(subset))
					if err != nil {
						return err
					}
				}
				p := newPayload("future", qc.Mode)
				p["member"] = memberField(qc)
				p["query"] = Payload{"fromDate": fromDate, "toDate": toDate, "days": days, "details": a.flags.Details}
				attachResult(p, filter.Apply(record.WrapAll(records, loc), cfg))
				return a.write(p, listText(fmt.Sprintf("Future workouts %s..%s", fromDate, toDate)))
			}

			matched := make([]record.DayAggregate, 0)
			for _, day := range qc.PublicDays {
				if day.Date >= fromDate && day.Date <= toDate && day.PlannedTSSTotal > 0 {
					matched = append(matched, day)
				}
			}
			base := make([]any, 0, len(matched))
			for _, day := range record.SortDaysAsc(matched) {
				base = append(base, day)
			}
			p := newPayload("future", qc.Mode)
			p["member"] = memberField(qc)
			p["query"] = Payload{"fromDate": fromDate, "toDate": toDate, "days": days, "details": a.flags.Details}
			p["limitations"] = []string{
				"Public mode returns day-level planned TSS only.",
				"Detailed workout names/durations are unavailable in public mode.",
			}
			attachResult(p, filter.Apply(base, cfg))
			return a.write(p, listText(fmt.Sprintf("Future plan signal %s..%s [public mode]", fromDate, toDate)))
		},
	}
	cmd.Flags().IntVar(&days, "days", 60, "window size in days from today")
	return cmd
}

func (a *App) pastCommand() *cobra.Command {
	var days, limit int
	cmd := &cobra.Command{
		Use:   "past",
		Short: "Recent completed workouts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.filterConfig()
			if err != nil {
				return err
			}
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			today := timeutil.DateOnlyNow(loc)
			fromDate, err := normalizeDateFlag(a.flags.From, timeutil.ShiftDateOnly(today, -days))
			if err != nil {
				return err
			}
			toDate, err := normalizeDateFlag(a.flags.To, today)
			if err != nil {
				return err
			}
			if toDate < fromDate {
				return perr.InvalidArgf("invalid range: --to (%s) is before --from (%s)", toDate, fromDate)
			}

			if qc.Mode == query.ModePrivate {
				matched := record.FilterPastActivities(qc.Timeline.Activities, fromDate, toDate, loc)
				if limit > 0 && len(matched) > limit {
					matched = matched[:limit]
				}

				p := newPayload("past", qc.Mode)
				p["member"] = memberField(qc)
				p["query"] = Payload{"fromDate": fromDate, "toDate": toDate, "days": days, "limit": limit, "details": a.flags.Details}

				records := matched
				if a.flags.Details {
					ids := idsOf(matched)
					var details []record.Raw
					var prs map[string]any
					err = parallel(
						func() (err error) {
							details, err = qc.Client.ActivitiesByIDs(cmd.Context(), qc.Member.ID(), qc.Member.Username(), ids)
							return err
						},
						func() (err error) {
							prs, err = qc.Client.PersonalRecordsByActivityIDs(cmd.Context(), qc.Member.ID(), qc.Member.Username(), ids)
							return err
						},
					)
					if err != nil {
						return err
					}
					records = withPersonalRecordCounts(details, prs)
					p["personalRecords"] = prs
				}
				records = withLocalTime(records, loc)
				attachResult(p, filter.Apply(record.WrapAll(records, loc), cfg))
				return a.write(p, listText(fmt.Sprintf("Past workouts %s..%s", fromDate, toDate)))
			}

			matched := make([]record.DayAggregate, 0)
			for _, day := range qc.PublicDays {
				if day.Date >= fromDate && day.Date <= toDate && (day.HasRides || day.TSS > 0) {
					matched = append(matched, day)
				}
			}
			sorted := record.SortDaysDesc(matched)
			if limit > 0 && len(sorted) > limit {
				sorted = sorted[:limit]
			}
			base := make([]any, 0, len(sorted))
			for _, day := range sorted {
				base = append(base, day)
			}
			p := newPayload("past", qc.Mode)
			p["member"] = memberField(qc)
			p["query"] = Payload{"fromDate": fromDate, "toDate": toDate, "days": days, "limit": limit, "details": a.flags.Details}
			p["limitations"] = []string{
				"Public mode returns day-level historical load signals only.",
				"Detailed completed workout records are unavailable in public mode.",
			}
			attachResult(p, filter.Apply(base, cfg))
			return a.write(p, listText(fmt.Sprintf("Past load signal %s..%s [public mode]", fromDate, toDate)))
		},
	}
	cmd.Flags().IntVar(&days, "days", 60, "window size in days back from today")
	cmd.Flags().IntVar(&limit, "limit", 30, "maximum activities returned")
	return cmd
}
