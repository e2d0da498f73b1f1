package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"trcli/internal/core/filter"
	"trcli/internal/core/record"
	"trcli/internal/core/timeutil"
	perr "trcli/internal/platform/errors"
	"trcli/internal/query"
)

// parallel runs the fetches concurrently and returns the first error
func parallel(fns ...func() error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(fns))
	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn func() error) {
			defer wg.Done()
			errs[i] = fn()
		}(i, fn)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func attachResult(p Payload, res filter.Result) {
	p["filters"] = res.Summary
	p["count"] = len(res.Records)
	p["records"] = res.Records
}

func (a *App) timelineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline",
		Short: "Summarize the calendar timeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			p := newPayload("timeline", qc.Mode)
			p["member"] = memberField(qc)

			if qc.Mode == query.ModePrivate {
				p["counts"] = Payload{
					"activities":        len(qc.Timeline.Activities),
					"plannedActivities": len(qc.Timeline.PlannedActivities),
					"events":            len(qc.Timeline.Events),
				}
				if a.flags.Full {
					p["timeline"] = Payload{
						"activities":        qc.Timeline.Activities,
						"plannedActivities": qc.Timeline.PlannedActivities,
						"events":            qc.Timeline.Events,
						"annotations":       qc.Timeline.Annotations,
						"fitnessThresholds": qc.Timeline.FitnessThresholds,
					}
				}
				return a.write(p, func(w io.Writer, p Payload) {
					counts := p["counts"].(Payload)
					fmt.Fprintf(w, "Mode: private\n")
					fmt.Fprintf(w, "User: %s (%d)\n", qc.Member.Username(), qc.Member.ID())
					fmt.Fprintf(w, "Activities: %d\n", counts["activities"])
					fmt.Fprintf(w, "Planned: %d\n", counts["plannedActivities"])
					fmt.Fprintf(w, "Events: %d\n", counts["events"])
				})
			}

			today := timeutil.DateOnlyNow(loc)
			rideDays, futurePlannedDays := 0, 0
			for _, day := range qc.PublicDays {
				if day.HasRides || day.TSS > 0 {
					rideDays++
				}
				if day.Date >= today && day.PlannedTSSTotal > 0 {
					futurePlannedDays++
				}
			}
			p["counts"] = Payload{
				"days":              len(qc.PublicDays),
				"rideDays":          rideDays,
				"futurePlannedDays": futurePlannedDays,
			}
			p["limitations"] = []string{
				"Public mode does not expose detailed workout records.",
				"Use authenticated private mode for full workout detail.",
			}
			if a.flags.Full {
				p["days"] = record.SortDaysAsc(qc.PublicDays)
			}
			return a.write(p, func(w io.Writer, p Payload) {
				counts := p["counts"].(Payload)
				fmt.Fprintf(w, "Mode: public\n")
				fmt.Fprintf(w, "Profile: %s\n", qc.TargetUsername)
				fmt.Fprintf(w, "Total days: %d\n", counts["days"])
				fmt.Fprintf(w, "Ride days: %d\n", counts["rideDays"])
				fmt.Fprintf(w, "Future planned days: %d\n", counts["futurePlannedDays"])
				writeLimitations(w, p)
			})
		},
	}
}

func (a *App) eventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Calendar events (races, goals) from the private timeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.filterConfig()
			if err != nil {
				return err
			}
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := query.RequirePrivate(qc, "events"); err != nil {
				return err
			}

			var base []any
			if a.flags.Full {
				base = record.WrapAll(qc.Timeline.Events, loc)
			} else {
				base = make([]any, 0, len(qc.Timeline.Events))
				for _, r := range qc.Timeline.Events {
					base = append(base, record.CompactEvent(r))
				}
			}

			p := newPayload("events", qc.Mode)
			p["member"] = memberField(qc)
			p["query"] = Payload{"full": a.flags.Full}
			attachResult(p, filter.Apply(base, cfg))
			return a.write(p, listText("Events"))
		},
	}
}

func (a *App) annotationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "annotations",
		Short: "Calendar annotations (notes, time off, injuries)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.filterConfig()
			if err != nil {
				return err
			}
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := query.RequirePrivate(qc, "annotations"); err != nil {
				return err
			}

			var base []any
			if a.flags.Full {
				base = record.WrapAll(qc.Timeline.Annotations, loc)
			} else {
				base = make([]any, 0, len(qc.Timeline.Annotations))
				for _, r := range qc.Timeline.Annotations {
					base = append(base, record.CompactAnnotation(r))
				}
			}

			p := newPayload("annotations", qc.Mode)
			p["member"] = memberField(qc)
			p["query"] = Payload{"full": a.flags.Full}
			attachResult(p, filter.Apply(base, cfg))
			return a.write(p, listText("Annotations"))
		},
	}
}

func (a *App) weightHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "weight-history",
		Short: "Weight entries for the authenticated member",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.filterConfig()
			if err != nil {
				return err
			}
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := query.RequirePrivate(qc, "weight-history"); err != nil {
				return err
			}

			raw, err := qc.Client.WeightHistory(cmd.Context(), qc.Member.ID(), qc.Member.Username())
			if err != nil {
				return err
			}
			var base []any
			if a.flags.Full {
				base = record.WrapAll(raw, loc)
			} else {
				base = make([]any, 0, len(raw))
				for _, r := range raw {
					base = append(base, record.CompactWeight(r, loc))
				}
			}

			p := newPayload("weight-history", qc.Mode)
			p["member"] = memberField(qc)
			attachResult(p, filter.Apply(base, cfg))
			return a.write(p, listText("Weight history"))
		},
	}
}

func (a *App) levelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "Progression levels per training zone, joined with AI detection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.filterConfig()
			if err != nil {
				return err
			}
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := query.RequirePrivate(qc, "levels"); err != nil {
				return err
			}

			var levelsPayload, eligibilityPayload record.Raw
			err = parallel(
				func() (err error) {
					levelsPayload, err = qc.Client.CareerLevels(cmd.Context(), qc.Member.ID(), qc.Member.Username())
					return err
				},
				func() (err error) {
					eligibilityPayload, err = qc.Client.AIFTPEligibility(cmd.Context(), qc.Member.ID(), qc.Member.Username())
					return err
				},
			)
			if err != nil {
				return err
			}

			zones := record.BuildZoneLevels(levelsPayload, eligibilityPayload, loc)
			base := make([]any, 0, len(zones))
			for _, zone := range zones {
				base = append(base, zone)
			}

			p := newPayload("levels", qc.Mode)
			p["member"] = memberField(qc)
			p["levelsTimestamp"] = levelsPayload.Value("timestamp")
			p["aiModelVersion"] = aiModelVersion(eligibilityPayload)
			attachResult(p, filter.Apply(base, cfg))
			return a.write(p, func(w io.Writer, p Payload) {
				fmt.Fprintf(w, "Progression levels (%v)\n", p["count"])
				for _, item := range p["records"].([]any) {
					zone, ok := item.(record.ZoneLevel)
					if !ok {
						break
					}
					fmt.Fprintf(w, "- %s | recent=%v | aiCurrent=%v | aiProjected=%v | delta=%v\n",
						zone.ZoneLabel, orUnknown(zone.RecentLevel),
						orUnknown(zone.AICurrentDisplayLevel), orUnknown(zone.AIProjectedDisplayLevel),
						orUnknown(zone.AIDelta))
				}
				writeFilterEcho(w, p)
			})
		},
	}
}

func aiModelVersion(eligibility record.Raw) any {
	if v := eligibility.Value("modelVersion"); v != nil {
		return v
	}
	if additional := eligibility.Object("additionalData"); additional != nil {
		if detection := additional.Object("detection"); detection != nil {
			return detection.Value("modelVersion")
		}
	}
	return nil
}

func (a *App) planCommand() *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Training plans: the active plan, its phases, or all plans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			view = strings.ToLower(strings.TrimSpace(view))
			switch view {
			case "current", "phases", "plans":
			default:
				return perr.InvalidArgf("invalid --view %q; expected one of: current, phases, plans", view)
			}
			cfg, err := a.filterConfig()
			if err != nil {
				return err
			}
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := query.RequirePrivate(qc, "plan"); err != nil {
				return err
			}

			var currentRaw record.Raw
			var plansRaw, phasesRaw []record.Raw
			err = parallel(
				func() (err error) {
					currentRaw, err = qc.Client.CurrentCustomPlan(cmd.Context(), qc.Member.Username())
					return err
				},
				func() (err error) {
					plansRaw, err = qc.Client.AllUserPlans(cmd.Context(), qc.Member.Username())
					return err
				},
				func() (err error) {
					phasesRaw, err = qc.Client.PlanPhases(cmd.Context(), qc.Member.Username())
					return err
				},
			)
			if err != nil {
				return err
			}

			currentPlan := record.CompactCurrentPlan(currentRaw, loc)
			plans := make([]record.PlanSummary, 0, len(plansRaw))
			for _, r := range plansRaw {
				plans = append(plans, record.CompactPlanSummary(r, loc))
			}
			phases := make([]record.PlanPhase, 0, len(phasesRaw))
			for _, r := range phasesRaw {
				phases = append(phases, record.CompactPlanPhase(r, loc))
			}

			var base []any
			switch view {
			case "current":
				if currentPlan != nil {
					base = []any{currentPlan}
				}
			case "plans":
				base = make([]any, 0, len(plans))
				for _, p := range plans {
					base = append(base, p)
				}
			default:
				base = make([]any, 0, len(phases))
				for _, p := range phases {
					base = append(base, p)
				}
			}

			currentCount := 0
			if currentPlan != nil {
				currentCount = 1
			}
			p := newPayload("plan", qc.Mode)
			p["member"] = memberField(qc)
			p["query"] = Payload{"view": view, "full": a.flags.Full}
			p["counts"] = Payload{
				"plans":       len(plans),
				"phases":      len(phases),
				"currentPlan": currentCount,
			}
			p["currentPlan"] = currentPlan
			if a.flags.Full || view == "plans" {
				p["plans"] = plans
			}
			if a.flags.Full || view == "phases" {
				p["phases"] = phases
			}
			attachResult(p, filter.Apply(base, cfg))
			return a.write(p, listText("Plan view="+view))
		},
	}
	cmd.Flags().StringVar(&view, "view", "phases", "plan view: current, phases or plans")
	return cmd
}
