package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"trcli/internal/adapters/trainerroad"
	"trcli/internal/core/record"
	"trcli/internal/core/timeutil"
	"trcli/internal/query"
)

func (a *App) powerRankingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "power-ranking",
		Short: "Power percentile rankings per duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			qc, _, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := query.RequirePrivate(qc, "power-ranking"); err != nil {
				return err
			}

			records, err := qc.Client.PowerRanking(cmd.Context(), qc.Member.ID(), qc.Member.Username())
			if err != nil {
				return err
			}
			p := newPayload("power-ranking", qc.Mode)
			p["member"] = memberField(qc)
			p["count"] = len(records)
			p["records"] = records
			return a.write(p, func(w io.Writer, p Payload) {
				fmt.Fprintf(w, "Power ranking entries: %d\n", len(records))
				for _, item := range records {
					watts := item.Object("wattsRanking")
					wkg := item.Object("wattsPerKgRanking")
					fmt.Fprintf(w, "- %ds | watts=%v (pct=%v) | w/kg=%v (pct=%v)\n",
						item.Int("duration"),
						orUnknown(watts.Value("value")), orUnknown(watts.Value("percentile")),
						orUnknown(wkg.Value("value")), orUnknown(wkg.Value("percentile")))
				}
			})
		},
	}
}

func (a *App) powerRecordsCommand() *cobra.Command {
	var (
		startDate  string
		endDate    string
		rowType    int
		indoorOnly bool
		slot       int
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "power-records",
		Short: "Best power efforts for a date range, ranked by watts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := query.RequirePrivate(qc, "power-records"); err != nil {
				return err
			}
			start, err := normalizeDateFlag(startDate, "2013-05-10")
			if err != nil {
				return err
			}
			end, err := normalizeDateFlag(endDate, timeutil.DateOnlyNow(loc))
			if err != nil {
				return err
			}

			raw, err := qc.Client.PersonalRecordsForDateRange(cmd.Context(), qc.Member.ID(), qc.Member.Username(),
				trainerroad.DateRangeQuery{
					StartDate:  start,
					EndDate:    end,
					RowType:    rowType,
					IndoorOnly: indoorOnly,
					Slot:       slot,
				})
			if err != nil {
				return err
			}

			var all []record.Raw
			results := raw.Objects("results")
			if len(results) > 0 {
				all = results[0].Objects("personalRecords")
			}
			ranked := append([]record.Raw(nil), all...)
			sort.SliceStable(ranked, func(i, j int) bool {
				wi, _ := ranked[i].Number("watts")
				wj, _ := ranked[j].Number("watts")
				return wi > wj
			})

			var records any
			count := 0
			if a.flags.Full {
				records = all
				count = len(all)
			} else {
				selected := ranked
				if limit > 0 && len(selected) > limit {
					selected = selected[:limit]
				}
				compacted := make([]record.PersonalRecord, 0, len(selected))
				for _, r := range selected {
					compacted = append(compacted, record.CompactPersonalRecord(r))
				}
				records = compacted
				count = len(compacted)
			}

			p := newPayload("power-records", qc.Mode)
			p["member"] = memberField(qc)
			p["query"] = Payload{
				"startDate": start, "endDate": end, "rowType": rowType,
				"indoorOnly": indoorOnly, "slot": slot, "limit": limit, "full": a.flags.Full,
			}
			p["totalRecords"] = len(all)
			p["count"] = count
			p["records"] = records
			if a.flags.Full {
				p["results"] = results
			}
			return a.write(p, func(w io.Writer, p Payload) {
				fmt.Fprintf(w, "Power records: returned %d of %d\n", count, len(all))
				fmt.Fprintf(w, "Range: %s..%s | rowType=%d | indoorOnly=%v\n", start, end, rowType, indoorOnly)
				lines, err := recordLines(p["records"])
				if err == nil {
					for _, line := range lines {
						fmt.Fprintf(w, "- %s\n", line)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&startDate, "start-date", "", "range start (YYYY-MM-DD, default 2013-05-10)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "range end (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&rowType, "row-type", 101, "upstream row type")
	cmd.Flags().BoolVar(&indoorOnly, "indoor-only", false, "indoor efforts only")
	cmd.Flags().IntVar(&slot, "slot", 1, "personal record slot")
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum records returned")
	return cmd
}
