package cli

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"trcli/internal/core/record"
	"trcli/internal/core/timeutil"
	"trcli/internal/query"
)

func (a *App) ftpCommand() *cobra.Command {
	var historyLimit int
	cmd := &cobra.Command{
		Use:   "ftp",
		Short: "FTP history and the current value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}

			historySource := qc.PublicTSS
			if qc.Mode == query.ModePrivate {
				// the FTP record list lives on the public career payload,
				// readable for your own profile even when it is private
				if source, err := qc.Client.PublicTSS(cmd.Context(), qc.Member.Username()); err == nil {
					historySource = source
				}
			}

			fullHistory := record.NormalizeFTPHistory(historySource.Slice("ftpRecordsDate"), loc)
			records := fullHistory
			if historyLimit > 0 && len(fullHistory) > historyLimit {
				records = fullHistory[len(fullHistory)-historyLimit:]
			}

			var currentFTP *float64
			if qc.Mode == query.ModePrivate {
				currentFTP = qc.Member.Raw.NumberPtr("ftp")
			}
			if currentFTP == nil && len(fullHistory) > 0 {
				latest := fullHistory[len(fullHistory)-1].Value
				currentFTP = &latest
			}

			p := newPayload("ftp", qc.Mode)
			p["member"] = memberField(qc)
			p["query"] = Payload{"historyLimit": historyLimit}
			p["currentFtp"] = currentFTP
			p["ftpHistoryCount"] = len(fullHistory)
			p["count"] = len(records)
			p["records"] = records
			if qc.Mode == query.ModePublic {
				p["limitations"] = []string{
					"Public mode can expose FTP history only when profile data is public.",
					"No AI FTP detection or private progression internals in public mode.",
				}
			}
			return a.write(p, func(w io.Writer, p Payload) {
				fmt.Fprintf(w, "FTP: %v [%s mode]\n", orUnknown(currentFTP), qc.Mode)
				fmt.Fprintf(w, "History points: %d\n", len(fullHistory))
				for _, item := range records {
					fmt.Fprintf(w, "- %s ftp=%v\n", item.DateOnly, item.Value)
				}
				writeLimitations(w, p)
			})
		},
	}
	cmd.Flags().IntVar(&historyLimit, "history-limit", 50, "number of most recent history points returned")
	return cmd
}

func (a *App) ftpPredictionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ftp-prediction",
		Short: "AI FTP detection state and the next predicted value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			qc, loc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := query.RequirePrivate(qc, "ftp-prediction"); err != nil {
				return err
			}
			memberID, username := qc.Member.ID(), qc.Member.Username()

			var eligibility, failureStatus, levels, timelineRaw record.Raw
			err = parallel(
				func() (err error) {
					eligibility, err = qc.Client.AIFTPEligibility(cmd.Context(), memberID, username)
					return err
				},
				func() (err error) {
					failureStatus, err = qc.Client.AIFTPFailureStatus(cmd.Context(), memberID, username)
					return err
				},
				func() (err error) {
					levels, err = qc.Client.CareerLevels(cmd.Context(), memberID, username)
					return err
				},
				func() (err error) {
					timelineRaw, err = qc.Client.Timeline(cmd.Context(), memberID, username)
					return err
				},
			)
			if err != nil {
				return err
			}

			var detection record.Raw
			var nextAvailability any
			if additional := eligibility.Object("additionalData"); additional != nil {
				detection = additional.Object("detection")
				nextAvailability = additional.Value("nextAiFtpAvailability")
			}
			projectedLevels := detection.Objects("projectedProgressionLevels")
			currentLevels := detection.Objects("currentProgressionLevels")
			nextAvailabilityDateOnly := timeutil.ToDateOnly(nextAvailability, loc, true)
			today := timeutil.DateOnlyNow(loc)
			timeline := record.TimelineFromRaw(timelineRaw)
			thresholds := record.NormalizeFitnessThresholds(timelineRaw.Slice("fitnessThresholds"), loc)

			currentFTP := detection.NumberPtr("ftp")
			if currentFTP == nil {
				currentFTP = qc.Member.Raw.NumberPtr("ftp")
			}

			// prefer the threshold landing on the announced availability
			// date, else the first future one that has not been applied
			var predicted *record.FitnessThreshold
			if nextAvailabilityDateOnly != "" {
				for i := range thresholds {
					if thresholds[i].DateOnly == nextAvailabilityDateOnly {
						predicted = &thresholds[i]
					}
				}
			}
			if predicted == nil {
				for i := range thresholds {
					if thresholds[i].DateOnly >= today && !thresholds[i].IsApplied {
						predicted = &thresholds[i]
						break
					}
				}
			}

			var predictedFTP *float64
			predictionDate := nextAvailability
			predictionDateOnly := nextAvailabilityDateOnly
			if predicted != nil {
				predictedFTP = &predicted.Value
				predictionDate = predicted.Date
				predictionDateOnly = predicted.DateOnly
			}

			var daysUntil *int
			if predictionDateOnly != "" {
				if diff, ok := timeutil.DateOnlyDiffDays(today, predictionDateOnly); ok {
					daysUntil = &diff
				}
			}
			var ftpDelta *float64
			var ftpDeltaPercent *int
			if currentFTP != nil && predictedFTP != nil {
				delta := *predictedFTP - *currentFTP
				ftpDelta = &delta
				if *currentFTP != 0 {
					percent := int(math.Round(delta / *currentFTP * 100))
					ftpDeltaPercent = &percent
				}
			}
			var plannedCount *int
			if predictionDateOnly != "" {
				count := record.CountPlannedInRange(timeline.PlannedActivities, today, predictionDateOnly)
				plannedCount = &count
			}
			futureThresholds := make([]record.FitnessThreshold, 0)
			for _, row := range thresholds {
				if row.DateOnly >= today {
					futureThresholds = append(futureThresholds, row)
				}
			}

			p := newPayload("ftp-prediction", qc.Mode)
			p["member"] = memberField(qc)
			p["canUseAiFtp"] = eligibility.Bool("can")
			p["reasonCode"] = eligibility.Value("reason")
			p["modelVersion"] = aiModelVersion(eligibility)
			p["detectionFtp"] = detection.Value("ftp")
			p["currentFtp"] = currentFTP
			p["predictedFtp"] = predictedFTP
			p["predictionDate"] = predictionDate
			p["predictionDateOnly"] = predictionDateOnly
			p["daysUntilPrediction"] = daysUntil
			p["ftpDelta"] = ftpDelta
			p["ftpDeltaPercent"] = ftpDeltaPercent
			p["plannedWorkoutCount"] = plannedCount
			p["nextAiFtpAvailability"] = nextAvailability
			p["nextAiFtpAvailabilityDateOnly"] = nextAvailabilityDateOnly
			p["aiFailureStatus"] = failureStatus.Value("status")
			p["projectedProgressionLevels"] = projectedLevels
			p["currentProgressionLevels"] = currentLevels
			p["levels"] = levels.Object("levels")
			p["levelsTimestamp"] = levels.Value("timestamp")
			p["predictionThresholdSource"] = predicted
			p["futureFitnessThresholds"] = futureThresholds
			p["count"] = len(projectedLevels)
			p["records"] = projectedLevels

			return a.write(p, func(w io.Writer, p Payload) {
				fmt.Fprintf(w, "AI FTP usable: %v\n", p["canUseAiFtp"])
				fmt.Fprintf(w, "Current FTP: %v\n", orUnknown(currentFTP))
				fmt.Fprintf(w, "Predicted FTP: %v\n", orUnknown(predictedFTP))
				fmt.Fprintf(w, "Prediction date: %v\n", orUnknown(stringOrNil(predictionDateOnly)))
				if daysUntil != nil {
					fmt.Fprintf(w, "Days until prediction: %d\n", *daysUntil)
				}
				if ftpDelta != nil && ftpDeltaPercent != nil {
					fmt.Fprintf(w, "FTP delta: %v (%d%%)\n", *ftpDelta, *ftpDeltaPercent)
				}
				if plannedCount != nil {
					fmt.Fprintf(w, "Planned workouts in window: %d\n", *plannedCount)
				}
				fmt.Fprintf(w, "AI failure status: %v\n", p["aiFailureStatus"])
				fmt.Fprintf(w, "Projected progression updates: %d\n", len(projectedLevels))
				for _, item := range projectedLevels {
					fmt.Fprintf(w, "- progressionId=%d from=%v to=%v\n",
						item.Int("progressionId"),
						orUnknown(item.NumberPtr("previousDisplayLevel")),
						orUnknown(item.NumberPtr("displayFinalLevel")))
				}
			})
		},
	}
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
