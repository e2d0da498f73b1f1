package record

import (
	"fmt"
	"sort"
	"time"

	"trcli/internal/core/timeutil"
)

// zoneMeta carries the display identity of a progression zone
type zoneMeta struct {
	key       string
	label     string
	sortOrder int64
}

// progressionZones maps the upstream progression ids to training zones.
// Ids outside the table get a synthesized progression-N identity sorted
// after the known zones
var progressionZones = map[int64]zoneMeta{
	33: {key: "endurance", label: "Endurance", sortOrder: 1},
	16: {key: "tempo", label: "Tempo", sortOrder: 2},
	84: {key: "sweet-spot", label: "Sweet Spot", sortOrder: 3},
	83: {key: "threshold", label: "Threshold", sortOrder: 4},
	85: {key: "vo2-max", label: "VO2 Max", sortOrder: 5},
	79: {key: "anaerobic", label: "Anaerobic", sortOrder: 6},
}

func zoneForProgression(progressionID int64) zoneMeta {
	if meta, ok := progressionZones[progressionID]; ok {
		return meta
	}
	return zoneMeta{
		key:       fmt.Sprintf("progression-%d", progressionID),
		label:     fmt.Sprintf("Progression %d", progressionID),
		sortOrder: 1000 + progressionID,
	}
}

// ZoneLevel joins a career progression level with the AI detection's
// current and projected levels for the same zone. Type and RecordType
// alias ZoneKey for the shared type filter
type ZoneLevel struct {
	ProgressionID           int64    `json:"progressionId"`
	Type                    string   `json:"type"`
	RecordType              string   `json:"recordType"`
	ZoneKey                 string   `json:"zoneKey"`
	ZoneLabel               string   `json:"zoneLabel"`
	SortOrder               int64    `json:"sortOrder"`
	RecentLevel             *float64 `json:"recentLevel,omitempty"`
	EndpointPredictedLevel  *float64 `json:"endpointPredictedLevel,omitempty"`
	ActivityID              *float64 `json:"activityId,omitempty"`
	ChangeDate              string   `json:"changeDate,omitempty"`
	Date                    string   `json:"date,omitempty"`
	DateOnly                string   `json:"dateOnly,omitempty"`
	ChangeReason            any      `json:"changeReason,omitempty"`
	ChangeFrom              *float64 `json:"changeFrom,omitempty"`
	ChangeTo                *float64 `json:"changeTo,omitempty"`
	ChangeDelta             *float64 `json:"changeDelta,omitempty"`
	AICurrentDisplayLevel   *float64 `json:"aiCurrentDisplayLevel,omitempty"`
	AIProjectedDisplayLevel *float64 `json:"aiProjectedDisplayLevel,omitempty"`
	AIDelta                 *float64 `json:"aiDelta,omitempty"`
}

func (z ZoneLevel) ResolveDateOnly() string { return z.DateOnly }
func (z ZoneLevel) ResolveTypeKey() string  { return z.ZoneKey }
func (z ZoneLevel) ResolveText() string     { return z.ZoneLabel + " " + z.ZoneKey }

// BuildZoneLevels joins the career levels payload (a map keyed by
// progression id) with the optional AI FTP eligibility payload's
// detection levels, sorted by zone order then progression id
func BuildZoneLevels(levelsPayload, eligibilityPayload Raw, loc *time.Location) []ZoneLevel {
	rawLevels := levelsPayload.Object("levels")

	var detection Raw
	if additional := eligibilityPayload.Object("additionalData"); additional != nil {
		detection = additional.Object("detection")
	}
	aiProjected := indexByProgression(detection.Objects("projectedProgressionLevels"))
	aiCurrent := indexByProgression(detection.Objects("currentProgressionLevels"))

	out := make([]ZoneLevel, 0, len(rawLevels))
	for idRaw, value := range rawLevels {
		entry := AsRaw(value)
		if entry == nil {
			continue
		}
		var progressionID int64
		if n, ok := toFinite(idRaw); ok {
			progressionID = int64(n)
		}
		meta := zoneForProgression(progressionID)

		level := ZoneLevel{
			ProgressionID:          progressionID,
			Type:                   meta.key,
			RecordType:             meta.key,
			ZoneKey:                meta.key,
			ZoneLabel:              meta.label,
			SortOrder:              meta.sortOrder,
			RecentLevel:            entry.NumberPtr("recent"),
			EndpointPredictedLevel: entry.NumberPtr("predicted"),
			ActivityID:             entry.NumberPtr("activityId"),
		}
		if change := entry.Object("changeEvent"); change != nil {
			level.ChangeDate = change.String("date")
			level.Date = level.ChangeDate
			if level.ChangeDate != "" {
				level.DateOnly = timeutil.ToDateOnly(level.ChangeDate, loc, true)
			}
			level.ChangeReason = change.Value("reason")
			if fromTo := change.Object("level"); fromTo != nil {
				level.ChangeFrom = fromTo.NumberPtr("from")
				level.ChangeTo = fromTo.NumberPtr("to")
			}
			level.ChangeDelta = change.NumberPtr("delta")
		}
		if current, ok := aiCurrent[progressionID]; ok {
			level.AICurrentDisplayLevel = current.NumberPtr("previousDisplayLevel")
		}
		if projected, ok := aiProjected[progressionID]; ok {
			level.AIProjectedDisplayLevel = projected.NumberPtr("displayFinalLevel")
		}
		if level.AICurrentDisplayLevel != nil && level.AIProjectedDisplayLevel != nil {
			delta := *level.AIProjectedDisplayLevel - *level.AICurrentDisplayLevel
			level.AIDelta = &delta
		}
		out = append(out, level)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ProgressionID < out[j].ProgressionID
	})
	return out
}

func indexByProgression(items []Raw) map[int64]Raw {
	out := make(map[int64]Raw, len(items))
	for _, item := range items {
		out[item.Int("progressionId")] = item
	}
	return out
}
