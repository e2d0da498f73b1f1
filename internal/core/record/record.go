package record

import (
	"math"
	"sort"
	"time"

	"trcli/internal/core/timeutil"
)

// annotationTypeLabels maps upstream annotation type codes to labels.
// Unmapped codes render as "unknown"
var annotationTypeLabels = map[int64]string{
	1: "note",
	2: "time-off",
	3: "injury",
	4: "illness",
	9: "plan-marker",
}

// AnnotationTypeLabel returns the label for an upstream type code
func AnnotationTypeLabel(typeID int64) string {
	if label, ok := annotationTypeLabels[typeID]; ok {
		return label
	}
	return "unknown"
}

// Event is the compacted calendar-event variant
type Event struct {
	ID                int64    `json:"id,omitempty"`
	Name              string   `json:"name,omitempty"`
	Date              Raw      `json:"date,omitempty"`
	DateOnly          string   `json:"dateOnly,omitempty"`
	TimeOfDay         string   `json:"timeOfDay,omitempty"`
	Started           string   `json:"started,omitempty"`
	RacePriority      any      `json:"racePriority,omitempty"`
	ActivityType      any      `json:"activityType,omitempty"`
	ActivityEventType any      `json:"activityEventType,omitempty"`
	TSS               *float64 `json:"tss,omitempty"`
	ActivityTSS       *float64 `json:"activityTss,omitempty"`
	IsTriathlonType   any      `json:"isTriathlonType,omitempty"`
	ManuallyCompleted any      `json:"manuallyCompleted,omitempty"`
}

func (e Event) ResolveDateOnly() string { return e.DateOnly }
func (e Event) ResolveText() string     { return e.Name }
func (e Event) ResolveTypeKey() string  { return coerceKey(e.ActivityType) }

func (e Event) ResolveLoad() (float64, bool) {
	if e.TSS != nil {
		return *e.TSS, true
	}
	if e.ActivityTSS != nil {
		return *e.ActivityTSS, true
	}
	return 0, false
}

// CompactEvent reduces an upstream calendar event to its stable fields.
// The upstream date is a calendar-date object, not a timestamp
func CompactEvent(r Raw) Event {
	return Event{
		ID:                r.Int("id"),
		Name:              r.String("name"),
		Date:              r.Object("date"),
		DateOnly:          calendarDateOnly(r.Value("date")),
		TimeOfDay:         r.String("timeOfDay"),
		Started:           r.String("started"),
		RacePriority:      r.Value("racePriority"),
		ActivityType:      r.Value("activityType"),
		ActivityEventType: r.Value("activityEventType"),
		TSS:               r.NumberPtr("tss"),
		ActivityTSS:       r.NumberPtr("activityTss"),
		IsTriathlonType:   r.Value("isTriathlonType"),
		ManuallyCompleted: r.Value("manuallyCompleted"),
	}
}

// Annotation is the compacted calendar-annotation variant (notes, time
// off, injuries). Type, TypeLabel and RecordType carry the same label so
// downstream filters match whichever alias they probe
type Annotation struct {
	ID              int64    `json:"id,omitempty"`
	Type            string   `json:"type"`
	TypeID          *float64 `json:"typeId,omitempty"`
	TypeLabel       string   `json:"typeLabel"`
	RecordType      string   `json:"recordType"`
	Date            Raw      `json:"date,omitempty"`
	DateOnly        string   `json:"dateOnly,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	DurationDays    *int     `json:"durationDays,omitempty"`
	GroupID         any      `json:"groupId,omitempty"`
}

func (a Annotation) ResolveDateOnly() string { return a.DateOnly }
func (a Annotation) ResolveText() string     { return a.TypeLabel }
func (a Annotation) ResolveTypeKey() string  { return a.RecordType }

// CompactAnnotation reduces an upstream annotation. Duration arrives in
// seconds; days are rounded whole days
func CompactAnnotation(r Raw) Annotation {
	label := AnnotationTypeLabel(r.Int("typeId"))
	out := Annotation{
		ID:              r.Int("id"),
		Type:            label,
		TypeID:          r.NumberPtr("typeId"),
		TypeLabel:       label,
		RecordType:      label,
		Date:            r.Object("date"),
		DateOnly:        calendarDateOnly(r.Value("date")),
		DurationSeconds: r.NumberPtr("duration"),
		GroupID:         r.Value("groupId"),
	}
	if out.DurationSeconds != nil {
		days := int(math.Round(*out.DurationSeconds / 86_400))
		out.DurationDays = &days
	}
	return out
}

// Weight is the compacted weight-history variant
type Weight struct {
	ID       int64    `json:"id,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	Units    string   `json:"units,omitempty"`
	Date     string   `json:"date,omitempty"`
	DateOnly string   `json:"dateOnly,omitempty"`
}

func (w Weight) ResolveDateOnly() string { return w.DateOnly }

func CompactWeight(r Raw, loc *time.Location) Weight {
	out := Weight{
		ID:    r.Int("id"),
		Value: r.NumberPtr("value"),
		Units: r.String("units"),
		Date:  r.String("date"),
	}
	if out.Date != "" {
		out.DateOnly = timeutil.ToDateOnly(out.Date, loc, true)
	}
	return out
}

// PlanSummary is the compacted training-plan listing variant.
// Date mirrors Start so the shared date filter applies
type PlanSummary struct {
	ID                     int64  `json:"id,omitempty"`
	Name                   string `json:"name,omitempty"`
	Discipline             any    `json:"discipline,omitempty"`
	Volume                 any    `json:"volume,omitempty"`
	Phase                  any    `json:"phase,omitempty"`
	Start                  string `json:"start,omitempty"`
	End                    string `json:"end,omitempty"`
	Date                   string `json:"date,omitempty"`
	DateOnly               string `json:"dateOnly,omitempty"`
	IsAdHoc                any    `json:"isAdHoc,omitempty"`
	PlannedActivityGroupID any    `json:"plannedActivityGroupId,omitempty"`
}

func (p PlanSummary) ResolveDateOnly() string { return p.DateOnly }
func (p PlanSummary) ResolveText() string     { return p.Name }

func CompactPlanSummary(r Raw, loc *time.Location) PlanSummary {
	start := r.String("start")
	out := PlanSummary{
		ID:                     r.Int("id"),
		Name:                   r.String("name"),
		Discipline:             r.Value("discipline"),
		Volume:                 r.Value("volume"),
		Phase:                  r.Value("phase"),
		Start:                  start,
		End:                    r.String("end"),
		Date:                   start,
		IsAdHoc:                r.Value("isAdHoc"),
		PlannedActivityGroupID: r.Value("plannedActivityGroupId"),
	}
	if start != "" {
		out.DateOnly = timeutil.ToDateOnly(start, loc, true)
	}
	return out
}

// PlanPhase is the compacted custom-plan phase variant
type PlanPhase struct {
	ID           int64  `json:"id,omitempty"`
	CustomPlanID int64  `json:"customPlanId,omitempty"`
	Type         any    `json:"type,omitempty"`
	Volume       any    `json:"volume,omitempty"`
	PlanID       int64  `json:"planId,omitempty"`
	PlanName     string `json:"planName,omitempty"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	Date         string `json:"date,omitempty"`
	DateOnly     string `json:"dateOnly,omitempty"`
	IsMasters    any    `json:"isMasters,omitempty"`
	IsPolarized  any    `json:"isPolarized,omitempty"`
}

func (p PlanPhase) ResolveDateOnly() string { return p.DateOnly }
func (p PlanPhase) ResolveText() string     { return p.PlanName }
func (p PlanPhase) ResolveTypeKey() string  { return coerceKey(p.Type) }

func CompactPlanPhase(r Raw, loc *time.Location) PlanPhase {
	start := r.String("start")
	out := PlanPhase{
		ID:           r.Int("id"),
		CustomPlanID: r.Int("customPlanId"),
		Type:         r.Value("type"),
		Volume:       r.Value("volume"),
		PlanID:       r.Int("planId"),
		PlanName:     r.String("planName"),
		Start:        start,
		End:          r.String("end"),
		Date:         start,
		IsMasters:    r.Value("isMasters"),
		IsPolarized:  r.Value("isPolarized"),
	}
	if start != "" {
		out.DateOnly = timeutil.ToDateOnly(start, loc, true)
	}
	return out
}

// CurrentPlan is the compacted active-custom-plan variant with its phases
type CurrentPlan struct {
	ID                       int64       `json:"id,omitempty"`
	Name                     string      `json:"name,omitempty"`
	MemberID                 int64       `json:"memberId,omitempty"`
	Discipline               any         `json:"discipline,omitempty"`
	Volume                   any         `json:"volume,omitempty"`
	Start                    string      `json:"start,omitempty"`
	End                      string      `json:"end,omitempty"`
	Date                     string      `json:"date,omitempty"`
	DateOnly                 string      `json:"dateOnly,omitempty"`
	CanEdit                  any         `json:"canEdit,omitempty"`
	CurrentPhase             any         `json:"currentPhase,omitempty"`
	CurrentPhaseStart        string      `json:"currentPhaseStart,omitempty"`
	CurrentPhaseEnd          string      `json:"currentPhaseEnd,omitempty"`
	PlannedActivityGroupType any         `json:"plannedActivityGroupType,omitempty"`
	AutoUpdateApplied        any         `json:"autoUpdateApplied,omitempty"`
	PhaseCount               int         `json:"phaseCount"`
	Phases                   []PlanPhase `json:"phases"`
}

// CompactCurrentPlan reduces the active custom plan, nil when there is
// no active plan
func CompactCurrentPlan(r Raw, loc *time.Location) *CurrentPlan {
	if r == nil {
		return nil
	}
	start := r.String("start")
	out := &CurrentPlan{
		ID:                       r.Int("id"),
		Name:                     r.String("name"),
		MemberID:                 r.Int("memberId"),
		Discipline:               r.Value("discipline"),
		Volume:                   r.Value("volume"),
		Start:                    start,
		End:                      r.String("end"),
		Date:                     start,
		CanEdit:                  r.Value("canEdit"),
		CurrentPhase:             r.Value("currentPhase"),
		CurrentPhaseStart:        r.String("currentPhaseStart"),
		CurrentPhaseEnd:          r.String("currentPhaseEnd"),
		PlannedActivityGroupType: r.Value("plannedActivityGroupType"),
		AutoUpdateApplied:        r.Value("autoUpdateApplied"),
		Phases:                   []PlanPhase{},
	}
	if start != "" {
		out.DateOnly = timeutil.ToDateOnly(start, loc, true)
	}
	for _, phase := range r.Objects("phases") {
		out.Phases = append(out.Phases, CompactPlanPhase(phase, loc))
	}
	out.PhaseCount = len(out.Phases)
	return out
}

// FTPPoint is one FTP history entry, Date in RFC3339 UTC
type FTPPoint struct {
	Date     string  `json:"date"`
	DateOnly string  `json:"dateOnly"`
	Value    float64 `json:"value"`
}

func (p FTPPoint) ResolveDateOnly() string { return p.DateOnly }

// NormalizeFTPHistory compacts raw FTP entries, skipping rows missing a
// date or a finite value, sorted ascending by date
func NormalizeFTPHistory(items []any, loc *time.Location) []FTPPoint {
	out := make([]FTPPoint, 0, len(items))
	for _, item := range items {
		r := AsRaw(item)
		if r == nil {
			continue
		}
		dateRaw := r.Value("date")
		value, okValue := r.Number("value")
		t, okDate := timeutil.ParseTimestamp(dateRaw, true)
		if !okDate || !okValue {
			continue
		}
		out = append(out, FTPPoint{
			Date:     t.UTC().Format(time.RFC3339),
			DateOnly: timeutil.ToDateOnly(dateRaw, loc, true),
			Value:    value,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// FitnessThreshold is one AI FTP detection entry
type FitnessThreshold struct {
	ID        int64   `json:"id,omitempty"`
	Date      string  `json:"date"`
	DateOnly  string  `json:"dateOnly"`
	Value     float64 `json:"value"`
	IsApplied bool    `json:"isApplied"`
	IsEnabled any     `json:"isEnabled,omitempty"`
	Source    any     `json:"source,omitempty"`
	Viewed    any     `json:"viewed,omitempty"`
}

func (f FitnessThreshold) ResolveDateOnly() string { return f.DateOnly }

// NormalizeFitnessThresholds compacts raw threshold rows the way
// NormalizeFTPHistory does, sorted ascending by date
func NormalizeFitnessThresholds(items []any, loc *time.Location) []FitnessThreshold {
	out := make([]FitnessThreshold, 0, len(items))
	for _, item := range items {
		r := AsRaw(item)
		if r == nil {
			continue
		}
		dateRaw := r.Value("date")
		value, okValue := r.Number("value")
		t, okDate := timeutil.ParseTimestamp(dateRaw, true)
		if !okDate || !okValue {
			continue
		}
		out = append(out, FitnessThreshold{
			ID:        r.Int("id"),
			Date:      t.UTC().Format(time.RFC3339),
			DateOnly:  timeutil.ToDateOnly(dateRaw, loc, true),
			Value:     value,
			IsApplied: r.Bool("isApplied"),
			IsEnabled: r.Value("isEnabled"),
			Source:    r.Value("source"),
			Viewed:    r.Value("viewed"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// PersonalRecord is the compacted power personal-record variant. The
// upstream endpoint serves these PascalCased regardless of the
// json-format header
type PersonalRecord struct {
	Seconds           *float64 `json:"seconds,omitempty"`
	Watts             *float64 `json:"watts,omitempty"`
	WorkoutDate       string   `json:"workoutDate,omitempty"`
	WorkoutSeconds    *float64 `json:"workoutSeconds,omitempty"`
	WorkoutGUID       string   `json:"workoutGuid,omitempty"`
	WorkoutRecordID   int64    `json:"workoutRecordId,omitempty"`
	WorkoutRecordName string   `json:"workoutRecordName,omitempty"`
	SurveyResponse    any      `json:"surveyResponse,omitempty"`
}

func (p PersonalRecord) ResolveDateOnly() string {
	return timeutil.ToDateOnly(p.WorkoutDate, time.UTC, true)
}
func (p PersonalRecord) ResolveText() string { return p.WorkoutRecordName }

func CompactPersonalRecord(r Raw) PersonalRecord {
	return PersonalRecord{
		Seconds:           r.NumberPtr("seconds"),
		Watts:             r.NumberPtr("watts"),
		WorkoutDate:       r.String("workoutDate"),
		WorkoutSeconds:    r.NumberPtr("workoutSeconds"),
		WorkoutGUID:       r.String("workoutGuid"),
		WorkoutRecordID:   r.Int("workoutRecordId"),
		WorkoutRecordName: r.String("workoutRecordName"),
		SurveyResponse:    r.Value("surveyResponseTranslated"),
	}
}
