package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"trcli/internal/core/timeutil"
)

// Loose gives a raw upstream map the resolver capabilities the filter
// engine probes for, using the same field fallback orders across every
// record family. It marshals as the underlying map, so projection and
// output see the original document
type Loose struct {
	Raw Raw
	Loc *time.Location
}

// Wrap adapts a raw map; a nil location means UTC
func Wrap(r Raw, loc *time.Location) Loose {
	if loc == nil {
		loc = time.UTC
	}
	return Loose{Raw: r, Loc: loc}
}

// WrapAll adapts a slice of raw maps into filterable records
func WrapAll(items []Raw, loc *time.Location) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, Wrap(item, loc))
	}
	return out
}

func (l Loose) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Raw)
}

// ResolveDateOnly probes dateOnly, then the calendar-date object, then
// the date, started and workoutDate timestamps
func (l Loose) ResolveDateOnly() string {
	if s := l.Raw.String("dateOnly"); s != "" {
		if d := timeutil.ToDateOnly(s, l.Loc, true); d != "" {
			return d
		}
	}
	if d := calendarDateOnly(l.Raw.Value("date")); d != "" {
		return d
	}
	for _, field := range []string{"date", "started", "workoutDate"} {
		v, ok := l.Raw.Field(field)
		if !ok || v == nil {
			continue
		}
		if d := timeutil.ToDateOnly(v, l.Loc, true); d != "" {
			return d
		}
	}
	return ""
}

// ResolveTypeKey probes recordType, type, activityType, typeId and
// progressionId, in that order
func (l Loose) ResolveTypeKey() string {
	for _, field := range []string{"recordType", "type", "activityType", "typeId", "progressionId"} {
		v, ok := l.Raw.Field(field)
		if !ok || v == nil {
			continue
		}
		if key := coerceKey(v); key != "" {
			return key
		}
	}
	return ""
}

// ResolveLoad probes tss, actualTss, plannedTssTotal and estimatedTss
func (l Loose) ResolveLoad() (float64, bool) {
	for _, field := range []string{"tss", "actualTss", "plannedTssTotal", "estimatedTss"} {
		if n, ok := l.Raw.Number(field); ok {
			return n, true
		}
	}
	return 0, false
}

// ResolveText joins the name-like fields into one haystack
func (l Loose) ResolveText() string {
	parts := make([]string, 0, 4)
	for _, field := range []string{
		"name", "title", "planName", "zoneLabel", "zoneKey",
		"typeLabel", "workoutRecordName", "recordType", "type",
	} {
		v, ok := l.Raw.Field(field)
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// coerceKey renders a type discriminator as a comparable string.
// Integral numbers drop the fraction so a numeric --type matches ids
func coerceKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
