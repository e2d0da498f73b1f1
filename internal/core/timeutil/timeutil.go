// Package timeutil converts the upstream API's assorted timestamp shapes
// (date-only strings, offset-bearing ISO strings, offsetless datetimes,
// epoch millis) into canonical local dates and datetimes.
// Unparsable input yields the zero result, never an error; callers treat
// "no date" as a per-record gap rather than a batch failure
package timeutil

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	perr "trcli/internal/platform/errors"
)

const (
	// DateOnly is the canonical calendar-date layout.
	// Lexical order on this layout is chronological order
	DateOnly = "2006-01-02"

	localDateTime = "2006-01-02T15:04:05 -07:00"
)

var (
	dateOnlyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	offsetPattern   = regexp.MustCompile(`(?i)(Z|[+-]\d{2}:\d{2})$`)
	dateTimePrefix  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)
)

// offsetless layouts tried for datetime strings without a zone marker
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// offset layouts tried for datetime strings carrying Z or +-hh:mm
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// ResolveLocation picks the first non-empty candidate zone, then the host
// zone, then UTC. Fails with an invalid-timezone error when the winning
// candidate is not a recognized IANA zone
func ResolveLocation(candidates ...string) (*time.Location, error) {
	name := ""
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			name = s
			break
		}
	}
	if name == "" {
		if local := time.Local; local != nil && local.String() != "" {
			return local, nil
		}
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, perr.InvalidTimeZonef(
			"invalid timezone %q; use an IANA timezone like America/New_York", name)
	}
	return loc, nil
}

// ParseTimestamp converts an arbitrary timestamp representation to an
// instant. Accepted shapes: time.Time, numeric epoch millis, YYYY-MM-DD
// (UTC midnight), datetime strings with or without an offset. When the
// string carries no offset it is read as UTC only if assumeUTC is set,
// otherwise as host-local time. Returns ok=false on anything unparsable
func ParseTimestamp(value any, assumeUTC bool) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		return parseString(v, assumeUTC)
	default:
		if ms, ok := toFinite(value); ok {
			return time.UnixMilli(int64(ms)).UTC(), true
		}
		return time.Time{}, false
	}
}

func parseString(raw string, assumeUTC bool) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if dateOnlyPattern.MatchString(s) {
		t, err := time.ParseInLocation(DateOnly, s, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	if dateTimePrefix.MatchString(s) && !offsetPattern.MatchString(s) {
		loc := time.Local
		if assumeUTC {
			loc = time.UTC
		}
		for _, layout := range naiveLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToDateOnly formats a timestamp as the target zone's calendar date.
// Date-only strings pass through untouched. Returns "" when unknown
func ToDateOnly(value any, loc *time.Location, assumeUTC bool) string {
	if s, ok := value.(string); ok {
		if trimmed := strings.TrimSpace(s); dateOnlyPattern.MatchString(trimmed) {
			return trimmed
		}
	}
	t, ok := ParseTimestamp(value, assumeUTC)
	if !ok {
		return ""
	}
	return t.In(loc).Format(DateOnly)
}

// FormatLocal renders a timestamp as a local datetime string with the
// zone offset appended. Returns "" when unknown
func FormatLocal(value any, loc *time.Location, assumeUTC bool) string {
	t, ok := ParseTimestamp(value, assumeUTC)
	if !ok {
		return ""
	}
	return t.In(loc).Format(localDateTime)
}

// ShiftDateOnly moves a YYYY-MM-DD date by days, staying in UTC calendar
// arithmetic. Returns "" on unparsable input
func ShiftDateOnly(dateOnly string, days int) string {
	t, ok := ParseTimestamp(dateOnly, false)
	if !ok {
		return ""
	}
	return t.AddDate(0, 0, days).Format(DateOnly)
}

// DateOnlyNow returns today's calendar date in the given zone
func DateOnlyNow(loc *time.Location) string {
	return time.Now().In(loc).Format(DateOnly)
}

// DateOnlyDiffDays returns whole days between two YYYY-MM-DD values
func DateOnlyDiffDays(from, to string) (int, bool) {
	f, okF := ParseTimestamp(from, false)
	t, okT := ParseTimestamp(to, false)
	if !okF || !okT {
		return 0, false
	}
	return int(math.Round(t.Sub(f).Hours() / 24)), true
}

// Window summarizes an activity's local start/end pair.
// CrossesMidnightLocal flags overnight sessions whose local start and end
// dates differ
type Window struct {
	StartedAtUTC         string `json:"startedAtUtc"`
	StartedAtLocal       string `json:"startedAtLocal"`
	EndedAtUTC           string `json:"endedAtUtc,omitempty"`
	EndedAtLocal         string `json:"endedAtLocal,omitempty"`
	LocalDate            string `json:"localDate"`
	EndLocalDate         string `json:"endLocalDate,omitempty"`
	CrossesMidnightLocal bool   `json:"crossesMidnightLocal"`
}

// SummarizeWindow derives a Window from a raw start timestamp and a
// duration in seconds. Returns nil when the start is unparsable; a
// missing or non-finite duration means no end is computed
func SummarizeWindow(started any, durationSeconds any, loc *time.Location) *Window {
	start, ok := ParseTimestamp(started, true)
	if !ok {
		return nil
	}

	w := &Window{
		StartedAtUTC:   start.UTC().Format(time.RFC3339),
		StartedAtLocal: start.In(loc).Format(localDateTime),
		LocalDate:      start.In(loc).Format(DateOnly),
	}

	if dur, okDur := toFinite(durationSeconds); okDur {
		end := start.Add(time.Duration(dur * float64(time.Second)))
		w.EndedAtUTC = end.UTC().Format(time.RFC3339)
		w.EndedAtLocal = end.In(loc).Format(localDateTime)
		w.EndLocalDate = end.In(loc).Format(DateOnly)
		w.CrossesMidnightLocal = w.LocalDate != w.EndLocalDate
	}
	return w
}

// toFinite coerces numeric-ish values the way the upstream payloads are
// loose about them (JSON numbers decode as float64; ids sometimes arrive
// as strings)
func toFinite(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
