package timeutil

import (
	"testing"
	"time"

	perr "trcli/internal/platform/errors"
)

func TestResolveLocation(t *testing.T) {
	loc, err := ResolveLocation("America/New_York")
	if err != nil {
		t.Fatalf("ResolveLocation: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Fatalf("ResolveLocation = %q", loc)
	}

	// first non-empty candidate wins
	loc, err = ResolveLocation("", "Europe/Berlin", "America/Chicago")
	if err != nil {
		t.Fatalf("ResolveLocation fallback: %v", err)
	}
	if loc.String() != "Europe/Berlin" {
		t.Fatalf("ResolveLocation fallback = %q", loc)
	}

	if _, err = ResolveLocation("Not/AZone"); !perr.IsCode(err, perr.ErrorCodeInvalidTimeZone) {
		t.Fatalf("expected invalid timezone error, got %v", err)
	}

	// no candidates never errors
	if _, err = ResolveLocation(); err != nil {
		t.Fatalf("ResolveLocation() = %v", err)
	}
}

func TestParseTimestamp_Table(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		assumeUTC bool
		want      string // RFC3339 in UTC, "" means unparsable
	}{
		{"nil", nil, true, ""},
		{"empty string", "   ", true, ""},
		{"garbage", "not-a-date", true, ""},
		{"date only is utc midnight", "2024-03-10", true, "2024-03-10T00:00:00Z"},
		{"zoned z", "2024-03-10T12:30:00Z", true, "2024-03-10T12:30:00Z"},
		{"zoned offset", "2024-03-10T12:30:00+02:00", true, "2024-03-10T10:30:00Z"},
		{"offsetless assumed utc", "2024-03-10T12:30:00", true, "2024-03-10T12:30:00Z"},
		{"fractional seconds", "2024-03-10T12:30:00.250Z", true, "2024-03-10T12:30:00Z"},
		{"epoch millis", float64(1710073800000), true, "2024-03-10T12:30:00Z"},
		{"numeric string", "garbage9", true, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tc.in, tc.assumeUTC)
			if tc.want == "" {
				if ok {
					t.Fatalf("ParseTimestamp(%v) parsed to %v, want failure", tc.in, got)
				}
				return
			}
			if !ok {
				t.Fatalf("ParseTimestamp(%v) failed, want %s", tc.in, tc.want)
			}
			if got.UTC().Truncate(time.Second).Format(time.RFC3339) != tc.want {
				t.Fatalf("ParseTimestamp(%v) = %s, want %s", tc.in, got.UTC().Format(time.RFC3339Nano), tc.want)
			}
		})
	}
}

func TestParseTimestamp_OffsetlessHonorsFlag(t *testing.T) {
	utc, ok := ParseTimestamp("2024-06-01T10:00:00", true)
	if !ok || !utc.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("assumeUTC parse = %v ok=%v", utc, ok)
	}
	local, ok := ParseTimestamp("2024-06-01T10:00:00", false)
	if !ok {
		t.Fatal("local parse failed")
	}
	if local.Location() != time.Local {
		t.Fatalf("offsetless without flag should read as host-local, got %v", local.Location())
	}
}

// For valid YYYY-MM-DD input, parse-then-format round-trips exactly when
// the input is read as UTC midnight and rendered back in UTC
func TestDateOnlyRoundTrip(t *testing.T) {
	for _, d := range []string{"2020-01-01", "2024-02-29", "2025-12-31", "1999-07-04"} {
		parsed, ok := ParseTimestamp(d, true)
		if !ok {
			t.Fatalf("ParseTimestamp(%q) failed", d)
		}
		if got := ToDateOnly(parsed, time.UTC, true); got != d {
			t.Fatalf("round trip %q -> %q", d, got)
		}
	}
}

func TestToDateOnly(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")

	// date-only strings pass through without zone shifting
	if got := ToDateOnly(" 2024-03-10 ", ny, true); got != "2024-03-10" {
		t.Fatalf("passthrough = %q", got)
	}

	// a UTC instant late in the day lands on the prior local date in NY
	if got := ToDateOnly("2024-03-10T02:30:00Z", ny, true); got != "2024-03-09" {
		t.Fatalf("zone shift = %q, want 2024-03-09", got)
	}

	if got := ToDateOnly("bogus", ny, true); got != "" {
		t.Fatalf("unparsable = %q, want empty", got)
	}
}

func TestShiftAndDiff(t *testing.T) {
	if got := ShiftDateOnly("2024-02-28", 2); got != "2024-03-01" {
		t.Fatalf("ShiftDateOnly = %q", got)
	}
	if got := ShiftDateOnly("2024-01-01", -1); got != "2023-12-31" {
		t.Fatalf("ShiftDateOnly back = %q", got)
	}
	if got := ShiftDateOnly("junk", 1); got != "" {
		t.Fatalf("ShiftDateOnly junk = %q", got)
	}

	d, ok := DateOnlyDiffDays("2024-01-01", "2024-01-31")
	if !ok || d != 30 {
		t.Fatalf("DateOnlyDiffDays = %d ok=%v", d, ok)
	}
	if _, ok = DateOnlyDiffDays("junk", "2024-01-31"); ok {
		t.Fatal("DateOnlyDiffDays should fail on junk")
	}
}

func TestSummarizeWindow(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")

	// 23:30 local start + 90 minutes ends on the next local day
	w := SummarizeWindow("2024-01-02T04:30:00Z", 5400, ny)
	if w == nil {
		t.Fatal("SummarizeWindow returned nil")
	}
	if w.LocalDate != "2024-01-01" {
		t.Fatalf("LocalDate = %q, want 2024-01-01", w.LocalDate)
	}
	if w.EndLocalDate != "2024-01-02" {
		t.Fatalf("EndLocalDate = %q, want 2024-01-02", w.EndLocalDate)
	}
	if !w.CrossesMidnightLocal {
		t.Fatal("expected CrossesMidnightLocal")
	}

	// same-evening ride stays on one local date
	w = SummarizeWindow("2024-01-01T23:30:00Z", 5400, ny)
	if w == nil || w.CrossesMidnightLocal {
		t.Fatalf("evening ride should not cross midnight: %+v", w)
	}
	if w.LocalDate != "2024-01-01" || w.EndLocalDate != "2024-01-01" {
		t.Fatalf("evening ride dates = %q..%q", w.LocalDate, w.EndLocalDate)
	}

	// non-finite duration means no end computed, not an error
	w = SummarizeWindow("2024-01-01T10:00:00Z", nil, ny)
	if w == nil {
		t.Fatal("nil duration should still summarize the start")
	}
	if w.EndedAtUTC != "" || w.EndLocalDate != "" || w.CrossesMidnightLocal {
		t.Fatalf("no-duration window should have no end: %+v", w)
	}

	if w = SummarizeWindow("garbage", 5400, ny); w != nil {
		t.Fatalf("unparsable start should yield nil, got %+v", w)
	}
}
