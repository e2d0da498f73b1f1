package filter

import (
	"reflect"
	"testing"

	perr "trcli/internal/platform/errors"
)

type rec struct {
	Date string   `json:"dateOnly,omitempty"`
	Type string   `json:"type,omitempty"`
	Load *float64 `json:"tss,omitempty"`
	Text string   `json:"name,omitempty"`
}

func (r rec) ResolveDateOnly() string { return r.Date }
func (r rec) ResolveTypeKey() string  { return r.Type }
func (r rec) ResolveText() string     { return r.Text }

func (r rec) ResolveLoad() (float64, bool) {
	if r.Load == nil {
		return 0, false
	}
	return *r.Load, true
}

// opaque satisfies no resolver capability
type opaque struct{}

func load(v float64) *float64 { return &v }

func names(records []any) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.(rec).Text
	}
	return out
}

func TestApplyIdentity(t *testing.T) {
	records := []any{
		rec{Date: "2024-01-02", Text: "b"},
		rec{Date: "2024-01-01", Text: "a"},
		opaque{},
	}
	got := Apply(records, Config{})
	if !reflect.DeepEqual(got.Records, records) {
		t.Fatalf("zero config should pass through: %v", got.Records)
	}
	if got.Summary.InputCount != 3 || got.Summary.OutputCount != 3 {
		t.Fatalf("summary counts = %d/%d", got.Summary.InputCount, got.Summary.OutputCount)
	}
}

func TestApplyIdempotent(t *testing.T) {
	cfg := Config{From: "2024-01-01", To: "2024-12-31", Sort: "date", ResultLimit: 3}
	records := []any{
		rec{Date: "2024-03-01", Text: "c"},
		rec{Date: "2024-01-01", Text: "a"},
		rec{Date: "2023-12-31", Text: "old"},
		rec{Date: "2024-02-01", Text: "b"},
	}
	once := Apply(records, cfg)
	twice := Apply(once.Records, cfg)
	if !reflect.DeepEqual(once.Records, twice.Records) {
		t.Fatalf("not idempotent: %v vs %v", names(once.Records), names(twice.Records))
	}
}

func TestDateRange(t *testing.T) {
	records := []any{
		rec{Date: "2024-01-05", Text: "in"},
		rec{Date: "2024-02-01", Text: "after"},
		rec{Date: "2023-12-31", Text: "before"},
		rec{Text: "dateless"},
		opaque{},
	}
	got := Apply(records, Config{From: "2024-01-01", To: "2024-01-31"})
	if want := []string{"in"}; !reflect.DeepEqual(names(got.Records), want) {
		t.Fatalf("records = %v, want %v (unresolvable dates excluded under a range)", names(got.Records), want)
	}
}

func TestTypeFilter(t *testing.T) {
	records := []any{
		rec{Type: "time-off", Text: "a"},
		rec{Type: "2", Text: "b"},
		rec{Type: "Event", Text: "c"},
		rec{Text: "untyped"},
		opaque{},
	}

	// numeric equality: candidate "2.0" matches key "2"
	got := Apply(records, Config{Types: []string{"2.0"}})
	if want := []string{"b"}; !reflect.DeepEqual(names(got.Records), want) {
		t.Fatalf("numeric match = %v", names(got.Records))
	}

	// string match is case-insensitive, multiple candidates union
	got = Apply(records, Config{Types: []string{"event", "TIME-OFF"}})
	if want := []string{"a", "c"}; !reflect.DeepEqual(names(got.Records), want) {
		t.Fatalf("string match = %v", names(got.Records))
	}
}

func TestContains(t *testing.T) {
	records := []any{
		rec{Text: "Sweet Spot Base"},
		rec{Text: "Threshold"},
		opaque{},
	}
	got := Apply(records, Config{Contains: "sweet SPOT"})
	if len(got.Records) != 1 || got.Records[0].(rec).Text != "Sweet Spot Base" {
		t.Fatalf("contains = %v", got.Records)
	}
}

func TestLoadRange(t *testing.T) {
	records := []any{
		rec{Load: load(50), Text: "low"},
		rec{Load: load(80), Text: "mid"},
		rec{Load: load(120), Text: "high"},
		rec{Text: "loadless"},
	}
	got := Apply(records, Config{MinLoad: load(60), MaxLoad: load(100)})
	if want := []string{"mid"}; !reflect.DeepEqual(names(got.Records), want) {
		t.Fatalf("load range = %v (loadless excluded)", names(got.Records))
	}
}

func TestSortModes(t *testing.T) {
	records := []any{
		rec{Date: "2024-02-01", Load: load(90), Text: "beta"},
		rec{Date: "2024-01-01", Text: "alpha"},
		rec{Date: "2024-03-01", Load: load(30), Text: "Gamma"},
	}

	got := Apply(records, Config{Sort: "date-desc"})
	if want := []string{"Gamma", "beta", "alpha"}; !reflect.DeepEqual(names(got.Records), want) {
		t.Fatalf("date-desc = %v", names(got.Records))
	}

	// unresolvable load sorts last in both directions
	got = Apply(records, Config{Sort: "load"})
	if want := []string{"Gamma", "beta", "alpha"}; !reflect.DeepEqual(names(got.Records), want) {
		t.Fatalf("load = %v", names(got.Records))
	}
	got = Apply(records, Config{Sort: "load-desc"})
	if want := []string{"beta", "Gamma", "alpha"}; !reflect.DeepEqual(names(got.Records), want) {
		t.Fatalf("load-desc = %v", names(got.Records))
	}

	// text sort folds case
	got = Apply(records, Config{Sort: "text"})
	if want := []string{"alpha", "beta", "Gamma"}; !reflect.DeepEqual(names(got.Records), want) {
		t.Fatalf("text = %v", names(got.Records))
	}
}

func TestSortStable(t *testing.T) {
	records := []any{
		rec{Date: "2024-01-01", Text: "first"},
		rec{Date: "2024-01-01", Text: "second"},
		rec{Date: "2024-01-01", Text: "third"},
	}
	got := Apply(records, Config{Sort: "date"})
	if want := []string{"first", "second", "third"}; !reflect.DeepEqual(names(got.Records), want) {
		t.Fatalf("equal keys must keep input order: %v", names(got.Records))
	}
}

func TestResultLimitPrefix(t *testing.T) {
	records := []any{
		rec{Date: "2024-03-01", Text: "c"},
		rec{Date: "2024-01-01", Text: "a"},
		rec{Date: "2024-02-01", Text: "b"},
	}
	full := Apply(records, Config{Sort: "date"})
	limited := Apply(records, Config{Sort: "date", ResultLimit: 2})
	if len(limited.Records) != 2 {
		t.Fatalf("limit len = %d", len(limited.Records))
	}
	if !reflect.DeepEqual(limited.Records, full.Records[:2]) {
		t.Fatalf("limit must be a prefix of the sorted set: %v", names(limited.Records))
	}
	if limited.Summary.OutputCount != 2 || limited.Summary.InputCount != 3 {
		t.Fatalf("summary = %+v", limited.Summary)
	}
}

func TestProjection(t *testing.T) {
	records := []any{
		map[string]any{
			"name": "Baxter",
			"plan": map[string]any{"phase": "base"},
		},
	}
	got := Apply(records, Config{Fields: []string{"name", "plan.phase", "missing.path"}})
	projected, ok := got.Records[0].(map[string]any)
	if !ok {
		t.Fatalf("projection output = %T", got.Records[0])
	}
	if projected["name"] != "Baxter" || projected["plan.phase"] != "base" {
		t.Fatalf("projected = %v", projected)
	}
	// a missing path stays present, as an explicit null
	if v, present := projected["missing.path"]; !present || v != nil {
		t.Fatalf("missing path = %v present=%v", v, present)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err != nil {
		t.Fatalf("zero config: %v", err)
	}
	if err := (Config{From: "2024-01-01", Sort: "load-desc", ResultLimit: 5}).Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad from", Config{From: "01/02/2024"}},
		{"bad to", Config{To: "2024-13-99x"}},
		{"bad sort", Config{Sort: "tss"}},
		{"negative limit", Config{ResultLimit: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("Validate() = %v, want validation error", err)
			}
		})
	}
}

func TestActive(t *testing.T) {
	if (Config{}).Active() {
		t.Fatal("zero config should be inactive")
	}
	if !(Config{Contains: "x"}).Active() || !(Config{ResultLimit: 1}).Active() {
		t.Fatal("non-zero fields should activate")
	}
}
