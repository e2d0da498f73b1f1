package record

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLooseResolvers(t *testing.T) {
	activity := Wrap(Raw{
		"name":      "Baxter",
		"started":   "2024-05-01T06:30:00Z",
		"actualTss": float64(72),
		"type":      float64(1),
	}, time.UTC)

	if got := activity.ResolveDateOnly(); got != "2024-05-01" {
		t.Fatalf("ResolveDateOnly = %q", got)
	}
	if load, ok := activity.ResolveLoad(); !ok || load != 72 {
		t.Fatalf("ResolveLoad = %v ok=%v", load, ok)
	}
	if got := activity.ResolveTypeKey(); got != "1" {
		t.Fatalf("ResolveTypeKey = %q (integral numbers render without fraction)", got)
	}
	if got := activity.ResolveText(); got != "Baxter" {
		t.Fatalf("ResolveText = %q", got)
	}
}

func TestLooseFallbackOrders(t *testing.T) {
	// dateOnly beats started; recordType beats type; tss beats actualTss
	r := Wrap(Raw{
		"dateOnly":   "2024-01-01",
		"started":    "2024-06-06T00:00:00Z",
		"recordType": "event",
		"type":       float64(3),
		"tss":        float64(50),
		"actualTss":  float64(90),
	}, time.UTC)
	if got := r.ResolveDateOnly(); got != "2024-01-01" {
		t.Fatalf("dateOnly should win, got %q", got)
	}
	if got := r.ResolveTypeKey(); got != "event" {
		t.Fatalf("recordType should win, got %q", got)
	}
	if load, _ := r.ResolveLoad(); load != 50 {
		t.Fatalf("tss should win, got %v", load)
	}

	// calendar-date object beats started too
	planned := Wrap(Raw{
		"date":    map[string]any{"year": float64(2024), "month": float64(7), "day": float64(9)},
		"started": "2024-06-06T00:00:00Z",
	}, time.UTC)
	if got := planned.ResolveDateOnly(); got != "2024-07-09" {
		t.Fatalf("calendar date should win, got %q", got)
	}

	empty := Wrap(Raw{}, time.UTC)
	if got := empty.ResolveDateOnly(); got != "" {
		t.Fatalf("empty map date = %q", got)
	}
	if _, ok := empty.ResolveLoad(); ok {
		t.Fatal("empty map load should be unresolvable")
	}
}

func TestLooseMarshalsAsRawMap(t *testing.T) {
	wrapped := Wrap(Raw{"name": "Pettit", "tss": float64(40)}, time.UTC)
	data, err := json.Marshal(wrapped)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["name"] != "Pettit" || back["tss"] != float64(40) {
		t.Fatalf("round trip = %v (wrapper must not leak into output)", back)
	}
}

func TestWindowHelpers(t *testing.T) {
	planned := []Raw{
		{"date": map[string]any{"year": float64(2024), "month": float64(5), "day": float64(1)}, "workoutId": float64(11)},
		{"date": map[string]any{"year": float64(2024), "month": float64(5), "day": float64(9)}, "type": float64(1)},
		{"date": map[string]any{"year": float64(2024), "month": float64(5), "day": float64(20)}, "type": float64(2)},
	}

	future := FilterFuturePlanned(planned, "2024-05-05", "")
	if len(future) != 2 {
		t.Fatalf("future len = %d", len(future))
	}
	bounded := FilterFuturePlanned(planned, "2024-05-05", "2024-05-10")
	if len(bounded) != 1 || PlannedDateOnly(bounded[0]) != "2024-05-09" {
		t.Fatalf("bounded = %+v", bounded)
	}

	// workoutId rows and type-1 rows count as workouts, type-2 does not
	if got := CountPlannedInRange(planned, "2024-05-01", "2024-05-31"); got != 2 {
		t.Fatalf("CountPlannedInRange = %d, want 2", got)
	}

	activities := []Raw{
		{"started": "2024-05-01T07:00:00Z"},
		{"started": "2024-05-03T07:00:00Z"},
		{"started": "garbage"},
		{"started": "2024-04-01T07:00:00Z"},
	}
	past := FilterPastActivities(activities, "2024-04-15", "", time.UTC)
	if len(past) != 2 {
		t.Fatalf("past len = %d (window + unreadable drop)", len(past))
	}
	if past[0].String("started") != "2024-05-03T07:00:00Z" {
		t.Fatalf("past should be newest first, got %q", past[0].String("started"))
	}
}

func TestTimelineFromRaw(t *testing.T) {
	tl := TimelineFromRaw(Raw{
		"activities": []any{map[string]any{"id": float64(1)}},
		"events":     []any{map[string]any{"id": float64(2)}},
	})
	if len(tl.Activities) != 1 || len(tl.Events) != 1 {
		t.Fatalf("timeline = %+v", tl)
	}
	if tl.PlannedActivities == nil || len(tl.PlannedActivities) != 0 {
		t.Fatalf("missing arrays should come back empty, got %v", tl.PlannedActivities)
	}
}
