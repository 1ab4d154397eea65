package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverbind/hatchwatch/dbopen"
	"github.com/riverbind/hatchwatch/internal/store"
	_ "modernc.org/sqlite"
)

type fakeOracle struct {
	reply string
	err   error
	calls int
}

func (f *fakeOracle) Complete(context.Context, string) (string, error) {
	f.calls++
	return f.reply, f.err
}

const goodReply = `{"recommendations": [
	{"name": "Zebra Midge", "fly_type": "nymph", "confidence": 90, "reasoning": "midges year round", "size_range": "18-22", "technique": "deep nymphing"},
	{"name": "Parachute Adams", "fly_type": "dries", "confidence": 150, "reasoning": "afternoon risers", "size_range": "16-18", "technique": "dead drift"}
], "conditions_summary": "Low clear water."}`

func testWater() *store.WaterBody {
	return &store.WaterBody{
		ID:        "w1",
		Name:      "South Platte River",
		WaterType: "river",
		State:     "CO",
		Species:   []string{"rainbow trout", "brown trout"},
	}
}

func testGenerator(t *testing.T, fo *fakeOracle, opts ...Option) *Generator {
	t.Helper()
	st := store.NewStore(dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema)))
	now := time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)
	if err := st.InsertWater(context.Background(), testWater(), now.UnixMilli()); err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return New(st, fo, nil, opts...)
}

func TestForWater_GeneratesAndNormalizes(t *testing.T) {
	// WHAT: Oracle output is normalized on the way in: confidence clamped
	// to 1-100, free-form fly types mapped onto the enum.
	fo := &fakeOracle{reply: goodReply}
	g := testGenerator(t, fo)

	set, err := g.ForWater(context.Background(), testWater(), nil, false)
	if err != nil {
		t.Fatalf("for water: %v", err)
	}
	if len(set.Recommendations) != 2 {
		t.Fatalf("recommendations: %v", set.Recommendations)
	}
	if set.Recommendations[1].Confidence != 100 {
		t.Errorf("confidence not clamped: %d", set.Recommendations[1].Confidence)
	}
	if set.Recommendations[1].FlyType != store.FlyDry {
		t.Errorf("fly type: %q", set.Recommendations[1].FlyType)
	}
	if set.ConditionsSummary != "Low clear water." {
		t.Errorf("summary: %q", set.ConditionsSummary)
	}
	if set.ExpiresAt-set.CreatedAt != DefaultTTL.Milliseconds() {
		t.Errorf("ttl window: %d", set.ExpiresAt-set.CreatedAt)
	}
}

func TestForWater_CacheHitSkipsOracle(t *testing.T) {
	// WHY: The cache exists to keep oracle spend flat across repeat
	// requests for the same water and day.
	fo := &fakeOracle{reply: goodReply}
	g := testGenerator(t, fo)

	if _, err := g.ForWater(context.Background(), testWater(), nil, false); err != nil {
		t.Fatal(err)
	}
	set, err := g.ForWater(context.Background(), testWater(), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if fo.calls != 1 {
		t.Errorf("oracle called %d times, want 1", fo.calls)
	}
	if len(set.Recommendations) != 2 {
		t.Errorf("cached set: %v", set.Recommendations)
	}
}

func TestForWater_ForceRefreshRegeneratesAndStores(t *testing.T) {
	// WHAT: force_refresh skips the read but still writes the fresh set
	// back, so the next unforced call hits cache.
	fo := &fakeOracle{reply: goodReply}
	g := testGenerator(t, fo)

	if _, err := g.ForWater(context.Background(), testWater(), nil, false); err != nil {
		t.Fatal(err)
	}
	if _, err := g.ForWater(context.Background(), testWater(), nil, true); err != nil {
		t.Fatal(err)
	}
	if fo.calls != 2 {
		t.Fatalf("oracle called %d times, want 2", fo.calls)
	}
	if _, err := g.ForWater(context.Background(), testWater(), nil, false); err != nil {
		t.Fatal(err)
	}
	if fo.calls != 2 {
		t.Errorf("oracle called %d times after refresh, want 2", fo.calls)
	}
}

func TestForWater_ExpiredEntryRegenerates(t *testing.T) {
	fo := &fakeOracle{reply: goodReply}
	g := testGenerator(t, fo, WithTTL(-time.Minute))

	if _, err := g.ForWater(context.Background(), testWater(), nil, false); err != nil {
		t.Fatal(err)
	}
	if _, err := g.ForWater(context.Background(), testWater(), nil, false); err != nil {
		t.Fatal(err)
	}
	if fo.calls != 2 {
		t.Errorf("oracle called %d times, want 2", fo.calls)
	}
}

func TestForWater_OracleErrors(t *testing.T) {
	// WHAT: Transport failures and garbage replies both error out without
	// poisoning the cache.
	for name, fo := range map[string]*fakeOracle{
		"transport": {err: errors.New("oracle down")},
		"garbage":   {reply: "definitely not json"},
	} {
		g := testGenerator(t, fo)
		if _, err := g.ForWater(context.Background(), testWater(), nil, false); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestForWater_ReportContextCarried(t *testing.T) {
	// WHAT: The aggregated report rides along on the cached set.
	fo := &fakeOracle{reply: goodReply}
	g := testGenerator(t, fo)
	rep := &store.FishingReport{
		WaterBodyID: "w1",
		ReportDate:  "2026-08-29",
		SourceName:  "2 fly shops",
		Flies:       []string{"Zebra Midge"},
	}
	set, err := g.ForWater(context.Background(), testWater(), rep, false)
	if err != nil {
		t.Fatal(err)
	}
	if set.Report == nil || set.Report.SourceName != "2 fly shops" {
		t.Errorf("report: %v", set.Report)
	}
}
