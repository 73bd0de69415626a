package analysis

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/clothsim/clothheatmap/src/summary"
)

// loadCSV writes lines to a temp summary.csv and loads it.
func loadCSV(t *testing.T, lines ...string) *summary.Table {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "summary-*.csv")
	if err != nil {
		t.Fatalf("tmp file: %v", err)
	}
	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()
	tab, err := summary.Load(tmp.Name(), summary.LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return tab
}

func TestAggregate_MeanPerPair(t *testing.T) {
	tab := loadCSV(t,
		"simulation_id,success_rate",
		"run_center=0.1_alpha=0.5,0.8",
		"run_center=0.1_alpha=0.5,0.6",
	)
	agg, err := Aggregate(tab, MissingKeysGroup)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(agg.Rows) != 1 {
		t.Fatalf("expected 1 group got %d", len(agg.Rows))
	}
	r := agg.Rows[0]
	if r.Key != (GroupKey{Alpha: summary.Some(0.5), Center: summary.Some(0.1)}) {
		t.Fatalf("unexpected key %s", r.Key)
	}
	if math.Abs(r.Values[0]-0.7) > 1e-12 {
		t.Fatalf("success_rate mean=%v want 0.7", r.Values[0])
	}
	if r.Count != 2 {
		t.Fatalf("count=%d want 2", r.Count)
	}
}

func TestAggregate_ConstantColumnExact(t *testing.T) {
	const v = 0.1 + 0.2 // not representable exactly; the mean must still return it bit for bit
	tab := &summary.Table{Columns: []string{"cul/average"}}
	for i := 0; i < 7; i++ {
		tab.Records = append(tab.Records, summary.Record{Alpha: summary.Some(1), Center: summary.Some(2), Values: []float64{v}})
	}
	agg, err := Aggregate(tab, MissingKeysGroup)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if got := agg.Rows[0].Values[0]; got != v {
		t.Fatalf("constant mean=%v want %v", got, v)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	tab := loadCSV(t,
		"simulation_id,success_rate,retry/average",
		"a_center=0.1_alpha=0.5,0.8,1",
		"a_center=0.1_alpha=0.5,0.6,3",
		"a_center=0.2_alpha=0.5,0.9,2",
		"a_center=0.2_alpha=0.7,0.4,",
		"a_center=0.2_nothing,0.5,4",
	)
	first, err := Aggregate(tab, MissingKeysGroup)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	second, err := Aggregate(first.Table(), MissingKeysGroup)
	if err != nil {
		t.Fatalf("re-aggregate: %v", err)
	}
	if len(first.Rows) != len(second.Rows) {
		t.Fatalf("row count changed %d -> %d", len(first.Rows), len(second.Rows))
	}
	for i := range first.Rows {
		a, b := first.Rows[i], second.Rows[i]
		if a.Key != b.Key {
			t.Fatalf("row %d key %s -> %s", i, a.Key, b.Key)
		}
		for c := range a.Values {
			if !sameFloat(a.Values[c], b.Values[c]) {
				t.Fatalf("row %d col %d value %v -> %v", i, c, a.Values[c], b.Values[c])
			}
		}
	}
}

func TestAggregate_MissingAlphaGrouped(t *testing.T) {
	tab := loadCSV(t,
		"simulation_id,success_rate",
		"run_center=0.1_alpha=0.5,0.8",
		"run_center=0.1_noparam,0.2",
		"run_center=0.1_noparam,0.4",
	)
	agg, err := Aggregate(tab, MissingKeysGroup)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(agg.Rows) != 2 {
		t.Fatalf("expected 2 groups got %d", len(agg.Rows))
	}
	total := 0
	for _, r := range agg.Rows {
		total += r.Count
	}
	if total != 3 {
		t.Fatalf("every row must land in exactly one group, counted %d", total)
	}
	last := agg.Rows[1]
	if last.Key.Alpha.Valid || last.Key.Center != summary.Some(0.1) {
		t.Fatalf("sentinel group should sort last, got %s", last.Key)
	}
	if math.Abs(last.Values[0]-0.3) > 1e-12 {
		t.Fatalf("sentinel mean=%v want 0.3", last.Values[0])
	}
}

func TestAggregate_MissingExcluded(t *testing.T) {
	tab := loadCSV(t,
		"simulation_id,success_rate",
		"run_center=0.1_alpha=0.5,0.8",
		"run_noparam,0.2",
	)
	agg, err := Aggregate(tab, MissingKeysExclude)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(agg.Rows) != 1 || !agg.Rows[0].Key.Alpha.Valid {
		t.Fatalf("exclude policy kept a missing key: %+v", agg.Rows)
	}

	only := loadCSV(t, "simulation_id,success_rate", "run_noparam,0.2")
	if _, err := Aggregate(only, MissingKeysExclude); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestAggregate_AllNaNGroup(t *testing.T) {
	tab := loadCSV(t,
		"simulation_id,success_rate,time_fail/average",
		"run_center=0.1_alpha=0.5,0.8,",
		"run_center=0.1_alpha=0.5,0.6,",
	)
	agg, err := Aggregate(tab, MissingKeysGroup)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if !math.IsNaN(agg.Rows[0].Values[1]) {
		t.Fatalf("all-empty column should average to NaN, got %v", agg.Rows[0].Values[1])
	}
}

func TestParseMissingKeyPolicy(t *testing.T) {
	for in, want := range map[string]MissingKeyPolicy{"": MissingKeysGroup, "group": MissingKeysGroup, "exclude": MissingKeysExclude} {
		got, err := ParseMissingKeyPolicy(in)
		if err != nil || got != want {
			t.Fatalf("%q => %v, %v", in, got, err)
		}
	}
	if _, err := ParseMissingKeyPolicy("drop"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

func TestAggregate_InfiniteSamples(t *testing.T) {
	inf := math.Inf(1)
	cases := []struct {
		name string
		vals []float64
		want float64
	}{
		{"inf first", []float64{inf, 1}, inf},
		{"inf last", []float64{1, inf}, inf},
		{"neg inf first", []float64{-inf, 2, 3}, -inf},
	}
	for _, c := range cases {
		tab := &summary.Table{Columns: []string{"time_fail/average"}}
		for _, v := range c.vals {
			tab.Records = append(tab.Records, summary.Record{Alpha: summary.Some(1), Center: summary.Some(2), Values: []float64{v}})
		}
		agg, err := Aggregate(tab, MissingKeysGroup)
		if err != nil {
			t.Fatalf("%s: aggregate: %v", c.name, err)
		}
		if got := agg.Rows[0].Values[0]; got != c.want {
			t.Fatalf("%s: mean=%v want %v", c.name, got, c.want)
		}
	}
	mixed := &summary.Table{Columns: []string{"x"}, Records: []summary.Record{
		{Alpha: summary.Some(1), Center: summary.Some(1), Values: []float64{inf}},
		{Alpha: summary.Some(1), Center: summary.Some(1), Values: []float64{-inf}},
	}}
	agg, err := Aggregate(mixed, MissingKeysGroup)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if !math.IsNaN(agg.Rows[0].Values[0]) {
		t.Fatalf("+Inf and -Inf should average to NaN, got %v", agg.Rows[0].Values[0])
	}
}
