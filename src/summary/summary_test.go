package summary

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeSummary writes a CSV with the given header and rows into a temp dir and returns its path.
func writeSummary(t *testing.T, header string, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "summary.csv")
	body := header + "\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	return path
}

func TestExtractParams_RoundTrip(t *testing.T) {
	cases := []struct{ center, alpha float64 }{
		{0.1, 0.5},
		{0, 0},
		{12.25, 3},
		{0.005, 0.999},
		{100, 1e-3},
	}
	for _, c := range cases {
		id := fmt.Sprintf("cloth_center=%s_alpha=%s_seed=7",
			formatPlain(c.center), formatPlain(c.alpha))
		alpha, center, err := ExtractParams(id)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		if !alpha.Valid || alpha.Value != c.alpha {
			t.Fatalf("%s: alpha=%v want %v", id, alpha, c.alpha)
		}
		if !center.Valid || center.Value != c.center {
			t.Fatalf("%s: center=%v want %v", id, center, c.center)
		}
	}
}

// formatPlain prints a float without exponent so the [0-9.]+ capture sees all digits.
func formatPlain(v float64) string { return fmt.Sprintf("%.6f", v) }

func TestExtractParams_Missing(t *testing.T) {
	alpha, center, err := ExtractParams("run_center=0.3_beta=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alpha.Valid {
		t.Fatalf("alpha should be missing, got %v", alpha)
	}
	if !math.IsNaN(alpha.Float()) {
		t.Fatalf("missing alpha should read as NaN, got %v", alpha.Float())
	}
	if !center.Valid || center.Value != 0.3 {
		t.Fatalf("center=%v want 0.3", center)
	}
}

func TestExtractParams_Unparsable(t *testing.T) {
	_, _, err := ExtractParams("run_center=0.1_alpha=..")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestParamOrdering(t *testing.T) {
	if !Some(0.1).Less(Some(0.2)) || Some(0.2).Less(Some(0.1)) {
		t.Fatalf("present values must order ascending")
	}
	if !Some(99).Less(Param{}) || (Param{}).Less(Some(0)) {
		t.Fatalf("missing must sort after present values")
	}
	if (Param{}).Less(Param{}) {
		t.Fatalf("missing is not less than missing")
	}
	if (Param{}) != (Param{}) {
		t.Fatalf("missing values must compare equal")
	}
}

func TestLoad_TypedColumnsAndDerivation(t *testing.T) {
	path := writeSummary(t,
		"simulation_id,success_rate,retry/average,note",
		"run_center=0.1_alpha=0.5,0.8,1.5,ok",
		"run_center=0.2_alpha=0.5,0.6,,ok",
		"run_nothing,0.4,2,bad",
	)
	tab, err := Load(path, LoadOptions{Required: []string{"success_rate"}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := strings.Join(tab.Columns, "|"); got != "success_rate|retry/average" {
		t.Fatalf("columns=%q", got)
	}
	if len(tab.Records) != 3 {
		t.Fatalf("records=%d want 3", len(tab.Records))
	}
	r0 := tab.Records[0]
	if r0.Alpha != Some(0.5) || r0.Center != Some(0.1) {
		t.Fatalf("row0 params alpha=%v center=%v", r0.Alpha, r0.Center)
	}
	if !math.IsNaN(tab.Records[1].Values[1]) {
		t.Fatalf("empty cell should be NaN, got %v", tab.Records[1].Values[1])
	}
	r2 := tab.Records[2]
	if r2.Alpha.Valid || r2.Center.Valid {
		t.Fatalf("row2 should have missing params: %+v", r2)
	}
	if tab.ColumnIndex("retry/average") != 1 || tab.ColumnIndex("note") != -1 {
		t.Fatalf("unexpected column index mapping")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.csv"), LoadOptions{}); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}

	ragged := writeSummary(t, "simulation_id,success_rate", "run_center=0.1_alpha=0.5,0.8,extra")
	if _, err := Load(ragged, LoadOptions{}); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for ragged row, got %v", err)
	}

	noID := writeSummary(t, "id,success_rate", "x,0.8")
	if _, err := Load(noID, LoadOptions{}); !errors.Is(err, ErrColumnMissing) {
		t.Fatalf("expected ErrColumnMissing for simulation_id, got %v", err)
	}

	noMetric := writeSummary(t, "simulation_id,success_rate", "run_center=0.1_alpha=0.5,0.8")
	if _, err := Load(noMetric, LoadOptions{Required: []string{"cul/average"}}); !errors.Is(err, ErrColumnMissing) {
		t.Fatalf("expected ErrColumnMissing for cul/average, got %v", err)
	}

	textMetric := writeSummary(t, "simulation_id,success_rate", "run_center=0.1_alpha=0.5,high")
	if _, err := Load(textMetric, LoadOptions{Required: []string{"success_rate"}}); !errors.Is(err, ErrColumnMissing) {
		t.Fatalf("expected ErrColumnMissing for non-numeric metric, got %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(empty, LoadOptions{}); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for empty file, got %v", err)
	}
}

func TestRead_BOMAndDelimiter(t *testing.T) {
	in := "\ufeffsimulation_id;success_rate\nrun_center=1_alpha=2;0.25\n"
	tab, err := Read(strings.NewReader(in), LoadOptions{Comma: ';', Required: []string{"success_rate"}})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(tab.Records) != 1 || tab.Records[0].Values[0] != 0.25 {
		t.Fatalf("unexpected table: %+v", tab)
	}
	if tab.Records[0].Alpha != Some(2) || tab.Records[0].Center != Some(1) {
		t.Fatalf("params: %+v", tab.Records[0])
	}
}
