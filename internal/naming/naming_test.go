package naming

import (
	"path/filepath"
	"testing"
)

func TestFinalName(t *testing.T) {
	if got := FinalName(7, "5", "5"); got != "test_7_Pred_5_True_5.jpg" {
		t.Errorf("with truth = %q", got)
	}
	if got := FinalName(7, "5", ""); got != "test_7_Pred_5.jpg" {
		t.Errorf("without truth = %q", got)
	}
	if got := FinalName(12, "Unknown", "0"); got != "test_12_Pred_Unknown_True_0.jpg" {
		t.Errorf("unknown = %q", got)
	}
}

func TestFinalJoinsOutputDir(t *testing.T) {
	got := Final("/data/out", 3, "0", "")
	want := filepath.Join("/data/out", "test_3_Pred_0.jpg")
	if got != want {
		t.Errorf("Final = %q, want %q", got, want)
	}
}

func TestFinalIsDeterministic(t *testing.T) {
	a := Final("/out", 9, "7", "9")
	b := Final("/out", 9, "7", "9")
	if a != b {
		t.Errorf("Final not deterministic: %q vs %q", a, b)
	}
}

func TestStaged(t *testing.T) {
	got := Staged("/expert", 4)
	if got != filepath.Join("/expert", "test_4.jpg") {
		t.Errorf("Staged = %q", got)
	}
}

func TestParse(t *testing.T) {
	p, ok := Parse("test_7_Pred_5_True_3.jpg")
	if !ok {
		t.Fatal("expected parse ok")
	}
	if p.TrialID != 7 || p.PredictedSeverity != "5" || p.TrueSeverity != "3" {
		t.Errorf("parsed = %+v", p)
	}

	p, ok = Parse("/some/dir/test_12_Pred_Unknown.jpg")
	if !ok {
		t.Fatal("expected parse ok for path")
	}
	if p.TrialID != 12 || p.PredictedSeverity != "Unknown" || p.TrueSeverity != "" {
		t.Errorf("parsed = %+v", p)
	}

	for _, name := range []string{"test_3.jpg", "classification_results_20240101_000000.csv", "test_x_Pred_5.jpg"} {
		if _, ok := Parse(name); ok {
			t.Errorf("Parse(%q) ok = true, want false", name)
		}
	}
}

func TestParseRoundTripsFinalName(t *testing.T) {
	name := FinalName(41, "9", "7")
	p, ok := Parse(name)
	if !ok {
		t.Fatalf("Parse(%q) failed", name)
	}
	if FinalName(p.TrialID, p.PredictedSeverity, p.TrueSeverity) != name {
		t.Errorf("round trip mismatch for %q: %+v", name, p)
	}
}
