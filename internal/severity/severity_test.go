package severity

import (
	"errors"
	"testing"
)

func TestLabelForIndex(t *testing.T) {
	tests := []struct {
		idx  int
		want Label
	}{
		{0, LabelNull},
		{1, Label1},
		{2, Label3},
		{3, Label5},
		{4, Label7},
		{5, Label9},
		{6, LabelUnknown},
		{-1, LabelUnknown},
	}
	for _, tt := range tests {
		if got := LabelForIndex(tt.idx); got != tt.want {
			t.Errorf("LabelForIndex(%d) = %q, want %q", tt.idx, got, tt.want)
		}
	}
}

func TestLabelSeverity(t *testing.T) {
	tests := []struct {
		label Label
		want  string
	}{
		{LabelNull, "0"},
		{Label1, "1"},
		{Label5, "5"},
		{Label9, "9"},
		{LabelUnknown, "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.label.Severity(); got != tt.want {
			t.Errorf("%q.Severity() = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestKnown(t *testing.T) {
	if !Label7.Known() {
		t.Error("Severity 7 should be known")
	}
	if LabelUnknown.Known() {
		t.Error("Unknown should not be known")
	}
}

func TestNewValueAcceptsScaleOnly(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 7, 9} {
		if _, err := NewValue(n); err != nil {
			t.Errorf("NewValue(%d) error = %v", n, err)
		}
	}
	for _, n := range []int{-1, 2, 4, 6, 8, 10} {
		if _, err := NewValue(n); !errors.Is(err, ErrNotOnScale) {
			t.Errorf("NewValue(%d) error = %v, want ErrNotOnScale", n, err)
		}
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(" 7 ")
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}
	if v != 7 {
		t.Errorf("value = %d, want 7", v)
	}
	if _, err := ParseValue("x"); !errors.Is(err, ErrNotOnScale) {
		t.Errorf("ParseValue(x) error = %v, want ErrNotOnScale", err)
	}
	if _, err := ParseValue("2"); !errors.Is(err, ErrNotOnScale) {
		t.Errorf("ParseValue(2) error = %v, want ErrNotOnScale", err)
	}
}

func TestJudge(t *testing.T) {
	five := Value(5)
	three := Value(3)
	zero := Value(0)

	if got := Judge(Label5, &five); got != Correct {
		t.Errorf("pred 5 true 5 = %q, want Correct", got)
	}
	if got := Judge(Label5, &three); got != Incorrect {
		t.Errorf("pred 5 true 3 = %q, want Incorrect", got)
	}
	if got := Judge(Label5, nil); got != NotAnnotated {
		t.Errorf("pred 5 no truth = %q, want Not Annotated", got)
	}
	if got := Judge(LabelNull, &zero); got != Correct {
		t.Errorf("pred Null true 0 = %q, want Correct", got)
	}
	if got := Judge(LabelUnknown, &zero); got != Incorrect {
		t.Errorf("pred Unknown true 0 = %q, want Incorrect", got)
	}
}
