// Package severity defines the closed disease-severity taxonomy shared by the
// classifier, the expert annotation scale, and artifact naming.
package severity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Label is a classifier output class as it appears in the result log.
type Label string

const (
	LabelNull    Label = "Null"
	Label1       Label = "Severity 1"
	Label3       Label = "Severity 3"
	Label5       Label = "Severity 5"
	Label7       Label = "Severity 7"
	Label9       Label = "Severity 9"
	LabelUnknown Label = "Unknown"
)

// classLabels maps engine output indices to labels. Index 0 is the
// absence of disease signal.
var classLabels = [...]Label{LabelNull, Label1, Label3, Label5, Label7, Label9}

// NumClasses is the width of the engine's probability vector.
const NumClasses = len(classLabels)

// LabelForIndex returns the label for an engine output index. Indices outside
// the taxonomy resolve to LabelUnknown.
func LabelForIndex(idx int) Label {
	if idx < 0 || idx >= len(classLabels) {
		return LabelUnknown
	}
	return classLabels[idx]
}

// Labels returns the known labels in index order.
func Labels() []Label {
	out := make([]Label, len(classLabels))
	copy(out, classLabels[:])
	return out
}

// Known reports whether l belongs to the taxonomy.
func (l Label) Known() bool {
	for _, c := range classLabels {
		if c == l {
			return true
		}
	}
	return false
}

// Severity returns the severity token used in filenames and verdicts:
// "0" for Null, the trailing number for "Severity N", and the last word of
// the label otherwise ("Unknown").
func (l Label) Severity() string {
	if l == LabelNull {
		return "0"
	}
	fields := strings.Fields(string(l))
	if len(fields) == 0 {
		return string(LabelUnknown)
	}
	return fields[len(fields)-1]
}

func (l Label) String() string { return string(l) }

// ErrNotOnScale is returned for expert input outside the severity scale.
var ErrNotOnScale = errors.New("severity: value not on expert scale")

// Value is a ground-truth severity chosen by an expert.
type Value int

// Scale is the ordered set of values an expert may select. It is a
// domain-defined ordinal scale, not a contiguous range.
var Scale = []Value{0, 1, 3, 5, 7, 9}

// Valid reports whether v is on the expert scale.
func (v Value) Valid() bool {
	for _, s := range Scale {
		if s == v {
			return true
		}
	}
	return false
}

func (v Value) String() string { return strconv.Itoa(int(v)) }

// NewValue validates n against the expert scale.
func NewValue(n int) (Value, error) {
	v := Value(n)
	if !v.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrNotOnScale, n)
	}
	return v, nil
}

// ParseValue parses an expert severity token such as "5".
func ParseValue(s string) (Value, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotOnScale, s)
	}
	return NewValue(n)
}

// Verdict is the derived correctness of a trial against optional ground truth.
type Verdict string

const (
	Correct      Verdict = "Correct"
	Incorrect    Verdict = "Incorrect"
	NotAnnotated Verdict = "Not Annotated"
)

// Judge compares a prediction with the expert value. A nil truth yields
// NotAnnotated. Comparison uses the label's severity token, so Unknown
// predictions are always Incorrect against an annotation.
func Judge(predicted Label, truth *Value) Verdict {
	if truth == nil {
		return NotAnnotated
	}
	if predicted.Severity() == truth.String() {
		return Correct
	}
	return Incorrect
}
