// Package report summarizes finalized trials: accuracy against expert
// annotations, a confusion matrix over the severity scale, and timing.
package report

import (
	"github.com/leafcam/leafcam/internal/db"
	"github.com/leafcam/leafcam/internal/resultlog"
	"github.com/leafcam/leafcam/internal/severity"
)

// UnknownClass is the confusion matrix column for predictions outside the
// taxonomy.
const UnknownClass = "Unknown"

// Trial is the subset of a finalized trial the report needs.
type Trial struct {
	TrialID           int
	Predicted         severity.Label
	TrueSeverity      string // empty when not annotated
	ConfidencePercent float64
	ProcessingMillis  float64
	Verdict           severity.Verdict
}

// FromRows adapts result log rows.
func FromRows(rows []resultlog.Row) []Trial {
	out := make([]Trial, 0, len(rows))
	for _, r := range rows {
		out = append(out, Trial{
			TrialID:           r.TrialID,
			Predicted:         r.Predicted,
			TrueSeverity:      r.TrueSeverity,
			ConfidencePercent: r.ConfidencePercent,
			ProcessingMillis:  r.ProcessingMillis,
			Verdict:           r.Verdict,
		})
	}
	return out
}

// FromIndex adapts indexed trials.
func FromIndex(trials []db.Trial) []Trial {
	out := make([]Trial, 0, len(trials))
	for _, t := range trials {
		truth := ""
		if t.TrueSeverity != nil {
			truth = *t.TrueSeverity
		}
		out = append(out, Trial{
			TrialID:           t.TrialID,
			Predicted:         severity.Label(t.PredictedLabel),
			TrueSeverity:      truth,
			ConfidencePercent: t.Confidence,
			ProcessingMillis:  t.ProcessingMillis,
			Verdict:           severity.Verdict(t.Verdict),
		})
	}
	return out
}

// Summary aggregates a set of trials.
type Summary struct {
	Total     int
	Annotated int
	Correct   int
	Incorrect int
	// Accuracy is Correct/Annotated, or 0 with no annotations.
	Accuracy       float64
	MeanConfidence float64
	MeanMillis     float64
	MaxMillis      float64
	// Confusion counts trials by true severity then predicted class.
	Confusion map[string]map[string]int
	// Recall is the fraction of each true severity predicted correctly.
	Recall map[string]float64
	// Predicted counts every trial by predicted class.
	Predicted map[string]int
}

// Classes returns the confusion matrix column order.
func Classes() []string {
	out := make([]string, 0, len(severity.Scale)+1)
	for _, v := range severity.Scale {
		out = append(out, v.String())
	}
	return append(out, UnknownClass)
}

// Summarize computes a Summary.
func Summarize(trials []Trial) Summary {
	s := Summary{
		Confusion: map[string]map[string]int{},
		Recall:    map[string]float64{},
		Predicted: map[string]int{},
	}
	var confSum, msSum float64
	for _, t := range trials {
		s.Total++
		confSum += t.ConfidencePercent
		msSum += t.ProcessingMillis
		if t.ProcessingMillis > s.MaxMillis {
			s.MaxMillis = t.ProcessingMillis
		}

		pred := t.Predicted.Severity()
		if !t.Predicted.Known() {
			pred = UnknownClass
		}
		s.Predicted[pred]++

		if t.TrueSeverity == "" {
			continue
		}
		s.Annotated++
		switch t.Verdict {
		case severity.Correct:
			s.Correct++
		case severity.Incorrect:
			s.Incorrect++
		}
		row := s.Confusion[t.TrueSeverity]
		if row == nil {
			row = map[string]int{}
			s.Confusion[t.TrueSeverity] = row
		}
		row[pred]++
	}
	if s.Total > 0 {
		s.MeanConfidence = confSum / float64(s.Total)
		s.MeanMillis = msSum / float64(s.Total)
	}
	if s.Annotated > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Annotated)
	}
	for truth, row := range s.Confusion {
		total := 0
		for _, n := range row {
			total += n
		}
		if total > 0 {
			s.Recall[truth] = float64(row[truth]) / float64(total)
		}
	}
	return s
}
