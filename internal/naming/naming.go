// Package naming derives artifact filenames for finalized trials.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

// Staged returns the transient capture path for a trial inside dir.
func Staged(dir string, trialID int) string {
	return filepath.Join(dir, fmt.Sprintf("test_%d.jpg", trialID))
}

// Final returns the artifact path for a finalized trial. trueSeverity is empty
// when no ground truth was supplied. Uniqueness follows from trialID never
// repeating within an output directory.
func Final(outputDir string, trialID int, predictedSeverity, trueSeverity string) string {
	return filepath.Join(outputDir, FinalName(trialID, predictedSeverity, trueSeverity))
}

// FinalName is Final without the directory.
func FinalName(trialID int, predictedSeverity, trueSeverity string) string {
	if trueSeverity != "" {
		return fmt.Sprintf("test_%d_Pred_%s_True_%s.jpg", trialID, predictedSeverity, trueSeverity)
	}
	return fmt.Sprintf("test_%d_Pred_%s.jpg", trialID, predictedSeverity)
}

var finalPattern = regexp.MustCompile(`^test_(\d+)_Pred_([^_]+)(?:_True_([^_]+))?\.jpg$`)

// Parsed holds the fields recovered from a finalized artifact name.
type Parsed struct {
	TrialID           int
	PredictedSeverity string
	TrueSeverity      string
}

// Parse recovers the fields of a finalized artifact filename. Staged names
// and unrelated files report ok=false.
func Parse(name string) (Parsed, bool) {
	m := finalPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return Parsed{}, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return Parsed{}, false
	}
	return Parsed{TrialID: id, PredictedSeverity: m[2], TrueSeverity: m[3]}, true
}
