// Package db provides the SQLite trial index that mirrors each session's
// result log for querying.
package db

import "time"

// Session represents one operator session.
type Session struct {
	ID         string
	Mode       string
	StartedAt  time.Time
	LogPath    string
	FirstTrial int
}

// Trial represents a finalized trial.
type Trial struct {
	SessionID         string
	TrialID           int
	PredictedLabel    string
	PredictedSeverity string
	TrueSeverity      *string
	Confidence        float64
	ProcessingMillis  float64
	Verdict           string
	ImagePath         string
	CreatedAt         time.Time
}
