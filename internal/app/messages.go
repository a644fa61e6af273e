package app

import (
	"image"

	"github.com/leafcam/leafcam/internal/session"
	"github.com/leafcam/leafcam/internal/workflow"
)

// SessionStartedMsg is sent once the session and controller are ready.
type SessionStartedMsg struct {
	Mode       session.Mode
	Controller Controller
	TrialID    int
}

// SessionStartErrorMsg is sent when the session cannot be opened.
type SessionStartErrorMsg struct {
	Err error
}

// PreviewFrameMsg carries the latest camera frame.
type PreviewFrameMsg struct {
	Frame image.Image
}

// PreviewErrorMsg reports a failed preview fetch.
type PreviewErrorMsg struct {
	Err      error
	Failures int
}

// ResultMsg carries the controller's response to one operator event.
type ResultMsg struct {
	Event  workflow.Event
	Effect workflow.Effect
	Err    error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
