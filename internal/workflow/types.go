package workflow

import (
	"fmt"

	"github.com/leafcam/leafcam/internal/severity"
)

// State is a controller state.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateReviewing
	StateExpertAnnotating
	StateAcceptOrRetake
	StateClassifying
	StateLogging
	// StateHalted follows a persistence failure. No further events are
	// accepted.
	StateHalted
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateCapturing:        "capturing",
	StateReviewing:        "reviewing",
	StateExpertAnnotating: "expert_annotating",
	StateAcceptOrRetake:   "accept_or_retake",
	StateClassifying:      "classifying",
	StateLogging:          "logging",
	StateHalted:           "halted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// EventKind identifies an operator action.
type EventKind int

const (
	EventCapture EventKind = iota
	EventAccept
	EventRetake
	EventAnnotate
)

func (k EventKind) String() string {
	switch k {
	case EventCapture:
		return "capture"
	case EventAccept:
		return "accept"
	case EventRetake:
		return "retake"
	case EventAnnotate:
		return "annotate"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one operator action. Severity is read only for EventAnnotate.
type Event struct {
	Kind     EventKind
	Severity severity.Value
}

// Capture requests a new capture.
func Capture() Event { return Event{Kind: EventCapture} }

// Accept classifies the reviewed capture without ground truth.
func Accept() Event { return Event{Kind: EventAccept} }

// Retake abandons the reviewed capture.
func Retake() Event { return Event{Kind: EventRetake} }

// Annotate supplies the expert's severity and classifies the capture.
func Annotate(v severity.Value) Event { return Event{Kind: EventAnnotate, Severity: v} }

// Prompt names the operator prompt the controller is suspended on.
type Prompt int

const (
	PromptNone Prompt = iota
	// PromptReview asks the operator to Accept or Retake.
	PromptReview
	// PromptAnnotate asks the operator for a severity on the expert scale.
	PromptAnnotate
)

// Effect describes what the display should do after an event.
type Effect struct {
	State  State
	Prompt Prompt
	// TrialID is the trial in progress, or the next one when idle.
	TrialID int
	// StagedPath is the capture awaiting review.
	StagedPath string
	// Record is set when the event finalized a trial.
	Record *Record
}

// Record is a finalized trial.
type Record struct {
	TrialID           int
	Predicted         severity.Label
	TrueSeverity      *severity.Value
	ConfidencePercent float64
	ProcessingMillis  float64
	Verdict           severity.Verdict
	ImagePath         string
	ImageBytes        int64
}
