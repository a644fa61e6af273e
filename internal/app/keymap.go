package app

import (
	"github.com/leafcam/leafcam/internal/severity"
	"github.com/leafcam/leafcam/internal/workflow"
)

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeyCapture   = "c"
	KeySpace     = " "
	KeyAccept    = "a"
	KeyRetake    = "r"
	KeyYes       = "y"
	KeyNo        = "n"
)

// annotationKeys maps each key on the expert scale to its annotate event.
var annotationKeys = func() map[string]workflow.Event {
	keys := make(map[string]workflow.Event, len(severity.Scale))
	for _, v := range severity.Scale {
		keys[v.String()] = workflow.Annotate(v)
	}
	return keys
}()
