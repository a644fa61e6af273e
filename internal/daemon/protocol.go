// Package daemon provides the client and protocol types for communicating with
// leafcamd, the camera and inference sidecar, over a Unix socket using NDJSON.
package daemon

// Command names understood by leafcamd.
const (
	CmdStatus  = "status"
	CmdFrame   = "frame"
	CmdCapture = "capture"
	CmdInvoke  = "invoke"
)

// Command is sent from a client to the sidecar.
type Command struct {
	Cmd    string `json:"cmd"`
	Path   string `json:"path,omitempty"`
	Shape  []int  `json:"shape,omitempty"`
	Tensor string `json:"tensor,omitempty"`
}

// Response is returned by the sidecar after processing a command.
type Response struct {
	OK            bool      `json:"ok"`
	Error         string    `json:"error,omitempty"`
	Frame         string    `json:"frame,omitempty"`
	Probabilities []float32 `json:"probabilities,omitempty"`
	Camera        string    `json:"camera,omitempty"`
	Model         string    `json:"model,omitempty"`
	Labels        *int      `json:"labels,omitempty"`
}

// IntPtr returns a pointer to an int value. Convenience for building responses.
func IntPtr(n int) *int { return &n }
