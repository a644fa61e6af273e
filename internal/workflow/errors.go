package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrCaptureFailed marks a capture whose image did not appear.
	ErrCaptureFailed = errors.New("capture failed")
	// ErrInferenceFailed marks an engine invocation that returned an error.
	ErrInferenceFailed = errors.New("inference failed")
	// ErrInvalidTransition marks an event the current state does not accept.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrStopped is returned for events handled after Close.
	ErrStopped = errors.New("controller stopped")
)

// PersistenceError reports a failed artifact write or log append. It ends the
// session.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsFatal reports whether err ends the session.
func IsFatal(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
