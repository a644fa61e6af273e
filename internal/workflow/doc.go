// Package workflow drives one trial at a time through capture, review,
// classification, and logging.
//
// The Controller is a single state machine fed by discrete operator events.
// Operator prompts are suspend points: Handle returns an Effect naming the
// prompt to show, and the machine waits until the matching response event
// arrives. Capture and inference failures abandon the trial and return to
// Idle without consuming a trial number. Persistence failures halt the
// controller for the rest of the session.
package workflow
