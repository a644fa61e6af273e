package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/leafcam/leafcam/internal/classify"
	"github.com/leafcam/leafcam/internal/db"
	"github.com/leafcam/leafcam/internal/logging"
	"github.com/leafcam/leafcam/internal/naming"
	"github.com/leafcam/leafcam/internal/resultlog"
	"github.com/leafcam/leafcam/internal/session"
	"github.com/leafcam/leafcam/internal/severity"
)

// DefaultSettleDelay is the wait between a capture request and checking for
// the written image.
const DefaultSettleDelay = time.Second

// Camera takes one still per call.
type Camera interface {
	CaptureToFile(ctx context.Context, path string) error
}

// Classifier labels a captured image.
type Classifier interface {
	ClassifyFile(ctx context.Context, path string) (classify.Result, error)
}

// Controller serializes trials for one session. It is safe to call from
// multiple goroutines; events are processed one at a time.
type Controller struct {
	sess       *session.Session
	camera     Camera
	classifier Classifier
	artifact   ArtifactOptions
	settle     time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	trialID int
	staged  string
	last    *Record
	fatal   error
	stopped bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSettleDelay sets the post-capture wait.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.settle = d
		}
	}
}

// WithArtifactOptions sets how finalized images are written.
func WithArtifactOptions(opts ArtifactOptions) Option {
	return func(c *Controller) { c.artifact = opts }
}

// WithSleep replaces the settle wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithClock sets the time source for index timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a controller starting at the session's first trial number.
func New(sess *session.Session, camera Camera, classifier Classifier, opts ...Option) *Controller {
	c := &Controller{
		sess:       sess,
		camera:     camera,
		classifier: classifier,
		artifact:   DefaultArtifactOptions(),
		settle:     DefaultSettleDelay,
		sleep:      sleepContext,
		now:        time.Now,
		logger:     sess.Logger(),
		state:      StateIdle,
		trialID:    sess.FirstTrialID(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TrialID returns the number the next finalized trial will receive.
func (c *Controller) TrialID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trialID
}

// Last returns the most recently finalized trial, or nil.
func (c *Controller) Last() *Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Err returns the persistence failure that halted the controller, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatal
}

// Handle applies one operator event. Capture and inference failures return
// the controller to Idle. A persistence failure halts it and is returned for
// every later event.
func (c *Controller) Handle(ctx context.Context, ev Event) (Effect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return c.effect(PromptNone, nil), ErrStopped
	}
	if c.fatal != nil {
		return c.effect(PromptNone, nil), c.fatal
	}

	switch c.state {
	case StateIdle:
		if ev.Kind == EventCapture {
			return c.capture(ctx)
		}
	case StateAcceptOrRetake:
		switch ev.Kind {
		case EventAccept:
			return c.classify(ctx, nil)
		case EventRetake:
			return c.retake(), nil
		}
	case StateExpertAnnotating:
		if ev.Kind == EventAnnotate {
			if !ev.Severity.Valid() {
				return c.effect(PromptAnnotate, nil),
					fmt.Errorf("annotate %d: %w", int(ev.Severity), severity.ErrNotOnScale)
			}
			truth := ev.Severity
			return c.classify(ctx, &truth)
		}
	}
	return c.effect(c.pendingPrompt(), nil),
		fmt.Errorf("%w: %s while %s", ErrInvalidTransition, ev.Kind, c.state)
}

// Close waits for the event in progress to finish and rejects every later
// event with ErrStopped. Call it before closing the session.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		c.logger.Info("controller stopped", logging.FieldTrialID, c.trialID, logging.FieldState, c.state.String())
	}
}

func (c *Controller) capture(ctx context.Context) (Effect, error) {
	c.state = StateCapturing
	path := naming.Staged(c.sess.StagingDir(), c.trialID)
	logger := c.logger.With(logging.FieldTrialID, c.trialID)
	logger.Debug("capture requested", logging.FieldPath, path)

	err := c.camera.CaptureToFile(ctx, path)
	if err == nil {
		err = c.sleep(ctx, c.settle)
	}
	if err == nil {
		if _, statErr := os.Stat(path); statErr != nil {
			err = fmt.Errorf("image not written: %w", statErr)
		}
	}
	if err != nil {
		c.state = StateIdle
		logger.Warn("capture failed", logging.Error(err))
		return c.effect(PromptNone, nil), fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}

	c.staged = path
	// Review branches on the session mode.
	c.state = StateReviewing
	if c.sess.Expert() {
		c.state = StateExpertAnnotating
	} else {
		c.state = StateAcceptOrRetake
	}
	logger.Info("capture ready for review", logging.FieldPath, path, logging.FieldState, c.state.String())
	return c.effect(c.pendingPrompt(), nil), nil
}

func (c *Controller) retake() Effect {
	c.logger.Info("capture discarded", logging.FieldTrialID, c.trialID, logging.FieldPath, c.staged)
	c.staged = ""
	c.state = StateIdle
	return c.effect(PromptNone, nil)
}

func (c *Controller) classify(ctx context.Context, truth *severity.Value) (Effect, error) {
	c.state = StateClassifying
	logger := c.logger.With(logging.FieldTrialID, c.trialID)

	res, err := c.classifier.ClassifyFile(ctx, c.staged)
	if err != nil {
		c.state = StateIdle
		c.staged = ""
		logger.Warn("inference failed", logging.Error(err))
		return c.effect(PromptNone, nil), fmt.Errorf("%w: %w", ErrInferenceFailed, err)
	}

	c.state = StateLogging
	rec, err := c.persist(logger, res, truth)
	if err != nil {
		c.fatal = err
		c.state = StateHalted
		logger.Error("session halted", logging.Error(err))
		return c.effect(PromptNone, nil), err
	}

	c.last = rec
	c.trialID++
	c.staged = ""
	c.state = StateIdle
	return c.effect(PromptNone, rec), nil
}

// persist writes the artifact then appends the log row. If the append fails
// the artifact is removed so no image exists without a row.
func (c *Controller) persist(logger *slog.Logger, res classify.Result, truth *severity.Value) (*Record, error) {
	trueToken := ""
	if truth != nil {
		trueToken = truth.String()
	}
	rec := &Record{
		TrialID:           c.trialID,
		Predicted:         res.Label,
		TrueSeverity:      truth,
		ConfidencePercent: res.ConfidencePercent,
		ProcessingMillis:  res.ProcessingMillis(),
		Verdict:           severity.Judge(res.Label, truth),
		ImagePath:         naming.Final(c.sess.OutputDir(), c.trialID, res.Label.Severity(), trueToken),
	}

	if res.Normalized == nil {
		return nil, &PersistenceError{Op: "write image", Path: rec.ImagePath, Err: errors.New("no image to persist")}
	}
	size, err := WriteArtifact(rec.ImagePath, res.Normalized, c.artifact)
	if err != nil {
		return nil, &PersistenceError{Op: "write image", Path: rec.ImagePath, Err: err}
	}
	rec.ImageBytes = size

	row := resultlog.Row{
		TrialID:           rec.TrialID,
		Predicted:         rec.Predicted,
		TrueSeverity:      trueToken,
		ConfidencePercent: rec.ConfidencePercent,
		ProcessingMillis:  rec.ProcessingMillis,
		Verdict:           rec.Verdict,
	}
	if err := c.sess.Log().Append(row); err != nil {
		if rmErr := os.Remove(rec.ImagePath); rmErr != nil {
			logger.Error("remove orphaned image", logging.FieldPath, rec.ImagePath, logging.Error(rmErr))
		}
		return nil, &PersistenceError{Op: "append log", Path: c.sess.Log().Path(), Err: err}
	}

	c.index(logger, rec, trueToken)

	logger.Info("trial finalized",
		"predicted", string(rec.Predicted),
		"true_severity", trueToken,
		"confidence", rec.ConfidencePercent,
		"processing_ms", rec.ProcessingMillis,
		"verdict", string(rec.Verdict),
		logging.FieldPath, rec.ImagePath,
	)
	return rec, nil
}

// index mirrors a finalized trial into the sqlite index. The result log is
// authoritative, so failures here only warn.
func (c *Controller) index(logger *slog.Logger, rec *Record, trueToken string) {
	store := c.sess.Index()
	if store == nil {
		return
	}
	var truth *string
	if trueToken != "" {
		truth = &trueToken
	}
	err := store.InsertTrial(db.Trial{
		SessionID:         c.sess.ID(),
		TrialID:           rec.TrialID,
		PredictedLabel:    string(rec.Predicted),
		PredictedSeverity: rec.Predicted.Severity(),
		TrueSeverity:      truth,
		Confidence:        rec.ConfidencePercent,
		ProcessingMillis:  rec.ProcessingMillis,
		Verdict:           string(rec.Verdict),
		ImagePath:         rec.ImagePath,
		CreatedAt:         c.now(),
	})
	if err != nil {
		logger.Warn("index trial", logging.Error(err))
	}
}

func (c *Controller) pendingPrompt() Prompt {
	switch c.state {
	case StateAcceptOrRetake:
		return PromptReview
	case StateExpertAnnotating:
		return PromptAnnotate
	}
	return PromptNone
}

func (c *Controller) effect(prompt Prompt, rec *Record) Effect {
	return Effect{
		State:      c.state,
		Prompt:     prompt,
		TrialID:    c.trialID,
		StagedPath: c.staged,
		Record:     rec,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
