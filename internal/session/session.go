// Package session owns the per-run context shared by the trial controller:
// mode, directories, the result log, the trial index, and the first trial
// number. Everything is fixed at Open and read-only afterwards.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/leafcam/leafcam/internal/db"
	"github.com/leafcam/leafcam/internal/logging"
	"github.com/leafcam/leafcam/internal/naming"
	"github.com/leafcam/leafcam/internal/resultlog"
)

// Mode selects whether the operator annotates each capture.
type Mode string

const (
	ModeAutonomous Mode = "autonomous"
	ModeExpert     Mode = "expert"
)

// ParseMode accepts "autonomous" or "expert".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAutonomous, ModeExpert:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want autonomous or expert)", s)
}

// LockFileName is the advisory lock held in the output directory.
const LockFileName = ".leafcam.lock"

// ErrLocked is returned when another session holds the output directory.
var ErrLocked = errors.New("another leafcam session is using the output directory")

// newID assigns session ids.
var newID = uuid.NewString

// Options describes a session to open.
type Options struct {
	Mode      Mode
	OutputDir string
	ExpertDir string
	// IndexPath overrides the trial index location. Empty means
	// <OutputDir>/trials.sqlite.
	IndexPath string
	Now       func() time.Time
	Logger    *slog.Logger
}

// Session is one operator run.
type Session struct {
	id           string
	mode         Mode
	outputDir    string
	expertDir    string
	startedAt    time.Time
	firstTrialID int
	manifestPath string

	log    *resultlog.Log
	index  *db.Store
	lock   *flock.Flock
	logger *slog.Logger
}

// Open prepares directories, takes the output directory lock, picks the first
// trial number, and creates the session's result log. The trial index is
// optional; if it cannot be opened the session continues without it.
func Open(opts Options) (*Session, error) {
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	if opts.OutputDir == "" || opts.ExpertDir == "" {
		return nil, errors.New("session: output and expert directories are required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for _, dir := range []string{opts.OutputDir, opts.ExpertDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	lock := flock.New(filepath.Join(opts.OutputDir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	s := &Session{
		id:        newID(),
		mode:      opts.Mode,
		outputDir: opts.OutputDir,
		expertDir: opts.ExpertDir,
		startedAt: now(),
		lock:      lock,
	}
	s.logger = logger.With(logging.FieldSessionID, s.id, logging.FieldMode, string(s.mode))

	indexPath := opts.IndexPath
	if indexPath == "" {
		indexPath = db.DefaultPath(opts.OutputDir)
	}
	if store, err := db.Open(indexPath); err != nil {
		s.logger.Warn("trial index unavailable", logging.FieldPath, indexPath, logging.Error(err))
	} else {
		s.index = store
	}

	last, err := LastTrialID(opts.OutputDir)
	if err != nil {
		s.Close()
		return nil, err
	}
	if s.index != nil {
		if maxID, err := s.index.MaxTrialID(); err != nil {
			s.logger.Warn("read max trial from index", logging.Error(err))
		} else if maxID > last {
			last = maxID
		}
	}
	s.firstTrialID = last + 1

	s.log, err = resultlog.Create(opts.OutputDir, s.startedAt)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.manifestPath, err = writeManifest(s)
	if err != nil {
		logPath := s.log.Path()
		s.Close()
		// The log holds only its header; nothing refers to it yet.
		if rmErr := os.Remove(logPath); rmErr != nil {
			s.logger.Warn("remove unused result log", logging.FieldPath, logPath, logging.Error(rmErr))
		}
		return nil, err
	}

	if s.index != nil {
		err := s.index.InsertSession(db.Session{
			ID:         s.id,
			Mode:       string(s.mode),
			StartedAt:  s.startedAt,
			LogPath:    s.log.Path(),
			FirstTrial: s.firstTrialID,
		})
		if err != nil {
			s.logger.Warn("index session", logging.Error(err))
		}
	}

	s.logger.Info("session opened",
		"first_trial", s.firstTrialID,
		"result_log", s.log.Path(),
		"manifest", s.manifestPath,
	)
	return s, nil
}

// LastTrialID returns the highest trial number among finalized artifacts in
// dir, or 0 if there are none.
func LastTrialID(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", dir, err)
	}
	last := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if p, ok := naming.Parse(e.Name()); ok && p.TrialID > last {
			last = p.TrialID
		}
	}
	return last, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Mode returns the session mode.
func (s *Session) Mode() Mode { return s.mode }

// Expert reports whether captures are routed through annotation.
func (s *Session) Expert() bool { return s.mode == ModeExpert }

// OutputDir is where finalized artifacts and the result log live.
func (s *Session) OutputDir() string { return s.outputDir }

// ExpertDir is the staging directory for expert captures.
func (s *Session) ExpertDir() string { return s.expertDir }

// StagingDir is where raw captures are written before classification.
func (s *Session) StagingDir() string {
	if s.Expert() {
		return s.expertDir
	}
	return s.outputDir
}

// StartedAt returns the session start time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// FirstTrialID is the number assigned to the first trial of this session.
func (s *Session) FirstTrialID() int { return s.firstTrialID }

// Log returns the session's result log.
func (s *Session) Log() *resultlog.Log { return s.log }

// Index returns the trial index, or nil when it could not be opened.
func (s *Session) Index() *db.Store { return s.index }

// ManifestPath returns the written session manifest.
func (s *Session) ManifestPath() string { return s.manifestPath }

// Logger returns a logger carrying the session attributes.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Close closes the result log and index and releases the directory lock.
func (s *Session) Close() error {
	var errs []error
	if s.log != nil {
		if err := s.log.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close result log: %w", err))
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close index: %w", err))
		}
		s.index = nil
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release lock: %w", err))
		}
		s.lock = nil
	}
	return errors.Join(errs...)
}
