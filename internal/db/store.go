package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the index database name inside the output directory.
const FileName = "trials.sqlite"

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		startedAt REAL NOT NULL,
		logPath TEXT NOT NULL,
		firstTrial INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trials (
		sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		trialId INTEGER NOT NULL,
		predictedLabel TEXT NOT NULL,
		predictedSeverity TEXT NOT NULL,
		trueSeverity TEXT,
		confidence REAL NOT NULL,
		processingMs REAL NOT NULL,
		verdict TEXT NOT NULL,
		imagePath TEXT NOT NULL,
		createdAt REAL NOT NULL,
		UNIQUE(sessionId, trialId)
	);
`

// Store provides access to the trial index.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the index path for an output directory.
func DefaultPath(outputDir string) string {
	return filepath.Join(outputDir, FileName)
}

// Open opens (creating if needed) the index with WAL and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	return open(dsn)
}

// OpenReadOnly opens an existing index without write access.
func OpenReadOnly(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSession records a new session.
func (s *Store) InsertSession(sess Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, mode, startedAt, logPath, firstTrial)
		VALUES (?, ?, ?, ?, ?)
	`, sess.ID, sess.Mode, unixFromTime(sess.StartedAt), sess.LogPath, sess.FirstTrial)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// InsertTrial mirrors one finalized trial.
func (s *Store) InsertTrial(t Trial) error {
	var truth sql.NullString
	if t.TrueSeverity != nil {
		truth = sql.NullString{String: *t.TrueSeverity, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO trials (sessionId, trialId, predictedLabel, predictedSeverity, trueSeverity,
			confidence, processingMs, verdict, imagePath, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.SessionID, t.TrialID, t.PredictedLabel, t.PredictedSeverity, truth,
		t.Confidence, t.ProcessingMillis, t.Verdict, t.ImagePath, unixFromTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert trial %d: %w", t.TrialID, err)
	}
	return nil
}

// TrialsForSession returns all trials for a session, ordered by trial number.
func (s *Store) TrialsForSession(sessionID string) ([]Trial, error) {
	rows, err := s.db.Query(`
		SELECT sessionId, trialId, predictedLabel, predictedSeverity, trueSeverity,
			confidence, processingMs, verdict, imagePath, createdAt
		FROM trials
		WHERE sessionId = ?
		ORDER BY trialId ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var trials []Trial
	for rows.Next() {
		var t Trial
		var truth sql.NullString
		var createdAt float64
		if err := rows.Scan(&t.SessionID, &t.TrialID, &t.PredictedLabel, &t.PredictedSeverity,
			&truth, &t.Confidence, &t.ProcessingMillis, &t.Verdict, &t.ImagePath, &createdAt); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		if truth.Valid {
			v := truth.String
			t.TrueSeverity = &v
		}
		t.CreatedAt = timeFromUnix(createdAt)
		trials = append(trials, t)
	}
	return trials, rows.Err()
}

// Sessions returns all sessions, most recent first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, mode, startedAt, logPath, firstTrial
		FROM sessions
		ORDER BY startedAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var startedAt float64
		if err := rows.Scan(&sess.ID, &sess.Mode, &startedAt, &sess.LogPath, &sess.FirstTrial); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = timeFromUnix(startedAt)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// LatestSession returns the most recent session, if any.
func (s *Store) LatestSession() (*Session, error) {
	return s.scanSession(s.db.QueryRow(`
		SELECT id, mode, startedAt, logPath, firstTrial
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT 1
	`))
}

// SessionByID returns the session with the given id, if any.
func (s *Store) SessionByID(id string) (*Session, error) {
	return s.scanSession(s.db.QueryRow(`
		SELECT id, mode, startedAt, logPath, firstTrial
		FROM sessions
		WHERE id = ?
	`, id))
}

func (s *Store) scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var startedAt float64
	if err := row.Scan(&sess.ID, &sess.Mode, &startedAt, &sess.LogPath, &sess.FirstTrial); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.StartedAt = timeFromUnix(startedAt)
	return &sess, nil
}

// MaxTrialID returns the highest trial number ever indexed, or 0.
func (s *Store) MaxTrialID() (int, error) {
	var maxID sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(trialId) FROM trials`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("query max trial: %w", err)
	}
	if !maxID.Valid {
		return 0, nil
	}
	return int(maxID.Int64), nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
