// Package resultlog owns the append-only per-session CSV of finalized trials.
package resultlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leafcam/leafcam/internal/severity"
)

// Header is the fixed column order of every session log.
var Header = []string{
	"Trial No.",
	"Predicted Classification",
	"True Classification",
	"Confidence Level",
	"Processing Time (ms)",
	"Result",
}

// NotAnnotatedText fills the True Classification column when no ground truth
// was supplied.
const NotAnnotatedText = "Not Annotated"

const fileTimeLayout = "20060102_150405"

var (
	// ErrOutOfOrder is returned when a row does not advance the trial number.
	ErrOutOfOrder = errors.New("resultlog: trial number out of order")
	// ErrClosed is returned by Append after Close.
	ErrClosed = errors.New("resultlog: log closed")
	// ErrBadHeader is returned when reading a file with an unexpected header.
	ErrBadHeader = errors.New("resultlog: unexpected header")
)

// Row is one finalized trial.
type Row struct {
	TrialID           int
	Predicted         severity.Label
	TrueSeverity      string // empty when not annotated
	ConfidencePercent float64
	ProcessingMillis  float64
	Verdict           severity.Verdict
}

// Record formats the row in column order.
func (r Row) Record() []string {
	truth := r.TrueSeverity
	if truth == "" {
		truth = NotAnnotatedText
	}
	return []string{
		strconv.Itoa(r.TrialID),
		string(r.Predicted),
		truth,
		fmt.Sprintf("%.2f%%", r.ConfidencePercent),
		fmt.Sprintf("%.2f", r.ProcessingMillis),
		string(r.Verdict),
	}
}

// FileName returns the log name for a session started at t.
func FileName(t time.Time) string {
	return "classification_results_" + t.Format(fileTimeLayout) + ".csv"
}

// Log is the single writer for one session's result file.
type Log struct {
	path string
	file *os.File
	w    *csv.Writer
	last int
}

// maxNameAttempts bounds the numbered names tried for one start second.
const maxNameAttempts = 100

// Create makes a new log in dir named for started and writes the header. An
// existing file is never reopened; if the name is taken, Create tries
// _2, _3, and so on.
func Create(dir string, started time.Time) (*Log, error) {
	base := FileName(started)
	for n := 1; n <= maxNameAttempts; n++ {
		name := base
		if n > 1 {
			name = strings.TrimSuffix(base, ".csv") + "_" + strconv.Itoa(n) + ".csv"
		}
		path := filepath.Join(dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create result log: %w", err)
		}
		l := &Log{path: path, file: file, w: csv.NewWriter(file)}
		if err := l.write(Header); err != nil {
			file.Close()
			os.Remove(path)
			return nil, fmt.Errorf("write result log header: %w", err)
		}
		return l, nil
	}
	return nil, fmt.Errorf("create result log: %s and %d numbered variants already exist", base, maxNameAttempts-1)
}

// Path returns the file backing the log.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// LastTrialID returns the trial number of the most recent append, or 0.
func (l *Log) LastTrialID() int {
	return l.last
}

// Append writes r and syncs it to disk before returning. Trial numbers must
// strictly increase.
func (l *Log) Append(r Row) error {
	if l == nil || l.file == nil {
		return ErrClosed
	}
	if r.TrialID <= l.last {
		return fmt.Errorf("%w: %d after %d", ErrOutOfOrder, r.TrialID, l.last)
	}
	if err := l.write(r.Record()); err != nil {
		return fmt.Errorf("append trial %d: %w", r.TrialID, err)
	}
	l.last = r.TrialID
	return nil
}

func (l *Log) write(record []string) error {
	if err := l.w.Write(record); err != nil {
		return err
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return err
	}
	return l.file.Sync()
}

// Close closes the underlying file. It is safe to call more than once.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadFile parses a session log back into rows.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open result log: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a session log from r.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrBadHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range Header {
		if head[i] != Header[i] {
			return nil, fmt.Errorf("%w: column %d is %q", ErrBadHeader, i+1, head[i])
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row, err := ParseRecord(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseRecord converts one CSV record into a Row.
func ParseRecord(rec []string) (Row, error) {
	if len(rec) != len(Header) {
		return Row{}, fmt.Errorf("row has %d columns, want %d", len(rec), len(Header))
	}
	id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
	if err != nil {
		return Row{}, fmt.Errorf("trial number %q: %w", rec[0], err)
	}
	conf, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(rec[3]), "%"), 64)
	if err != nil {
		return Row{}, fmt.Errorf("trial %d confidence %q: %w", id, rec[3], err)
	}
	ms, err := strconv.ParseFloat(strings.TrimSpace(rec[4]), 64)
	if err != nil {
		return Row{}, fmt.Errorf("trial %d processing time %q: %w", id, rec[4], err)
	}
	truth := strings.TrimSpace(rec[2])
	if truth == NotAnnotatedText {
		truth = ""
	}
	return Row{
		TrialID:           id,
		Predicted:         severity.Label(rec[1]),
		TrueSeverity:      truth,
		ConfidencePercent: conf,
		ProcessingMillis:  ms,
		Verdict:           severity.Verdict(rec[5]),
	}, nil
}
