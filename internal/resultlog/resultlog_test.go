package resultlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leafcam/leafcam/internal/severity"
)

var sessionStart = time.Date(2024, 5, 17, 9, 30, 5, 0, time.Local)

func TestFileName(t *testing.T) {
	if got := FileName(sessionStart); got != "classification_results_20240517_093005.csv" {
		t.Errorf("FileName = %q", got)
	}
}

func TestCreateWritesHeader(t *testing.T) {
	dir := t.TempDir()
	l, err := Create(dir, sessionStart)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer l.Close()

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "Trial No.,Predicted Classification,True Classification,Confidence Level,Processing Time (ms),Result\n"
	if string(data) != want {
		t.Errorf("header = %q, want %q", data, want)
	}
}

func TestCreateNumbersSameSecondLogs(t *testing.T) {
	dir := t.TempDir()
	first, err := Create(dir, sessionStart)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := first.Append(Row{TrialID: 1, Predicted: severity.Label1, ConfidencePercent: 50, Verdict: severity.NotAnnotated}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	first.Close()
	before, _ := os.ReadFile(first.Path())

	second, err := Create(dir, sessionStart)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	defer second.Close()

	want := strings.TrimSuffix(FileName(sessionStart), ".csv") + "_2.csv"
	if filepath.Base(second.Path()) != want {
		t.Errorf("second log = %q, want %q", filepath.Base(second.Path()), want)
	}
	after, _ := os.ReadFile(first.Path())
	if string(after) != string(before) {
		t.Error("first log was modified")
	}

	third, err := Create(dir, sessionStart)
	if err != nil {
		t.Fatalf("third Create: %v", err)
	}
	defer third.Close()
	if !strings.HasSuffix(third.Path(), "_3.csv") {
		t.Errorf("third log = %q, want _3 suffix", third.Path())
	}
}

func TestAppendFormatsColumns(t *testing.T) {
	dir := t.TempDir()
	l, err := Create(dir, sessionStart)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer l.Close()

	if err := l.Append(Row{
		TrialID:           1,
		Predicted:         severity.Label5,
		TrueSeverity:      "5",
		ConfidencePercent: 97.123,
		ProcessingMillis:  41.5,
		Verdict:           severity.Correct,
	}); err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	if err := l.Append(Row{
		TrialID:           2,
		Predicted:         severity.LabelNull,
		ConfidencePercent: 50,
		ProcessingMillis:  3,
		Verdict:           severity.NotAnnotated,
	}); err != nil {
		t.Fatalf("Append 2: %v", err)
	}

	data, _ := os.ReadFile(l.Path())
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if lines[1] != "1,Severity 5,5,97.12%,41.50,Correct" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "2,Null,Not Annotated,50.00%,3.00,Not Annotated" {
		t.Errorf("row 2 = %q", lines[2])
	}
	if l.LastTrialID() != 2 {
		t.Errorf("LastTrialID = %d, want 2", l.LastTrialID())
	}
}

func TestAppendRejectsOutOfOrder(t *testing.T) {
	l, err := Create(t.TempDir(), sessionStart)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer l.Close()

	if err := l.Append(Row{TrialID: 3, Predicted: severity.Label1, Verdict: severity.NotAnnotated}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	for _, id := range []int{3, 2} {
		err := l.Append(Row{TrialID: id, Predicted: severity.Label1, Verdict: severity.NotAnnotated})
		if !errors.Is(err, ErrOutOfOrder) {
			t.Errorf("Append(%d) error = %v, want ErrOutOfOrder", id, err)
		}
	}
}

func TestAppendAfterClose(t *testing.T) {
	l, err := Create(t.TempDir(), sessionStart)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := l.Append(Row{TrialID: 1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Append after close = %v, want ErrClosed", err)
	}
}

func TestReadFileRoundTrip(t *testing.T) {
	l, err := Create(t.TempDir(), sessionStart)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rows := []Row{
		{TrialID: 1, Predicted: severity.Label3, TrueSeverity: "5", ConfidencePercent: 61.25, ProcessingMillis: 88.1, Verdict: severity.Incorrect},
		{TrialID: 2, Predicted: severity.LabelUnknown, ConfidencePercent: 12, ProcessingMillis: 7.25, Verdict: severity.NotAnnotated},
	}
	for _, r := range rows {
		if err := l.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	l.Close()

	got, err := ReadFile(l.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if got[0] != rows[0] {
		t.Errorf("row 0 = %+v, want %+v", got[0], rows[0])
	}
	if got[1] != rows[1] {
		t.Errorf("row 1 = %+v, want %+v", got[1], rows[1])
	}
}

func TestReadBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	os.WriteFile(path, []byte("a,b,c,d,e,f\n"), 0o644)
	if _, err := ReadFile(path); !errors.Is(err, ErrBadHeader) {
		t.Errorf("error = %v, want ErrBadHeader", err)
	}
	if _, err := Read(strings.NewReader("")); !errors.Is(err, ErrBadHeader) {
		t.Errorf("empty error = %v, want ErrBadHeader", err)
	}
}
