package app

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leafcam/leafcam/internal/session"
	"github.com/leafcam/leafcam/internal/severity"
	"github.com/leafcam/leafcam/internal/workflow"
)

// fakeController records events and replies with a canned effect.
type fakeController struct {
	events []workflow.Event
	effect workflow.Effect
	err    error
}

func (f *fakeController) Handle(_ context.Context, ev workflow.Event) (workflow.Effect, error) {
	f.events = append(f.events, ev)
	return f.effect, f.err
}

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// collect runs cmd and flattens batches. Only use on commands that return
// immediately.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findResult(t *testing.T, msgs []tea.Msg) ResultMsg {
	t.Helper()
	for _, msg := range msgs {
		if r, ok := msg.(ResultMsg); ok {
			return r
		}
	}
	t.Fatalf("no ResultMsg in %v", msgs)
	return ResultMsg{}
}

func liveModel(ctrl Controller) Model {
	m := New(Options{})
	m, _ = applyUpdate(m, SessionStartedMsg{Mode: session.ModeAutonomous, Controller: ctrl, TrialID: 1})
	m.width = 100
	m.height = 30
	return m
}

func TestNewModel(t *testing.T) {
	m := New(Options{})
	if m.screen != ScreenModePrompt {
		t.Errorf("screen = %d, want mode prompt", m.screen)
	}
	if m.prediction != "None" {
		t.Errorf("prediction = %q, want None", m.prediction)
	}
	if m.confidence != "N/A" {
		t.Errorf("confidence = %q, want N/A", m.confidence)
	}
	if m.Init() != nil {
		t.Error("Init should wait for the mode answer")
	}
}

func TestModePromptYesStartsExpertSession(t *testing.T) {
	ctrl := &fakeController{}
	var gotMode session.Mode
	m := New(Options{Start: func(mode session.Mode) (Controller, int, error) {
		gotMode = mode
		return ctrl, 4, nil
	}})

	m, cmd := applyUpdate(m, keyMsg("y"))
	if !m.starting || cmd == nil {
		t.Fatal("y should start the session")
	}
	msgs := collect(cmd)
	started, ok := msgs[0].(SessionStartedMsg)
	if !ok {
		t.Fatalf("msg = %T, want SessionStartedMsg", msgs[0])
	}
	if gotMode != session.ModeExpert {
		t.Errorf("mode = %q, want expert", gotMode)
	}

	m, _ = applyUpdate(m, started)
	if m.screen != ScreenLive || m.trialID != 4 || m.ctrl == nil {
		t.Errorf("after start: screen=%d trial=%d", m.screen, m.trialID)
	}
}

func TestModePromptNoStartsAutonomous(t *testing.T) {
	var gotMode session.Mode
	m := New(Options{Start: func(mode session.Mode) (Controller, int, error) {
		gotMode = mode
		return &fakeController{}, 1, nil
	}})
	m, _ = applyUpdate(m, keyMsg("x"))
	if m.starting {
		t.Fatal("unrelated key should be ignored")
	}
	_, cmd := applyUpdate(m, keyMsg("n"))
	collect(cmd)
	if gotMode != session.ModeAutonomous {
		t.Errorf("mode = %q, want autonomous", gotMode)
	}
}

func TestPresetModeStartsOnInit(t *testing.T) {
	m := New(Options{
		Mode:  session.ModeAutonomous,
		Start: func(session.Mode) (Controller, int, error) { return &fakeController{}, 1, nil },
	})
	msgs := collect(m.Init())
	if _, ok := msgs[0].(SessionStartedMsg); !ok {
		t.Fatalf("Init msg = %T, want SessionStartedMsg", msgs[0])
	}
}

func TestSessionStartErrorQuits(t *testing.T) {
	m := New(Options{Mode: session.ModeExpert})
	m, cmd := applyUpdate(m, SessionStartErrorMsg{Err: session.ErrLocked})
	if !errors.Is(m.Err(), session.ErrLocked) {
		t.Errorf("Err = %v, want ErrLocked", m.Err())
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit")
	}
}

func TestCaptureDispatchesAndReviews(t *testing.T) {
	ctrl := &fakeController{effect: workflow.Effect{
		State:      workflow.StateAcceptOrRetake,
		Prompt:     workflow.PromptReview,
		TrialID:    1,
		StagedPath: "/data/captured_images/test_1.jpg",
	}}
	m := liveModel(ctrl)

	m, cmd := applyUpdate(m, keyMsg("c"))
	if !m.busy || m.busyText != "Capturing..." {
		t.Fatalf("busy = %v (%q)", m.busy, m.busyText)
	}
	result := findResult(t, collect(cmd))
	if len(ctrl.events) != 1 || ctrl.events[0].Kind != workflow.EventCapture {
		t.Fatalf("events = %+v", ctrl.events)
	}

	m, _ = applyUpdate(m, result)
	if m.busy {
		t.Error("still busy after result")
	}
	if m.screen != ScreenReview {
		t.Errorf("screen = %d, want review", m.screen)
	}
	if m.statusText != "Captured test_1.jpg" {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestSpaceCaptures(t *testing.T) {
	ctrl := &fakeController{}
	m := liveModel(ctrl)
	_, cmd := applyUpdate(m, keyMsg(" "))
	collect(cmd)
	if len(ctrl.events) != 1 || ctrl.events[0].Kind != workflow.EventCapture {
		t.Errorf("events = %+v", ctrl.events)
	}
}

func TestBusyIgnoresKeys(t *testing.T) {
	ctrl := &fakeController{}
	m := liveModel(ctrl)
	m.busy = true
	_, cmd := applyUpdate(m, keyMsg("c"))
	if cmd != nil {
		t.Error("key accepted while busy")
	}
}

func TestReviewKeys(t *testing.T) {
	for _, tt := range []struct {
		key  string
		want workflow.EventKind
	}{
		{"a", workflow.EventAccept},
		{"r", workflow.EventRetake},
	} {
		ctrl := &fakeController{}
		m := liveModel(ctrl)
		m.screen = ScreenReview
		_, cmd := applyUpdate(m, keyMsg(tt.key))
		collect(cmd)
		if len(ctrl.events) != 1 || ctrl.events[0].Kind != tt.want {
			t.Errorf("key %q events = %+v", tt.key, ctrl.events)
		}
	}
}

func TestExpertKeysFollowScale(t *testing.T) {
	ctrl := &fakeController{}
	m := liveModel(ctrl)
	m.screen = ScreenExpert

	for _, k := range []string{"2", "4", "8", "a", "c"} {
		if _, cmd := applyUpdate(m, keyMsg(k)); cmd != nil {
			t.Errorf("key %q should be ignored on the expert screen", k)
		}
	}
	for _, v := range severity.Scale {
		ctrl.events = nil
		_, cmd := applyUpdate(m, keyMsg(v.String()))
		collect(cmd)
		if len(ctrl.events) != 1 {
			t.Fatalf("key %s: events = %+v", v, ctrl.events)
		}
		ev := ctrl.events[0]
		if ev.Kind != workflow.EventAnnotate || ev.Severity != v {
			t.Errorf("key %s sent %+v", v, ev)
		}
	}
}

func TestFinalizedRecordUpdatesLabels(t *testing.T) {
	m := liveModel(&fakeController{})
	m.screen = ScreenReview

	m, cmd := applyUpdate(m, ResultMsg{
		Event: workflow.Accept(),
		Effect: workflow.Effect{
			State:   workflow.StateIdle,
			TrialID: 4,
			Record: &workflow.Record{
				TrialID:           3,
				Predicted:         severity.Label5,
				ConfidencePercent: 97.1234,
				Verdict:           severity.NotAnnotated,
				ImagePath:         "/data/captured_images/test_3_Pred_5.jpg",
				ImageBytes:        48000,
			},
		},
	})
	if cmd != nil {
		t.Error("unexpected command")
	}
	if m.screen != ScreenLive {
		t.Errorf("screen = %d, want live", m.screen)
	}
	if m.prediction != "Severity 5" {
		t.Errorf("prediction = %q", m.prediction)
	}
	if m.confidence != "97.12%" {
		t.Errorf("confidence = %q, want 97.12%%", m.confidence)
	}
	if m.statusText != "Saved test_3_Pred_5.jpg (48 kB)" {
		t.Errorf("status = %q", m.statusText)
	}
	if m.trialID != 4 {
		t.Errorf("trial = %d, want 4", m.trialID)
	}
}

func TestRecoverableErrorShownTransiently(t *testing.T) {
	m := liveModel(&fakeController{})
	m, cmd := applyUpdate(m, ResultMsg{
		Event:  workflow.Capture(),
		Effect: workflow.Effect{State: workflow.StateIdle, TrialID: 1},
		Err:    errors.Join(workflow.ErrCaptureFailed, errors.New("image not written")),
	})
	if cmd == nil {
		t.Error("expected clear timer")
	}
	if !strings.HasPrefix(m.errorMessage, "Capture failed") {
		t.Errorf("error = %q", m.errorMessage)
	}
	if m.Err() != nil || m.screen != ScreenLive {
		t.Errorf("err=%v screen=%d", m.Err(), m.screen)
	}

	m, _ = applyUpdate(m, ClearTransientErrorMsg{})
	if m.errorMessage != "" {
		t.Error("transient error not cleared")
	}
}

func TestPersistenceFailureQuits(t *testing.T) {
	m := liveModel(&fakeController{})
	fatal := &workflow.PersistenceError{Op: "append log", Path: "/x.csv", Err: errors.New("disk full")}
	m, cmd := applyUpdate(m, ResultMsg{Event: workflow.Accept(), Err: fatal})
	if m.Err() != fatal {
		t.Errorf("Err = %v", m.Err())
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit")
	}
}

func TestPreviewMessages(t *testing.T) {
	m := liveModel(&fakeController{})
	m, _ = applyUpdate(m, PreviewErrorMsg{Err: errors.New("timeout"), Failures: 3})
	if !strings.Contains(m.previewErr, "3 failures") {
		t.Errorf("preview error = %q", m.previewErr)
	}
	frame := image.NewRGBA(image.Rect(0, 0, 32, 44))
	m, _ = applyUpdate(m, PreviewFrameMsg{Frame: frame})
	if m.frame != frame || m.previewErr != "" {
		t.Error("frame not stored")
	}
}

func TestViewRendersWithSize(t *testing.T) {
	m := liveModel(&fakeController{})
	m, _ = applyUpdate(m, PreviewFrameMsg{Frame: image.NewRGBA(image.Rect(0, 0, 32, 44))})
	view := m.View()
	for _, want := range []string{"LEAFCAM", "Prediction:", "None", "Confidence:", "N/A", "Capture & Process"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewModePrompt(t *testing.T) {
	m := New(Options{})
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if !strings.Contains(m.View(), "Will this image be annotated by an expert?") {
		t.Error("mode question not shown")
	}
}

func TestViewWithoutSize(t *testing.T) {
	m := New(Options{})
	if m.View() != "Initializing..." {
		t.Errorf("view = %q", m.View())
	}
}

func TestQuitWhileBusyWaitsForResult(t *testing.T) {
	m := liveModel(&fakeController{})
	m.screen = ScreenReview
	m, _ = applyUpdate(m, keyMsg("a"))
	if !m.busy {
		t.Fatal("accept should mark the model busy")
	}

	m, cmd := applyUpdate(m, keyMsg("q"))
	if cmd != nil {
		t.Fatal("quit while busy should wait for the trial")
	}
	if !m.quitting {
		t.Fatal("quit not recorded")
	}

	m, cmd = applyUpdate(m, ResultMsg{
		Event: workflow.Accept(),
		Effect: workflow.Effect{State: workflow.StateIdle, TrialID: 2, Record: &workflow.Record{
			TrialID: 1, Predicted: severity.Label3, ImagePath: "/out/test_1_Pred_3.jpg", ImageBytes: 1000,
		}},
	})
	if cmd == nil {
		t.Fatal("expected quit after the result")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("result should trigger the deferred quit")
	}
	if m.prediction != "Severity 3" {
		t.Errorf("prediction = %q, result not applied", m.prediction)
	}
}

func TestSecondQuitWhileBusyExits(t *testing.T) {
	m := liveModel(&fakeController{})
	m.busy = true
	m, _ = applyUpdate(m, keyMsg("q"))
	_, cmd := applyUpdate(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("second quit should exit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit")
	}
}

func TestQuitWhenIdleExits(t *testing.T) {
	m := liveModel(&fakeController{})
	_, cmd := applyUpdate(m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit")
	}
}
