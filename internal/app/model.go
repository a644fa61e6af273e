package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/leafcam/leafcam/internal/session"
	"github.com/leafcam/leafcam/internal/severity"
	"github.com/leafcam/leafcam/internal/ui"
	"github.com/leafcam/leafcam/internal/workflow"

	tea "github.com/charmbracelet/bubbletea"
)

// Screen is the operator-facing view.
type Screen int

const (
	ScreenModePrompt Screen = iota
	ScreenLive
	ScreenReview
	ScreenExpert
)

// Controller is the trial state machine the TUI drives.
type Controller interface {
	Handle(ctx context.Context, ev workflow.Event) (workflow.Effect, error)
}

// StartFunc opens a session in the chosen mode and returns its controller
// and first trial number.
type StartFunc func(mode session.Mode) (Controller, int, error)

// Options configures a Model.
type Options struct {
	// Mode skips the startup question when set.
	Mode  session.Mode
	Start StartFunc
	// Context is passed to controller calls.
	Context context.Context
}

// Model is the root bubbletea model for the leafcam TUI.
type Model struct {
	ctx   context.Context
	start StartFunc

	// Session state
	mode     session.Mode
	ctrl     Controller
	starting bool
	trialID  int

	// Workflow state
	screen   Screen
	busy     bool
	busyText string
	quitting bool
	staged   string
	spinner  spinner.Model

	// Display
	frame       image.Image
	previewErr  string
	prediction  string
	predLabel   severity.Label
	confidence  string
	lastVerdict severity.Verdict
	statusText  string
	width       int
	height      int

	// Errors
	errorMessage   string
	errorTransient bool
	fatal          error
}

// New creates a new Model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.SpinnerStyle

	m := Model{
		ctx:        ctx,
		start:      opts.Start,
		mode:       opts.Mode,
		screen:     ScreenModePrompt,
		spinner:    sp,
		prediction: "None",
		confidence: "N/A",
	}
	if opts.Mode != "" {
		m.starting = true
		m.statusText = "Opening session..."
	}
	return m
}

// Init opens the session immediately when the mode was preselected.
func (m Model) Init() tea.Cmd {
	if m.mode != "" {
		return startSessionCmd(m.start, m.mode)
	}
	return nil
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error {
	return m.fatal
}

// startSessionCmd opens the session off the UI goroutine.
func startSessionCmd(start StartFunc, mode session.Mode) tea.Cmd {
	return func() tea.Msg {
		if start == nil {
			return SessionStartErrorMsg{Err: errors.New("no session starter configured")}
		}
		ctrl, first, err := start(mode)
		if err != nil {
			return SessionStartErrorMsg{Err: err}
		}
		return SessionStartedMsg{Mode: mode, Controller: ctrl, TrialID: first}
	}
}

// handleCmd sends one event to the controller. The controller blocks for
// capture and inference, so this runs as a command.
func handleCmd(ctx context.Context, ctrl Controller, ev workflow.Event) tea.Cmd {
	return func() tea.Msg {
		eff, err := ctrl.Handle(ctx, ev)
		return ResultMsg{Event: ev, Effect: eff, Err: err}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SessionStartedMsg:
		m.starting = false
		m.mode = msg.Mode
		m.ctrl = msg.Controller
		m.trialID = msg.TrialID
		m.screen = ScreenLive
		m.statusText = "Ready"
		return m, nil

	case SessionStartErrorMsg:
		m.starting = false
		m.fatal = fmt.Errorf("start session: %w", msg.Err)
		return m, tea.Quit

	case PreviewFrameMsg:
		m.frame = msg.Frame
		m.previewErr = ""
		return m, nil

	case PreviewErrorMsg:
		m.previewErr = fmt.Sprintf("Preview unavailable (%d failures): %v", msg.Failures, msg.Err)
		return m, nil

	case ResultMsg:
		updated, cmd := m.handleResult(msg)
		if updated.(Model).quitting {
			return updated, tea.Quit
		}
		return updated, cmd

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// handleResult applies the controller's effect to the display.
func (m Model) handleResult(msg ResultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.busyText = ""
	eff := msg.Effect
	if eff.TrialID > 0 {
		m.trialID = eff.TrialID
	}
	m.staged = eff.StagedPath

	if msg.Err != nil && workflow.IsFatal(msg.Err) {
		m.fatal = msg.Err
		m.errorMessage = msg.Err.Error()
		m.errorTransient = false
		m.statusText = "Session halted"
		return m, tea.Quit
	}

	m.screen = screenForPrompt(eff.Prompt)

	if rec := eff.Record; rec != nil {
		m.predLabel = rec.Predicted
		m.prediction = string(rec.Predicted)
		m.confidence = fmt.Sprintf("%.2f%%", rec.ConfidencePercent)
		m.lastVerdict = rec.Verdict
		m.statusText = fmt.Sprintf("Saved %s (%s)", filepath.Base(rec.ImagePath), humanize.Bytes(uint64(rec.ImageBytes)))
	} else if msg.Err == nil && msg.Event.Kind == workflow.EventRetake {
		m.statusText = "Capture discarded"
	} else if msg.Err == nil && eff.Prompt != workflow.PromptNone {
		m.statusText = "Captured " + filepath.Base(eff.StagedPath)
	}

	if msg.Err != nil {
		m.errorMessage = describeError(msg.Err)
		m.errorTransient = true
		return m, clearTransientErrorCmd()
	}
	return m, nil
}

func screenForPrompt(p workflow.Prompt) Screen {
	switch p {
	case workflow.PromptReview:
		return ScreenReview
	case workflow.PromptAnnotate:
		return ScreenExpert
	}
	return ScreenLive
}

func describeError(err error) string {
	switch {
	case errors.Is(err, workflow.ErrCaptureFailed):
		return "Capture failed. Try again. (" + err.Error() + ")"
	case errors.Is(err, workflow.ErrInferenceFailed):
		return "Classification failed. Try again. (" + err.Error() + ")"
	case errors.Is(err, severity.ErrNotOnScale):
		return "Choose one of " + scaleText()
	}
	return err.Error()
}

func scaleText() string {
	parts := make([]string, 0, len(severity.Scale))
	for _, v := range severity.Scale {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, ", ")
}

// dispatch marks the model busy and sends ev to the controller.
func (m Model) dispatch(ev workflow.Event, busyText string) (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		return m, nil
	}
	m.busy = true
	m.busyText = busyText
	return m, tea.Batch(handleCmd(m.ctx, m.ctrl, ev), m.spinner.Tick)
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		// A trial in progress finishes before the program exits. A second
		// quit key exits immediately.
		if m.busy && !m.quitting {
			m.quitting = true
			m.statusText = "Finishing current trial..."
			return m, nil
		}
		return m, tea.Quit
	}

	// Input is ignored while the controller is working or a session is opening.
	if m.busy || m.starting {
		return m, nil
	}

	switch m.screen {
	case ScreenModePrompt:
		switch key {
		case KeyYes, "Y":
			m.mode = session.ModeExpert
		case KeyNo, "N":
			m.mode = session.ModeAutonomous
		default:
			return m, nil
		}
		m.starting = true
		m.statusText = "Opening session..."
		return m, startSessionCmd(m.start, m.mode)

	case ScreenLive:
		if key == KeyCapture || key == KeySpace {
			return m.dispatch(workflow.Capture(), "Capturing...")
		}

	case ScreenReview:
		switch key {
		case KeyAccept:
			return m.dispatch(workflow.Accept(), "Classifying...")
		case KeyRetake:
			return m.dispatch(workflow.Retake(), "Discarding...")
		}

	case ScreenExpert:
		if ev, ok := annotationKeys[key]; ok {
			return m.dispatch(ev, "Classifying...")
		}
	}

	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.screen == ScreenModePrompt {
		sections = append(sections, m.renderModePrompt())
	} else {
		sections = append(sections, m.renderMainContent())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("LEAFCAM")

	var modeInfo string
	switch m.mode {
	case session.ModeExpert:
		modeInfo = ui.DimStyle.Render(" · expert annotation")
	case session.ModeAutonomous:
		modeInfo = ui.DimStyle.Render(" · autonomous")
	}

	var trial string
	if m.ctrl != nil {
		trial = ui.HeaderStyle.Render(fmt.Sprintf("  Trial %d", m.trialID))
	}
	return title + modeInfo + trial
}

func (m Model) renderStatusBar() string {
	var dot string
	switch {
	case m.fatal != nil:
		dot = ui.HaltedDotStyle.Render("● HALTED")
	case m.busy:
		dot = m.spinner.View() + " " + ui.PromptStyle.Render(m.busyText)
	case m.ctrl != nil:
		dot = ui.ReadyDotStyle.Render("● READY")
	default:
		dot = ui.DimStyle.Render("○ WAITING")
	}

	status := ""
	if m.statusText != "" {
		if strings.HasPrefix(m.statusText, "Saved ") {
			status = "  " + ui.SavedStyle.Render(m.statusText)
		} else {
			status = "  " + ui.StatusStyle.Render(m.statusText)
		}
	}
	return dot + status
}

func (m Model) renderModePrompt() string {
	lines := []string{
		"",
		ui.PromptStyle.Render("  Will this image be annotated by an expert?"),
		ui.DimStyle.Render("  y: expert annotation (you label each capture on the 0-9 scale)"),
		ui.DimStyle.Render("  n: autonomous (accept or retake each capture)"),
	}
	for len(lines) < m.contentHeight() {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + dividers(2) + error(1) + footer(1)
	return max(5, m.height-6)
}

func (m Model) previewWidth() int {
	if m.width == 0 {
		return 40
	}
	return max(10, m.width*45/100)
}

func (m Model) renderMainContent() string {
	previewW := m.previewWidth()
	height := m.contentHeight()

	previewLines := m.renderPreview(previewW, height)
	infoLines := m.renderInfoPanel(max(10, m.width-previewW-3))

	divider := ui.DividerStyle.Render("│")
	var rows []string
	for i := 0; i < height; i++ {
		left := ""
		if i < len(previewLines) {
			left = previewLines[i]
		}
		right := ""
		if i < len(infoLines) {
			right = infoLines[i]
		}
		rows = append(rows, padRight(left, previewW)+" "+divider+" "+right)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderPreview(width, height int) []string {
	if m.frame == nil {
		msg := "  Waiting for camera..."
		if m.previewErr != "" {
			msg = "  " + m.previewErr
		}
		return []string{ui.DimStyle.Render(truncateToWidth(msg, width))}
	}
	return strings.Split(ui.RenderFrame(m.frame, width, height), "\n")
}

func (m Model) renderInfoPanel(width int) []string {
	pred := ui.SeverityStyle(m.predLabel).Render(m.prediction)
	if m.prediction == "None" {
		pred = ui.DimStyle.Render(m.prediction)
	}
	lines := []string{
		ui.PanelTitleStyle.Render("RESULT"),
		ui.LabelStyle.Render("Prediction: ") + pred,
		ui.LabelStyle.Render("Confidence: ") + m.confidence,
	}
	if m.lastVerdict != "" {
		lines = append(lines, ui.LabelStyle.Render("Result: ")+ui.VerdictStyle(m.lastVerdict).Render(string(m.lastVerdict)))
	}
	lines = append(lines, "")

	switch m.screen {
	case ScreenLive:
		lines = append(lines, ui.DimStyle.Render("Press c to capture & process"))
	case ScreenReview:
		lines = append(lines,
			ui.PromptStyle.Render("Review capture"),
			ui.DimStyle.Render(filepath.Base(m.staged)),
			"",
			ui.FooterKeyStyle.Render("a")+" Accept   "+ui.FooterKeyStyle.Render("r")+" Retake",
		)
	case ScreenExpert:
		lines = append(lines,
			ui.PromptStyle.Render("Select the true severity"),
			ui.DimStyle.Render(filepath.Base(m.staged)),
			"",
		)
		var keys []string
		for _, v := range severity.Scale {
			keys = append(keys, ui.SelectedStyle.Render("["+v.String()+"]"))
		}
		lines = append(lines, strings.Join(keys, " "))
	}

	for i, l := range lines {
		lines[i] = truncateToWidth(l, width)
	}
	return lines
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string
	key := func(k, desc string) string {
		return ui.FooterKeyStyle.Render(k) + ui.FooterDescStyle.Render(" "+desc)
	}

	switch m.screen {
	case ScreenModePrompt:
		parts = append(parts, key("y", "Annotate"), key("n", "Autonomous"))
	case ScreenLive:
		parts = append(parts, key("c/Space", "Capture & Process"))
	case ScreenReview:
		parts = append(parts, key("a", "Accept"), key("r", "Retake"))
	case ScreenExpert:
		parts = append(parts, key(scaleText(), "Severity"))
	}
	parts = append(parts, key("q", "Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}
