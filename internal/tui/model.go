// Package tui is the terminal front end for the upload workflow: pick an
// audio file, submit it, watch the upload and read the transcript.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alkime/scribe/internal/audio"
	"github.com/alkime/scribe/internal/tui/components/labeledspinner"
	"github.com/alkime/scribe/internal/tui/style"
	"github.com/alkime/scribe/internal/upload"
	"github.com/alkime/scribe/pkg/uictl"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const (
	progressInterval = 100 * time.Millisecond
	headerHeight     = 4
	footerHeight     = 3
	minViewport      = 5
)

type (
	stateMsg        upload.State
	progressTickMsg struct{}
)

// Option configures a Model.
type Option func(*Model)

// WithProgress shows an upload progress bar driven by dial.
func WithProgress(dial uictl.CappedDial[int64]) Option {
	return func(m *Model) {
		m.progress = dial
	}
}

// WithStartDir sets the directory the file picker opens in.
func WithStartDir(dir string) Option {
	return func(m *Model) {
		m.picker.CurrentDirectory = dir
	}
}

// Model renders the workflow's snapshots and turns key presses into
// workflow operations. It holds no upload state of its own.
type Model struct {
	ctx      context.Context //nolint:containedctx // submissions outlive a single Update
	workflow *upload.Workflow
	updates  <-chan upload.State
	state    upload.State
	keys     KeyMap

	picking  bool
	picker   filepicker.Model
	spinner  labeledspinner.Model
	bar      progress.Model
	progress uictl.CappedDial[int64]
	viewport viewport.Model

	notice string
	width  int
	height int
}

// New subscribes to wf and returns a model showing its current state. The
// picker opens when no file is selected yet. ctx bounds both the
// subscription and every submission started from the UI.
func New(ctx context.Context, wf *upload.Workflow, opts ...Option) (*Model, error) {
	updates := make(chan upload.State, 8)
	if err := wf.Observe(ctx, updates); err != nil {
		return nil, fmt.Errorf("failed to observe workflow: %w", err)
	}

	picker := filepicker.New()
	picker.AllowedTypes = audio.Extensions()
	if cwd, err := os.Getwd(); err == nil {
		picker.CurrentDirectory = cwd
	}

	m := &Model{
		ctx:      ctx,
		workflow: wf,
		updates:  updates,
		state:    wf.State(),
		keys:     DefaultKeyMap(),
		picker:   picker,
		spinner: labeledspinner.New(
			spinner.Dot,
			"Transcribing...",
			"",
			"",
		),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		viewport: viewport.New(76, minViewport),
		width:    80,
		height:   24,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.picking = !m.state.HasFile

	return m, nil
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForState(), m.spinner.Init()}
	if m.picking {
		cmds = append(cmds, m.picker.Init())
	}

	return tea.Batch(cmds...)
}

func (m *Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch teaMsg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		m.resize(teaMsg.Width, teaMsg.Height)

	case stateMsg:
		return m, m.onState(upload.State(teaMsg))

	case progressTickMsg:
		// a dropped snapshot must not leave the view on Submitting
		if current := m.workflow.State(); current.Status != m.state.Status {
			return m, m.applyState(current)
		}

		if m.state.Busy() {
			return m, m.tickProgress()
		}

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(teaMsg)

		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(teaMsg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd

	switch {
	case m.picking:
		cmd = m.updatePicker(teaMsg)
	case m.state.Status == upload.StatusSucceeded:
		m.viewport, cmd = m.viewport.Update(teaMsg)
	}

	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if msg.String() == "ctrl+c" {
			m.workflow.Cancel()
		}

		return tea.Quit, true

	case key.Matches(msg, m.keys.Submit):
		m.submit()
		return nil, true

	case key.Matches(msg, m.keys.Cancel):
		if m.picking && m.state.HasFile {
			m.picking = false
			return nil, true
		}

		if m.state.Busy() {
			m.workflow.Cancel()
			return nil, true
		}

		return nil, false
	}

	if m.picking {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.NewFile):
		m.picking = true
		m.notice = ""

		return m.picker.Init(), true

	case key.Matches(msg, m.keys.Resubmit):
		if m.state.Status == upload.StatusSucceeded || m.state.Status == upload.StatusFailed {
			m.submit()
		}

		return nil, true

	case key.Matches(msg, m.keys.Save):
		if transcript, ok := m.state.Result(); ok {
			m.save(transcript)
		}

		return nil, true
	}

	return nil, false
}

func (m *Model) submit() {
	m.notice = ""

	if err := m.workflow.Submit(m.ctx); err != nil {
		// the workflow's snapshot carries the error to the view
		slog.Debug("Submit rejected", "error", err)
	}
}

func (m *Model) updatePicker(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if didSelect, path := m.picker.DidSelectFile(msg); didSelect {
		file, err := audio.FromPath(path)
		if err != nil {
			slog.Error("Failed to open selected file", "path", path, "error", err)
			m.notice = style.Error.Render(err.Error())

			return cmd
		}

		slog.Info("File selected", "path", path, "media_type", file.MediaType)
		m.workflow.SelectFile(file)
		m.picking = false
		m.notice = ""
	}

	if didSelect, path := m.picker.DidSelectDisabledFile(msg); didSelect {
		m.notice = style.Warning.Render(filepath.Base(path) + " is not a supported audio file")
	}

	return cmd
}

func (m *Model) onState(s upload.State) tea.Cmd {
	return tea.Batch(m.waitForState(), m.applyState(s))
}

// applyState shows s and starts the progress tick when an upload begins.
// The tick also polls the workflow while it is busy.
func (m *Model) applyState(s upload.State) tea.Cmd {
	wasBusy := m.state.Busy()
	m.state = s

	switch s.Status {
	case upload.StatusSubmitting:
		m.spinner = m.spinner.WithSubtitle(describe(s.File))
		if !wasBusy {
			return m.tickProgress()
		}
	case upload.StatusSucceeded:
		m.viewport.SetContent(wrapText(transcriptText(s.Transcript), m.viewport.Width))
		m.viewport.GotoTop()
	}

	return nil
}

func (m *Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.updates
		if !ok {
			return nil
		}

		return stateMsg(s)
	}
}

func (m *Model) tickProgress() tea.Cmd {
	return tea.Tick(progressInterval, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

func (m *Model) save(transcript string) {
	path := transcriptPath(m.state.File)

	//nolint:gosec // Transcript files need to be readable
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		slog.Error("Failed to save transcript", "path", path, "error", err)
		m.notice = style.Error.Render("Save failed: " + err.Error())

		return
	}

	slog.Info("Transcript saved", "path", path)
	m.notice = style.Success.Render("Saved: ") + style.Muted.Render(path)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	m.viewport.Width = max(width-4, 10) // -4 for border padding
	m.viewport.Height = max(height-headerHeight-footerHeight, minViewport)
	m.bar.Width = min(max(width-4, 10), 60)

	if transcript, ok := m.state.Result(); ok {
		m.viewport.SetContent(wrapText(transcriptText(transcript), m.viewport.Width))
	}
}

func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("scribe"))
	sb.WriteString(style.Subtitle.Render("  " + m.state.Status.String()))
	sb.WriteString("\n\n")

	switch {
	case m.picking:
		m.viewPicker(&sb)
	case m.state.Status == upload.StatusSubmitting:
		m.viewSubmitting(&sb)
	case m.state.Status == upload.StatusSucceeded:
		m.viewTranscript(&sb)
	case m.state.Status == upload.StatusFailed:
		m.viewFailed(&sb)
	default:
		m.viewReady(&sb)
	}

	if m.notice != "" {
		sb.WriteString("\n\n")
		sb.WriteString(m.notice)
	}

	return sb.String()
}

func (m *Model) viewPicker(sb *strings.Builder) {
	sb.WriteString(style.Label.Render("Select an audio file"))
	sb.WriteString("\n")
	sb.WriteString(style.Muted.Render(m.picker.CurrentDirectory))
	sb.WriteString("\n\n")
	sb.WriteString(m.picker.View())
	sb.WriteString("\n")

	m.viewValidation(sb)

	hints := []key.Binding{m.keys.Submit, m.keys.Quit}
	if m.state.HasFile {
		hints = []key.Binding{m.keys.Submit, m.keys.Cancel, m.keys.Quit}
	}

	sb.WriteString(renderHints(hints...))
}

func (m *Model) viewReady(sb *strings.Builder) {
	sb.WriteString(style.Label.Render("File: "))
	sb.WriteString(describe(m.state.File))
	sb.WriteString("\n\n")

	m.viewValidation(sb)

	sb.WriteString(renderHints(m.keys.Submit, m.keys.NewFile, m.keys.Quit))
}

func (m *Model) viewSubmitting(sb *strings.Builder) {
	var help strings.Builder

	if m.progress != nil {
		sent, total := m.progress.Cap()
		help.WriteString(m.bar.ViewAs(uictl.Fraction(m.progress)))
		help.WriteString("\n")
		help.WriteString(style.Muted.Render(fmt.Sprintf("%s of %s uploaded",
			humanize.Bytes(uint64(max(sent, 0))), //nolint:gosec // clamped
			humanize.Bytes(uint64(max(total, 0))), //nolint:gosec // clamped
		)))
		help.WriteString("\n\n")
	}

	help.WriteString(renderHints(m.keys.Cancel, m.keys.Quit))

	sb.WriteString(m.spinner.ViewWithHelp(help.String()))
}

func (m *Model) viewTranscript(sb *strings.Builder) {
	sb.WriteString(style.Label.Render("Transcript of "))
	sb.WriteString(style.Muted.Render(m.state.FileName()))
	sb.WriteString("\n")
	sb.WriteString(style.Viewport.Render(m.viewport.View()))
	sb.WriteString("\n\n")
	sb.WriteString(renderHints(m.keys.Save, m.keys.Resubmit, m.keys.NewFile, m.keys.Quit))
}

func (m *Model) viewFailed(sb *strings.Builder) {
	sb.WriteString(style.Error.Render("Transcription failed"))
	sb.WriteString("\n")
	sb.WriteString(style.Muted.Render(describe(m.state.File)))
	sb.WriteString("\n\n")

	if m.state.Err != nil {
		sb.WriteString(wrapText(m.state.Err.Error(), max(m.width-2, 20)))
		sb.WriteString("\n\n")
	}

	sb.WriteString(renderHints(m.keys.Resubmit, m.keys.NewFile, m.keys.Quit))
}

// viewValidation shows a refused submission, which leaves the status as is.
func (m *Model) viewValidation(sb *strings.Builder) {
	var verr *upload.ValidationError
	if errors.As(m.state.Err, &verr) {
		sb.WriteString(style.Error.Render(verr.Reason))
		sb.WriteString("\n\n")
	}
}

// renderHints renders "[key] desc" pairs for the footer.
func renderHints(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts,
			style.Help.Render("[")+style.Key.Render(b.Help().Key)+style.Help.Render("] "+b.Help().Desc),
		)
	}

	return strings.Join(parts, "  ")
}

func describe(f audio.File) string {
	return fmt.Sprintf("%s (%s, %s)", f.Name, f.MediaType, humanize.Bytes(uint64(max(f.Size, 0)))) //nolint:gosec // clamped
}

func transcriptText(transcript string) string {
	if transcript == "" {
		return style.Muted.Render("(no speech detected)")
	}

	return transcript
}

// transcriptPath places the transcript next to the audio file, or in the
// working directory for files that were never on disk.
func transcriptPath(f audio.File) string {
	base := f.Path()
	if base == "" {
		base = f.Name
	}

	return strings.TrimSuffix(base, filepath.Ext(base)) + ".txt"
}

// wrapText wraps text to width so long lines wrap instead of being truncated.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	return lipgloss.NewStyle().Width(width).Render(text)
}
