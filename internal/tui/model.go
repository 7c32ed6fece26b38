// Package tui is the full-screen terminal chat front end.
//
// It drives the same chat.Conversation as the web UI: a question box at the
// bottom, the transcript in a scrollable viewport, and key bindings that run,
// edit and save the SQL of the selected entry. Backend calls run as tea.Cmds
// so the screen never blocks.
package tui

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/transcript"
)

type focus int

const (
	focusInput focus = iota
	focusEditor
)

const editorHeight = 6

// Model is the bubbletea model of a chat session.
type Model struct {
	ctx  context.Context
	conv *chat.Conversation
	keys keyMap
	help help.Model

	input    textinput.Model
	editor   textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	views     []transcript.View
	drafts    map[string]string
	questions []string
	suggested int

	selected int    // index into views, -1 when nothing is selectable
	editing  string // entry whose SQL is open in the editor
	focus    focus
	pending  int
	status   string
	err      error

	width  int
	height int
}

// New creates a model for conv. ctx bounds every backend call.
func New(ctx context.Context, conv *chat.Conversation) Model {
	in := textinput.New()
	in.Placeholder = "Ask a question about your data..."
	in.Prompt = "› "
	in.CharLimit = 1000
	in.Focus()

	ed := textarea.New()
	ed.Placeholder = "SELECT ..."
	ed.ShowLineNumbers = false
	ed.SetHeight(editorHeight)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		conv:     conv,
		keys:     defaultKeyMap(),
		help:     help.New(),
		input:    in,
		editor:   ed,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		selected: -1,
		width:    80,
		height:   24,
	}
}

// Init loads the transcript and the suggested questions.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refresh("", nil, false), m.loadQuestions())
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case transcriptMsg:
		if msg.action && m.pending > 0 {
			m.pending--
		}
		m.err = msg.err
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.views != nil {
			grew := len(msg.views) > len(m.views)
			m.views = msg.views
			m.drafts = msg.drafts
			m.reselect(grew)
			m.syncEditor()
			m.redraw(grew)
		}
		return m, nil

	case questionsMsg:
		if msg.err != nil {
			m.status = "suggested questions unavailable"
			return m, nil
		}
		m.questions = msg.questions
		return m, nil

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.focus == focusEditor {
		return m.updateEditor(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Ask):
		question := strings.TrimSpace(m.input.Value())
		if question == "" {
			return m, nil
		}
		m.input.Reset()
		return m.start(func(ctx context.Context) (string, error) {
			return "", m.conv.Ask(ctx, question)
		})

	case key.Matches(msg, m.keys.Suggest):
		if len(m.questions) > 0 {
			m.input.SetValue(m.questions[m.suggested%len(m.questions)])
			m.input.CursorEnd()
			m.suggested++
		}
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		m.move(-1)
		m.redraw(false)
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.move(1)
		m.redraw(false)
		return m, nil

	case key.Matches(msg, m.keys.Run):
		v, ok := m.selectedView(transcript.ActionRun)
		if !ok {
			return m, nil
		}
		id := v.EntryID
		return m.start(func(ctx context.Context) (string, error) {
			_, err := m.conv.Run(ctx, id)
			return "", err
		})

	case key.Matches(msg, m.keys.Edit):
		v, ok := m.selectedView(transcript.ActionEdit)
		if !ok {
			// reopen an entry already in edit mode
			if v, ok = m.selectedView(transcript.ActionSave); !ok {
				return m, nil
			}
		}
		if err := m.conv.Edit(m.ctx, v.EntryID); err != nil {
			m.err = err
			return m, nil
		}
		m.openEditor(v.EntryID, v.Text)
		return m, m.refresh("", nil, false)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		id := m.editing
		m.conv.SetDraft(id, m.editor.Value())
		m.closeEditor()
		return m.start(func(ctx context.Context) (string, error) {
			saved, err := m.conv.Save(ctx, id)
			if err != nil || !saved {
				return "", err
			}
			return "SQL saved", nil
		})

	case key.Matches(msg, m.keys.Leave):
		// the entry stays in edit mode with its draft kept
		m.conv.SetDraft(m.editing, m.editor.Value())
		m.closeEditor()
		return m, m.refresh("", nil, false)
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// start runs an action in the background and refreshes afterwards.
func (m Model) start(action func(ctx context.Context) (string, error)) (tea.Model, tea.Cmd) {
	m.pending++
	m.err = nil
	cmd := func() tea.Msg {
		status, err := action(m.ctx)
		return m.snapshot(status, err, true)
	}
	if m.pending == 1 {
		return m, tea.Batch(cmd, m.spinner.Tick)
	}
	return m, cmd
}

func (m Model) refresh(status string, err error, action bool) tea.Cmd {
	return func() tea.Msg {
		return m.snapshot(status, err, action)
	}
}

func (m Model) snapshot(status string, err error, action bool) transcriptMsg {
	snap, serr := m.conv.Snapshot(m.ctx)
	if serr != nil {
		return transcriptMsg{err: errors.Join(err, serr), action: action}
	}
	return transcriptMsg{
		views:  transcript.Build(snap),
		drafts: snap.Drafts,
		status: status,
		err:    err,
		action: action,
	}
}

func (m Model) loadQuestions() tea.Cmd {
	return func() tea.Msg {
		questions, err := m.conv.Questions(m.ctx)
		return questionsMsg{questions: questions, err: err}
	}
}

// selectedView returns the selected view if it offers the action.
func (m Model) selectedView(action transcript.Action) (transcript.View, bool) {
	if m.selected < 0 || m.selected >= len(m.views) {
		return transcript.View{}, false
	}
	v := m.views[m.selected]
	for _, a := range v.Actions {
		if a == action {
			return v, true
		}
	}
	return transcript.View{}, false
}

// reselect keeps the selection on an actionable entry, jumping to the newest
// one when the transcript grew.
func (m *Model) reselect(grew bool) {
	if !grew && m.selected >= 0 && m.selected < len(m.views) && len(m.views[m.selected].Actions) > 0 {
		return
	}
	m.selected = -1
	for i := len(m.views) - 1; i >= 0; i-- {
		if len(m.views[i].Actions) > 0 {
			m.selected = i
			return
		}
	}
}

// move steps the selection to the previous or next actionable entry.
func (m *Model) move(step int) {
	for i := m.selected + step; i >= 0 && i < len(m.views); i += step {
		if len(m.views[i].Actions) > 0 {
			m.selected = i
			return
		}
	}
}

// syncEditor closes the editor when its entry left edit mode elsewhere.
func (m *Model) syncEditor() {
	if m.editing == "" {
		return
	}
	for _, v := range m.views {
		if v.EntryID == m.editing && v.Mode == chat.ModeEdit {
			return
		}
	}
	m.closeEditor()
}

func (m *Model) openEditor(id, seed string) {
	if draft := m.drafts[id]; draft != "" {
		seed = draft
	}
	m.editing = id
	m.focus = focusEditor
	m.editor.SetValue(seed)
	m.editor.Focus()
	m.input.Blur()
	m.layout()
}

func (m *Model) closeEditor() {
	m.editing = ""
	m.focus = focusInput
	m.editor.Blur()
	m.editor.Reset()
	m.input.Focus()
	m.layout()
}

// layout sizes the viewport to what the footer leaves.
func (m *Model) layout() {
	footer := 4 // title, input, status, help
	if m.focus == focusEditor {
		footer += editorHeight + 1
	}
	h := m.height - footer
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.input.Width = m.width - 4
	m.editor.SetWidth(m.width - 2)
	m.redraw(false)
}

func (m *Model) redraw(bottom bool) {
	m.viewport.SetContent(renderTranscript(m.views, m.drafts, m.selected, m.width))
	if bottom {
		m.viewport.GotoBottom()
	}
}

// View renders the screen.
func (m Model) View() string {
	parts := []string{
		titleStyle.Render("LeapChat"),
		m.viewport.View(),
	}
	if m.focus == focusEditor {
		parts = append(parts, m.editor.View())
	}
	parts = append(parts, m.input.View(), m.statusLine())

	bindings := m.keys.inputHelp()
	if m.focus == focusEditor {
		bindings = m.keys.editorHelp()
	}
	parts = append(parts, m.help.ShortHelpView(bindings))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("Error: " + m.err.Error())
	case m.pending > 0:
		return statusBarStyle.Render(m.spinner.View() + " waiting for the backend")
	case m.status != "":
		return statusBarStyle.Render(m.status)
	}
	return ""
}

// Options configures Run.
type Options struct {
	Input     io.Reader
	Output    io.Writer
	AltScreen bool
}

// Run starts the terminal chat and blocks until the user quits.
func Run(ctx context.Context, conv *chat.Conversation, opts Options) error {
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}

	_, err := tea.NewProgram(New(ctx, conv), progOpts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
