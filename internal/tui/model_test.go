package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/gateway"
	"github.com/leapstack-labs/leapchat/internal/store"
	"github.com/leapstack-labs/leapchat/internal/testutil"
	"github.com/leapstack-labs/leapchat/internal/transcript"
)

func setup(t *testing.T) (Model, *testutil.FakeBackend, *chat.Conversation) {
	t.Helper()
	logger := testutil.NewTestLogger(t)

	backend, url := testutil.NewBackend(t)
	client, err := gateway.New(gateway.Config{BaseURL: url, Timeout: 5 * time.Second, Logger: logger})
	require.NoError(t, err)
	mem, err := store.NewMemory(4)
	require.NoError(t, err)

	conv := chat.NewService(mem, client, logger).Conversation("")
	m := New(context.Background(), conv)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 60})
	return m, backend, conv
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	return drive(t, next.(Model), cmd)
}

func press(t *testing.T, m Model, k tea.KeyType) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: k})
}

// drive runs cmd and feeds the model's own messages back into it. Cursor and
// spinner ticks are dropped.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(t, cmd) {
		switch msg.(type) {
		case transcriptMsg, questionsMsg:
			m = update(t, m, msg)
		}
	}
	return m
}

func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(5 * time.Second):
		return nil
	}

	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var msgs []tea.Msg
	for _, c := range batch {
		msgs = append(msgs, collect(t, c)...)
	}
	return msgs
}

func ask(t *testing.T, m Model, question string) Model {
	t.Helper()
	m.input.SetValue(question)
	return press(t, m, tea.KeyEnter)
}

func TestModel_InitLoadsTranscriptAndQuestions(t *testing.T) {
	m, backend, conv := setup(t)
	backend.Set(func(b *testutil.FakeBackend) { b.Questions = []string{"How many cities?"} })
	require.NoError(t, conv.Ask(context.Background(), "Where is Medan?"))

	m = drive(t, m, m.Init())

	require.Len(t, m.views, 2)
	assert.Equal(t, []string{"How many cities?"}, m.questions)
	assert.Equal(t, 1, m.selected, "newest sql entry is selected")
}

func TestModel_Ask(t *testing.T) {
	m, backend, _ := setup(t)
	backend.Set(func(b *testutil.FakeBackend) { b.SQL = "SELECT name FROM cities" })

	m = ask(t, m, "Which cities?")

	require.Len(t, m.views, 2)
	assert.True(t, m.views[0].FromUser)
	assert.Equal(t, transcript.KindCode, m.views[1].Kind)
	assert.Empty(t, m.input.Value())
	assert.Zero(t, m.pending)

	view := m.View()
	assert.Contains(t, view, "Which cities?")
	assert.Contains(t, view, "SELECT name FROM cities")
	assert.Contains(t, view, "You")
	assert.Contains(t, view, "Assistant")
	assert.Contains(t, view, "ctrl+r run")
}

func TestModel_AskEmptyDoesNothing(t *testing.T) {
	m, _, _ := setup(t)
	m.input.SetValue("   ")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Zero(t, next.(Model).pending)
}

func TestModel_BackendError(t *testing.T) {
	m, backend, _ := setup(t)
	backend.Set(func(b *testutil.FakeBackend) { b.SQLError = "cannot answer that" })

	m = ask(t, m, "Nonsense?")

	require.Len(t, m.views, 2)
	assert.True(t, m.views[1].IsError)
	assert.Equal(t, -1, m.selected, "error entries offer no actions")
	assert.Contains(t, m.View(), "cannot answer that")
}

func TestModel_Run(t *testing.T) {
	m, backend, _ := setup(t)
	backend.Set(func(b *testutil.FakeBackend) {
		b.SQL = "SELECT name FROM cities"
		b.DF = `[{"name":"Medan"},{"name":"Binjai"}]`
	})

	m = ask(t, m, "Which cities?")
	m = press(t, m, tea.KeyCtrlR)

	require.Len(t, m.views, 3)
	assert.Equal(t, transcript.KindTable, m.views[2].Kind)
	assert.Equal(t, []string{"SELECT name FROM cities"}, backend.Ran())
	assert.Contains(t, m.View(), "Binjai")
	assert.Equal(t, 1, m.selected, "selection stays on the sql entry")
}

func TestModel_RunWithoutSelectionIsNoop(t *testing.T) {
	m, backend, _ := setup(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Nil(t, cmd)
	assert.Zero(t, next.(Model).pending)
	assert.Empty(t, backend.Ran())
}

func TestModel_EditAndSave(t *testing.T) {
	m, backend, conv := setup(t)
	backend.Set(func(b *testutil.FakeBackend) { b.SQL = "SELECT 1" })

	m = ask(t, m, "One?")
	m = press(t, m, tea.KeyCtrlE)

	require.Equal(t, focusEditor, m.focus)
	assert.Equal(t, "SELECT 1", m.editor.Value())
	assert.Equal(t, chat.ModeEdit, m.views[1].Mode)
	assert.Contains(t, m.View(), "ctrl+s save")

	m.editor.SetValue("SELECT 2")
	m = press(t, m, tea.KeyCtrlS)

	assert.Equal(t, focusInput, m.focus)
	assert.Equal(t, "SQL saved", m.status)
	assert.Equal(t, chat.ModeRun, m.views[1].Mode)
	assert.Equal(t, "SELECT 2", m.views[1].Text)
	assert.Equal(t, chat.ModeRun, conv.Mode(m.views[1].EntryID))
}

func TestModel_SaveEmptyEditorKeepsSQL(t *testing.T) {
	m, backend, _ := setup(t)
	backend.Set(func(b *testutil.FakeBackend) { b.SQL = "SELECT 1" })

	m = ask(t, m, "One?")
	m = press(t, m, tea.KeyCtrlE)
	m.editor.SetValue("")
	m = press(t, m, tea.KeyCtrlS)

	assert.Equal(t, "SELECT 1", m.views[1].Text)
	assert.Equal(t, chat.ModeRun, m.views[1].Mode)
}

func TestModel_LeaveEditorKeepsDraft(t *testing.T) {
	m, backend, _ := setup(t)
	backend.Set(func(b *testutil.FakeBackend) { b.SQL = "SELECT 1" })

	m = ask(t, m, "One?")
	m = press(t, m, tea.KeyCtrlE)
	m.editor.SetValue("SELECT 3")
	m = press(t, m, tea.KeyEsc)

	assert.Equal(t, focusInput, m.focus)
	assert.Equal(t, chat.ModeEdit, m.views[1].Mode)
	assert.Equal(t, "SELECT 3", m.drafts[m.views[1].EntryID])

	// reopening shows the draft, not the stored SQL
	m = press(t, m, tea.KeyCtrlE)
	assert.Equal(t, "SELECT 3", m.editor.Value())
}

func TestModel_MoveSelection(t *testing.T) {
	m, _, _ := setup(t)

	m = ask(t, m, "First?")
	m = ask(t, m, "Second?")
	require.Len(t, m.views, 4)
	assert.Equal(t, 3, m.selected)

	m = press(t, m, tea.KeyCtrlP)
	assert.Equal(t, 1, m.selected)

	m = press(t, m, tea.KeyCtrlP)
	assert.Equal(t, 1, m.selected, "stays on the first sql entry")

	m = press(t, m, tea.KeyCtrlN)
	assert.Equal(t, 3, m.selected)
}

func TestModel_Suggest(t *testing.T) {
	m, _, _ := setup(t)
	m = update(t, m, questionsMsg{questions: []string{"A?", "B?"}})

	m = press(t, m, tea.KeyCtrlO)
	assert.Equal(t, "A?", m.input.Value())
	m = press(t, m, tea.KeyCtrlO)
	assert.Equal(t, "B?", m.input.Value())
	m = press(t, m, tea.KeyCtrlO)
	assert.Equal(t, "A?", m.input.Value())
}

func TestModel_QuestionsUnavailable(t *testing.T) {
	m, _, _ := setup(t)
	m = update(t, m, questionsMsg{err: assert.AnError})
	assert.Contains(t, m.View(), "suggested questions unavailable")
}

func TestModel_WindowSize(t *testing.T) {
	m, _, _ := setup(t)
	assert.Equal(t, 120, m.viewport.Width)
	assert.Equal(t, 56, m.viewport.Height)

	m = press(t, m, tea.KeyCtrlE) // nothing selected, editor stays closed
	assert.Equal(t, focusInput, m.focus)
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := setup(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
