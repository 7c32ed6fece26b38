package tui

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapchat/internal/cli/output"
	"github.com/leapstack-labs/leapchat/internal/transcript"
)

// renderTranscript draws every view, numbered from 1. selected is the index
// of the highlighted entry, -1 for none.
func renderTranscript(views []transcript.View, drafts map[string]string, selected, width int) string {
	if len(views) == 0 {
		return dimStyle.Render("Ask a question about your data to get started.")
	}

	parts := make([]string, 0, len(views))
	for i, v := range views {
		parts = append(parts, renderView(v, drafts[v.EntryID], i+1, i == selected, width))
	}
	return strings.Join(parts, "\n\n")
}

func renderView(v transcript.View, draft string, n int, selected bool, width int) string {
	var b strings.Builder

	role, style := "assistant", assistantRoleStyle
	if v.FromUser {
		role, style = "you", userRoleStyle
	}
	mark := "  "
	if selected {
		mark = selectedMarkStyle.Render("▸ ")
	}
	fmt.Fprintf(&b, "%s%s %s\n", mark, style.Render(cases.Title(language.English).String(role)), dimStyle.Render(fmt.Sprintf("#%d", n)))

	body := width - 4
	if body < 20 {
		body = 20
	}

	switch v.Kind {
	case transcript.KindCode:
		b.WriteString(codeStyle.Render(highlightSQL(v.Text)))
	case transcript.KindEditor:
		text := v.Text
		if draft != "" {
			text = draft
		}
		b.WriteString(editingCodeStyle.Render(highlightSQL(text)))
		b.WriteString("\n" + dimStyle.Render("editing"))
	case transcript.KindTable, transcript.KindMap:
		t := output.Table(v.Result)
		t.SetStyle(table.StyleRounded)
		b.WriteString(t.Render())
		b.WriteString("\n" + dimStyle.Render(output.Summary(v.Result)))
	case transcript.KindNoData:
		b.WriteString(dimStyle.Render(v.Text))
	case transcript.KindDecodeError:
		b.WriteString(errorStyle.Width(body).Render(v.Text))
	default:
		if v.IsError {
			b.WriteString(errorStyle.Width(body).Render(v.Text))
		} else {
			b.WriteString(lipgloss.NewStyle().Width(body).Render(v.Text))
		}
	}

	if selected && len(v.Actions) > 0 {
		b.WriteString("\n" + actionHint(v.Actions))
	}
	return b.String()
}

func actionHint(actions []transcript.Action) string {
	hints := make([]string, 0, len(actions))
	for _, a := range actions {
		switch a {
		case transcript.ActionRun:
			hints = append(hints, "ctrl+r run")
		case transcript.ActionEdit:
			hints = append(hints, "ctrl+e edit")
		case transcript.ActionSave:
			hints = append(hints, "ctrl+s save")
		}
	}
	return hintStyle.Render(strings.Join(hints, " · "))
}

// highlightSQL colours SQL for terminals that support it.
func highlightSQL(sql string) string {
	if lipgloss.ColorProfile() == termenv.Ascii {
		return sql
	}
	var b strings.Builder
	if err := quick.Highlight(&b, sql, "sql", "terminal256", "monokai"); err != nil {
		return sql
	}
	return strings.TrimRight(b.String(), "\n")
}
