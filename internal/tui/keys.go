package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Ask      key.Binding
	Prev     key.Binding
	Next     key.Binding
	Run      key.Binding
	Edit     key.Binding
	Save     key.Binding
	Leave    key.Binding
	Suggest  key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Ask:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
		Prev:     key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "prev sql")),
		Next:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next sql")),
		Run:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "run")),
		Edit:     key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "edit")),
		Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Leave:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Suggest:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "suggest")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// inputHelp lists the bindings shown while typing a question.
func (k keyMap) inputHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Suggest, k.Prev, k.Next, k.Run, k.Edit, k.Quit}
}

// editorHelp lists the bindings shown while editing SQL.
func (k keyMap) editorHelp() []key.Binding {
	return []key.Binding{k.Save, k.Leave, k.Quit}
}
