// Package transcript chooses how each chat entry is displayed.
//
// Select is a pure function of the entry's mode, kind and content; front ends
// turn the resulting View into HTML or terminal output.
package transcript

import (
	"strings"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/resultset"
)

// NoDataNotice is shown for an empty result set.
const NoDataNotice = "Relevant data not found!"

// Kind is the view selected for an entry.
type Kind int

// View kinds.
const (
	KindText Kind = iota
	KindCode
	KindTable
	KindMap
	KindNoData
	KindEditor
	KindDecodeError
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCode:
		return "code"
	case KindTable:
		return "table"
	case KindMap:
		return "map"
	case KindNoData:
		return "no-data"
	case KindEditor:
		return "editor"
	case KindDecodeError:
		return "decode-error"
	}
	return "unknown"
}

// Action is a control offered under an entry.
type Action string

// Actions.
const (
	ActionRun  Action = "run"
	ActionEdit Action = "edit"
	ActionSave Action = "save"
)

// View is the display decision for one entry.
type View struct {
	EntryID  string
	FromUser bool
	IsError  bool
	Kind     Kind
	Mode     chat.Mode
	Text     string               // text, code, editor seed or decode error message
	Result   *resultset.ResultSet // table and map views
	Actions  []Action
}

// Select picks the view for an entry in the given mode.
func Select(mode chat.Mode, e chat.Entry) View {
	v := View{
		EntryID:  e.ID,
		FromUser: e.FromUser(),
		IsError:  e.Kind == chat.KindError,
		Mode:     mode,
		Actions:  actionsFor(mode, e),
	}

	switch {
	case mode == chat.ModeEdit:
		v.Kind = KindEditor
		v.Text = e.AI
	case e.Kind == chat.KindTable:
		rs, err := resultset.Decode(e.AI)
		switch {
		case err != nil:
			v.Kind = KindDecodeError
			v.Text = "Could not read the result: " + err.Error()
		case rs.Shape == resultset.ShapeEmpty:
			v.Kind = KindNoData
			v.Text = NoDataNotice
		case rs.Shape == resultset.ShapeMap:
			v.Kind = KindMap
			v.Result = rs
		default:
			v.Kind = KindTable
			v.Result = rs
		}
	case e.Kind == chat.KindSQL && strings.Contains(e.AI, "SELECT"):
		v.Kind = KindCode
		v.Text = e.AI
	default:
		v.Kind = KindText
		v.Text = e.Text()
	}
	return v
}

// Build selects views for every entry of a snapshot, in order.
func Build(s chat.Snapshot) []View {
	views := make([]View, 0, len(s.Entries))
	for _, e := range s.Entries {
		views = append(views, Select(s.Mode(e.ID), e))
	}
	return views
}

// actionsFor returns the controls of an assistant SQL entry.
func actionsFor(mode chat.Mode, e chat.Entry) []Action {
	if e.FromUser() || e.Kind != chat.KindSQL {
		return nil
	}
	if mode == chat.ModeEdit {
		return []Action{ActionSave}
	}
	return []Action{ActionRun, ActionEdit}
}
