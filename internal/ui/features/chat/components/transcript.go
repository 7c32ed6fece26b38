package components

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/a-h/templ"
	"github.com/paulmach/orb/geojson"

	"github.com/leapstack-labs/leapchat/internal/resultset"
	"github.com/leapstack-labs/leapchat/internal/transcript"
)

// TranscriptID is the element patched on every transcript change.
const TranscriptID = "transcript"

// DraftSignal returns the datastar signal name holding an entry's draft.
// Signal names must be valid identifiers, so the ID loses its hyphens.
func DraftSignal(entryID string) string {
	return "e" + strings.ReplaceAll(entryID, "-", "")
}

// Transcript renders every entry view in order.
func Transcript(views []transcript.View, drafts map[string]string) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.raw(`<section id="` + TranscriptID + `">`)
		if len(views) == 0 {
			hw.raw(`<p class="notice empty">Ask a question about your data to get started.</p>`)
		}
		for _, v := range views {
			hw.render(ctx, Entry(v, drafts[v.EntryID]))
		}
		hw.raw(`</section>`)
	})
}

// Entry renders one transcript entry with its action bar.
func Entry(v transcript.View, draft string) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		class := "entry"
		role := "Assistant"
		if v.FromUser {
			class += " from-user"
			role = "You"
		}
		if v.IsError {
			class += " is-error"
		}

		hw.raw(`<article`)
		hw.attr("id", "entry-"+v.EntryID)
		hw.attr("class", class)
		hw.attr("data-kind", v.Kind.String())
		hw.raw(`><div class="role">`)
		hw.text(role)
		hw.raw(`</div>`)

		switch v.Kind {
		case transcript.KindCode:
			hw.render(ctx, CodeBlock(v.Text))
		case transcript.KindEditor:
			hw.render(ctx, Editor(v.EntryID, v.Text, draft))
		case transcript.KindTable:
			hw.render(ctx, ResultTable(v.Result))
		case transcript.KindMap:
			hw.render(ctx, ResultMap(v.EntryID, v.Result))
		case transcript.KindNoData, transcript.KindDecodeError:
			hw.raw(`<p class="notice">`)
			hw.text(v.Text)
			hw.raw(`</p>`)
		default:
			hw.raw(`<p class="text">`)
			hw.text(v.Text)
			hw.raw(`</p>`)
		}

		hw.render(ctx, ActionBar(v.EntryID, v.Actions))
		hw.raw(`</article>`)
	})
}

// Editor renders the SQL editor of an entry in edit mode.
// Keystrokes go to a per-entry signal and are posted to the server, debounced.
func Editor(entryID, seed, draft string) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		signal := "$drafts." + DraftSignal(entryID)
		text := seed
		if draft != "" {
			text = draft
		}

		hw.raw(`<textarea`)
		hw.attr("id", "editor-"+entryID)
		hw.attr("data-signals__ifmissing", "{drafts: {"+DraftSignal(entryID)+": ''}}")
		hw.attr("data-on:input", signal+" = el.value")
		hw.attr("data-on:input__debounce.300ms", "@post('/api/chat/entries/"+entryID+"/draft')")
		hw.raw(`>`)
		hw.text(text)
		hw.raw(`</textarea>`)
	})
}

// ActionBar renders the controls offered for an entry.
func ActionBar(entryID string, actions []transcript.Action) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		if len(actions) == 0 {
			return
		}
		hw.raw(`<div class="actions">`)
		for _, a := range actions {
			label, class := "Run", "primary"
			switch a {
			case transcript.ActionEdit:
				label, class = "Edit", ""
			case transcript.ActionSave:
				label = "Save"
			}
			hw.raw(`<button type="button"`)
			if class != "" {
				hw.attr("class", class)
			}
			hw.attr("data-on:click", "@post('/api/chat/entries/"+entryID+"/"+string(a)+"')")
			hw.raw(`>`)
			hw.text(label)
			hw.raw(`</button>`)
		}
		hw.raw(`</div>`)
	})
}

// ResultTable renders a result set as an HTML table.
func ResultTable(rs *resultset.ResultSet) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		if rs == nil {
			return
		}
		hw.raw(`<div class="table-wrap"><table class="result-table"><thead><tr>`)
		for _, col := range rs.Columns {
			hw.raw(`<th>`)
			hw.text(col)
			hw.raw(`</th>`)
		}
		hw.raw(`</tr></thead><tbody>`)
		for _, row := range rs.Rows {
			hw.raw(`<tr>`)
			for _, col := range rs.Columns {
				hw.raw(`<td>`)
				if v, ok := row.Get(col); ok {
					hw.text(resultset.FormatValue(v))
				}
				hw.raw(`</td>`)
			}
			hw.raw(`</tr>`)
		}
		hw.raw(`</tbody></table></div>`)
	})
}

// ResultMap renders the container the browser draws the map into. Features
// carry their tooltip lines, already escaped, under the "tooltip" property.
func ResultMap(entryID string, rs *resultset.ResultSet) templ.Component {
	return component(func(_ context.Context, hw *htmlWriter) {
		if rs == nil {
			return
		}
		features, err := mapFeatures(rs)
		if err != nil {
			hw.raw(`<p class="notice">`)
			hw.text("Could not draw the map: " + err.Error())
			hw.raw(`</p>`)
			return
		}
		hw.raw(`<div`)
		hw.attr("id", "map-"+entryID)
		hw.attr("class", "result-map")
		hw.attr("data-features", features)
		hw.raw(`></div>`)
	})
}

func mapFeatures(rs *resultset.ResultSet) (string, error) {
	fc := geojson.NewFeatureCollection()
	for _, o := range rs.Overlays {
		tooltip := make([]string, len(o.Tooltip))
		for i, line := range o.Tooltip {
			tooltip[i] = templ.EscapeString(line)
		}
		for _, f := range o.Features {
			out := geojson.NewFeature(f.Geometry)
			for k, v := range f.Properties {
				out.Properties[k] = v
			}
			out.Properties["tooltip"] = tooltip
			fc.Append(out)
		}
	}

	b, err := json.Marshal(fc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
